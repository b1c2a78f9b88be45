package frame

import (
	"github.com/kstaniek/go-nextion-bridge/internal/metrics"
)

// Terminator is the byte that, repeated TerminatorLen times, ends every frame.
const (
	Terminator    = 0xFF
	TerminatorLen = 3
)

// DefaultMaxPayload bounds a single frame payload. A stream of noise without
// terminators would otherwise grow the accumulator forever.
const DefaultMaxPayload = 16 * 1024

// Frame is one device->host unit: status byte plus payload, terminator stripped.
// Payload is owned by the frame; the demultiplexer never reuses it.
type Frame struct {
	Code    byte
	Payload []byte
}

type state uint8

const (
	seekStatus state = iota
	accumulate
	discard
)

// Demux is the incremental frame demultiplexer. It keeps its state between
// Feed calls so a frame may be split across any number of chunks.
// Not safe for concurrent use; the reader goroutine owns it.
type Demux struct {
	max     int
	st      state
	code    byte
	payload []byte
	run     int // consecutive terminator bytes seen
}

// NewDemux returns a demultiplexer with the given payload bound (<=0 means DefaultMaxPayload).
func NewDemux(maxPayload int) *Demux {
	if maxPayload <= 0 {
		maxPayload = DefaultMaxPayload
	}
	return &Demux{max: maxPayload}
}

// Feed consumes p and calls emit for each frame completed by it, in wire order.
// It returns the number of frames emitted.
//
// Example stream (two frames):
// 66 07 FF FF FF       - page id 7
// 71 2A 00 FF FF FF    - numeric value 42
func (d *Demux) Feed(p []byte, emit func(Frame)) int {
	if d.max <= 0 {
		d.max = DefaultMaxPayload
	}
	var n int
	for _, b := range p {
		switch d.st {
		case seekStatus:
			if b == Terminator {
				continue // stray terminator bytes between frames
			}
			d.code = b
			d.payload = d.payload[:0]
			d.run = 0
			d.st = accumulate
		case accumulate:
			if b == Terminator {
				d.run++
				if d.run == TerminatorLen {
					emit(d.take())
					metrics.IncFramesRx()
					n++
				}
				continue
			}
			// An interrupted run was payload data after all.
			for ; d.run > 0; d.run-- {
				d.payload = append(d.payload, Terminator)
			}
			d.payload = append(d.payload, b)
			if len(d.payload) > d.max {
				metrics.IncMalformed()
				d.payload = d.payload[:0]
				d.st = discard
			}
		case discard:
			if b == Terminator {
				d.run++
				if d.run == TerminatorLen {
					d.run = 0
					d.st = seekStatus
				}
				continue
			}
			d.run = 0
		}
	}
	d.reclaim()
	return n
}

// Pending reports whether a frame is partially accumulated.
func (d *Demux) Pending() bool { return d.st != seekStatus }

// Reset drops any partial frame.
func (d *Demux) Reset() {
	d.st = seekStatus
	d.run = 0
	d.payload = d.payload[:0]
}

func (d *Demux) take() Frame {
	fr := Frame{Code: d.code}
	if len(d.payload) > 0 {
		fr.Payload = make([]byte, len(d.payload))
		copy(fr.Payload, d.payload)
	}
	d.payload = d.payload[:0]
	d.run = 0
	d.st = seekStatus
	return fr
}

// reclaim releases an accumulator that grew large once it is empty again.
func (d *Demux) reclaim() {
	if len(d.payload) == 0 && cap(d.payload) > 1024 {
		d.payload = nil
	}
}
