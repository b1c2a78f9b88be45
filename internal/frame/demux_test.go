package frame

import (
	"bytes"
	"testing"

	"github.com/kstaniek/go-nextion-bridge/internal/metrics"
)

func wire(code byte, payload ...byte) []byte {
	out := append([]byte{code}, payload...)
	return append(out, Terminator, Terminator, Terminator)
}

func collect(d *Demux, chunks ...[]byte) []Frame {
	var got []Frame
	for _, c := range chunks {
		d.Feed(c, func(fr Frame) { got = append(got, fr) })
	}
	return got
}

func sameFrames(t *testing.T, got, want []Frame) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("decoded %d frames, want %d: %+v", len(got), len(want), got)
	}
	for i := range want {
		if got[i].Code != want[i].Code || !bytes.Equal(got[i].Payload, want[i].Payload) {
			t.Fatalf("frame %d mismatch\n got  code=0x%02X payload=% X\n want code=0x%02X payload=% X",
				i, got[i].Code, got[i].Payload, want[i].Code, want[i].Payload)
		}
	}
}

func TestDemux_SingleFrame(t *testing.T) {
	got := collect(NewDemux(0), []byte{0x66, 0x07, 0xFF, 0xFF, 0xFF})
	sameFrames(t, got, []Frame{{Code: 0x66, Payload: []byte{0x07}}})
}

func TestDemux_EmptyPayload(t *testing.T) {
	got := collect(NewDemux(0), wire(0x01))
	sameFrames(t, got, []Frame{{Code: 0x01}})
	if got[0].Payload != nil {
		t.Fatalf("expected nil payload, got % X", got[0].Payload)
	}
}

func TestDemux_SkipsLeadingTerminators(t *testing.T) {
	stream := append([]byte{0xFF, 0xFF, 0xFF, 0xFF}, wire(0x88)...)
	got := collect(NewDemux(0), stream)
	sameFrames(t, got, []Frame{{Code: 0x88}})
}

func TestDemux_PartialTerminatorRunsPreserved(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
	}{
		{"single", []byte{0x41, 0xFF, 0x42}},
		{"double", []byte{0x41, 0xFF, 0xFF, 0x42}},
		{"leading single", []byte{0xFF, 0x10}},
		{"leading double", []byte{0xFF, 0xFF, 0x10}},
		{"two runs", []byte{0xFF, 0x01, 0xFF, 0xFF, 0x02}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := collect(NewDemux(0), wire(0x70, tc.payload...))
			sameFrames(t, got, []Frame{{Code: 0x70, Payload: tc.payload}})
		})
	}
}

func TestDemux_ChunkBoundaryIndependence(t *testing.T) {
	want := []Frame{
		{Code: 0x65, Payload: []byte{0x01, 0x02, 0x01}},
		{Code: 0x66, Payload: []byte{0x07}},
		{Code: 0x70, Payload: []byte("hi\xff\xffthere")},
		{Code: 0x01},
		{Code: 0x71, Payload: []byte{0x2A, 0x00, 0x00, 0x00}},
		{Code: 0x67, Payload: []byte{0x10, 0x00, 0xFF, 0x00, 0x01}},
	}
	var stream []byte
	for _, fr := range want {
		stream = append(stream, wire(fr.Code, fr.Payload...)...)
	}

	sameFrames(t, collect(NewDemux(0), stream), want)

	for _, sizes := range [][]int{{1}, {2}, {3}, {1, 2, 3, 4, 5, 7, 11}, {13, 1}} {
		d := NewDemux(0)
		var got []Frame
		cs := 0
		for pos := 0; pos < len(stream); {
			n := sizes[cs%len(sizes)]
			cs++
			if pos+n > len(stream) {
				n = len(stream) - pos
			}
			d.Feed(stream[pos:pos+n], func(fr Frame) { got = append(got, fr) })
			pos += n
		}
		sameFrames(t, got, want)
		if d.Pending() {
			t.Fatalf("chunks %v: demux left pending state", sizes)
		}
	}
}

func TestDemux_FramesAreIndependentCopies(t *testing.T) {
	d := NewDemux(0)
	var got []Frame
	buf := wire(0x70, 'a', 'b')
	d.Feed(buf, func(fr Frame) { got = append(got, fr) })
	buf[1] = 'z'
	d.Feed(wire(0x70, 'c', 'd'), func(fr Frame) { got = append(got, fr) })
	if string(got[0].Payload) != "ab" || string(got[1].Payload) != "cd" {
		t.Fatalf("payload aliasing: %q %q", got[0].Payload, got[1].Payload)
	}
}

func TestDemux_OverflowResyncs(t *testing.T) {
	before := metrics.Snap().Malformed
	d := NewDemux(4)
	stream := append(wire(0x70, 1, 2, 3, 4, 5, 6), wire(0x66, 0x02)...)
	got := collect(d, stream)
	sameFrames(t, got, []Frame{{Code: 0x66, Payload: []byte{0x02}}})
	if metrics.Snap().Malformed <= before {
		t.Fatalf("expected malformed metric increment")
	}
}

func TestDemux_Reset(t *testing.T) {
	d := NewDemux(0)
	collect(d, []byte{0x70, 'x', 0xFF})
	if !d.Pending() {
		t.Fatalf("expected pending partial frame")
	}
	d.Reset()
	got := collect(d, wire(0x01))
	sameFrames(t, got, []Frame{{Code: 0x01}})
}

func TestEncodeCommand(t *testing.T) {
	if got := EncodeCommand("sendme", false); !bytes.Equal(got, []byte("sendme\xff\xff\xff")) {
		t.Fatalf("unexpected encoding % X", got)
	}
	if got := EncodeCommand("page 1", true); !bytes.Equal(got, []byte("\xff\xff\xffpage 1\xff\xff\xff")) {
		t.Fatalf("unexpected prefixed encoding % X", got)
	}
}
