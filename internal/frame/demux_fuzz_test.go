package frame

import (
	"bytes"
	"testing"
)

// FuzzDemuxSplit ensures splitting a stream at any point yields the same frames.
func FuzzDemuxSplit(f *testing.F) {
	f.Add([]byte{0x66, 0x07, 0xFF, 0xFF, 0xFF}, uint16(2))
	f.Add([]byte{0x70, 0xFF, 0x41, 0xFF, 0xFF, 0x42, 0xFF, 0xFF, 0xFF, 0x01, 0xFF, 0xFF, 0xFF}, uint16(5))
	f.Add([]byte{0xFF, 0xFF, 0x01}, uint16(0))
	f.Fuzz(func(t *testing.T, data []byte, split uint16) {
		whole := collect(NewDemux(64), data)
		at := int(split)
		if at > len(data) {
			at = len(data)
		}
		parts := collect(NewDemux(64), data[:at], data[at:])
		if len(whole) != len(parts) {
			t.Fatalf("frame count differs: whole=%d split=%d", len(whole), len(parts))
		}
		for i := range whole {
			if whole[i].Code != parts[i].Code || !bytes.Equal(whole[i].Payload, parts[i].Payload) {
				t.Fatalf("frame %d differs", i)
			}
			if whole[i].Code == Terminator {
				t.Fatalf("frame %d has terminator status code", i)
			}
		}
	})
}

func BenchmarkDemux_Feed(b *testing.B) {
	var stream []byte
	for i := 0; i < 64; i++ {
		stream = append(stream, wire(0x65, 0x01, byte(i), 0x01)...)
		stream = append(stream, wire(0x70, []byte("temperature=21.5")...)...)
	}
	d := NewDemux(0)
	b.ReportAllocs()
	b.SetBytes(int64(len(stream)))
	for i := 0; i < b.N; i++ {
		d.Feed(stream, func(Frame) {})
	}
}
