package protocol

import (
	"errors"
	"testing"

	"github.com/kstaniek/go-nextion-bridge/internal/frame"
)

func fr(code byte, payload ...byte) frame.Frame { return frame.Frame{Code: code, Payload: payload} }

func TestDecode_Values(t *testing.T) {
	tests := []struct {
		name string
		in   frame.Frame
		want any
	}{
		{"ok", fr(0x01), nil},
		{"startup", fr(0x88), nil},
		{"sleep", fr(0x86), nil},
		{"wake", fr(0x87), nil},
		{"sd", fr(0x89), nil},
		{"transparent finished", fr(0xFD), nil},
		{"transparent ready", fr(0xFE), nil},
		{"page", fr(0x66, 0x07), 7},
		{"page unsigned", fr(0x66, 0xC8), 200},
		{"numeric int16", fr(0x71, 0x2A, 0x00), 42},
		{"numeric negative", fr(0x71, 0xFE, 0xFF), -2},
		{"numeric int32", fr(0x71, 0x01, 0x00, 0x01, 0x00), 65537},
		{"string", fr(0x70, 'h', 'e', 'l', 'l', 'o'), "hello"},
		{"empty string", fr(0x70), ""},
		{"touch press", fr(0x65, 0x01, 0x04, 0x01), TouchEvent{Page: 1, Component: 4, Action: Press}},
		{"touch release", fr(0x65, 0x00, 0x02, 0x00), TouchEvent{Page: 0, Component: 2, Action: Release}},
		{"touch xy", fr(0x67, 0x10, 0x00, 0xFF, 0xFF, 0x01), TouchPoint{X: 16, Y: -1, Action: Press}},
		{"touch asleep", fr(0x68, 0x00, 0x01, 0x02, 0x00, 0x00), TouchPoint{X: 256, Y: 2, Action: Release, Sleeping: true}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m, err := Decode(tc.in)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if m.Value != tc.want {
				t.Fatalf("value = %#v, want %#v", m.Value, tc.want)
			}
			if byte(m.Code) != tc.in.Code {
				t.Fatalf("code = 0x%02X, want 0x%02X", byte(m.Code), tc.in.Code)
			}
		})
	}
}

func TestDecode_DeviceError(t *testing.T) {
	m, err := Decode(fr(0x1a))
	var de *DeviceError
	if !errors.As(err, &de) {
		t.Fatalf("expected *DeviceError, got %v", err)
	}
	if de.Text != "Variable name invalid" || de.Code != ErrCodeInvalidVariable {
		t.Fatalf("unexpected device error %+v", de)
	}
	if !errors.Is(err, ErrDevice) || errors.Is(err, ErrDecode) {
		t.Fatalf("classification wrong for %v", err)
	}
	if m.Value != nil {
		t.Fatalf("device error must not parse payload, got %v", m.Value)
	}
}

func TestDecode_EveryDeviceErrorCode(t *testing.T) {
	for _, c := range ErrorCodes() {
		_, err := Decode(fr(byte(c), 0x01, 0x02))
		var de *DeviceError
		if !errors.As(err, &de) || de.Text == "" {
			t.Fatalf("code 0x%02X: expected DeviceError with text, got %v", byte(c), err)
		}
		if !IsDeviceError(c) || Known(c) {
			t.Fatalf("code 0x%02X: table lookup inconsistent", byte(c))
		}
	}
}

func TestDecode_Unknown(t *testing.T) {
	m, err := Decode(fr(0x42, 0x01))
	if !errors.Is(err, ErrDecode) || !errors.Is(err, ErrUnknownCode) {
		t.Fatalf("expected unknown code decode error, got %v", err)
	}
	if m.Code != 0x42 || len(m.Payload) != 1 {
		t.Fatalf("raw frame data lost: %+v", m)
	}
}

func TestDecode_ShortPayloads(t *testing.T) {
	for _, in := range []frame.Frame{
		fr(0x65, 0x01), fr(0x66), fr(0x67, 1, 2, 3, 4), fr(0x68), fr(0x71, 0x01), fr(0x71, 1, 2, 3),
	} {
		_, err := Decode(in)
		if !errors.Is(err, ErrDecode) || !errors.Is(err, ErrShortFrame) {
			t.Fatalf("code 0x%02X: expected short payload error, got %v", in.Code, err)
		}
	}
}

func TestCodeString(t *testing.T) {
	if CodeCurrentPage.String() != "Current page ID number returns" {
		t.Fatalf("unexpected description %q", CodeCurrentPage.String())
	}
	if Code(0x42).String() != "Unknown code 0x42" {
		t.Fatalf("unexpected unknown description %q", Code(0x42).String())
	}
	if ErrCodeInvalidVariable.Hex() != "0x1a" {
		t.Fatalf("unexpected hex %q", ErrCodeInvalidVariable.Hex())
	}
}

func FuzzDecode(f *testing.F) {
	f.Add(byte(0x67), []byte{1, 2, 3, 4, 5})
	f.Add(byte(0x71), []byte{0x2A})
	f.Fuzz(func(t *testing.T, code byte, payload []byte) {
		_, _ = Decode(frame.Frame{Code: code, Payload: payload})
	})
}
