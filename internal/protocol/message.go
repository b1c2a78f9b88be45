package protocol

import (
	"encoding/binary"
	"fmt"

	"github.com/kstaniek/go-nextion-bridge/internal/frame"
)

// Action is the touch state carried by touch events.
type Action uint8

const (
	Release Action = iota
	Press
)

func (a Action) String() string {
	if a == Press {
		return "press"
	}
	return "release"
}

func actionOf(b byte) Action {
	if b == 0x01 {
		return Press
	}
	return Release
}

// TouchEvent is the payload of CodeTouchEvent.
type TouchEvent struct {
	Page      int
	Component int
	Action    Action
}

// TouchPoint is the payload of CodeTouchXY and CodeTouchSleep.
type TouchPoint struct {
	X, Y     int16
	Action   Action
	Sleeping bool
}

// Message is a decoded frame. Value is nil for pure notifications, an int for
// page ids and numeric values, a string for string values, or a TouchEvent /
// TouchPoint.
type Message struct {
	Code    Code
	Payload []byte
	Value   any
}

// Int returns Value as an int when it is one.
func (m Message) Int() (int, bool) { v, ok := m.Value.(int); return v, ok }

// Text returns Value as a string when it is one.
func (m Message) Text() (string, bool) { v, ok := m.Value.(string); return v, ok }

func (m Message) String() string {
	if m.Value == nil {
		return fmt.Sprintf("0x%02X %s", byte(m.Code), m.Code)
	}
	return fmt.Sprintf("0x%02X %s: %v", byte(m.Code), m.Code, m.Value)
}

// Decode interprets fr. Device error codes yield a *DeviceError and unknown
// codes or truncated payloads a *DecodeError; in both cases the returned
// Message still carries the code and raw payload.
func Decode(fr frame.Frame) (Message, error) {
	m := Message{Code: Code(fr.Code), Payload: fr.Payload}
	if text, ok := deviceErrors[m.Code]; ok {
		return m, &DeviceError{Code: m.Code, Text: text}
	}
	p := fr.Payload
	switch m.Code {
	case CodeOK, CodeSleepEnter, CodeSleepExit, CodeStartup, CodeSDUpgrade,
		CodeTransparentEnd, CodeTransparentRdy:
		return m, nil
	case CodeTouchEvent:
		if len(p) < 3 {
			return m, short(m.Code, 3, len(p))
		}
		m.Value = TouchEvent{Page: int(p[0]), Component: int(p[1]), Action: actionOf(p[2])}
	case CodeCurrentPage:
		if len(p) < 1 {
			return m, short(m.Code, 1, len(p))
		}
		m.Value = int(p[0])
	case CodeTouchXY, CodeTouchSleep:
		if len(p) < 5 {
			return m, short(m.Code, 5, len(p))
		}
		m.Value = TouchPoint{
			X:        int16(binary.LittleEndian.Uint16(p[0:2])),
			Y:        int16(binary.LittleEndian.Uint16(p[2:4])),
			Action:   actionOf(p[4]),
			Sleeping: m.Code == CodeTouchSleep,
		}
	case CodeStringValue:
		m.Value = string(p)
	case CodeNumericValue:
		switch len(p) {
		case 2:
			m.Value = int(int16(binary.LittleEndian.Uint16(p)))
		case 4: // firmware sends a full int32
			m.Value = int(int32(binary.LittleEndian.Uint32(p)))
		default:
			return m, &DecodeError{Code: m.Code, Reason: ErrShortFrame, Detail: fmt.Sprintf("numeric payload of %d bytes", len(p))}
		}
	default:
		return m, &DecodeError{Code: m.Code, Reason: ErrUnknownCode}
	}
	return m, nil
}

func short(c Code, want, got int) error {
	return &DecodeError{Code: c, Reason: ErrShortFrame, Detail: fmt.Sprintf("want %d bytes, got %d", want, got)}
}
