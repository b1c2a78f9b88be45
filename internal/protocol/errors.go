package protocol

import (
	"errors"
	"fmt"
)

// Sentinel errors used for wrapping so callers can classify via errors.Is.
var (
	ErrDecode      = errors.New("nextion: decode")
	ErrUnknownCode = errors.New("nextion: unknown status code")
	ErrShortFrame  = errors.New("nextion: short payload")
	ErrDevice      = errors.New("nextion: device error")
)

// DeviceError is a status code from the device error table.
type DeviceError struct {
	Code Code
	Text string
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("nextion device error 0x%02X: %s", byte(e.Code), e.Text)
}

// Is matches ErrDevice.
func (e *DeviceError) Is(target error) bool { return target == ErrDevice }

// DecodeError reports a frame that could not be interpreted.
type DecodeError struct {
	Code   Code
	Reason error // ErrUnknownCode or ErrShortFrame
	Detail string
}

func (e *DecodeError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%v: %v (code 0x%02X, %s)", ErrDecode, e.Reason, byte(e.Code), e.Detail)
	}
	return fmt.Sprintf("%v: %v (code 0x%02X)", ErrDecode, e.Reason, byte(e.Code))
}

// Is matches ErrDecode.
func (e *DecodeError) Is(target error) bool { return target == ErrDecode }

func (e *DecodeError) Unwrap() error { return e.Reason }
