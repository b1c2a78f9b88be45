package protocol

import "fmt"

// Code is a device->host status byte.
type Code byte

// Status codes returned by the display.
const (
	CodeOK             Code = 0x01
	CodeTouchEvent     Code = 0x65
	CodeCurrentPage    Code = 0x66
	CodeTouchXY        Code = 0x67
	CodeTouchSleep     Code = 0x68
	CodeStringValue    Code = 0x70
	CodeNumericValue   Code = 0x71
	CodeSleepEnter     Code = 0x86
	CodeSleepExit      Code = 0x87
	CodeStartup        Code = 0x88
	CodeSDUpgrade      Code = 0x89
	CodeTransparentEnd Code = 0xFD
	CodeTransparentRdy Code = 0xFE

	// Any subscribes to every code. It shares the byte space with real codes;
	// the demultiplexer never produces 0xFF as a status byte.
	Any Code = 0xFF
)

var descriptions = map[Code]string{
	CodeOK:             "Successful execution of instruction",
	CodeTouchEvent:     "Touch event return data",
	CodeCurrentPage:    "Current page ID number returns",
	CodeTouchXY:        "Touch coordinate data returns",
	CodeTouchSleep:     "Touch Event in sleep mode",
	CodeStringValue:    "String variable data returns",
	CodeNumericValue:   "Numeric variable data returns",
	CodeSleepEnter:     "Device automatically enters into sleep mode",
	CodeSleepExit:      "Device automatically wake up",
	CodeStartup:        "System successful start up",
	CodeSDUpgrade:      "Start SD card upgrade",
	CodeTransparentEnd: "Data transparent transmit finished",
	CodeTransparentRdy: "Data transparent transmit ready",
}

// Device error codes.
const (
	ErrCodeInvalidInstruction Code = 0x00
	ErrCodeInvalidComponent   Code = 0x02
	ErrCodeInvalidPage        Code = 0x03
	ErrCodeInvalidPicture     Code = 0x04
	ErrCodeInvalidFont        Code = 0x05
	ErrCodeInvalidBaud        Code = 0x11
	ErrCodeInvalidCurve       Code = 0x12
	ErrCodeInvalidVariable    Code = 0x1A
	ErrCodeInvalidOperation   Code = 0x1B
	ErrCodeAssignFailed       Code = 0x1C
	ErrCodeEEPROMFailed       Code = 0x1D
	ErrCodeParamCount         Code = 0x1E
	ErrCodeIOFailed           Code = 0x1F
	ErrCodeEscapeChar         Code = 0x20
	ErrCodeVariableTooLong    Code = 0x23
)

var deviceErrors = map[Code]string{
	ErrCodeInvalidInstruction: "Invalid instruction",
	ErrCodeInvalidComponent:   "Component ID invalid",
	ErrCodeInvalidPage:        "Page ID invalid",
	ErrCodeInvalidPicture:     "Picture ID invalid",
	ErrCodeInvalidFont:        "Font ID invalid",
	ErrCodeInvalidBaud:        "Baud rate setting invalid",
	ErrCodeInvalidCurve:       "Curve control ID number or channel number is invalid",
	ErrCodeInvalidVariable:    "Variable name invalid",
	ErrCodeInvalidOperation:   "Variable operation invalid",
	ErrCodeAssignFailed:       "Failed to assign",
	ErrCodeEEPROMFailed:       "Operate EEPROM failed",
	ErrCodeParamCount:         "Parameter quantity invalid",
	ErrCodeIOFailed:           "IO operation failed",
	ErrCodeEscapeChar:         "Undefined escape characters",
	ErrCodeVariableTooLong:    "Too long variable name",
}

// errorCodes is deviceErrors' key set in ascending order.
var errorCodes = []Code{
	ErrCodeInvalidInstruction, ErrCodeInvalidComponent, ErrCodeInvalidPage,
	ErrCodeInvalidPicture, ErrCodeInvalidFont, ErrCodeInvalidBaud,
	ErrCodeInvalidCurve, ErrCodeInvalidVariable, ErrCodeInvalidOperation,
	ErrCodeAssignFailed, ErrCodeEEPROMFailed, ErrCodeParamCount,
	ErrCodeIOFailed, ErrCodeEscapeChar, ErrCodeVariableTooLong,
}

// ErrorCodes returns every device error code. The slice is a copy.
func ErrorCodes() []Code {
	out := make([]Code, len(errorCodes))
	copy(out, errorCodes)
	return out
}

// IsDeviceError reports whether c is in the device error table.
func IsDeviceError(c Code) bool { _, ok := deviceErrors[c]; return ok }

// Known reports whether c is a decodable, non-error status code.
func Known(c Code) bool { _, ok := descriptions[c]; return ok }

func (c Code) String() string {
	if d, ok := descriptions[c]; ok {
		return d
	}
	if t, ok := deviceErrors[c]; ok {
		return t
	}
	if c == Any {
		return "Any"
	}
	return fmt.Sprintf("Unknown code 0x%02X", byte(c))
}

// Hex formats c as 0xNN (stable metric label).
func (c Code) Hex() string { return fmt.Sprintf("0x%02x", byte(c)) }
