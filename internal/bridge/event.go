package bridge

import (
	"encoding/json"
	"errors"

	"github.com/kstaniek/go-nextion-bridge/internal/hub"
	"github.com/kstaniek/go-nextion-bridge/internal/protocol"
)

// Event is the JSON shape of one line written to TCP clients.
type Event struct {
	Code      byte   `json:"code"`
	Kind      string `json:"kind"`
	Value     any    `json:"value,omitempty"`
	Page      *int   `json:"page,omitempty"`
	Component *int   `json:"component,omitempty"`
	X         *int16 `json:"x,omitempty"`
	Y         *int16 `json:"y,omitempty"`
	Action    string `json:"action,omitempty"`
	Error     string `json:"error,omitempty"`
}

var kinds = map[protocol.Code]string{
	protocol.CodeOK:             "ok",
	protocol.CodeTouchEvent:     "touch",
	protocol.CodeCurrentPage:    "page",
	protocol.CodeTouchXY:        "touch_xy",
	protocol.CodeTouchSleep:     "touch_sleep",
	protocol.CodeStringValue:    "string",
	protocol.CodeNumericValue:   "number",
	protocol.CodeSleepEnter:     "sleep",
	protocol.CodeSleepExit:      "wake",
	protocol.CodeStartup:        "startup",
	protocol.CodeSDUpgrade:      "sd_upgrade",
	protocol.CodeTransparentEnd: "transparent_end",
	protocol.CodeTransparentRdy: "transparent_ready",
}

// NewEvent converts a delivered message into its wire shape.
func NewEvent(msg protocol.Message, err error) Event {
	ev := Event{Code: byte(msg.Code), Kind: kinds[msg.Code]}
	if err != nil {
		ev.Error = err.Error()
		var de *protocol.DeviceError
		if errors.As(err, &de) {
			ev.Kind = "device_error"
			ev.Error = de.Text
		} else {
			ev.Kind = "decode_error"
		}
		return ev
	}
	switch v := msg.Value.(type) {
	case protocol.TouchEvent:
		page, comp := v.Page, v.Component
		ev.Page, ev.Component = &page, &comp
		ev.Action = v.Action.String()
	case protocol.TouchPoint:
		x, y := v.X, v.Y
		ev.X, ev.Y = &x, &y
		ev.Action = v.Action.String()
	case nil:
	default:
		ev.Value = v
	}
	return ev
}

// Encode renders one newline-terminated JSON event line.
func Encode(msg protocol.Message, err error) []byte {
	b, mErr := json.Marshal(NewEvent(msg, err))
	if mErr != nil {
		// every field is a plain value; fall back to the bare code
		b, _ = json.Marshal(Event{Code: byte(msg.Code), Kind: "decode_error", Error: mErr.Error()})
	}
	return append(b, '\n')
}

// Publisher returns a listener callback broadcasting every message to h.
func Publisher(h *hub.Hub) func(protocol.Message, error) {
	return func(msg protocol.Message, err error) {
		h.Broadcast(Encode(msg, err))
	}
}
