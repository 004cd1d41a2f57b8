package events

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"

	"github.com/fathima-sithara/chat-hub/internal/apperr"
)

var codec = jsoniter.ConfigCompatibleWithStandardLibrary

// Envelope is the wire frame in both directions.
type Envelope struct {
	Event string              `json:"event"`
	Data  jsoniter.RawMessage `json:"data,omitempty"`
}

type outbound struct {
	Event string  `json:"event"`
	Data  Payload `json:"data"`
}

// Encode renders p as a complete frame.
func Encode(p Payload) ([]byte, error) {
	return codec.Marshal(outbound{Event: p.EventName(), Data: p})
}

// Decode reads the envelope of an inbound frame without touching its data.
func Decode(frame []byte) (Envelope, error) {
	var env Envelope
	if err := codec.Unmarshal(frame, &env); err != nil {
		return env, apperr.Invalid("malformed frame")
	}
	if env.Event == "" {
		return env, apperr.Invalid("frame has no event name")
	}
	return env, nil
}

// Bind decodes env.Data into v and validates it.
func Bind(env Envelope, v any) error {
	if len(env.Data) == 0 {
		return apperr.Invalid(fmt.Sprintf("%s: missing data", env.Event))
	}
	if err := codec.Unmarshal(env.Data, v); err != nil {
		return apperr.Invalid(fmt.Sprintf("%s: malformed data", env.Event))
	}
	return Validate(v)
}
