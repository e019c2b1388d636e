package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrEmptyFrame     = errors.New("empty frame")
	ErrMissingType    = errors.New("missing message type")
	ErrUnknownType    = errors.New("unknown message type")
	ErrMalformedFrame = errors.New("malformed frame")
)

type envelope struct {
	Type string `json:"type"`
}

// Inbound is a decoded client frame. Payload holds one of the *Request types.
type Inbound struct {
	Type    string
	Payload any
}

// Decode peeks the type discriminator and unmarshals the frame into the
// request type registered for it.
func Decode(data []byte) (Inbound, error) {
	if len(data) == 0 {
		return Inbound{}, ErrEmptyFrame
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Inbound{}, errors.Join(ErrMalformedFrame, err)
	}
	if env.Type == "" {
		return Inbound{}, ErrMissingType
	}

	var payload any
	switch env.Type {
	case TypeCreate:
		payload = &CreateRequest{}
	case TypeJoin:
		payload = &JoinRequest{}
	case TypeSync:
		payload = &SyncRequest{}
	case TypeChat:
		payload = &ChatRequest{}
	case TypeSetVideo:
		payload = &SetVideoRequest{}
	default:
		return Inbound{Type: env.Type}, fmt.Errorf("%w: %q", ErrUnknownType, env.Type)
	}

	if err := json.Unmarshal(data, payload); err != nil {
		return Inbound{Type: env.Type}, errors.Join(ErrMalformedFrame, err)
	}
	return Inbound{Type: env.Type, Payload: payload}, nil
}

// Encode serializes an outbound message once so it can be fanned out as-is.
func Encode(msg any) ([]byte, error) {
	return json.Marshal(msg)
}
