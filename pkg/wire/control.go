package wire

import (
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// CBOR map keys for control messages. Integer keys for compactness.
const (
	KeyControlType = 1
	KeySequence    = 2
)

// ControlType identifies a control message.
type ControlType uint8

const (
	// ControlProbe is a keep-alive liveness probe.
	ControlProbe ControlType = 1

	// ControlProbeAck answers a probe, echoing its sequence number.
	ControlProbeAck ControlType = 2

	// ControlClose announces an orderly application-level close.
	ControlClose ControlType = 3
)

// String returns the control type name.
func (t ControlType) String() string {
	switch t {
	case ControlProbe:
		return "PROBE"
	case ControlProbeAck:
		return "PROBE_ACK"
	case ControlClose:
		return "CLOSE"
	default:
		return "UNKNOWN"
	}
}

// IsValid reports whether the control type is known.
func (t ControlType) IsValid() bool {
	return t >= ControlProbe && t <= ControlClose
}

// Control message errors.
var (
	ErrNotControl     = errors.New("not a control message")
	ErrInvalidControl = errors.New("invalid control message")
)

// ControlMessage is a liveness or close notification.
//
// CBOR encoding:
//
//	{
//	  1: type,      // uint8: 1=Probe, 2=ProbeAck, 3=Close
//	  2: sequence   // uint32, probe round-trip matching
//	}
type ControlMessage struct {
	Type     ControlType `cbor:"1,keyasint"`
	Sequence uint32      `cbor:"2,keyasint,omitempty"`
}

// EncodeControl encodes a control message.
func EncodeControl(msg *ControlMessage) ([]byte, error) {
	if !msg.Type.IsValid() {
		return nil, fmt.Errorf("%w: type %d", ErrInvalidControl, msg.Type)
	}
	return Marshal(msg)
}

// DecodeControl decodes a control message, validating its type.
func DecodeControl(data []byte) (*ControlMessage, error) {
	var msg ControlMessage
	if err := Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotControl, err)
	}
	if !msg.Type.IsValid() {
		return nil, fmt.Errorf("%w: type %d", ErrInvalidControl, msg.Type)
	}
	return &msg, nil
}

// PeekControlType inspects data without fully decoding it and returns
// the control type if data is a control message. Application payloads
// that happen to be CBOR maps with other keys are rejected here, so
// they are never consumed as control traffic.
func PeekControlType(data []byte) (ControlType, error) {
	var raw map[uint64]cbor.RawMessage
	if err := Unmarshal(data, &raw); err != nil {
		return 0, ErrNotControl
	}
	// Control messages carry only the type and sequence keys.
	if len(raw) > 2 {
		return 0, ErrNotControl
	}
	typeRaw, ok := raw[KeyControlType]
	if !ok {
		return 0, ErrNotControl
	}
	var t uint8
	if err := Unmarshal(typeRaw, &t); err != nil || !ControlType(t).IsValid() {
		return 0, ErrNotControl
	}
	return ControlType(t), nil
}
