package log

import "time"

// Event represents a protocol log event captured at any layer.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// ConnectionID uniquely identifies the connection (UUID).
	ConnectionID string `cbor:"2,keyasint"`

	// Direction indicates message flow.
	Direction Direction `cbor:"3,keyasint"`

	// Layer where the event was captured.
	Layer Layer `cbor:"4,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"5,keyasint"`

	// RemoteAddr is the peer address (IP:port).
	RemoteAddr string `cbor:"6,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	StateChange *StateChangeEvent `cbor:"7,keyasint,omitempty"`
	Control     *ControlEvent     `cbor:"8,keyasint,omitempty"`
	Error       *ErrorEvent       `cbor:"9,keyasint,omitempty"`
	Data        *DataEvent        `cbor:"10,keyasint,omitempty"`
}

// Direction indicates the direction of message flow.
type Direction uint8

const (
	// DirectionIn indicates an incoming message.
	DirectionIn Direction = 0
	// DirectionOut indicates an outgoing message.
	DirectionOut Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Layer indicates which layer captured the event.
type Layer uint8

const (
	// LayerSocket is the secure socket layer.
	LayerSocket Layer = 0
	// LayerEngine is the TLS engine layer.
	LayerEngine Layer = 1
	// LayerKeepAlive is the liveness monitoring layer.
	LayerKeepAlive Layer = 2
)

// String returns the layer name.
func (l Layer) String() string {
	switch l {
	case LayerSocket:
		return "SOCKET"
	case LayerEngine:
		return "ENGINE"
	case LayerKeepAlive:
		return "KEEPALIVE"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryState indicates a lifecycle state change.
	CategoryState Category = 0
	// CategoryControl indicates a probe or close control message.
	CategoryControl Category = 1
	// CategoryData indicates application data transfer.
	CategoryData Category = 2
	// CategoryError indicates a failure.
	CategoryError Category = 3
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryState:
		return "STATE"
	case CategoryControl:
		return "CONTROL"
	case CategoryData:
		return "DATA"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// StateChangeEvent records a lifecycle transition.
type StateChangeEvent struct {
	// Entity names what changed state (socket, engine, keepalive).
	Entity string `cbor:"1,keyasint"`

	// OldState is the previous state name (empty on creation).
	OldState string `cbor:"2,keyasint,omitempty"`

	// NewState is the new state name.
	NewState string `cbor:"3,keyasint"`

	// Reason optionally explains the transition.
	Reason string `cbor:"4,keyasint,omitempty"`
}

// ControlEvent records a control message.
type ControlEvent struct {
	// Type is the control message type name.
	Type string `cbor:"1,keyasint"`

	// Sequence is the probe sequence number.
	Sequence uint32 `cbor:"2,keyasint,omitempty"`
}

// ErrorEvent records a failure. Retryable would-block conditions are
// never reported here; they are expected steady-state signals.
type ErrorEvent struct {
	// Message is the error text.
	Message string `cbor:"1,keyasint"`
}

// DataEvent records an application data transfer.
type DataEvent struct {
	// Size is the number of payload bytes.
	Size int `cbor:"1,keyasint"`
}
