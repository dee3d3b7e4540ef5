package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestControlRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		msg  ControlMessage
	}{
		{"probe", ControlMessage{Type: ControlProbe, Sequence: 1}},
		{"probe high seq", ControlMessage{Type: ControlProbe, Sequence: 0xffffffff}},
		{"probe ack", ControlMessage{Type: ControlProbeAck, Sequence: 42}},
		{"close", ControlMessage{Type: ControlClose}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := EncodeControl(&tt.msg)
			require.NoError(t, err)

			decoded, err := DecodeControl(data)
			require.NoError(t, err)
			assert.Equal(t, tt.msg, *decoded)
		})
	}
}

func TestEncodeControlRejectsInvalidType(t *testing.T) {
	_, err := EncodeControl(&ControlMessage{Type: 0})
	assert.ErrorIs(t, err, ErrInvalidControl)

	_, err = EncodeControl(&ControlMessage{Type: 99})
	assert.ErrorIs(t, err, ErrInvalidControl)
}

func TestDecodeControlRejectsGarbage(t *testing.T) {
	_, err := DecodeControl([]byte("not cbor at all"))
	assert.Error(t, err)

	// Valid CBOR but an invalid type value.
	data, err := Marshal(map[int]int{KeyControlType: 99})
	require.NoError(t, err)
	_, err = DecodeControl(data)
	assert.ErrorIs(t, err, ErrInvalidControl)
}

func TestPeekControlType(t *testing.T) {
	probe, err := EncodeControl(&ControlMessage{Type: ControlProbe, Sequence: 7})
	require.NoError(t, err)

	ctype, err := PeekControlType(probe)
	require.NoError(t, err)
	assert.Equal(t, ControlProbe, ctype)
}

// Application payloads must never be consumed as control traffic, even
// when they happen to be valid CBOR.
func TestPeekControlTypeRejectsAppPayloads(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"plain text", []byte("GET / HTTP/1.0\r\n\r\n")},
		{"empty", nil},
		{"cbor int", mustMarshal(t, 42)},
		{"cbor array", mustMarshal(t, []int{1, 2, 3})},
		{"cbor map without type key", mustMarshal(t, map[int]int{5: 1})},
		{"cbor map with extra keys", mustMarshal(t, map[int]int{1: 1, 2: 2, 3: 3})},
		{"cbor map with invalid type", mustMarshal(t, map[int]int{1: 200})},
		{"cbor map with string type", mustMarshal(t, map[int]string{1: "probe"})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := PeekControlType(tt.data)
			assert.ErrorIs(t, err, ErrNotControl)
		})
	}
}

func TestControlTypeString(t *testing.T) {
	assert.Equal(t, "PROBE", ControlProbe.String())
	assert.Equal(t, "PROBE_ACK", ControlProbeAck.String())
	assert.Equal(t, "CLOSE", ControlClose.String())
	assert.Equal(t, "UNKNOWN", ControlType(77).String())
}

// Deterministic encoding: the same message always produces the same
// bytes, so probe/ack matching can rely on byte comparison in logs.
func TestEncodingDeterministic(t *testing.T) {
	msg := &ControlMessage{Type: ControlProbe, Sequence: 123}
	a, err := EncodeControl(msg)
	require.NoError(t, err)
	b, err := EncodeControl(msg)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func mustMarshal(t *testing.T, v any) []byte {
	t.Helper()
	data, err := Marshal(v)
	require.NoError(t, err)
	return data
}
