// Package wire defines the CBOR wire format for control traffic on a
// secure socket.
//
// Control messages (liveness probes, probe acknowledgements, close
// notifications) use CBOR (RFC 8949) with integer keys for compact
// encoding. Application payloads are opaque to this package;
// PeekControlType lets receivers separate the two without consuming
// application bytes as control traffic.
package wire
