// Package keepalive provides background liveness probing for secure
// sockets.
//
// A prober runs one goroutine polling at roughly 1 Hz and walks a
// four-state machine:
//
//	DISABLED ──Start──▶ IDLE
//	IDLE   ──interval elapsed, probe sent──▶ ACTIVE
//	ACTIVE ──ack received──▶ IDLE
//	ACTIVE ──timeout, retries left──▶ ACTIVE (resend)
//	ACTIVE ──retries exhausted──▶ FAILED
//	FAILED ──ack received──▶ IDLE (recovered)
//
// Probes are CBOR control messages (pkg/wire) carrying a sequence
// number; the peer answers with a probe acknowledgement echoing it.
// The prober is independent of the TLS engine: it only needs a send
// callback and an acknowledgement feed.
//
// The prober never holds its own lock while sending: the send callback
// takes the socket's mutex, and holding both would risk lock-order
// inversion with other socket users.
package keepalive
