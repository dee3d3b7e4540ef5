// Package socket provides the secure socket abstraction: a transport
// connection paired with a TLS engine and a mutex.
//
// Every byte in and out passes through the engine; there is no
// plaintext path. The per-socket mutex serializes concurrent Send and
// Receive callers, which is coarse but necessary: the TLS session is
// not reentrant, and interleaved writes would corrupt the record
// stream.
//
// # Lifecycle
//
// A server socket:
//
//	s, _ := socket.Create(cfg)          // validates files, loads certs
//	s.Listen(":8470")
//	peer, _ := s.Accept(ctx)            // handshake per connection
//	defer peer.Close()
//
// A client socket:
//
//	s, _ := socket.Create(cfg)
//	s.Connect(ctx, "device.local:8470") // TCP connect + handshake
//	defer s.Close()
//
// Accepted sockets share the listener's TLS context read-only; the
// listener must outlive them, and closing an accepted socket never
// invalidates the listener.
//
// Close is best-effort and fixed-order: keep-alive, TLS shutdown,
// engine cleanup, transport close, listener close. Every step runs
// even if an earlier one failed, and the first error is reported.
//
// # Timeouts
//
// SetReadTimeout and SetWriteTimeout bound individual calls, playing
// the role of SO_RCVTIMEO/SO_SNDTIMEO. An expired timeout surfaces as
// engine.ErrWouldBlock, distinct from engine.ErrConnectionClosed.
package socket
