// Package engine implements the TLS session engine of the secure
// networking layer.
//
// An Engine owns exactly one cryptographic session, tied to one
// borrowed transport connection. The TLS backend never touches the
// socket directly: every read and write passes through an I/O bridge
// that classifies raw socket errors into sentinel results before the
// backend sees them.
//
// # Context ownership
//
// A Context is built once per endpoint from its configuration and is
// immutable afterwards. Client and standalone engines own their
// context. An engine created by AcceptFrom borrows the listening
// engine's context to create its own session and must never release
// it; the Ownership tag encodes this explicitly:
//
//	listener (OwnershipOwned)
//	   ├── accepted engine 1 (OwnershipBorrowed)
//	   ├── accepted engine 2 (OwnershipBorrowed)
//	   └── ...
//
// The listener's context has to outlive every engine accepted against
// it. Cleanup on an accepted engine releases only the per-connection
// session.
//
// # Handshake model
//
// Connect and AcceptFrom are synchronous: they block until the
// handshake completes, fails, or the passed context is cancelled. The
// HandshakeState enum tracks progress explicitly; there is no partial
// handshake resumption.
//
// # Error taxonomy
//
// Every returned error wraps one of the package sentinels
// (ErrInvalidParameter, ErrNotInitialized, ErrCertificate,
// ErrHandshake, ErrWouldBlock, ErrConnectionClosed,
// ErrAuthenticationFailed, ErrGeneral). ErrWouldBlock and
// ErrConnectionClosed are never conflated: the first is a retryable
// "no data yet", the second a terminal peer shutdown.
package engine
