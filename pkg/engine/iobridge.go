package engine

import (
	"net"
	"time"
)

// bridgeConn is the I/O indirection between the TLS backend and the raw
// socket. The backend never touches the socket directly: every read and
// write passes through here, where raw errors are annotated with their
// sentinel classification before the backend sees them.
//
// The annotation preserves the net.Error contract so the backend's own
// timeout handling keeps working.
type bridgeConn struct {
	raw net.Conn
}

func newBridge(conn net.Conn) *bridgeConn {
	return &bridgeConn{raw: conn}
}

// Read reads from the raw socket, classifying failures.
func (b *bridgeConn) Read(p []byte) (int, error) {
	n, err := b.raw.Read(p)
	if err != nil {
		return n, &ioError{kind: classifyRaw(err), cause: err}
	}
	return n, nil
}

// Write writes to the raw socket, classifying failures.
func (b *bridgeConn) Write(p []byte) (int, error) {
	n, err := b.raw.Write(p)
	if err != nil {
		return n, &ioError{kind: classifyRaw(err), cause: err}
	}
	return n, nil
}

func (b *bridgeConn) Close() error                       { return b.raw.Close() }
func (b *bridgeConn) LocalAddr() net.Addr                { return b.raw.LocalAddr() }
func (b *bridgeConn) RemoteAddr() net.Addr               { return b.raw.RemoteAddr() }
func (b *bridgeConn) SetDeadline(t time.Time) error      { return b.raw.SetDeadline(t) }
func (b *bridgeConn) SetReadDeadline(t time.Time) error  { return b.raw.SetReadDeadline(t) }
func (b *bridgeConn) SetWriteDeadline(t time.Time) error { return b.raw.SetWriteDeadline(t) }

var _ net.Conn = (*bridgeConn)(nil)

// ioError carries the sentinel classification of a raw socket error
// through the TLS backend without losing the original cause.
type ioError struct {
	kind  rawResult
	cause error
}

func (e *ioError) Error() string { return e.cause.Error() }
func (e *ioError) Unwrap() error { return e.cause }

// Timeout reports whether the underlying condition was a deadline
// expiry, as required by the net.Error contract.
func (e *ioError) Timeout() bool {
	return e.kind == rawTimeout
}

// Temporary reports whether a retry may succeed.
func (e *ioError) Temporary() bool {
	return e.kind == rawWantRetry || e.kind == rawTimeout
}

var _ net.Error = (*ioError)(nil)
