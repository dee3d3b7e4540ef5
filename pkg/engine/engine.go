package engine

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/xnet-project/xnet-go/pkg/config"
)

// HandshakeState tracks handshake progress explicitly instead of being
// inferred from nil checks on the session.
type HandshakeState uint8

const (
	// HandshakeNotStarted: no handshake has been attempted.
	HandshakeNotStarted HandshakeState = 0
	// HandshakeInProgress: a handshake is running.
	HandshakeInProgress HandshakeState = 1
	// HandshakeComplete: the session is established.
	HandshakeComplete HandshakeState = 2
	// HandshakeFailed: the last handshake attempt failed.
	HandshakeFailed HandshakeState = 3
)

// String returns the handshake state name.
func (s HandshakeState) String() string {
	switch s {
	case HandshakeNotStarted:
		return "NOT_STARTED"
	case HandshakeInProgress:
		return "IN_PROGRESS"
	case HandshakeComplete:
		return "COMPLETE"
	case HandshakeFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// Info describes the negotiated security parameters of a session.
type Info struct {
	// Version is the negotiated protocol version name.
	Version string

	// CipherSuite is the negotiated cipher suite name.
	CipherSuite string

	// Curve is the negotiated key exchange group name.
	Curve string
}

// Engine owns one cryptographic session tied to exactly one transport
// connection. The connection is borrowed: the engine performs protocol
// shutdown but never closes the socket itself, that is the owner's job.
//
// Engine is not safe for concurrent use; the socket layer serializes
// access with its own mutex.
type Engine struct {
	conn net.Conn // borrowed, not owned

	ctx       *Context
	ownership Ownership

	session *tls.Conn

	initialized bool
	connected   bool
	hs          HandshakeState

	// Negotiated parameters, captured at handshake completion so they
	// remain available after close.
	negVersion uint16
	negSuite   uint16
	negCurve   tls.CurveID
}

// New creates an engine from an endpoint configuration. The backend is
// initialized lazily, once per process. Certificate material is loaded
// immediately; on any failure nothing is retained.
func New(cfg *config.Config) (*Engine, error) {
	if err := Initialize(); err != nil {
		return nil, err
	}
	ctx, err := NewContext(cfg)
	if err != nil {
		return nil, err
	}
	return &Engine{
		ctx:         ctx,
		ownership:   OwnershipOwned,
		initialized: true,
	}, nil
}

// Initialized reports whether the engine has a usable context.
func (e *Engine) Initialized() bool { return e.initialized }

// Connected reports whether a handshake has completed and the session
// is usable.
func (e *Engine) Connected() bool { return e.connected }

// State returns the current handshake state.
func (e *Engine) State() HandshakeState { return e.hs }

// ContextOwnership returns the engine's context ownership tag.
func (e *Engine) ContextOwnership() Ownership { return e.ownership }

// Connect runs the client-side handshake over conn. The connection is
// borrowed for the lifetime of the session. ctx cancellation aborts the
// handshake.
func (e *Engine) Connect(ctx context.Context, conn net.Conn) error {
	if !e.initialized || e.ctx == nil {
		return ErrNotInitialized
	}
	if conn == nil {
		return fmt.Errorf("%w: nil connection", ErrInvalidParameter)
	}
	if e.connected {
		return fmt.Errorf("%w: already connected", ErrInvalidParameter)
	}
	if e.ctx.Role() != config.RoleClient {
		return fmt.Errorf("%w: engine is not configured as client", ErrInvalidParameter)
	}

	conf := e.ctx.conf
	if !conf.InsecureSkipVerify && conf.ServerName == "" {
		// Derive the expected peer name from the transport address so
		// verification works without explicit configuration. IP literals
		// verify against IP SANs.
		if host, _, err := net.SplitHostPort(conn.RemoteAddr().String()); err == nil {
			conf = conf.Clone()
			conf.ServerName = host
		}
	}

	session := tls.Client(newBridge(conn), conf)
	e.hs = HandshakeInProgress
	if err := session.HandshakeContext(ctx); err != nil {
		e.session = nil
		e.hs = HandshakeFailed
		return classifyHandshake(err)
	}

	e.conn = conn
	e.session = session
	e.connected = true
	e.hs = HandshakeComplete
	e.captureNegotiated()
	return nil
}

// AcceptFrom runs the server-side handshake for one newly accepted
// connection. The returned engine borrows the listening engine's
// context: it creates its own session from it but must never release
// it. The listener's context therefore has to outlive every engine
// accepted against it.
func AcceptFrom(ctx context.Context, listener *Engine, conn net.Conn) (*Engine, error) {
	if listener == nil {
		return nil, fmt.Errorf("%w: nil listener engine", ErrInvalidParameter)
	}
	if !listener.initialized || listener.ctx == nil {
		return nil, ErrNotInitialized
	}
	if listener.ctx.Role() != config.RoleServer {
		return nil, fmt.Errorf("%w: listener engine is not configured as server", ErrInvalidParameter)
	}
	if conn == nil {
		return nil, fmt.Errorf("%w: nil connection", ErrInvalidParameter)
	}

	e := &Engine{
		ctx:         listener.ctx,
		ownership:   OwnershipBorrowed,
		initialized: true,
	}

	session := tls.Server(newBridge(conn), listener.ctx.conf)
	e.hs = HandshakeInProgress
	if err := session.HandshakeContext(ctx); err != nil {
		// Only the per-connection session is released here; the
		// borrowed context stays untouched and the listener remains
		// usable for further accepts.
		e.session = nil
		e.hs = HandshakeFailed
		return nil, classifyHandshake(err)
	}

	e.conn = conn
	e.session = session
	e.connected = true
	e.hs = HandshakeComplete
	e.captureNegotiated()
	return e, nil
}

// Send writes p through the session. Returns the number of bytes
// consumed; on a non-blocking socket a deadline expiry surfaces as
// ErrWouldBlock.
func (e *Engine) Send(p []byte) (int, error) {
	if err := e.requireSession(); err != nil {
		return 0, err
	}
	n, err := e.session.Write(p)
	if err != nil {
		return n, classifyIO(err)
	}
	return n, nil
}

// Receive reads into p. A return of (0, nil) means no data is currently
// available (only possible for an empty buffer); an orderly peer
// shutdown surfaces as ErrConnectionClosed and a deadline expiry as
// ErrWouldBlock. The two are never conflated.
func (e *Engine) Receive(p []byte) (int, error) {
	if err := e.requireSession(); err != nil {
		return 0, err
	}
	n, err := e.session.Read(p)
	if err != nil {
		if err == io.EOF && n > 0 {
			// Deliver the final bytes; the next call reports the close.
			return n, nil
		}
		return n, classifyIO(err)
	}
	return n, nil
}

// Close performs protocol-level shutdown: it sends close-notify and
// releases the session. The borrowed transport connection is left open
// for the owner to close. Calling Close with no session is a no-op
// success so it composes with best-effort teardown chains.
func (e *Engine) Close() error {
	if e.session == nil {
		return nil
	}

	err := e.session.CloseWrite()
	e.session = nil
	e.connected = false

	if err != nil {
		classified := classifyIO(err)
		// A peer that is already gone is not a shutdown failure.
		if classified != nil && !isClosedResult(classified) {
			return classified
		}
	}
	return nil
}

// Cleanup releases everything the engine owns. The session is dropped
// if still present; the context is released only when owned. Safe to
// call after Close and safe to call repeatedly.
func (e *Engine) Cleanup() error {
	e.session = nil
	if e.ownership == OwnershipOwned {
		e.ctx = nil
	}
	// Borrowed contexts are only unreferenced, never released: they
	// belong to the listening engine.
	e.conn = nil
	e.initialized = false
	e.connected = false
	e.hs = HandshakeNotStarted
	return nil
}

// SecurityInfo returns the negotiated session parameters. Valid once a
// handshake has completed, including after close.
func (e *Engine) SecurityInfo() (Info, error) {
	if e.hs != HandshakeComplete {
		return Info{}, fmt.Errorf("%w: no completed handshake", ErrNotInitialized)
	}
	return Info{
		Version:     tls.VersionName(e.negVersion),
		CipherSuite: tls.CipherSuiteName(e.negSuite),
		Curve:       e.negCurve.String(),
	}, nil
}

// requireSession guards the data-path operations.
func (e *Engine) requireSession() error {
	if !e.initialized {
		return ErrNotInitialized
	}
	if e.session == nil || !e.connected {
		return fmt.Errorf("%w: no active session", ErrNotInitialized)
	}
	return nil
}

// captureNegotiated records the session parameters while the session
// exists.
func (e *Engine) captureNegotiated() {
	state := e.session.ConnectionState()
	e.negVersion = state.Version
	e.negSuite = state.CipherSuite
	e.negCurve = state.CurveID
}

func isClosedResult(err error) bool {
	return errors.Is(err, ErrConnectionClosed) || errors.Is(err, ErrWouldBlock)
}
