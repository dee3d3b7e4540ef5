package socket

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/xnet-project/xnet-go/pkg/cert"
	"github.com/xnet-project/xnet-go/pkg/config"
	"github.com/xnet-project/xnet-go/pkg/engine"
	"github.com/xnet-project/xnet-go/pkg/keepalive"
	"github.com/xnet-project/xnet-go/pkg/log"
)

// DefaultPort is the default port for secure endpoints.
const DefaultPort = 8470

// Socket errors.
var (
	ErrClosed           = errors.New("socket closed")
	ErrNotConnected     = errors.New("not connected")
	ErrAlreadyConnected = errors.New("already connected")
	ErrNotListening     = errors.New("socket is not listening")
	ErrWrongRole        = errors.New("operation not valid for configured role")
)

// Socket pairs a transport connection with a TLS engine and a mutex.
// Every byte in and out passes through the engine; the mutex serializes
// concurrent Send/Receive callers so the TLS record stream is never
// interleaved. Lifecycle operations (Create, Listen, Connect, Close)
// are expected to be driven from a single goroutine.
type Socket struct {
	mu sync.Mutex

	cfg    *config.Config
	id     string
	logger log.Logger

	listener net.Listener
	conn     net.Conn
	eng      *engine.Engine

	connected bool
	closed    bool

	// Read/write timeouts applied per call, the socket-option way of
	// expressing non-blocking behavior. Zero means block.
	readTimeout  time.Duration
	writeTimeout time.Duration

	ka *keepalive.KeepAlive
}

// Option configures a Socket at creation.
type Option func(*Socket)

// WithLogger attaches a protocol event logger.
func WithLogger(l log.Logger) Option {
	return func(s *Socket) { s.logger = l }
}

// Create builds a secure socket from a validated configuration. All
// certificate, key and CA files are checked for existence and
// readability before any other resource is allocated, so a
// misconfigured endpoint fails here and not mid-connection. On any
// failure nothing is retained.
func Create(cfg *config.Config, opts ...Option) (*Socket, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: nil config", engine.ErrInvalidParameter)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", engine.ErrInvalidParameter, err)
	}

	for _, path := range []string{cfg.CertFile, cfg.KeyFile, cfg.CAFile} {
		if path == "" {
			continue
		}
		if err := cert.CheckFileReadable(path); err != nil {
			return nil, fmt.Errorf("%w: %v", engine.ErrCertificate, err)
		}
	}

	eng, err := engine.New(cfg)
	if err != nil {
		return nil, err
	}

	s := &Socket{
		cfg:    cfg,
		id:     uuid.New().String(),
		logger: log.NoopLogger{},
		eng:    eng,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.logState("", "CREATED", "")
	return s, nil
}

// ID returns the socket's unique identifier.
func (s *Socket) ID() string { return s.id }

// Role returns the configured handshake role.
func (s *Socket) Role() config.Role { return s.cfg.Role }

// Engine exposes the socket's TLS engine for inspection.
func (s *Socket) Engine() *engine.Engine { return s.eng }

// Listen binds the socket to addr and starts listening. Server role
// only. The engine's context is frozen from this point on: every
// accepted connection shares it read-only.
func (s *Socket) Listen(addr string) error {
	if s.cfg.Role != config.RoleServer {
		return fmt.Errorf("%w: listen requires server role", ErrWrongRole)
	}
	if s.closed {
		return ErrClosed
	}
	if s.listener != nil {
		return fmt.Errorf("%w: already listening", engine.ErrInvalidParameter)
	}

	l, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("%w: listen failed: %v", engine.ErrGeneral, err)
	}
	s.listener = l
	s.logState("CREATED", "LISTENING", "")
	return nil
}

// Addr returns the listening address, or nil when not listening.
func (s *Socket) Addr() net.Addr {
	if s.listener != nil {
		return s.listener.Addr()
	}
	return nil
}

// Accept waits for one raw connection and completes the server-side
// handshake for it, returning a new connected Socket. The accepted
// socket's engine borrows this listener's context; a handshake failure
// tears down only the per-connection resources and the listener stays
// usable for the next Accept.
func (s *Socket) Accept(ctx context.Context) (*Socket, error) {
	if s.listener == nil {
		return nil, ErrNotListening
	}
	if s.closed {
		return nil, ErrClosed
	}

	if deadline, ok := ctx.Deadline(); ok {
		type deadliner interface{ SetDeadline(time.Time) error }
		if d, ok := s.listener.(deadliner); ok {
			d.SetDeadline(deadline)
			defer d.SetDeadline(time.Time{})
		}
	}

	raw, err := s.listener.Accept()
	if err != nil {
		return nil, fmt.Errorf("%w: accept failed: %v", engine.ErrGeneral, err)
	}

	eng, err := engine.AcceptFrom(ctx, s.eng, raw)
	if err != nil {
		raw.Close()
		s.logError(err.Error())
		return nil, err
	}

	peer := &Socket{
		cfg:       s.cfg,
		id:        uuid.New().String(),
		logger:    s.logger,
		conn:      raw,
		eng:       eng,
		connected: true,
	}
	peer.logState("", "CONNECTED", "")
	return peer, nil
}

// Connect establishes the TCP connection and runs the client-side
// handshake. A TLS failure rolls the socket back to disconnected even
// though the TCP connect succeeded: transport success without a
// completed handshake is not a usable connection.
func (s *Socket) Connect(ctx context.Context, addr string) error {
	if s.cfg.Role != config.RoleClient {
		return fmt.Errorf("%w: connect requires client role", ErrWrongRole)
	}
	if s.closed {
		return ErrClosed
	}
	if s.connected {
		return ErrAlreadyConnected
	}

	dialer := &net.Dialer{}
	raw, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("%w: dial failed: %v", engine.ErrGeneral, err)
	}

	s.conn = raw
	s.connected = true

	if err := s.eng.Connect(ctx, raw); err != nil {
		raw.Close()
		s.conn = nil
		s.connected = false
		s.logError(err.Error())
		return err
	}

	s.logState("CREATED", "CONNECTED", "")
	return nil
}

// Send writes p through the TLS engine. The socket mutex is held for
// the whole call: the TLS session is not reentrant, and interleaved
// writes would corrupt the record stream.
func (s *Socket) Send(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrClosed
	}
	if !s.connected || s.eng == nil {
		return 0, ErrNotConnected
	}

	if s.writeTimeout > 0 {
		s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
		defer s.conn.SetWriteDeadline(time.Time{})
	}

	n, err := s.eng.Send(p)
	if err != nil {
		// Would-block is an expected steady-state signal, not a failure.
		if !errors.Is(err, engine.ErrWouldBlock) {
			s.logError(err.Error())
		}
		return n, err
	}

	s.logData(log.DirectionOut, n)
	return n, nil
}

// Receive reads into p through the TLS engine, holding the socket
// mutex. An orderly peer shutdown returns ErrConnectionClosed; an
// expired read timeout returns ErrWouldBlock.
func (s *Socket) Receive(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrClosed
	}
	if !s.connected || s.eng == nil {
		return 0, ErrNotConnected
	}

	if s.readTimeout > 0 {
		s.conn.SetReadDeadline(time.Now().Add(s.readTimeout))
		defer s.conn.SetReadDeadline(time.Time{})
	}

	n, err := s.eng.Receive(p)
	if err != nil {
		if !errors.Is(err, engine.ErrWouldBlock) {
			s.logError(err.Error())
		}
		return n, err
	}

	s.logData(log.DirectionIn, n)
	return n, nil
}

// SetReadTimeout bounds each Receive call, the SO_RCVTIMEO equivalent.
// Zero blocks indefinitely.
func (s *Socket) SetReadTimeout(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readTimeout = d
}

// SetWriteTimeout bounds each Send call, the SO_SNDTIMEO equivalent.
// Zero blocks indefinitely.
func (s *Socket) SetWriteTimeout(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writeTimeout = d
}

// IsConnected reports whether a handshake has completed and the socket
// is usable.
func (s *Socket) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected && !s.closed
}

// SecurityInfo returns the negotiated TLS parameters.
func (s *Socket) SecurityInfo() (engine.Info, error) {
	return s.eng.SecurityInfo()
}

// LocalAddr returns the local transport address.
func (s *Socket) LocalAddr() net.Addr {
	if s.conn != nil {
		return s.conn.LocalAddr()
	}
	return nil
}

// RemoteAddr returns the peer transport address.
func (s *Socket) RemoteAddr() net.Addr {
	if s.conn != nil {
		return s.conn.RemoteAddr()
	}
	return nil
}

// Close tears the socket down in fixed order: keep-alive, protocol
// shutdown, engine cleanup, transport close, listener close. Each step
// runs even if an earlier one failed; the first error is reported.
// Idempotent.
func (s *Socket) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	var firstErr error
	record := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if s.ka != nil {
		s.ka.Stop()
		s.ka = nil
	}
	if s.eng != nil {
		record(s.eng.Close())
		record(s.eng.Cleanup())
	}
	if s.conn != nil {
		record(s.conn.Close())
		s.conn = nil
	}
	if s.listener != nil {
		record(s.listener.Close())
		s.listener = nil
	}

	wasConnected := s.connected
	s.connected = false
	if wasConnected {
		s.logState("CONNECTED", "DISCONNECTED", "")
	}

	return firstErr
}

func (s *Socket) logState(oldState, newState, reason string) {
	s.logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: s.id,
		Layer:        log.LayerSocket,
		Category:     log.CategoryState,
		RemoteAddr:   s.remoteAddrString(),
		StateChange: &log.StateChangeEvent{
			Entity:   "socket",
			OldState: oldState,
			NewState: newState,
			Reason:   reason,
		},
	})
}

func (s *Socket) logError(msg string) {
	s.logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: s.id,
		Layer:        log.LayerSocket,
		Category:     log.CategoryError,
		RemoteAddr:   s.remoteAddrString(),
		Error:        &log.ErrorEvent{Message: msg},
	})
}

func (s *Socket) logData(dir log.Direction, size int) {
	s.logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: s.id,
		Direction:    dir,
		Layer:        log.LayerSocket,
		Category:     log.CategoryData,
		RemoteAddr:   s.remoteAddrString(),
		Data:         &log.DataEvent{Size: size},
	})
}

func (s *Socket) remoteAddrString() string {
	if s.conn != nil {
		return s.conn.RemoteAddr().String()
	}
	return ""
}
