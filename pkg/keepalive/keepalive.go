package keepalive

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/xnet-project/xnet-go/pkg/wire"
)

// Keep-alive constants.
const (
	// DefaultInterval is the default idle time before a probe is sent.
	DefaultInterval = 30 * time.Second

	// DefaultTimeout is the default wait for a probe acknowledgement.
	DefaultTimeout = 5 * time.Second

	// DefaultMaxRetries is the default number of resends before the
	// connection is considered dead.
	DefaultMaxRetries = 3

	// pollInterval is the cadence of the monitoring loop. Decisions are
	// made on each poll, so interval and timeout resolve at this
	// granularity.
	pollInterval = 1 * time.Second
)

// State is the keep-alive state machine.
type State uint8

const (
	// StateDisabled: the prober is not running.
	StateDisabled State = 0

	// StateIdle: connection presumed alive, no probe outstanding.
	StateIdle State = 1

	// StateActive: a probe has been sent, awaiting acknowledgement.
	StateActive State = 2

	// StateFailed: retries exhausted, connection considered dead. A
	// late acknowledgement recovers back to idle.
	StateFailed State = 3
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateDisabled:
		return "DISABLED"
	case StateIdle:
		return "IDLE"
	case StateActive:
		return "ACTIVE"
	case StateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// Config configures keep-alive behavior.
type Config struct {
	// Interval is the idle time before a probe is sent.
	Interval time.Duration

	// Timeout is the wait for an acknowledgement before resending.
	Timeout time.Duration

	// MaxRetries is the number of resends before giving up.
	MaxRetries int
}

// DefaultConfig returns the default keep-alive configuration.
func DefaultConfig() Config {
	return Config{
		Interval:   DefaultInterval,
		Timeout:    DefaultTimeout,
		MaxRetries: DefaultMaxRetries,
	}
}

// DetectionDelay is the maximum time before a dead connection is
// detected with this configuration.
func (c Config) DetectionDelay() time.Duration {
	return c.Interval + c.Timeout*time.Duration(c.MaxRetries)
}

// Stats is a snapshot of the prober state.
type Stats struct {
	State        State
	LastSent     time.Time
	LastReceived time.Time
	Retries      int
	CurrentSeq   uint32
}

// KeepAlive attaches a background liveness prober to a secure socket.
// It decides under its own lock whether to probe or resend, but always
// releases the lock before invoking the send callback: the callback
// acquires the socket's own mutex, and holding both would invite
// lock-order inversion.
type KeepAlive struct {
	config Config

	// sendProbe transmits an encoded probe. Called without ka.mu held.
	sendProbe func(seq uint32) error

	// onStateChange, if set, observes every state transition.
	onStateChange func(old, new State)

	sequence atomic.Uint32

	mu           sync.Mutex
	state        State
	lastSent     time.Time
	lastReceived time.Time
	retries      int
	pendingSeq   uint32

	running bool
	stopCh  chan struct{}
	ackCh   chan uint32
}

// New creates a keep-alive prober. sendProbe is invoked for every probe
// and resend; it must not call back into the prober.
func New(config Config, sendProbe func(seq uint32) error) *KeepAlive {
	if config.Interval <= 0 {
		config.Interval = DefaultInterval
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = DefaultMaxRetries
	}
	return &KeepAlive{
		config:    config,
		sendProbe: sendProbe,
		state:     StateDisabled,
		stopCh:    make(chan struct{}),
		ackCh:     make(chan uint32, 1),
	}
}

// SetStateChangeCallback sets an observer for state transitions.
// Must be called before Start.
func (ka *KeepAlive) SetStateChangeCallback(cb func(old, new State)) {
	ka.mu.Lock()
	defer ka.mu.Unlock()
	ka.onStateChange = cb
}

// Start begins the monitoring loop. The prober transitions from
// Disabled to Idle. Stops when ctx is cancelled or Stop is called.
func (ka *KeepAlive) Start(ctx context.Context) {
	ka.mu.Lock()
	if ka.running {
		ka.mu.Unlock()
		return
	}
	ka.running = true
	ka.stopCh = make(chan struct{})
	ka.transitionLocked(StateIdle)
	ka.lastReceived = time.Now()
	ka.lastSent = time.Now()
	ka.mu.Unlock()

	go ka.loop(ctx)
}

// Stop halts the monitoring loop and returns the prober to Disabled.
func (ka *KeepAlive) Stop() {
	ka.mu.Lock()
	defer ka.mu.Unlock()
	if !ka.running {
		return
	}
	ka.running = false
	ka.transitionLocked(StateDisabled)
	close(ka.stopCh)
}

// AckReceived feeds a probe acknowledgement back into the state
// machine. An Active prober returns to Idle; a Failed prober recovers
// to Idle.
func (ka *KeepAlive) AckReceived(seq uint32) {
	select {
	case ka.ackCh <- seq:
	default:
		// Channel full; the pending ack already covers liveness.
	}
}

// State returns the current state.
func (ka *KeepAlive) State() State {
	ka.mu.Lock()
	defer ka.mu.Unlock()
	return ka.state
}

// IsRunning reports whether the monitoring loop is active.
func (ka *KeepAlive) IsRunning() bool {
	ka.mu.Lock()
	defer ka.mu.Unlock()
	return ka.running
}

// Stats returns a snapshot of the prober state.
func (ka *KeepAlive) Stats() Stats {
	ka.mu.Lock()
	defer ka.mu.Unlock()
	return Stats{
		State:        ka.state,
		LastSent:     ka.lastSent,
		LastReceived: ka.lastReceived,
		Retries:      ka.retries,
		CurrentSeq:   ka.sequence.Load(),
	}
}

// loop is the monitoring loop, polling at pollInterval.
func (ka *KeepAlive) loop(ctx context.Context) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			ka.Stop()
			return
		case <-ka.stopCh:
			return
		case <-ticker.C:
			ka.handleTick()
		case seq := <-ka.ackCh:
			ka.handleAck(seq)
		}
	}
}

// handleTick advances the state machine. The decision is made under the
// lock; the send itself happens after release.
func (ka *KeepAlive) handleTick() {
	var sendSeq uint32
	send := false
	now := time.Now()

	ka.mu.Lock()
	switch ka.state {
	case StateIdle:
		if now.Sub(ka.lastSent) >= ka.config.Interval {
			sendSeq = ka.sequence.Add(1)
			ka.pendingSeq = sendSeq
			ka.lastSent = now
			ka.retries = 0
			ka.transitionLocked(StateActive)
			send = true
		}

	case StateActive:
		if now.Sub(ka.lastSent) >= ka.config.Timeout {
			ka.retries++
			if ka.retries >= ka.config.MaxRetries {
				ka.transitionLocked(StateFailed)
			} else {
				sendSeq = ka.pendingSeq
				ka.lastSent = now
				send = true
			}
		}
	}
	ka.mu.Unlock()

	if send {
		// Send failures are absorbed: a dead connection shows up as a
		// missing acknowledgement on the next poll.
		_ = ka.sendProbe(sendSeq)
	}
}

// handleAck processes an acknowledgement.
func (ka *KeepAlive) handleAck(seq uint32) {
	ka.mu.Lock()
	defer ka.mu.Unlock()

	ka.lastReceived = time.Now()

	switch ka.state {
	case StateActive:
		if seq == ka.pendingSeq {
			ka.retries = 0
			ka.transitionLocked(StateIdle)
		}
		// Stale sequence numbers are ignored; a delayed ack for an
		// earlier probe proves nothing about the outstanding one.

	case StateFailed:
		// Recovered: the peer answered after we gave up.
		ka.retries = 0
		ka.transitionLocked(StateIdle)
	}
}

// transitionLocked changes state and notifies the observer.
// ka.mu must be held.
func (ka *KeepAlive) transitionLocked(next State) {
	if ka.state == next {
		return
	}
	old := ka.state
	ka.state = next
	if ka.onStateChange != nil {
		// Observers run outside the lock.
		go ka.onStateChange(old, next)
	}
}

// EncodeProbe builds the wire payload for a probe.
func EncodeProbe(seq uint32) ([]byte, error) {
	return wire.EncodeControl(&wire.ControlMessage{Type: wire.ControlProbe, Sequence: seq})
}

// EncodeProbeAck builds the wire payload answering a probe.
func EncodeProbeAck(seq uint32) ([]byte, error) {
	return wire.EncodeControl(&wire.ControlMessage{Type: wire.ControlProbeAck, Sequence: seq})
}
