package socket

import (
	"context"
	"fmt"
	"time"

	"github.com/xnet-project/xnet-go/pkg/engine"
	"github.com/xnet-project/xnet-go/pkg/keepalive"
	"github.com/xnet-project/xnet-go/pkg/log"
	"github.com/xnet-project/xnet-go/pkg/wire"
)

// EnableKeepAlive attaches a background liveness prober to a connected
// socket. Probes travel through Send like any other payload, so the
// prober inherits the socket's mutex discipline. The prober itself
// never holds its own lock while sending.
func (s *Socket) EnableKeepAlive(ctx context.Context, cfg keepalive.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if !s.connected {
		return ErrNotConnected
	}
	if s.ka != nil {
		return fmt.Errorf("%w: keep-alive already enabled", engine.ErrInvalidParameter)
	}

	ka := keepalive.New(cfg, func(seq uint32) error {
		payload, err := keepalive.EncodeProbe(seq)
		if err != nil {
			return err
		}
		s.logControl(wire.ControlProbe, seq, log.DirectionOut)
		_, err = s.Send(payload)
		return err
	})
	ka.SetStateChangeCallback(func(old, new keepalive.State) {
		s.logger.Log(log.Event{
			Timestamp:    time.Now(),
			ConnectionID: s.id,
			Layer:        log.LayerKeepAlive,
			Category:     log.CategoryState,
			RemoteAddr:   s.remoteAddrString(),
			StateChange: &log.StateChangeEvent{
				Entity:   "keepalive",
				OldState: old.String(),
				NewState: new.String(),
			},
		})
	})

	s.ka = ka
	ka.Start(ctx)
	return nil
}

// KeepAlive returns the attached prober, or nil when disabled.
func (s *Socket) KeepAlive() *keepalive.KeepAlive {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ka
}

// HandleControl inspects a received payload for control traffic.
// Probes are answered with an acknowledgement, acknowledgements are fed
// to the prober, and close notifications are reported to the caller.
// Returns the control type and true when the payload was control
// traffic; application payloads return (0, false) and should be
// processed by the caller.
func (s *Socket) HandleControl(data []byte) (wire.ControlType, bool) {
	ctype, err := wire.PeekControlType(data)
	if err != nil {
		return 0, false
	}
	msg, err := wire.DecodeControl(data)
	if err != nil {
		return 0, false
	}

	s.logControl(msg.Type, msg.Sequence, log.DirectionIn)

	switch msg.Type {
	case wire.ControlProbe:
		if ack, err := keepalive.EncodeProbeAck(msg.Sequence); err == nil {
			s.logControl(wire.ControlProbeAck, msg.Sequence, log.DirectionOut)
			s.Send(ack)
		}

	case wire.ControlProbeAck:
		s.mu.Lock()
		ka := s.ka
		s.mu.Unlock()
		if ka != nil {
			ka.AckReceived(msg.Sequence)
		}

	case wire.ControlClose:
		// Peer announced an orderly close; the caller decides when to
		// tear the socket down.
	}

	return ctype, true
}

// SendClose notifies the peer of an orderly application-level close.
func (s *Socket) SendClose() error {
	payload, err := wire.EncodeControl(&wire.ControlMessage{Type: wire.ControlClose})
	if err != nil {
		return err
	}
	s.logControl(wire.ControlClose, 0, log.DirectionOut)
	_, err = s.Send(payload)
	return err
}

func (s *Socket) logControl(t wire.ControlType, seq uint32, dir log.Direction) {
	s.logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: s.id,
		Direction:    dir,
		Layer:        log.LayerKeepAlive,
		Category:     log.CategoryControl,
		RemoteAddr:   s.remoteAddrString(),
		Control:      &log.ControlEvent{Type: t.String(), Sequence: seq},
	})
}
