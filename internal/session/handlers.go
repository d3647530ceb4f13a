package session

import (
	"fmt"

	"github.com/realthrust/extension/internal/dispatcher"
	"github.com/realthrust/extension/pkg/core"
	"github.com/realthrust/extension/pkg/host"
)

func (s *Session) registerHandlers() {
	d := s.dispatcher

	d.Register(EventEntityAdded, func(e dispatcher.Event) error {
		ent, ok := e.Payload.(host.Entity)
		if !ok {
			return payloadError(e)
		}
		s.fleet.EntityAdded(ent)
		s.grids.Store(int64(s.fleet.Len()))
		return nil
	})

	d.Register(EventPlayerConnected, func(e dispatcher.Event) error {
		id, ok := e.Payload.(host.IdentityID)
		if !ok {
			return payloadError(e)
		}
		s.fleet.PlayerConnected(id)
		return nil
	}, dispatcher.Logged())

	d.Register(EventPlayerDisconnected, func(e dispatcher.Event) error {
		id, ok := e.Payload.(host.IdentityID)
		if !ok {
			return payloadError(e)
		}
		s.fleet.PlayerDisconnected(id)
		return nil
	}, dispatcher.Logged())

	d.Register(EventFactionEdited, func(e dispatcher.Event) error {
		id, ok := e.Payload.(int64)
		if !ok {
			return payloadError(e)
		}
		s.fleet.FactionEdited(id)
		return nil
	}, dispatcher.Logged())

	// Sink writes leave the simulation thread.
	d.Register(EventTransition, func(e dispatcher.Event) error {
		t, ok := e.Payload.(core.Transition)
		if !ok {
			return payloadError(e)
		}
		return s.monitor.RecordTransition(t)
	}, dispatcher.Buffered(transitionBuffer))

	d.Register(EventFleetStats, func(e dispatcher.Event) error {
		stats, ok := e.Payload.(core.FleetStats)
		if !ok {
			return payloadError(e)
		}
		return s.monitor.RecordFleetStats(stats)
	}, dispatcher.Buffered(statsBuffer), dispatcher.Logged())
}

func payloadError(e dispatcher.Event) error {
	return fmt.Errorf("%w: %s got %T", ErrPayload, e.Kind, e.Payload)
}
