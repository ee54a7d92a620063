package events

import (
	"sync"

	"github.com/rs/zerolog"
)

// sinkCapacity is the bounded queue size §4.I specifies; beyond it the
// oldest buffered event is dropped to make room for the new one.
const sinkCapacity = 256

// Sink is the bounded in-process event queue. It is safe to construct
// before any consumer exists — per §9's two-phase init, the bare Sink is
// built first so producers can start emitting during startup, and the
// Worker that drains it is started last once every service is wired.
type Sink struct {
	mu     sync.Mutex
	ch     chan DomainEvent
	log    zerolog.Logger
	closed bool
}

// NewSink builds an empty, open Sink.
func NewSink(log zerolog.Logger) *Sink {
	return &Sink{
		ch:  make(chan DomainEvent, sinkCapacity),
		log: log.With().Str("component", "events_sink").Logger(),
	}
}

// Emit pushes event onto the queue without blocking. If the queue is full,
// the oldest buffered event is dropped and a warning logged. Emit is a
// no-op once Close has been called.
func (s *Sink) Emit(event DomainEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	select {
	case s.ch <- event:
		return
	default:
	}

	select {
	case dropped := <-s.ch:
		s.log.Warn().Type("dropped_event", dropped).Msg("event sink full, dropping oldest event")
	default:
	}

	select {
	case s.ch <- event:
	default:
		s.log.Warn().Type("event", event).Msg("event sink full, dropping new event")
	}
}

// Close stops accepting new events and closes the channel Worker drains
// from, so the drain loop sees channel closure once buffered events are
// consumed. Safe to call more than once.
func (s *Sink) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.ch)
}

// events exposes the receive-only channel for Worker's drain loop.
func (s *Sink) events() <-chan DomainEvent {
	return s.ch
}
