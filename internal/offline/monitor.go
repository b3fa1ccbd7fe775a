// Package offline implements the offline mutation queue.
//
// This file provides the connectivity monitor. Connectivity is event-based,
// not polled: callers report state changes (an API toggle, a failed remote
// call, a successful health probe) and listeners fire only on edges, so the
// offline→online transition triggers at most one drain per reconnect.
package offline

import (
	"sync"

	"github.com/rs/zerolog"
)

// TransitionFunc is invoked with the new state when connectivity flips.
type TransitionFunc func(online bool)

// Monitor tracks a single boolean connectivity state and notifies listeners
// on transitions. It is safe for concurrent use. Listeners run synchronously
// on the goroutine that called SetOnline, preserving the "drain exactly on
// the reconnect event" semantics.
type Monitor struct {
	log zerolog.Logger

	mu        sync.Mutex
	online    bool
	listeners []TransitionFunc
}

// NewMonitor returns a monitor in the given initial state. No listeners are
// notified for the initial state.
func NewMonitor(online bool, log zerolog.Logger) *Monitor {
	return &Monitor{
		log:    log.With().Str("component", "connectivity").Logger(),
		online: online,
	}
}

// Online reports the current connectivity state.
func (m *Monitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// OnTransition registers fn to run on every state change. Registration order
// is preserved.
func (m *Monitor) OnTransition(fn TransitionFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// SetOnline updates the state. Listeners fire only when the state actually
// changes; repeated reports of the same state are ignored.
func (m *Monitor) SetOnline(online bool) {
	m.mu.Lock()
	if m.online == online {
		m.mu.Unlock()
		return
	}
	m.online = online
	listeners := make([]TransitionFunc, len(m.listeners))
	copy(listeners, m.listeners)
	m.mu.Unlock()

	if online {
		m.log.Info().Msg("connectivity restored")
	} else {
		m.log.Warn().Msg("connectivity lost")
	}
	for _, fn := range listeners {
		fn(online)
	}
}
