package offline

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestMonitor_InitialStateAndNoInitialNotification(t *testing.T) {
	m := NewMonitor(true, zerolog.Nop())
	if !m.Online() {
		t.Fatalf("expected initial online state")
	}

	fired := 0
	m.OnTransition(func(bool) { fired++ })
	if fired != 0 {
		t.Fatalf("listener fired without a transition")
	}
}

func TestMonitor_FiresOnEdgesOnly(t *testing.T) {
	m := NewMonitor(true, zerolog.Nop())

	var states []bool
	m.OnTransition(func(online bool) { states = append(states, online) })

	m.SetOnline(true)  // no-op, already online
	m.SetOnline(false) // edge
	m.SetOnline(false) // no-op
	m.SetOnline(true)  // edge

	if len(states) != 2 || states[0] != false || states[1] != true {
		t.Fatalf("expected exactly the two edges, got %v", states)
	}
	if !m.Online() {
		t.Fatalf("final state should be online")
	}
}

func TestMonitor_ListenersRunInRegistrationOrder(t *testing.T) {
	m := NewMonitor(false, zerolog.Nop())

	var order []string
	m.OnTransition(func(bool) { order = append(order, "first") })
	m.OnTransition(func(bool) { order = append(order, "second") })

	m.SetOnline(true)
	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Fatalf("unexpected listener order: %v", order)
	}
}
