package state

import (
	"testing"
)

func TestMachine_InitialPhase(t *testing.T) {
	m := NewRoomMachine()
	if m.Current() != PhaseEmpty {
		t.Errorf("Expected initial phase empty, got %s", m.Current())
	}
}

func TestMachine_RoomLifecycle(t *testing.T) {
	m := NewRoomMachine()

	steps := []Phase{
		PhaseForming,
		PhaseFull,
		PhaseCountdown,
		PhaseRoundPending,
		PhaseResolved,
		PhaseFull,
		PhaseCountdown,
		PhaseForming,
		PhaseEmpty,
	}
	for _, to := range steps {
		if err := m.ChangePhase(to); err != nil {
			t.Fatalf("ChangePhase(%s) from %s failed: %v", to, m.Current(), err)
		}
		if m.Current() != to {
			t.Fatalf("Expected phase %s, got %s", to, m.Current())
		}
	}
}

func TestMachine_RejectsUnregisteredTransition(t *testing.T) {
	m := NewRoomMachine()

	if err := m.ChangePhase(PhaseCountdown); err != ErrTransitionNotAllowed {
		t.Errorf("Expected ErrTransitionNotAllowed, but got: %v", err)
	}
	if m.Current() != PhaseEmpty {
		t.Errorf("Expected phase to remain empty after a blocked transition, got %s", m.Current())
	}

	_ = m.ChangePhase(PhaseForming)
	_ = m.ChangePhase(PhaseFull)
	if m.Can(PhaseResolved) {
		t.Error("full -> resolved must not be allowed")
	}
	if err := m.ChangePhase(PhaseFull); err != ErrTransitionNotAllowed {
		t.Errorf("Self transitions are not registered, expected ErrTransitionNotAllowed, got %v", err)
	}
}

func TestMachine_ConditionBlocksTransition(t *testing.T) {
	m := NewMachine("A")
	allow := false
	m.AddTransition("A", "B", func() bool { return allow })

	if err := m.ChangePhase("B"); err != ErrTransitionNotAllowed {
		t.Errorf("Expected blocked transition, got %v", err)
	}
	allow = true
	if err := m.ChangePhase("B"); err != nil {
		t.Errorf("Expected transition to be allowed, got %v", err)
	}
}

func TestMachine_OnEnterHook(t *testing.T) {
	m := NewRoomMachine()
	var entered []Phase
	m.OnEnter(PhaseForming, func(from Phase) {
		entered = append(entered, from)
	})

	_ = m.ChangePhase(PhaseForming)
	_ = m.ChangePhase(PhaseFull)
	_ = m.ChangePhase(PhaseForming)

	if len(entered) != 2 || entered[0] != PhaseEmpty || entered[1] != PhaseFull {
		t.Errorf("Expected hook from [empty full], got %v", entered)
	}

	// A rejected transition does not run hooks.
	_ = m.ChangePhase(PhaseResolved)
	if len(entered) != 2 {
		t.Errorf("Hook ran on a rejected transition: %v", entered)
	}
}
