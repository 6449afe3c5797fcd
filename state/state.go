package state

import (
	"errors"
	"sync"
)

// Phase 房间所处的阶段
type Phase string

const (
	PhaseEmpty        Phase = "empty"
	PhaseForming      Phase = "forming"
	PhaseFull         Phase = "full"
	PhaseCountdown    Phase = "countdown"
	PhaseRoundPending Phase = "round_pending"
	PhaseResolved     Phase = "resolved"
)

// ErrTransitionNotAllowed is returned when a phase transition is not allowed.
var ErrTransitionNotAllowed = errors.New("state transition not allowed")

// Machine 阶段状态机。未登记的转换一律拒绝。
type Machine struct {
	current     Phase
	transitions map[Phase]map[Phase]func() bool // from -> to -> condition
	enterHooks  map[Phase][]func(from Phase)
	mutex       sync.RWMutex
}

func NewMachine(initial Phase) *Machine {
	return &Machine{
		current:     initial,
		transitions: make(map[Phase]map[Phase]func() bool),
		enterHooks:  make(map[Phase][]func(from Phase)),
	}
}

// NewRoomMachine returns a machine preloaded with the room lifecycle:
//
//	empty -> forming <-> full -> countdown -> round_pending -> resolved -> full
//
// with countdown and round_pending falling back to forming when a player leaves.
func NewRoomMachine() *Machine {
	m := NewMachine(PhaseEmpty)
	m.AddTransition(PhaseEmpty, PhaseForming, nil)
	m.AddTransition(PhaseForming, PhaseFull, nil)
	m.AddTransition(PhaseForming, PhaseEmpty, nil)
	m.AddTransition(PhaseFull, PhaseCountdown, nil)
	m.AddTransition(PhaseFull, PhaseForming, nil)
	m.AddTransition(PhaseCountdown, PhaseRoundPending, nil)
	m.AddTransition(PhaseCountdown, PhaseForming, nil)
	m.AddTransition(PhaseRoundPending, PhaseResolved, nil)
	m.AddTransition(PhaseRoundPending, PhaseForming, nil)
	m.AddTransition(PhaseResolved, PhaseFull, nil)
	return m
}

// AddTransition registers from -> to. A nil condition always allows it.
func (m *Machine) AddTransition(from, to Phase, condition func() bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, exists := m.transitions[from]; !exists {
		m.transitions[from] = make(map[Phase]func() bool)
	}
	m.transitions[from][to] = condition
}

// OnEnter registers a hook run after the machine enters phase p.
func (m *Machine) OnEnter(p Phase, hook func(from Phase)) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.enterHooks[p] = append(m.enterHooks[p], hook)
}

// Can reports whether the current phase may move to `to`.
func (m *Machine) Can(to Phase) bool {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.allowed(to)
}

func (m *Machine) allowed(to Phase) bool {
	conditions, exists := m.transitions[m.current]
	if !exists {
		return false
	}
	condition, exists := conditions[to]
	if !exists {
		return false
	}
	return condition == nil || condition()
}

// ChangePhase 切换阶段，成功后执行进入钩子
func (m *Machine) ChangePhase(to Phase) error {
	m.mutex.Lock()
	if !m.allowed(to) {
		m.mutex.Unlock()
		return ErrTransitionNotAllowed
	}
	from := m.current
	m.current = to
	hooks := append([]func(Phase){}, m.enterHooks[to]...)
	m.mutex.Unlock()

	for _, hook := range hooks {
		hook(from)
	}
	return nil
}

func (m *Machine) Current() Phase {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.current
}
