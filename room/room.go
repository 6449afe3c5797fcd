// room/room.go
package room

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/wfunc/rpsarena/logger"
	"github.com/wfunc/rpsarena/models"
	"github.com/wfunc/rpsarena/network"
	"github.com/wfunc/rpsarena/state"
	"github.com/wfunc/rpsarena/timer"
)

// MaxPlayers 每个房间的人数上限
const MaxPlayers = 2

// Room 是对局房间的核心结构。所有字段由 mu 保护。
type Room struct {
	ID        string
	CreatedAt time.Time

	mu          sync.Mutex
	players     []models.Player // insertion order
	ready       map[string]bool
	moves       map[string]models.Move
	moveOrder   []string // arrival order of moves this round
	round       int
	roundActive bool
	countdown   *timer.Countdown
	machine     *state.Machine
	closed      bool

	// mirrored for lock-free lobby reads
	memberCount atomic.Int32

	manager *Manager
}

// Snapshot is a point-in-time copy of a room's state.
type Snapshot struct {
	ID              string
	Phase           state.Phase
	Players         []models.Player
	Ready           map[string]bool
	Moves           map[string]models.Move
	Round           int
	CountdownActive bool
	RoundActive     bool
}

func newRoom(id string, m *Manager) *Room {
	return &Room{
		ID:        id,
		CreatedAt: m.clock.Now(),
		ready:     make(map[string]bool),
		moves:     make(map[string]models.Move),
		round:     1,
		machine:   state.NewRoomMachine(),
		manager:   m,
	}
}

// MemberCount is safe to call without holding the room lock.
func (r *Room) MemberCount() int {
	return int(r.memberCount.Load())
}

// Join 加入房间。当前成员再次加入视为成功并重新广播。
func (r *Room) Join(connID, displayName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrRoomNotFound
	}
	if r.indexOf(connID) >= 0 {
		r.broadcastMembership()
		r.broadcastReady()
		return nil
	}
	if len(r.players) >= MaxPlayers {
		return ErrRoomFull
	}
	if err := r.manager.claim(connID, r.ID); err != nil {
		return err
	}

	if displayName == "" {
		displayName = models.DefaultPlayerName
	}
	r.players = append(r.players, models.Player{
		ID:       connID,
		Name:     displayName,
		JoinedAt: r.manager.clock.Now(),
	})
	r.ready[connID] = false
	r.memberCount.Store(int32(len(r.players)))

	if r.machine.Current() == state.PhaseEmpty {
		r.setPhase(state.PhaseForming)
	}
	if len(r.players) == MaxPlayers {
		r.setPhase(state.PhaseFull)
	}

	logger.Log.Infof("Player %s joined room %s (%d/%d)", connID, r.ID, len(r.players), MaxPlayers)
	r.broadcastMembership()
	r.broadcastReady()
	r.manager.lobby.invalidate()
	return nil
}

// SetReady 更新准备状态；全员准备时自动开始倒计时
func (r *Room) SetReady(connID string, ready bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrRoomNotFound
	}
	if r.indexOf(connID) < 0 {
		return ErrNotMember
	}

	r.ready[connID] = ready
	r.broadcastReady()

	if r.allReady() && !r.busy() {
		r.startCountdown()
	}
	return nil
}

// RequestStart starts the countdown explicitly with the same precondition as
// the implicit all-ready trigger.
func (r *Room) RequestStart() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrRoomNotFound
	}
	if r.busy() {
		return ErrAlreadyActive
	}
	if !r.allReady() {
		return ErrNotAllReady
	}
	r.startCountdown()
	return nil
}

// SubmitMove records connID's move for the active round and resolves once two
// members have submitted.
func (r *Room) SubmitMove(connID, label string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrRoomNotFound
	}
	if r.indexOf(connID) < 0 {
		return ErrNotMember
	}
	move, err := models.ParseMove(label)
	if err != nil {
		return ErrInvalidMove
	}
	if !r.roundActive {
		return ErrRoundNotActive
	}
	if _, dup := r.moves[connID]; dup {
		return ErrDuplicateSubmission
	}

	r.moves[connID] = move
	r.moveOrder = append(r.moveOrder, connID)

	if len(r.moveOrder) >= 2 && len(r.players) >= MaxPlayers {
		r.resolveRound()
	}
	return nil
}

// Leave removes connID. The last member leaving destroys the room.
func (r *Room) Leave(connID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrRoomNotFound
	}
	idx := r.indexOf(connID)
	if idx < 0 {
		return ErrNotMember
	}

	r.players = append(r.players[:idx], r.players[idx+1:]...)
	delete(r.ready, connID)
	r.dropMove(connID)
	r.memberCount.Store(int32(len(r.players)))
	r.manager.release(connID, r.ID)

	logger.Log.Infof("Player %s left room %s (%d/%d)", connID, r.ID, len(r.players), MaxPlayers)

	if len(r.players) < MaxPlayers {
		r.abandon()
	}
	if len(r.players) == 0 {
		r.setPhase(state.PhaseEmpty)
		r.closed = true
		r.manager.remove(r.ID)
		return nil
	}

	r.broadcastMembership()
	r.broadcastReady()
	r.manager.lobby.invalidate()
	return nil
}

// Close cancels any countdown, releases every member and unregisters the room.
// Closing a closed room is a no-op.
func (r *Room) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}
	r.cancelCountdown()
	r.closed = true
	for _, p := range r.players {
		r.manager.release(p.ID, r.ID)
	}
	r.memberCount.Store(0)
	r.manager.remove(r.ID)
}

func (r *Room) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := Snapshot{
		ID:              r.ID,
		Phase:           r.machine.Current(),
		Players:         append([]models.Player(nil), r.players...),
		Ready:           make(map[string]bool, len(r.ready)),
		Moves:           make(map[string]models.Move, len(r.moves)),
		Round:           r.round,
		CountdownActive: r.countdown != nil,
		RoundActive:     r.roundActive,
	}
	for k, v := range r.ready {
		s.Ready[k] = v
	}
	for k, v := range r.moves {
		s.Moves[k] = v
	}
	return s
}

// --- helpers, mu must be held ---

func (r *Room) indexOf(connID string) int {
	for i, p := range r.players {
		if p.ID == connID {
			return i
		}
	}
	return -1
}

func (r *Room) memberIDs() []string {
	ids := make([]string, len(r.players))
	for i, p := range r.players {
		ids[i] = p.ID
	}
	return ids
}

func (r *Room) allReady() bool {
	if len(r.players) < MaxPlayers {
		return false
	}
	for _, p := range r.players {
		if !r.ready[p.ID] {
			return false
		}
	}
	return true
}

// busy reports whether a countdown is running or a round is accepting moves.
func (r *Room) busy() bool {
	return r.countdown != nil || r.roundActive
}

func (r *Room) dropMove(connID string) {
	if _, ok := r.moves[connID]; !ok {
		return
	}
	delete(r.moves, connID)
	for i, id := range r.moveOrder {
		if id == connID {
			r.moveOrder = append(r.moveOrder[:i], r.moveOrder[i+1:]...)
			break
		}
	}
}

func (r *Room) clearMoves() {
	r.moves = make(map[string]models.Move)
	r.moveOrder = nil
}

// abandon cancels the countdown and drops an in-flight round. The round
// counter is left alone.
func (r *Room) abandon() {
	r.cancelCountdown()
	if r.roundActive {
		logger.Log.Infof("Room %s abandoned round %d", r.ID, r.round)
	}
	r.roundActive = false
	r.clearMoves()
	if len(r.players) > 0 {
		r.setPhase(state.PhaseForming)
	}
}

func (r *Room) setPhase(to state.Phase) {
	if r.machine.Current() == to {
		return
	}
	if err := r.machine.ChangePhase(to); err != nil {
		logger.Log.Errorf("Room %s: %s -> %s: %v", r.ID, r.machine.Current(), to, err)
	}
}

func (r *Room) startCountdown() {
	m := r.manager
	r.countdown = timer.NewCountdown(m.clock, &r.mu, m.countdownFrom, m.countdownInterval,
		r.onCountdownTick, r.onCountdownDone)
	r.setPhase(state.PhaseCountdown)
	m.observer.CountdownStarted()
	logger.Log.Infof("Room %s countdown started for round %d", r.ID, r.round)
	r.countdown.Start()
}

func (r *Room) cancelCountdown() {
	if r.countdown == nil {
		return
	}
	if r.countdown.Cancel() {
		logger.Log.Infof("Room %s countdown cancelled", r.ID)
	}
	r.countdown = nil
}

func (r *Room) onCountdownTick(value int) {
	r.broadcast(network.MsgTypeCountdownTick, models.CountdownTickEvent{RoomID: r.ID, Value: value})
}

func (r *Room) onCountdownDone() {
	r.countdown = nil
	r.clearMoves()
	r.roundActive = true
	r.setPhase(state.PhaseRoundPending)
	r.broadcast(network.MsgTypeRoundStart, models.RoundStartEvent{RoomID: r.ID, Round: r.round})
}

func (r *Room) resolveRound() {
	a, b := r.moveOrder[0], r.moveOrder[1]
	moveA, moveB := r.moves[a], r.moves[b]

	result := models.RoundResult{
		RoomID:       r.ID,
		Round:        r.round,
		Participants: [2]string{a, b},
		Moves:        map[string]models.Move{a: moveA, b: moveB},
		Outcome:      state.Outcome(a, moveA, b, moveB),
		ResolvedAt:   r.manager.clock.Now(),
	}

	r.setPhase(state.PhaseResolved)
	r.broadcast(network.MsgTypeRoundResult, result)
	logger.Log.Infof("Room %s round %d resolved: %s %s vs %s %s -> %s %s",
		r.ID, r.round, a, moveA, b, moveB, result.Outcome.Type, result.Outcome.Winner)

	r.round++
	r.clearMoves()
	r.roundActive = false
	for id := range r.ready {
		r.ready[id] = false
	}
	r.setPhase(state.PhaseFull)
	r.broadcastReady()

	if r.manager.recorder != nil {
		r.manager.recorder.RecordRound(result)
	}
	r.manager.observer.RoundResolved(string(result.Outcome.Type))
}

func (r *Room) broadcastMembership() {
	r.broadcast(network.MsgTypeRoomMembership, models.MembershipEvent{
		RoomID:  r.ID,
		Players: append([]models.Player{}, r.players...),
	})
}

func (r *Room) broadcastReady() {
	ready := make(map[string]bool, len(r.ready))
	for k, v := range r.ready {
		ready[k] = v
	}
	r.broadcast(network.MsgTypeReadyState, models.ReadyStateEvent{RoomID: r.ID, Ready: ready})
}

// broadcast is best effort; delivery errors never undo the mutation.
func (r *Room) broadcast(msgID uint16, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		logger.Log.Errorf("Room %s: marshal %s: %v", r.ID, network.MsgName(msgID), err)
		return
	}
	if err := r.manager.broadcaster.BroadcastToRoom(r.ID, r.memberIDs(), msgID, data); err != nil {
		logger.Log.Warnf("Room %s: broadcast %s: %v", r.ID, network.MsgName(msgID), err)
	}
}
