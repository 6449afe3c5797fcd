package room

import (
	"errors"
	"testing"
	"time"

	"github.com/wfunc/rpsarena/models"
	"github.com/wfunc/rpsarena/network"
	"github.com/wfunc/rpsarena/state"
)

func TestRoomManager_UnknownRoom(t *testing.T) {
	f := newFixture(t)

	checks := map[string]error{
		"Join":         f.manager.Join("nope", "A", "Alice"),
		"SetReady":     f.manager.SetReady("nope", "A", true),
		"RequestStart": f.manager.RequestStart("nope"),
		"SubmitMove":   f.manager.SubmitMove("nope", "A", "rock"),
		"Leave":        f.manager.Leave("nope", "A"),
	}
	for op, err := range checks {
		if !errors.Is(err, ErrRoomNotFound) {
			t.Errorf("%s on an unknown room: expected ErrRoomNotFound, got %v", op, err)
		}
	}

	if f.manager.Count() != 0 {
		t.Errorf("No room should have been created, got %d", f.manager.Count())
	}
	if f.bcast.total() != 0 {
		t.Errorf("No room events should have been broadcast, got %d", f.bcast.total())
	}
	if f.manager.RoomOf("A") != "" {
		t.Error("A failed join must not leave a membership behind")
	}
}

func TestRoom_ThirdJoinIsFull(t *testing.T) {
	f := newFixture(t)
	id := f.pair(t)

	if err := f.manager.Join(id, "C", "Carol"); !errors.Is(err, ErrRoomFull) {
		t.Fatalf("Expected ErrRoomFull, got %v", err)
	}

	r, _ := f.manager.GetRoom(id)
	snap := r.Snapshot()
	if len(snap.Players) != 2 || snap.Players[0].ID != "A" || snap.Players[1].ID != "B" {
		t.Errorf("Membership changed after a rejected join: %+v", snap.Players)
	}
	if snap.Phase != state.PhaseFull {
		t.Errorf("Expected phase full, got %s", snap.Phase)
	}
	if f.manager.RoomOf("C") != "" {
		t.Error("Rejected player must not be tracked as a member")
	}
}

func TestRoom_JoinBroadcastsMembership(t *testing.T) {
	f := newFixture(t)
	id := f.pair(t)

	events := f.bcast.waitFor(t, network.MsgTypeRoomMembership, 2)
	last := events[len(events)-1]
	if last.roomID != id || len(last.members) != 2 {
		t.Fatalf("Expected membership sent to both members, got %+v", last.members)
	}
	ev := decode[models.MembershipEvent](t, last)
	if len(ev.Players) != 2 || ev.Players[0].Name != "Alice" || ev.Players[1].Name != "Bob" {
		t.Errorf("Unexpected membership payload: %+v", ev)
	}

	ready := decode[models.ReadyStateEvent](t, f.bcast.waitFor(t, network.MsgTypeReadyState, 2)[1])
	if len(ready.Ready) != 2 || ready.Ready["A"] || ready.Ready["B"] {
		t.Errorf("New members must start unready: %+v", ready.Ready)
	}
}

func TestRoom_DefaultDisplayName(t *testing.T) {
	f := newFixture(t)
	id, err := f.manager.CreateAndJoin("A", "")
	if err != nil {
		t.Fatalf("CreateAndJoin failed: %v", err)
	}
	r, _ := f.manager.GetRoom(id)
	if name := r.Snapshot().Players[0].Name; name != models.DefaultPlayerName {
		t.Errorf("Expected default name %q, got %q", models.DefaultPlayerName, name)
	}
}

func TestRoom_RejoinIsIdempotent(t *testing.T) {
	f := newFixture(t)
	id := f.pair(t)
	before := len(f.bcast.byType(network.MsgTypeRoomMembership))

	if err := f.manager.Join(id, "A", "Alice"); err != nil {
		t.Fatalf("Rejoin should succeed, got %v", err)
	}

	r, _ := f.manager.GetRoom(id)
	if n := len(r.Snapshot().Players); n != 2 {
		t.Errorf("Rejoin must not duplicate the member, got %d players", n)
	}
	if after := len(f.bcast.byType(network.MsgTypeRoomMembership)); after != before+1 {
		t.Errorf("Rejoin should re-broadcast membership once, got %d new events", after-before)
	}
}

func TestRoom_SecondRoomJoinRejected(t *testing.T) {
	f := newFixture(t)
	first, _ := f.manager.CreateAndJoin("A", "Alice")
	second, _ := f.manager.CreateAndJoin("B", "Bob")

	if err := f.manager.Join(second, "A", "Alice"); !errors.Is(err, ErrAlreadyInRoom) {
		t.Fatalf("Expected ErrAlreadyInRoom, got %v", err)
	}
	if _, err := f.manager.CreateAndJoin("A", "Alice"); !errors.Is(err, ErrAlreadyInRoom) {
		t.Fatalf("Expected ErrAlreadyInRoom from CreateAndJoin, got %v", err)
	}
	if f.manager.RoomOf("A") != first {
		t.Errorf("A should still belong to %s, got %q", first, f.manager.RoomOf("A"))
	}
	if f.manager.Count() != 2 {
		t.Errorf("Expected 2 rooms, got %d", f.manager.Count())
	}
}

func TestRoom_SetReadyNotMember(t *testing.T) {
	f := newFixture(t)
	id := f.pair(t)

	if err := f.manager.SetReady(id, "Z", true); !errors.Is(err, ErrNotMember) {
		t.Errorf("Expected ErrNotMember, got %v", err)
	}
}

func TestRoom_SetReadyRebroadcastsSameValue(t *testing.T) {
	f := newFixture(t)
	id := f.pair(t)
	before := len(f.bcast.byType(network.MsgTypeReadyState))

	_ = f.manager.SetReady(id, "A", false)
	_ = f.manager.SetReady(id, "A", false)

	if after := len(f.bcast.byType(network.MsgTypeReadyState)); after != before+2 {
		t.Errorf("Expected two ready-state broadcasts, got %d", after-before)
	}
	if len(f.bcast.byType(network.MsgTypeCountdownTick)) != 0 {
		t.Error("Countdown must not start while a member is unready")
	}
}

func TestRoom_RequestStartNotAllReady(t *testing.T) {
	f := newFixture(t)
	id, _ := f.manager.CreateAndJoin("A", "Alice")
	_ = f.manager.SetReady(id, "A", true)

	// A single ready member is not enough.
	if err := f.manager.RequestStart(id); !errors.Is(err, ErrNotAllReady) {
		t.Fatalf("Expected ErrNotAllReady with one member, got %v", err)
	}

	_ = f.manager.Join(id, "B", "Bob")
	if err := f.manager.RequestStart(id); !errors.Is(err, ErrNotAllReady) {
		t.Fatalf("Expected ErrNotAllReady with B unready, got %v", err)
	}
}

func TestRoom_CountdownThenRoundStart(t *testing.T) {
	f := newFixture(t)
	id := f.pair(t)

	_ = f.manager.SetReady(id, "A", true)
	_ = f.manager.SetReady(id, "B", true)

	// Tick 3 is emitted synchronously by the implicit start.
	ticks := f.bcast.byType(network.MsgTypeCountdownTick)
	if len(ticks) != 1 || decode[models.CountdownTickEvent](t, ticks[0]).Value != 3 {
		t.Fatalf("Expected a single tick 3 right after all-ready, got %d ticks", len(ticks))
	}
	if err := f.manager.RequestStart(id); !errors.Is(err, ErrAlreadyActive) {
		t.Errorf("Expected ErrAlreadyActive during countdown, got %v", err)
	}

	f.step(t)
	f.step(t)
	ticks = f.bcast.waitFor(t, network.MsgTypeCountdownTick, 3)
	for i, want := range []int{3, 2, 1} {
		if got := decode[models.CountdownTickEvent](t, ticks[i]).Value; got != want {
			t.Errorf("Tick %d: expected %d, got %d", i, want, got)
		}
	}
	if len(f.bcast.byType(network.MsgTypeRoundStart)) != 0 {
		t.Fatal("round-start must wait one interval after tick 1")
	}

	f.step(t)
	start := decode[models.RoundStartEvent](t, f.bcast.waitFor(t, network.MsgTypeRoundStart, 1)[0])
	if start.Round != 1 || start.RoomID != id {
		t.Errorf("Unexpected round-start: %+v", start)
	}

	r, _ := f.manager.GetRoom(id)
	snap := r.Snapshot()
	if !snap.RoundActive || snap.CountdownActive || snap.Phase != state.PhaseRoundPending {
		t.Errorf("Expected an active round after countdown, got %+v", snap)
	}
	if err := f.manager.RequestStart(id); !errors.Is(err, ErrAlreadyActive) {
		t.Errorf("Expected ErrAlreadyActive while round is pending, got %v", err)
	}
	if f.observer.countdowns != 1 {
		t.Errorf("Expected one countdown to be observed, got %d", f.observer.countdowns)
	}
}

func TestRoom_RequestStartExplicit(t *testing.T) {
	f := newFixture(t)
	id := f.pair(t)
	f.startRound(t, id)

	// Resolve so both are unready, then re-ready without the implicit trigger
	// firing twice.
	_ = f.manager.SubmitMove(id, "A", "rock")
	_ = f.manager.SubmitMove(id, "B", "rock")

	_ = f.manager.SetReady(id, "A", true)
	_ = f.manager.SetReady(id, "B", true)
	if err := f.manager.RequestStart(id); !errors.Is(err, ErrAlreadyActive) {
		t.Fatalf("Implicit start should already be running, got %v", err)
	}
}

func TestRoom_RockBeatsScissors(t *testing.T) {
	f := newFixture(t)
	id := f.pair(t)
	f.startRound(t, id)

	if err := f.manager.SubmitMove(id, "A", "rock"); err != nil {
		t.Fatalf("SubmitMove(A) failed: %v", err)
	}
	if len(f.bcast.byType(network.MsgTypeRoundResult)) != 0 {
		t.Fatal("Round must not resolve with a single submission")
	}
	if err := f.manager.SubmitMove(id, "B", "scissors"); err != nil {
		t.Fatalf("SubmitMove(B) failed: %v", err)
	}

	results := f.bcast.byType(network.MsgTypeRoundResult)
	if len(results) != 1 {
		t.Fatalf("Expected exactly one round-result, got %d", len(results))
	}
	res := decode[models.RoundResult](t, results[0])
	if res.Round != 1 || res.Participants != [2]string{"A", "B"} {
		t.Errorf("Unexpected result header: %+v", res)
	}
	if res.Outcome.Type != models.OutcomeWin || res.Outcome.Winner != "A" {
		t.Errorf("Expected A to win, got %+v", res.Outcome)
	}
	if res.Moves["A"] != models.MoveRock || res.Moves["B"] != models.MoveScissors {
		t.Errorf("Unexpected moves: %+v", res.Moves)
	}

	r, _ := f.manager.GetRoom(id)
	snap := r.Snapshot()
	if snap.Round != 2 {
		t.Errorf("Expected round 2 after resolution, got %d", snap.Round)
	}
	if len(snap.Moves) != 0 || snap.RoundActive {
		t.Errorf("Moves must be cleared after resolution: %+v", snap)
	}
	if snap.Ready["A"] || snap.Ready["B"] {
		t.Errorf("Readiness must reset after resolution: %+v", snap.Ready)
	}
	if snap.Phase != state.PhaseFull {
		t.Errorf("Expected phase full after resolution, got %s", snap.Phase)
	}

	readies := f.bcast.byType(network.MsgTypeReadyState)
	lastReady := decode[models.ReadyStateEvent](t, readies[len(readies)-1])
	if lastReady.Ready["A"] || lastReady.Ready["B"] {
		t.Errorf("Last ready-state broadcast should show everyone unready: %+v", lastReady.Ready)
	}

	recorded := f.recorder.all()
	if len(recorded) != 1 || recorded[0].Outcome.Winner != "A" {
		t.Errorf("Expected the result to be recorded, got %+v", recorded)
	}
	if len(f.observer.outcomes) != 1 || f.observer.outcomes[0] != "win" {
		t.Errorf("Expected observer to see a win, got %v", f.observer.outcomes)
	}
}

func TestRoom_FirstSubmitterIsFirstParticipant(t *testing.T) {
	f := newFixture(t)
	id := f.pair(t)
	f.startRound(t, id)

	_ = f.manager.SubmitMove(id, "B", "paper")
	_ = f.manager.SubmitMove(id, "A", "paper")

	res := decode[models.RoundResult](t, f.bcast.waitFor(t, network.MsgTypeRoundResult, 1)[0])
	if res.Participants != [2]string{"B", "A"} {
		t.Errorf("Participants should follow submission order, got %v", res.Participants)
	}
	if res.Outcome.Type != models.OutcomeDraw || res.Outcome.Winner != "" {
		t.Errorf("Expected a draw, got %+v", res.Outcome)
	}
}

func TestRoom_DuplicateSubmission(t *testing.T) {
	f := newFixture(t)
	id := f.pair(t)
	f.startRound(t, id)

	if err := f.manager.SubmitMove(id, "A", "rock"); err != nil {
		t.Fatalf("First submission failed: %v", err)
	}
	if err := f.manager.SubmitMove(id, "A", "paper"); !errors.Is(err, ErrDuplicateSubmission) {
		t.Fatalf("Expected ErrDuplicateSubmission, got %v", err)
	}

	r, _ := f.manager.GetRoom(id)
	snap := r.Snapshot()
	if len(snap.Moves) != 1 || snap.Moves["A"] != models.MoveRock {
		t.Errorf("Duplicate must not overwrite the first move: %+v", snap.Moves)
	}
	if len(f.bcast.byType(network.MsgTypeRoundResult)) != 0 {
		t.Error("A duplicate submission must not resolve the round")
	}
}

func TestRoom_SubmitMoveRejections(t *testing.T) {
	f := newFixture(t)
	id := f.pair(t)

	if err := f.manager.SubmitMove(id, "A", "rock"); !errors.Is(err, ErrRoundNotActive) {
		t.Errorf("Expected ErrRoundNotActive before countdown, got %v", err)
	}
	if err := f.manager.SubmitMove(id, "Z", "rock"); !errors.Is(err, ErrNotMember) {
		t.Errorf("Expected ErrNotMember, got %v", err)
	}

	f.startRound(t, id)
	if err := f.manager.SubmitMove(id, "A", "lizard"); !errors.Is(err, ErrInvalidMove) {
		t.Errorf("Expected ErrInvalidMove, got %v", err)
	}
	if err := f.manager.SubmitMove(id, "A", " Rock "); err != nil {
		t.Errorf("Labels should be normalised, got %v", err)
	}
}

func TestRoom_LeaveDuringCountdownCancels(t *testing.T) {
	f := newFixture(t)
	id := f.pair(t)

	_ = f.manager.SetReady(id, "A", true)
	_ = f.manager.SetReady(id, "B", true)
	f.step(t)
	f.bcast.waitFor(t, network.MsgTypeCountdownTick, 2)

	if err := f.manager.Leave(id, "B"); err != nil {
		t.Fatalf("Leave failed: %v", err)
	}

	f.clock.Advance(10 * time.Second)
	time.Sleep(20 * time.Millisecond)

	if n := len(f.bcast.byType(network.MsgTypeCountdownTick)); n != 2 {
		t.Errorf("Cancelled countdown kept ticking: %d ticks", n)
	}
	if n := len(f.bcast.byType(network.MsgTypeRoundStart)); n != 0 {
		t.Errorf("Cancelled countdown emitted round-start")
	}

	r, _ := f.manager.GetRoom(id)
	snap := r.Snapshot()
	if snap.CountdownActive || snap.RoundActive || snap.Phase != state.PhaseForming {
		t.Errorf("Expected forming room without countdown, got %+v", snap)
	}
	if _, ok := snap.Ready["B"]; ok {
		t.Error("Readiness of the leaver must be purged")
	}
}

func TestRoom_LeaveAbandonsActiveRound(t *testing.T) {
	f := newFixture(t)
	id := f.pair(t)
	f.startRound(t, id)
	_ = f.manager.SubmitMove(id, "A", "rock")

	if err := f.manager.Leave(id, "A"); err != nil {
		t.Fatalf("Leave failed: %v", err)
	}

	r, _ := f.manager.GetRoom(id)
	snap := r.Snapshot()
	if snap.RoundActive || len(snap.Moves) != 0 {
		t.Errorf("Round should be abandoned: %+v", snap)
	}
	if snap.Round != 1 {
		t.Errorf("Abandoning must not advance the round counter, got %d", snap.Round)
	}
	if len(f.bcast.byType(network.MsgTypeRoundResult)) != 0 {
		t.Error("Abandoned round must not produce a result")
	}

	// A newcomer can play a fresh round 1.
	_ = f.manager.Join(id, "C", "Carol")
	if err := f.manager.SubmitMove(id, "C", "rock"); !errors.Is(err, ErrRoundNotActive) {
		t.Errorf("Expected ErrRoundNotActive after abandon, got %v", err)
	}
}

func TestRoom_LeaveLastMemberDestroysRoom(t *testing.T) {
	f := newFixture(t)
	id := f.pair(t)

	_ = f.manager.Leave(id, "A")
	if err := f.manager.Leave(id, "A"); !errors.Is(err, ErrNotMember) {
		t.Errorf("Expected ErrNotMember on second leave, got %v", err)
	}
	_ = f.manager.Leave(id, "B")

	if _, ok := f.manager.GetRoom(id); ok {
		t.Fatal("Empty room should be destroyed")
	}
	for _, s := range f.manager.ListJoinable() {
		if s.ID == id {
			t.Fatal("Destroyed room must not be listed")
		}
	}
	if f.manager.RoomOf("A") != "" || f.manager.RoomOf("B") != "" {
		t.Error("Memberships must be released")
	}
	if err := f.manager.Join(id, "C", "Carol"); !errors.Is(err, ErrRoomNotFound) {
		t.Errorf("Expected ErrRoomNotFound for destroyed room, got %v", err)
	}
	if f.observer.destroyed != 1 {
		t.Errorf("Expected one destroyed room, got %d", f.observer.destroyed)
	}
}

func TestRoom_StaleHandleAfterDestroy(t *testing.T) {
	f := newFixture(t)
	id, _ := f.manager.CreateAndJoin("A", "Alice")
	r, _ := f.manager.GetRoom(id)
	_ = f.manager.Leave(id, "A")

	if err := r.Join("B", "Bob"); !errors.Is(err, ErrRoomNotFound) {
		t.Errorf("Join through a stale handle should fail with ErrRoomNotFound, got %v", err)
	}
	if f.manager.RoomOf("B") != "" {
		t.Error("Stale join must not claim a membership")
	}
}

func TestRoom_Disconnect(t *testing.T) {
	f := newFixture(t)
	id := f.pair(t)

	f.manager.Disconnect("B")
	f.manager.Disconnect("B")
	f.manager.Disconnect("nobody")

	r, ok := f.manager.GetRoom(id)
	if !ok {
		t.Fatal("Room should survive while A remains")
	}
	if players := r.Snapshot().Players; len(players) != 1 || players[0].ID != "A" {
		t.Errorf("Expected only A left, got %+v", players)
	}
}

func TestRoomManager_RemoveRoomCancelsCountdown(t *testing.T) {
	f := newFixture(t)
	id := f.pair(t)
	_ = f.manager.SetReady(id, "A", true)
	_ = f.manager.SetReady(id, "B", true)

	f.manager.RemoveRoom(id)
	f.manager.RemoveRoom(id)

	f.clock.Advance(10 * time.Second)
	time.Sleep(20 * time.Millisecond)
	if n := len(f.bcast.byType(network.MsgTypeCountdownTick)); n != 1 {
		t.Errorf("Removed room kept ticking: %d ticks", n)
	}
	if f.manager.RoomOf("A") != "" {
		t.Error("Removing a room must release its members")
	}
	if f.manager.Count() != 0 {
		t.Errorf("Expected no rooms, got %d", f.manager.Count())
	}
}
