package room

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/wfunc/rpsarena/models"
	"github.com/wfunc/rpsarena/network"
)

type sentEvent struct {
	roomID  string
	members []string
	msgID   uint16
	data    []byte
}

// recordingBroadcaster captures everything the rooms emit.
type recordingBroadcaster struct {
	mu           sync.Mutex
	events       []sentEvent
	lobbySignals int
}

func (b *recordingBroadcaster) BroadcastToRoom(roomID string, memberIDs []string, msgID uint16, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, sentEvent{
		roomID:  roomID,
		members: append([]string(nil), memberIDs...),
		msgID:   msgID,
		data:    append([]byte(nil), data...),
	})
	return nil
}

func (b *recordingBroadcaster) BroadcastToAll(msgID uint16, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lobbySignals++
	return nil
}

func (b *recordingBroadcaster) byType(msgID uint16) []sentEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []sentEvent
	for _, e := range b.events {
		if e.msgID == msgID {
			out = append(out, e)
		}
	}
	return out
}

func (b *recordingBroadcaster) lobbyCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lobbySignals
}

func (b *recordingBroadcaster) total() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.events)
}

// waitFor polls until at least n events of msgID were recorded.
func (b *recordingBroadcaster) waitFor(t *testing.T, msgID uint16, n int) []sentEvent {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		events := b.byType(msgID)
		if len(events) >= n {
			return events
		}
		if time.Now().After(deadline) {
			t.Fatalf("Timed out waiting for %d %s events, got %d", n, network.MsgName(msgID), len(events))
		}
		time.Sleep(2 * time.Millisecond)
	}
}

type recordingRecorder struct {
	mu      sync.Mutex
	results []models.RoundResult
}

func (r *recordingRecorder) RecordRound(result models.RoundResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, result)
}

func (r *recordingRecorder) all() []models.RoundResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.RoundResult(nil), r.results...)
}

type countingObserver struct {
	mu         sync.Mutex
	created    int
	destroyed  int
	countdowns int
	outcomes   []string
}

func (o *countingObserver) RoomCreated()      { o.mu.Lock(); o.created++; o.mu.Unlock() }
func (o *countingObserver) RoomDestroyed()    { o.mu.Lock(); o.destroyed++; o.mu.Unlock() }
func (o *countingObserver) CountdownStarted() { o.mu.Lock(); o.countdowns++; o.mu.Unlock() }
func (o *countingObserver) RoundResolved(outcome string) {
	o.mu.Lock()
	o.outcomes = append(o.outcomes, outcome)
	o.mu.Unlock()
}

type fixture struct {
	manager  *Manager
	bcast    *recordingBroadcaster
	clock    *clockwork.FakeClock
	recorder *recordingRecorder
	observer *countingObserver
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		bcast:    &recordingBroadcaster{},
		clock:    clockwork.NewFakeClock(),
		recorder: &recordingRecorder{},
		observer: &countingObserver{},
	}
	f.manager = NewRoomManager(Options{
		Clock:             f.clock,
		CountdownFrom:     3,
		CountdownInterval: time.Second,
		Broadcaster:       f.bcast,
		Recorder:          f.recorder,
		Observer:          f.observer,
	})
	t.Cleanup(f.manager.Close)
	return f
}

// pair creates a room owned by "A" and joins "B".
func (f *fixture) pair(t *testing.T) string {
	t.Helper()
	id, err := f.manager.CreateAndJoin("A", "Alice")
	if err != nil {
		t.Fatalf("CreateAndJoin failed: %v", err)
	}
	if err := f.manager.Join(id, "B", "Bob"); err != nil {
		t.Fatalf("Join failed: %v", err)
	}
	return id
}

// step waits for the countdown timer to be armed, then moves the clock one interval.
func (f *fixture) step(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := f.clock.BlockUntilContext(ctx, 1); err != nil {
		t.Fatalf("No countdown timer armed: %v", err)
	}
	f.clock.Advance(time.Second)
}

// startRound readies both players and runs the countdown to round-start.
func (f *fixture) startRound(t *testing.T, id string) {
	t.Helper()
	starts := len(f.bcast.byType(network.MsgTypeRoundStart))
	if err := f.manager.SetReady(id, "A", true); err != nil {
		t.Fatalf("SetReady(A) failed: %v", err)
	}
	if err := f.manager.SetReady(id, "B", true); err != nil {
		t.Fatalf("SetReady(B) failed: %v", err)
	}
	for i := 0; i < 3; i++ {
		f.step(t)
	}
	f.bcast.waitFor(t, network.MsgTypeRoundStart, starts+1)
}

func decode[T any](t *testing.T, e sentEvent) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(e.data, &v); err != nil {
		t.Fatalf("Failed to decode %s: %v", network.MsgName(e.msgID), err)
	}
	return v
}
