package room

import "github.com/wfunc/rpsarena/models"

// Broadcaster delivers encoded room events.
// This is defined here to break the import cycle between room and broadcast.
type Broadcaster interface {
	BroadcastToRoom(roomID string, memberIDs []string, msgID uint16, data []byte) error
	BroadcastToAll(msgID uint16, data []byte) error
}

// RoundRecorder receives every resolved round. It must not block.
type RoundRecorder interface {
	RecordRound(result models.RoundResult)
}

// Observer is notified of room lifecycle events, e.g. for metrics.
type Observer interface {
	RoomCreated()
	RoomDestroyed()
	CountdownStarted()
	RoundResolved(outcome string)
}

type nopBroadcaster struct{}

func (nopBroadcaster) BroadcastToRoom(string, []string, uint16, []byte) error { return nil }
func (nopBroadcaster) BroadcastToAll(uint16, []byte) error                   { return nil }

type nopObserver struct{}

func (nopObserver) RoomCreated()         {}
func (nopObserver) RoomDestroyed()       {}
func (nopObserver) CountdownStarted()    {}
func (nopObserver) RoundResolved(string) {}
