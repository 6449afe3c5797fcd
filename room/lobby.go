package room

import (
	"encoding/json"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/wfunc/rpsarena/logger"
	"github.com/wfunc/rpsarena/models"
	"github.com/wfunc/rpsarena/network"
)

// lobby caches the joinable-room listing. Membership changes only flip the
// dirty flag; the list is rebuilt on the next read.
type lobby struct {
	manager *Manager
	dirty   atomic.Bool
	mu      sync.Mutex
	cached  []models.RoomSummary
}

func newLobby(m *Manager) *lobby {
	l := &lobby{manager: m}
	l.dirty.Store(true)
	return l
}

// invalidate marks the listing stale and tells every connection to re-list.
func (l *lobby) invalidate() {
	l.dirty.Store(true)

	data, err := json.Marshal(models.LobbyChangedEvent{})
	if err != nil {
		return
	}
	if err := l.manager.broadcaster.BroadcastToAll(network.MsgTypeLobbyChanged, data); err != nil {
		logger.Log.Warnf("Broadcast lobby-changed: %v", err)
	}
}

func (l *lobby) list() []models.RoomSummary {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.dirty.Swap(false) {
		l.cached = l.rebuild()
	}
	return append([]models.RoomSummary{}, l.cached...)
}

func (l *lobby) rebuild() []models.RoomSummary {
	m := l.manager
	m.mutex.RLock()
	list := make([]models.RoomSummary, 0, len(m.rooms))
	for _, r := range m.rooms {
		count := r.MemberCount()
		if count >= MaxPlayers {
			continue
		}
		list = append(list, models.RoomSummary{
			ID:          r.ID,
			CreatedAt:   r.CreatedAt,
			CreatedAtMS: r.CreatedAt.UnixMilli(),
			MemberCount: count,
		})
	}
	m.mutex.RUnlock()

	sort.Slice(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.After(list[j].CreatedAt)
		}
		return list[i].ID < list[j].ID
	})
	return list
}

// ListJoinable returns rooms with fewer than two members, newest first.
func (m *Manager) ListJoinable() []models.RoomSummary {
	return m.lobby.list()
}
