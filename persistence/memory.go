package persistence

import (
	"context"
	"sort"
	"sync"

	"github.com/wfunc/rpsarena/models"
)

// MemoryDatabase keeps round history in process. Used when no database
// driver is configured.
type MemoryDatabase struct {
	mu      sync.RWMutex
	records []models.RoundRecord
	closed  bool
}

func NewMemoryDatabase() *MemoryDatabase {
	return &MemoryDatabase{}
}

func (m *MemoryDatabase) SaveRoundRecord(ctx context.Context, record *models.RoundRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrDatabaseClosed
	}
	m.records = append(m.records, *record)
	return nil
}

func (m *MemoryDatabase) RecentRounds(ctx context.Context, roomID string, limit int) ([]models.RoundRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	var out []models.RoundRecord
	for i := len(m.records) - 1; i >= 0; i-- {
		if roomID == "" || m.records[i].RoomID == roomID {
			out = append(out, m.records[i])
		}
	}
	m.mu.RUnlock()

	// Insertion order already newest-last; a stable sort keeps it for ties.
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ResolvedAt.After(out[j].ResolvedAt)
	})
	if limit = normalizeLimit(limit); len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryDatabase) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
