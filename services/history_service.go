// services/history_service.go
package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/wfunc/rpsarena/logger"
	"github.com/wfunc/rpsarena/models"
	"github.com/wfunc/rpsarena/persistence"
)

const (
	historyQueueSize = 256
	saveTimeout      = 5 * time.Second
)

// HistoryService 异步写入对局历史，不阻塞房间
type HistoryService struct {
	db     persistence.Database
	queue  chan models.RoundRecord
	wg     sync.WaitGroup
	mutex  sync.RWMutex
	closed bool
}

func NewHistoryService(db persistence.Database) *HistoryService {
	s := &HistoryService{
		db:    db,
		queue: make(chan models.RoundRecord, historyQueueSize),
	}
	s.wg.Add(1)
	go s.run()
	return s
}

// RecordRound enqueues a resolved round. It never blocks; when the queue is
// full the record is dropped and logged.
func (s *HistoryService) RecordRound(result models.RoundResult) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if s.closed {
		return
	}
	select {
	case s.queue <- models.NewRoundRecord(result):
	default:
		logger.Log.Warnf("History queue full, dropping room %s round %d", result.RoomID, result.Round)
	}
}

func (s *HistoryService) run() {
	defer s.wg.Done()
	for record := range s.queue {
		ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		if err := s.db.SaveRoundRecord(ctx, &record); err != nil {
			logger.Log.Errorf("Save room %s round %d: %v", record.RoomID, record.Round, err)
		}
		cancel()
	}
}

// Recent returns the latest rounds for roomID, or for every room when roomID is empty.
func (s *HistoryService) Recent(ctx context.Context, roomID string, limit int) ([]models.RoundRecord, error) {
	records, err := s.db.RecentRounds(ctx, roomID, limit)
	if err != nil {
		return nil, fmt.Errorf("recent rounds: %w", err)
	}
	if records == nil {
		records = []models.RoundRecord{}
	}
	return records, nil
}

// Close drains the queue and waits for pending writes.
func (s *HistoryService) Close() {
	s.mutex.Lock()
	if s.closed {
		s.mutex.Unlock()
		return
	}
	s.closed = true
	close(s.queue)
	s.mutex.Unlock()

	s.wg.Wait()
}
