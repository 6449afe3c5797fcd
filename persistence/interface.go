// persistence/interface.go
package persistence

import (
	"context"
	"fmt"

	"github.com/wfunc/rpsarena/models"
)

// Database 对局历史存储接口
type Database interface {
	SaveRoundRecord(ctx context.Context, record *models.RoundRecord) error
	// RecentRounds returns up to limit records for roomID, newest first.
	// An empty roomID matches every room.
	RecentRounds(ctx context.Context, roomID string, limit int) ([]models.RoundRecord, error)
	Close() error
}

// 错误定义
var (
	ErrDatabaseClosed = fmt.Errorf("database closed")
)

// DefaultRecentLimit caps RecentRounds when the caller passes a non-positive limit.
const DefaultRecentLimit = 20

func normalizeLimit(limit int) int {
	if limit <= 0 || limit > 500 {
		return DefaultRecentLimit
	}
	return limit
}
