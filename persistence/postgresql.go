// persistence/postgresql.go
package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL 驱动
	"github.com/wfunc/rpsarena/models"
)

// DSN builds a libpq key/value connection string.
func DSN(host string, port int, user, password, dbname, sslmode string) string {
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		host, port, user, password, dbname, sslmode)
}

// PostgreSQL 数据库实现
type PostgreSQL struct {
	db *sql.DB
}

// NewPostgreSQL 创建 PostgreSQL 数据库连接
func NewPostgreSQL(dsn string) (*PostgreSQL, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	// 测试连接
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	// 设置连接池参数
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := initTables(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("init tables: %w", err)
	}

	return &PostgreSQL{db: db}, nil
}

// initTables 初始化数据库表结构
func initTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
        CREATE TABLE IF NOT EXISTS round_records (
            id SERIAL PRIMARY KEY,
            room_id VARCHAR(32) NOT NULL,
            round INTEGER NOT NULL,
            player_a VARCHAR(64) NOT NULL,
            player_b VARCHAR(64) NOT NULL,
            move_a VARCHAR(16) NOT NULL,
            move_b VARCHAR(16) NOT NULL,
            outcome VARCHAR(8) NOT NULL,
            winner_id VARCHAR(64) NOT NULL DEFAULT '',
            resolved_at TIMESTAMPTZ NOT NULL,
            created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
        )
    `)
	if err != nil {
		return err
	}

	// 创建索引以提高查询性能
	_, err = db.ExecContext(ctx, `
        CREATE INDEX IF NOT EXISTS idx_round_records_room_id ON round_records(room_id);
        CREATE INDEX IF NOT EXISTS idx_round_records_resolved_at ON round_records(resolved_at);
    `)
	return err
}

// SaveRoundRecord 保存一局记录
func (p *PostgreSQL) SaveRoundRecord(ctx context.Context, r *models.RoundRecord) error {
	query := `
        INSERT INTO round_records (room_id, round, player_a, player_b, move_a, move_b, outcome, winner_id, resolved_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
    `
	_, err := p.db.ExecContext(ctx, query,
		r.RoomID, r.Round, r.PlayerA, r.PlayerB, string(r.MoveA), string(r.MoveB), r.Outcome, r.WinnerID, r.ResolvedAt)
	return err
}

// RecentRounds 查询最近的对局
func (p *PostgreSQL) RecentRounds(ctx context.Context, roomID string, limit int) ([]models.RoundRecord, error) {
	query := `
        SELECT room_id, round, player_a, player_b, move_a, move_b, outcome, winner_id, resolved_at
        FROM round_records
        WHERE ($1 = '' OR room_id = $1)
        ORDER BY resolved_at DESC, id DESC
        LIMIT $2
    `
	rows, err := p.db.QueryContext(ctx, query, roomID, normalizeLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.RoundRecord
	for rows.Next() {
		var r models.RoundRecord
		var moveA, moveB string
		if err := rows.Scan(&r.RoomID, &r.Round, &r.PlayerA, &r.PlayerB, &moveA, &moveB, &r.Outcome, &r.WinnerID, &r.ResolvedAt); err != nil {
			return nil, err
		}
		r.MoveA, r.MoveB = models.Move(moveA), models.Move(moveB)
		records = append(records, r)
	}
	return records, rows.Err()
}

// Close 关闭数据库连接
func (p *PostgreSQL) Close() error {
	return p.db.Close()
}
