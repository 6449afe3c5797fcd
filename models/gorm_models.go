// models/gorm_models.go
package models

import (
	"time"

	"gorm.io/gorm"
)

// GormRoundRecord 对局记录表
type GormRoundRecord struct {
	gorm.Model
	RoomID     string    `gorm:"index;not null"`
	Round      int       `gorm:"not null"`
	PlayerA    string    `gorm:"not null"`
	PlayerB    string    `gorm:"not null"`
	MoveA      string    `gorm:"not null"`
	MoveB      string    `gorm:"not null"`
	Outcome    string    `gorm:"not null"`
	WinnerID   string    `gorm:"default:''"`
	ResolvedAt time.Time `gorm:"index;not null"`
}

func (GormRoundRecord) TableName() string {
	return "round_records"
}

func GormRoundRecordFrom(r RoundRecord) GormRoundRecord {
	return GormRoundRecord{
		RoomID:     r.RoomID,
		Round:      r.Round,
		PlayerA:    r.PlayerA,
		PlayerB:    r.PlayerB,
		MoveA:      string(r.MoveA),
		MoveB:      string(r.MoveB),
		Outcome:    r.Outcome,
		WinnerID:   r.WinnerID,
		ResolvedAt: r.ResolvedAt,
	}
}

func (g GormRoundRecord) ToRecord() RoundRecord {
	return RoundRecord{
		RoomID:     g.RoomID,
		Round:      g.Round,
		PlayerA:    g.PlayerA,
		PlayerB:    g.PlayerB,
		MoveA:      Move(g.MoveA),
		MoveB:      Move(g.MoveB),
		Outcome:    g.Outcome,
		WinnerID:   g.WinnerID,
		ResolvedAt: g.ResolvedAt,
	}
}
