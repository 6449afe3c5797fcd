// models/models.go
package models

import (
	"errors"
	"strings"
	"time"
)

// DefaultPlayerName is used when a client joins without a display name.
const DefaultPlayerName = "Player"

// Move is one of the three gesture labels.
type Move string

const (
	MoveRock     Move = "rock"
	MovePaper    Move = "paper"
	MoveScissors Move = "scissors"
)

// Moves lists the closed move set.
var Moves = []Move{MoveRock, MovePaper, MoveScissors}

// ErrInvalidMove is returned for labels outside the move set.
var ErrInvalidMove = errors.New("INVALID_MOVE")

// beats maps each move to the move it defeats.
var beats = map[Move]Move{
	MoveRock:     MoveScissors,
	MoveScissors: MovePaper,
	MovePaper:    MoveRock,
}

// ParseMove normalises a classifier label into a Move.
func ParseMove(label string) (Move, error) {
	m := Move(strings.ToLower(strings.TrimSpace(label)))
	if !m.Valid() {
		return "", ErrInvalidMove
	}
	return m, nil
}

func (m Move) Valid() bool {
	_, ok := beats[m]
	return ok
}

// Beats reports whether m defeats other.
func (m Move) Beats(other Move) bool {
	return beats[m] == other
}

// Player 房间中的玩家
type Player struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	JoinedAt time.Time `json:"joinedAt"`
}

// OutcomeType is "draw" or "win".
type OutcomeType string

const (
	OutcomeDraw OutcomeType = "draw"
	OutcomeWin  OutcomeType = "win"
)

type Outcome struct {
	Type   OutcomeType `json:"type"`
	Winner string      `json:"winner,omitempty"`
}

// RoundResult 一局的结算结果
type RoundResult struct {
	RoomID       string          `json:"roomId"`
	Round        int             `json:"round"`
	Participants [2]string       `json:"participants"`
	Moves        map[string]Move `json:"movesByParticipant"`
	Outcome      Outcome         `json:"outcome"`
	ResolvedAt   time.Time       `json:"-"`
}

// RoomSummary is one lobby entry.
type RoomSummary struct {
	ID          string    `json:"id"`
	CreatedAt   time.Time `json:"-"`
	CreatedAtMS int64     `json:"createdAt"`
	MemberCount int       `json:"memberCount"`
}

// RoundRecord 持久化的对局记录
type RoundRecord struct {
	RoomID     string    `json:"roomId"`
	Round      int       `json:"round"`
	PlayerA    string    `json:"playerA"`
	PlayerB    string    `json:"playerB"`
	MoveA      Move      `json:"moveA"`
	MoveB      Move      `json:"moveB"`
	Outcome    string    `json:"outcome"`
	WinnerID   string    `json:"winnerId,omitempty"`
	ResolvedAt time.Time `json:"resolvedAt"`
}

// NewRoundRecord flattens a RoundResult for storage.
func NewRoundRecord(r RoundResult) RoundRecord {
	a, b := r.Participants[0], r.Participants[1]
	return RoundRecord{
		RoomID:     r.RoomID,
		Round:      r.Round,
		PlayerA:    a,
		PlayerB:    b,
		MoveA:      r.Moves[a],
		MoveB:      r.Moves[b],
		Outcome:    string(r.Outcome.Type),
		WinnerID:   r.Outcome.Winner,
		ResolvedAt: r.ResolvedAt,
	}
}
