package state

import "github.com/wfunc/rpsarena/models"

// Verdict 两个出招的比较结果
type Verdict int

const (
	Draw Verdict = iota
	FirstWins
	SecondWins
)

func (v Verdict) String() string {
	switch v {
	case FirstWins:
		return "first"
	case SecondWins:
		return "second"
	default:
		return "draw"
	}
}

// Resolve compares two valid moves.
func Resolve(first, second models.Move) Verdict {
	switch {
	case first == second:
		return Draw
	case first.Beats(second):
		return FirstWins
	default:
		return SecondWins
	}
}

// Outcome builds the broadcast outcome for two participants.
func Outcome(firstID string, first models.Move, secondID string, second models.Move) models.Outcome {
	switch Resolve(first, second) {
	case FirstWins:
		return models.Outcome{Type: models.OutcomeWin, Winner: firstID}
	case SecondWins:
		return models.Outcome{Type: models.OutcomeWin, Winner: secondID}
	default:
		return models.Outcome{Type: models.OutcomeDraw}
	}
}
