package classifier

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/wfunc/rpsarena/models"
)

var (
	ErrNoGesture     = errors.New("no gesture detected")
	ErrLowConfidence = errors.New("prediction below confidence threshold")
)

// Prediction 手势识别结果
type Prediction struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Classifier turns a raw sensor frame into a gesture label.
type Classifier interface {
	Predict(ctx context.Context, frame []byte) (Prediction, error)
}

// ToMove accepts a prediction at or above minConfidence and maps it to a Move.
func ToMove(p Prediction, minConfidence float64) (models.Move, error) {
	if p.Confidence < minConfidence {
		return "", fmt.Errorf("%w: %.2f < %.2f", ErrLowConfidence, p.Confidence, minConfidence)
	}
	return models.ParseMove(p.Label)
}

// TextClassifier reads a typed gesture. It accepts full names and the
// single-letter shortcuts r, p and s.
type TextClassifier struct{}

var shortcuts = map[string]string{
	"r": string(models.MoveRock),
	"p": string(models.MovePaper),
	"s": string(models.MoveScissors),
}

func (TextClassifier) Predict(ctx context.Context, frame []byte) (Prediction, error) {
	if err := ctx.Err(); err != nil {
		return Prediction{}, err
	}
	label := strings.ToLower(strings.TrimSpace(string(frame)))
	if label == "" {
		return Prediction{}, ErrNoGesture
	}
	if full, ok := shortcuts[label]; ok {
		label = full
	}
	if _, err := models.ParseMove(label); err != nil {
		return Prediction{Label: label, Confidence: 0}, nil
	}
	return Prediction{Label: label, Confidence: 1}, nil
}
