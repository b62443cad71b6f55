package model

import (
	"errors"
	"fmt"
	"math"
)

// The trained network emits a single sigmoid: 1 means Uninfected. Threshold
// and labels are tied to that convention and are not configurable.
const (
	Threshold   = 0.5
	Parasitized = "Parasitized"
	Uninfected  = "Uninfected"
)

var (
	ErrEmptyOutput  = errors.New("model returned no predictions")
	ErrInvalidScore = errors.New("model score outside [0, 1]")
)

// Interpret maps the first output scalar to a label. The reported confidence
// belongs to the chosen label, so it is never below the threshold.
func Interpret(scores []float32) (Prediction, error) {
	if len(scores) == 0 {
		return Prediction{}, ErrEmptyOutput
	}

	score := float64(scores[0])
	if math.IsNaN(score) || score < 0 || score > 1 {
		return Prediction{}, fmt.Errorf("%w: %v", ErrInvalidScore, score)
	}
	if score > Threshold {
		return Prediction{Result: Uninfected, Confidence: score}, nil
	}
	return Prediction{Result: Parasitized, Confidence: 1 - score}, nil
}
