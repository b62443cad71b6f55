package inference

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Brownie44l1/malaria-api/internal/metrics"
	"github.com/Brownie44l1/malaria-api/internal/model"
	"github.com/Brownie44l1/malaria-api/internal/preprocess"
)

var ErrInference = errors.New("inference failed")

// Classifier runs one upload through preprocessing, the model and the
// decision rule. It holds no per-request state.
type Classifier struct {
	predictor model.Predictor
	strategy  preprocess.Strategy
}

// NewClassifier derives the preprocessing strategy from the predictor's
// input shape. An unsupported shape is a startup error.
func NewClassifier(p model.Predictor) (*Classifier, error) {
	strategy, err := preprocess.Derive(p.InputShape())
	if err != nil {
		return nil, err
	}
	return &Classifier{predictor: p, strategy: strategy}, nil
}

func (c *Classifier) Strategy() preprocess.Strategy {
	return c.strategy
}

func (c *Classifier) Classify(ctx context.Context, raw []byte) (model.Prediction, error) {
	prediction, err := c.classify(ctx, raw)
	if err != nil {
		metrics.PredictionFailures.WithLabelValues(Stage(err)).Inc()
		return model.Prediction{}, err
	}
	metrics.Predictions.WithLabelValues(prediction.Result).Inc()
	return prediction, nil
}

func (c *Classifier) classify(ctx context.Context, raw []byte) (model.Prediction, error) {
	img, err := preprocess.Decode(raw)
	if err != nil {
		return model.Prediction{}, err
	}

	data, err := c.strategy.Tensor(img)
	if err != nil {
		return model.Prediction{}, err
	}

	start := time.Now()
	scores, err := c.predictor.Predict(ctx, data, c.strategy.Shape())
	metrics.InferenceDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return model.Prediction{}, fmt.Errorf("%w: %w", ErrInference, err)
	}

	return model.Interpret(scores)
}

// Stage names the pipeline step an error came from.
func Stage(err error) string {
	switch {
	case errors.Is(err, preprocess.ErrDecode):
		return "decode"
	case errors.Is(err, preprocess.ErrShapeMismatch):
		return "preprocess"
	case errors.Is(err, ErrInference):
		return "inference"
	case errors.Is(err, model.ErrEmptyOutput), errors.Is(err, model.ErrInvalidScore):
		return "output"
	default:
		return "unknown"
	}
}
