package model

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
)

// Predictor is a loaded classifier. Implementations are shared by concurrent
// requests and must not mutate state in Predict.
type Predictor interface {
	// InputShape is the declared input shape including the leading batch
	// dimension. Dynamic dimensions are negative.
	InputShape() []int64
	Predict(ctx context.Context, data []float32, shape []int64) ([]float32, error)
}

// Metadata is the optional JSON sidecar shipped next to a model file. Zero
// fields fall back to what the model itself declares.
type Metadata struct {
	InputName   string  `json:"input_name"`
	OutputName  string  `json:"output_name"`
	InputShape  []int64 `json:"input_shape"`
	OutputShape []int64 `json:"output_shape"`
}

func LoadMetadata(path string) (*Metadata, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata: %w", err)
	}

	var metadata Metadata
	if err := json.Unmarshal(raw, &metadata); err != nil {
		return nil, fmt.Errorf("failed to parse metadata: %w", err)
	}
	return &metadata, nil
}

// Prediction is the per-request classification outcome.
type Prediction struct {
	Result     string  `json:"result"`
	Confidence float64 `json:"confidence"`
}
