package model

import (
	"context"
	"fmt"

	ort "github.com/yalue/onnxruntime_go"
)

type SessionOptions struct {
	ModelPath    string
	MetadataPath string
	LibraryPath  string
}

// Session runs an ONNX model through onnxruntime. Tensors are allocated per
// call, so one Session serves concurrent requests.
type Session struct {
	session     *ort.DynamicAdvancedSession
	inputName   string
	outputName  string
	inputShape  ort.Shape
	outputShape ort.Shape
}

func NewSession(opts SessionOptions) (*Session, error) {
	if opts.LibraryPath != "" {
		ort.SetSharedLibraryPath(opts.LibraryPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return nil, fmt.Errorf("failed to initialize ONNX environment: %w", err)
	}

	s, err := newSession(opts)
	if err != nil {
		ort.DestroyEnvironment()
		return nil, err
	}
	return s, nil
}

func newSession(opts SessionOptions) (*Session, error) {
	inputs, outputs, err := ort.GetInputOutputInfo(opts.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect model %s: %w", opts.ModelPath, err)
	}
	if len(inputs) != 1 || len(outputs) < 1 {
		return nil, fmt.Errorf("model must have exactly one input and at least one output, got %d and %d",
			len(inputs), len(outputs))
	}

	s := &Session{
		inputName:   inputs[0].Name,
		outputName:  outputs[0].Name,
		inputShape:  inputs[0].Dimensions.Clone(),
		outputShape: outputs[0].Dimensions.Clone(),
	}

	if opts.MetadataPath != "" {
		metadata, err := LoadMetadata(opts.MetadataPath)
		if err != nil {
			return nil, err
		}
		s.applyMetadata(metadata)
	}

	session, err := ort.NewDynamicAdvancedSession(opts.ModelPath,
		[]string{s.inputName}, []string{s.outputName}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}
	s.session = session

	return s, nil
}

func (s *Session) applyMetadata(m *Metadata) {
	if m.InputName != "" {
		s.inputName = m.InputName
	}
	if m.OutputName != "" {
		s.outputName = m.OutputName
	}
	if len(m.InputShape) > 0 {
		s.inputShape = ort.NewShape(m.InputShape...)
	}
	if len(m.OutputShape) > 0 {
		s.outputShape = ort.NewShape(m.OutputShape...)
	}
}

func (s *Session) InputShape() []int64 {
	return append([]int64(nil), s.inputShape...)
}

func (s *Session) Predict(ctx context.Context, data []float32, shape []int64) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(shape) == 0 {
		return nil, fmt.Errorf("empty input shape")
	}

	inputTensor, err := ort.NewTensor(ort.NewShape(shape...), data)
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}
	defer inputTensor.Destroy()

	outputTensor, err := ort.NewEmptyTensor[float32](concreteShape(s.outputShape, shape[0]))
	if err != nil {
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}
	defer outputTensor.Destroy()

	if err := s.session.Run([]ort.ArbitraryTensor{inputTensor}, []ort.ArbitraryTensor{outputTensor}); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	// The tensor memory is released on return.
	return append([]float32(nil), outputTensor.GetData()...), nil
}

func (s *Session) Close() {
	if s.session != nil {
		s.session.Destroy()
	}
	ort.DestroyEnvironment()
}

// concreteShape resolves dynamic dimensions: the leading one to the batch
// size, any other to 1.
func concreteShape(declared ort.Shape, batch int64) ort.Shape {
	shape := declared.Clone()
	for i, dim := range shape {
		if dim > 0 {
			continue
		}
		if i == 0 {
			shape[i] = batch
		} else {
			shape[i] = 1
		}
	}
	return shape
}
