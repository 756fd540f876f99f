package onnx

import (
	"fmt"
	"os"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// Session runs a model with one float32 input and one float32 output.
// Dynamic dimensions are pinned when the session is opened.
type Session struct {
	mu      sync.Mutex
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]

	InputName   string
	OutputName  string
	InputShape  ort.Shape
	OutputShape ort.Shape
}

// Open loads modelPath. spatial replaces dynamic height/width dimensions.
func (r *Runtime) Open(modelPath string, spatial int) (*Session, error) {
	if err := r.Init(); err != nil {
		return nil, err
	}

	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("model not found: %w", err)
	}

	inputs, outputs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect model: %w", err)
	}
	if len(inputs) == 0 || len(outputs) == 0 {
		return nil, fmt.Errorf("model %s declares no inputs or outputs", modelPath)
	}

	inShape := pinShape(inputs[0].Dimensions, spatial)
	outShape := pinShape(outputs[0].Dimensions, spatial)

	inTensor, err := ort.NewEmptyTensor[float32](inShape)
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}

	outTensor, err := ort.NewEmptyTensor[float32](outShape)
	if err != nil {
		inTensor.Destroy()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(
		modelPath,
		[]string{inputs[0].Name},
		[]string{outputs[0].Name},
		[]ort.Value{inTensor},
		[]ort.Value{outTensor},
		nil,
	)
	if err != nil {
		inTensor.Destroy()
		outTensor.Destroy()
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}

	r.logger.Info("OnnxRuntime", "model loaded", map[string]interface{}{
		"model":        modelPath,
		"input":        inputs[0].Name,
		"input_shape":  inShape.String(),
		"output":       outputs[0].Name,
		"output_shape": outShape.String(),
	})

	return &Session{
		session:     session,
		input:       inTensor,
		output:      outTensor,
		InputName:   inputs[0].Name,
		OutputName:  outputs[0].Name,
		InputShape:  inShape,
		OutputShape: outShape,
	}, nil
}

// Run lets fill write the input tensor, runs inference and returns a copy of
// the output tensor.
func (s *Session) Run(fill func(input []float32)) ([]float32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session == nil {
		return nil, fmt.Errorf("session is closed")
	}

	fill(s.input.GetData())

	if err := s.session.Run(); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	data := s.output.GetData()
	out := make([]float32, len(data))
	copy(out, data)
	return out, nil
}

func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session == nil {
		return nil
	}

	err := s.session.Destroy()
	s.input.Destroy()
	s.output.Destroy()
	s.session = nil
	return err
}

// pinShape replaces dynamic dimensions: batch becomes 1, channel-sized
// dimensions are left alone, everything else becomes spatial.
func pinShape(dims ort.Shape, spatial int) ort.Shape {
	shape := make(ort.Shape, len(dims))
	for i, d := range dims {
		switch {
		case d > 0:
			shape[i] = d
		case i == 0:
			shape[i] = 1
		default:
			shape[i] = int64(spatial)
		}
	}
	return shape
}
