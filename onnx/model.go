package onnx

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/krau/bloodgroup/service"
	ort "github.com/yalue/onnxruntime_go"
)

var ErrClosed = errors.New("model is closed")

type Options struct {
	// Workers is the number of sessions, i.e. concurrent predictions.
	Workers        int
	IntraOpThreads int
}

type session struct {
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
}

func (s *session) destroy() {
	if s.session != nil {
		s.session.Destroy()
	}
	if s.input != nil {
		s.input.Destroy()
	}
	if s.output != nil {
		s.output.Destroy()
	}
}

// Model is a classifier backed by a pool of ONNX Runtime sessions.
type Model struct {
	InputName  string
	OutputName string

	pool     chan *session
	sessions []*session
	mu       sync.RWMutex
	closed   bool
}

// Open builds opts.Workers sessions for the model at path. The environment
// must already be initialized.
func Open(path string, opts Options) (*Model, error) {
	if !ort.IsInitialized() {
		return nil, errors.New("ONNX Runtime environment is not initialized")
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}

	inputs, outputs, err := ort.GetInputOutputInfo(path)
	if err != nil {
		return nil, fmt.Errorf("failed to get model input/output info: %w", err)
	}
	if len(inputs) == 0 || len(outputs) == 0 {
		return nil, fmt.Errorf("model has %d inputs and %d outputs", len(inputs), len(outputs))
	}
	if err := checkInput(inputs[0].Dimensions); err != nil {
		return nil, err
	}
	if err := checkOutput(outputs[0].Dimensions); err != nil {
		return nil, err
	}

	so, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("failed to create session options: %w", err)
	}
	defer so.Destroy()
	if opts.IntraOpThreads > 0 {
		if err := so.SetIntraOpNumThreads(opts.IntraOpThreads); err != nil {
			return nil, fmt.Errorf("failed to set intra-op threads: %w", err)
		}
	}

	m := &Model{
		InputName:  inputs[0].Name,
		OutputName: outputs[0].Name,
		pool:       make(chan *session, opts.Workers),
	}
	for i := 0; i < opts.Workers; i++ {
		s, err := m.newSession(path, so)
		if err != nil {
			m.Close()
			return nil, err
		}
		m.sessions = append(m.sessions, s)
		m.pool <- s
	}
	return m, nil
}

func (m *Model) newSession(path string, so *ort.SessionOptions) (*session, error) {
	s := &session{}
	var err error
	s.input, err = ort.NewEmptyTensor[float32](ort.NewShape(service.InputShape()...))
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}
	s.output, err = ort.NewEmptyTensor[float32](ort.NewShape(1, service.ClassCount))
	if err != nil {
		s.destroy()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}
	s.session, err = ort.NewAdvancedSession(
		path,
		[]string{m.InputName},
		[]string{m.OutputName},
		[]ort.Value{s.input},
		[]ort.Value{s.output},
		so,
	)
	if err != nil {
		s.destroy()
		return nil, fmt.Errorf("failed to create ONNX Runtime session: %w", err)
	}
	return s, nil
}

// Predict waits for a free session, runs it and returns a copy of the
// probabilities.
func (m *Model) Predict(ctx context.Context, input service.Tensor) ([]float32, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}

	var s *session
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case s = <-m.pool:
	}
	defer func() { m.pool <- s }()

	dst := s.input.GetData()
	if len(input.Data) != len(dst) {
		return nil, fmt.Errorf("input has %d values, model expects %d", len(input.Data), len(dst))
	}
	copy(dst, input.Data)
	if err := s.session.Run(); err != nil {
		return nil, err
	}

	out := s.output.GetData()
	probs := make([]float32, len(out))
	copy(probs, out)
	return probs, nil
}

// Close waits for running predictions and releases every session.
func (m *Model) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	for _, s := range m.sessions {
		s.destroy()
	}
}

// Opener adapts Open to service.LoadModel.
func Opener(opts Options) service.Opener {
	return func(path string) (service.Model, error) {
		m, err := Open(path, opts)
		if err != nil {
			return nil, err
		}
		return m, nil
	}
}

func checkInput(dims ort.Shape) error {
	want := service.InputShape()
	if len(dims) != len(want) {
		return fmt.Errorf("model input has shape %v, want %v", dims, want)
	}
	for i := 1; i < len(want); i++ {
		if dims[i] != want[i] {
			return fmt.Errorf("model input has shape %v, want %v", dims, want)
		}
	}
	return nil
}

func checkOutput(dims ort.Shape) error {
	if len(dims) == 0 || dims[len(dims)-1] != service.ClassCount {
		return fmt.Errorf("model output has shape %v, want [?, %d]", dims, service.ClassCount)
	}
	return nil
}
