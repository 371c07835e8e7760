package service

import (
	"context"
	"fmt"
	"math"
)

// Infer runs model on input and maps the output to blood groups. Ties in the
// output resolve to the lowest index.
func Infer(ctx context.Context, model Model, input Tensor) (pred *Prediction, err error) {
	if model == nil {
		return nil, ErrModelNotLoaded
	}

	defer func() {
		if r := recover(); r != nil {
			pred = nil
			err = fmt.Errorf("%w: %v", ErrInference, r)
		}
	}()

	probs, err := model.Predict(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInference, err)
	}
	if len(probs) != ClassCount {
		return nil, fmt.Errorf("%w: got %d values, want %d", ErrUnexpectedOutput, len(probs), ClassCount)
	}

	idx := Argmax(probs)
	all := make(map[string]float64, ClassCount)
	for i, p := range probs {
		all[ClassLabels[i]] = Percent(p)
	}

	return &Prediction{
		Label:      ClassLabels[idx],
		Confidence: Percent(probs[idx]),
		All:        all,
	}, nil
}

// Classify preprocesses the image at path and runs inference on it.
func Classify(ctx context.Context, model Model, path string) (*Prediction, error) {
	if model == nil {
		return nil, ErrModelNotLoaded
	}
	input, err := PreprocessFile(path)
	if err != nil {
		return nil, err
	}
	return Infer(ctx, model, input)
}

// Argmax returns the index of the first maximum. NaN values never win.
func Argmax(v []float32) int {
	best := 0
	for i := 1; i < len(v); i++ {
		if v[i] > v[best] || (isNaN(v[best]) && !isNaN(v[i])) {
			best = i
		}
	}
	return best
}

// Percent converts a probability to a percentage rounded to two decimals.
// The scaling happens in float32, the model's output precision.
func Percent(p float32) float64 {
	return math.Round(float64(p*100)*100) / 100
}

func isNaN(f float32) bool {
	return f != f
}
