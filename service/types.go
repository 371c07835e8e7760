package service

import (
	"context"
	"errors"
)

const (
	ImageSize  = 256
	Channels   = 3
	ClassCount = 8
)

// ResNet50 "caffe" preprocessing, channel order B, G, R.
var CaffeMean = [Channels]float32{103.939, 116.779, 123.68}

// ClassLabels maps the model's output index to its blood group.
var ClassLabels = [ClassCount]string{"A+", "A-", "AB+", "AB-", "B+", "B-", "O+", "O-"}

var (
	ErrModelNotFound    = errors.New("model file not found")
	ErrModelLoad        = errors.New("failed to load model")
	ErrModelNotLoaded   = errors.New("model not loaded")
	ErrPreprocess       = errors.New("failed to preprocess image")
	ErrUnexpectedOutput = errors.New("unexpected model output")
	ErrInference        = errors.New("inference failed")
)

// Tensor is a row-major float32 array.
type Tensor struct {
	Shape []int64
	Data  []float32
}

// InputShape is the NHWC shape the classifier expects.
func InputShape() []int64 {
	return []int64{1, ImageSize, ImageSize, Channels}
}

// Model is a loaded classifier. Predict returns one probability per class for
// the single image in the batch. Implementations must be safe for concurrent use.
type Model interface {
	Predict(ctx context.Context, input Tensor) ([]float32, error)
}

// Opener deserializes a model artifact.
type Opener func(path string) (Model, error)

type Prediction struct {
	Label      string             `json:"blood_group"`
	Confidence float64            `json:"confidence"`
	All        map[string]float64 `json:"all_predictions"`
}
