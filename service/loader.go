package service

import (
	"fmt"
	"os"

	"go.uber.org/zap"
)

// LoadModel opens the artifact at path once. On failure it logs enough context
// to locate the file and returns an error; callers keep serving without a model.
func LoadModel(log *zap.Logger, path string, open Opener) (Model, error) {
	log.Info("Loading model", zap.String("path", path))

	if _, err := os.Stat(path); err != nil {
		fields := []zap.Field{zap.String("path", path), zap.Error(err)}
		if wd, werr := os.Getwd(); werr == nil {
			fields = append(fields, zap.String("working_dir", wd))
		}
		if entries, derr := os.ReadDir("."); derr == nil {
			names := make([]string, 0, len(entries))
			for _, e := range entries {
				names = append(names, e.Name())
			}
			fields = append(fields, zap.Strings("contents", names))
		}
		log.Error("Model file not found", fields...)
		return nil, fmt.Errorf("%w: %s", ErrModelNotFound, path)
	}

	m, err := open(path)
	if err != nil {
		log.Error("Error loading model", zap.String("path", path), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrModelLoad, err)
	}
	if m == nil {
		log.Error("Model opener returned no model", zap.String("path", path))
		return nil, fmt.Errorf("%w: %s", ErrModelLoad, path)
	}

	log.Info("Model loaded successfully", zap.String("path", path))
	return m, nil
}
