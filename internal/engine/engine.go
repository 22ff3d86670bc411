package engine

import (
	"context"

	"ytqueue/internal/job"
)

// ProgressFunc receives progress percentages in [0,100].
type ProgressFunc func(percent float64)

// GenerateRequest is the input of a generate call.
type GenerateRequest struct {
	Params job.GenerateParams `json:"params"`
	Dest   string             `json:"dest"`
}

// Generator produces a video and returns the path of the written file.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest, progress ProgressFunc) (string, error)
}

// Uploader uploads a generated video and returns the platform video id.
type Uploader interface {
	Upload(ctx context.Context, req job.UploadRequest, progress ProgressFunc) (string, error)
}

// Engine is both external operations.
type Engine interface {
	Generator
	Uploader
}
