package controller

import (
	"context"
	"image"

	domain "github.com/oshokin/catpoint/internal/domain/security"
)

// ImageAnalyzer decides whether a picture contains a cat.
type ImageAnalyzer interface {
	// DetectCat reports whether img contains a cat with at least
	// confidenceThreshold percent confidence.
	DetectCat(ctx context.Context, img image.Image, confidenceThreshold float32) (bool, error)
}

// StatusListener receives alarm notifications.
// Implementations must be comparable (usually a pointer) because listeners are kept in a set;
// AddStatusListener rejects other types.
type StatusListener interface {
	AlarmStatusChanged(ctx context.Context, status domain.AlarmStatus)
	CatDetected(ctx context.Context, detected bool)
}
