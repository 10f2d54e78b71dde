package models

import (
	"errors"
	"fmt"
)

// ErrModelUnavailable is returned when the wrapper was constructed without a
// usable model handle. It is the only condition that makes the service report
// itself unhealthy.
var ErrModelUnavailable = errors.New("model artifact not loaded")

// ValidationError rejects a malformed request field. Caller's fault; maps to
// HTTP 400 at the transport boundary.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// FeatureShapeError signals a contract violation between the feature builder
// and the model artifact (missing feature or width mismatch). It indicates an
// artifact/version mismatch and must never be absorbed.
type FeatureShapeError struct {
	Detail string
}

func (e *FeatureShapeError) Error() string {
	return "feature shape mismatch: " + e.Detail
}

// ArtifactError wraps a failure to load a persisted artifact (model or
// encoding table) at process start. Fatal: serving must not begin.
type ArtifactError struct {
	Source string
	Err    error
}

func (e *ArtifactError) Error() string {
	return fmt.Sprintf("artifact %s: %v", e.Source, e.Err)
}

func (e *ArtifactError) Unwrap() error { return e.Err }
