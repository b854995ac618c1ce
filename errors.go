package monoart

import (
	"context"
	"errors"
	"fmt"

	"github.com/Barryalien23/monoart/imageutil"
)

var (
	// ErrGPUUnavailable is returned when a GPU-only feature is used without
	// a hardware device.
	ErrGPUUnavailable = errors.New("monoart: GPU unavailable")

	// ErrUnsupportedPixelFormat is returned for sources the engine cannot
	// ingest or convert.
	ErrUnsupportedPixelFormat = imageutil.ErrUnsupportedPixelFormat
)

// ConfigurationError reports a setup-time failure.
type ConfigurationError struct {
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("monoart: configuration failure: %s: %v", e.Reason, e.Err)
	}
	return "monoart: configuration failure: " + e.Reason
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// InternalError reports a per-render resource failure. The engine stays
// usable; the caller may retry with a new frame.
type InternalError struct {
	Reason string
	Err    error
}

func (e *InternalError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("monoart: internal error: %s: %v", e.Reason, e.Err)
	}
	return "monoart: internal error: " + e.Reason
}

func (e *InternalError) Unwrap() error { return e.Err }

// IsCancelled reports whether err only signals that the caller gave up.
// Cancelled renders produce no frame and are not failures.
func IsCancelled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// translate maps stage errors into the engine's error taxonomy.
func translate(reason string, err error) error {
	if err == nil || IsCancelled(err) || errors.Is(err, ErrUnsupportedPixelFormat) {
		return err
	}
	var cfg *ConfigurationError
	var internal *InternalError
	if errors.As(err, &cfg) || errors.As(err, &internal) {
		return err
	}
	return &InternalError{Reason: reason, Err: err}
}
