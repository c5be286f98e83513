package provider

import (
	"errors"
	"fmt"
)

// ErrModelNotLoaded indicates a provider was asked to transcribe before a
// model had been loaded.
var ErrModelNotLoaded = errors.New("provider: model not loaded")

// AudioTooShortError indicates the input audio is below a provider's
// minimum sample count.
type AudioTooShortError struct {
	Samples int
	Minimum int
}

func (e *AudioTooShortError) Error() string {
	return fmt.Sprintf("provider: audio too short: %d samples, minimum %d", e.Samples, e.Minimum)
}

// NewAudioTooShort constructs an AudioTooShortError.
func NewAudioTooShort(samples, minimum int) error {
	return &AudioTooShortError{Samples: samples, Minimum: minimum}
}

// EngineFailedError wraps a provider-specific engine failure message.
type EngineFailedError struct {
	Message string
}

func (e *EngineFailedError) Error() string {
	return fmt.Sprintf("provider: engine failed: %s", e.Message)
}

// NewEngineFailed constructs an EngineFailedError.
func NewEngineFailed(message string) error {
	return &EngineFailedError{Message: message}
}

// IsAudioTooShort reports whether err is (or wraps) an AudioTooShortError.
func IsAudioTooShort(err error) bool {
	var e *AudioTooShortError
	return errors.As(err, &e)
}
