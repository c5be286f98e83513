// Package provider defines the uniform transcription-provider contract
// (C2) and its concrete implementations (C3): local Whisper, local
// Parakeet, local Qwen3-ASR, and the remote OpenAI speech-to-text API.
package provider

import "context"

// TranscriptResult is the provider's raw output for one audio chunk,
// before dedup/refinement logic runs in the worker pool.
type TranscriptResult struct {
	Text       string
	Confidence *float32 // nil when the provider doesn't report confidence
	IsPartial  bool
}

// Provider is the uniform contract every transcription back-end satisfies.
type Provider interface {
	// Transcribe converts 16 kHz mono f32 audio into text. language is a
	// BCP-47-ish hint; empty means auto-detect.
	Transcribe(ctx context.Context, audio []float32, language string) (TranscriptResult, error)
	// IsModelLoaded reports whether a model is ready to serve requests.
	IsModelLoaded() bool
	// CurrentModel names the loaded model, or "" if none.
	CurrentModel() string
	// Name is the provider's static identifier, e.g. "whisper", "qwen3".
	Name() string
}

// StreamingProvider is implemented by providers that can deliver
// incremental text during a transcription (currently only Qwen3Provider).
// onToken is invoked synchronously, once per decoded segment, after the
// native decode of the buffer has finished; returning false stops delivery
// of the remaining segments, mirroring the native layer's callback contract.
type StreamingProvider interface {
	Provider
	TranscribeStream(ctx context.Context, audio []float32, language string, onToken func(string) bool) (TranscriptResult, error)
}
