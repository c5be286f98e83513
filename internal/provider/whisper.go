package provider

import (
	"context"
	"sync"

	"github.com/meetily/asr-core/internal/nativeasr"
)

// WhisperProvider adapts a local whisper.cpp-backed nativeasr.Handle to the
// Provider contract. It never sets Confidence and always reports final
// (non-partial) results for a Batch call.
type WhisperProvider struct {
	mu        sync.Mutex
	handle    *nativeasr.Handle
	modelName string
}

// NewWhisperProvider wraps an already-opened handle. modelName is cosmetic
// (surfaced via CurrentModel) and does not affect decoding.
func NewWhisperProvider(handle *nativeasr.Handle, modelName string) *WhisperProvider {
	return &WhisperProvider{handle: handle, modelName: modelName}
}

func (p *WhisperProvider) Name() string { return "whisper" }

func (p *WhisperProvider) IsModelLoaded() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.handle != nil
}

func (p *WhisperProvider) CurrentModel() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.handle == nil {
		return ""
	}
	return p.modelName
}

func (p *WhisperProvider) Transcribe(ctx context.Context, samples []float32, language string) (TranscriptResult, error) {
	p.mu.Lock()
	handle := p.handle
	p.mu.Unlock()

	if handle == nil {
		return TranscriptResult{}, ErrModelNotLoaded
	}

	text, err := handle.Batch(samples)
	if err != nil {
		return TranscriptResult{}, NewEngineFailed(err.Error())
	}
	return TranscriptResult{Text: text, Confidence: nil, IsPartial: false}, nil
}
