package provider

import (
	"context"
	"sync"

	"github.com/meetily/asr-core/internal/nativeasr"
)

// ParakeetProvider adapts a local Parakeet-family nativeasr.Handle to the
// Provider contract. Structurally identical to WhisperProvider: the
// difference lives in which GGUF model was loaded into the handle, not in
// this adapter's logic.
type ParakeetProvider struct {
	mu        sync.Mutex
	handle    *nativeasr.Handle
	modelName string
}

func NewParakeetProvider(handle *nativeasr.Handle, modelName string) *ParakeetProvider {
	return &ParakeetProvider{handle: handle, modelName: modelName}
}

func (p *ParakeetProvider) Name() string { return "parakeet" }

func (p *ParakeetProvider) IsModelLoaded() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.handle != nil
}

func (p *ParakeetProvider) CurrentModel() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.handle == nil {
		return ""
	}
	return p.modelName
}

func (p *ParakeetProvider) Transcribe(ctx context.Context, samples []float32, language string) (TranscriptResult, error) {
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
