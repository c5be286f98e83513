package provider

import (
	"context"
	"sync"

	"github.com/meetily/asr-core/internal/nativeasr"
	"github.com/meetily/asr-core/internal/textproc"
)

// Qwen3Provider adapts the local Qwen3-ASR nativeasr.Handle to the
// Provider contract. Unlike Whisper/Parakeet, Qwen3-ASR concatenates a
// "language <Name>" tag onto its raw output, which this adapter strips
// before returning the result.
type Qwen3Provider struct {
	mu        sync.Mutex
	handle    *nativeasr.Handle
	modelName string
}

func NewQwen3Provider(handle *nativeasr.Handle, modelName string) *Qwen3Provider {
	return &Qwen3Provider{handle: handle, modelName: modelName}
}

func (p *Qwen3Provider) Name() string { return "qwen3" }

func (p *Qwen3Provider) IsModelLoaded() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.handle != nil
}

func (p *Qwen3Provider) CurrentModel() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.handle == nil {
		return ""
	}
	return p.modelName
}

// SetHandle swaps in a newly loaded handle, e.g. after internal/qwenasr
// finishes loading a different model. Passing nil unloads.
func (p *Qwen3Provider) SetHandle(handle *nativeasr.Handle, modelName string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handle = handle
	p.modelName = modelName
}

func (p *Qwen3Provider) Transcribe(ctx context.Context, samples []float32, language string) (TranscriptResult, error) {
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
	text = textproc.StripLanguagePrefix(text)
	return TranscriptResult{Text: text, Confidence: nil, IsPartial: false}, nil
}

// TranscribeStream decodes samples and invokes onToken per decoded segment
// (cleaned of the language-prefix tag), in addition to returning the final
// accumulated text once decoding completes.
func (p *Qwen3Provider) TranscribeStream(ctx context.Context, samples []float32, language string, onToken func(string) bool) (TranscriptResult, error) {
	p.mu.Lock()
	handle := p.handle
	p.mu.Unlock()

	if handle == nil {
		return TranscriptResult{}, ErrModelNotLoaded
	}

	var accumulated []string
	err := handle.Stream(samples, func(token string) bool {
		clean := textproc.StripLanguagePrefix(token)
		accumulated = append(accumulated, clean)
		if onToken != nil {
			return onToken(clean)
		}
		return true
	})
	if err != nil {
		return TranscriptResult{}, NewEngineFailed(err.Error())
	}

	text := textproc.StripLanguagePrefix(joinTokens(accumulated))
	return TranscriptResult{Text: text, Confidence: nil, IsPartial: false}, nil
}

func joinTokens(tokens []string) string {
	result := ""
	for _, t := range tokens {
		if t == "" {
			continue
		}
		if result != "" {
			result += " "
		}
		result += t
	}
	return result
}
