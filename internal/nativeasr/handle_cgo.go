//go:build cgo

package nativeasr

import (
	"fmt"
	"runtime"
	"strings"
	"sync"

	"github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
)

// Handle owns exactly one loaded native model and its decoding context.
// All access is serialized through mu, since whisper.cpp contexts are not
// safe for concurrent decode calls.
type Handle struct {
	mu        sync.Mutex
	model     whisper.Model
	ctx       whisper.Context
	modelPath string
	closed    bool
}

// Open loads a GGUF/ggml model from path and prepares a decoding context.
// The returned Handle must be closed with Close; a finalizer calls Close as
// a backstop if the caller forgets.
func Open(opts Options) (*Handle, error) {
	model, err := whisper.New(opts.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("nativeasr: load model: %w", err)
	}

	ctx, err := model.NewContext()
	if err != nil {
		model.Close()
		return nil, fmt.Errorf("nativeasr: create context: %w", err)
	}

	if opts.Language != "" && opts.Language != "auto" {
		ctx.SetLanguage(opts.Language)
	}
	ctx.SetMaxContext(65536)
	ctx.SetMaxTokensPerSegment(0)
	ctx.SetSplitOnWord(true)

	h := &Handle{model: model, ctx: ctx, modelPath: opts.ModelPath}
	runtime.SetFinalizer(h, func(h *Handle) { h.Close() })
	return h, nil
}

// ModelPath returns the path the handle was opened with.
func (h *Handle) ModelPath() string {
	return h.modelPath
}

func collectSegments(ctx whisper.Context) []whisper.Segment {
	var segments []whisper.Segment
	for {
		segment, err := ctx.NextSegment()
		if err != nil {
			break
		}
		segments = append(segments, segment)
	}
	return segments
}

// Batch decodes the full sample buffer in one pass and returns the
// concatenated segment text.
func (h *Handle) Batch(samples []float32) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return "", ErrClosed
	}
	if len(samples) == 0 {
		return "", nil
	}

	if err := h.ctx.Process(samples, nil, nil, nil); err != nil {
		return "", fmt.Errorf("nativeasr: process: %w", err)
	}

	var sb strings.Builder
	for _, segment := range collectSegments(h.ctx) {
		text := strings.TrimSpace(segment.Text)
		if text == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(text)
	}
	return sb.String(), nil
}

// Stream decodes samples and invokes cb once per produced segment, stopping
// early if cb returns false.
func (h *Handle) Stream(samples []float32, cb StreamCallback) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return ErrClosed
	}
	if len(samples) == 0 {
		return nil
	}

	if err := h.ctx.Process(samples, nil, nil, nil); err != nil {
		return fmt.Errorf("nativeasr: process: %w", err)
	}

	for _, segment := range collectSegments(h.ctx) {
		text := strings.TrimSpace(segment.Text)
		if text == "" {
			continue
		}
		if !cb(text) {
			break
		}
	}
	return nil
}

// Close releases the native context and model. Idempotent.
func (h *Handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	h.closed = true
	if h.model != nil {
		h.model.Close()
	}
	runtime.SetFinalizer(h, nil)
	return nil
}
