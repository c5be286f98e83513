package qwenasr

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/meetily/asr-core/internal/events"
	"github.com/meetily/asr-core/internal/nativeasr"
)

// ErrModelNotFound is returned by LoadModel for an unrecognised name.
var ErrModelNotFound = fmt.Errorf("qwenasr: model not found in catalogue")

// Engine owns the on-disk catalogue state, the single loaded native
// handle, and the set of in-flight downloads. All catalogue reads/writes
// go through rw; handle swaps go through handleMu, matching §5's split
// between a shared RWMutex for the catalogue and an exclusive Mutex for
// the native handle.
type Engine struct {
	modelsDir string
	bus       *events.Bus

	rw         sync.RWMutex
	statuses   map[ModelName]ModelStatus
	activeDownloads map[ModelName]struct{}
	cancelFlag      ModelName // "" means no cancellation pending

	handleMu     sync.Mutex
	handle       *nativeasr.Handle
	currentModel ModelName
}

// NewEngine constructs an Engine rooted at modelsDir (already resolved via
// ResolveModelsDir) and runs an initial discovery pass. bus may be nil, in
// which case download/load progress is tracked internally but never
// published (used by tests that don't need an event consumer).
func NewEngine(modelsDir string, bus *events.Bus) *Engine {
	e := &Engine{
		modelsDir:       modelsDir,
		bus:             bus,
		statuses:        make(map[ModelName]ModelStatus),
		activeDownloads: make(map[ModelName]struct{}),
	}
	e.DiscoverModels()
	return e
}

func (e *Engine) publish(name events.Name, payload any) {
	if e.bus == nil {
		return
	}
	e.bus.Publish(events.Event{Name: name, Payload: payload})
}

func (e *Engine) modelPath(info ModelInfo) string {
	return filepath.Join(e.modelsDir, info.Filename)
}

// DiscoverModels rebuilds the catalogue status map atomically under the
// write lock, one entry per ModelInfo in Catalogue.
func (e *Engine) DiscoverModels() map[ModelName]ModelStatus {
	next := make(map[ModelName]ModelStatus, len(Catalogue))

	e.rw.RLock()
	downloading := make(map[ModelName]struct{}, len(e.activeDownloads))
	for name := range e.activeDownloads {
		downloading[name] = struct{}{}
	}
	e.rw.RUnlock()

	for _, info := range Catalogue {
		path := e.modelPath(info)

		if _, ok := downloading[info.Name]; ok {
			next[info.Name] = ModelStatus{Kind: StatusDownloading, Progress: 0}
			continue
		}

		size, exists := fileSize(path)
		switch {
		case !exists:
			next[info.Name] = ModelStatus{Kind: StatusMissing}
		case validateGGUF(path):
			next[info.Name] = ModelStatus{Kind: StatusAvailable}
		default:
			next[info.Name] = ModelStatus{
				Kind:        StatusCorrupted,
				FileSize:    size,
				ExpectedMin: info.SizeMB * 1024 * 1024,
			}
		}
	}

	e.rw.Lock()
	e.statuses = next
	e.rw.Unlock()

	result := make(map[ModelName]ModelStatus, len(next))
	for k, v := range next {
		result[k] = v
	}
	return result
}

// Status returns the last-discovered status for name.
func (e *Engine) Status(name ModelName) (ModelStatus, bool) {
	e.rw.RLock()
	defer e.rw.RUnlock()
	s, ok := e.statuses[name]
	return s, ok
}

// CurrentModel returns the name of the loaded model, or "" if none.
func (e *Engine) CurrentModel() ModelName {
	e.handleMu.Lock()
	defer e.handleMu.Unlock()
	return e.currentModel
}

// Handle returns the currently loaded native handle, or nil.
func (e *Engine) Handle() *nativeasr.Handle {
	e.handleMu.Lock()
	defer e.handleMu.Unlock()
	return e.handle
}

// LoadModel loads name if it is Available. A no-op if name is already
// loaded. Frees any previously loaded handle first. Publishes
// qwen-asr-model-loading-started/-completed/-failed around the attempt.
func (e *Engine) LoadModel(name ModelName) error {
	info, ok := lookupModelInfo(name)
	if !ok {
		e.publish(events.QwenModelLoadingFailed, events.QwenModelLoadingPayload{ModelName: string(name), Error: ErrModelNotFound.Error()})
		return ErrModelNotFound
	}

	status, ok := e.Status(name)
	if !ok || status.Kind != StatusAvailable {
		err := fmt.Errorf("qwenasr: model %s is not available: %s", name, status)
		e.publish(events.QwenModelLoadingFailed, events.QwenModelLoadingPayload{ModelName: string(name), Error: err.Error()})
		return err
	}

	e.publish(events.QwenModelLoadingStarted, events.QwenModelLoadingPayload{ModelName: string(name)})

	e.handleMu.Lock()
	defer e.handleMu.Unlock()

	if e.currentModel == name && e.handle != nil {
		e.publish(events.QwenModelLoadingCompleted, events.QwenModelLoadingPayload{ModelName: string(name)})
		return nil
	}

	if e.handle != nil {
		e.handle.Close()
		e.handle = nil
		e.currentModel = ""
	}

	handle, err := nativeasr.Open(nativeasr.Options{ModelPath: e.modelPath(info)})
	if err != nil {
		wrapped := fmt.Errorf("qwenasr: load %s: %w", name, err)
		e.publish(events.QwenModelLoadingFailed, events.QwenModelLoadingPayload{ModelName: string(name), Error: wrapped.Error()})
		return wrapped
	}

	e.handle = handle
	e.currentModel = name
	e.publish(events.QwenModelLoadingCompleted, events.QwenModelLoadingPayload{ModelName: string(name)})
	return nil
}

// UnloadModel drops the current native handle and name. Idempotent.
func (e *Engine) UnloadModel() {
	e.handleMu.Lock()
	defer e.handleMu.Unlock()

	if e.handle != nil {
		e.handle.Close()
		e.handle = nil
	}
	e.currentModel = ""
}

// Batch transcribes samples using the currently loaded model.
func (e *Engine) Batch(samples []float32) (string, error) {
	e.handleMu.Lock()
	handle := e.handle
	e.handleMu.Unlock()

	if handle == nil {
		return "", nativeasr.ErrClosed
	}
	return handle.Batch(samples)
}

// Stream transcribes samples using the currently loaded model, invoking cb
// per decoded segment.
func (e *Engine) Stream(samples []float32, cb nativeasr.StreamCallback) error {
	e.handleMu.Lock()
	handle := e.handle
	e.handleMu.Unlock()

	if handle == nil {
		return nativeasr.ErrClosed
	}
	return handle.Stream(samples, cb)
}

// DeleteModel removes the on-disk file for name. Permitted only when the
// current status is Available or Corrupted.
func (e *Engine) DeleteModel(name ModelName) error {
	info, ok := lookupModelInfo(name)
	if !ok {
		return ErrModelNotFound
	}

	status, ok := e.Status(name)
	if !ok || (status.Kind != StatusAvailable && status.Kind != StatusCorrupted) {
		return fmt.Errorf("qwenasr: model %s cannot be deleted in state %s", name, status)
	}

	path := e.modelPath(info)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}

	e.rw.Lock()
	e.statuses[name] = ModelStatus{Kind: StatusMissing}
	e.rw.Unlock()
	return nil
}
