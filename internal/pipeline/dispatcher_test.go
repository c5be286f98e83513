package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/meetily/asr-core/internal/events"
	"github.com/meetily/asr-core/internal/provider"
)

// fakeProvider returns a fixed transcript for every chunk; texts is
// consumed in order, one entry per call, falling back to the last entry
// once exhausted.
type fakeProvider struct {
	texts []string
	calls int
}

func (f *fakeProvider) Name() string          { return "fake" }
func (f *fakeProvider) IsModelLoaded() bool   { return true }
func (f *fakeProvider) CurrentModel() string  { return "fake-model" }
func (f *fakeProvider) Transcribe(ctx context.Context, audio []float32, language string) (provider.TranscriptResult, error) {
	idx := f.calls
	if idx >= len(f.texts) {
		idx = len(f.texts) - 1
	}
	f.calls++
	return provider.TranscriptResult{Text: f.texts[idx]}, nil
}

func collectUpdates(t *testing.T, bus *events.Bus, n int, timeout time.Duration) []events.TranscriptUpdatePayload {
	t.Helper()
	ch, unsub := bus.Subscribe()
	defer unsub()

	var updates []events.TranscriptUpdatePayload
	deadline := time.After(timeout)
	for len(updates) < n {
		select {
		case evt := <-ch:
			if evt.Name == events.TranscriptUpdate {
				updates = append(updates, evt.Payload.(events.TranscriptUpdatePayload))
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %d updates, got %d", n, len(updates))
		}
	}
	return updates
}

// TestDispatcherSequenceIDMonotonic checks invariant 2.
func TestDispatcherSequenceIDMonotonic(t *testing.T) {
	p := &fakeProvider{texts: []string{"first segment", "second totally different segment", "third unrelated content"}}
	bus := events.NewBus(nil)
	d := NewDispatcher(p, bus, 1, "")

	chunks := make(chan AudioChunk, 3)
	chunks <- AudioChunk{ChunkID: 1, Timestamp: 0, SampleRate: 16000, Data: make([]float32, 16000)}
	chunks <- AudioChunk{ChunkID: 2, Timestamp: 1, SampleRate: 16000, Data: make([]float32, 16000)}
	chunks <- AudioChunk{ChunkID: 3, Timestamp: 2, SampleRate: 16000, Data: make([]float32, 16000)}
	close(chunks)

	done := make(chan error, 1)
	go func() { done <- d.Run(context.Background(), chunks) }()

	updates := collectUpdates(t, bus, 3, 2*time.Second)
	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}

	for i := 1; i < len(updates); i++ {
		if updates[i].SequenceID <= updates[i-1].SequenceID {
			t.Errorf("sequence IDs not strictly increasing: %d then %d", updates[i-1].SequenceID, updates[i].SequenceID)
		}
	}
}

// TestDispatcherAudioEndTimeInvariant checks invariant 3:
// audio_end_time = audio_start_time + duration.
func TestDispatcherAudioEndTimeInvariant(t *testing.T) {
	p := &fakeProvider{texts: []string{"hello there friend"}}
	bus := events.NewBus(nil)
	d := NewDispatcher(p, bus, 1, "")

	chunks := make(chan AudioChunk, 1)
	chunks <- AudioChunk{ChunkID: 1, Timestamp: 3.5, SampleRate: 16000, Data: make([]float32, 16000*2)}
	close(chunks)

	done := make(chan error, 1)
	go func() { done <- d.Run(context.Background(), chunks) }()

	updates := collectUpdates(t, bus, 1, 2*time.Second)
	<-done

	u := updates[0]
	if diff := u.AudioEndTime - (u.AudioStartTime + u.Duration); diff > 1e-9 || diff < -1e-9 {
		t.Errorf("audio_end_time = %f, want %f", u.AudioEndTime, u.AudioStartTime+u.Duration)
	}
}

// TestDispatcherGracefulShutdownCompletesAllQueued checks invariant 1.
func TestDispatcherGracefulShutdownCompletesAllQueued(t *testing.T) {
	p := &fakeProvider{texts: []string{"one", "two", "three", "four"}}
	bus := events.NewBus(nil)
	d := NewDispatcher(p, bus, 2, "")

	chunks := make(chan AudioChunk, 4)
	for i := 0; i < 4; i++ {
		chunks <- AudioChunk{ChunkID: uint64(i), Timestamp: float64(i), SampleRate: 16000, Data: make([]float32, 16000)}
	}
	close(chunks)

	if err := d.Run(context.Background(), chunks); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if d.chunksCompleted.Load() != d.chunksQueued.Load() {
		t.Errorf("completed %d != queued %d", d.chunksCompleted.Load(), d.chunksQueued.Load())
	}
}

// TestDispatcherRefinementDetection checks scenario S5.
func TestDispatcherRefinementDetection(t *testing.T) {
	p := &fakeProvider{texts: []string{"...quarterly goals..."}}
	bus := events.NewBus(nil)
	d := NewDispatcher(p, bus, 1, "")
	d.lastTranscript = lastTranscriptState{text: "previous content", audioEndTime: 10.0}
	// A previous transcript was already accepted, so speech-detected has
	// already fired and the next event published is the transcript-update.
	d.speechDetectedEmitted.Store(true)

	chunk := AudioChunk{
		ChunkID:    7,
		Timestamp:  6.0,
		SampleRate: 16000,
		Data:       make([]float32, 16000*5), // 5 seconds
	}

	bus2Ch, unsub := bus.Subscribe()
	defer unsub()

	d.processChunk(context.Background(), 0, chunk)

	select {
	case evt := <-bus2Ch:
		if evt.Name != events.TranscriptUpdate {
			t.Fatalf("unexpected event %v", evt.Name)
		}
		payload := evt.Payload.(events.TranscriptUpdatePayload)
		if !payload.IsRefinement {
			t.Errorf("IsRefinement = false, want true")
		}
		if payload.AudioEndTime != 11.0 {
			t.Errorf("AudioEndTime = %f, want 11.0", payload.AudioEndTime)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for transcript-update")
	}

	if d.lastTranscript.audioEndTime != 11.0 {
		t.Errorf("lastTranscript.audioEndTime = %f, want 11.0 (max(10,11))", d.lastTranscript.audioEndTime)
	}
}
