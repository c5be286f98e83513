package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/meetily/asr-core/internal/audio"
	"github.com/meetily/asr-core/internal/events"
	"github.com/meetily/asr-core/internal/logging"
	"github.com/meetily/asr-core/internal/metrics"
	"github.com/meetily/asr-core/internal/provider"
	"github.com/meetily/asr-core/internal/textproc"
)

// Dispatcher owns the worker pool state described in §3: atomic counters
// for queued/completed chunks, a one-shot speech-detected flag, a
// monotonic sequence counter, and the mutex-guarded last-transcript state
// used for dedup and refinement detection.
type Dispatcher struct {
	NWorkers int
	Source   string // surfaced as TranscriptUpdate.Source, e.g. provider name
	Language string

	provider provider.Provider
	bus      *events.Bus
	log      *slog.Logger
	metrics  *metrics.Metrics

	chunksQueued          atomic.Uint64
	chunksCompleted        atomic.Uint64
	inputFinished          atomic.Bool
	speechDetectedEmitted  atomic.Bool
	sequenceCounter        atomic.Uint64

	mu             sync.Mutex
	lastTranscript lastTranscriptState
}

// NewDispatcher constructs a Dispatcher with NWorkers defaulting to 1 per
// spec §4.7 when n < 1.
func NewDispatcher(p provider.Provider, bus *events.Bus, n int, language string) *Dispatcher {
	if n < 1 {
		n = 1
	}
	return &Dispatcher{
		NWorkers: n,
		Source:   p.Name(),
		Language: language,
		provider: p,
		bus:      bus,
		log:      logging.For(logging.ComponentPipeline),
	}
}

// WithMetrics attaches a metrics sink; nil detaches it. Returns the
// Dispatcher for chaining at construction time.
func (d *Dispatcher) WithMetrics(m *metrics.Metrics) *Dispatcher {
	d.metrics = m
	return d
}

// ResetSpeechDetectedFlag implements reset_speech_detected_flag: called by
// the recording controller at the start of a new session.
func (d *Dispatcher) ResetSpeechDetectedFlag() {
	d.speechDetectedEmitted.Store(false)
	d.mu.Lock()
	d.lastTranscript = lastTranscriptState{}
	d.mu.Unlock()
}

// Run is the single entrypoint: it dispatches every chunk received on
// chunks to NWorkers workers, closes the work channel when chunks closes,
// waits for all workers to drain, and verifies chunksCompleted ==
// chunksQueued before returning.
func (d *Dispatcher) Run(ctx context.Context, chunks <-chan AudioChunk) error {
	work := make(chan AudioChunk)

	group, gctx := errgroup.WithContext(ctx)
	for i := 0; i < d.NWorkers; i++ {
		workerID := i
		group.Go(func() error {
			d.worker(gctx, workerID, work)
			return nil
		})
	}

	for {
		select {
		case chunk, ok := <-chunks:
			if !ok {
				d.inputFinished.Store(true)
				close(work)
				if err := group.Wait(); err != nil {
					return err
				}
				return d.verifyDrained()
			}
			d.chunksQueued.Add(1)
			if d.metrics != nil {
				d.metrics.ChunksQueued.Inc()
			}
			select {
			case work <- chunk:
			case <-gctx.Done():
				close(work)
				group.Wait()
				return gctx.Err()
			}
		case <-gctx.Done():
			close(work)
			group.Wait()
			return gctx.Err()
		}
	}
}

func (d *Dispatcher) verifyDrained() error {
	for i := 0; i < drainPollAttempts; i++ {
		if d.chunksCompleted.Load() == d.chunksQueued.Load() {
			d.publishQueueComplete()
			return nil
		}
		time.Sleep(drainPollInterval)
	}

	queued := d.chunksQueued.Load()
	completed := d.chunksCompleted.Load()
	lost := queued - completed
	if d.metrics != nil {
		d.metrics.ChunkLossEvents.Inc()
	}
	d.bus.Publish(events.Event{
		Name: events.TranscriptChunkLossDetected,
		Payload: events.TranscriptChunkLossDetectedPayload{
			ChunksQueued:    queued,
			ChunksCompleted: completed,
			ChunksLost:      lost,
			Message:         fmt.Sprintf("%d of %d chunks were never completed", lost, queued),
		},
	})
	return fmt.Errorf("pipeline: chunk loss detected: completed %d of %d queued", completed, queued)
}

func (d *Dispatcher) publishQueueComplete() {
	d.bus.Publish(events.Event{
		Name: events.TranscriptionQueueComplete,
		Payload: events.TranscriptionQueueCompletePayload{
			TotalChunks: d.chunksQueued.Load(),
			Message:     "transcription queue drained",
		},
	})
}

func (d *Dispatcher) worker(ctx context.Context, workerID int, work <-chan AudioChunk) {
	for {
		select {
		case chunk, ok := <-work:
			if !ok {
				return
			}
			d.processChunk(ctx, workerID, chunk)
		case <-ctx.Done():
			return
		}
	}
}

func (d *Dispatcher) processChunk(ctx context.Context, workerID int, chunk AudioChunk) {
	defer func() {
		completed := d.chunksCompleted.Add(1)
		if d.metrics != nil {
			d.metrics.ChunksCompleted.Inc()
		}
		if completed%progressEveryNCompletions == 0 {
			d.publishProgress(workerID, completed)
		}
	}()

	samples := audio.ResampleTo16kHz(chunk.Data, int(chunk.SampleRate))

	if len(samples) == 0 {
		err := provider.NewAudioTooShort(0, 1600)
		d.log.Debug("chunk rejected: empty audio", "chunk_id", chunk.ChunkID, "err", err)
		return
	}

	energy := audio.MeanSquaredEnergy(samples)
	d.log.Debug("processing chunk", "chunk_id", chunk.ChunkID, "samples", len(samples), "energy", energy)

	result, err := d.transcribe(ctx, chunk, samples)
	if err != nil {
		if d.metrics != nil {
			d.metrics.TranscriptionErrors.Inc()
		}
		d.bus.Publish(events.Event{
			Name: events.TranscriptionError,
			Payload: events.TranscriptionErrorPayload{
				Error:       err.Error(),
				UserMessage: "transcription failed for one audio segment",
				Actionable:  false,
			},
		})
		return
	}

	threshold := float32(confidenceThresholdNone)
	if result.Confidence != nil {
		threshold = confidenceThresholdScored
	}
	if result.Confidence != nil && *result.Confidence < threshold {
		return
	}
	if strings.TrimSpace(result.Text) == "" {
		return
	}

	if d.speechDetectedEmitted.CompareAndSwap(false, true) {
		d.bus.Publish(events.Event{
			Name:    events.SpeechDetected,
			Payload: events.SpeechDetectedPayload{Message: "speech detected"},
		})
	}

	audioStart := chunk.Timestamp
	audioEnd := chunk.Timestamp + chunk.Duration()

	d.mu.Lock()
	last := d.lastTranscript
	isRefinement := !result.IsPartial &&
		audioStart < last.audioEndTime-refinementGapThreshold &&
		chunk.Duration() > refinementMinDurationSecs

	gap := audioStart - last.audioEndTime
	dedupEligible := !result.IsPartial && !isRefinement && gap >= dedupGapMin && gap <= dedupGapMax

	text := result.Text
	if dedupEligible {
		text = textproc.DedupOverlap(last.text, result.Text)
	}

	if strings.TrimSpace(text) == "" {
		d.mu.Unlock()
		return
	}

	sequenceID := d.sequenceCounter.Add(1)
	if d.metrics != nil {
		d.metrics.SequenceID.Set(float64(sequenceID))
	}

	newEnd := audioEnd
	if isRefinement && last.audioEndTime > newEnd {
		newEnd = last.audioEndTime
	}
	d.lastTranscript = lastTranscriptState{text: result.Text, audioEndTime: newEnd}
	d.mu.Unlock()

	confidence := float32(defaultConfidence)
	if result.Confidence != nil {
		confidence = *result.Confidence
	}

	update := TranscriptUpdate{
		Text:               text,
		WallClockTimestamp: formatWallClock(time.Now()),
		Source:             d.Source,
		SequenceID:         sequenceID,
		ChunkStartTime:     chunk.Timestamp,
		IsPartial:          result.IsPartial,
		Confidence:         confidence,
		AudioStartTime:     audioStart,
		AudioEndTime:       audioEnd,
		Duration:           chunk.Duration(),
		IsRefinement:       isRefinement,
	}

	d.bus.Publish(events.Event{
		Name: events.TranscriptUpdate,
		Payload: events.TranscriptUpdatePayload{
			Text:               update.Text,
			WallClockTimestamp: time.Now(),
			Source:             update.Source,
			SequenceID:         update.SequenceID,
			ChunkStartTime:     update.ChunkStartTime,
			IsPartial:          update.IsPartial,
			Confidence:         update.Confidence,
			AudioStartTime:     update.AudioStartTime,
			AudioEndTime:       update.AudioEndTime,
			Duration:           update.Duration,
			IsRefinement:       update.IsRefinement,
		},
	})
}

func (d *Dispatcher) transcribe(ctx context.Context, chunk AudioChunk, samples []float32) (provider.TranscriptResult, error) {
	streaming, ok := d.provider.(provider.StreamingProvider)
	if !ok {
		return d.provider.Transcribe(ctx, samples, d.Language)
	}

	var buffer strings.Builder
	tokenCount := 0
	result, err := streaming.TranscribeStream(ctx, samples, d.Language, func(token string) bool {
		tokenCount++
		if buffer.Len() > 0 {
			buffer.WriteByte(' ')
		}
		buffer.WriteString(token)

		if tokenCount%5 == 0 {
			d.bus.Publish(events.Event{
				Name: events.TranscriptPartial,
				Payload: events.TranscriptPartialPayload{
					ChunkID:        fmt.Sprintf("%d", chunk.ChunkID),
					Text:           textproc.StripLanguagePrefix(buffer.String()),
					ChunkStartTime: chunk.Timestamp,
					AudioStartTime: chunk.Timestamp,
					AudioEndTime:   chunk.Timestamp + chunk.Duration(),
				},
			})
		}
		return true
	})
	return result, err
}

func (d *Dispatcher) publishProgress(workerID int, completed uint64) {
	queued := d.chunksQueued.Load()
	pct := 0.0
	if queued > 0 {
		pct = float64(completed) / float64(queued) * 100
	}
	d.bus.Publish(events.Event{
		Name: events.TranscriptionProgress,
		Payload: events.TranscriptionProgressPayload{
			WorkerID:           workerID,
			ChunksCompleted:    completed,
			ChunksQueued:       queued,
			ProgressPercentage: pct,
			Message:            "",
		},
	})
}
