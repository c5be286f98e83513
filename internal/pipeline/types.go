// Package pipeline implements the worker pool / dispatcher (C7): it reads
// AudioChunks from an inbound channel, resamples and transcribes each with
// a provider.Provider, deduplicates and sequences the results, and
// publishes TranscriptUpdate events. Grounded in the teacher's
// WhisperGoTranscriber.ProcessAudioChunk buffering/processing loop,
// generalized from a single in-process buffer into a channel-fed worker
// pool per spec §4.7, fanned out with golang.org/x/sync/errgroup the way
// the richer example repos (glyphoxa's hotctx/assembler.go,
// mcp/mcphost/calibrate.go) dispatch-then-drain worker goroutines.
package pipeline

import "time"

// AudioChunk is one unit of inbound audio to transcribe.
type AudioChunk struct {
	ChunkID    uint64
	Timestamp  float64 // seconds from recording start
	SampleRate uint32
	Data       []float32
}

// Duration returns the chunk's length in seconds given its sample rate.
func (c AudioChunk) Duration() float64 {
	if c.SampleRate == 0 {
		return 0
	}
	return float64(len(c.Data)) / float64(c.SampleRate)
}

// TranscriptUpdate is the finalized, sequenced, deduplicated transcript
// segment published for one chunk (or merged refinement window).
type TranscriptUpdate struct {
	Text               string
	WallClockTimestamp string // "HH:MM:SS"
	Source             string
	SequenceID         uint64
	ChunkStartTime     float64
	IsPartial          bool
	Confidence         float32
	AudioStartTime     float64
	AudioEndTime       float64
	Duration           float64
	IsRefinement       bool
}

func formatWallClock(t time.Time) string {
	return t.Format("15:04:05")
}

// lastTranscriptState tracks the most recently emitted (pre-dedup) text and
// its audio end time, used for overlap dedup and refinement detection.
type lastTranscriptState struct {
	text         string
	audioEndTime float64
}

const (
	refinementGapThreshold    = 2.0 // seconds
	refinementMinDurationSecs = 4.0
	confidenceThresholdScored = 0.30
	confidenceThresholdNone   = 0.00
	defaultConfidence         = 0.85
	dedupGapMin               = -0.2 // seconds, audio_start_time - last.audio_end_time
	dedupGapMax               = 1.5
	progressEveryNCompletions = 5
	drainPollInterval         = 100 * time.Millisecond
	drainPollAttempts         = 10
)
