// Package events defines the outbound pipeline event payloads (§6) and an
// in-process fan-out Bus that internal/pipeline and internal/qwenasr
// publish to, and that internal/transport/httpapi subscribes to
// (internal/metrics is updated directly by the dispatcher, not through the
// Bus). The fan-out/subscribe shape follows the teacher's callback
// registration idiom (SetStreamingCallback in
// whisper_streaming_transcriber.go) generalized from a single callback
// slot to N independent subscriber channels.
package events

import "time"

// Name identifies an event's payload shape.
type Name string

const (
	TranscriptUpdate           Name = "transcript-update"
	TranscriptPartial          Name = "transcript-partial"
	TranscriptionProgress      Name = "transcription-progress"
	TranscriptionQueueComplete Name = "transcription-queue-complete"
	TranscriptionError         Name = "transcription-error"
	TranscriptionWarning       Name = "transcription-warning"
	TranscriptChunkLossDetected Name = "transcript-chunk-loss-detected"
	SpeechDetected             Name = "speech-detected"
	QwenModelDownloadProgress  Name = "qwen-asr-model-download-progress"
	QwenModelDownloadComplete  Name = "qwen-asr-model-download-complete"
	QwenModelDownloadError     Name = "qwen-asr-model-download-error"
	QwenModelLoadingStarted    Name = "qwen-asr-model-loading-started"
	QwenModelLoadingCompleted  Name = "qwen-asr-model-loading-completed"
	QwenModelLoadingFailed     Name = "qwen-asr-model-loading-failed"
)

// Event is an envelope carrying a Name and its typed Payload.
type Event struct {
	Name    Name
	Payload any
}

// TranscriptUpdatePayload mirrors the data-model TranscriptUpdate record,
// except that WallClockTimestamp carries a full time.Time (encoded as an
// RFC 3339 timestamp) rather than the record's "HH:MM:SS" string.
type TranscriptUpdatePayload struct {
	Text               string    `json:"text"`
	WallClockTimestamp time.Time `json:"wall_clock_timestamp"`
	Source             string    `json:"source"`
	SequenceID         uint64    `json:"sequence_id"`
	ChunkStartTime     float64   `json:"chunk_start_time"`
	IsPartial          bool      `json:"is_partial"`
	Confidence         float32   `json:"confidence"`
	AudioStartTime     float64   `json:"audio_start_time"`
	AudioEndTime       float64   `json:"audio_end_time"`
	Duration           float64   `json:"duration"`
	IsRefinement       bool      `json:"is_refinement"`
}

type TranscriptPartialPayload struct {
	ChunkID        string  `json:"chunk_id"`
	Text           string  `json:"text"`
	ChunkStartTime float64 `json:"chunk_start_time"`
	AudioStartTime float64 `json:"audio_start_time"`
	AudioEndTime   float64 `json:"audio_end_time"`
}

type TranscriptionProgressPayload struct {
	WorkerID           int     `json:"worker_id"`
	ChunksCompleted    uint64  `json:"chunks_completed"`
	ChunksQueued       uint64  `json:"chunks_queued"`
	ProgressPercentage float64 `json:"progress_percentage"`
	Message            string  `json:"message"`
}

type TranscriptionQueueCompletePayload struct {
	TotalChunks uint64 `json:"total_chunks"`
	Message     string `json:"message"`
}

type TranscriptionErrorPayload struct {
	Error       string `json:"error"`
	UserMessage string `json:"userMessage"`
	Actionable  bool   `json:"actionable"`
}

type TranscriptionWarningPayload struct {
	Message string `json:"message"`
}

type TranscriptChunkLossDetectedPayload struct {
	ChunksQueued    uint64 `json:"chunks_queued"`
	ChunksCompleted uint64 `json:"chunks_completed"`
	ChunksLost      uint64 `json:"chunks_lost"`
	Message         string `json:"message"`
}

type SpeechDetectedPayload struct {
	Message string `json:"message"`
}

type QwenModelDownloadProgressPayload struct {
	ModelName       string  `json:"modelName"`
	Progress        float64 `json:"progress"`
	DownloadedBytes int64   `json:"downloaded_bytes"`
	TotalBytes      int64   `json:"total_bytes"`
	DownloadedMB    float64 `json:"downloaded_mb"`
	TotalMB         float64 `json:"total_mb"`
	SpeedMBps       float64 `json:"speed_mbps"`
	Status          string  `json:"status"` // downloading | completed | cancelled
}

type QwenModelDownloadCompletePayload struct {
	ModelName string `json:"modelName"`
}

type QwenModelDownloadErrorPayload struct {
	ModelName string `json:"modelName"`
	Error     string `json:"error"`
}

type QwenModelLoadingPayload struct {
	ModelName string `json:"modelName"`
	Error     string `json:"error,omitempty"`
}
