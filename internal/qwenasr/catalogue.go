// Package qwenasr implements the Qwen3-ASR engine (C4): a fixed catalogue
// of two local GGUF quantizations, on-disk discovery and GGUF validation,
// resumable HTTP download with progress and cancellation, and load/unload
// of native inference handles (C5) for batch and streaming transcription.
// Grounded in the teacher's downloader.go (HTTP download shape, generalized
// to Range-resume + progress + cancel) and paths.go (model directory
// resolution idiom, generalized to the app-data/debug/release rules this
// engine uses).
package qwenasr

import "fmt"

// ModelName identifies a catalogue entry.
type ModelName string

const (
	ModelQ8_0 ModelName = "qwen3-asr-0.6b-q8_0"
	ModelF16  ModelName = "qwen3-asr-0.6b-f16"
)

// gguf magic bytes, little-endian u32 0x46554747 ("GGUF").
var ggufMagic = [4]byte{0x47, 0x47, 0x55, 0x46}

const ggufMinFileSize = 1024

// ModelInfo is a fixed catalogue entry's static metadata.
type ModelInfo struct {
	Name      ModelName
	Filename  string
	SizeMB    int64
	SpeedTag  string
	Quantized bool
}

// Catalogue is the fixed, hard-coded set of models this engine can load.
var Catalogue = []ModelInfo{
	{
		Name:      ModelQ8_0,
		Filename:  "qwen3-asr-0.6b-q8_0.gguf",
		SizeMB:    1350,
		SpeedTag:  "Fast (Quantized)",
		Quantized: true,
	},
	{
		Name:      ModelF16,
		Filename:  "qwen3-asr-0.6b-f16.gguf",
		SizeMB:    1880,
		SpeedTag:  "Accurate (F16)",
		Quantized: false,
	},
}

// ModelStatusKind enumerates the discrete states a catalogue entry can be
// in; exactly one kind applies at a time.
type ModelStatusKind int

const (
	StatusMissing ModelStatusKind = iota
	StatusAvailable
	StatusDownloading
	StatusError
	StatusCorrupted
)

// ModelStatus is the tagged-union result of discovery for one model.
type ModelStatus struct {
	Kind        ModelStatusKind
	Progress    float64 // valid when Kind == StatusDownloading
	Message     string  // valid when Kind == StatusError
	FileSize    int64   // valid when Kind == StatusCorrupted
	ExpectedMin int64   // valid when Kind == StatusCorrupted
}

func (s ModelStatus) String() string {
	switch s.Kind {
	case StatusMissing:
		return "missing"
	case StatusAvailable:
		return "available"
	case StatusDownloading:
		return fmt.Sprintf("downloading(%.1f%%)", s.Progress*100)
	case StatusError:
		return fmt.Sprintf("error(%s)", s.Message)
	case StatusCorrupted:
		return fmt.Sprintf("corrupted(size=%d, expected_min=%d)", s.FileSize, s.ExpectedMin)
	default:
		return "unknown"
	}
}

func lookupModelInfo(name ModelName) (ModelInfo, bool) {
	for _, m := range Catalogue {
		if m.Name == name {
			return m, true
		}
	}
	return ModelInfo{}, false
}
