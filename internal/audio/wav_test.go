package audio

import (
	"bytes"
	"math"
	"testing"

	goaudiowav "github.com/go-audio/wav"
)

func TestMeanSquaredEnergy(t *testing.T) {
	cases := []struct {
		name     string
		input    []float32
		expected float64
	}{
		{"empty", nil, 0},
		{"silence", []float32{0, 0, 0, 0}, 0},
		{"constant", []float32{0.5, 0.5, 0.5, 0.5}, 0.25},
		{"alternating", []float32{0, 1, 0, -1}, 0.5},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := MeanSquaredEnergy(tc.input)
			if math.Abs(got-tc.expected) > 1e-9 {
				t.Errorf("MeanSquaredEnergy(%v) = %f, want %f", tc.input, got, tc.expected)
			}
		})
	}
}

// TestWAVRoundTrip checks invariant 8: decode(encode(x)) differs from x by
// at most one quantization step (1/32767).
func TestWAVRoundTrip(t *testing.T) {
	samples := make([]float32, 1600)
	for i := range samples {
		samples[i] = float32(math.Sin(float64(i) * 0.1))
	}

	encoded := EncodeWAV(samples)
	decoded, err := DecodeWAV(encoded)
	if err != nil {
		t.Fatalf("DecodeWAV: %v", err)
	}
	if len(decoded) != len(samples) {
		t.Fatalf("length mismatch: got %d, want %d", len(decoded), len(samples))
	}

	const quantizationStep = 1.0 / 32767.0
	for i := range samples {
		diff := math.Abs(float64(decoded[i] - samples[i]))
		if diff > quantizationStep*1.01 {
			t.Errorf("sample %d: decoded %f, original %f, diff %f exceeds quantization step", i, decoded[i], samples[i], diff)
		}
	}
}

// TestWAVHeaderShape cross-checks the header layout against a well-known
// WAV decoder (go-audio/wav) to make sure EncodeWAV produces a file any
// standard reader accepts, not just our own DecodeWAV.
func TestWAVHeaderShape(t *testing.T) {
	samples := []float32{0, 0.25, -0.25, 0.5, -0.5}
	encoded := EncodeWAV(samples)

	if len(encoded) != headerSize+len(samples)*2 {
		t.Fatalf("unexpected encoded length %d", len(encoded))
	}

	dec := goaudiowav.NewDecoder(bytes.NewReader(encoded))
	if !dec.IsValidFile() {
		t.Fatalf("go-audio/wav rejects our encoded file as invalid")
	}
	dec.ReadInfo()
	if dec.SampleRate != SampleRate {
		t.Errorf("sample rate = %d, want %d", dec.SampleRate, SampleRate)
	}
	if dec.NumChans != Channels {
		t.Errorf("channels = %d, want %d", dec.NumChans, Channels)
	}
	if dec.BitDepth != bitsPerSample {
		t.Errorf("bit depth = %d, want %d", dec.BitDepth, bitsPerSample)
	}
}

func TestDecodeWAVRejectsGarbage(t *testing.T) {
	cases := [][]byte{
		nil,
		[]byte("too short"),
		bytes.Repeat([]byte{0}, 44), // right length, wrong magic
	}
	for _, c := range cases {
		if _, err := DecodeWAV(c); err == nil {
			t.Errorf("DecodeWAV(%v) expected error, got nil", c)
		}
	}
}

func TestResampleTo16kHzNoopAtTargetRate(t *testing.T) {
	samples := []float32{0.1, 0.2, 0.3}
	got := ResampleTo16kHz(samples, SampleRate)
	if len(got) != len(samples) {
		t.Fatalf("expected unchanged length, got %d", len(got))
	}
	for i := range samples {
		if got[i] != samples[i] {
			t.Errorf("sample %d changed: got %f, want %f", i, got[i], samples[i])
		}
	}
}

func TestResampleTo16kHzUpsamples(t *testing.T) {
	samples := []float32{0, 1, 0, -1}
	got := ResampleTo16kHz(samples, 8000)
	if len(got) != 8 {
		t.Fatalf("expected doubled length 8, got %d", len(got))
	}
}
