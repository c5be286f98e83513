// Package audio provides 16 kHz mono audio frame utilities shared by every
// transcription provider: resampling, PCM16<->float32 conversion, and
// canonical WAV packaging (C1).
package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

const (
	// SampleRate is the sample rate every provider expects its input at.
	SampleRate = 16000
	// Channels is always mono.
	Channels      = 1
	bitsPerSample = 16
	blockAlign    = Channels * bitsPerSample / 8 // 2
	byteRate      = SampleRate * blockAlign
	headerSize    = 44
)

// Float32ToPCM16 clamps each sample to [-1, 1] and scales it into an int16.
func Float32ToPCM16(samples []float32) []int16 {
	pcm := make([]int16, len(samples))
	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		pcm[i] = int16(s * 32767)
	}
	return pcm
}

// PCM16ToFloat32 converts 16-bit PCM samples back to the [-1, 1] float32
// range used throughout the pipeline. It divides by 32767, the same scale
// Float32ToPCM16 multiplies by, and clamps -32768 to -1.
func PCM16ToFloat32(pcm []int16) []float32 {
	samples := make([]float32, len(pcm))
	for i, s := range pcm {
		f := float32(s) / 32767.0
		if f < -1 {
			f = -1
		}
		samples[i] = f
	}
	return samples
}

// EncodeWAV packages f32 samples in [-1, 1] into a canonical 44-byte RIFF
// header followed by little-endian PCM16 data, per spec.md §4.2. There is
// no padding byte: the data chunk is always an even number of bytes since
// each sample is 2 bytes.
func EncodeWAV(samples []float32) []byte {
	pcm := Float32ToPCM16(samples)
	dataSize := uint32(len(pcm) * 2)

	buf := bytes.NewBuffer(make([]byte, 0, headerSize+int(dataSize)))

	buf.WriteString("RIFF")
	binary.Write(buf, binary.LittleEndian, uint32(36+dataSize))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(buf, binary.LittleEndian, uint32(16)) // PCM fmt chunk size
	binary.Write(buf, binary.LittleEndian, uint16(1))  // AudioFormat = PCM
	binary.Write(buf, binary.LittleEndian, uint16(Channels))
	binary.Write(buf, binary.LittleEndian, uint32(SampleRate))
	binary.Write(buf, binary.LittleEndian, uint32(byteRate))
	binary.Write(buf, binary.LittleEndian, uint16(blockAlign))
	binary.Write(buf, binary.LittleEndian, uint16(bitsPerSample))

	buf.WriteString("data")
	binary.Write(buf, binary.LittleEndian, dataSize)

	for _, s := range pcm {
		binary.Write(buf, binary.LittleEndian, s)
	}

	return buf.Bytes()
}

// DecodeWAV parses a canonical 44-byte-header PCM16 mono WAV file and
// returns the samples as float32 in [-1, 1]. It is intentionally strict:
// only PCM, mono, 16-bit input is accepted, matching what EncodeWAV
// produces and what the engine ever needs to read back.
func DecodeWAV(data []byte) ([]float32, error) {
	if len(data) < headerSize {
		return nil, fmt.Errorf("audio: wav data too short: %d bytes", len(data))
	}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, fmt.Errorf("audio: not a RIFF/WAVE file")
	}
	if string(data[12:16]) != "fmt " {
		return nil, fmt.Errorf("audio: missing fmt chunk")
	}
	audioFormat := binary.LittleEndian.Uint16(data[20:22])
	if audioFormat != 1 {
		return nil, fmt.Errorf("audio: unsupported audio format %d, only PCM is supported", audioFormat)
	}
	numChannels := binary.LittleEndian.Uint16(data[22:24])
	if numChannels != Channels {
		return nil, fmt.Errorf("audio: unsupported channel count %d, only mono is supported", numChannels)
	}
	bits := binary.LittleEndian.Uint16(data[34:36])
	if bits != bitsPerSample {
		return nil, fmt.Errorf("audio: unsupported bit depth %d, only 16-bit is supported", bits)
	}
	if string(data[36:40]) != "data" {
		return nil, fmt.Errorf("audio: missing data chunk")
	}
	dataSize := binary.LittleEndian.Uint32(data[40:44])
	if int(dataSize) > len(data)-headerSize {
		dataSize = uint32(len(data) - headerSize)
	}

	numSamples := int(dataSize) / 2
	pcm := make([]int16, numSamples)
	reader := bytes.NewReader(data[headerSize : headerSize+int(dataSize)])
	if err := binary.Read(reader, binary.LittleEndian, pcm); err != nil {
		return nil, fmt.Errorf("audio: read pcm samples: %w", err)
	}

	return PCM16ToFloat32(pcm), nil
}

// ResampleTo16kHz resamples mono float32 audio to 16 kHz using linear
// interpolation. Audio already at 16 kHz is returned unchanged.
func ResampleTo16kHz(samples []float32, originalSampleRate int) []float32 {
	if originalSampleRate == SampleRate || len(samples) == 0 {
		return samples
	}

	ratio := float64(SampleRate) / float64(originalSampleRate)
	newLength := int(float64(len(samples)) * ratio)
	resampled := make([]float32, newLength)

	for i := 0; i < newLength; i++ {
		pos := float64(i) / ratio
		index := int(pos)
		if index >= len(samples)-1 {
			resampled[i] = samples[len(samples)-1]
			continue
		}
		weight := float32(pos - float64(index))
		resampled[i] = (1-weight)*samples[index] + weight*samples[index+1]
	}

	return resampled
}

// MeanSquaredEnergy computes the mean of the squared samples, used for
// cheap per-chunk energy logging in the worker pool.
func MeanSquaredEnergy(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return sum / float64(len(samples))
}
