package provider

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"github.com/meetily/asr-core/internal/audio"
)

const (
	openAIMinSamples = 1600 // 100ms at 16kHz
	openAITimeout    = 30 * time.Second
	openAIMaxErrBody = 240
)

var openAIAutoSentinels = map[string]struct{}{
	"auto":           {},
	"auto-translate": {},
	"auto_detect":    {},
	"auto-detect":    {},
}

// OpenAIProvider transcribes audio through the OpenAI speech-to-text API.
// It holds no local model state: IsModelLoaded reports whether an API key
// has been configured.
type OpenAIProvider struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// NewOpenAIProvider constructs a provider bound to apiKey and model. baseURL
// defaults to the production OpenAI endpoint when empty, which lets tests
// point at a local fake server.
func NewOpenAIProvider(apiKey, model, baseURL string) *OpenAIProvider {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1/audio/transcriptions"
	}
	return &OpenAIProvider{
		apiKey:  strings.TrimSpace(apiKey),
		model:   model,
		baseURL: baseURL,
		client:  &http.Client{Timeout: openAITimeout},
	}
}

func (p *OpenAIProvider) Name() string { return "openai" }

func (p *OpenAIProvider) IsModelLoaded() bool { return p.apiKey != "" }

func (p *OpenAIProvider) CurrentModel() string {
	if p.apiKey == "" {
		return ""
	}
	return p.model
}

type openAITranscriptionResponse struct {
	Text string `json:"text"`
}

// Transcribe posts audio to the OpenAI transcription endpoint as a WAV
// multipart upload and returns the decoded text. It never reports
// confidence or partial results.
func (p *OpenAIProvider) Transcribe(ctx context.Context, samples []float32, language string) (TranscriptResult, error) {
	if p.apiKey == "" {
		return TranscriptResult{}, ErrModelNotLoaded
	}
	if len(samples) < openAIMinSamples {
		return TranscriptResult{}, NewAudioTooShort(len(samples), openAIMinSamples)
	}

	wav := audio.EncodeWAV(samples)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	filePart, err := writer.CreateFormFile("file", "audio.wav")
	if err != nil {
		return TranscriptResult{}, NewEngineFailed(err.Error())
	}
	if _, err := filePart.Write(wav); err != nil {
		return TranscriptResult{}, NewEngineFailed(err.Error())
	}
	if err := writer.WriteField("model", p.model); err != nil {
		return TranscriptResult{}, NewEngineFailed(err.Error())
	}
	if lang := normalizeOpenAILanguage(language); lang != "" {
		if err := writer.WriteField("language", lang); err != nil {
			return TranscriptResult{}, NewEngineFailed(err.Error())
		}
	}
	if err := writer.Close(); err != nil {
		return TranscriptResult{}, NewEngineFailed(err.Error())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL, body)
	if err != nil {
		return TranscriptResult{}, NewEngineFailed(err.Error())
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return TranscriptResult{}, NewEngineFailed(err.Error())
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return TranscriptResult{}, NewEngineFailed(err.Error())
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet := string(respBody)
		if len(snippet) > openAIMaxErrBody {
			snippet = snippet[:openAIMaxErrBody]
		}
		return TranscriptResult{}, NewEngineFailed(fmt.Sprintf("http %d: %s", resp.StatusCode, snippet))
	}

	var decoded openAITranscriptionResponse
	if err := sonic.Unmarshal(respBody, &decoded); err != nil {
		return TranscriptResult{}, NewEngineFailed(fmt.Sprintf("decode response: %v", err))
	}

	return TranscriptResult{Text: decoded.Text, Confidence: nil, IsPartial: false}, nil
}

// normalizeOpenAILanguage trims language and maps the auto-detect sentinels
// to the empty string, which the caller treats as "omit the field".
func normalizeOpenAILanguage(language string) string {
	trimmed := strings.TrimSpace(language)
	if _, ok := openAIAutoSentinels[strings.ToLower(trimmed)]; ok {
		return ""
	}
	return trimmed
}
