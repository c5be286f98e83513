package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"DEBUG":   slog.LevelDebug,
		"warn":    slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestInitAndForProduceComponentTaggedJSON(t *testing.T) {
	var buf bytes.Buffer
	Init(&buf, slog.LevelInfo)

	For(ComponentPipeline).Info("chunk processed", "chunk_id", 7)

	var decoded map[string]any
	line := strings.TrimSpace(buf.String())
	if err := json.Unmarshal([]byte(line), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v (%s)", err, line)
	}
	if decoded["component"] != ComponentPipeline {
		t.Errorf("component = %v, want %v", decoded["component"], ComponentPipeline)
	}
	if decoded["msg"] != "chunk processed" {
		t.Errorf("msg = %v, want %q", decoded["msg"], "chunk processed")
	}
}
