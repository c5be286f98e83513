package qwenasr

import (
	"os"
	"path/filepath"
	"runtime"
)

// ResolveModelsDir implements §4.6: if appDataDir is non-empty, use
// <appDataDir>/qwen-asr; otherwise in debug builds use
// <cwd>/models/qwen-asr, in release use <systemDataDir>/Meetily/models/qwen-asr.
// The directory is created eagerly if missing. Generalizes the teacher's
// getDefaultModelPath OS-switch idiom to a single explicit app-data
// argument plus a debug/release switch instead of probing a list of
// candidate directories.
func ResolveModelsDir(appDataDir string, debug bool) (string, error) {
	var dir string
	switch {
	case appDataDir != "":
		dir = filepath.Join(appDataDir, "qwen-asr")
	case debug:
		cwd, err := os.Getwd()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(cwd, "models", "qwen-asr")
	default:
		dir = filepath.Join(systemDataDir(), "Meetily", "models", "qwen-asr")
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

// systemDataDir mirrors the teacher's per-OS base-directory switch in
// getDefaultModelPath, trimmed to the single release-mode location this
// engine needs.
func systemDataDir() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join("C:", "ProgramData")
	case "darwin":
		return "/Library/Application Support"
	default:
		return "/usr/local/share"
	}
}
