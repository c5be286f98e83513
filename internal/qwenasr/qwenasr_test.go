package qwenasr

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("WriteFile(%s): %v", path, err)
	}
}

// TestGGUFValidationTotality checks invariant 6: validateGGUF returns a
// boolean for every input, including missing files, short files, and
// wrong-magic files, never panicking or erroring out of band.
func TestGGUFValidationTotality(t *testing.T) {
	dir := t.TempDir()

	missing := filepath.Join(dir, "missing.gguf")
	if validateGGUF(missing) {
		t.Errorf("validateGGUF(missing) = true, want false")
	}

	short := filepath.Join(dir, "short.gguf")
	writeFile(t, short, []byte{0x47, 0x47, 0x55, 0x46})
	if validateGGUF(short) {
		t.Errorf("validateGGUF(short) = true, want false")
	}

	wrongMagic := filepath.Join(dir, "wrong.gguf")
	writeFile(t, wrongMagic, append([]byte{0x00, 0x00, 0x00, 0x00}, make([]byte, 2000)...))
	if validateGGUF(wrongMagic) {
		t.Errorf("validateGGUF(wrongMagic) = true, want false")
	}

	valid := filepath.Join(dir, "valid.gguf")
	writeFile(t, valid, append([]byte{0x47, 0x47, 0x55, 0x46}, make([]byte, 2000)...))
	if !validateGGUF(valid) {
		t.Errorf("validateGGUF(valid) = false, want true")
	}
}

func TestDiscoverModelsStatuses(t *testing.T) {
	dir := t.TempDir()
	e := NewEngine(dir, nil)

	statuses := e.DiscoverModels()
	for _, info := range Catalogue {
		s, ok := statuses[info.Name]
		if !ok {
			t.Fatalf("missing status for %s", info.Name)
		}
		if s.Kind != StatusMissing {
			t.Errorf("status for fresh dir, model %s = %s, want missing", info.Name, s)
		}
	}

	q8Info, _ := lookupModelInfo(ModelQ8_0)
	writeFile(t, filepath.Join(dir, q8Info.Filename), append([]byte{0x47, 0x47, 0x55, 0x46}, make([]byte, 2000)...))

	statuses = e.DiscoverModels()
	if statuses[ModelQ8_0].Kind != StatusAvailable {
		t.Errorf("status after writing valid gguf = %s, want available", statuses[ModelQ8_0])
	}
}

func TestDiscoverModelsCorrupted(t *testing.T) {
	dir := t.TempDir()
	e := NewEngine(dir, nil)

	f16Info, _ := lookupModelInfo(ModelF16)
	writeFile(t, filepath.Join(dir, f16Info.Filename), append([]byte("not a gguf file but long enough to pass the size check"), make([]byte, 2000)...))

	statuses := e.DiscoverModels()
	if statuses[ModelF16].Kind != StatusCorrupted {
		t.Errorf("status = %s, want corrupted", statuses[ModelF16])
	}
}

// TestDownloadProgressMonotonic checks invariant 7: reported percent values
// are non-decreasing across a single download.
func TestDownloadProgressMonotonic(t *testing.T) {
	const totalBytes = 5 * 1024 * 1024
	payload := make([]byte, totalBytes)
	for i := range payload {
		payload[i] = byte(i)
	}
	payload[0], payload[1], payload[2], payload[3] = 0x47, 0x47, 0x55, 0x46

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))
	defer server.Close()

	dir := t.TempDir()
	e := NewEngine(dir, nil)

	var lastPercent float64 = -1
	monotonic := true
	e.statuses[ModelQ8_0] = ModelStatus{Kind: StatusMissing}

	origPattern := downloadURLPatternOverrideForTest(server.URL)
	defer origPattern()

	err := e.DownloadModel(ModelQ8_0, func(p DownloadProgress) {
		if p.Percent < lastPercent {
			monotonic = false
		}
		lastPercent = p.Percent
	})
	if err != nil {
		t.Fatalf("DownloadModel: %v", err)
	}
	if !monotonic {
		t.Errorf("download progress was not monotonically non-decreasing")
	}
}

// downloadURLPatternOverrideForTest is a test-only hook: since
// downloadURLPattern is a package const, it sets testServerBaseURL, which
// resolveDownloadURL then returns in place of the whole upstream URL, and
// returns a func that clears it again.
func downloadURLPatternOverrideForTest(serverURL string) func() {
	testServerBaseURL = serverURL
	return func() { testServerBaseURL = "" }
}
