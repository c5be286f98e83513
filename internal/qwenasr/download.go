package qwenasr

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/meetily/asr-core/internal/events"
)

// downloadURLPattern resolves the fixed upstream-repository URL for a
// catalogue entry, keyed by quantization, mirroring the teacher's
// WhisperBaseURL template pattern in downloader.go.
const downloadURLPattern = "https://huggingface.co/FlippyDora/qwen3-asr-0.6b-GGUF/resolve/main/%s"

// testServerBaseURL, when non-empty, overrides the resolved download host
// so tests can point at an httptest.Server instead of the real upstream.
var testServerBaseURL string

func resolveDownloadURL(filename string) string {
	if testServerBaseURL != "" {
		return testServerBaseURL
	}
	return fmt.Sprintf(downloadURLPattern, filename)
}

const (
	downloadConnectTimeout  = 30 * time.Second
	downloadTotalTimeout    = 3600 * time.Second
	downloadChunkReadTimeout = 30 * time.Second
	downloadBufferSize      = 8 * 1024 * 1024
	downloadProgressMinGap  = 500 * time.Millisecond
	downloadSpeedMinWindow  = 100 * time.Millisecond
	partialCompleteRatio    = 0.99
)

// DownloadProgress is emitted to ProgressFunc during an active download.
type DownloadProgress struct {
	Model           ModelName
	BytesDownloaded int64
	BytesTotal      int64
	Percent         float64
	SpeedMBps       float64
}

// ProgressFunc receives incremental download progress.
type ProgressFunc func(DownloadProgress)

// capturedConn lets runDownload re-arm a per-read deadline on the
// underlying TCP connection (§4.4 step 9's 30s inter-chunk read timeout),
// which net/http does not otherwise expose once a request is in flight.
type capturedConn struct {
	mu   sync.Mutex
	conn net.Conn
}

func (c *capturedConn) set(conn net.Conn) {
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
}

func (c *capturedConn) armReadDeadline(d time.Duration) {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn != nil {
		conn.SetReadDeadline(time.Now().Add(d))
	}
}

func newDownloadHTTPClient() (*http.Client, *capturedConn) {
	captured := &capturedConn{}
	dialer := &net.Dialer{Timeout: downloadConnectTimeout}
	transport := &http.Transport{
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			conn, err := dialer.DialContext(ctx, network, addr)
			if err != nil {
				return nil, err
			}
			if tcpConn, ok := conn.(*net.TCPConn); ok {
				tcpConn.SetNoDelay(true)
			}
			captured.set(conn)
			return conn, nil
		},
	}
	return &http.Client{Transport: transport, Timeout: downloadTotalTimeout}, captured
}

// DownloadModel implements §4.4's download_model_detailed. progress is
// called at most every integer-percent-advance or 500ms. Returns once the
// download completes, fails, or is cancelled via CancelDownload.
func (e *Engine) DownloadModel(name ModelName, progress ProgressFunc) error {
	info, ok := lookupModelInfo(name)
	if !ok {
		return ErrModelNotFound
	}

	e.rw.Lock()
	if _, active := e.activeDownloads[name]; active {
		e.rw.Unlock()
		return fmt.Errorf("qwenasr: download of %s already in progress", name)
	}
	e.activeDownloads[name] = struct{}{}
	if e.cancelFlag == name {
		e.cancelFlag = ""
	}
	e.statuses[name] = ModelStatus{Kind: StatusDownloading, Progress: 0}
	e.rw.Unlock()

	finishActive := func() {
		e.rw.Lock()
		delete(e.activeDownloads, name)
		if e.cancelFlag == name {
			e.cancelFlag = ""
		}
		e.rw.Unlock()
	}

	if err := os.MkdirAll(e.modelsDir, 0o755); err != nil {
		e.setStatus(name, ModelStatus{Kind: StatusError, Message: err.Error()})
		e.publish(events.QwenModelDownloadError, events.QwenModelDownloadErrorPayload{ModelName: string(name), Error: err.Error()})
		finishActive()
		return err
	}

	path := e.modelPath(info)
	expectedBytes := info.SizeMB * 1024 * 1024

	if existing, ok := fileSize(path); ok {
		if float64(existing) >= float64(expectedBytes)*partialCompleteRatio && validateGGUF(path) {
			e.setStatus(name, ModelStatus{Kind: StatusAvailable})
			e.publish(events.QwenModelDownloadComplete, events.QwenModelDownloadCompletePayload{ModelName: string(name)})
			finishActive()
			return nil
		}
	}

	err := e.runDownload(name, info, path, expectedBytes, progress)
	if err != nil {
		e.publish(events.QwenModelDownloadError, events.QwenModelDownloadErrorPayload{ModelName: string(name), Error: err.Error()})
	} else {
		e.publish(events.QwenModelDownloadComplete, events.QwenModelDownloadCompletePayload{ModelName: string(name)})
	}
	finishActive()
	return err
}

func (e *Engine) runDownload(name ModelName, info ModelInfo, path string, expectedBytes int64, progress ProgressFunc) error {
	client, conn := newDownloadHTTPClient()
	url := resolveDownloadURL(info.Filename)

	existing, _ := fileSize(path)

	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		e.setStatus(name, ModelStatus{Kind: StatusError, Message: err.Error()})
		return err
	}

	openFlag := os.O_CREATE | os.O_WRONLY
	writeOffset := int64(0)
	if existing > 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", existing))
	}

	resp, err := client.Do(req)
	if err != nil {
		e.setStatus(name, ModelStatus{Kind: StatusError, Message: err.Error()})
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusPartialContent:
		openFlag |= os.O_APPEND
		writeOffset = existing
	case http.StatusOK:
		openFlag |= os.O_TRUNC
		writeOffset = 0
	default:
		failErr := fmt.Errorf("qwenasr: download failed, http status %s", resp.Status)
		e.setStatus(name, ModelStatus{Kind: StatusError, Message: failErr.Error()})
		return failErr
	}

	file, err := os.OpenFile(path, openFlag, 0o644)
	if err != nil {
		e.setStatus(name, ModelStatus{Kind: StatusError, Message: err.Error()})
		return err
	}
	defer file.Close()

	downloaded := writeOffset
	total := expectedBytes
	if resp.ContentLength > 0 {
		total = writeOffset + resp.ContentLength
	}

	lastEmit := time.Now()
	lastEmitBytes := downloaded
	lastPercent := -1
	startTime := time.Now()

	buf := make([]byte, downloadBufferSize)
	for {
		if e.isCancelled(name) {
			file.Close()
			os.Remove(path)
			e.setStatus(name, ModelStatus{Kind: StatusMissing})
			e.publish(events.QwenModelDownloadProgress, events.QwenModelDownloadProgressPayload{
				ModelName:       string(name),
				DownloadedBytes: downloaded,
				TotalBytes:      total,
				Status:          "cancelled",
			})
			return fmt.Errorf("qwenasr: download of %s cancelled", name)
		}

		conn.armReadDeadline(downloadChunkReadTimeout)
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, werr := file.Write(buf[:n]); werr != nil {
				e.setStatus(name, ModelStatus{Kind: StatusMissing})
				return werr
			}
			downloaded += int64(n)

			percent := 0
			if total > 0 {
				percent = int(float64(downloaded) / float64(total) * 100)
			}
			now := time.Now()
			elapsedSinceEmit := now.Sub(lastEmit)
			if percent != lastPercent || elapsedSinceEmit >= downloadProgressMinGap {
				window := elapsedSinceEmit
				bytesSinceEmit := downloaded - lastEmitBytes
				var speedMBps float64
				if window >= downloadSpeedMinWindow {
					speedMBps = (float64(bytesSinceEmit) / (1024 * 1024)) / window.Seconds()
				} else if sinceStart := now.Sub(startTime); sinceStart > 0 {
					speedMBps = (float64(downloaded-writeOffset) / (1024 * 1024)) / sinceStart.Seconds()
				}

				pct := 0.0
				if total > 0 {
					pct = float64(downloaded) / float64(total)
				}
				e.setStatus(name, ModelStatus{Kind: StatusDownloading, Progress: pct})
				if progress != nil {
					progress(DownloadProgress{
						Model:           name,
						BytesDownloaded: downloaded,
						BytesTotal:      total,
						Percent:         pct,
						SpeedMBps:       speedMBps,
					})
				}
				e.publish(events.QwenModelDownloadProgress, events.QwenModelDownloadProgressPayload{
					ModelName:       string(name),
					Progress:        pct,
					DownloadedBytes: downloaded,
					TotalBytes:      total,
					DownloadedMB:    float64(downloaded) / (1024 * 1024),
					TotalMB:         float64(total) / (1024 * 1024),
					SpeedMBps:       speedMBps,
					Status:          "downloading",
				})
				lastEmit = now
				lastEmitBytes = downloaded
				lastPercent = percent
			}
		}

		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			e.setStatus(name, ModelStatus{Kind: StatusMissing})
			return readErr
		}
	}

	if err := file.Sync(); err != nil {
		e.setStatus(name, ModelStatus{Kind: StatusMissing})
		return err
	}

	if progress != nil {
		progress(DownloadProgress{Model: name, BytesDownloaded: downloaded, BytesTotal: total, Percent: 1.0})
	}
	e.setStatus(name, ModelStatus{Kind: StatusAvailable})
	e.publish(events.QwenModelDownloadProgress, events.QwenModelDownloadProgressPayload{
		ModelName:       string(name),
		Progress:        1.0,
		DownloadedBytes: downloaded,
		TotalBytes:      total,
		DownloadedMB:    float64(downloaded) / (1024 * 1024),
		TotalMB:         float64(total) / (1024 * 1024),
		Status:          "completed",
	})
	return nil
}

func (e *Engine) setStatus(name ModelName, status ModelStatus) {
	e.rw.Lock()
	e.statuses[name] = status
	e.rw.Unlock()
}

func (e *Engine) isCancelled(name ModelName) bool {
	e.rw.RLock()
	defer e.rw.RUnlock()
	return e.cancelFlag == name
}

// CancelDownload implements §4.4's cancel_download: marks the download for
// cancellation, removes it from active downloads, sets status Missing,
// waits briefly for the loop to observe the flag, then best-effort deletes
// the partial file. Safe to call with no active download.
func (e *Engine) CancelDownload(name ModelName) {
	e.rw.Lock()
	e.cancelFlag = name
	delete(e.activeDownloads, name)
	e.statuses[name] = ModelStatus{Kind: StatusMissing}
	e.rw.Unlock()

	time.Sleep(100 * time.Millisecond)

	if info, ok := lookupModelInfo(name); ok {
		os.Remove(filepath.Join(e.modelsDir, info.Filename))
	}
}
