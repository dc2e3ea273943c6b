package queue

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/LambTjops/vod-downloader/internal/catalog"
	"github.com/LambTjops/vod-downloader/internal/config"
	"github.com/LambTjops/vod-downloader/internal/match"
	"github.com/LambTjops/vod-downloader/internal/store"
)

// newWorkerManager builds a started manager whose provider URLs point at
// the given test server. Cleanup stops the worker.
func newWorkerManager(t *testing.T, baseURL string, tweak func(*config.Config)) *Manager {
	t.Helper()

	dir := t.TempDir()
	cfg := &config.Config{
		Download: config.DownloadConfig{
			OutputDir:         filepath.Join(dir, "downloads"),
			MinFileSizeMB:     1,
			ErrorCooldownSecs: 1,
			CompleteHoldSecs:  1,
		},
		Matcher: config.MatcherConfig{LengthTolerance: 0.5},
	}
	if tweak != nil {
		tweak(cfg)
	}

	records := store.NewRecordStore(filepath.Join(dir, "records.json"), zap.NewNop())
	if err := records.Load(); err != nil {
		t.Fatalf("Failed to load record store: %v", err)
	}

	m := NewManager(cfg, records, match.NewMatcher(0.5, 1, zap.NewNop()), &stubProvider{baseURL: baseURL}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	if err := m.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(func() {
		cancel()
		m.Close()
	})

	return m
}

// waitFor polls cond until it holds or the timeout expires
func waitFor(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("Timed out waiting for: %s", msg)
}

// streamHandler serves totalMiB of zeroes, one MiB per write with a delay
// between writes so tests can observe and interrupt the transfer.
func streamHandler(totalMiB int, delay time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", fmt.Sprintf("%d", totalMiB<<20))
		w.WriteHeader(http.StatusOK)

		flusher, _ := w.(http.Flusher)
		chunk := make([]byte, 1<<20)
		for i := 0; i < totalMiB; i++ {
			if _, err := w.Write(chunk); err != nil {
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
			time.Sleep(delay)
		}
	}
}

func TestWorkerDownloadsAndRecords(t *testing.T) {
	ts := httptest.NewServer(streamHandler(4, 20*time.Millisecond))
	defer ts.Close()

	m := newWorkerManager(t, ts.URL, nil)

	if _, err := m.Enqueue(catalog.KindMovie, "42", "mp4", "Some Movie"); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	// An intermediate downloading snapshot must be observable
	sawPartial := false
	waitFor(t, 10*time.Second, func() bool {
		p := m.Progress()
		if p.Status == StatusDownloading && p.Percent > 0 && p.Percent < 100 {
			sawPartial = true
		}
		return p.Status == StatusComplete
	}, "download to complete")

	if !sawPartial {
		t.Error("Expected to observe partial progress before completion")
	}

	p := m.Progress()
	if p.Percent != 100 {
		t.Errorf("Expected 100 percent, got %d", p.Percent)
	}
	if p.BytesDownloaded != 4<<20 {
		t.Errorf("Expected %d bytes, got %d", 4<<20, p.BytesDownloaded)
	}

	if !m.IsDownloaded("movie:42") {
		t.Error("Expected item recorded as downloaded")
	}

	dest := filepath.Join(m.cfg.Download.OutputDir, "Some Movie.mp4")
	info, err := os.Stat(dest)
	if err != nil {
		t.Fatalf("Expected output file: %v", err)
	}
	if info.Size() != 4<<20 {
		t.Errorf("Expected 4 MiB file, got %d bytes", info.Size())
	}
}

func TestWorkerStopMidTransfer(t *testing.T) {
	ts := httptest.NewServer(streamHandler(64, 50*time.Millisecond))
	defer ts.Close()

	m := newWorkerManager(t, ts.URL, nil)

	if _, err := m.Enqueue(catalog.KindMovie, "42", "mp4", "Big Movie"); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Enqueue(catalog.KindMovie, "43", "mp4", "Next Movie"); err != nil {
		t.Fatal(err)
	}

	waitFor(t, 10*time.Second, func() bool {
		return m.Progress().BytesDownloaded > 0
	}, "transfer to begin")

	m.Stop()

	waitFor(t, 10*time.Second, func() bool {
		return m.Progress().Status == StatusStopped
	}, "worker to report stopped")

	// The partial file stays on disk but the item is not recorded
	dest := filepath.Join(m.cfg.Download.OutputDir, "Big Movie.mp4")
	info, err := os.Stat(dest)
	if err != nil {
		t.Fatalf("Expected partial file on disk: %v", err)
	}
	if info.Size() >= 64<<20 {
		t.Error("Expected a partial file, got the full size")
	}
	if m.IsDownloaded("movie:42") {
		t.Error("Stopped item must not be recorded as downloaded")
	}

	// The next job stays queued until a resume
	if m.QueueSize() != 1 {
		t.Errorf("Expected 1 job still queued while stopped, got %d", m.QueueSize())
	}
}

func TestWorkerPauseResumeMidTransfer(t *testing.T) {
	ts := httptest.NewServer(streamHandler(8, 40*time.Millisecond))
	defer ts.Close()

	m := newWorkerManager(t, ts.URL, nil)

	if _, err := m.Enqueue(catalog.KindMovie, "42", "mp4", "Some Movie"); err != nil {
		t.Fatal(err)
	}

	waitFor(t, 10*time.Second, func() bool {
		return m.Progress().BytesDownloaded > 0
	}, "transfer to begin")

	m.Pause()
	waitFor(t, 10*time.Second, func() bool {
		return m.Progress().Status == StatusPaused
	}, "worker to report paused")

	// While paused no further bytes move
	frozen := m.Progress().BytesDownloaded
	time.Sleep(150 * time.Millisecond)
	if got := m.Progress().BytesDownloaded; got != frozen {
		t.Errorf("Expected no progress while paused, bytes went %d -> %d", frozen, got)
	}

	m.Resume()
	waitFor(t, 10*time.Second, func() bool {
		return m.Progress().Status == StatusComplete
	}, "download to complete after resume")

	if !m.IsDownloaded("movie:42") {
		t.Error("Expected item recorded after resumed download")
	}
}

func TestWorkerIdlePauseResumeTransitions(t *testing.T) {
	m := newWorkerManager(t, "http://unused", nil)

	waitFor(t, 5*time.Second, func() bool {
		return m.Progress().Status == StatusIdle
	}, "worker to go idle")

	m.Pause()
	waitFor(t, 5*time.Second, func() bool {
		return m.Progress().Status == StatusPaused
	}, "idle worker to report paused")

	m.Resume()
	waitFor(t, 5*time.Second, func() bool {
		return m.Progress().Status == StatusIdle
	}, "worker to return to idle")
}

func TestWorkerResumeClearsStop(t *testing.T) {
	ts := httptest.NewServer(streamHandler(2, 5*time.Millisecond))
	defer ts.Close()

	m := newWorkerManager(t, ts.URL, nil)

	m.Stop()
	waitFor(t, 5*time.Second, func() bool {
		return m.Progress().Status == StatusStopped
	}, "worker to report stopped")

	if _, err := m.Enqueue(catalog.KindMovie, "42", "mp4", "Some Movie"); err != nil {
		t.Fatal(err)
	}

	// Still stopped: the job must not start
	time.Sleep(100 * time.Millisecond)
	if m.QueueSize() != 1 {
		t.Fatalf("Expected job to wait while stopped, queue size %d", m.QueueSize())
	}

	m.Resume()
	waitFor(t, 10*time.Second, func() bool {
		return m.IsDownloaded("movie:42")
	}, "download to complete after resume")
}

func TestWorkerRejectsHTTPError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer ts.Close()

	m := newWorkerManager(t, ts.URL, nil)

	if _, err := m.Enqueue(catalog.KindMovie, "42", "mp4", "Missing Movie"); err != nil {
		t.Fatal(err)
	}

	waitFor(t, 10*time.Second, func() bool {
		return m.Progress().Status == StatusError
	}, "worker to report error")

	if m.IsDownloaded("movie:42") {
		t.Error("Failed item must not be recorded as downloaded")
	}
}

func TestWorkerRejectsUndersizedFile(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// A provider error page dressed up as a 200
		w.Write([]byte("<html>login expired</html>"))
	}))
	defer ts.Close()

	m := newWorkerManager(t, ts.URL, nil)

	if _, err := m.Enqueue(catalog.KindMovie, "42", "mp4", "Tiny Movie"); err != nil {
		t.Fatal(err)
	}

	waitFor(t, 10*time.Second, func() bool {
		return m.Progress().Status == StatusError
	}, "worker to reject undersized file")

	if m.IsDownloaded("movie:42") {
		t.Error("Undersized download must not be recorded")
	}
}
