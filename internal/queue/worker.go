package queue

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/LambTjops/vod-downloader/internal/errors"
	"github.com/LambTjops/vod-downloader/internal/monitoring"
)

// chunkSize is the transfer unit. Pause and stop take effect between
// chunks, so it also bounds how long a control command can lag.
const chunkSize = 1 << 20 // 1 MiB

// errStopped aborts a transfer when a stop command arrives mid-file
var errStopped = errors.New("transfer stopped")

// runWorker is the single queue consumer. It blocks while the queue is
// empty, paused or stopped, and exits when ctx ends or Close is called.
func (m *Manager) runWorker(ctx context.Context) {
	for {
		job, ok := m.nextJob(ctx)
		if !ok {
			return
		}

		m.processJob(ctx, job)
	}
}

// nextJob blocks until a job is available and the worker is allowed to
// run. It returns false when the manager is closing.
func (m *Manager) nextJob(ctx context.Context) (*Job, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for {
		if m.closed || ctx.Err() != nil {
			return nil, false
		}

		switch {
		case m.paused:
			m.tracker.SetIdle(StatusPaused, m.queue.Size())
		case m.stopped:
			m.tracker.SetIdle(StatusStopped, m.queue.Size())
		default:
			job, err := m.queue.DequeueFront()
			if err == nil {
				return job, true
			}
			m.tracker.SetIdle(StatusIdle, 0)
		}

		m.cond.Wait()
	}
}

// processJob transfers one job and settles its outcome: record on
// success, discard on failure, keep the partial file on stop.
func (m *Manager) processJob(ctx context.Context, job *Job) {
	m.tracker.StartFile(filepath.Base(job.DestinationPath), m.queue.Size())
	monitoring.UpdateQueueSize(m.queue.Size())

	m.logger.Info("download starting",
		zap.String("job_id", job.ID),
		zap.String("item_id", job.ItemID),
		zap.String("file", filepath.Base(job.DestinationPath)))

	started := time.Now()
	written, err := m.transfer(ctx, job)

	switch {
	case errors.Is(err, errStopped):
		// Stop keeps the partial file and does not record the item, so a
		// later enqueue redownloads it from scratch.
		monitoring.RecordDownloadStopped(string(job.Kind))
		m.logger.Info("download stopped",
			zap.String("job_id", job.ID),
			zap.Int64("bytes_written", written))

	case err != nil:
		monitoring.RecordDownloadFailed(string(job.Kind), string(apperrors.GetErrorType(err)))
		m.tracker.Fail(err.Error())
		m.logger.Error("download failed",
			zap.String("job_id", job.ID),
			zap.String("item_id", job.ItemID),
			zap.Error(err))
		m.hold(ctx, m.cfg.Download.ErrorCooldownSecs)

	default:
		m.finishJob(ctx, job, written, time.Since(started))
	}
}

// finishJob validates and records a completed transfer
func (m *Manager) finishJob(ctx context.Context, job *Job, written int64, elapsed time.Duration) {
	info, err := os.Stat(job.DestinationPath)
	if err != nil {
		m.tracker.Fail(fmt.Sprintf("downloaded file missing: %v", err))
		monitoring.RecordDownloadFailed(string(job.Kind), string(apperrors.ErrTypeTransfer))
		m.hold(ctx, m.cfg.Download.ErrorCooldownSecs)
		return
	}

	sizeMB := float64(info.Size()) / (1 << 20)
	minMB := float64(m.cfg.Download.MinFileSizeMB)

	// A tiny payload is the provider's error page, not the media
	if minMB > 0 && sizeMB < minMB {
		m.tracker.Fail(fmt.Sprintf("file too small (%.2f MB), likely an error response", sizeMB))
		monitoring.RecordDownloadFailed(string(job.Kind), string(apperrors.ErrTypeTransfer))
		m.logger.Warn("download below size threshold, not recording",
			zap.String("job_id", job.ID),
			zap.Float64("size_mb", sizeMB))
		m.hold(ctx, m.cfg.Download.ErrorCooldownSecs)
		return
	}

	if err := m.records.Record(job.ItemID, filepath.Base(job.DestinationPath), sizeMB); err != nil {
		// The file is on disk; losing the record only risks a redownload
		m.logger.Error("failed to persist download record",
			zap.String("item_id", job.ItemID),
			zap.Error(err))
	}

	monitoring.RecordDownloadComplete(string(job.Kind), elapsed, written)
	m.tracker.Complete()

	m.logger.Info("download complete",
		zap.String("job_id", job.ID),
		zap.String("item_id", job.ItemID),
		zap.Float64("size_mb", sizeMB),
		zap.Duration("elapsed", elapsed))

	// Let pollers observe the Complete state before moving on
	m.hold(ctx, m.cfg.Download.CompleteHoldSecs)
}

// transfer streams the job's URL to its destination path in fixed-size
// chunks, honoring pause, stop and the bandwidth limit between chunks.
// It returns the bytes written; on errStopped the partial file remains.
func (m *Manager) transfer(ctx context.Context, job *Job) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, job.URL, nil)
	if err != nil {
		return 0, apperrors.NewTransferError("failed to build request", err)
	}
	req.Header.Set("User-Agent", m.provider.UserAgent())

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return 0, apperrors.NewTransferError("request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, apperrors.NewTransferError(
			fmt.Sprintf("provider returned status %d", resp.StatusCode), nil)
	}

	if resp.ContentLength > 0 {
		m.tracker.SetTotal(resp.ContentLength)
	}

	if err := os.MkdirAll(filepath.Dir(job.DestinationPath), 0755); err != nil {
		return 0, apperrors.NewTransferError("failed to create output directory", err)
	}

	out, err := os.OpenFile(job.DestinationPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return 0, apperrors.NewTransferError("failed to create output file", err)
	}
	defer out.Close()

	var written int64
	buf := make([]byte, chunkSize)

	for {
		if err := m.waitWhilePaused(ctx); err != nil {
			return written, err
		}

		n, readErr := io.ReadFull(resp.Body, buf)
		if n > 0 {
			if m.limiter != nil {
				if err := m.limiter.WaitN(ctx, n); err != nil {
					return written, apperrors.NewTransferError("bandwidth wait interrupted", err)
				}
			}

			if _, err := out.Write(buf[:n]); err != nil {
				return written, apperrors.NewTransferError("failed to write output file", err)
			}
			written += int64(n)
			m.tracker.Advance(int64(n))
		}

		if readErr != nil {
			if readErr == io.EOF || readErr == io.ErrUnexpectedEOF {
				break
			}
			return written, apperrors.NewTransferError("failed to read response body", readErr)
		}
	}

	if err := out.Sync(); err != nil {
		return written, apperrors.NewTransferError("failed to sync output file", err)
	}

	return written, nil
}

// waitWhilePaused blocks between chunks while the queue is paused. A stop
// or shutdown arriving before or during the pause aborts the transfer.
func (m *Manager) waitWhilePaused(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for {
		if m.closed || ctx.Err() != nil {
			return errStopped
		}
		if m.stopped {
			return errStopped
		}
		if !m.paused {
			return nil
		}

		m.tracker.SetStatus(StatusPaused)
		m.cond.Wait()
	}
}

// hold sleeps for the given number of seconds, returning early on
// shutdown. Zero or negative durations return immediately.
func (m *Manager) hold(ctx context.Context, seconds int) {
	if seconds <= 0 {
		return
	}

	select {
	case <-time.After(time.Duration(seconds) * time.Second):
	case <-ctx.Done():
	}
}
