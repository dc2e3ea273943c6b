package queue

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/LambTjops/vod-downloader/internal/catalog"
	"github.com/LambTjops/vod-downloader/internal/config"
	apperrors "github.com/LambTjops/vod-downloader/internal/errors"
	"github.com/LambTjops/vod-downloader/internal/match"
	"github.com/LambTjops/vod-downloader/internal/monitoring"
	"github.com/LambTjops/vod-downloader/internal/network"
	"github.com/LambTjops/vod-downloader/internal/store"
)

// CatalogProvider is the slice of the catalog client the queue needs:
// direct URLs for items and episode listings for series expansion.
type CatalogProvider interface {
	StreamURL(kind catalog.Kind, catalogID, extension string) string
	SeriesInfo(ctx context.Context, seriesID string) (*catalog.SeriesInfo, error)
	UserAgent() string
}

// Manager owns the job queue, the pause/stop control flags and the
// progress snapshot, and exposes the command/query surface used by the
// presentation layer. All queue and control mutations are serialized
// through it; request handlers never touch internal state directly.
type Manager struct {
	cfg      *config.Config
	queue    *JobQueue
	records  *store.RecordStore
	matcher  *match.Matcher
	provider CatalogProvider
	tracker  *Tracker
	logger   *zap.Logger

	httpClient *http.Client
	limiter    *rate.Limiter // nil when no bandwidth limit is configured

	mu      sync.Mutex
	cond    *sync.Cond
	paused  bool
	stopped bool
	closed  bool
	started bool
	wg      sync.WaitGroup
}

// NewManager creates a queue manager
func NewManager(
	cfg *config.Config,
	records *store.RecordStore,
	matcher *match.Matcher,
	provider CatalogProvider,
	logger *zap.Logger,
) *Manager {
	m := &Manager{
		cfg:        cfg,
		queue:      NewJobQueue(),
		records:    records,
		matcher:    matcher,
		provider:   provider,
		tracker:    NewTracker(),
		logger:     logger,
		httpClient: network.GetStreamClient(),
	}
	m.cond = sync.NewCond(&m.mu)

	if bw := cfg.Download.BandwidthLimit; bw > 0 {
		// Burst must cover a whole chunk or WaitN would never admit one
		burst := bw
		if burst < chunkSize {
			burst = chunkSize
		}
		m.limiter = rate.NewLimiter(rate.Limit(bw), burst)
	}

	return m
}

// Start launches the background worker
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started {
		return fmt.Errorf("queue manager already started")
	}
	m.started = true

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.runWorker(ctx)
	}()

	// The condition variable cannot observe ctx directly; wake the worker
	// when the context ends so it can exit.
	go func() {
		<-ctx.Done()
		m.cond.Broadcast()
	}()

	m.logger.Info("download worker started")
	return nil
}

// Close shuts down the worker and waits for it to exit. An in-flight
// transfer is cancelled like a stop, leaving its partial file on disk.
func (m *Manager) Close() {
	m.mu.Lock()
	if !m.started || m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.cond.Broadcast()
	m.mu.Unlock()

	m.wg.Wait()
	m.logger.Info("download worker stopped")
}

// Enqueue adds a download job for one catalog item. Items already recorded
// as downloaded, or already matched against a file on disk, are rejected
// with an already-downloaded outcome; items already queued with a
// duplicate-job outcome. On success the new job id is returned.
func (m *Manager) Enqueue(kind catalog.Kind, catalogID, extension, title string) (string, error) {
	if !kind.Valid() {
		return "", apperrors.NewValidationError(fmt.Sprintf("unknown kind %q", kind))
	}
	if catalogID == "" {
		return "", apperrors.NewValidationError("catalog id cannot be empty")
	}
	if extension == "" {
		return "", apperrors.NewValidationError("container extension cannot be empty")
	}

	itemID := ItemID(kind, catalogID)

	if m.records.Contains(itemID) {
		return "", apperrors.NewAlreadyDownloadedError(itemID)
	}

	// Consult the disk index: a file placed out-of-band counts as
	// downloaded and self-heals the record store.
	if rec, ok := m.matchOnDisk(kind, title); ok {
		m.recordScanMatch(itemID, rec)
		return "", apperrors.NewAlreadyDownloadedError(itemID)
	}

	job := m.buildJob(kind, catalogID, extension, title)
	if err := m.queue.Enqueue(job); err != nil {
		return "", err
	}

	m.logger.Info("job enqueued",
		zap.String("job_id", job.ID),
		zap.String("item_id", itemID),
		zap.String("title", title))

	m.wake()
	return job.ID, nil
}

// EnqueueSeries expands a series into one job per episode, skipping
// episodes that are already queued or downloaded. It returns the number of
// jobs added.
func (m *Manager) EnqueueSeries(ctx context.Context, seriesID string) (int, error) {
	if seriesID == "" {
		return 0, apperrors.NewValidationError("series id cannot be empty")
	}

	info, err := m.provider.SeriesInfo(ctx, seriesID)
	if err != nil {
		return 0, fmt.Errorf("failed to expand series %s: %w", seriesID, err)
	}

	added := 0
	for _, ep := range info.Episodes {
		itemID := ItemID(catalog.KindSeries, ep.ID.String())

		if m.records.Contains(itemID) || m.queue.Contains(itemID) {
			continue
		}

		if rec, ok := m.matcher.MatchEpisode(info.Name, ep.Season.Int(), ep.Number.Int()); ok {
			m.recordScanMatch(itemID, rec)
			continue
		}

		title := fmt.Sprintf("%s - S%02dE%02d", info.Name, ep.Season.Int(), ep.Number.Int())
		if ep.Title != "" {
			title += " - " + ep.Title
		}

		ext := ep.Extension
		if ext == "" {
			ext = "mkv"
		}

		job := m.buildJob(catalog.KindSeries, ep.ID.String(), ext, title)
		if err := m.queue.Enqueue(job); err != nil {
			// Membership was checked above; a duplicate here means a
			// concurrent enqueue won the race. Skip it.
			continue
		}
		added++
	}

	if added > 0 {
		m.logger.Info("series expanded",
			zap.String("series_id", seriesID),
			zap.Int("episodes_added", added))
		m.wake()
	}

	return added, nil
}

// buildJob assembles an immutable job for a catalog item
func (m *Manager) buildJob(kind catalog.Kind, catalogID, extension, title string) *Job {
	name := SanitizeFilename(title)
	if name == "" {
		name = catalogID
	}
	filename := name + "." + extension

	return &Job{
		ID:              uuid.NewString(),
		URL:             m.provider.StreamURL(kind, catalogID, extension),
		DestinationPath: filepath.Join(m.cfg.Download.OutputDir, filename),
		DisplayName:     title,
		Kind:            kind,
		ItemID:          ItemID(kind, catalogID),
	}
}

// matchOnDisk consults the scan index for a catalog title. Episode titles
// carry their season/episode pattern; movie titles match by name.
func (m *Manager) matchOnDisk(kind catalog.Kind, title string) (match.FileRecord, bool) {
	parsed := match.Parse(title)

	if parsed.Type == match.TypeEpisode {
		return m.matcher.MatchEpisode(parsed.Name, parsed.Season, parsed.Episode)
	}

	if kind == catalog.KindMovie {
		return m.matcher.MatchMovie(title)
	}

	return match.FileRecord{}, false
}

// recordScanMatch self-heals the record store from a positive disk match
func (m *Manager) recordScanMatch(itemID string, rec match.FileRecord) {
	monitoring.ScanMatchesTotal.Inc()

	if err := m.records.Record(itemID, rec.Filename, rec.SizeMB); err != nil {
		m.logger.Warn("failed to record disk match",
			zap.String("item_id", itemID),
			zap.Error(err))
		return
	}

	m.logger.Info("existing file matched to catalog item",
		zap.String("item_id", itemID),
		zap.String("file", rec.Filename))
}

// Pause suspends the worker. Idempotent; takes effect at the worker's
// next poll point.
func (m *Manager) Pause() {
	m.mu.Lock()
	m.paused = true
	m.cond.Broadcast()
	m.mu.Unlock()

	m.logger.Info("queue paused")
}

// Resume clears the paused flag. It also clears a prior stop, so a
// stopped queue resumes consuming jobs. Idempotent.
func (m *Manager) Resume() {
	m.mu.Lock()
	m.paused = false
	m.stopped = false
	m.cond.Broadcast()
	m.mu.Unlock()

	m.logger.Info("queue resumed")
}

// Stop halts the worker: the current transfer is aborted at the next
// chunk boundary, its partial file is kept and the item is not marked
// downloaded. No further jobs are dequeued until Resume.
func (m *Manager) Stop() {
	m.mu.Lock()
	m.stopped = true
	m.paused = false
	m.cond.Broadcast()
	m.mu.Unlock()

	m.logger.Info("queue stopped")
}

// ClearQueue removes all pending jobs, returning the number removed. The
// in-flight job, if any, is unaffected.
func (m *Manager) ClearQueue() int {
	n := m.queue.Clear()
	m.refreshDepth()

	m.logger.Info("queue cleared", zap.Int("removed", n))
	return n
}

// RemoveJob removes one pending job by id
func (m *Manager) RemoveJob(jobID string) error {
	job, err := m.queue.Remove(jobID)
	if err != nil {
		return err
	}

	m.refreshDepth()
	m.logger.Info("job removed",
		zap.String("job_id", job.ID),
		zap.String("item_id", job.ItemID))
	return nil
}

// Reorder applies a new job order. Jobs not named keep their relative
// order after the named ones.
func (m *Manager) Reorder(jobIDs []string) {
	m.queue.Reorder(jobIDs)
}

// ListQueue returns a snapshot of the pending jobs in order
func (m *Manager) ListQueue() []Job {
	return m.queue.List()
}

// QueueSize returns the number of pending jobs
func (m *Manager) QueueSize() int {
	return m.queue.Size()
}

// IsQueued reports whether a job for the itemId is pending
func (m *Manager) IsQueued(itemID string) bool {
	return m.queue.Contains(itemID)
}

// IsDownloaded reports whether the itemId has a download record
func (m *Manager) IsDownloaded(itemID string) bool {
	return m.records.Contains(itemID)
}

// MarkDownloaded records an item as downloaded without transferring it.
// When filePath names an existing file its size is recorded.
func (m *Manager) MarkDownloaded(itemID, filename, filePath string) error {
	if itemID == "" {
		return apperrors.NewValidationError("item id cannot be empty")
	}

	var sizeMB float64
	if filePath != "" {
		if info, err := os.Stat(filePath); err == nil {
			sizeMB = float64(info.Size()) / (1 << 20)
		}
	}

	if err := m.records.Record(itemID, filename, sizeMB); err != nil {
		return apperrors.NewStoreWriteError("failed to persist download record", err)
	}

	return nil
}

// UnmarkDownloaded removes an item's download record
func (m *Manager) UnmarkDownloaded(itemID string) error {
	removed, err := m.records.Remove(itemID)
	if err != nil {
		return apperrors.NewStoreWriteError("failed to persist record removal", err)
	}
	if !removed {
		return apperrors.NewJobNotFoundError(itemID)
	}

	return nil
}

// Downloads returns a copy of all download records keyed by itemId
func (m *Manager) Downloads() map[string]store.DownloadRecord {
	return m.records.All()
}

// ScanFiles rescans the download directory, rebuilding the disk index.
// It returns the number of files indexed.
func (m *Manager) ScanFiles() (int, error) {
	return m.matcher.Scan(m.cfg.Download.OutputDir)
}

// Progress returns a snapshot of the worker's current activity
func (m *Manager) Progress() Progress {
	return m.tracker.Snapshot()
}

// WorkerStatus returns the current status label
func (m *Manager) WorkerStatus() string {
	return string(m.tracker.Snapshot().Status)
}

// wake refreshes queue depth bookkeeping and wakes the worker
func (m *Manager) wake() {
	m.refreshDepth()

	m.mu.Lock()
	m.cond.Broadcast()
	m.mu.Unlock()
}

// refreshDepth pushes the current queue size to the progress snapshot and
// metrics
func (m *Manager) refreshDepth() {
	depth := m.queue.Size()
	m.tracker.SetQueueDepth(depth)
	monitoring.UpdateQueueSize(depth)
}
