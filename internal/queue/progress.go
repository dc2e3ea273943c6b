package queue

import "sync"

// Status labels the worker's current activity
type Status string

const (
	StatusIdle        Status = "Idle"
	StatusStarting    Status = "Starting"
	StatusDownloading Status = "Downloading"
	StatusPaused      Status = "Paused"
	StatusStopped     Status = "Stopped"
	StatusComplete    Status = "Complete"
	StatusError       Status = "Error"
)

// Progress is a snapshot of current worker activity. Exactly one live
// instance exists; it is overwritten in place each tick and carries no
// history.
type Progress struct {
	CurrentFile     string `json:"current_file"`
	BytesDownloaded int64  `json:"bytes_downloaded"`
	TotalBytes      int64  `json:"total_bytes"`
	Percent         int    `json:"percent"`
	Status          Status `json:"status"`
	QueueDepth      int    `json:"queue_depth"`
	Error           string `json:"error,omitempty"`
}

// Tracker holds the live progress snapshot. The worker is the single
// writer; pollers read consistent copies.
type Tracker struct {
	mu  sync.RWMutex
	cur Progress
}

// NewTracker creates a tracker in the Idle state
func NewTracker() *Tracker {
	return &Tracker{cur: Progress{Status: StatusIdle}}
}

// Snapshot returns a copy of the current progress
func (t *Tracker) Snapshot() Progress {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.cur
}

// SetIdle resets the snapshot to an idle-like status, clearing any
// per-file fields.
func (t *Tracker) SetIdle(status Status, queueDepth int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.cur = Progress{Status: status, QueueDepth: queueDepth}
}

// StartFile begins tracking a new transfer
func (t *Tracker) StartFile(filename string, queueDepth int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.cur = Progress{
		CurrentFile: filename,
		Status:      StatusStarting,
		QueueDepth:  queueDepth,
	}
}

// SetTotal records the advertised total size of the current transfer
func (t *Tracker) SetTotal(total int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.cur.TotalBytes = total
}

// Advance adds transferred bytes and recomputes the percentage when the
// total is known. Percent stays unset for transfers of unknown length.
func (t *Tracker) Advance(bytes int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.cur.BytesDownloaded += bytes
	t.cur.Status = StatusDownloading
	if t.cur.TotalBytes > 0 {
		t.cur.Percent = int(t.cur.BytesDownloaded * 100 / t.cur.TotalBytes)
	}
}

// SetStatus updates only the status label
func (t *Tracker) SetStatus(status Status) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.cur.Status = status
}

// Complete marks the current transfer finished
func (t *Tracker) Complete() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.cur.Status = StatusComplete
	if t.cur.TotalBytes > 0 {
		t.cur.Percent = 100
	}
}

// Fail marks the current transfer failed with a message
func (t *Tracker) Fail(message string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.cur.Status = StatusError
	t.cur.Error = message
}

// SetQueueDepth updates the pending job count
func (t *Tracker) SetQueueDepth(depth int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.cur.QueueDepth = depth
}
