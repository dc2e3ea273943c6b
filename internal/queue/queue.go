package queue

import (
	"sync"

	apperrors "github.com/LambTjops/vod-downloader/internal/errors"
)

// JobQueue is an ordered FIFO of jobs plus a membership index of queued
// itemIds, giving O(1) duplicate checks. All operations are serialized
// behind a single mutex; snapshots are lock-consistent.
type JobQueue struct {
	mu     sync.Mutex
	jobs   []*Job
	queued map[string]struct{} // itemIds currently queued
}

// NewJobQueue creates an empty job queue
func NewJobQueue() *JobQueue {
	return &JobQueue{
		queued: make(map[string]struct{}),
	}
}

// Enqueue appends a job. It fails with a duplicate-job error if a job for
// the same itemId is already queued.
func (q *JobQueue) Enqueue(job *Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.queued[job.ItemID]; ok {
		return apperrors.NewDuplicateJobError(job.ItemID)
	}

	q.jobs = append(q.jobs, job)
	q.queued[job.ItemID] = struct{}{}
	return nil
}

// DequeueFront removes and returns the head job. The itemId membership is
// released in the same atomic step, so re-enqueueing the same item becomes
// legal immediately even while the removed job is still being processed.
func (q *JobQueue) DequeueFront() (*Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.jobs) == 0 {
		return nil, apperrors.ErrQueueEmpty
	}

	job := q.jobs[0]
	q.jobs = q.jobs[1:]
	delete(q.queued, job.ItemID)
	return job, nil
}

// Remove deletes a job by id regardless of position, releasing its itemId
// membership. It fails with a not-found error if the id is absent.
func (q *JobQueue) Remove(jobID string) (*Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, job := range q.jobs {
		if job.ID == jobID {
			q.jobs = append(q.jobs[:i], q.jobs[i+1:]...)
			delete(q.queued, job.ItemID)
			return job, nil
		}
	}

	return nil, apperrors.NewJobNotFoundError(jobID)
}

// Reorder places the jobs named in order first, in that order. Jobs not
// mentioned keep their prior relative order and are appended afterward;
// no job is ever dropped. Unknown ids are ignored.
func (q *JobQueue) Reorder(order []string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	byID := make(map[string]*Job, len(q.jobs))
	for _, job := range q.jobs {
		byID[job.ID] = job
	}

	reordered := make([]*Job, 0, len(q.jobs))
	placed := make(map[string]struct{}, len(order))

	for _, id := range order {
		if job, ok := byID[id]; ok {
			reordered = append(reordered, job)
			placed[id] = struct{}{}
		}
	}

	for _, job := range q.jobs {
		if _, ok := placed[job.ID]; !ok {
			reordered = append(reordered, job)
		}
	}

	q.jobs = reordered
}

// Clear empties the queue and membership set. It returns the number of
// jobs removed. An in-flight job is unaffected: it was already dequeued.
func (q *JobQueue) Clear() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := len(q.jobs)
	q.jobs = nil
	q.queued = make(map[string]struct{})
	return n
}

// List returns a snapshot of the queued jobs in order
func (q *JobQueue) List() []Job {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]Job, len(q.jobs))
	for i, job := range q.jobs {
		out[i] = *job
	}
	return out
}

// Size returns the number of queued jobs
func (q *JobQueue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.jobs)
}

// Contains reports whether a job for the itemId is queued
func (q *JobQueue) Contains(itemID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	_, ok := q.queued[itemID]
	return ok
}
