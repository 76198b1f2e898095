package notification

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Queue holds jobs until they are due. Dequeue returns nil, nil when no
// job is ready yet. A dequeued job stays claimed until Ack; Recover
// requeues claimed jobs that were never acked.
type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Dequeue(ctx context.Context) (*Job, error)
	Ack(ctx context.Context, jobID string) error
	Recover(ctx context.Context) (int, error)
	Close() error
}

// MemoryQueue keeps jobs in process, ordered by NotBefore.
type MemoryQueue struct {
	mu         sync.Mutex
	jobs       []Job
	processing map[string]Job
	now        func() time.Time
}

func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{
		processing: make(map[string]Job),
		now:        time.Now,
	}
}

func (q *MemoryQueue) Enqueue(_ context.Context, job Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.push(job)
	return nil
}

func (q *MemoryQueue) push(job Job) {
	q.jobs = append(q.jobs, job)
	sort.SliceStable(q.jobs, func(i, j int) bool {
		return q.jobs[i].NotBefore.Before(q.jobs[j].NotBefore)
	})
}

func (q *MemoryQueue) Dequeue(_ context.Context) (*Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.jobs) == 0 || q.jobs[0].NotBefore.After(q.now()) {
		return nil, nil
	}

	job := q.jobs[0]
	q.jobs = q.jobs[1:]
	q.processing[job.ID] = job
	return &job, nil
}

func (q *MemoryQueue) Ack(_ context.Context, jobID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.processing, jobID)
	return nil
}

func (q *MemoryQueue) Recover(_ context.Context) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now()
	n := 0
	for id, job := range q.processing {
		job.NotBefore = now
		q.push(job)
		delete(q.processing, id)
		n++
	}
	return n, nil
}

func (q *MemoryQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}

func (q *MemoryQueue) Close() error {
	return nil
}
