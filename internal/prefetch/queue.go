package prefetch

import (
	"container/heap"

	"github.com/pageturn/pageturn/internal/texcache"
)

// jobQueue is an indexed min-heap of jobs ordered by (Priority, Order).
// The key→position index makes find-or-insert and re-prioritization
// O(log n), so telemetry updates stay cheap on folders with thousands of
// files. Not synchronized; the scheduler's mutex guards it.
type jobQueue struct {
	jobs  []*Job
	index map[texcache.Key]int
}

func newJobQueue() *jobQueue {
	return &jobQueue{index: make(map[texcache.Key]int)}
}

// heap.Interface

func (q *jobQueue) Len() int { return len(q.jobs) }

func (q *jobQueue) Less(i, j int) bool {
	a, b := q.jobs[i], q.jobs[j]
	if a.Priority != b.Priority {
		return a.Priority < b.Priority
	}
	return a.Order < b.Order
}

func (q *jobQueue) Swap(i, j int) {
	q.jobs[i], q.jobs[j] = q.jobs[j], q.jobs[i]
	q.index[q.jobs[i].Key] = i
	q.index[q.jobs[j].Key] = j
}

func (q *jobQueue) Push(x any) {
	job := x.(*Job)
	q.index[job.Key] = len(q.jobs)
	q.jobs = append(q.jobs, job)
}

func (q *jobQueue) Pop() any {
	old := q.jobs
	n := len(old)
	job := old[n-1]
	old[n-1] = nil
	q.jobs = old[:n-1]
	delete(q.index, job.Key)
	return job
}

// contains reports whether a job for key is queued.
func (q *jobQueue) contains(key texcache.Key) bool {
	_, ok := q.index[key]
	return ok
}

// push enqueues a new job. The caller must ensure the key is not present.
func (q *jobQueue) push(job *Job) {
	heap.Push(q, job)
}

// pop removes and returns the highest-priority job, or nil when empty.
func (q *jobQueue) pop() *Job {
	if len(q.jobs) == 0 {
		return nil
	}
	return heap.Pop(q).(*Job)
}

// bump raises the priority of a queued job. Returns false when the key is
// not queued or the existing priority is already equal or higher
// (smaller), making repeated identical updates no-ops.
func (q *jobQueue) bump(key texcache.Key, priority, order int) bool {
	i, ok := q.index[key]
	if !ok {
		return false
	}
	job := q.jobs[i]
	if priority >= job.Priority {
		return false
	}
	job.Priority = priority
	job.Order = order
	heap.Fix(q, i)
	return true
}

// remove deletes the job for key, returning it if present.
func (q *jobQueue) remove(key texcache.Key) *Job {
	i, ok := q.index[key]
	if !ok {
		return nil
	}
	return heap.Remove(q, i).(*Job)
}

// keys returns every queued key; used for the cancellation sweep.
func (q *jobQueue) keys() []texcache.Key {
	out := make([]texcache.Key, 0, len(q.jobs))
	for _, job := range q.jobs {
		out = append(out, job.Key)
	}
	return out
}
