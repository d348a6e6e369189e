package arena

import (
	"container/heap"
	"time"
)

// Scheduler is the single deadline-ordered task queue for the simulation.
// Tasks are enqueued with an absolute deadline and drained by the loop at
// tick boundaries, so a deferred action can never interleave with another
// handler's synchronous work.
type Scheduler struct {
	tasks  taskHeap
	nextID int
}

type scheduledTask struct {
	id       int
	deadline time.Time
	fn       func()
	canceled bool
	index    int
}

// TaskHandle allows a scheduled task to be canceled before it fires.
type TaskHandle struct {
	task *scheduledTask
}

// Cancel prevents the task from running. Safe on fired or canceled tasks.
func (h TaskHandle) Cancel() {
	if h.task != nil {
		h.task.canceled = true
	}
}

// NewScheduler creates an empty scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{}
}

// After enqueues fn to run once now+delay has passed.
func (s *Scheduler) After(now time.Time, delay time.Duration, fn func()) TaskHandle {
	s.nextID++
	t := &scheduledTask{
		id:       s.nextID,
		deadline: now.Add(delay),
		fn:       fn,
	}
	heap.Push(&s.tasks, t)
	return TaskHandle{task: t}
}

// RunDue executes every task whose deadline is at or before now, in deadline
// order. Tasks scheduled while draining run on a later call if their deadline
// has not passed, which keeps a tick's work bounded.
func (s *Scheduler) RunDue(now time.Time) int {
	ran := 0
	for s.tasks.Len() > 0 {
		next := s.tasks[0]
		if next.deadline.After(now) {
			break
		}
		heap.Pop(&s.tasks)
		if next.canceled {
			continue
		}
		next.fn()
		ran++
	}
	return ran
}

// Pending returns the number of queued tasks, including canceled ones not
// yet drained.
func (s *Scheduler) Pending() int {
	return s.tasks.Len()
}

// taskHeap is a min-heap ordered by deadline, with insertion id as the
// tie-break so equal deadlines run in scheduling order.
type taskHeap []*scheduledTask

func (h taskHeap) Len() int { return len(h) }

func (h taskHeap) Less(i, j int) bool {
	if h[i].deadline.Equal(h[j].deadline) {
		return h[i].id < h[j].id
	}
	return h[i].deadline.Before(h[j].deadline)
}

func (h taskHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *taskHeap) Push(x interface{}) {
	t := x.(*scheduledTask)
	t.index = len(*h)
	*h = append(*h, t)
}

func (h *taskHeap) Pop() interface{} {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return t
}
