package ecs

import (
	"container/heap"
	"time"
)

// Scheduler is the simulation clock. Tasks are plain callbacks that fire when
// the clock is advanced past their due time; there are no goroutines, so a
// task is a cooperative suspension point of whoever scheduled it.
type Scheduler struct {
	now   time.Duration
	seq   uint64
	queue taskQueue
}

// Task is a scheduled callback. Cancel is idempotent and safe on a nil task.
type Task struct {
	at       time.Duration
	every    time.Duration
	fn       func()
	seq      uint64
	index    int
	canceled bool
	sched    *Scheduler
}

func NewScheduler() *Scheduler {
	return &Scheduler{}
}

// Now returns the simulation time. While a task runs, Now is the task's due
// time.
func (s *Scheduler) Now() time.Duration {
	if s == nil {
		return 0
	}
	return s.now
}

// After runs fn once, d after now.
func (s *Scheduler) After(d time.Duration, fn func()) *Task {
	return s.schedule(s.now+max(d, 0), 0, fn)
}

// Every runs fn on the next Advance and then every interval.
func (s *Scheduler) Every(interval time.Duration, fn func()) *Task {
	if interval <= 0 {
		return nil
	}
	return s.schedule(s.now, interval, fn)
}

func (s *Scheduler) schedule(at, every time.Duration, fn func()) *Task {
	if s == nil || fn == nil {
		return nil
	}
	s.seq++
	t := &Task{at: at, every: every, fn: fn, seq: s.seq, sched: s}
	heap.Push(&s.queue, t)
	return t
}

// Advance moves the clock forward by dt, firing due tasks in due-time order.
// Tasks due at the same time fire in the order they were scheduled.
func (s *Scheduler) Advance(dt time.Duration) {
	if s == nil {
		return
	}
	target := s.now + max(dt, 0)
	for len(s.queue) > 0 {
		next := s.queue[0]
		if next.at > target {
			break
		}
		heap.Pop(&s.queue)
		s.now = next.at
		if next.every > 0 {
			next.at += next.every
			s.seq++
			next.seq = s.seq
			heap.Push(&s.queue, next)
		}
		next.fn()
	}
	s.now = target
}

// Pending returns the number of scheduled tasks.
func (s *Scheduler) Pending() int {
	if s == nil {
		return 0
	}
	return len(s.queue)
}

// Cancel removes the task from its scheduler.
func (t *Task) Cancel() {
	if t == nil || t.canceled {
		return
	}
	t.canceled = true
	if t.index >= 0 && t.sched != nil && t.index < len(t.sched.queue) && t.sched.queue[t.index] == t {
		heap.Remove(&t.sched.queue, t.index)
	}
}

// Canceled reports whether Cancel was called.
func (t *Task) Canceled() bool {
	return t == nil || t.canceled
}

type taskQueue []*Task

func (q taskQueue) Len() int { return len(q) }

func (q taskQueue) Less(i, j int) bool {
	if q[i].at != q[j].at {
		return q[i].at < q[j].at
	}
	return q[i].seq < q[j].seq
}

func (q taskQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *taskQueue) Push(x any) {
	t := x.(*Task)
	t.index = len(*q)
	*q = append(*q, t)
}

func (q *taskQueue) Pop() any {
	old := *q
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*q = old[:n-1]
	return t
}
