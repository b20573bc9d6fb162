// Package eventqueue implements the time-ordered event heap driving a
// simulation run. Events are ordered by simulation time, with insertion
// order breaking ties so same-time events process in FIFO order.
package eventqueue

import "container/heap"

// Kind identifies the category of a scheduled event.
type Kind int

const (
	ValidatorFail Kind = iota
	ValidatorRecover
	BlockAttempt
	MeetingReset
	MeetingAdjust
	Progress
)

// Event is one scheduled occurrence in the simulation timeline.
type Event struct {
	When    int64
	seq     int64
	Kind    Kind
	Payload any
}

type entries []Event

func (e entries) Len() int { return len(e) }
func (e entries) Less(i, j int) bool {
	if e[i].When != e[j].When {
		return e[i].When < e[j].When
	}
	return e[i].seq < e[j].seq
}
func (e entries) Swap(i, j int) { e[i], e[j] = e[j], e[i] }

func (e *entries) Push(x any) { *e = append(*e, x.(Event)) }
func (e *entries) Pop() any {
	old := *e
	n := len(old)
	item := old[n-1]
	*e = old[:n-1]
	return item
}

// Queue is a min-heap of Events ordered by (When, insertion sequence).
// There is no cancellation API: a scheduled event that is no longer relevant
// by the time it is popped is simply discarded by the caller (the driver
// rechecks preconditions at pop time), matching the original event loop's
// "ignore outdated event" discard rule.
type Queue struct {
	h       entries
	nextSeq int64
}

// New returns an empty Queue.
func New() *Queue {
	q := &Queue{}
	heap.Init(&q.h)
	return q
}

// Schedule pushes a new event for time when, returning the Event as stored.
func (q *Queue) Schedule(when int64, kind Kind, payload any) Event {
	ev := Event{When: when, seq: q.nextSeq, Kind: kind, Payload: payload}
	q.nextSeq++
	heap.Push(&q.h, ev)
	return ev
}

// Pop removes and returns the earliest-ordered event, or ok=false if empty.
func (q *Queue) Pop() (Event, bool) {
	if q.h.Len() == 0 {
		return Event{}, false
	}
	return heap.Pop(&q.h).(Event), true
}

// Len reports the number of events currently queued.
func (q *Queue) Len() int { return q.h.Len() }
