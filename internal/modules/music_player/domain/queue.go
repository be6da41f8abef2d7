package domain

import "math/rand/v2"

// Queue is the FIFO list of pending track references for one guild.
// It never contains the currently playing track; the front is the next
// reference to resolve.
type Queue struct {
	refs []TrackReference
}

// NewQueue creates a new empty Queue.
func NewQueue() Queue {
	return Queue{refs: make([]TrackReference, 0)}
}

// Len returns the number of pending references.
func (q *Queue) Len() int {
	return len(q.refs)
}

// IsEmpty returns true if the queue has no pending references.
func (q *Queue) IsEmpty() bool {
	return q.Len() == 0
}

// Append adds references to the tail and returns the new length.
func (q *Queue) Append(refs ...TrackReference) int {
	q.refs = append(q.refs, refs...)
	return q.Len()
}

// PopFront removes and returns the front reference, or nil if empty.
func (q *Queue) PopFront() *TrackReference {
	if q.IsEmpty() {
		return nil
	}
	ref := q.refs[0]
	q.refs = q.refs[1:]
	return &ref
}

// Preview returns copies of at most n references from the front.
func (q *Queue) Preview(n int) []TrackReference {
	if n > q.Len() {
		n = q.Len()
	}
	result := make([]TrackReference, n)
	copy(result, q.refs[:n])
	return result
}

// List returns a copy of all pending references.
func (q *Queue) List() []TrackReference {
	result := make([]TrackReference, q.Len())
	copy(result, q.refs)
	return result
}

// RemoveAt removes and returns the reference at index (0-based), or nil if
// the index is out of bounds.
func (q *Queue) RemoveAt(index int) *TrackReference {
	if index < 0 || index >= q.Len() {
		return nil
	}
	ref := q.refs[index]
	q.refs = append(q.refs[:index], q.refs[index+1:]...)
	return &ref
}

// Shuffle permutes the pending references uniformly at random. Requires at
// least two entries; returns false without change otherwise. The currently
// playing track is unaffected since it is never part of the queue.
func (q *Queue) Shuffle() bool {
	if q.Len() < 2 {
		return false
	}
	rand.Shuffle(q.Len(), func(i, j int) {
		q.refs[i], q.refs[j] = q.refs[j], q.refs[i]
	})
	return true
}

// Clear removes all pending references and returns how many were dropped.
func (q *Queue) Clear() int {
	n := q.Len()
	q.refs = q.refs[:0]
	return n
}
