// Package queue fans alert snapshots out to subscribers.
//
// Every subscriber owns a bounded channel. Publishing never blocks: when a
// subscriber's channel is full its oldest snapshot is dropped to make room.
package queue

import (
	"sync"
	"time"

	"github.com/okian/palantir/internal/domain/model"
	"github.com/okian/palantir/pkg/metrics"
)

// Default queue configuration constants.
const (
	defaultCapacity = 8
)

// Snapshot is the set of active alerts observed at one point in time.
type Snapshot struct {
	Alerts []model.Alert `json:"alerts"`
	// New lists the alerts not announced by an earlier snapshot.
	New   []model.AlertRef `json:"new,omitempty"`
	Taken time.Time        `json:"taken"`
	// Error is set when the poll that produced the snapshot failed.
	Error string `json:"error,omitempty"`
}

// Queue publishes snapshots and hands out subscriptions.
type Queue interface {
	// Publish delivers s to every subscriber without blocking.
	// It returns how many subscribers received it and how many snapshots were dropped.
	Publish(s Snapshot) (delivered, dropped int)

	// Subscribe registers a new subscriber. The latest snapshot, if any,
	// is delivered immediately.
	Subscribe() (*Subscription, error)

	// Len returns the number of subscribers.
	Len() int

	// Close closes every subscription. Later calls to Subscribe fail.
	Close() error

	// IsClosed returns true if the queue has been closed.
	IsClosed() bool
}

// Subscription receives snapshots from a Queue.
type Subscription struct {
	id     uint64
	ch     chan Snapshot
	parent *InMemoryQueue
	once   sync.Once
}

// C returns the channel snapshots arrive on. It is closed when the
// subscription or the queue is closed.
func (s *Subscription) C() <-chan Snapshot { return s.ch }

// Close unsubscribes. It is safe to call more than once.
func (s *Subscription) Close() {
	s.parent.remove(s)
}

// InMemoryQueue implements Queue with one buffered channel per subscriber.
type InMemoryQueue struct {
	capacity int

	mu     sync.Mutex
	subs   map[uint64]*Subscription
	nextID uint64
	last   *Snapshot
	closed bool
}

// NewInMemoryQueue creates a new queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity: defaultCapacity,
		subs:     make(map[uint64]*Subscription),
	}
	for _, opt := range opts {
		opt(q)
	}

	metrics.UpdateFeedQueueCapacity(q.capacity)
	metrics.UpdateFeedSubscribers(0)
	return q
}

// Publish delivers s to every subscriber.
func (q *InMemoryQueue) Publish(s Snapshot) (delivered, dropped int) { //nolint:gocritic // hugeParam: Snapshot is copied into every channel
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		metrics.RecordErrorByComponent("queue", "closed")
		return 0, 0
	}
	q.last = &s

	for _, sub := range q.subs {
		if offer(sub.ch, s) {
			dropped++
			metrics.RecordFeedDropped()
		}
		delivered++
	}
	metrics.RecordFeedPublished()
	return delivered, dropped
}

// offer pushes s onto ch, evicting the oldest entry when ch is full.
// It reports whether an entry was evicted. Callers hold the queue lock, so
// ch has no other producer.
func offer(ch chan Snapshot, s Snapshot) bool { //nolint:gocritic // hugeParam
	select {
	case ch <- s:
		return false
	default:
	}
	evicted := false
	select {
	case <-ch:
		evicted = true
	default:
	}
	ch <- s
	return evicted
}

// Subscribe registers a new subscriber.
func (q *InMemoryQueue) Subscribe() (*Subscription, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil, ErrClosed
	}
	q.nextID++
	sub := &Subscription{id: q.nextID, ch: make(chan Snapshot, q.capacity), parent: q}
	q.subs[sub.id] = sub
	if q.last != nil {
		sub.ch <- *q.last
	}
	metrics.UpdateFeedSubscribers(len(q.subs))
	return sub, nil
}

func (q *InMemoryQueue) remove(s *Subscription) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.subs[s.id]; !ok {
		return
	}
	delete(q.subs, s.id)
	s.once.Do(func() { close(s.ch) })
	metrics.UpdateFeedSubscribers(len(q.subs))
}

// Len returns the number of subscribers.
func (q *InMemoryQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.subs)
}

// Last returns the most recent snapshot and whether one was published.
func (q *InMemoryQueue) Last() (Snapshot, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.last == nil {
		return Snapshot{}, false
	}
	return *q.last, true
}

// Close closes every subscription.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	q.closed = true
	for id, sub := range q.subs {
		delete(q.subs, id)
		sub.once.Do(func() { close(sub.ch) })
	}
	metrics.UpdateFeedSubscribers(0)
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}
