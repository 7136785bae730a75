// Package dedupe remembers which alerts have already been announced.
package dedupe

import (
	"container/list"
	"context"
	"strconv"
	"sync"

	"github.com/okian/palantir/internal/domain/model"
)

// defaultMaxSize bounds how many alert identities are kept.
const defaultMaxSize = 4096

// Deduper records seen alert identities.
type Deduper interface {
	// SeenAndRecord atomically checks if id was seen and records it if not.
	// Returns true if id was already seen, false if it was newly recorded.
	SeenAndRecord(ctx context.Context, id string) bool

	// Forget removes id so it counts as new the next time it is seen.
	Forget(ctx context.Context, id string)

	Size() int
}

// AlertID identifies one occurrence of an alert. When the alert carries its
// creation time, a check that recovers and fails again gets a new id. The
// list endpoint omits it, and the id is then the minion/check key.
func AlertID(a *model.Alert) string {
	key := a.Ref().Key()
	if a.Created.IsZero() {
		return key
	}
	return key + "@" + strconv.FormatInt(a.Created.UnixNano(), 10)
}

// inMemoryDeduper keeps ids in insertion order and evicts the oldest once
// maxSize is reached. maxSize <= 0 means unbounded.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]*list.Element
	order   *list.List
	maxSize int
}

// NewInMemoryDeduper creates a new in-memory deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		seen:    make(map[string]*list.Element),
		order:   list.New(),
		maxSize: defaultMaxSize,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// SeenAndRecord implements Deduper.
func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[id]; ok {
		return true
	}
	if d.maxSize > 0 && d.order.Len() >= d.maxSize {
		oldest := d.order.Front()
		d.order.Remove(oldest)
		delete(d.seen, oldest.Value.(string))
	}
	d.seen[id] = d.order.PushBack(id)
	return false
}

// Forget implements Deduper.
func (d *inMemoryDeduper) Forget(_ context.Context, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if e, ok := d.seen[id]; ok {
		d.order.Remove(e)
		delete(d.seen, id)
	}
}

// Size returns the number of recorded ids.
func (d *inMemoryDeduper) Size() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.order.Len()
}
