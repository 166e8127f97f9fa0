package memory

import (
	"context"
	"sync"
)

// Inbox remembers delivered event ids, bounded to the most recent capacity
// entries.
type Inbox struct {
	mu       sync.Mutex
	capacity int
	seen     map[string]struct{}
	order    []string
}

func NewInbox(capacity int) *Inbox {
	if capacity <= 0 {
		capacity = 10000
	}
	return &Inbox{capacity: capacity, seen: make(map[string]struct{}, capacity)}
}

// Seen marks eventID delivered and reports whether it already was.
func (i *Inbox) Seen(ctx context.Context, eventID string) (bool, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if _, ok := i.seen[eventID]; ok {
		return true, nil
	}
	i.seen[eventID] = struct{}{}
	i.order = append(i.order, eventID)
	if len(i.order) > i.capacity {
		oldest := i.order[0]
		i.order = i.order[1:]
		delete(i.seen, oldest)
	}
	return false, nil
}
