// Package notify is the in-process change bus between the mutation
// handlers and the session caches. Notifications carry only the table
// name, never row contents: subscribers are expected to reload.
package notify

import (
	"context"
	"sync"

	"agenda-admin/cache"
)

// Table identifies a watched relation.
type Table string

const (
	TableEvents        Table = "events"
	TableTasks         Table = "tasks"
	TableTaskAssignees Table = "task_assignees"
)

// Handler receives one call per published change.
type Handler func(Table)

// Notifier fans table-change notifications out to subscribers.
type Notifier struct {
	mu     sync.RWMutex
	nextID int64
	subs   map[int64]Handler
}

// NewNotifier returns an empty bus.
func NewNotifier() *Notifier {
	return &Notifier{subs: make(map[int64]Handler)}
}

// Subscribe registers h and returns a handle for Unsubscribe.
func (n *Notifier) Subscribe(h Handler) int64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.nextID++
	n.subs[n.nextID] = h
	return n.nextID
}

// Unsubscribe releases the subscription handle. Safe to call with an
// unknown or already-released id.
func (n *Notifier) Unsubscribe(id int64) {
	n.mu.Lock()
	delete(n.subs, id)
	n.mu.Unlock()
}

// Publish delivers one notification per subscriber. Delivery is
// asynchronous so a mutation handler never blocks on the reloads it
// triggers; notifications are not coalesced.
func (n *Notifier) Publish(table Table) {
	n.mu.RLock()
	handlers := make([]Handler, 0, len(n.subs))
	for _, h := range n.subs {
		handlers = append(handlers, h)
	}
	n.mu.RUnlock()

	for _, h := range handlers {
		go h(table)
	}
}

// SubscriberCount reports the number of live subscriptions.
func (n *Notifier) SubscriberCount() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.subs)
}

// Bridge couples a Notifier subscription to an EventCache: any
// insert/update/delete on a watched table triggers exactly one full
// reload. Reloads are serialized per bridge so bursts do not run
// rebuilds concurrently against the same cache.
type Bridge struct {
	notifier *Notifier
	cache    *cache.EventCache
	after    func(Table, error)

	id        int64
	mu        sync.Mutex
	closeOnce sync.Once
}

// NewBridge subscribes the cache to the notifier. The optional after
// hook runs once per notification, after the reload, with the table
// that changed and the reload result.
func NewBridge(n *Notifier, c *cache.EventCache, after func(Table, error)) *Bridge {
	b := &Bridge{notifier: n, cache: c, after: after}
	b.id = n.Subscribe(b.onChange)
	return b
}

func (b *Bridge) onChange(table Table) {
	b.mu.Lock()
	defer b.mu.Unlock()
	err := b.cache.Reload(context.Background())
	if b.after != nil {
		b.after(table, err)
	}
}

// Close releases the underlying subscription. The bridge must be
// closed when the session ends or open channels leak.
func (b *Bridge) Close() {
	b.closeOnce.Do(func() {
		b.notifier.Unsubscribe(b.id)
	})
}
