package notify

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"agenda-admin/access"
	"agenda-admin/cache"
	"agenda-admin/models"
)

// staticStore is a minimal cache.Store for bridge tests.
type staticStore struct {
	fetches int64
}

func (s *staticStore) EventRows(ctx context.Context) ([]models.EventRow, error) {
	atomic.AddInt64(&s.fetches, 1)
	return []models.EventRow{{ID: 1, Title: "Feira", CreatedBy: 1}}, nil
}

func (s *staticStore) TaskRows(ctx context.Context) ([]models.TaskRow, error) {
	return nil, nil
}

func (s *staticStore) AssigneeLinks(ctx context.Context) ([]models.AssigneeLink, error) {
	return nil, nil
}

func (s *staticStore) Profiles(ctx context.Context) ([]models.Profile, error) {
	return nil, nil
}

func waitFor(t *testing.T, ch <-chan Table, want Table) {
	t.Helper()
	select {
	case got := <-ch:
		if got != want {
			t.Fatalf("notified for table %q, want %q", got, want)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %q notification", want)
	}
}

func TestPublishReachesEverySubscriberOncePerNotification(t *testing.T) {
	n := NewNotifier()
	ch1 := make(chan Table, 8)
	ch2 := make(chan Table, 8)
	n.Subscribe(func(tab Table) { ch1 <- tab })
	n.Subscribe(func(tab Table) { ch2 <- tab })

	n.Publish(TableTasks)
	waitFor(t, ch1, TableTasks)
	waitFor(t, ch2, TableTasks)

	n.Publish(TableTaskAssignees)
	waitFor(t, ch1, TableTaskAssignees)
	waitFor(t, ch2, TableTaskAssignees)

	select {
	case extra := <-ch1:
		t.Fatalf("unexpected extra notification %q", extra)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	n := NewNotifier()
	ch := make(chan Table, 8)
	id := n.Subscribe(func(tab Table) { ch <- tab })
	if n.SubscriberCount() != 1 {
		t.Fatalf("SubscriberCount = %d, want 1", n.SubscriberCount())
	}

	n.Unsubscribe(id)
	if n.SubscriberCount() != 0 {
		t.Fatalf("SubscriberCount after unsubscribe = %d, want 0", n.SubscriberCount())
	}
	n.Publish(TableEvents)
	select {
	case tab := <-ch:
		t.Fatalf("received %q after unsubscribe", tab)
	case <-time.After(100 * time.Millisecond):
	}

	// Releasing twice is harmless.
	n.Unsubscribe(id)
}

func TestBridgeReloadsCacheOnAnyTableChange(t *testing.T) {
	store := &staticStore{}
	c := cache.NewEventCache(store, &access.Subject{ID: 1, Role: access.RoleAdmin})
	n := NewNotifier()

	done := make(chan Table, 8)
	b := NewBridge(n, c, func(tab Table, err error) {
		if err != nil {
			t.Errorf("reload failed: %v", err)
		}
		done <- tab
	})
	defer b.Close()

	n.Publish(TableEvents)
	waitFor(t, done, TableEvents)
	if len(c.Snapshot()) != 1 {
		t.Fatal("bridge did not reload the cache")
	}

	n.Publish(TableTasks)
	waitFor(t, done, TableTasks)
	n.Publish(TableTaskAssignees)
	waitFor(t, done, TableTaskAssignees)

	if got := atomic.LoadInt64(&store.fetches); got != 3 {
		t.Errorf("cache fetched events %d times, want once per notification (3)", got)
	}
}

func TestBridgeCloseTearsDownSubscription(t *testing.T) {
	store := &staticStore{}
	c := cache.NewEventCache(store, &access.Subject{ID: 1, Role: access.RoleAdmin})
	n := NewNotifier()

	done := make(chan Table, 8)
	b := NewBridge(n, c, func(tab Table, err error) { done <- tab })
	if n.SubscriberCount() != 1 {
		t.Fatalf("SubscriberCount = %d, want 1", n.SubscriberCount())
	}

	b.Close()
	b.Close() // idempotent
	if n.SubscriberCount() != 0 {
		t.Fatalf("SubscriberCount after Close = %d, want 0", n.SubscriberCount())
	}

	n.Publish(TableEvents)
	select {
	case tab := <-done:
		t.Fatalf("closed bridge still received %q", tab)
	case <-time.After(100 * time.Millisecond):
	}
}
