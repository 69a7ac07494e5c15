package cache

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"agenda-admin/access"
	"agenda-admin/models"
)

// fakeStore serves canned rows and can be told to fail.
type fakeStore struct {
	events   []models.EventRow
	tasks    []models.TaskRow
	links    []models.AssigneeLink
	profiles []models.Profile

	failEvents bool
	failTasks  bool
	calls      int
}

var errBackend = errors.New("backend unavailable")

func (f *fakeStore) EventRows(ctx context.Context) ([]models.EventRow, error) {
	f.calls++
	if f.failEvents {
		return nil, errBackend
	}
	return f.events, nil
}

func (f *fakeStore) TaskRows(ctx context.Context) ([]models.TaskRow, error) {
	f.calls++
	if f.failTasks {
		return nil, errBackend
	}
	return f.tasks, nil
}

func (f *fakeStore) AssigneeLinks(ctx context.Context) ([]models.AssigneeLink, error) {
	f.calls++
	return f.links, nil
}

func (f *fakeStore) Profiles(ctx context.Context) ([]models.Profile, error) {
	f.calls++
	return f.profiles, nil
}

func seededStore() *fakeStore {
	day := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	return &fakeStore{
		events: []models.EventRow{
			{ID: 1, Title: "Feira de Negócios", Date: day, Color: "#f59e0b", Company: "ACME", CreatedBy: 1},
			{ID: 2, Title: "Workshop", Date: day.AddDate(0, 0, 1), CreatedBy: 2},
		},
		tasks: []models.TaskRow{
			{ID: 10, EventID: 1, Title: "montar estande", CreatedBy: 1},
			{ID: 11, EventID: 1, Title: "imprimir crachás", Completed: true, CreatedBy: 2},
		},
		links: []models.AssigneeLink{
			{ID: 100, TaskID: 10, UserID: 2},
		},
		profiles: []models.Profile{
			{ID: 1, Username: "mariano", Role: "admin"},
			{ID: 2, Username: "rubens", Role: "editor"},
			{ID: 3, Username: "giovanna", Role: "viewer"},
		},
	}
}

func TestReloadBuildsNestedSnapshot(t *testing.T) {
	store := seededStore()
	c := NewEventCache(store, &access.Subject{ID: 2, Role: access.RoleEditor})
	if err := c.Reload(context.Background()); err != nil {
		t.Fatalf("Reload: %v", err)
	}

	events := c.Snapshot()
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if len(events[0].Tasks) != 2 {
		t.Fatalf("event 1 has %d tasks, want 2", len(events[0].Tasks))
	}
	if len(events[1].Tasks) != 0 || events[1].Tasks == nil {
		t.Fatalf("event 2 should have an empty, non-nil task list")
	}

	task10 := events[0].Tasks[0]
	if len(task10.Assignees) != 1 {
		t.Fatalf("task 10 has %d assignees, want 1", len(task10.Assignees))
	}
	a := task10.Assignees[0]
	if a.UserID != 2 || a.Username != "rubens" || a.Role != "editor" || !a.Resolved {
		t.Errorf("assignee not resolved against profile: %+v", a)
	}
	// u2 is an editor and assignee of task 10, creator of task 11.
	if !task10.Editable {
		t.Error("task 10 should be editable for editor assignee")
	}
	if !events[0].Tasks[1].Editable {
		t.Error("task 11 should be editable for its creator")
	}
}

func TestReloadIsIdempotent(t *testing.T) {
	store := seededStore()
	c := NewEventCache(store, &access.Subject{ID: 3, Role: access.RoleViewer})
	if err := c.Reload(context.Background()); err != nil {
		t.Fatalf("first Reload: %v", err)
	}
	first := c.Snapshot()
	if err := c.Reload(context.Background()); err != nil {
		t.Fatalf("second Reload: %v", err)
	}
	second := c.Snapshot()
	if !reflect.DeepEqual(first, second) {
		t.Error("reloading with no backend change must yield an identical snapshot")
	}
}

func TestUnresolvedAssigneeDegradesToBareID(t *testing.T) {
	store := seededStore()
	// Link points at a user with no profile row (racing fetch).
	store.links = append(store.links, models.AssigneeLink{ID: 101, TaskID: 11, UserID: 42})

	c := NewEventCache(store, &access.Subject{ID: 1, Role: access.RoleAdmin})
	if err := c.Reload(context.Background()); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	task11 := c.Snapshot()[0].Tasks[1]
	if len(task11.Assignees) != 1 {
		t.Fatalf("unresolvable link must be kept, got %d assignees", len(task11.Assignees))
	}
	a := task11.Assignees[0]
	if a.Resolved || a.UserID != 42 || a.Username != "42" || a.Role != "" {
		t.Errorf("want bare-identifier fallback, got %+v", a)
	}
}

func TestReloadErrorKeepsPreviousSnapshot(t *testing.T) {
	store := seededStore()
	c := NewEventCache(store, &access.Subject{ID: 1, Role: access.RoleAdmin})
	if err := c.Reload(context.Background()); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	before := c.Snapshot()

	store.failTasks = true
	if err := c.Reload(context.Background()); !errors.Is(err, errBackend) {
		t.Fatalf("want backend error, got %v", err)
	}
	after := c.Snapshot()
	if !reflect.DeepEqual(before, after) {
		t.Error("a failed reload must preserve the last-known-good snapshot")
	}
}

func TestNilSubjectHoldsEmptyListWithoutFetching(t *testing.T) {
	store := seededStore()
	c := NewEventCache(store, nil)
	if err := c.Reload(context.Background()); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if got := c.Snapshot(); len(got) != 0 {
		t.Errorf("unauthenticated cache must be empty, got %d events", len(got))
	}
	if store.calls != 0 {
		t.Errorf("unauthenticated reload made %d backend calls, want 0", store.calls)
	}
}

func TestLogoutClearsAndLoginRecomputesEditable(t *testing.T) {
	store := seededStore()
	c := NewEventCache(store, &access.Subject{ID: 2, Role: access.RoleEditor})
	if err := c.Reload(context.Background()); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if !c.Snapshot()[0].Tasks[0].Editable {
		t.Fatal("editor assignee should start with an editable task")
	}

	// Logout.
	c.SetSubject(nil)
	if err := c.Reload(context.Background()); err != nil {
		t.Fatalf("Reload after logout: %v", err)
	}
	if len(c.Snapshot()) != 0 {
		t.Error("cache must empty after logout reload")
	}

	// Different user logs in: same data, different editable flags.
	c.SetSubject(&access.Subject{ID: 3, Role: access.RoleViewer})
	if err := c.Reload(context.Background()); err != nil {
		t.Fatalf("Reload after login: %v", err)
	}
	for _, task := range c.Snapshot()[0].Tasks {
		if task.Editable {
			t.Errorf("task %d should not be editable for an unrelated viewer", task.ID)
		}
	}
}

// Deleting an assignee link and reloading must show the task with an
// empty assignee list and Editable recomputed for the new state.
func TestAssigneeRemovalRecomputesEditable(t *testing.T) {
	store := seededStore()
	subject := &access.Subject{ID: 2, Role: access.RoleEditor}
	c := NewEventCache(store, subject)
	if err := c.Reload(context.Background()); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if !c.Snapshot()[0].Tasks[0].Editable {
		t.Fatal("precondition: editor assignee edits task 10")
	}

	store.links = nil // backend deleted the link; change notification fires
	if err := c.Reload(context.Background()); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	task10 := c.Snapshot()[0].Tasks[0]
	if len(task10.Assignees) != 0 {
		t.Fatalf("task 10 should have no assignees after link delete, got %d", len(task10.Assignees))
	}
	if task10.Editable {
		t.Error("u2 is neither admin nor creator; task 10 must lock after unassignment")
	}
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	store := seededStore()
	c := NewEventCache(store, &access.Subject{ID: 1, Role: access.RoleAdmin})
	if err := c.Reload(context.Background()); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	snap := c.Snapshot()
	snap[0].Tasks[0].Title = "mutated"
	snap[0].Tasks[0].Assignees[0].Username = "mutated"

	fresh := c.Snapshot()
	if fresh[0].Tasks[0].Title == "mutated" || fresh[0].Tasks[0].Assignees[0].Username == "mutated" {
		t.Error("mutating a snapshot leaked into the cache")
	}
}
