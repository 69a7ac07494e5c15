// Package cache maintains the in-memory snapshot of all events with
// nested tasks and assignees that a session sees. The snapshot is
// rebuilt wholesale on every change notification: no incremental
// patching, which trades round-trips for correctness at the small
// event/task volumes this tool handles.
package cache

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"agenda-admin/access"
	"agenda-admin/models"
)

// Store is the backend the cache reloads from.
type Store interface {
	EventRows(ctx context.Context) ([]models.EventRow, error)
	TaskRows(ctx context.Context) ([]models.TaskRow, error)
	AssigneeLinks(ctx context.Context) ([]models.AssigneeLink, error)
	Profiles(ctx context.Context) ([]models.Profile, error)
}

// EventCache is the session-scoped mirror of backend state. It is
// bound to a subject (the viewing user) because the derived Editable
// flag depends on who is looking; the subject can change across
// reloads (login/logout) independent of data changes.
type EventCache struct {
	store Store

	mu      sync.RWMutex
	subject *access.Subject
	events  []models.Event
	gen     uint64
}

// NewEventCache returns an empty cache bound to subject. Subject may
// be nil (unauthenticated), in which case reloads produce an empty
// list without touching the store.
func NewEventCache(store Store, subject *access.Subject) *EventCache {
	return &EventCache{store: store, subject: subject}
}

// SetSubject rebinds the cache to a new viewing user. The caller is
// expected to Reload afterwards so Editable flags are recomputed.
func (c *EventCache) SetSubject(subject *access.Subject) {
	c.mu.Lock()
	c.subject = subject
	c.mu.Unlock()
}

// Subject returns the currently bound viewing user.
func (c *EventCache) Subject() *access.Subject {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.subject
}

// Reload fetches all events, tasks, assignee links and profiles and
// rebuilds the nested snapshot from scratch. On any fetch error the
// cache keeps its last-known-good contents and returns the error:
// stale data beats an empty screen. A generation counter prevents a
// slow reload from overwriting the result of a newer one.
func (c *EventCache) Reload(ctx context.Context) error {
	c.mu.Lock()
	c.gen++
	gen := c.gen
	subject := c.subject
	c.mu.Unlock()

	if subject == nil {
		c.commit(gen, nil)
		return nil
	}

	eventRows, err := c.store.EventRows(ctx)
	if err != nil {
		return fmt.Errorf("reload events: %w", err)
	}
	taskRows, err := c.store.TaskRows(ctx)
	if err != nil {
		return fmt.Errorf("reload tasks: %w", err)
	}
	links, err := c.store.AssigneeLinks(ctx)
	if err != nil {
		return fmt.Errorf("reload task_assignees: %w", err)
	}
	profiles, err := c.store.Profiles(ctx)
	if err != nil {
		return fmt.Errorf("reload profiles: %w", err)
	}

	c.commit(gen, Assemble(eventRows, taskRows, links, profiles, subject))
	return nil
}

// commit installs a snapshot unless a newer reload has started since.
func (c *EventCache) commit(gen uint64, events []models.Event) {
	c.mu.Lock()
	if gen == c.gen {
		c.events = events
	}
	c.mu.Unlock()
}

// Snapshot returns a deep copy of the current event list. Callers may
// mutate the result freely.
func (c *EventCache) Snapshot() []models.Event {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]models.Event, len(c.events))
	for i, e := range c.events {
		out[i] = e
		out[i].Tasks = make([]models.Task, len(e.Tasks))
		for j, t := range e.Tasks {
			out[i].Tasks[j] = t
			out[i].Tasks[j].Assignees = append([]models.Assignee(nil), t.Assignees...)
		}
	}
	return out
}

// Assemble joins the raw table rows into the nested event structure
// and computes Editable for every task against subject. It is shared
// by the cache and the plain per-request read path so both produce
// identical shapes.
//
// An assignee link whose user has no profile row degrades to a bare
// identifier (Resolved=false, Username set to the id string) instead
// of being dropped; profile fetches can race user creation and
// assignment data must not silently disappear.
func Assemble(eventRows []models.EventRow, taskRows []models.TaskRow, links []models.AssigneeLink, profiles []models.Profile, subject *access.Subject) []models.Event {
	profileByID := make(map[int64]models.Profile, len(profiles))
	for _, p := range profiles {
		profileByID[p.ID] = p
	}

	assigneesByTask := make(map[int64][]models.Assignee)
	for _, l := range links {
		if p, ok := profileByID[l.UserID]; ok {
			assigneesByTask[l.TaskID] = append(assigneesByTask[l.TaskID], models.Assignee{
				UserID:   p.ID,
				Username: p.Username,
				Role:     p.Role,
				Resolved: true,
			})
			continue
		}
		assigneesByTask[l.TaskID] = append(assigneesByTask[l.TaskID], models.Assignee{
			UserID:   l.UserID,
			Username: strconv.FormatInt(l.UserID, 10),
			Resolved: false,
		})
	}

	tasksByEvent := make(map[int64][]models.Task)
	for _, tr := range taskRows {
		t := models.Task{
			ID:        tr.ID,
			EventID:   tr.EventID,
			Title:     tr.Title,
			Completed: tr.Completed,
			CreatedBy: tr.CreatedBy,
			CreatedAt: tr.CreatedAt,
			UpdatedAt: tr.UpdatedAt,
			Assignees: assigneesByTask[tr.ID],
		}
		if t.Assignees == nil {
			t.Assignees = []models.Assignee{}
		}
		t.Editable = access.CanEdit(t, subject)
		tasksByEvent[tr.EventID] = append(tasksByEvent[tr.EventID], t)
	}

	events := make([]models.Event, 0, len(eventRows))
	for _, er := range eventRows {
		e := models.Event{
			ID:          er.ID,
			Title:       er.Title,
			Date:        er.Date,
			Description: er.Description,
			Color:       er.Color,
			Company:     er.Company,
			CreatedBy:   er.CreatedBy,
			CreatedAt:   er.CreatedAt,
			UpdatedAt:   er.UpdatedAt,
			Tasks:       tasksByEvent[er.ID],
		}
		if e.Tasks == nil {
			e.Tasks = []models.Task{}
		}
		events = append(events, e)
	}
	return events
}
