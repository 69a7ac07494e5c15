package access

import (
	"testing"

	"agenda-admin/models"
)

func task(createdBy int64, assignees ...int64) models.Task {
	t := models.Task{ID: 1, EventID: 1, Title: "prepare booth", CreatedBy: createdBy}
	for _, id := range assignees {
		t.Assignees = append(t.Assignees, models.Assignee{UserID: id, Resolved: true})
	}
	return t
}

func TestCanEdit(t *testing.T) {
	cases := []struct {
		name    string
		task    models.Task
		subject *Subject
		want    bool
	}{
		{"admin edits anything", task(1, 2), &Subject{ID: 99, Role: RoleAdmin}, true},
		{"admin edits unassigned task", task(1), &Subject{ID: 99, Role: RoleAdmin}, true},
		{"editor creator without assignment", task(5), &Subject{ID: 5, Role: RoleEditor}, true},
		{"viewer creator", task(5), &Subject{ID: 5, Role: RoleViewer}, true},
		{"editor assignee not creator", task(1, 2), &Subject{ID: 2, Role: RoleEditor}, true},
		{"viewer assignee not creator", task(1, 2), &Subject{ID: 2, Role: RoleViewer}, false},
		{"editor neither creator nor assignee", task(1, 2), &Subject{ID: 3, Role: RoleEditor}, false},
		{"viewer unrelated", task(1, 2), &Subject{ID: 3, Role: RoleViewer}, false},
		{"nil subject", task(1, 2), nil, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CanEdit(tc.task, tc.subject); got != tc.want {
				t.Errorf("CanEdit = %v, want %v", got, tc.want)
			}
			if got := CanToggleCompletion(tc.task, tc.subject); got != tc.want {
				t.Errorf("CanToggleCompletion = %v, want %v", got, tc.want)
			}
		})
	}
}

// Role changes alone flip editability: the same assigned task is
// editable for an editor and locked for a viewer.
func TestCanEditRoleScenario(t *testing.T) {
	tk := task(1, 2) // created by u1, assigned to u2
	if !CanEdit(tk, &Subject{ID: 2, Role: RoleEditor}) {
		t.Error("u2 as editor should be able to edit t1")
	}
	if CanEdit(tk, &Subject{ID: 2, Role: RoleViewer}) {
		t.Error("u2 as viewer should not be able to edit t1")
	}
}

func TestCanViewNeverRestricts(t *testing.T) {
	subjects := []*Subject{
		nil,
		{ID: 1, Role: RoleAdmin},
		{ID: 2, Role: RoleEditor},
		{ID: 3, Role: RoleViewer},
	}
	for _, u := range subjects {
		if !CanView(task(1, 2), u) {
			t.Errorf("CanView(%+v) = false, want true", u)
		}
		if !CanView(task(1), u) {
			t.Errorf("CanView unassigned task for %+v = false, want true", u)
		}
	}
}

func TestCanCreateTask(t *testing.T) {
	if CanCreateTask(nil) {
		t.Error("nil subject must not create tasks")
	}
	if CanCreateTask(&Subject{ID: 1, Role: RoleViewer}) {
		t.Error("viewer must not create tasks")
	}
	if !CanCreateTask(&Subject{ID: 1, Role: RoleEditor}) {
		t.Error("editor should create tasks")
	}
	if !CanCreateTask(&Subject{ID: 1, Role: RoleAdmin}) {
		t.Error("admin should create tasks")
	}
}

func TestParseRole(t *testing.T) {
	for _, s := range []string{"admin", "editor", "viewer"} {
		r, err := ParseRole(s)
		if err != nil || string(r) != s {
			t.Errorf("ParseRole(%q) = %v, %v", s, r, err)
		}
	}
	if _, err := ParseRole("owner"); err == nil {
		t.Error("ParseRole should reject unknown roles")
	}
	if !(RoleAdmin.Level() > RoleEditor.Level() && RoleEditor.Level() > RoleViewer.Level()) {
		t.Error("display ordering admin > editor > viewer broken")
	}
}

func TestEventPolicy(t *testing.T) {
	admin := &Subject{ID: 1, Role: RoleAdmin}
	editor := &Subject{ID: 2, Role: RoleEditor}
	viewer := &Subject{ID: 3, Role: RoleViewer}

	cases := []struct {
		policy  EventPolicy
		subject *Subject
		want    bool
	}{
		{EventPolicyAdminOnly, admin, true},
		{EventPolicyAdminOnly, editor, false},
		{EventPolicyAdminOnly, viewer, false},
		{EventPolicyAdminOnly, nil, false},
		{EventPolicyAdminOrEditor, admin, true},
		{EventPolicyAdminOrEditor, editor, true},
		{EventPolicyAdminOrEditor, viewer, false},
		{EventPolicyAdminOrEditor, nil, false},
	}
	for _, tc := range cases {
		if got := tc.policy.CanModifyEvent(tc.subject); got != tc.want {
			t.Errorf("%s.CanModifyEvent(%+v) = %v, want %v", tc.policy, tc.subject, got, tc.want)
		}
	}
}
