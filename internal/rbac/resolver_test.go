package rbac

import (
	"testing"

	"backend/internal/model"

	"github.com/stretchr/testify/assert"
)

func roleTable() []model.Role {
	return []model.Role{
		{
			Name: "qa_tester",
			Permissions: []model.Permission{
				{Code: "requests:create"},
				{Code: "tasks:complete"},
			},
		},
		{
			Name: "Finance Team",
			Permissions: []model.Permission{
				{Code: "invoices:record_payment"},
			},
		},
		{
			Name: "admin",
			Permissions: []model.Permission{
				{Code: "roles:manage"},
			},
		},
	}
}

func TestCanonicalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"qa_tester", "qa_tester"},
		{"QA Tester", "qa_tester"},
		{"  qa-tester  ", "qa_tester"},
		{"QA  -  Tester", "qa_tester"},
		{"Finance Team", "finance_team"},
		{"", ""},
		{"   ", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Canonicalize(tt.in), "input %q", tt.in)
	}
}

func TestHasPermissionToleratesNameDrift(t *testing.T) {
	r := NewResolver(roleTable())

	// Casing, spacing, and hyphenation drift all resolve to the same role.
	for _, name := range []string{"qa_tester", "QA Tester", "qa-tester", " QA_TESTER "} {
		assert.True(t, r.HasPermission([]string{name}, "requests:create"), "variant %q", name)
	}

	// Plural drift in either direction.
	assert.True(t, r.HasPermission([]string{"qa_testers"}, "tasks:complete"))
	assert.True(t, r.HasPermission([]string{"Finance Teams"}, "invoices:record_payment"))
}

func TestHasPermissionFailsClosed(t *testing.T) {
	r := NewResolver(roleTable())

	assert.False(t, r.HasPermission(nil, "requests:create"))
	assert.False(t, r.HasPermission([]string{}, "requests:create"))
	assert.False(t, r.HasPermission([]string{"qa_tester"}, "roles:manage"))
	assert.False(t, r.HasPermission([]string{"ghost_role"}, "requests:create"))
	assert.False(t, r.HasPermission([]string{""}, "requests:create"))
}

func TestCollidingRoleNamesMergePermissions(t *testing.T) {
	r := NewResolver([]model.Role{
		{Name: "QA Lead", Permissions: []model.Permission{{Code: "requests:approve"}}},
		{Name: "qa-lead", Permissions: []model.Permission{{Code: "requests:assign"}}},
	})

	assert.True(t, r.HasPermission([]string{"qa_lead"}, "requests:approve"))
	assert.True(t, r.HasPermission([]string{"qa_lead"}, "requests:assign"))
}

func TestPermissionsFor(t *testing.T) {
	r := NewResolver(roleTable())

	codes := r.PermissionsFor([]string{"QA Tester", "finance team"})
	assert.ElementsMatch(t, []string{"requests:create", "tasks:complete", "invoices:record_payment"}, codes)

	assert.Empty(t, r.PermissionsFor([]string{"ghost_role"}))
}
