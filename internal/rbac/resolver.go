// Package rbac resolves role names to permission sets. Role names are
// free-text in the store and drift in casing, spacing, and pluralization
// between UI-entered values and canonical keys ("QA Tester" vs "qa_tester"),
// so lookups tolerate those variants instead of requiring a data migration.
package rbac

import (
	"strings"

	"backend/internal/model"
)

// Resolver answers permission checks against a role table. The table is
// canonicalized once at construction; per-lookup work is variant generation
// on the queried name only.
type Resolver struct {
	permsByRole map[string]map[string]struct{} // canonical role name -> permission codes
}

// NewResolver builds a resolver from the full role table. Each role is indexed
// under a single canonical key; roles whose names collide after
// canonicalization merge their permission sets.
func NewResolver(roles []model.Role) *Resolver {
	byRole := make(map[string]map[string]struct{}, len(roles))
	for _, role := range roles {
		key := Canonicalize(role.Name)
		set, ok := byRole[key]
		if !ok {
			set = make(map[string]struct{}, len(role.Permissions))
			byRole[key] = set
		}
		for _, p := range role.Permissions {
			set[p.Code] = struct{}{}
		}
	}
	return &Resolver{permsByRole: byRole}
}

// HasPermission reports whether any of the caller's assigned roles grants the
// permission code. Zero roles or an empty permission list fails closed.
func (r *Resolver) HasPermission(roleNames []string, code string) bool {
	for _, name := range roleNames {
		for _, variant := range variants(name) {
			if set, ok := r.permsByRole[variant]; ok {
				if _, granted := set[code]; granted {
					return true
				}
			}
		}
	}
	return false
}

// PermissionsFor returns the union of permission codes across the given roles.
func (r *Resolver) PermissionsFor(roleNames []string) []string {
	seen := make(map[string]struct{})
	for _, name := range roleNames {
		for _, variant := range variants(name) {
			for code := range r.permsByRole[variant] {
				seen[code] = struct{}{}
			}
		}
	}
	codes := make([]string, 0, len(seen))
	for code := range seen {
		codes = append(codes, code)
	}
	return codes
}

// Canonicalize normalizes a role name to its lookup key: lowercase, trimmed,
// spaces and hyphens collapsed to single underscores.
func Canonicalize(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = strings.ReplaceAll(s, "-", " ")
	s = strings.ReplaceAll(s, "_", " ")
	s = strings.Join(strings.Fields(s), "_")
	return s
}

// variants generates the canonical key plus a singular/plural toggle of its
// last word, covering "qa_testers" assigned against a "qa_tester" table entry
// and vice versa.
func variants(name string) []string {
	canonical := Canonicalize(name)
	if canonical == "" {
		return nil
	}

	out := []string{canonical}
	if strings.HasSuffix(canonical, "s") {
		out = append(out, strings.TrimSuffix(canonical, "s"))
	} else {
		out = append(out, canonical+"s")
	}
	return out
}
