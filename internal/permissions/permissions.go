// Package permissions maps caller roles to the operations they may invoke.
//
// The table is built once at startup and never mutated. It is consulted
// twice per turn: before the model is shown any operation, and again right
// before a model-requested call is executed.
package permissions

import (
	"github.com/primaai/agent-gateway/pkg/models"
)

// Operation names known to the table.
const (
	SearchVenues      = "search_venues"
	CheckAvailability = "check_availability"
	CreateBooking     = "create_booking"
	GetAnalytics      = "get_analytics"
	GetUserInfo       = "get_user_info"
)

// Policy answers permission questions for a role. Table is the static
// implementation; a dynamic lookup can satisfy the same interface.
type Policy interface {
	IsPermitted(role models.Role, operation string) bool
	Permitted(role models.Role) []string
}

// Table is an immutable role → operations mapping.
type Table struct {
	roles map[models.Role][]string
}

var _ Policy = (*Table)(nil)

// New builds a Table from a copy of roles.
func New(roles map[models.Role][]string) *Table {
	t := &Table{roles: make(map[models.Role][]string, len(roles))}
	for role, ops := range roles {
		cp := make([]string, 0, len(ops))
		seen := make(map[string]bool, len(ops))
		for _, op := range ops {
			if seen[op] {
				continue
			}
			seen[op] = true
			cp = append(cp, op)
		}
		t.roles[role] = cp
	}
	return t
}

// Default returns the built-in table.
func Default() *Table {
	return New(map[models.Role][]string{
		models.RoleAdmin:   {SearchVenues, CheckAvailability, CreateBooking, GetAnalytics, GetUserInfo},
		models.RoleManager: {SearchVenues, CheckAvailability, CreateBooking, GetAnalytics},
		models.RoleStaff:   {SearchVenues, CheckAvailability, CreateBooking},
		models.RoleUser:    {SearchVenues, CheckAvailability},
		models.RoleGuest:   {SearchVenues},
	})
}

// IsPermitted reports whether role may invoke operation. Unknown roles are
// permitted nothing.
func (t *Table) IsPermitted(role models.Role, operation string) bool {
	for _, op := range t.roles[role] {
		if op == operation {
			return true
		}
	}
	return false
}

// Permitted returns the operations role may invoke, in table order.
func (t *Table) Permitted(role models.Role) []string {
	ops := t.roles[role]
	out := make([]string, len(ops))
	copy(out, ops)
	return out
}

// Filter keeps the definitions whose name policy permits for role,
// preserving input order.
func Filter(policy Policy, role models.Role, defs []models.FunctionDefinition) []models.FunctionDefinition {
	out := make([]models.FunctionDefinition, 0, len(defs))
	for _, d := range defs {
		if policy.IsPermitted(role, d.Name) {
			out = append(out, d)
		}
	}
	return out
}

// Filter is a convenience for Filter(t, role, defs).
func (t *Table) Filter(role models.Role, defs []models.FunctionDefinition) []models.FunctionDefinition {
	return Filter(t, role, defs)
}
