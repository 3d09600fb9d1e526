package model

import (
	"context"
	"sort"

	"github.com/google/uuid"
)

// PermissionStore resolves permissions granted through role membership.
type PermissionStore interface {
	// UserPermissions returns the distinct permission names granted to the user
	// by all of its roles in a single query.
	UserPermissions(ctx context.Context, userID uuid.UUID) ([]string, error)
}

// RoleStore manages roles, permissions and their assignments.
type RoleStore interface {
	PermissionStore
	EnsurePermission(ctx context.Context, name string) (Permission, error)
	EnsureRole(ctx context.Context, name string) (Role, error)
	SetRolePermissions(ctx context.Context, role string, permissions []string) error
	SetUserRoles(ctx context.Context, userID uuid.UUID, roles []string) error
	UserRoles(ctx context.Context, userID uuid.UUID) ([]string, error)
}

// Role is a named set of permissions.
type Role struct {
	ID   uuid.UUID
	Name string
}

// Permission is a named capability checked by exact match.
type Permission struct {
	ID   uuid.UUID
	Name string
}

// PermissionSet is the effective set of permission names of a user.
type PermissionSet map[string]struct{}

// NewPermissionSet builds a set from names, dropping duplicates.
func NewPermissionSet(names ...string) PermissionSet {
	set := make(PermissionSet, len(names))
	for _, name := range names {
		set[name] = struct{}{}
	}
	return set
}

// Has reports whether name is in the set. A nil set grants nothing.
func (s PermissionSet) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// Names returns the sorted permission names.
func (s PermissionSet) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
