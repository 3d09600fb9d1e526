package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/dtroode/authcore/internal/model"
)

var _ model.RoleStore = (*RBACRepository)(nil)

// RBACRepository stores roles, permissions and their join tables.
type RBACRepository struct {
	db *Connection
}

func NewRBACRepository(db *Connection) *RBACRepository {
	return &RBACRepository{db: db}
}

// UserPermissions resolves the union of permissions over all roles of the
// user with a single query.
func (r *RBACRepository) UserPermissions(ctx context.Context, userID uuid.UUID) ([]string, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	const query = `
		SELECT DISTINCT p.name
		FROM user_roles ur
		JOIN role_permissions rp ON rp.role_id = ur.role_id
		JOIN permissions p ON p.id = rp.permission_id
		WHERE ur.user_id = $1
		ORDER BY p.name`

	return r.queryNames(ctx, "resolve user permissions", query, userID)
}

func (r *RBACRepository) UserRoles(ctx context.Context, userID uuid.UUID) ([]string, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	const query = `
		SELECT r.name
		FROM user_roles ur
		JOIN roles r ON r.id = ur.role_id
		WHERE ur.user_id = $1
		ORDER BY r.name`

	return r.queryNames(ctx, "list user roles", query, userID)
}

func (r *RBACRepository) EnsurePermission(ctx context.Context, name string) (model.Permission, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	const query = `
		INSERT INTO permissions (id, name) VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id, name`

	var p model.Permission
	if err := r.db.DB.QueryRowContext(ctx, query, uuid.New(), name).Scan(&p.ID, &p.Name); err != nil {
		return model.Permission{}, mapError(err, "ensure permission")
	}
	return p, nil
}

func (r *RBACRepository) EnsureRole(ctx context.Context, name string) (model.Role, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	const query = `
		INSERT INTO roles (id, name) VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id, name`

	var role model.Role
	if err := r.db.DB.QueryRowContext(ctx, query, uuid.New(), name).Scan(&role.ID, &role.Name); err != nil {
		return model.Role{}, mapError(err, "ensure role")
	}
	return role, nil
}

// SetRolePermissions replaces the permission set of role. Every permission
// must already exist.
func (r *RBACRepository) SetRolePermissions(ctx context.Context, role string, permissions []string) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	names := uniqueNames(permissions)

	return r.db.inTx(ctx, func(tx *sql.Tx) error {
		var roleID uuid.UUID
		err := tx.QueryRowContext(ctx, `SELECT id FROM roles WHERE name = $1`, role).Scan(&roleID)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: unknown role %q", model.ErrInvalidInput, role)
		}
		if err != nil {
			return mapError(err, "find role")
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM role_permissions WHERE role_id = $1`, roleID); err != nil {
			return mapError(err, "clear role permissions")
		}
		if len(names) == 0 {
			return nil
		}

		res, err := tx.ExecContext(ctx, `
			INSERT INTO role_permissions (role_id, permission_id)
			SELECT $1::uuid, id FROM permissions WHERE name = ANY($2::text[])`,
			roleID, names)
		if err != nil {
			return mapError(err, "assign role permissions")
		}
		return checkAllInserted(res, len(names), "permission")
	})
}

// SetUserRoles replaces the role set of a user. Every role must already exist.
func (r *RBACRepository) SetUserRoles(ctx context.Context, userID uuid.UUID, roles []string) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	names := uniqueNames(roles)

	return r.db.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM user_roles WHERE user_id = $1`, userID); err != nil {
			return mapError(err, "clear user roles")
		}
		if len(names) == 0 {
			return nil
		}

		res, err := tx.ExecContext(ctx, `
			INSERT INTO user_roles (user_id, role_id)
			SELECT $1::uuid, id FROM roles WHERE name = ANY($2::text[])`,
			userID, names)
		if err != nil {
			return mapError(err, "assign user roles")
		}
		return checkAllInserted(res, len(names), "role")
	})
}

func (r *RBACRepository) queryNames(ctx context.Context, op, query string, args ...any) ([]string, error) {
	rows, err := r.db.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err, op)
	}
	defer rows.Close()

	names := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, mapError(err, op)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, op)
	}
	return names, nil
}

func checkAllInserted(res sql.Result, want int, kind string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return mapError(err, "count inserted rows")
	}
	if int(n) != want {
		return fmt.Errorf("%w: unknown %s name", model.ErrInvalidInput, kind)
	}
	return nil
}

func uniqueNames(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, name := range in {
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
