package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/dtroode/authcore/internal/logger"
	"github.com/dtroode/authcore/internal/metrics"
	"github.com/dtroode/authcore/internal/model"
)

// PermissionResolver computes effective permissions from role membership.
// Every resolution is one store query; nothing is cached, so role changes
// apply to the next request.
type PermissionResolver struct {
	store   model.PermissionStore
	metrics *metrics.Metrics
	logger  *logger.Logger
}

func NewPermissionResolver(store model.PermissionStore, metrics *metrics.Metrics, logger *logger.Logger) *PermissionResolver {
	return &PermissionResolver{store: store, metrics: metrics, logger: logger}
}

// EffectivePermissions is the union of the permissions of all roles of the
// user. A user without roles has an empty set.
func (r *PermissionResolver) EffectivePermissions(ctx context.Context, userID uuid.UUID) (model.PermissionSet, error) {
	names, err := r.store.UserPermissions(ctx, userID)
	if err != nil {
		r.logger.Error("Permission resolver: failed to load permissions",
			"user_id", userID,
			"error", err.Error())
		return nil, unavailable("resolve permissions", err)
	}
	return model.NewPermissionSet(names...), nil
}

// Authorize reports whether the user holds exactly the named permission.
// Absence is a denial, never an error; errors come only from the store.
func (r *PermissionResolver) Authorize(ctx context.Context, userID uuid.UUID, permission string) (bool, error) {
	perms, err := r.EffectivePermissions(ctx, userID)
	if err != nil {
		return false, err
	}

	allowed := perms.Has(permission)
	r.metrics.Authorization(permission, allowed)
	if !allowed {
		r.logger.Debug("Permission resolver: permission denied",
			"user_id", userID,
			"permission", permission)
	}
	return allowed, nil
}
