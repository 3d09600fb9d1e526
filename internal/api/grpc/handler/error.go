package handler

import (
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/dtroode/authcore/internal/model"
)

// handleError maps service errors to gRPC statuses. Messages never say
// whether an account exists.
func handleError(err error) error {
	if _, ok := status.FromError(err); ok {
		return err
	}

	switch {
	case errors.Is(err, model.ErrInvalidCredentials):
		return status.Error(codes.Unauthenticated, "invalid credentials")
	case errors.Is(err, model.ErrInvalidToken), errors.Is(err, model.ErrTokenRevoked):
		return status.Error(codes.Unauthenticated, "invalid or revoked token")
	case errors.Is(err, model.ErrTooManyAttempts):
		return status.Error(codes.ResourceExhausted, "too many failed login attempts")
	case errors.Is(err, model.ErrUserNotFound), errors.Is(err, model.ErrNotFound):
		return status.Error(codes.NotFound, "user not found")
	case errors.Is(err, model.ErrAlreadyExists):
		return status.Error(codes.AlreadyExists, "user already exists")
	case errors.Is(err, model.ErrInvalidInput):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, model.ErrPermissionDenied):
		return status.Error(codes.PermissionDenied, "permission denied")
	case errors.Is(err, model.ErrUnavailable):
		return status.Error(codes.Unavailable, "service unavailable")
	default:
		return status.Error(codes.Internal, "internal server error")
	}
}
