package handler

import (
	"math"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/dtroode/authcore/internal/model"
)

func requiredString(req *structpb.Struct, field string) (string, error) {
	v, ok := req.GetFields()[field]
	if !ok || v.GetStringValue() == "" {
		return "", status.Errorf(codes.InvalidArgument, "%s is required", field)
	}
	return v.GetStringValue(), nil
}

func requiredUUID(req *structpb.Struct, field string) (uuid.UUID, error) {
	raw, err := requiredString(req, field)
	if err != nil {
		return uuid.Nil, err
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, status.Errorf(codes.InvalidArgument, "%s must be a UUID", field)
	}
	return id, nil
}

// optionalInt reads a non-negative whole number, returning def when absent.
func optionalInt(req *structpb.Struct, field string, def int) (int, error) {
	v, ok := req.GetFields()[field]
	if !ok {
		return def, nil
	}
	n, isNumber := v.GetKind().(*structpb.Value_NumberValue)
	if !isNumber || n.NumberValue < 0 || n.NumberValue != math.Trunc(n.NumberValue) || n.NumberValue > math.MaxInt32 {
		return 0, status.Errorf(codes.InvalidArgument, "%s must be a non-negative integer", field)
	}
	return int(n.NumberValue), nil
}

// optionalString reads a non-empty string, returning nil when absent.
func optionalString(req *structpb.Struct, field string) (*string, error) {
	v, ok := req.GetFields()[field]
	if !ok {
		return nil, nil
	}
	s, isString := v.GetKind().(*structpb.Value_StringValue)
	if !isString || s.StringValue == "" {
		return nil, status.Errorf(codes.InvalidArgument, "%s must be a non-empty string", field)
	}
	return &s.StringValue, nil
}

// stringList reads a list of strings. A missing field is an empty list.
func stringList(req *structpb.Struct, field string) ([]string, error) {
	if _, ok := req.GetFields()[field]; !ok {
		return []string{}, nil
	}
	return optionalStringList(req, field)
}

// optionalStringList reads a list of strings, returning nil when absent.
func optionalStringList(req *structpb.Struct, field string) ([]string, error) {
	v, ok := req.GetFields()[field]
	if !ok {
		return nil, nil
	}
	list := v.GetListValue()
	if list == nil {
		return nil, status.Errorf(codes.InvalidArgument, "%s must be a list", field)
	}

	out := make([]string, 0, len(list.GetValues()))
	for _, item := range list.GetValues() {
		s, isString := item.GetKind().(*structpb.Value_StringValue)
		if !isString || s.StringValue == "" {
			return nil, status.Errorf(codes.InvalidArgument, "%s must contain non-empty strings", field)
		}
		out = append(out, s.StringValue)
	}
	return out, nil
}

func stringsToList(in []string) []interface{} {
	out := make([]interface{}, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}

func userFields(u model.User) map[string]interface{} {
	roles := u.Roles
	if roles == nil {
		roles = []string{}
	}
	fields := map[string]interface{}{
		"id":    u.ID.String(),
		"email": u.Email,
		"roles": stringsToList(roles),
	}
	if !u.CreatedAt.IsZero() {
		fields["created_at"] = u.CreatedAt.UTC().Format(time.RFC3339)
	}
	return fields
}

func userToStruct(u model.User) (*structpb.Struct, error) {
	return newStruct(userFields(u))
}

func pairToStruct(p model.TokenPair) (*structpb.Struct, error) {
	return newStruct(map[string]interface{}{
		"access_token":  p.AccessToken,
		"refresh_token": p.RefreshToken,
		"token_type":    p.TokenType,
	})
}

func newStruct(fields map[string]interface{}) (*structpb.Struct, error) {
	s, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, status.Error(codes.Internal, "internal server error")
	}
	return s, nil
}

// ack is the acknowledgement returned by operations with no payload.
func ack() *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{"ack": structpb.NewBoolValue(true)}}
}
