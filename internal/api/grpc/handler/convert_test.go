package handler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

func mustStruct(t *testing.T, fields map[string]interface{}) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(fields)
	require.NoError(t, err)
	return s
}

func empty() *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{}}
}

func TestOptionalInt(t *testing.T) {
	tests := []struct {
		name    string
		fields  map[string]interface{}
		want    int
		wantErr bool
	}{
		{name: "absent", fields: map[string]interface{}{}, want: 7},
		{name: "whole", fields: map[string]interface{}{"n": 20}, want: 20},
		{name: "fraction", fields: map[string]interface{}{"n": 1.5}, wantErr: true},
		{name: "negative", fields: map[string]interface{}{"n": -1}, wantErr: true},
		{name: "string", fields: map[string]interface{}{"n": "10"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := optionalInt(mustStruct(t, tt.fields), "n", 7)
			if tt.wantErr {
				assert.Equal(t, codes.InvalidArgument, status.Code(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStringList(t *testing.T) {
	got, err := stringList(mustStruct(t, map[string]interface{}{"roles": []interface{}{"admin", "normal"}}), "roles")
	require.NoError(t, err)
	assert.Equal(t, []string{"admin", "normal"}, got)

	got, err = stringList(mustStruct(t, map[string]interface{}{}), "roles")
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = stringList(mustStruct(t, map[string]interface{}{"roles": "admin"}), "roles")
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = stringList(mustStruct(t, map[string]interface{}{"roles": []interface{}{"admin", 3}}), "roles")
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestOptionalFields(t *testing.T) {
	req := mustStruct(t, map[string]interface{}{
		"email": "a@example.com",
		"blank": "",
		"roles": []interface{}{},
	})

	email, err := optionalString(req, "email")
	require.NoError(t, err)
	require.NotNil(t, email)
	assert.Equal(t, "a@example.com", *email)

	missing, err := optionalString(req, "password")
	require.NoError(t, err)
	assert.Nil(t, missing)

	_, err = optionalString(req, "blank")
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	roles, err := optionalStringList(req, "roles")
	require.NoError(t, err)
	assert.NotNil(t, roles)
	assert.Empty(t, roles)

	absent, err := optionalStringList(req, "groups")
	require.NoError(t, err)
	assert.Nil(t, absent)
}

func TestRequiredUUID(t *testing.T) {
	_, err := requiredUUID(mustStruct(t, map[string]interface{}{"id": "nope"}), "id")
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = requiredUUID(mustStruct(t, map[string]interface{}{}), "id")
	st, _ := status.FromError(err)
	assert.Equal(t, "id is required", st.Message())
}
