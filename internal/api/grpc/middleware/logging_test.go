package middleware

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/dtroode/authcore/internal/logger"
	"github.com/dtroode/authcore/internal/metrics"
)

func TestLogging_HandleGRPC(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		handler  grpc.UnaryHandler
		wantCode codes.Code
		wantLog  string
	}{
		{
			name: "success path",
			handler: func(ctx context.Context, req interface{}) (interface{}, error) {
				return "ok", nil
			},
			wantCode: codes.OK,
			wantLog:  "gRPC request completed",
		},
		{
			name: "client error is a rejection",
			handler: func(ctx context.Context, req interface{}) (interface{}, error) {
				return nil, status.Error(codes.Unauthenticated, "invalid token")
			},
			wantCode: codes.Unauthenticated,
			wantLog:  "gRPC request rejected",
		},
		{
			name: "non-grpc error is a failure",
			handler: func(ctx context.Context, req interface{}) (interface{}, error) {
				return nil, errors.New("boom")
			},
			wantCode: codes.Unknown,
			wantLog:  "gRPC request failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			lg := NewLogging(logger.NewWithWriter(&buf, -4, "text"), metrics.New())

			info := &grpc.UnaryServerInfo{FullMethod: "/authcore.v1.Auth/Login"}
			resp, err := lg.HandleGRPC(context.Background(), "password=SuperSecret1", info, tt.handler)

			assert.Equal(t, tt.wantCode, status.Code(err))
			if tt.wantCode == codes.OK {
				assert.Equal(t, "ok", resp)
			}
			assert.Contains(t, buf.String(), tt.wantLog)
			assert.NotContains(t, buf.String(), "SuperSecret1")
		})
	}
}
