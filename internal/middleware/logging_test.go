package middleware

import (
	"testing"

	"connectrpc.com/connect"
)

func TestServerFault(t *testing.T) {
	tests := []struct {
		code connect.Code
		want bool
	}{
		{connect.CodeInternal, true},
		{connect.CodeUnavailable, true},
		{connect.CodeNotFound, false},
		{connect.CodeInvalidArgument, false},
		{connect.CodeUnauthenticated, false},
		{connect.CodePermissionDenied, false},
	}
	for _, tt := range tests {
		t.Run(tt.code.String(), func(t *testing.T) {
			if got := serverFault(tt.code); got != tt.want {
				t.Errorf("serverFault(%v) = %v, want %v", tt.code, got, tt.want)
			}
		})
	}
}
