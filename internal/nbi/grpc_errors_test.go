package nbi

import (
	"errors"
	"fmt"
	"testing"

	"github.com/dimalipin/netviz/core"
	"github.com/dimalipin/netviz/internal/ipheader"
	"github.com/dimalipin/netviz/kb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestToStatusError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		err     error
		code    codes.Code
		wantNil bool
	}{
		{name: "nil", err: nil, wantNil: true},
		{name: "status passthrough", err: status.Error(codes.PermissionDenied, "denied"), code: codes.PermissionDenied},
		{name: "invalid argument sentinel", err: fmt.Errorf("%w: src_ip is required", ErrInvalidArgument), code: codes.InvalidArgument},
		{name: "same host", err: core.ErrSameHost, code: codes.InvalidArgument},
		{name: "host not found", err: fmt.Errorf("%w: %q", kb.ErrHostNotFound, "10.9.9.9"), code: codes.NotFound},
		{name: "unknown field", err: ipheader.ErrUnknownField, code: codes.NotFound},
		{name: "no route", err: core.ErrNoRoute, code: codes.FailedPrecondition},
		{name: "not ready", err: ErrNotReady, code: codes.FailedPrecondition},
		{name: "already exists", err: kb.ErrHostExists, code: codes.AlreadyExists},
		{name: "fallback", err: errors.New("boom"), code: codes.Internal},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got := ToStatusError(tc.err)
			if tc.wantNil {
				if got != nil {
					t.Fatalf("ToStatusError(nil) = %v, want nil", got)
				}
				return
			}

			if got == nil {
				t.Fatalf("ToStatusError(%v) = nil, want error", tc.err)
			}
			if code := status.Code(got); code != tc.code {
				t.Fatalf("ToStatusError(%v) code = %v, want %v", tc.err, code, tc.code)
			}
		})
	}
}
