package fetcher

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestFetchError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *FetchError
		want string
	}{
		{
			name: "bad status",
			err:  NewBadStatusError(503),
			want: "bad_status error (status 503): Service Unavailable",
		},
		{
			name: "unknown status text",
			err:  NewBadStatusError(599),
			want: "bad_status error (status 599): unexpected status",
		},
		{
			name: "network with cause",
			err:  NewNetworkError(errors.New("connection refused")),
			want: "network error: network request failed: connection refused",
		},
		{
			name: "network without cause",
			err:  &FetchError{Type: ErrorTypeNetwork, Message: "network request failed"},
			want: "network error: network request failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewNetworkError_Timeout(t *testing.T) {
	err := NewNetworkError(fmt.Errorf("get: %w", context.DeadlineExceeded))
	if !err.Timeout {
		t.Error("Timeout = false, want true for deadline exceeded")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Error("errors.Is(err, context.DeadlineExceeded) = false, want true")
	}
	if err.Message != "request timed out" {
		t.Errorf("Message = %q, want %q", err.Message, "request timed out")
	}
}

func TestIsNetwork_Wrapped(t *testing.T) {
	err := fmt.Errorf("refresh: %w", NewNetworkError(errors.New("dial tcp")))
	if !IsNetwork(err) {
		t.Error("IsNetwork() = false for wrapped network error")
	}
	if IsBadStatus(err) {
		t.Error("IsBadStatus() = true for network error")
	}
	if IsNetwork(errors.New("plain")) {
		t.Error("IsNetwork() = true for plain error")
	}
}
