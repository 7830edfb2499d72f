package ecp

import (
	"context"
	"errors"
	"net"
	"net/url"
	"os"
	"strings"
	"syscall"
	"testing"
)

func TestClassifyNetworkError(t *testing.T) {
	tests := []struct {
		name          string
		err           error
		wantType      ErrorType
		wantRetryable bool
	}{
		{
			name:          "timeout",
			err:           os.ErrDeadlineExceeded,
			wantType:      ErrTypeTimeout,
			wantRetryable: true,
		},
		{
			name:          "context deadline",
			err:           context.DeadlineExceeded,
			wantType:      ErrTypeTimeout,
			wantRetryable: true,
		},
		{
			name:          "canceled",
			err:           &url.Error{Op: "Post", URL: "http://x", Err: context.Canceled},
			wantType:      ErrTypeCanceled,
			wantRetryable: false,
		},
		{
			name:          "dns",
			err:           &net.DNSError{Name: "tv.local", Err: "no such host"},
			wantType:      ErrTypeDNS,
			wantRetryable: false,
		},
		{
			name: "connection refused",
			err: &url.Error{Op: "Post", URL: "http://x", Err: &net.OpError{
				Op: "dial", Net: "tcp", Err: os.NewSyscallError("connect", syscall.ECONNREFUSED),
			}},
			wantType:      ErrTypeConnectionRefused,
			wantRetryable: true,
		},
		{
			name:          "host unreachable",
			err:           &net.OpError{Op: "dial", Net: "tcp", Err: syscall.EHOSTUNREACH},
			wantType:      ErrTypeNetwork,
			wantRetryable: true,
		},
		{
			name:          "generic",
			err:           errors.New("connection reset"),
			wantType:      ErrTypeNetwork,
			wantRetryable: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyNetworkError(tt.err, "10.0.0.1:8060")
			if got.Type != tt.wantType {
				t.Errorf("Type = %v, want %v", got.Type, tt.wantType)
			}
			if got.Retryable != tt.wantRetryable {
				t.Errorf("Retryable = %v, want %v", got.Retryable, tt.wantRetryable)
			}
			if got.Address != "10.0.0.1:8060" {
				t.Errorf("Address = %v, want 10.0.0.1:8060", got.Address)
			}
		})
	}

	if ClassifyNetworkError(nil, "") != nil {
		t.Error("ClassifyNetworkError(nil) should be nil")
	}
}

func TestNewHTTPError(t *testing.T) {
	if NewHTTPError(404, "not found", "").Retryable {
		t.Error("4xx should not be retryable")
	}
	if !NewHTTPError(503, "busy", "").Retryable {
		t.Error("5xx should be retryable")
	}
}

func TestTransportError_Error(t *testing.T) {
	err := &TransportError{
		Type:    ErrTypeTimeout,
		Message: "Request timed out",
		Command: "launch/12",
		Err:     os.ErrDeadlineExceeded,
	}

	msg := err.Error()
	for _, want := range []string{"Timeout", "launch/12", "Request timed out", "caused by"} {
		if !strings.Contains(msg, want) {
			t.Errorf("Error() = %q, want containing %q", msg, want)
		}
	}
	if !errors.Is(err, os.ErrDeadlineExceeded) {
		t.Error("errors.Is should see the wrapped error")
	}
}

func TestPredicates(t *testing.T) {
	timeout := ClassifyNetworkError(os.ErrDeadlineExceeded, "")
	wrapped := errors.Join(errors.New("context"), timeout)

	if !IsTimeout(wrapped) || !IsNetworkError(wrapped) || !IsRetryable(wrapped) {
		t.Error("predicates should see through wrapping")
	}
	if IsHTTPError(wrapped) {
		t.Error("IsHTTPError() = true for a timeout")
	}
	if IsRetryable(errors.New("plain")) {
		t.Error("plain errors are not retryable")
	}
}

func TestShortMessage(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{NewHTTPError(500, "boom", ""), "Device error (HTTP 500)"},
		{ClassifyNetworkError(os.ErrDeadlineExceeded, ""), "Device not responding (timeout)"},
		{errors.New("plain"), "plain"},
	}

	for _, tt := range tests {
		if got := ShortMessage(tt.err); got != tt.want {
			t.Errorf("ShortMessage() = %q, want %q", got, tt.want)
		}
	}
}
