package ecp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"syscall"
)

// ErrorType represents the category of error that occurred
type ErrorType int

const (
	// ErrTypeNetwork indicates a network-level error (host or network unreachable, reset)
	ErrTypeNetwork ErrorType = iota
	// ErrTypeHTTP indicates an HTTP-level error (non-2xx status code)
	ErrTypeHTTP
	// ErrTypeParse indicates a response that could not be read or understood
	ErrTypeParse
	// ErrTypeTimeout indicates a request timeout
	ErrTypeTimeout
	// ErrTypeConnectionRefused indicates the device refused the connection
	ErrTypeConnectionRefused
	// ErrTypeDNS indicates a DNS resolution failure
	ErrTypeDNS
	// ErrTypeCanceled indicates the caller's context ended
	ErrTypeCanceled
)

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeNetwork:
		return "Network Error"
	case ErrTypeHTTP:
		return "HTTP Error"
	case ErrTypeParse:
		return "Parse Error"
	case ErrTypeTimeout:
		return "Timeout"
	case ErrTypeConnectionRefused:
		return "Connection Refused"
	case ErrTypeDNS:
		return "DNS Error"
	case ErrTypeCanceled:
		return "Canceled"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// TransportError is returned by Client.Send when a command could not be
// delivered. Callers treat it as "the device state did not change".
type TransportError struct {
	Type       ErrorType // Category of error
	Message    string    // Human-readable error message
	StatusCode int       // HTTP status code (if applicable)
	Err        error     // Underlying error (if any)
	Address    string    // Device address (for context)
	Command    string    // Command path
	Attempts   int       // Attempts made before giving up
	Retryable  bool      // Whether another attempt could succeed
}

// Error implements the error interface
func (e *TransportError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Type, e.Message)
	if e.Command != "" {
		msg = fmt.Sprintf("%s: %s %s", e.Type, e.Command, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s (caused by: %v)", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying error for error chain inspection
func (e *TransportError) Unwrap() error {
	return e.Err
}

// ClassifyNetworkError analyzes an error returned by the HTTP client and
// returns a categorised TransportError.
func ClassifyNetworkError(err error, address string) *TransportError {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.Canceled) {
		return &TransportError{
			Type:    ErrTypeCanceled,
			Message: "Request canceled",
			Err:     err,
			Address: address,
		}
	}

	if os.IsTimeout(err) || errors.Is(err, context.DeadlineExceeded) {
		return &TransportError{
			Type:      ErrTypeTimeout,
			Message:   "Request timed out",
			Err:       err,
			Address:   address,
			Retryable: true,
		}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return &TransportError{
			Type:    ErrTypeDNS,
			Message: fmt.Sprintf("DNS resolution failed for %s", dnsErr.Name),
			Err:     err,
			Address: address,
		}
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if errors.Is(opErr.Err, syscall.ECONNREFUSED) {
			return &TransportError{
				Type:      ErrTypeConnectionRefused,
				Message:   "Device refused connection",
				Err:       err,
				Address:   address,
				Retryable: true,
			}
		}
		if errors.Is(opErr.Err, syscall.EHOSTUNREACH) {
			return &TransportError{
				Type:      ErrTypeNetwork,
				Message:   "Host unreachable",
				Err:       err,
				Address:   address,
				Retryable: true,
			}
		}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return ClassifyNetworkError(urlErr.Err, address)
	}

	return &TransportError{
		Type:      ErrTypeNetwork,
		Message:   "Network error occurred",
		Err:       err,
		Address:   address,
		Retryable: true,
	}
}

// NewNetworkError creates a network-level error with automatic classification
func NewNetworkError(message string, err error, address string) *TransportError {
	classified := ClassifyNetworkError(err, address)
	if classified != nil {
		classified.Message = message
		return classified
	}
	return &TransportError{
		Type:      ErrTypeNetwork,
		Message:   message,
		Err:       err,
		Address:   address,
		Retryable: true,
	}
}

// NewHTTPError creates an HTTP-level error. Server errors are retryable.
func NewHTTPError(statusCode int, message string, address string) *TransportError {
	return &TransportError{
		Type:       ErrTypeHTTP,
		Message:    message,
		StatusCode: statusCode,
		Address:    address,
		Retryable:  statusCode >= 500,
	}
}

// NewParseError creates a parsing error
func NewParseError(message string, err error, address string) *TransportError {
	return &TransportError{
		Type:    ErrTypeParse,
		Message: message,
		Err:     err,
		Address: address,
	}
}

// IsNetworkError checks if an error is a network error (including timeout, connection refused, DNS)
func IsNetworkError(err error) bool {
	var te *TransportError
	if errors.As(err, &te) {
		return te.Type == ErrTypeNetwork ||
			te.Type == ErrTypeTimeout ||
			te.Type == ErrTypeConnectionRefused ||
			te.Type == ErrTypeDNS
	}
	return false
}

// IsTimeout checks if an error is a request timeout
func IsTimeout(err error) bool {
	var te *TransportError
	return errors.As(err, &te) && te.Type == ErrTypeTimeout
}

// IsHTTPError checks if an error is an HTTP error
func IsHTTPError(err error) bool {
	var te *TransportError
	return errors.As(err, &te) && te.Type == ErrTypeHTTP
}

// IsRetryable checks if an error should be retried
func IsRetryable(err error) bool {
	var te *TransportError
	if errors.As(err, &te) {
		return te.Retryable
	}
	return false
}

// ShortMessage returns a concise, user-facing description of err.
func ShortMessage(err error) string {
	var te *TransportError
	if !errors.As(err, &te) {
		return err.Error()
	}

	switch te.Type {
	case ErrTypeTimeout:
		return "Device not responding (timeout)"
	case ErrTypeConnectionRefused:
		return "Device refused connection - is remote control enabled?"
	case ErrTypeDNS:
		return "Cannot resolve device hostname"
	case ErrTypeNetwork:
		return "Network error - check connection"
	case ErrTypeHTTP:
		return fmt.Sprintf("Device error (HTTP %d)", te.StatusCode)
	case ErrTypeParse:
		return "Failed to read device response"
	case ErrTypeCanceled:
		return "Canceled"
	default:
		return te.Message
	}
}
