package exchange

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Kind classifies an exchange failure for retry and shutdown decisions.
type Kind int

const (
	// KindTransient covers timeouts, 5xx, and connection resets; retried
	// with backoff, then the affected instrument is skipped this cycle.
	KindTransient Kind = iota
	// KindAuth covers bad credentials or signatures; fatal, the engine
	// cannot safely continue trading.
	KindAuth
	// KindRejected covers orders the exchange declined (margin, size);
	// logged, no retry within the same cycle.
	KindRejected
	// KindBadData covers responses the client cannot use (missing
	// funding rate, empty payloads); treated as "no signal".
	KindBadData
)

func (k Kind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindAuth:
		return "auth"
	case KindRejected:
		return "rejected"
	case KindBadData:
		return "bad_data"
	}
	return "unknown"
}

// APIError is a classified exchange failure.
type APIError struct {
	Kind    Kind
	Status  int    // HTTP status, 0 for network-level failures
	Code    string // venue error code
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("exchange %s error (code %s): %s", e.Kind, e.Code, e.Message)
	}
	return fmt.Sprintf("exchange %s error: %s", e.Kind, e.Message)
}

// bitget auth-related error codes: invalid key, signature, passphrase,
// timestamp skew.
var authCodes = map[string]bool{
	"40001": true, "40002": true, "40003": true,
	"40006": true, "40009": true, "40037": true,
}

// classify maps an HTTP status and venue code onto an error kind.
func classify(status int, code string) Kind {
	switch {
	case authCodes[code], status == 401, status == 403:
		return KindAuth
	case status == 408, status == 429, status >= 500:
		return KindTransient
	default:
		return KindRejected
	}
}

// KindOf extracts the classification from any error. Network-level
// failures count as transient; context cancellation is passed through
// as transient so a shutdown is never escalated to an auth failure.
func KindOf(err error) Kind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindTransient
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return KindTransient
	}
	return KindTransient
}

// IsAuth reports a fatal credential failure.
func IsAuth(err error) bool { return err != nil && KindOf(err) == KindAuth }

// IsRejected reports an order the venue declined.
func IsRejected(err error) bool { return err != nil && KindOf(err) == KindRejected }
