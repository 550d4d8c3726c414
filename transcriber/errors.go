package transcriber

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// Sentinel errors returned by transcription providers. Callers classify
// failures with errors.Is to pick a user-facing message.
var (
	ErrAuth                = errors.New("authentication failed")
	ErrRateLimited         = errors.New("rate limited")
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrNetwork             = errors.New("network error")
	ErrTimeout             = errors.New("request timed out")
	ErrProvider            = errors.New("provider error")
)

// classifyStatus maps an HTTP error status to a taxonomy sentinel,
// keeping the provider name and response body for the log.
func classifyStatus(provider string, status int, body []byte) error {
	detail := strings.TrimSpace(string(body))
	if len(detail) > 200 {
		detail = detail[:200]
	}
	switch {
	case status == 401 || status == 403:
		return fmt.Errorf("%w: %s returned %d: %s", ErrAuth, provider, status, detail)
	case status == 402:
		return fmt.Errorf("%w: %s returned %d: %s", ErrInsufficientCredits, provider, status, detail)
	case status == 429:
		return fmt.Errorf("%w: %s returned %d: %s", ErrRateLimited, provider, status, detail)
	default:
		return fmt.Errorf("%w: %s returned %d: %s", ErrProvider, provider, status, detail)
	}
}

// classifyTransport maps a failed round trip to ErrTimeout or ErrNetwork.
func classifyTransport(provider string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s: %v", ErrTimeout, provider, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %s: %v", ErrTimeout, provider, err)
	}
	return fmt.Errorf("%w: %s: %v", ErrNetwork, provider, err)
}
