package shodan

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// APIError is any non-200 answer from the API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("shodan: status %d", e.StatusCode)
	}
	return fmt.Sprintf("shodan: %s (status %d)", e.Message, e.StatusCode)
}

var rateLimitPhrases = []string{"rate limit", "too many requests", "request limit"}

// IsRateLimit reports whether err is an APIError of the rate-limit class.
func IsRateLimit(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	if apiErr.StatusCode == http.StatusTooManyRequests {
		return true
	}
	msg := strings.ToLower(apiErr.Message)
	for _, p := range rateLimitPhrases {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}
