package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	wardenerrors "warden/internal/errors"
)

// wrapRequestError classifies a transport-level failure.
func wrapRequestError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if wardenerrors.IsTransient(err) {
		return &wardenerrors.TransientError{Err: fmt.Errorf("http request: %w", err)}
	}
	return fmt.Errorf("http request: %w", err)
}

// mapHTTPError converts a non-2xx response into a classified error.
func mapHTTPError(status int, body []byte, header http.Header) error {
	msg := fmt.Errorf("http %d: %s", status, truncate(string(body), 200))

	if wardenerrors.TransientStatus(status) {
		retryAfter := 0
		if ra := header.Get("Retry-After"); ra != "" {
			if secs, err := strconv.Atoi(ra); err == nil {
				retryAfter = secs
			}
		}
		return &wardenerrors.TransientError{
			Err:        msg,
			StatusCode: status,
			RetryAfter: retryAfter,
		}
	}

	return &wardenerrors.PermanentError{Err: msg, StatusCode: status}
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
