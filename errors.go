package tome

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

type ErrLLM struct {
	Provider string
	Message  string
}

func (e *ErrLLM) Error() string {
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

type ErrHTTP struct {
	Status     int
	Body       string
	RetryAfter time.Duration
}

func (e *ErrHTTP) Error() string {
	return fmt.Sprintf("http %d: %s", e.Status, e.Body)
}

// ParseRetryAfter parses an HTTP Retry-After header value, which is either
// a delay in seconds or an HTTP-date. Returns 0 for empty or unparseable values.
func ParseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if when, err := http.ParseTime(value); err == nil {
		if d := time.Until(when); d > 0 {
			return d
		}
	}
	return 0
}

// ErrSourceExists is returned by ingestion when the source name is already
// present in the store. Terminal; the caller must rename or delete first.
type ErrSourceExists struct {
	Source string
}

func (e *ErrSourceExists) Error() string {
	return fmt.Sprintf("document %q already exists", e.Source)
}

// ErrEncoding indicates input bytes that are not valid UTF-8 text.
// Rejected before any pipeline stage runs.
var ErrEncoding = errors.New("input is not valid UTF-8 text")

// ErrUnsupportedType indicates a file kind no extractor accepts.
// Rejected before any pipeline stage runs.
var ErrUnsupportedType = errors.New("unsupported file type")
