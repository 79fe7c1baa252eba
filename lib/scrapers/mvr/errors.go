package mvr

import (
	"errors"
	"fmt"
	"net/url"
)

// ErrInvalidRequest is wrapped by every QueryRequest validation failure.
var ErrInvalidRequest = errors.New("mvr: invalid request")

// NetworkError is a transport failure or an unexpected HTTP status. it is
// never retried internally.
type NetworkError struct {
	Op         string
	URL        string
	StatusCode int
	Err        error
}

func (e *NetworkError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("mvr: %s %s: %v", e.Op, e.URL, e.Err)
	}
	return fmt.Sprintf("mvr: %s %s: unexpected status %d", e.Op, e.URL, e.StatusCode)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// ParseError means an expected part of the page is missing, usually because
// the site changed its markup.
type ParseError struct {
	What string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("mvr: could not find %s in page (has the site structure changed?)", e.What)
}

// CaptchaExhaustedError is returned once every attempt had its CAPTCHA rejected.
type CaptchaExhaustedError struct {
	Attempts   int
	LastStatus string
}

func (e *CaptchaExhaustedError) Error() string {
	return fmt.Sprintf("mvr: captcha not accepted after %d attempt(s)", e.Attempts)
}

// ServiceError is an error message from the site that isn't about the CAPTCHA,
// an invalid ЕГН for example. retrying would give the same answer.
type ServiceError struct {
	Message string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("mvr: service rejected the query: %s", e.Message)
}

// redactedUrl drops the query string so personal identifiers don't end up in errors or logs.
func redactedUrl(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return "<unparseable url>"
	}
	if parsed.RawQuery != "" {
		parsed.RawQuery = "<redacted>"
	}
	return parsed.String()
}
