package feed

import "fmt"

// FetchError reports an unreachable feed or page, or a non-2xx response.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: HTTP %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// ParseError reports a malformed feed document or entry timestamp.
type ParseError struct {
	URL  string
	Link string
	Err  error
}

func (e *ParseError) Error() string {
	if e.Link != "" {
		return fmt.Sprintf("parse %s (entry %s): %v", e.URL, e.Link, e.Err)
	}
	return fmt.Sprintf("parse %s: %v", e.URL, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
