package enrich

import "fmt"

// EnrichmentError covers every way an enrichment call can fail: transport,
// timeout, or a response that cannot be used.
type EnrichmentError struct {
	Source string
	Link   string
	Title  string
	Err    error
}

func (e *EnrichmentError) Error() string {
	return fmt.Sprintf("enrich %s (%s): %v", e.Link, e.Title, e.Err)
}

func (e *EnrichmentError) Unwrap() error {
	return e.Err
}
