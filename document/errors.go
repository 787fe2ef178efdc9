package document

import (
	"errors"
	"fmt"
)

// Sentinel errors for the structural failure modes. Wrapped errors carry the
// offending tag, offset or page number; match with errors.Is.
var (
	// ErrIncorrectFormat reports a top-level magic mismatch.
	ErrIncorrectFormat = errors.New("document: incorrect format")

	// ErrCorruptedContainer reports a structural violation: wrong chunk
	// order, an unexpected tag, a bad payload, or a fetched file that is
	// not a well-formed component for its context.
	ErrCorruptedContainer = errors.New("document: corrupted container")

	// ErrNoSuchPage reports a page number out of range, or an empty slot
	// on a bundled document.
	ErrNoSuchPage = errors.New("document: no such page")

	// ErrNoBaseURL reports a remote fetch attempted without a configured
	// base location.
	ErrNoBaseURL = errors.New("document: no base url")
)

// NetworkError reports a transport-level failure reaching a remote file.
type NetworkError struct {
	URL         string
	Page        int
	ComponentID string
	Err         error
}

func (e *NetworkError) Error() string {
	if e.ComponentID != "" {
		return fmt.Sprintf("document: network error fetching component %q (page %d) from %s: %v", e.ComponentID, e.Page, e.URL, e.Err)
	}
	return fmt.Sprintf("document: network error fetching page %d from %s: %v", e.Page, e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// UnsuccessfulRequestError reports that the server was reached but answered
// with a non-success status.
type UnsuccessfulRequestError struct {
	URL         string
	Page        int
	ComponentID string
	StatusCode  int
	Status      string
}

func (e *UnsuccessfulRequestError) Error() string {
	if e.ComponentID != "" {
		return fmt.Sprintf("document: request for component %q (page %d) at %s failed: %s", e.ComponentID, e.Page, e.URL, e.Status)
	}
	return fmt.Sprintf("document: request for page %d at %s failed: %s", e.Page, e.URL, e.Status)
}
