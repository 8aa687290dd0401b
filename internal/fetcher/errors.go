package fetcher

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/go-github/v75/github"
)

// ErrUnauthenticated is returned when no usable credential is available.
var ErrUnauthenticated = errors.New("not authenticated")

// UpstreamError reports a failed call to the GitHub API: transport failures,
// non-2xx answers and undecodable payloads alike.
type UpstreamError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("github %s: status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("github %s: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Is lets an upstream 401 match ErrUnauthenticated.
func (e *UpstreamError) Is(target error) bool {
	return target == ErrUnauthenticated && e.StatusCode == http.StatusUnauthorized
}

func upstreamError(op string, resp *github.Response, err error) error {
	e := &UpstreamError{Op: op, Err: err}
	if resp != nil && resp.Response != nil {
		e.StatusCode = resp.StatusCode
	}
	return e
}
