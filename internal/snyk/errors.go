package snyk

import (
	"errors"
	"fmt"

	"github.com/m-mizutani/goerr/v2"
)

var (
	ErrTagOrganizationFetchFailed = goerr.NewTag("organization_fetch_failed")
	ErrTagTargetFetchFailed       = goerr.NewTag("target_fetch_failed")
	ErrTagTargetDeleteFailed      = goerr.NewTag("target_delete_failed")
)

// StatusError is returned when the API answers with an unexpected status code
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("API returned %d", e.Code)
	}
	return fmt.Sprintf("API returned %d: %s", e.Code, e.Body)
}

// StatusCode returns the HTTP status carried by err, or 0 when the request
// never produced a response (transport failure, decode failure).
func StatusCode(err error) int {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code
	}
	return 0
}
