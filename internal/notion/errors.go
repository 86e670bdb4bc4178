package notion

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError is a non-2xx response from the Notion API. Status and Code drive
// the retry-vs-fail classification below.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("notion: %d %s: %s", e.Status, e.Code, e.Message)
}

// IsTransient reports whether err is worth retrying: rate limits, server
// errors, or transport failures that never produced a response. Anything
// that is not a structured APIError is treated as a network fault.
func IsTransient(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status == http.StatusTooManyRequests || apiErr.Status >= 500
	}
	return err != nil
}

// IsConflict reports a duplicate-creation result. Notion has no atomic
// create-if-absent, so the orchestrator recovers from this by re-resolving
// and converting the create into an update.
func IsConflict(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusConflict
}

// IsPermanent reports a validation-class rejection that retrying cannot
// fix: bad request, missing page, schema mismatch.
func IsPermanent(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return !IsTransient(err) && !IsConflict(err)
}
