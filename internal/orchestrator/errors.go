package orchestrator

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// HTTPError is returned for any non-2xx orchestrator response. Callers can
// inspect StatusCode to distinguish a vanished session (404) from a service
// failure.
type HTTPError struct {
	Method     string
	Path       string
	Status     string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if strings.TrimSpace(e.Body) == "" {
		return fmt.Sprintf("%s %s: %s", e.Method, e.Path, e.Status)
	}
	return fmt.Sprintf("%s %s: %s: %s", e.Method, e.Path, e.Status, e.Body)
}

// IsNotFound reports whether err is an orchestrator 404.
func IsNotFound(err error) bool {
	var httpErr *HTTPError
	return errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusNotFound
}
