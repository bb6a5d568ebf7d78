package bursa

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/goccy/go-json"
	"github.com/spf13/cast"
)

// APIError is a non-2xx backend response. Detail holds the human-readable
// explanation from the response body, or the HTTP status text when the body
// carried none.
type APIError struct {
	Status int
	Detail string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend returned %d: %s", e.Status, e.Detail)
}

// newAPIError extracts the "detail" field. FastAPI sends either a string or
// a list of validation errors; for the list form the first "msg" is used.
func newAPIError(status int, body []byte) *APIError {
	e := &APIError{Status: status}

	var payload struct {
		Detail any `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		switch d := payload.Detail.(type) {
		case string:
			e.Detail = strings.TrimSpace(d)
		case []any:
			if len(d) > 0 {
				e.Detail = strings.TrimSpace(cast.ToString(cast.ToStringMap(d[0])["msg"]))
			}
		}
	}
	if e.Detail == "" {
		e.Detail = http.StatusText(status)
	}
	return e
}

// Detail returns the backend-provided detail when err wraps an *APIError,
// and "" otherwise.
func Detail(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Detail
	}
	return ""
}
