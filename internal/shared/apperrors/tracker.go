package apperrors

import (
	"net/http"
	"strings"
)

type Level string

const (
	LevelError Level = "ERROR"
	LevelWarn  Level = "WARN"
)

// Tracker reports errors to an external service. ctx holds identifiers
// such as subscription_id or customer_id.
type Tracker interface {
	Track(level Level, errorText string, ctx map[string]interface{})
	WithHTTPRequest(r *http.Request) Tracker
}

type NopTracker struct{}

func NewNopTracker() *NopTracker {
	return &NopTracker{}
}

func (NopTracker) Track(Level, string, map[string]interface{}) {}

func (t *NopTracker) WithHTTPRequest(*http.Request) Tracker {
	return t
}

// splitErrorText returns the message head used for grouping and the rest.
// "migration create failed: seal: 422" groups as "migration create failed".
func splitErrorText(errorText string) (class, detail string) {
	parts := strings.SplitN(errorText, ": ", 2)
	if len(parts) == 2 {
		return parts[0], parts[1]
	}
	return parts[0], ""
}
