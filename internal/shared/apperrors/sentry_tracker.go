package apperrors

import (
	"fmt"
	"net/http"

	"github.com/getsentry/raven-go"
	"github.com/pkg/errors"
)

var sentryLevels = map[Level]raven.Severity{
	LevelError: raven.ERROR,
	LevelWarn:  raven.WARNING,
}

type SentryTracker struct {
	r       *http.Request
	project string
}

// NewSentryTracker configures the global raven client.
func NewSentryTracker(dsn, project, env string) (*SentryTracker, error) {
	raven.SetEnvironment(env)
	if err := raven.SetDSN(dsn); err != nil {
		return nil, errors.Wrap(err, "can't set sentry dsn")
	}

	return &SentryTracker{project: project}, nil
}

func (t SentryTracker) Track(level Level, errorText string, ctx map[string]interface{}) {
	severity, ok := sentryLevels[level]
	if !ok {
		panic("invalid level " + level)
	}

	tags := map[string]string{"project": t.project}
	for k, v := range ctx {
		tags[k] = fmt.Sprint(v)
	}

	var interfaces []raven.Interface
	if t.r != nil {
		interfaces = append(interfaces, raven.NewHttp(t.r))
	}

	class, _ := splitErrorText(errorText)
	p := raven.NewPacket(errorText, interfaces...)
	p.Fingerprint = []string{class}
	p.Level = severity

	raven.Capture(p, tags)
}

func (t SentryTracker) WithHTTPRequest(r *http.Request) Tracker {
	t.r = r
	return t
}

func (t SentryTracker) Flush() {
	raven.Wait()
}

type flusher interface {
	Flush()
}

// Flush blocks until queued reports are sent. Short-lived commands call it before exit.
func Flush(t Tracker) {
	if f, ok := t.(flusher); ok {
		f.Flush()
	}
}
