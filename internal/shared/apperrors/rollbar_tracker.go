package apperrors

import (
	"errors"
	"net/http"

	"github.com/stvp/rollbar"
)

var rollbarLevels = map[Level]string{
	LevelError: rollbar.ERR,
	LevelWarn:  rollbar.WARN,
}

type RollbarTracker struct {
	r       *http.Request
	project string
}

// NewRollbarTracker configures the global rollbar client.
func NewRollbarTracker(token, project, env string) *RollbarTracker {
	rollbar.Token = token
	rollbar.Environment = env

	return &RollbarTracker{project: project}
}

func (t RollbarTracker) Track(level Level, errorText string, ctx map[string]interface{}) {
	rollbarLevel, ok := rollbarLevels[level]
	if !ok {
		panic("invalid level " + level)
	}

	class, detail := splitErrorText(errorText)
	props := make(map[string]interface{}, len(ctx)+1)
	for k, v := range ctx {
		props[k] = v
	}
	if detail != "" {
		props["error_detail"] = detail
	}

	fields := []*rollbar.Field{
		{Name: "props", Data: props},
		{Name: "project", Data: t.project},
	}
	if t.r == nil {
		rollbar.Error(rollbarLevel, errors.New(class), fields...)
		return
	}
	rollbar.RequestError(rollbarLevel, t.r, errors.New(class), fields...)
}

func (t RollbarTracker) WithHTTPRequest(r *http.Request) Tracker {
	t.r = r
	return t
}

func (t RollbarTracker) Flush() {
	rollbar.Wait()
}
