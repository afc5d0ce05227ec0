package apperrors

import (
	"fmt"

	"github.com/deliverykit/calsync/internal/shared/logutil"
)

// WrapLogWithTracker returns a log that also tracks warnings and errors.
// Children add their name to the tracked context as "component".
func WrapLogWithTracker(log logutil.Log, lctx logutil.Context, t Tracker) logutil.Log {
	return trackedLog{
		Log:  log,
		lctx: lctx,
		t:    t,
	}
}

type trackedLog struct {
	logutil.Log
	lctx logutil.Context
	t    Tracker
}

func (tl trackedLog) Errorf(format string, args ...interface{}) {
	tl.t.Track(LevelError, fmt.Sprintf(format, args...), tl.lctx)
	tl.Log.Errorf(format, args...)
}

func (tl trackedLog) Warnf(format string, args ...interface{}) {
	tl.t.Track(LevelWarn, fmt.Sprintf(format, args...), tl.lctx)
	tl.Log.Warnf(format, args...)
}

func (tl trackedLog) Child(name string) logutil.Log {
	lctx := make(logutil.Context, len(tl.lctx)+1)
	for k, v := range tl.lctx {
		lctx[k] = v
	}
	if _, ok := lctx["component"]; !ok {
		lctx["component"] = name
	}

	return WrapLogWithTracker(tl.Log.Child(name), lctx, tl.t)
}
