package transportutil

import (
	"context"
	"net/http"
	"time"

	"github.com/deliverykit/calsync/internal/shared/logutil"
	uuid "github.com/satori/go.uuid"
)

const RequestIDHeader = "X-Request-ID"

type ctxKey string

const (
	requestIDKey        ctxKey = "transport/requestID"
	requestStartedAtKey ctxKey = "transport/requestStartedAt"
)

// RequestContextMiddleware is a negroni handler giving every request an id.
// An id sent by the client is kept.
func RequestContextMiddleware(log logutil.Log) func(w http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
	return func(w http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewV4().String()
		}
		w.Header().Set(RequestIDHeader, id)

		ctx := context.WithValue(r.Context(), requestIDKey, id)
		ctx = context.WithValue(ctx, requestStartedAtKey, time.Now())
		next(w, r.WithContext(ctx))

		RequestLog(ctx, log).Debugf("http", "%s %s done in %s", r.Method, r.URL.Path, time.Since(requestStartedAt(ctx)))
	}
}

func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

func requestStartedAt(ctx context.Context) time.Time {
	t, ok := ctx.Value(requestStartedAtKey).(time.Time)
	if !ok {
		return time.Now()
	}
	return t
}

func RequestLog(ctx context.Context, log logutil.Log) logutil.Log {
	id := RequestID(ctx)
	if id == "" {
		return log
	}

	return logutil.WrapLogWithContext(log, logutil.Context{"request_id": id})
}
