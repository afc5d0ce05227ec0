package transportutil

import (
	"encoding/json"
	"net/http"

	"github.com/deliverykit/calsync/internal/shared/apperrors"
	"github.com/deliverykit/calsync/internal/shared/distlock"
	"github.com/deliverykit/calsync/internal/shared/logutil"
	"github.com/gorilla/mux"
)

type HandlerRegContext struct {
	Router     *mux.Router
	Log        logutil.Log
	ErrTracker apperrors.Tracker
	Locks      distlock.Factory
}

func WriteJSON(w http.ResponseWriter, code int, v interface{}) error {
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	w.WriteHeader(code)
	return json.NewEncoder(w).Encode(v)
}

// HandleError writes e as a JSON error. Server side errors are logged and tracked.
func (hctx HandlerRegContext) HandleError(w http.ResponseWriter, r *http.Request, e error) {
	respErr := MakeError(e)
	log := RequestLog(r.Context(), hctx.Log)

	if respErr.HTTPCode >= http.StatusInternalServerError {
		log.Errorf("%s %s failed: %s", r.Method, r.URL.Path, e)
		hctx.ErrTracker.WithHTTPRequest(r).Track(apperrors.LevelError, e.Error(), map[string]interface{}{
			"request_id": RequestID(r.Context()),
		})
	} else {
		log.Infof("%s %s rejected with %d: %s", r.Method, r.URL.Path, respErr.HTTPCode, e)
	}

	if err := WriteJSON(w, respErr.HTTPCode, respErr); err != nil {
		log.Warnf("Failed to write error response: %s", err)
	}
}

func (hctx HandlerRegContext) Respond(w http.ResponseWriter, r *http.Request, code int, v interface{}) {
	if err := WriteJSON(w, code, v); err != nil {
		RequestLog(r.Context(), hctx.Log).Warnf("Failed to write %s %s response: %s", r.Method, r.URL.Path, err)
	}
}
