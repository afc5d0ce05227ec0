package apperrors

import (
	"github.com/deliverykit/calsync/internal/shared/config"
	"github.com/deliverykit/calsync/internal/shared/logutil"
)

// GetTracker builds the trackers enabled in cfg. Rollbar and Sentry may be
// enabled together, then every error goes to both.
func GetTracker(cfg config.Config, log logutil.Log, project string) Tracker {
	env := cfg.GetString("GO_ENV")
	if env == "" {
		env = "development"
	}

	var trackers []Tracker
	if cfg.GetBool("ROLLBAR_ENABLED", false) {
		trackers = append(trackers, NewRollbarTracker(cfg.GetString("ROLLBAR_TOKEN"), project, env))
	}

	if cfg.GetBool("SENTRY_ENABLED", false) {
		t, err := NewSentryTracker(cfg.GetString("SENTRY_DSN"), project, env)
		if err != nil {
			log.Warnf("Can't make sentry error tracker: %s", err)
		} else {
			trackers = append(trackers, t)
		}
	}

	switch len(trackers) {
	case 0:
		log.Infof("No error tracker is enabled, errors are only logged")
		return NewNopTracker()
	case 1:
		return trackers[0]
	}
	return Tee(trackers...)
}
