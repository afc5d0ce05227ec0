package app

import (
	"github.com/deliverykit/calsync/internal/api/calendars"
	"github.com/deliverykit/calsync/internal/api/subsproviders"
	"github.com/deliverykit/calsync/internal/shared/apperrors"
	"github.com/deliverykit/calsync/internal/shared/config"
	"github.com/deliverykit/calsync/internal/shared/distlock"
	"github.com/deliverykit/calsync/internal/shared/logutil"
)

type Modifier func(a *App)

func SetProviderFactory(pf subsproviders.Factory) Modifier {
	return func(a *App) {
		a.providerFactory = pf
	}
}

func SetStore(s calendars.Store) Modifier {
	return func(a *App) {
		a.store = s
	}
}

func SetConfig(cfg config.Config) Modifier {
	return func(a *App) {
		a.cfg = cfg
	}
}

func SetLog(log logutil.Log) Modifier {
	return func(a *App) {
		a.log = log
	}
}

func SetErrTracker(t apperrors.Tracker) Modifier {
	return func(a *App) {
		a.errTracker = t
	}
}

func SetLocks(f distlock.Factory) Modifier {
	return func(a *App) {
		a.locks = f
	}
}
