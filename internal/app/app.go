package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/deliverykit/calsync/internal/api/calendars"
	"github.com/deliverykit/calsync/internal/api/migration"
	"github.com/deliverykit/calsync/internal/api/reconcile"
	"github.com/deliverykit/calsync/internal/api/subsproviders"
	"github.com/deliverykit/calsync/internal/api/subsproviders/subsprovider"
	"github.com/deliverykit/calsync/internal/api/transport"
	"github.com/deliverykit/calsync/internal/api/transportutil"
	"github.com/deliverykit/calsync/internal/shared/apperrors"
	"github.com/deliverykit/calsync/internal/shared/config"
	"github.com/deliverykit/calsync/internal/shared/db/gormdb"
	"github.com/deliverykit/calsync/internal/shared/db/migrations"
	"github.com/deliverykit/calsync/internal/shared/db/redis"
	"github.com/deliverykit/calsync/internal/shared/distlock"
	"github.com/deliverykit/calsync/internal/shared/logutil"
	"github.com/gorilla/mux"
	"github.com/jinzhu/gorm"
	"github.com/pkg/errors"
	"github.com/urfave/negroni"
)

type App struct {
	cfg             config.Config
	log             logutil.Log
	trackedLog      logutil.Log
	errTracker      apperrors.Tracker
	gormDB          *gorm.DB
	store           calendars.Store
	providerFactory subsproviders.Factory
	locks           distlock.Factory
}

func (a *App) buildDeps() {
	if a.log == nil {
		slog := logutil.NewStderrLog("calsync")
		slog.SetLevel(logutil.LogLevelInfo)
		a.log = slog
	}

	if a.cfg == nil {
		a.cfg = config.NewViperConfig(a.log, nil)
	}

	if a.errTracker == nil {
		a.errTracker = apperrors.GetTracker(a.cfg, a.log, "calsync")
	}
	if a.trackedLog == nil {
		a.trackedLog = apperrors.WrapLogWithTracker(a.log, nil, a.errTracker)
	}

	if a.store == nil {
		if a.gormDB == nil {
			gormDB, err := gormdb.GetDB(a.cfg, a.trackedLog, "")
			if err != nil {
				a.log.Fatalf("Can't get DB: %s", err)
			}
			a.gormDB = gormDB
		}
		a.store = calendars.NewGormStore(a.gormDB)
	}

	if a.providerFactory == nil {
		a.providerFactory = subsproviders.NewBasicFactory(a.log, a.cfg)
	}

	if a.locks == nil {
		a.locks = a.buildLocks()
	}
}

func (a App) buildLocks() distlock.Factory {
	pool, err := redis.GetPool(a.cfg)
	if err != nil {
		if errors.Cause(err) == redis.ErrNotConfigured {
			a.log.Infof("Redis isn't configured, using in-process locks")
			return distlock.NewLocalFactory()
		}
		a.log.Fatalf("Can't get redis pool: %s", err)
	}

	return distlock.NewRedsyncFactory(pool, a.cfg.GetDuration("LOCK_EXPIRY", time.Minute))
}

func NewApp(modifiers ...Modifier) *App {
	a := App{}
	for _, m := range modifiers {
		m(&a)
	}
	a.buildDeps()

	return &a
}

func (a App) Log() logutil.Log {
	return a.log
}

func (a App) Close() {
	apperrors.Flush(a.errTracker)
	if a.gormDB != nil {
		if err := a.gormDB.Close(); err != nil {
			a.log.Warnf("Failed to close DB: %s", err)
		}
	}
}

func (a App) buildReconciler() (*reconcile.Reconciler, error) {
	provider, err := a.providerFactory.BuildDefault()
	if err != nil {
		return nil, errors.Wrap(err, "failed to build provider client")
	}

	return reconcile.NewReconciler(a.store, provider, a.log.Child("reconcile"), a.errTracker), nil
}

func (a App) GetHTTPHandler() (http.Handler, error) {
	rec, err := a.buildReconciler()
	if err != nil {
		return nil, err
	}

	r := mux.NewRouter()
	transport.RegisterHandlers(transportutil.HandlerRegContext{
		Router:     r,
		Log:        a.log.Child("http"),
		ErrTracker: a.errTracker,
		Locks:      a.locks,
	}, a.store, rec)

	n := negroni.Classic()
	n.UseFunc(transportutil.RequestContextMiddleware(a.log.Child("http")))
	n.UseHandler(r)
	return n, nil
}

func (a App) migrationsDir() string {
	if dir := a.cfg.GetString("MIGRATIONS_DIR"); dir != "" {
		return dir
	}

	wd, err := os.Getwd()
	if err != nil {
		a.log.Fatalf("Can't get working dir: %s", err)
	}
	return filepath.Join(wd, "migrations")
}

func (a App) RunDBMigrations() error {
	dbConnString, err := gormdb.GetDBConnString(a.cfg)
	if err != nil {
		return errors.Wrap(err, "can't get DB conn string")
	}

	r := migrations.NewRunner(a.locks.NewMutex("calsync:db-migrations"), a.trackedLog,
		dbConnString, a.migrationsDir())
	return r.Run()
}

func (a App) RunForever() {
	if a.cfg.GetBool("RUN_DB_MIGRATIONS", true) {
		if err := a.RunDBMigrations(); err != nil {
			a.log.Fatalf("Can't run migrations: %s", err)
		}
	}

	h, err := a.GetHTTPHandler()
	if err != nil {
		a.log.Fatalf("Can't build http handler: %s", err)
	}

	addr := fmt.Sprintf(":%d", a.cfg.GetInt("PORT", 3000))
	a.log.Infof("Listening on %s...", addr)
	if err := http.ListenAndServe(addr, h); err != nil {
		a.log.Errorf("Can't listen HTTP on %s: %s", addr, err)
		os.Exit(1)
	}
}

func (a App) MigrateSubscriptions(ctx context.Context, apiKey, shopURL string) (*migration.Report, error) {
	if apiKey == "" {
		apiKey = a.cfg.GetString("PROVIDER_API_KEY")
	}
	if shopURL == "" {
		shopURL = a.cfg.GetString("PROVIDER_SHOP_URL")
	}

	return migration.Migrate(ctx, migration.Deps{
		Store:     a.store,
		Providers: a.providerFactory,
		Log:       a.log.Child("migration"),
		Tracker:   a.errTracker,
		Locks:     a.locks,
	}, apiKey, shopURL)
}

func (a App) GetSubscription(ctx context.Context, id string) (*subsprovider.Subscription, error) {
	provider, err := a.providerFactory.BuildDefault()
	if err != nil {
		return nil, errors.Wrap(err, "failed to build provider client")
	}

	return provider.GetSubscription(ctx, id)
}
