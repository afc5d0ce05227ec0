package migration

import (
	"context"
	"fmt"
	"time"

	"github.com/deliverykit/calsync/internal/api/calendars"
	"github.com/deliverykit/calsync/internal/api/models"
	"github.com/deliverykit/calsync/internal/api/subsproviders"
	"github.com/deliverykit/calsync/internal/api/subsproviders/subsprovider"
	"github.com/deliverykit/calsync/internal/api/transform"
	"github.com/deliverykit/calsync/internal/shared/apperrors"
	"github.com/deliverykit/calsync/internal/shared/distlock"
	"github.com/deliverykit/calsync/internal/shared/logutil"
	"github.com/pkg/errors"
	uuid "github.com/satori/go.uuid"
)

const LockName = "calsync:subscriptions-migration"

// Runner creates provider subscriptions for every local calendar that has
// none yet. A failing calendar is recorded and the run goes on.
type Runner struct {
	store    calendars.Store
	provider subsprovider.Provider
	log      logutil.Log
	tracker  apperrors.Tracker
	now      func() time.Time
	lock     distlock.Mutex
}

func NewRunner(store calendars.Store, provider subsprovider.Provider,
	log logutil.Log, tracker apperrors.Tracker) *Runner {

	return &Runner{
		store:    store,
		provider: provider,
		log:      log,
		tracker:  tracker,
		now:      time.Now,
	}
}

func (r *Runner) WithClock(now func() time.Time) *Runner {
	r.now = now
	return r
}

// WithLock makes Run extend the held lock before every calendar and stop
// once the lock is lost.
func (r *Runner) WithLock(mu distlock.Mutex) *Runner {
	r.lock = mu
	return r
}

// Run returns an error only if nothing could be exported, ctx was cancelled
// or the lock was lost.
func (r Runner) Run(ctx context.Context) (*Report, error) {
	report := &Report{
		RunID:     uuid.NewV4().String(),
		StartedAt: r.now(),
	}
	log := logutil.WrapLogWithContext(r.log, logutil.Context{"run": report.RunID})

	cals, err := r.store.ExportCalendars(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to export calendars")
	}
	report.Exported = len(cals)
	log.Infof("Exported %d calendars", len(cals))

	for _, c := range cals {
		if err = ctx.Err(); err != nil {
			report.FinishedAt = r.now()
			return report, errors.Wrap(err, "migration interrupted")
		}
		if r.lock != nil && !r.lock.Extend() {
			report.FinishedAt = r.now()
			return report, errors.Errorf("lost %s lock, stopped before customer %s", LockName, c.CustomerID)
		}

		if c.IsMigrated() {
			log.Debugf("migration", "Calendar of customer %s already has subscription %s",
				c.CustomerID, c.ProviderSubscriptionID)
			report.Skipped = append(report.Skipped, c.CustomerID)
			continue
		}

		created, failure := r.migrateOne(ctx, c)
		if failure != nil {
			r.recordFailure(ctx, report.RunID, *failure)
			report.Failures = append(report.Failures, *failure)
			continue
		}

		log.Infof("Customer %s migrated to subscription %s", created.CustomerID, created.SubscriptionID)
		report.Created = append(report.Created, *created)
	}

	report.FinishedAt = r.now()
	log.Infof("Migration finished: %d created, %d skipped, %d failed",
		len(report.Created), len(report.Skipped), len(report.Failures))
	return report, nil
}

func (r Runner) migrateOne(ctx context.Context, c models.Calendar) (*Created, *Failure) {
	fail := func(stage models.MigrationStage, err error) (*Created, *Failure) {
		return nil, &Failure{CustomerID: c.CustomerID, Stage: stage, Err: err}
	}

	payload, err := transform.TransformSubscription(transform.RecordFromCalendar(c), r.now())
	if err != nil {
		return fail(models.MigrationStageTransform, err)
	}

	sub, err := r.provider.CreateSubscription(ctx, *payload)
	if err != nil {
		return fail(models.MigrationStageCreate, err)
	}

	n, err := r.store.SetProviderSubscriptionID(ctx, c.CustomerID, sub.ID)
	if err != nil {
		return fail(models.MigrationStageWriteBack, err)
	}
	if n == 0 {
		return fail(models.MigrationStageWriteBack,
			fmt.Errorf("calendar changed during migration, subscription %s is not linked", sub.ID))
	}

	return &Created{CustomerID: c.CustomerID, SubscriptionID: sub.ID}, nil
}

func (r Runner) recordFailure(ctx context.Context, runID string, f Failure) {
	r.log.Warnf("Migration failed for customer %s at %s: %s", f.CustomerID, f.Stage, f.Err)
	r.tracker.Track(apperrors.LevelError, "subscription migration failed", map[string]interface{}{
		"run_id":      runID,
		"customer_id": f.CustomerID,
		"stage":       string(f.Stage),
		"error":       f.Err.Error(),
	})

	mf := &models.MigrationFailure{
		RunID:      runID,
		CustomerID: f.CustomerID,
		Stage:      f.Stage,
		Error:      f.Err.Error(),
	}
	if err := r.store.CreateMigrationFailure(ctx, mf); err != nil {
		r.log.Errorf("Failed to save migration failure of customer %s: %s", f.CustomerID, err)
	}
}

type Deps struct {
	Store     calendars.Store
	Providers subsproviders.Factory
	Log       logutil.Log
	Tracker   apperrors.Tracker

	// Locks is optional, with it only one run at a time is allowed.
	Locks distlock.Factory
}

// Migrate is the one-shot entry point: it builds a provider client for the
// given credentials and migrates all calendars.
func Migrate(ctx context.Context, deps Deps, apiKey, shopURL string) (*Report, error) {
	provider, err := deps.Providers.Build(apiKey, shopURL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build provider client")
	}

	if deps.Locks != nil {
		mu := deps.Locks.NewMutex(LockName)
		if err = mu.Lock(); err != nil {
			return nil, errors.Wrap(err, "failed to acquire migration lock")
		}
		defer mu.Unlock()

		return NewRunner(deps.Store, provider, deps.Log, deps.Tracker).WithLock(mu).Run(ctx)
	}

	return NewRunner(deps.Store, provider, deps.Log, deps.Tracker).Run(ctx)
}
