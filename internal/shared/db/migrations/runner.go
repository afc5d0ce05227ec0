package migrations

import (
	"github.com/deliverykit/calsync/internal/shared/distlock"
	"github.com/deliverykit/calsync/internal/shared/logutil"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres" // pg driver for migrate
	_ "github.com/golang-migrate/migrate/v4/source/file"       // file:// source
	"github.com/pkg/errors"
)

// Runner applies migrations/*.sql. Instances started together serialize on
// the dist lock so only one of them migrates.
type Runner struct {
	distLock      distlock.Mutex
	log           logutil.Log
	dbConnString  string
	migrationsDir string
}

func NewRunner(distLock distlock.Mutex, log logutil.Log, dbConnString, migrationsDir string) *Runner {
	return &Runner{
		distLock:      distLock,
		log:           log,
		dbConnString:  dbConnString,
		migrationsDir: migrationsDir,
	}
}

func (r Runner) Run() error {
	if err := r.distLock.Lock(); err != nil {
		return errors.Wrap(err, "can't acquire db migrations lock")
	}
	defer r.distLock.Unlock()

	m, err := migrate.New("file://"+r.migrationsDir, r.dbConnString)
	if err != nil {
		return errors.Wrapf(err, "can't initialize migrations from %s", r.migrationsDir)
	}
	defer m.Close()

	before, _, _ := m.Version()
	if err = m.Up(); err != nil && err != migrate.ErrNoChange {
		return errors.Wrapf(err, "can't migrate db from version %d", before)
	}

	after, dirty, err := m.Version()
	if err != nil {
		return errors.Wrap(err, "can't get db schema version")
	}
	if dirty {
		return errors.Errorf("db schema version %d is dirty", after)
	}

	if after == before {
		r.log.Infof("DB schema is up to date at version %d", after)
	} else {
		r.log.Infof("Migrated DB schema from version %d to %d", before, after)
	}
	return nil
}
