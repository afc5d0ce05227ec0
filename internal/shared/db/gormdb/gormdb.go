package gormdb

import (
	"net/url"
	"strings"
	"time"

	"github.com/deliverykit/calsync/internal/shared/config"
	"github.com/deliverykit/calsync/internal/shared/logutil"
	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/postgres" // init pg driver
	"github.com/pkg/errors"
)

// GetDBConnString returns a postgres:// URL from DATABASE_URL or from the
// DATABASE_{HOST,USERNAME,PASSWORD,NAME,SSLMODE} parts.
func GetDBConnString(cfg config.Config) (string, error) {
	if dbURL := cfg.GetString("DATABASE_URL"); dbURL != "" {
		// heroku style urls use the postgresql scheme, gorm knows only postgres
		if strings.HasPrefix(dbURL, "postgresql://") {
			dbURL = "postgres://" + strings.TrimPrefix(dbURL, "postgresql://")
		}
		return dbURL, nil
	}

	host := cfg.GetString("DATABASE_HOST")
	username := cfg.GetString("DATABASE_USERNAME")
	name := cfg.GetString("DATABASE_NAME")
	if host == "" || username == "" || name == "" {
		return "", errors.New("no DATABASE_URL or DATABASE_{HOST,USERNAME,NAME} in config")
	}

	sslMode := cfg.GetString("DATABASE_SSLMODE")
	if sslMode == "" {
		sslMode = "disable"
	}

	u := url.URL{
		Scheme:   "postgres",
		Host:     host,
		Path:     "/" + name,
		RawQuery: url.Values{"sslmode": {sslMode}}.Encode(),
	}
	if password := cfg.GetString("DATABASE_PASSWORD"); password != "" {
		u.User = url.UserPassword(username, password)
	} else {
		u.User = url.User(username)
	}
	return u.String(), nil
}

// redact hides the password of a connection URL for logging.
func redact(connString string) string {
	u, err := url.Parse(connString)
	if err != nil || u.User == nil {
		return connString
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "xxxxx")
	}
	return u.String()
}

func GetDB(cfg config.Config, log logutil.Log, connString string) (*gorm.DB, error) {
	if connString == "" {
		var err error
		if connString, err = GetDBConnString(cfg); err != nil {
			return nil, err
		}
	}

	isDebug := cfg.GetBool("DEBUG_DB", false)
	if isDebug {
		log.Infof("Connecting to database %s", redact(connString))
	}

	adapter := strings.SplitN(connString, "://", 2)[0]
	db, err := gorm.Open(adapter, connString)
	if err != nil {
		return nil, errors.Wrapf(err, "can't open %s db connection", adapter)
	}

	db.DB().SetMaxOpenConns(cfg.GetInt("DATABASE_MAX_OPEN_CONNS", 10))
	db.DB().SetConnMaxLifetime(cfg.GetDuration("DATABASE_CONN_MAX_LIFETIME", 30*time.Minute))
	if isDebug {
		db = db.Debug()
	}
	db.SetLogger(logger{log: log.Child("db")})

	return db, nil
}
