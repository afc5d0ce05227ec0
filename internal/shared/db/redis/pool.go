package redis

import (
	"errors"
	"net/url"
	"time"

	"github.com/deliverykit/calsync/internal/shared/config"
	"github.com/garyburd/redigo/redis"
)

var ErrNotConfigured = errors.New("neither REDIS_URL nor REDIS_HOST is set")

// GetPool returns a pool for the lock backend. ErrNotConfigured means the
// caller should fall back to in-process locks.
func GetPool(cfg config.Config) (*redis.Pool, error) {
	redisURL, err := GetURL(cfg)
	if err != nil {
		return nil, err
	}

	return &redis.Pool{
		MaxIdle:     cfg.GetInt("REDIS_MAX_IDLE", 4),
		IdleTimeout: cfg.GetDuration("REDIS_IDLE_TIMEOUT", 4*time.Minute),
		TestOnBorrow: func(c redis.Conn, lastUsed time.Time) error {
			if time.Since(lastUsed) < time.Minute {
				return nil
			}
			_, err := c.Do("PING")
			return err
		},
		Dial: func() (redis.Conn, error) {
			return redis.DialURL(redisURL)
		},
	}, nil
}

func GetURL(cfg config.Config) (string, error) {
	if redisURL := cfg.GetString("REDIS_URL"); redisURL != "" {
		return redisURL, nil
	}

	host := cfg.GetString("REDIS_HOST")
	if host == "" {
		return "", ErrNotConfigured
	}

	u := url.URL{Scheme: "redis", Host: host}
	if password := cfg.GetString("REDIS_PASSWORD"); password != "" {
		u.User = url.UserPassword("h", password)
	}
	return u.String(), nil
}
