package distlock

import (
	"sync"
	"time"

	"github.com/garyburd/redigo/redis"
	redsync "gopkg.in/redsync.v1"
)

// Mutex is satisfied by *redsync.Mutex.
type Mutex interface {
	Lock() error
	Unlock() bool

	// Extend resets the expiry of a held lock. Long runs call it between
	// units of work; false means the lock was lost.
	Extend() bool
}

type Factory interface {
	NewMutex(name string) Mutex
}

type RedsyncFactory struct {
	rs     *redsync.Redsync
	expiry time.Duration
}

func NewRedsyncFactory(pool *redis.Pool, expiry time.Duration) *RedsyncFactory {
	return &RedsyncFactory{
		rs:     redsync.New([]redsync.Pool{pool}),
		expiry: expiry,
	}
}

func (f RedsyncFactory) NewMutex(name string) Mutex {
	return f.rs.NewMutex(name, redsync.SetExpiry(f.expiry), redsync.SetTries(64),
		redsync.SetRetryDelay(250*time.Millisecond))
}

// LocalFactory serializes by name inside one process, used when redis isn't configured.
type LocalFactory struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewLocalFactory() *LocalFactory {
	return &LocalFactory{locks: map[string]*sync.Mutex{}}
}

func (f *LocalFactory) NewMutex(name string) Mutex {
	f.mu.Lock()
	defer f.mu.Unlock()

	m := f.locks[name]
	if m == nil {
		m = &sync.Mutex{}
		f.locks[name] = m
	}

	return localMutex{m: m}
}

type localMutex struct {
	m *sync.Mutex
}

func (lm localMutex) Lock() error {
	lm.m.Lock()
	return nil
}

func (lm localMutex) Unlock() bool {
	lm.m.Unlock()
	return true
}

func (lm localMutex) Extend() bool {
	return true
}
