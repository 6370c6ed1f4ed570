/*
	lock package provides a redis backed mutex that allows a single
	application instance at a time to run a PageRank pass. The lock expires
	on its own if the holder dies, and a holder can only release a lock it
	still owns.
*/

package lock

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// ErrNotHeld is returned by Unlock when the lock is not held by the caller.
var ErrNotHeld = errors.New("lock not held")

// Deletes the key only if it still stores our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Client is the subset of the redis client API used by RedisLock.
type Client interface {
	redis.Scripter
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
}

// Config defines configurations for a RedisLock.
type Config struct {
	// Redis client used to store the lock.
	Client Client

	// Key under which the lock is stored.
	Key string

	// Expiry of an acquired lock. It must exceed the duration of the
	// guarded work.
	TTL time.Duration

	// The logger to use. If not defined an output-discarding logger will
	// be used instead.
	Logger *logrus.Entry
}

func (config *Config) validate() error {
	var err error

	if config.Client == nil {
		err = multierror.Append(err, fmt.Errorf("redis client not provided"))
	}

	if config.Key == "" {
		err = multierror.Append(err, fmt.Errorf("lock key not provided"))
	}

	if config.TTL <= 0 {
		err = multierror.Append(err, fmt.Errorf("invalid value for lock TTL"))
	}

	if config.Logger == nil {
		config.Logger = logrus.NewEntry(&logrus.Logger{Out: io.Discard})
	}

	return err
}

// RedisLock is a lease based lock stored in redis with SET NX PX.
type RedisLock struct {
	config Config

	mu    sync.Mutex
	token string
}

// New creates and returns a RedisLock instance.
func New(config Config) (*RedisLock, error) {
	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("redis lock: config validation failed: %w", err)
	}

	return &RedisLock{config: config}, nil
}

// TryLock attempts to acquire the lock without blocking. It reports
// whether the lock was acquired.
func (l *RedisLock) TryLock(ctx context.Context) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	token := uuid.NewString()

	ok, err := l.config.Client.SetNX(ctx, l.config.Key, token, l.config.TTL).Result()
	if err != nil {
		return false, fmt.Errorf("try lock: %w", err)
	}

	if !ok {
		l.config.Logger.WithField("key", l.config.Key).Debug("lock held by another instance")
		return false, nil
	}

	l.token = token

	return true, nil
}

// Unlock releases a lock previously acquired by TryLock.
func (l *RedisLock) Unlock(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.token == "" {
		return fmt.Errorf("unlock: %w", ErrNotHeld)
	}

	token := l.token
	l.token = ""

	deleted, err := releaseScript.Run(ctx, l.config.Client, []string{l.config.Key}, token).Int()
	if err != nil {
		return fmt.Errorf("unlock: %w", err)
	}

	if deleted == 0 {
		// The lease expired and somebody else may hold the lock now.
		return fmt.Errorf("unlock: %w", ErrNotHeld)
	}

	return nil
}
