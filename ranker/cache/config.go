package cache

import (
	"fmt"
	"io"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/juju/clock"
	"github.com/sirupsen/logrus"
)

// Config encapsulates the settings for configuring the ranking cache.
type Config struct {
	// Maximum number of cached rankings. The least recently used entry is
	// evicted when the cache is full. Defaults to 3000.
	MaxEntries int

	// Time an entry stays valid after it was computed, regardless of how
	// often it is read. Defaults to 30 minutes.
	TTL time.Duration

	// A clock instance for checking entry expiry. If not specified, the
	// default wall-clock will be used instead.
	Clock clock.Clock

	// The logger to use. If not defined an output-discarding logger will
	// be used instead.
	Logger *logrus.Entry
}

func (cfg *Config) validate() error {
	var err error

	if cfg.MaxEntries == 0 {
		cfg.MaxEntries = 3000
	} else if cfg.MaxEntries < 0 {
		err = multierror.Append(err, fmt.Errorf("invalid value for max entries"))
	}

	if cfg.TTL == 0 {
		cfg.TTL = 30 * time.Minute
	} else if cfg.TTL < 0 {
		err = multierror.Append(err, fmt.Errorf("invalid value for TTL"))
	}

	if cfg.Clock == nil {
		cfg.Clock = clock.WallClock
	}

	if cfg.Logger == nil {
		cfg.Logger = logrus.NewEntry(&logrus.Logger{Out: io.Discard})
	}

	return err
}
