package checkin

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds every timing and sizing knob the engine uses. Values load
// from CHECKIN_* environment variables; the defaults are the production
// constants the door-scanning flow was tuned with.
type Config struct {
	HTTPTimeout         time.Duration `split_words:"true" default:"30s"`
	DuplicateScanWindow time.Duration `split_words:"true" default:"3s"`
	ValidationTimeout   time.Duration `split_words:"true" default:"5s"`
	ScanWatchdog        time.Duration `split_words:"true" default:"8s"`
	SuccessDismiss      time.Duration `split_words:"true" default:"2s"`
	SearchDebounce      time.Duration `split_words:"true" default:"500ms"`
	PageSize            int           `split_words:"true" default:"50"`
	ListCacheTTL        time.Duration `envconfig:"LIST_CACHE_TTL" default:"30s"`
	ValidationCacheTTL  time.Duration `envconfig:"VALIDATION_CACHE_TTL" default:"30s"`
	GroupBatchSize      int           `split_words:"true" default:"5"`
	ListRetries         int           `split_words:"true" default:"2"`
}

// LoadConfig reads CHECKIN_* overrides on top of the defaults.
func LoadConfig() (Config, error) {
	var c Config
	if err := envconfig.Process("checkin", &c); err != nil {
		return Config{}, err
	}
	return c, nil
}
