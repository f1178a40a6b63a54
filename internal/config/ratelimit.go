package config

import (
	"errors"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// RateLimitPolicy describes the token bucket applied to mutating routes.
type RateLimitPolicy struct {
	Rate  float64 `mapstructure:"rate"`
	Burst int     `mapstructure:"burst"`
}

type RateLimitPolicies struct {
	Generations RateLimitPolicy `mapstructure:"generations"`
	Records     RateLimitPolicy `mapstructure:"records"`
}

func DefaultRateLimitPolicies() RateLimitPolicies {
	return RateLimitPolicies{
		Generations: RateLimitPolicy{Rate: 1, Burst: 5},
		Records:     RateLimitPolicy{Rate: 2, Burst: 10},
	}
}

type RateLimitConfigHolder struct {
	current atomic.Value // holds RateLimitPolicies
}

// NewRateLimitConfigHolder reads ratelimit.yml when present and keeps it hot reloaded.
func NewRateLimitConfigHolder(log *zap.Logger) (*RateLimitConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("ratelimit")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/mergematrix")
	v.AddConfigPath(".")

	v.SetEnvPrefix("MERGEMATRIX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultRateLimitPolicies()
	v.SetDefault("ratelimit.generations.rate", defaults.Generations.Rate)
	v.SetDefault("ratelimit.generations.burst", defaults.Generations.Burst)
	v.SetDefault("ratelimit.records.rate", defaults.Records.Rate)
	v.SetDefault("ratelimit.records.burst", defaults.Records.Burst)

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileLoaded = false
	}

	var cfg RateLimitPolicies
	if err := v.UnmarshalKey("ratelimit", &cfg); err != nil {
		return nil, err
	}
	if err := validateRateLimitPolicies(cfg); err != nil {
		return nil, err
	}

	holder := NewStaticRateLimitConfigHolder(cfg)

	if fileLoaded {
		log := log.Named("config.ratelimit")
		log.Info("rate limit policies loaded", zap.String("file", v.ConfigFileUsed()))
		v.WatchConfig()
		v.OnConfigChange(func(e fsnotify.Event) {
			holder.reload(v, log, e.Name)
		})
	}

	return holder, nil
}

// reload keeps the previous policies when the changed file does not parse or validate.
func (h *RateLimitConfigHolder) reload(v *viper.Viper, log *zap.Logger, source string) bool {
	var updated RateLimitPolicies
	if err := v.UnmarshalKey("ratelimit", &updated); err != nil {
		log.Warn("rate limit reload failed", zap.String("file", source), zap.Error(err))
		return false
	}
	if err := validateRateLimitPolicies(updated); err != nil {
		log.Warn("invalid rate limit policies ignored", zap.String("file", source), zap.Error(err))
		return false
	}
	h.current.Store(updated)
	log.Info("rate limit policies reloaded",
		zap.String("file", source),
		zap.Float64("generations_rate", updated.Generations.Rate),
		zap.Int("generations_burst", updated.Generations.Burst),
		zap.Float64("records_rate", updated.Records.Rate),
		zap.Int("records_burst", updated.Records.Burst),
	)
	return true
}

// NewStaticRateLimitConfigHolder returns a holder that never reloads.
func NewStaticRateLimitConfigHolder(cfg RateLimitPolicies) *RateLimitConfigHolder {
	holder := &RateLimitConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func (h *RateLimitConfigHolder) Get() RateLimitPolicies {
	return h.current.Load().(RateLimitPolicies)
}

func validateRateLimitPolicies(cfg RateLimitPolicies) error {
	if cfg.Generations.Rate <= 0 || cfg.Generations.Burst <= 0 {
		return errors.New("ratelimit.generations must have positive rate and burst")
	}
	if cfg.Records.Rate <= 0 || cfg.Records.Burst <= 0 {
		return errors.New("ratelimit.records must have positive rate and burst")
	}
	return nil
}
