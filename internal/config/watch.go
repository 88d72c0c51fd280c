package config

import (
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/fermwise/farm-monitoring/internal/monitoring"
)

const reloadDebounce = 2 * time.Second

// WatchThresholds re-reads the band keys whenever CONFIG_FILE is written and
// hands the full record to apply. It reports false when no file is configured.
func WatchThresholds(apply func(monitoring.ThresholdPatch) error) bool {
	if viper.ConfigFileUsed() == "" {
		return false
	}

	var mu sync.Mutex
	var last time.Time
	viper.OnConfigChange(func(e fsnotify.Event) {
		if e.Op&fsnotify.Write != fsnotify.Write {
			return
		}
		mu.Lock()
		now := time.Now()
		if now.Sub(last) < reloadDebounce {
			mu.Unlock()
			return
		}
		last = now
		mu.Unlock()

		th := Thresholds()
		if err := apply(monitoring.FullPatch(th)); err != nil {
			log.Error().Err(err).Str("file", e.Name).Msg("threshold reload rejected")
			return
		}
		log.Info().Str("file", e.Name).Interface("thresholds", th).Msg("thresholds reloaded")
	})
	viper.WatchConfig()
	return true
}
