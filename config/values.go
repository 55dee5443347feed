package config

import (
	"fmt"
	"time"

	"github.com/user/eightball-blue/logger"
)

// Values holds the configuration values.
type Values struct {
	DeviceName    string `koanf:"device-name"`
	RSSIMin       int    `koanf:"rssi-min"`
	RSSIMax       int    `koanf:"rssi-max"`
	AnswerTimeout int    `koanf:"answer-timeout"`
	LogLevel      string `koanf:"log-level"`
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"device-name":    "Magic 8-Ball",
		"rssi-min":       -90,
		"rssi-max":       -20,
		"answer-timeout": 10,
		"log-level":      "info",
	}
}

// Timeout returns the answer timeout as a duration.
func (v Values) Timeout() time.Duration {
	return time.Duration(v.AnswerTimeout) * time.Second
}

func (v Values) validate() error {
	if v.DeviceName == "" {
		return fmt.Errorf("config: device-name must not be empty")
	}
	if v.RSSIMin > v.RSSIMax {
		return fmt.Errorf("config: rssi-min (%d) exceeds rssi-max (%d)", v.RSSIMin, v.RSSIMax)
	}
	if v.AnswerTimeout <= 0 {
		return fmt.Errorf("config: answer-timeout must be positive, got %d", v.AnswerTimeout)
	}
	switch v.LogLevel {
	case "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: unknown log-level %q", v.LogLevel)
	}
	return nil
}

// Apply pushes process-wide settings derived from the values.
func (v Values) Apply() {
	logger.SetLevel(logger.ParseLevel(v.LogLevel))
}
