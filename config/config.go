// Package config loads eightball-blue's configuration from an hjson file
// layered under command-line flags.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/knadh/koanf/parsers/hjson"
	"github.com/knadh/koanf/providers/cliflagv2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/urfave/cli/v2"
)

const configFile = "eightball.conf"

// defaultConfig seeds the config file on first run.
const defaultConfig = `{
  // Advertised / local display name.
  device-name: Magic 8-Ball

  // Inclusive RSSI acceptance range for scan results (dBm).
  rssi-min: -90
  rssi-max: -20

  // Seconds to wait for an answer notification.
  answer-timeout: 10

  // trace, debug, info, warn or error.
  log-level: info
}
`

// Config describes the configuration for the app.
type Config struct {
	path string

	Values Values
}

// NewConfig returns a new configuration.
func NewConfig() *Config {
	return &Config{}
}

// SetPath points the configuration at an explicit file instead of the
// default location.
func (c *Config) SetPath(path string) {
	c.path = path
}

// Load layers defaults, the configuration file and the command-line flags
// into the values. A nil cliCtx skips the flag layer.
func (c *Config) Load(k *koanf.Koanf, cliCtx *cli.Context) error {
	if c.path == "" {
		path, err := c.defaultFilePath()
		if err != nil {
			return err
		}
		c.path = path
	}

	for key, value := range defaults() {
		k.Set(key, value)
	}

	if err := k.Load(file.Provider(c.path), hjson.Parser()); err != nil {
		return fmt.Errorf("config: load %s: %w", c.path, err)
	}

	if cliCtx != nil {
		if err := c.loadFlags(k, cliCtx); err != nil {
			return err
		}
	}

	if err := k.UnmarshalWithConf("", &c.Values, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return fmt.Errorf("config: unmarshal: %w", err)
	}

	return c.Values.validate()
}

// loadFlags overlays command-line flags onto the values. The cliflagv2
// provider nests flag values under the command lineage (app-name.flag-name),
// so the app-level subtree is folded back onto the top-level keys — and only
// for flags the user actually set, so an untouched flag never clobbers a
// file value with its zero default.
func (c *Config) loadFlags(k *koanf.Koanf, cliCtx *cli.Context) error {
	flags := koanf.New(".")
	if err := flags.Load(cliflagv2.Provider(cliCtx, "."), nil); err != nil {
		return fmt.Errorf("config: load flags: %w", err)
	}

	sub := flags.Cut(cliCtx.App.Name)
	for _, name := range cliCtx.FlagNames() {
		if cliCtx.IsSet(name) && sub.Exists(name) {
			k.Set(name, sub.Get(name))
		}
	}
	return nil
}

// defaultFilePath probes for the config file under the user's config
// directory, seeding it with commented defaults on first run.
func (c *Config) defaultFilePath() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("config: no config directory: %w", err)
	}

	dir := filepath.Join(base, "eightball")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("config: create %s: %w", dir, err)
	}

	path := filepath.Join(dir, configFile)
	if _, err := os.Stat(path); err != nil {
		if err := os.WriteFile(path, []byte(defaultConfig), 0o644); err != nil {
			return "", fmt.Errorf("config: seed %s: %w", path, err)
		}
	}
	return path, nil
}
