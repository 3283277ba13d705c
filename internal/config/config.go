// Package config holds the client configuration: defaults, the TOML file
// format and validation.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Retry parameterizes the backoff applied to call actions.
type Retry struct {
	MaxRetries   int
	InitialDelay time.Duration
	Variation    time.Duration
	MaxDelay     time.Duration
}

// Config stores every parameter gathered from the file, flags and prompts.
type Config struct {
	URL        string // signaling WebSocket URL
	Token      string
	ProfileID  string
	Reattach   bool
	Production bool
	Debug      bool
	StorePath  string // resumption store; empty keeps state in memory

	Retry      Retry
	ICEServers []string
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Reattach: true,
		Retry: Retry{
			MaxRetries:   10,
			InitialDelay: 100 * time.Millisecond,
			Variation:    100 * time.Millisecond,
			MaxDelay:     2 * time.Second,
		},
	}
}

type fileConfig struct {
	URL        string    `toml:"url"`
	Token      string    `toml:"token"`
	ProfileID  string    `toml:"profile_id"`
	Reattach   bool      `toml:"reattach"`
	Production bool      `toml:"production"`
	Debug      bool      `toml:"debug"`
	StorePath  string    `toml:"store_path"`
	Retry      fileRetry `toml:"retry"`
	Media      fileMedia `toml:"media"`
}

type fileRetry struct {
	MaxRetries   int    `toml:"max_retries"`
	InitialDelay string `toml:"initial_delay"`
	Variation    string `toml:"variation"`
	MaxDelay     string `toml:"max_delay"`
}

type fileMedia struct {
	ICEServers []string `toml:"ice_servers"`
}

// Load reads path over Default. Keys absent from the file keep their
// default value.
func Load(path string) (Config, error) {
	cfg := Default()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("load config: unknown key %q", undecoded[0].String())
	}

	if meta.IsDefined("url") {
		cfg.URL = strings.TrimSpace(raw.URL)
	}
	if meta.IsDefined("token") {
		cfg.Token = strings.TrimSpace(raw.Token)
	}
	if meta.IsDefined("profile_id") {
		cfg.ProfileID = strings.TrimSpace(raw.ProfileID)
	}
	if meta.IsDefined("reattach") {
		cfg.Reattach = raw.Reattach
	}
	if meta.IsDefined("production") {
		cfg.Production = raw.Production
	}
	if meta.IsDefined("debug") {
		cfg.Debug = raw.Debug
	}
	if meta.IsDefined("store_path") {
		cfg.StorePath = strings.TrimSpace(raw.StorePath)
	}

	if meta.IsDefined("retry", "max_retries") {
		cfg.Retry.MaxRetries = raw.Retry.MaxRetries
	}
	durations := []struct {
		key string
		raw string
		dst *time.Duration
	}{
		{"initial_delay", raw.Retry.InitialDelay, &cfg.Retry.InitialDelay},
		{"variation", raw.Retry.Variation, &cfg.Retry.Variation},
		{"max_delay", raw.Retry.MaxDelay, &cfg.Retry.MaxDelay},
	}
	for _, d := range durations {
		if !meta.IsDefined("retry", d.key) {
			continue
		}
		v, err := time.ParseDuration(strings.TrimSpace(d.raw))
		if err != nil {
			return Config{}, fmt.Errorf("parse retry.%s: %w", d.key, err)
		}
		*d.dst = v
	}

	if meta.IsDefined("media", "ice_servers") {
		cfg.ICEServers = normalizeList(raw.Media.ICEServers)
	}

	return cfg, nil
}

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	if c.URL == "" {
		return errors.New("missing url")
	}
	u, err := url.Parse(c.URL)
	if err != nil || u.Host == "" || (u.Scheme != "ws" && u.Scheme != "wss") {
		return fmt.Errorf("invalid url %q: must be ws:// or wss://", c.URL)
	}
	if c.Token == "" {
		return errors.New("missing token")
	}
	if c.Retry.MaxRetries < 1 {
		return fmt.Errorf("retry.max_retries must be at least 1, got %d", c.Retry.MaxRetries)
	}
	if c.Retry.InitialDelay < 0 || c.Retry.Variation < 0 || c.Retry.MaxDelay < 0 {
		return errors.New("retry delays must not be negative")
	}
	if c.Retry.InitialDelay > c.Retry.MaxDelay {
		return fmt.Errorf("retry.initial_delay %v exceeds retry.max_delay %v", c.Retry.InitialDelay, c.Retry.MaxDelay)
	}
	return nil
}

// NormalizeURL validates raw and returns it as a WebSocket URL. Bare hosts
// default to wss.
func NormalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if !strings.Contains(raw, "://") {
		raw = "wss://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("invalid WebSocket URL: %s", raw)
	}
	switch u.Scheme {
	case "ws", "wss":
	case "http":
		u.Scheme = "ws"
	default:
		u.Scheme = "wss"
	}
	return u.String(), nil
}

func normalizeList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if v := strings.TrimSpace(s); v != "" {
			out = append(out, v)
		}
	}
	return out
}
