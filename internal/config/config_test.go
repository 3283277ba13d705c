package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sigcore.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	path := writeFile(t, `
url = " wss://fabric.example.com/api "
token = "abc"
profile_id = "p1"
reattach = false
debug = true

[retry]
max_retries = 4
initial_delay = "250ms"
max_delay = "1s"

[media]
ice_servers = ["stun:stun.example.com:3478", " "]
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "wss://fabric.example.com/api", cfg.URL)
	assert.Equal(t, "abc", cfg.Token)
	assert.Equal(t, "p1", cfg.ProfileID)
	assert.False(t, cfg.Reattach)
	assert.True(t, cfg.Debug)
	assert.False(t, cfg.Production)
	assert.Equal(t, 4, cfg.Retry.MaxRetries)
	assert.Equal(t, 250*time.Millisecond, cfg.Retry.InitialDelay)
	assert.Equal(t, Default().Retry.Variation, cfg.Retry.Variation)
	assert.Equal(t, time.Second, cfg.Retry.MaxDelay)
	assert.Equal(t, []string{"stun:stun.example.com:3478"}, cfg.ICEServers)
	assert.NoError(t, cfg.Validate())
}

func TestLoadKeepsDefaults(t *testing.T) {
	cfg, err := Load(writeFile(t, `token = "t"`))
	require.NoError(t, err)

	want := Default()
	want.Token = "t"
	assert.Equal(t, want, cfg)
}

func TestLoadErrors(t *testing.T) {
	testCases := []struct {
		name string
		body string
	}{
		{"syntax", `url = `},
		{"bad duration", "[retry]\ninitial_delay = \"soon\""},
		{"unknown key", `colour = "blue"`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tc.body))
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		c := Default()
		c.URL = "wss://example.com/ws"
		c.Token = "tok"
		return c
	}

	testCases := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"missing url", func(c *Config) { c.URL = "" }, true},
		{"http url", func(c *Config) { c.URL = "https://example.com" }, true},
		{"missing token", func(c *Config) { c.Token = "" }, true},
		{"no attempts", func(c *Config) { c.Retry.MaxRetries = 0 }, true},
		{"negative delay", func(c *Config) { c.Retry.Variation = -1 }, true},
		{"initial above max", func(c *Config) { c.Retry.InitialDelay = 3 * time.Second }, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := valid()
			tc.mutate(&c)
			err := c.Validate()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNormalizeURL(t *testing.T) {
	testCases := []struct {
		raw     string
		want    string
		wantErr bool
	}{
		{"fabric.example.com", "wss://fabric.example.com", false},
		{"ws://localhost:8080/api", "ws://localhost:8080/api", false},
		{"http://localhost:8080", "ws://localhost:8080", false},
		{"https://fabric.example.com/api", "wss://fabric.example.com/api", false},
		{"  wss://x.example.com  ", "wss://x.example.com", false},
		{"wss://", "", true},
	}

	for _, tc := range testCases {
		t.Run(tc.raw, func(t *testing.T) {
			got, err := NormalizeURL(tc.raw)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}
