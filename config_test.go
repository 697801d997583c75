package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bwmarrin/lit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o640))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `username: bem
password: hunter2
feeds:
  - https://example.com/rss
  - https://example.org/feed.xml
use_posterous_hack: true
`)

	cfg, err := loadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "bem", cfg.Username)
	assert.Equal(t, "hunter2", cfg.Password)
	assert.Equal(t, []string{"https://example.com/rss", "https://example.org/feed.xml"}, cfg.Feeds)
	assert.True(t, cfg.UsePosterousHack)
	assert.True(t, cfg.LastDate.IsZero())
	assert.Equal(t, "http://www.livejournal.com/interface/xmlrpc", cfg.Server)
	assert.Equal(t, "informational", cfg.LogLevel)
	assert.Equal(t, path, cfg.path)
}

func TestLoadConfigRequiresCredentials(t *testing.T) {
	path := writeConfig(t, "feeds:\n  - https://example.com/rss\n")

	_, err := loadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfigRejectsBadInterval(t *testing.T) {
	path := writeConfig(t, `username: bem
password: hunter2
feeds:
  - https://example.com/rss
interval: often
`)

	_, err := loadConfig(path)
	assert.Error(t, err)
}

func TestPersistRoundTrip(t *testing.T) {
	path := writeConfig(t, `username: bem
password: hunter2
feeds:
  - https://example.com/rss
interval: 30m
`)

	cfg, err := loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 30*time.Minute, cfg.interval())

	last := time.Date(2008, time.May, 1, 12, 30, 15, 0, time.FixedZone("PDT", -7*3600))
	cfg.LastDate = last
	require.NoError(t, cfg.persist())

	st, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o640), st.Mode().Perm())

	saved, err := loadConfig(path)
	require.NoError(t, err)
	assert.True(t, saved.LastDate.Equal(last), "saved last_date is %s", saved.LastDate)
	assert.Equal(t, cfg.Username, saved.Username)
	assert.Equal(t, cfg.Password, saved.Password)
	assert.Equal(t, cfg.Feeds, saved.Feeds)
	assert.Equal(t, "30m", saved.Interval)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file left behind")
}

func TestSetLogLevel(t *testing.T) {
	prev := lit.LogLevel
	defer func() { lit.LogLevel = prev }()

	setLogLevel("Debug")
	assert.Equal(t, lit.LogDebug, lit.LogLevel)

	setLogLevel("warning")
	assert.Equal(t, lit.LogWarning, lit.LogLevel)

	setLogLevel("nonsense")
	assert.Equal(t, lit.LogWarning, lit.LogLevel)
}

func TestLoadConfigLastDateForms(t *testing.T) {
	pdt := time.FixedZone("PDT", -7*3600)

	for _, tc := range []struct {
		value string
		want  time.Time
	}{
		{"2008-05-01T12:30:00-07:00", time.Date(2008, time.May, 1, 12, 30, 0, 0, pdt)},
		{"2008-05-01 12:30:00.000000000 -07:00", time.Date(2008, time.May, 1, 12, 30, 0, 0, pdt)},
		{"2008-05-01 12:30:00 -07:00", time.Date(2008, time.May, 1, 12, 30, 0, 0, pdt)},
		{"2008-05-01 19:30:00.000000000 Z", time.Date(2008, time.May, 1, 19, 30, 0, 0, time.UTC)},
		{"2008-05-01 12:30:00.5 -0700", time.Date(2008, time.May, 1, 12, 30, 0, 500000000, pdt)},
		{"2008-05-01T19:30:00.123456789Z", time.Date(2008, time.May, 1, 19, 30, 0, 123456789, time.UTC)},
		{"2008-05-01 12:30:00", time.Date(2008, time.May, 1, 12, 30, 0, 0, time.Local)},
		{"2008-05-01", time.Date(2008, time.May, 1, 0, 0, 0, 0, time.Local)},
		{"~", time.Time{}},
		{"", time.Time{}},
	} {
		t.Run(tc.value, func(t *testing.T) {
			path := writeConfig(t, "username: bem\npassword: hunter2\nfeeds:\n  - https://example.com/rss\nlast_date: "+tc.value+"\n")

			cfg, err := loadConfig(path)
			require.NoError(t, err)
			if tc.want.IsZero() {
				assert.True(t, cfg.LastDate.IsZero(), "got %s", cfg.LastDate)
				return
			}
			assert.True(t, cfg.LastDate.Equal(tc.want), "got %s, want %s", cfg.LastDate, tc.want)
		})
	}
}

func TestLoadConfigRejectsBadLastDate(t *testing.T) {
	path := writeConfig(t, "username: bem\npassword: hunter2\nfeeds:\n  - https://example.com/rss\nlast_date: yesterday\n")

	_, err := loadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfigRequiresYAML(t *testing.T) {
	content := "username: bem\npassword: hunter2\nfeeds:\n  - https://example.com/rss\n"
	dir := t.TempDir()

	for _, name := range []string{"config", "config.json", "config.toml"} {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

		_, err := loadConfig(path)
		require.Error(t, err, name)
		assert.Contains(t, err.Error(), "must be YAML", name)
	}

	path := filepath.Join(dir, "config.YAML")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	_, err := loadConfig(path)
	assert.NoError(t, err)
}

func TestPersistKeepsSymlink(t *testing.T) {
	target := writeConfig(t, "username: bem\npassword: hunter2\nfeeds:\n  - https://example.com/rss\n")
	link := filepath.Join(t.TempDir(), "linked.yml")
	require.NoError(t, os.Symlink(target, link))

	cfg, err := loadConfig(link)
	require.NoError(t, err)

	last := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
	cfg.LastDate = last
	require.NoError(t, cfg.persist())

	st, err := os.Lstat(link)
	require.NoError(t, err)
	assert.True(t, st.Mode()&os.ModeSymlink != 0, "config is no longer a symlink")

	saved, err := loadConfig(target)
	require.NoError(t, err)
	assert.True(t, saved.LastDate.Equal(last), "saved last_date is %s", saved.LastDate)

	st, err = os.Stat(target)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o640), st.Mode().Perm())
}
