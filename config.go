package main

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bwmarrin/lit"
	"github.com/kkyr/fig"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Accepted forms of last_date: RFC 3339 as written by persist, and the
// space separated YAML timestamps, with or without an offset
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02t15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999 Z07:00",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999 -0700",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// loadConfig reads and validates the YAML config file at path
func loadConfig(path string) (*config, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yml", ".yaml":
	default:
		return nil, errors.Errorf("loading %s: config file must be YAML, named *.yml or *.yaml", path)
	}

	var cfg config
	err := fig.Load(&cfg,
		fig.File(filepath.Base(path)),
		fig.Dirs(filepath.Dir(path)),
	)
	if err != nil {
		return nil, errors.Wrapf(err, "loading %s", path)
	}

	if cfg.LastDate, err = readLastDate(path); err != nil {
		return nil, errors.Wrapf(err, "loading %s", path)
	}

	if cfg.Interval != "" {
		if _, err = time.ParseDuration(cfg.Interval); err != nil {
			return nil, errors.Wrapf(err, "invalid interval %q", cfg.Interval)
		}
	}

	cfg.path = path
	return &cfg, nil
}

// readLastDate reads last_date on its own, fig only knows a single time layout
func readLastDate(path string) (time.Time, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return time.Time{}, err
	}

	var doc struct {
		LastDate string `yaml:"last_date"`
	}
	if err = yaml.Unmarshal(raw, &doc); err != nil {
		return time.Time{}, errors.Wrap(err, "decoding last_date")
	}

	return parseTimestamp(strings.TrimSpace(doc.LastDate))
}

// parseTimestamp parses a YAML timestamp. An empty string is the zero time.
func parseTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}

	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}

	return time.Time{}, errors.Errorf("invalid last_date %q", s)
}

func (c *config) interval() time.Duration {
	d, _ := time.ParseDuration(c.Interval)
	return d
}

// persist writes the whole config back to the file it was loaded from.
// The file is replaced with a rename so a crash never leaves it truncated.
func (c *config) persist() error {
	out, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "encoding config")
	}

	// A symlinked config stays a symlink, its target gets replaced
	target := c.path
	if resolved, err := filepath.EvalSymlinks(c.path); err == nil {
		target = resolved
	}

	mode := os.FileMode(0o600)
	if st, err := os.Stat(target); err == nil {
		mode = st.Mode().Perm()
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), "."+filepath.Base(target)+".*")
	if err != nil {
		return errors.Wrap(err, "creating temporary config")
	}
	defer os.Remove(tmp.Name())

	if _, err = tmp.Write(out); err != nil {
		_ = tmp.Close()
		return errors.Wrap(err, "writing temporary config")
	}
	if err = tmp.Chmod(mode); err != nil {
		_ = tmp.Close()
		return errors.Wrap(err, "setting config permissions")
	}
	if err = tmp.Close(); err != nil {
		return errors.Wrap(err, "closing temporary config")
	}

	if err = os.Rename(tmp.Name(), target); err != nil {
		return errors.Wrapf(err, "replacing %s", target)
	}

	lit.Debug("Saved %s with last_date %s", c.path, c.LastDate)
	return nil
}

// setLogLevel sets lit.LogLevel to the given value
func setLogLevel(level string) {
	switch strings.ToLower(level) {
	case "logerror", "error":
		lit.LogLevel = lit.LogError

	case "logwarning", "warning":
		lit.LogLevel = lit.LogWarning

	case "loginformational", "informational":
		lit.LogLevel = lit.LogInformational

	case "logdebug", "debug":
		lit.LogLevel = lit.LogDebug
	}
}
