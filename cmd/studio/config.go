package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"ai-videos-backend/internal/poller"
)

const defaultAPIURL = "http://localhost:8080"

// studioConfig is read from ~/.config/ai-videos/studio.toml. Flags and the
// STUDIO_API_URL / STUDIO_API_KEY environment variables override it.
type studioConfig struct {
	APIURL       string `toml:"api_url"`
	APIKey       string `toml:"api_key"`
	PollInterval string `toml:"poll_interval"`

	pollInterval time.Duration
}

func defaultConfig() studioConfig {
	return studioConfig{
		APIURL:       defaultAPIURL,
		PollInterval: poller.DefaultInterval.String(),
	}
}

func defaultConfigPath() string {
	if base, ok := os.LookupEnv("XDG_CONFIG_HOME"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, "ai-videos", "studio.toml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".config", "ai-videos", "studio.toml")
	}
	return filepath.Join(home, ".config", "ai-videos", "studio.toml")
}

// loadConfig reads path, or the default location when path is empty. A
// missing default file is not an error; a missing explicit one is.
func loadConfig(path string) (studioConfig, error) {
	cfg := defaultConfig()

	explicit := strings.TrimSpace(path) != ""
	if !explicit {
		path = defaultConfigPath()
	}

	file, err := os.Open(path)
	switch {
	case err == nil:
		defer file.Close()
		if err := toml.NewDecoder(file).Decode(&cfg); err != nil {
			return studioConfig{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return studioConfig{}, fmt.Errorf("open config: %w", err)
	}

	if v := os.Getenv("STUDIO_API_URL"); v != "" {
		cfg.APIURL = v
	}
	if v := os.Getenv("STUDIO_API_KEY"); v != "" {
		cfg.APIKey = v
	}

	if err := cfg.normalize(); err != nil {
		return studioConfig{}, err
	}
	return cfg, nil
}

func (c *studioConfig) normalize() error {
	c.APIURL = strings.TrimRight(strings.TrimSpace(c.APIURL), "/")
	if c.APIURL == "" {
		c.APIURL = defaultAPIURL
	}
	c.pollInterval = poller.DefaultInterval
	if strings.TrimSpace(c.PollInterval) != "" {
		d, err := time.ParseDuration(c.PollInterval)
		if err != nil {
			return fmt.Errorf("poll_interval: %w", err)
		}
		if d <= 0 {
			return fmt.Errorf("poll_interval must be positive")
		}
		c.pollInterval = d
	}
	return nil
}
