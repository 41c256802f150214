// Package config loads the service settings from the environment.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds every runtime setting.
type Config struct {
	KodiHost string
	KodiUser string
	KodiPass string

	Port          int
	CacheDir      string
	SessionTTL    time.Duration
	RemoteSchemes []string
	Debug         bool

	RPCTimeout    time.Duration
	FetchTimeout  time.Duration
	ProbeTimeout  time.Duration
	CheckInterval time.Duration
	WatchInterval time.Duration
	RenderTimeout time.Duration
}

// Load reads the configuration from the environment, applying defaults.
func Load() *Config {
	return &Config{
		KodiHost:      strings.TrimRight(env("KODI_HOST", "http://localhost:8080"), "/"),
		KodiUser:      env("KODI_USER", ""),
		KodiPass:      env("KODI_PASS", ""),
		Port:          envInt("NOWPLAYING_PORT", 5001),
		CacheDir:      env("NOWPLAYING_CACHE_DIR", os.TempDir()),
		SessionTTL:    envDuration("NOWPLAYING_SESSION_TTL", 30*time.Minute),
		RemoteSchemes: envList("NOWPLAYING_REMOTE_SCHEMES", []string{"nfs://", "smb://"}),
		Debug:         envBool("NOWPLAYING_DEBUG", false),
		RPCTimeout:    8 * time.Second,
		FetchTimeout:  5 * time.Second,
		ProbeTimeout:  3 * time.Second,
		CheckInterval: 10 * time.Second,
		WatchInterval: 2 * time.Second,
		RenderTimeout: time.Minute,
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	u, err := url.Parse(c.KodiHost)
	if err != nil {
		return fmt.Errorf("invalid KODI_HOST %q: %w", c.KodiHost, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid KODI_HOST %q: scheme must be http or https", c.KodiHost)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid KODI_HOST %q: missing host", c.KodiHost)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.CacheDir == "" {
		return errors.New("cache dir must not be empty")
	}
	return nil
}

// KodiHostname returns the host[:port] of KodiHost.
func (c *Config) KodiHostname() string {
	u, err := url.Parse(c.KodiHost)
	if err != nil {
		return ""
	}
	return u.Host
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

// envList splits a comma separated value, dropping blanks.
func envList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
