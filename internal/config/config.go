// Package config holds the Tahoe launcher defaults and the persisted
// user configuration (config.json).
//
// Defaults come from Default(); ApplyEnv layers environment overrides on
// top, and the CLI layers its flags on top of that.
//
// Author: Ing Muyleang (អុឹង មួយលៀង) — Ing_Muyleang
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	// ReleaseURL is the GitHub "latest release" endpoint for sing-box.
	ReleaseURL = "https://api.github.com/repos/SagerNet/sing-box/releases/latest"

	// ServerBaseURL is the prefix every server profile filename is appended to.
	ServerBaseURL = "https://raw.githubusercontent.com/teppyboy/everything-v2ray/master/client/profile/sfa/"

	// UserAgent is sent with every request. GitHub rejects some default
	// client user agents, so a browser one is used.
	UserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/113.0.0.0 Safari/537.36"

	// FileName is the persisted configuration file, relative to Dir.
	FileName = "config.json"

	// BinDir holds a downloaded sing-box binary, relative to Dir.
	BinDir = "bin"

	// ServersDir holds cached server profiles, relative to Dir.
	ServersDir = "servers"

	// RefreshDelay is how long the supervised mode waits after spawn
	// before refreshing a server profile that was already cached.
	RefreshDelay = 5 * time.Second

	// MetadataTimeout bounds the release metadata and server profile requests.
	MetadataTimeout = 30 * time.Second

	// DownloadTimeout bounds the sing-box archive download.
	DownloadTimeout = 10 * time.Minute
)

// Mode selects how the launcher supervises the sing-box child.
type Mode string

const (
	// ModeSupervised waits for an interrupt, then terminates the child.
	// A cached profile is refreshed RefreshDelay after spawn.
	ModeSupervised Mode = "supervised"

	// ModeForeground waits for the child to exit on its own and
	// propagates its exit status.
	ModeForeground Mode = "foreground"
)

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeSupervised, ModeForeground:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("unknown mode %q: valid modes are %s and %s", s, ModeSupervised, ModeForeground)
	}
}

// Settings is the runtime configuration of a single launcher invocation.
type Settings struct {
	Dir           string // working directory holding config.json, bin/ and servers/
	ReleaseURL    string
	ServerBaseURL string
	UserAgent     string
	Mode          Mode
	RefreshDelay  time.Duration
}

// Default returns Settings rooted at the current working directory.
func Default() Settings {
	return Settings{
		Dir:           ".",
		ReleaseURL:    ReleaseURL,
		ServerBaseURL: ServerBaseURL,
		UserAgent:     UserAgent,
		Mode:          ModeSupervised,
		RefreshDelay:  RefreshDelay,
	}
}

// ApplyEnv overrides s with TAHOE_* environment variables when set.
func (s *Settings) ApplyEnv() error {
	if v := os.Getenv("TAHOE_DIR"); v != "" {
		s.Dir = v
	}
	if v := os.Getenv("TAHOE_RELEASE_URL"); v != "" {
		s.ReleaseURL = v
	}
	if v := os.Getenv("TAHOE_SERVER_URL"); v != "" {
		s.ServerBaseURL = v
	}
	if v := os.Getenv("TAHOE_MODE"); v != "" {
		m, err := ParseMode(v)
		if err != nil {
			return fmt.Errorf("TAHOE_MODE: %w", err)
		}
		s.Mode = m
	}
	return nil
}

// ConfigPath returns the path of config.json.
func (s Settings) ConfigPath() string { return filepath.Join(s.Dir, FileName) }

// BinPath returns the bin/ directory.
func (s Settings) BinPath() string { return filepath.Join(s.Dir, BinDir) }

// ServersPath returns the servers/ directory.
func (s Settings) ServersPath() string { return filepath.Join(s.Dir, ServersDir) }
