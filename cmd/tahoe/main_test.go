// Tests for flag parsing, the interactive prompt and launch wiring.
//
// Author: Ing Muyleang (អុឹង មួយលៀង) — Ing_Muyleang
package main

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/MuyleangIng/Tahoe/internal/config"
	"github.com/MuyleangIng/Tahoe/internal/httpx"
	"github.com/MuyleangIng/Tahoe/internal/servers"
	"github.com/MuyleangIng/Tahoe/internal/ui"
)

func TestParseFlags_Defaults(t *testing.T) {
	settings := config.Default()
	opts, err := parseFlags(nil, &settings)
	if err != nil {
		t.Fatalf("parseFlags() error: %v", err)
	}
	if settings.Mode != config.ModeSupervised {
		t.Errorf("Mode = %q, want supervised", settings.Mode)
	}
	if opts.server != "" || opts.refresh || opts.list {
		t.Errorf("unexpected options: %+v", *opts)
	}
}

func TestParseFlags_Overrides(t *testing.T) {
	settings := config.Default()
	opts, err := parseFlags([]string{"-s", "vn", "--mode", "foreground", "--dir", "/tmp/tahoe", "-r"}, &settings)
	if err != nil {
		t.Fatalf("parseFlags() error: %v", err)
	}
	if opts.server != "vn" || !opts.refresh {
		t.Errorf("opts = %+v", *opts)
	}
	if settings.Mode != config.ModeForeground {
		t.Errorf("Mode = %q, want foreground", settings.Mode)
	}
	if settings.Dir != "/tmp/tahoe" {
		t.Errorf("Dir = %q", settings.Dir)
	}
}

func TestParseFlags_EnvDefaultKeptWithoutFlag(t *testing.T) {
	settings := config.Default()
	settings.Mode = config.ModeForeground

	if _, err := parseFlags(nil, &settings); err != nil {
		t.Fatalf("parseFlags() error: %v", err)
	}
	if settings.Mode != config.ModeForeground {
		t.Errorf("Mode = %q, env value should survive when no flag is given", settings.Mode)
	}
}

func TestParseFlags_BadMode(t *testing.T) {
	settings := config.Default()
	if _, err := parseFlags([]string{"--mode", "daemon"}, &settings); err == nil {
		t.Fatal("parseFlags() should reject unknown modes")
	}
}

func TestParseFlags_StrayArgument(t *testing.T) {
	settings := config.Default()
	if _, err := parseFlags([]string{"us"}, &settings); err == nil {
		t.Fatal("parseFlags() should reject positional arguments")
	}
}

func TestAsk(t *testing.T) {
	var out bytes.Buffer
	r := bufio.NewReader(strings.NewReader("  vn \nus\n"))
	p := ui.New(&out)

	for _, tt := range []struct {
		question, def, want string
	}{
		{"Select which server you want to connect to", "us", "vn"},
		{"again", "", "us"},
		{"eof", "", ""},
	} {
		got, err := ask(r, p, tt.question, tt.def)
		if err != nil {
			t.Fatalf("ask(%q) error: %v", tt.question, err)
		}
		if got != tt.want {
			t.Errorf("ask(%q) = %q, want %q", tt.question, got, tt.want)
		}
	}
	if !strings.Contains(out.String(), "[us]: ") {
		t.Errorf("prompt missing default: %q", out.String())
	}
}

func TestAsk_NoTrailingNewline(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("bin/sing-box"))
	got, err := ask(r, ui.New(&bytes.Buffer{}), "path", "")
	if err != nil || got != "bin/sing-box" {
		t.Errorf("ask() = %q, %v", got, err)
	}
}

type brokenReader struct{}

func (brokenReader) Read([]byte) (int, error) { return 0, errors.New("input/output error") }

func TestAsk_ReadError(t *testing.T) {
	r := bufio.NewReader(brokenReader{})
	if _, err := ask(r, ui.New(&bytes.Buffer{}), "Select which server you want to connect to", "us"); err == nil {
		t.Fatal("ask() should fail when stdin cannot be read")
	}
}

// newProfileCache returns a cache backed by an httptest server serving
// vpn-us.json, and a counter of requests.
func newProfileCache(t *testing.T) (*servers.Cache, *int64) {
	t.Helper()
	var hits int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
		if r.URL.Path != "/vpn-us.json" {
			http.NotFound(w, r)
			return
		}
		io.WriteString(w, `{"outbounds":[]}`)
	}))
	t.Cleanup(srv.Close)

	return &servers.Cache{
		Dir:     filepath.Join(t.TempDir(), "servers"),
		BaseURL: srv.URL + "/",
		Client:  httpx.New("test"),
	}, &hits
}

func TestLaunch_RefreshScheduling(t *testing.T) {
	tests := []struct {
		name           string
		cached         bool
		refresh        bool
		wantHits       int64
		wantBackground bool
	}{
		{"cached", true, false, 0, true},
		{"cached with --refresh", true, true, 1, false},
		{"missing", false, false, 1, false},
		{"missing with --refresh", false, true, 1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			cache, hits := newProfileCache(t)
			if tt.cached {
				if err := os.MkdirAll(cache.Dir, 0o755); err != nil {
					t.Fatal(err)
				}
				if err := os.WriteFile(cache.Path("vpn-us.json"), []byte("{}"), 0o644); err != nil {
					t.Fatal(err)
				}
			}
			out := ui.New(io.Discard)

			profile, fresh, err := prepareProfile(ctx, cache, "vpn-us.json", tt.refresh, out)
			if err != nil {
				t.Fatalf("prepareProfile() error: %v", err)
			}
			if got := atomic.LoadInt64(hits); got != tt.wantHits {
				t.Errorf("HTTP requests before launch = %d, want %d", got, tt.wantHits)
			}

			settings := config.Default()
			sup := newSupervisor(settings, &config.Config{Bin: "sing-box", Server: "us"}, cache, "vpn-us.json", fresh, out)
			if sup.ConfigPath != profile {
				t.Errorf("ConfigPath = %q, want %q", sup.ConfigPath, profile)
			}
			if got := sup.Refresh != nil; got != tt.wantBackground {
				t.Fatalf("background refresh scheduled = %v, want %v", got, tt.wantBackground)
			}
			if !tt.wantBackground {
				return
			}
			if sup.RefreshDelay != settings.RefreshDelay {
				t.Errorf("RefreshDelay = %v, want %v", sup.RefreshDelay, settings.RefreshDelay)
			}
			if err := sup.Refresh(ctx); err != nil {
				t.Fatalf("Refresh() error: %v", err)
			}
			if got := atomic.LoadInt64(hits); got != 1 {
				t.Errorf("HTTP requests after background refresh = %d, want 1", got)
			}
		})
	}
}

func TestRun_FailedSetupWritesNoConfig(t *testing.T) {
	release := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"tag_name":"v1.12.0","assets":[]}`)
	}))
	defer release.Close()

	dir := t.TempDir()
	t.Setenv("TAHOE_DIR", dir)
	t.Setenv("TAHOE_RELEASE_URL", release.URL)
	t.Setenv("TAHOE_SERVER_URL", "http://127.0.0.1:1/")
	t.Setenv("TAHOE_MODE", "")
	t.Setenv("PATH", t.TempDir())

	err := run([]string{"--bin", filepath.Join(dir, "missing", "sing-box"), "--server", "us"})
	if err == nil {
		t.Fatal("run() should fail when sing-box cannot be found or downloaded")
	}
	if _, err := os.Stat(filepath.Join(dir, config.FileName)); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("config.json should not exist after a failed setup, stat error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, config.BinDir)); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("bin/ should not exist after a failed setup, stat error: %v", err)
	}
}
