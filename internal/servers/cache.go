// Package servers keeps server profiles cached on local disk.
//
// A profile is fetched from BaseURL+filename the first time it is needed
// and written under Dir. Later runs reuse the cached file unless a
// refresh is requested.
//
// Author: Ing Muyleang (អុឹង មួយលៀង) — Ing_Muyleang
package servers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/MuyleangIng/Tahoe/internal/httpx"
)

// Cache stores server profiles in Dir.
type Cache struct {
	Dir     string
	BaseURL string
	Client  *httpx.Client
	Timeout time.Duration // per-request bound; zero means none
}

// Path returns the local path of filename inside the cache directory.
func (c *Cache) Path(filename string) string {
	return filepath.Join(c.Dir, filename)
}

// URL returns the remote location of filename.
func (c *Cache) URL(filename string) string {
	return c.BaseURL + filename
}

// Exists reports whether filename is already cached.
func (c *Cache) Exists(filename string) bool {
	_, err := os.Stat(c.Path(filename))
	return err == nil
}

// EnsurePresent returns the local path of filename, downloading it first
// if it is not cached. fetched reports whether a download happened.
func (c *Cache) EnsurePresent(ctx context.Context, filename string) (path string, fetched bool, err error) {
	path = c.Path(filename)
	if _, err := os.Stat(path); err == nil {
		return path, false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", false, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	if _, err := c.Refresh(ctx, filename); err != nil {
		return "", false, err
	}
	return path, true, nil
}

// Refresh downloads filename unconditionally and replaces the cached copy.
// The new content is staged in a temporary file so a failed download
// never truncates an existing profile.
func (c *Cache) Refresh(ctx context.Context, filename string) (string, error) {
	if filename == "" || strings.ContainsAny(filename, `/\`) {
		return "", fmt.Errorf("invalid profile filename %q", filename)
	}
	if err := os.MkdirAll(c.Dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", c.Dir, err)
	}

	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	url := c.URL(filename)
	resp, err := c.Client.Get(ctx, url)
	if err != nil {
		return "", fmt.Errorf("failed to download server configuration: %w", err)
	}
	defer resp.Body.Close()

	tmp, err := os.CreateTemp(c.Dir, "."+filename+"-*")
	if err != nil {
		return "", fmt.Errorf("failed to create server configuration: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to write server configuration: %w", err)
	}
	if err := tmp.Chmod(0644); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to write server configuration: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to write server configuration: %w", err)
	}

	path := c.Path(filename)
	if err := os.Rename(tmpName, path); err != nil {
		return "", fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return path, nil
}
