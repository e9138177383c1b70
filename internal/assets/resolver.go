// Package assets locates the sing-box executable, downloading the latest
// release for this OS and architecture when it is not available locally.
//
// Resolution order: an explicit path that exists, then PATH, then a
// download into BinDir.
//
// Author: Ing Muyleang (អុឹង មួយលៀង) — Ing_Muyleang
package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/MuyleangIng/Tahoe/internal/httpx"
	"github.com/MuyleangIng/Tahoe/internal/ui"
)

// BinaryName is the executable looked up on PATH.
const BinaryName = "sing-box"

// ExecutableName returns the platform file name of the executable.
func ExecutableName(goos string) string {
	if goos == "windows" {
		return BinaryName + ".exe"
	}
	return BinaryName
}

// Resolver finds or downloads the sing-box executable.
type Resolver struct {
	BinDir     string
	ReleaseURL string
	Client     *httpx.Client

	GOOS    string // defaults to runtime.GOOS
	Machine string // defaults to DetectMachine

	// LookPath defaults to exec.LookPath.
	LookPath func(file string) (string, error)

	MetadataTimeout time.Duration
	DownloadTimeout time.Duration

	Log *ui.Printer
}

func (r *Resolver) goos() string {
	if r.GOOS != "" {
		return r.GOOS
	}
	return runtime.GOOS
}

func (r *Resolver) log() *ui.Printer {
	if r.Log != nil {
		return r.Log
	}
	return ui.New(io.Discard)
}

// Target returns where a downloaded executable is written.
func (r *Resolver) Target() string {
	return filepath.Join(r.BinDir, ExecutableName(r.goos()))
}

// Resolve returns a path to the sing-box executable. An explicit path is
// returned unchanged when it exists; its executability is not checked.
func (r *Resolver) Resolve(ctx context.Context, explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err == nil {
			return explicit, nil
		}
		r.log().Warn("%s not found", explicit)
	}

	lookPath := r.LookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	if p, err := lookPath(BinaryName); err == nil {
		if abs, err := filepath.Abs(p); err == nil {
			p = abs
		}
		r.log().Success("%s found in PATH: %s", BinaryName, p)
		return p, nil
	}

	r.log().Step("%s not found in PATH, downloading...", BinaryName)
	return r.Download(ctx)
}

// Download fetches the latest release asset for this platform, extracts
// the executable into BinDir and returns its path. Any previous copy is
// removed first.
func (r *Resolver) Download(ctx context.Context) (string, error) {
	machine := r.Machine
	if machine == "" {
		machine = DetectMachine()
	}
	arch, err := ReleaseArch(machine)
	if err != nil {
		return "", err
	}
	goos := r.goos()

	release, err := r.fetchRelease(ctx)
	if err != nil {
		return "", err
	}
	asset, err := SelectAsset(release.Assets, goos, arch)
	if err != nil {
		return "", err
	}
	r.log().Step("Downloading %s %s (%s)...", BinaryName, release.Version(), asset.Name)

	if err := os.MkdirAll(r.BinDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", r.BinDir, err)
	}
	target := r.Target()
	if err := os.Remove(target); err != nil && !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("failed to remove old %s: %w", target, err)
	}

	if r.DownloadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.DownloadTimeout)
		defer cancel()
	}
	start := time.Now()
	n, err := r.fetchAsset(ctx, asset, target)
	if err != nil {
		return "", err
	}

	if goos != "windows" {
		if err := os.Chmod(target, 0755); err != nil {
			return "", fmt.Errorf("failed to mark %s executable: %w", target, err)
		}
	}
	r.log().Success("Installed %s (%s in %s)", target, ui.FormatBytes(n), ui.FormatDuration(time.Since(start)))
	return target, nil
}

func (r *Resolver) fetchRelease(ctx context.Context) (*Release, error) {
	if r.MetadataTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.MetadataTimeout)
		defer cancel()
	}
	var release Release
	if err := r.Client.GetJSON(ctx, r.ReleaseURL, &release); err != nil {
		return nil, fmt.Errorf("failed to get latest release: %w", err)
	}
	if len(release.Assets) == 0 {
		return nil, fmt.Errorf("%w at %s", ErrNoRelease, r.ReleaseURL)
	}
	return &release, nil
}

// fetchAsset downloads asset and extracts the executable to target.
// It returns the number of archive bytes received.
func (r *Resolver) fetchAsset(ctx context.Context, asset Asset, target string) (int64, error) {
	var extract func(io.Reader, *int64) error
	switch {
	case strings.Contains(asset.Name, ".tar.gz"):
		extract = func(body io.Reader, n *int64) error {
			cr := &countingReader{r: body}
			err := extractTarGz(cr, target)
			*n = cr.n
			return err
		}
	case strings.Contains(asset.Name, ".zip"):
		extract = func(body io.Reader, n *int64) error {
			return extractZipStream(body, target, n)
		}
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedArchive, asset.Name)
	}

	resp, err := r.Client.Get(ctx, asset.DownloadURL)
	if err != nil {
		return 0, fmt.Errorf("failed to download %s: %w", asset.Name, err)
	}
	defer resp.Body.Close()

	var n int64
	if err := extract(resp.Body, &n); err != nil {
		os.Remove(target)
		return n, fmt.Errorf("failed to extract %s: %w", asset.Name, err)
	}
	return n, nil
}

// extractZipStream buffers a zip download into a temporary file, since
// the zip directory sits at the end of the archive, then extracts it.
func extractZipStream(body io.Reader, target string, n *int64) error {
	tmp, err := os.CreateTemp("", "sing-box-*.zip")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	size, err := io.Copy(tmp, body)
	*n = size
	if err != nil {
		return fmt.Errorf("failed to buffer zip archive: %w", err)
	}
	return extractZip(tmp, size, target)
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
