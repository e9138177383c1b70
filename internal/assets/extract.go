// Archive extraction for sing-box release assets.
//
// Only the executable is extracted: the first regular entry whose base
// name is "sing-box" or "sing-box.exe". Everything else in the archive
// is skipped.
//
// Author: Ing Muyleang (អុឹង មួយលៀង) — Ing_Muyleang
package assets

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
)

var (
	// ErrBinaryNotInArchive is returned when no archive entry is the executable.
	ErrBinaryNotInArchive = errors.New("sing-box executable not found in archive")

	// ErrUnsupportedArchive is returned for assets that are neither .tar.gz nor .zip.
	ErrUnsupportedArchive = errors.New("unsupported archive format")
)

// isBinaryEntry reports whether an archive entry name is the executable.
// Archive paths always use forward slashes.
func isBinaryEntry(name string) bool {
	base := path.Base(strings.ReplaceAll(name, `\`, "/"))
	return base == "sing-box" || base == "sing-box.exe"
}

// extractTarGz streams a gzip-compressed tarball and writes the
// executable entry to dst.
func extractTarGz(r io.Reader, dst string) error {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return fmt.Errorf("failed to open gzip stream: %w", err)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return ErrBinaryNotInArchive
		}
		if err != nil {
			return fmt.Errorf("failed to read tar entry: %w", err)
		}
		if hdr.Typeflag != tar.TypeReg || !isBinaryEntry(hdr.Name) {
			continue
		}
		return writeExecutable(dst, tr)
	}
}

// extractZip reads a zip archive of the given size and writes the
// executable entry to dst.
func extractZip(r io.ReaderAt, size int64, dst string) error {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return fmt.Errorf("failed to open zip archive: %w", err)
	}
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || !isBinaryEntry(f.Name) {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return fmt.Errorf("failed to open %s in zip: %w", f.Name, err)
		}
		err = writeExecutable(dst, rc)
		rc.Close()
		return err
	}
	return ErrBinaryNotInArchive
}

// writeExecutable copies r into a new file at dst.
func writeExecutable(dst string, r io.Reader) error {
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0755)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return fmt.Errorf("failed to write %s: %w", dst, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", dst, err)
	}
	return nil
}
