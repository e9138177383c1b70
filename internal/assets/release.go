// Release metadata from the GitHub "latest release" API.
//
// Author: Ing Muyleang (អុឹង មួយលៀង) — Ing_Muyleang
package assets

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

var (
	// ErrNoRelease is returned when the metadata lists no assets at all.
	ErrNoRelease = errors.New("no release metadata")

	// ErrNoAsset is returned when no asset matches both the OS and the architecture.
	ErrNoAsset = errors.New("no matching asset")
)

// Release is the subset of a GitHub release the launcher reads.
type Release struct {
	TagName string  `json:"tag_name"`
	Assets  []Asset `json:"assets"`
}

// Asset is a single downloadable release file.
type Asset struct {
	Name        string `json:"name"`
	DownloadURL string `json:"browser_download_url"`
	Size        int64  `json:"size"`
}

// Version returns the release tag as a normalised semantic version
// ("v1.9.0" becomes "1.9.0"). Tags that are not semver are returned as-is.
func (r *Release) Version() string {
	v, err := semver.NewVersion(r.TagName)
	if err != nil {
		return r.TagName
	}
	return v.String()
}

// SelectAsset returns the first asset whose name contains both goos and
// arch. No scoring is applied; list order decides.
func SelectAsset(assets []Asset, goos, arch string) (Asset, error) {
	for _, a := range assets {
		if !strings.Contains(a.Name, goos) {
			continue
		}
		if !strings.Contains(a.Name, arch) {
			continue
		}
		return a, nil
	}
	return Asset{}, fmt.Errorf("%w for %s/%s", ErrNoAsset, goos, arch)
}
