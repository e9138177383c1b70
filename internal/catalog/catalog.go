// Package catalog maps short server identifiers ("us", "vn") to the
// server profile filenames published under the profile base URL.
//
// The catalog is a closed table. Identifiers are matched exactly after
// trimming surrounding whitespace; there is no case folding.
//
// Author: Ing Muyleang (អុឹង មួយលៀង) — Ing_Muyleang
package catalog

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownServer is returned for identifiers not present in the catalog.
var ErrUnknownServer = errors.New("unknown server")

// DefaultServer is selected when nothing was entered and nothing was stored.
const DefaultServer = "us"

// Entry pairs a catalog identifier with its remote profile filename.
type Entry struct {
	ID       string
	Filename string
}

// Catalog is an ordered, immutable list of entries.
type Catalog []Entry

var builtin = [...]Entry{
	{ID: "us", Filename: "vpn-us.json"},
	{ID: "vn", Filename: "vpn-vn.json"},
}

// Builtin returns a copy of the built-in server list.
func Builtin() Catalog {
	c := make(Catalog, len(builtin))
	copy(c, builtin[:])
	return c
}

// IDs returns the identifiers in catalog order.
func (c Catalog) IDs() []string {
	ids := make([]string, 0, len(c))
	for _, e := range c {
		ids = append(ids, e.ID)
	}
	return ids
}

// Filename returns the profile filename for id.
// It fails with ErrUnknownServer when id is not in the catalog.
func (c Catalog) Filename(id string) (string, error) {
	id = strings.TrimSpace(id)
	for _, e := range c {
		if e.ID == id {
			return e.Filename, nil
		}
	}
	return "", fmt.Errorf("%w %q: valid servers are %s", ErrUnknownServer, id, strings.Join(c.IDs(), ", "))
}

// Select resolves the user's answer to the server prompt.
// Blank input falls back to stored, then to DefaultServer. Non-blank
// input is validated against the catalog.
func (c Catalog) Select(input, stored string) (id, filename string, err error) {
	id = strings.TrimSpace(input)
	if id == "" {
		id = strings.TrimSpace(stored)
	}
	if id == "" {
		id = DefaultServer
	}
	filename, err = c.Filename(id)
	if err != nil {
		return "", "", err
	}
	return id, filename, nil
}
