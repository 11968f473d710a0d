// Package assets decides which uploaded media files a moderation action
// frees, and releases them through a pluggable store (local disk or S3).
//
// Release is idempotent: a path that is already gone reports ErrNotFound,
// which callers treat as success.  Sentinel "default" paths are shared by
// every account and are never released.
package assets

import (
	"context"
	"errors"
	"path"
	"strings"

	"github.com/yanizio/sitewarden/internal/store"
)

// ErrNotFound is returned by a Store when the object is already gone.
var ErrNotFound = errors.New("asset not found")

// Store deletes one asset by its public path.
type Store interface {
	Release(ctx context.Context, path string) error
}

// IsDefault reports whether p is empty or points at a shared sentinel, i.e.
// any segment is "default" or starts with "default-", "default_", or
// "default.".
func IsDefault(p string) bool {
	p = strings.TrimSpace(p)
	if p == "" {
		return true
	}
	for _, seg := range strings.Split(p, "/") {
		seg = strings.ToLower(seg)
		if seg == "default" ||
			strings.HasPrefix(seg, "default-") ||
			strings.HasPrefix(seg, "default_") ||
			strings.HasPrefix(seg, "default.") {
			return true
		}
	}
	return false
}

// SiteAssets lists the releasable logo and cover paths of a site.
func SiteAssets(s store.Site) []string {
	return releasable(s.LogoPath, s.CoverPath)
}

// AccountAssets lists the releasable avatar of a and every releasable
// site asset of sites, avatar first.
func AccountAssets(a store.Account, sites []store.Site) []string {
	out := releasable(a.AvatarPath)
	for _, s := range sites {
		out = append(out, SiteAssets(s)...)
	}
	return out
}

func releasable(paths ...string) []string {
	var out []string
	for _, p := range paths {
		if !IsDefault(p) {
			out = append(out, p)
		}
	}
	return out
}

// objectKey maps a public path onto a store-relative key by dropping the
// public prefix and any leading slash.
func objectKey(p, publicPrefix string) string {
	p = path.Clean("/" + strings.TrimSpace(p))
	if publicPrefix != "" {
		pp := path.Clean("/" + publicPrefix)
		if p == pp {
			return ""
		}
		if strings.HasPrefix(p, pp+"/") {
			p = strings.TrimPrefix(p, pp)
		}
	}
	return strings.TrimPrefix(p, "/")
}
