// Package cache stores podspec metadata between installer runs.
//
// Podspec lookups dominate an install: every pod in the tree costs a CDN
// round trip or a `pod spec cat` subprocess. [FileCache] keeps the raw
// responses on disk under the user cache directory so repeated installs of
// the same Podfile resolve offline.
//
// Keys are opaque strings built with [Key]; [FileCache] hashes them before
// touching the filesystem, so pod names never become paths.
package cache

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Cache is a byte-oriented key/value store with per-entry TTL.
type Cache interface {
	// Get returns the cached value and true on a hit. Expired or corrupt
	// entries are reported as a miss.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl of 0 never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	Close() error
}

// DefaultTTL is how long podspec metadata is trusted. Published podspec
// versions are immutable, but the version index grows as pods are released.
const DefaultTTL = 24 * time.Hour

// Key joins a namespace and its parts into a cache key:
//
//	cache.Key("cdn", "index", "a/b/c")  // "cdn:index:a/b/c"
func Key(namespace string, parts ...string) string {
	return namespace + ":" + strings.Join(parts, ":")
}

// DefaultDir returns the podkit cache directory: $XDG_CACHE_HOME/podkit when
// set, otherwise ~/.cache/podkit.
func DefaultDir() (string, error) {
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return filepath.Join(xdg, "podkit"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", "podkit"), nil
}
