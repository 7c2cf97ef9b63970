// Package cas implements the per-Build content cache.
package cas

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/zerr"
)

// Reporter receives the cache's non-fatal diagnostics.
type Reporter interface {
	Add(msg domain.Message) error
}

// RebuildFunc produces a fresh artifact on a cache miss.
type RebuildFunc func() (*domain.Artifact, error)

// blob is the on-disk shape of one cache file.
type blob struct {
	Data      map[string]any               `json:"data"`
	Snapshots map[string]domain.CacheEntry `json:"snapshots"`
}

// Cache is one (build, mode, stage) cache backed by a single JSON file.
type Cache struct {
	path        string
	build       string
	snapshotter ports.Snapshotter
	reporter    Reporter
	observer    ports.StageObserver

	mu      sync.Mutex
	data    map[string]any
	entries map[string]*domain.CacheEntry
}

// Open loads the cache of a build stage from dir. A missing file yields an empty cache.
func Open(
	dir, build string,
	mode domain.Mode,
	stage string,
	snapshotter ports.Snapshotter,
	reporter Reporter,
) (*Cache, error) {
	c := &Cache{
		path:        filepath.Join(dir, Filename(build, mode, stage)),
		build:       build,
		snapshotter: snapshotter,
		reporter:    reporter,
		data:        make(map[string]any),
		entries:     make(map[string]*domain.CacheEntry),
	}
	if err := c.load(); err != nil {
		return nil, zerr.With(err, "build", build)
	}
	return c, nil
}

// Filename returns the blob file name of a build stage: the sha256 of "build|mode|stage".
func Filename(build string, mode domain.Mode, stage string) string {
	hash := sha256.Sum256([]byte(build + "|" + string(mode) + "|" + stage))
	return hex.EncodeToString(hash[:]) + ".json"
}

// WithObserver records hit and miss statistics on obs.
func (c *Cache) WithObserver(obs ports.StageObserver) *Cache {
	c.observer = obs
	return c
}

// Path returns the backing file path.
func (c *Cache) Path() string {
	return c.path
}

func (c *Cache) load() error {
	//nolint:gosec // Path is constructed from trusted directory and hashed filename
	data, err := os.ReadFile(c.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return zerr.Wrap(err, domain.ErrStoreReadFailed.Error())
	}

	var stored blob
	if err := json.Unmarshal(data, &stored); err != nil {
		return zerr.Wrap(err, domain.ErrStoreUnmarshalFailed.Error())
	}

	if stored.Data != nil {
		c.data = stored.Data
	}
	for key, entry := range stored.Snapshots {
		if entry.Source == nil {
			continue
		}
		c.entries[key] = &entry
	}
	return nil
}

// Get returns a copy of the whole generic cache object.
func (c *Cache) Get() map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return maps.Clone(c.data)
}

// Set replaces the whole generic cache object.
func (c *Cache) Set(data map[string]any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = maps.Clone(data)
	if c.data == nil {
		c.data = make(map[string]any)
	}
}

// Save writes the cache to disk.
func (c *Cache) Save() error {
	c.mu.Lock()
	stored := blob{
		Data:      maps.Clone(c.data),
		Snapshots: make(map[string]domain.CacheEntry, len(c.entries)),
	}
	for key, entry := range c.entries {
		stored.Snapshots[key] = *entry
	}
	c.mu.Unlock()

	data, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return zerr.Wrap(err, domain.ErrStoreMarshalFailed.Error())
	}

	if err := os.MkdirAll(filepath.Dir(c.path), domain.DirPerm); err != nil {
		return zerr.Wrap(err, domain.ErrStoreCreateFailed.Error())
	}

	//nolint:gosec // Path is constructed from trusted directory and hashed filename
	if err := os.WriteFile(c.path, data, domain.FilePerm); err != nil {
		return zerr.Wrap(err, domain.ErrStoreWriteFailed.Error())
	}
	return nil
}

// CheckSnapshot returns the artifact cached for filePath under identifier when its snapshot
// still validates, and reports a hit. Otherwise it calls rebuild, snapshots the file and the
// artifact's dependencies, stores the result and reports a miss.
//
// Snapshot failures never fail the call: they are reported as warnings and treated as a miss.
// Only an error from rebuild is returned.
func (c *Cache) CheckSnapshot(filePath, identifier string, rebuild RebuildFunc) (*domain.Artifact, bool, error) {
	key := domain.CacheKey(filePath, identifier)

	c.mu.Lock()
	entry, ok := c.entries[key]
	c.mu.Unlock()

	if ok {
		valid, err := c.snapshotter.Validate(entry.Snapshot)
		switch {
		case err != nil:
			c.warn(domain.CodeSnapshotCheckFailed, "could not check snapshot of "+filePath, err)
		case valid:
			c.observe(true)
			return entry.Source, true, nil
		}
	}

	c.observe(false)

	artifact, err := rebuild()
	if err != nil {
		return nil, false, err
	}
	if artifact == nil {
		return nil, false, nil
	}

	paths := append([]string{filePath}, artifact.Dependencies...)
	snapshot, err := c.snapshotter.Capture(slices.Compact(paths))
	if err != nil {
		c.warn(domain.CodeSnapshotFailed, "could not snapshot "+filePath, err)
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return artifact, false, nil
	}

	c.mu.Lock()
	c.entries[key] = &domain.CacheEntry{Snapshot: snapshot, Source: artifact}
	c.mu.Unlock()

	return artifact, false, nil
}

// Len returns the number of snapshot entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) observe(hit bool) {
	if c.observer != nil {
		c.observer.ObserveCache(c.build, hit)
	}
}

func (c *Cache) warn(code domain.Code, text string, err error) {
	if c.reporter == nil {
		return
	}
	msg := domain.NewMessage(code, fmt.Sprintf("%s (cache miss)", text)).Because(err)
	_ = c.reporter.Add(msg)
}
