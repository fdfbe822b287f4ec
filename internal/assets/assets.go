// Package assets handles game asset loading and caching.
package assets

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/text/cases"

	"github.com/Faultbox/follower-catcher/internal/logger"
)

// ErrNotFound is returned when no root contains the requested file.
var ErrNotFound = errors.New("asset not found")

// Source provides raw asset bytes by slash-separated path.
type Source interface {
	Load(name string) ([]byte, error)
}

var fold = cases.Fold()

// Manager loads files from an ordered list of content roots.
// Roots are searched in reverse order (last added = highest priority).
// Lookups fall back to a case-insensitive match so content authored on
// case-insensitive filesystems resolves everywhere.
type Manager struct {
	roots []fs.FS
	cache *Cache
	mu    sync.RWMutex
	log   *zap.Logger
}

// NewManager creates a new asset manager.
func NewManager() *Manager {
	return &Manager{
		cache: NewCache(),
		log:   logger.Named("assets"),
	}
}

// AddDir adds a directory on disk as a content root.
func (m *Manager) AddDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("opening content root %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("content root %s is not a directory", dir)
	}
	m.AddFS(os.DirFS(dir))
	m.log.Debug("content root added", zap.String("dir", dir))
	return nil
}

// AddFS adds a file system as a content root.
func (m *Manager) AddFS(fsys fs.FS) {
	m.mu.Lock()
	m.roots = append(m.roots, fsys)
	m.mu.Unlock()
}

// Load returns the contents of name from the highest priority root.
func (m *Manager) Load(name string) ([]byte, error) {
	name = cleanPath(name)
	key := fold.String(name)

	if data, ok := m.cache.Get(key); ok {
		return data, nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	for i := len(m.roots) - 1; i >= 0; i-- {
		data, err := readFold(m.roots[i], name)
		if err == nil {
			m.cache.Set(key, data)
			return data, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("reading %s: %w", name, err)
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
}

// Close drops all roots and cached data.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.roots = nil
	m.cache.Clear()
}

// Stats returns cache statistics.
func (m *Manager) Stats() (hits, misses int64) {
	return m.cache.Stats()
}

func cleanPath(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	return strings.TrimPrefix(path.Clean("/"+name), "/")
}

// readFold reads name exactly, or walks its components matching each one
// case-insensitively.
func readFold(fsys fs.FS, name string) ([]byte, error) {
	data, err := fs.ReadFile(fsys, name)
	if !errors.Is(err, fs.ErrNotExist) {
		return data, err
	}

	dir := "."
	for _, part := range strings.Split(name, "/") {
		entries, err := fs.ReadDir(fsys, dir)
		if err != nil {
			return nil, err
		}
		want := fold.String(part)
		found := ""
		for _, e := range entries {
			if fold.String(e.Name()) == want {
				found = e.Name()
				break
			}
		}
		if found == "" {
			return nil, fs.ErrNotExist
		}
		dir = path.Join(dir, found)
	}
	return fs.ReadFile(fsys, dir)
}

// Cache is a simple in-memory cache for loaded assets.
type Cache struct {
	data map[string][]byte
	mu   sync.RWMutex

	hits   atomic.Int64
	misses atomic.Int64
}

// NewCache creates a new cache.
func NewCache() *Cache {
	return &Cache{
		data: make(map[string][]byte),
	}
}

// Get retrieves an item from cache.
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.RLock()
	data, ok := c.data[key]
	c.mu.RUnlock()

	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return data, ok
}

// Set stores an item in cache.
func (c *Cache) Set(key string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = data
}

// Clear clears the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[string][]byte)
	c.hits.Store(0)
	c.misses.Store(0)
}

// Stats returns cache statistics.
func (c *Cache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}
