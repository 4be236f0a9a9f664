package pluggable

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jumppad-labs/pluggable/logger"
)

// Importer loads a module from a location, it is the dynamic code loading
// primitive supplied by the host.
type Importer interface {
	Import(ctx context.Context, location string) (*Module, error)
}

// ImporterFunc adapts a function to an Importer
type ImporterFunc func(ctx context.Context, location string) (*Module, error)

// Import implements Importer
func (f ImporterFunc) Import(ctx context.Context, location string) (*Module, error) {
	return f(ctx, location)
}

// ModuleLoader imports every distinct module location exactly once, later
// imports of an equal location return the cached module.
type ModuleLoader struct {
	cache    ModuleCache
	importer Importer
	logger   logger.Logger
	locks    keyedLocks
}

// NewModuleLoader creates a loader that memoizes importer results in cache
func NewModuleLoader(cache ModuleCache, importer Importer, l logger.Logger) *ModuleLoader {
	if cache == nil {
		cache = NewMemoryModuleCache()
	}

	if l == nil {
		l = logger.Nop{}
	}

	return &ModuleLoader{
		cache:    cache,
		importer: importer,
		logger:   l,
	}
}

// Cache returns the module cache used by the loader
func (l *ModuleLoader) Cache() ModuleCache {
	return l.cache
}

// Import returns the module at location, importing it when it is not cached
func (l *ModuleLoader) Import(ctx context.Context, location string) (*Module, error) {
	key, err := NormalizeModuleLocation(location)
	if err != nil {
		return nil, err
	}

	if e, ok := l.cache.Load(key); ok {
		return e.Module, nil
	}

	unlock := l.locks.lock(key)
	defer unlock()

	// another import of the same key may have completed while waiting
	if e, ok := l.cache.Load(key); ok {
		return e.Module, nil
	}

	if l.importer == nil {
		return nil, fmt.Errorf("no importer configured, unable to import %s", location)
	}

	start := time.Now()
	m, err := l.importer.Import(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("unable to import module %s: %w", location, err)
	}

	if m.Location == "" {
		m.Location = location
	}

	l.cache.Store(&ModuleCacheEntry{Key: key, Module: m, LoadedAt: time.Now()})
	l.logger.Debug("Imported module", "location", location, "duration", time.Since(start))

	return m, nil
}

// NormalizeModuleLocation converts location into the key used by the module
// cache. Local paths become absolute file URLs, URLs are returned in their
// canonical form.
func NormalizeModuleLocation(location string) (string, error) {
	if location == "" {
		return "", fmt.Errorf("module location is empty")
	}

	if u, err := url.Parse(location); err == nil && u.Scheme != "" && len(u.Scheme) > 1 {
		if u.Scheme == "file" {
			return "file://" + filepath.ToSlash(filepath.Clean(u.Path)), nil
		}

		return u.String(), nil
	}

	if IsRemoteLocation(location) {
		return location, nil
	}

	abs, err := filepath.Abs(location)
	if err != nil {
		return "", fmt.Errorf("unable to resolve module location %s: %w", location, err)
	}

	return "file://" + filepath.ToSlash(abs), nil
}

// RemoteImporter downloads remote module locations into a cache folder and
// passes the local path to the wrapped importer. Local locations are passed
// through unchanged.
type RemoteImporter struct {
	importer Importer
	getter   Getter
	cacheDir string
}

// NewRemoteImporter wraps importer, remote modules are downloaded to
// cacheDir using g
func NewRemoteImporter(importer Importer, g Getter, cacheDir string) *RemoteImporter {
	if g == nil {
		g = NewGoGetter()
	}

	return &RemoteImporter{importer: importer, getter: g, cacheDir: cacheDir}
}

// Import implements Importer
func (r *RemoteImporter) Import(ctx context.Context, location string) (*Module, error) {
	if !IsRemoteLocation(location) {
		return r.importer.Import(ctx, strings.TrimPrefix(location, "file://"))
	}

	dir, err := r.getter.Get(ctx, location, r.cacheDir, false)
	if err != nil {
		return nil, err
	}

	local, err := moduleEntryFile(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", err, location)
	}

	m, err := r.importer.Import(ctx, local)
	if err != nil {
		return nil, err
	}

	m.Location = location

	return m, nil
}

// moduleEntryFile finds the file to import in a downloaded module folder,
// either init.lua or the only file in the folder
func moduleEntryFile(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}

	if !info.IsDir() {
		return path, nil
	}

	if _, err := os.Stat(filepath.Join(path, "init.lua")); err == nil {
		return filepath.Join(path, "init.lua"), nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return "", err
	}

	files := []string{}
	for _, e := range entries {
		if !e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			files = append(files, e.Name())
		}
	}

	if len(files) != 1 {
		return "", ErrModuleNotFound
	}

	return filepath.Join(path, files[0]), nil
}
