package pluggable

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gobwas/glob"
	"github.com/jumppad-labs/pluggable/logger"
)

// DiscoveryGlob selects files below a discovery path and names the
// registrars that turn them into plugins
type DiscoveryGlob struct {
	// Glob is matched against the slash separated path relative to the
	// discovery path, a leading **/ also matches files at the top level
	Glob string
	// Registrars are tried in order, the first applicable one registers
	// the file
	Registrars []Registrar
	// Nature overrides the nature identity of the plugins, optional
	Nature string
	// Options are passed to the registrars, optional
	Options *RegistrationOptions
}

// DiscoveryRoute is a directory that is searched for plugins
type DiscoveryRoute struct {
	Name          string
	DiscoveryPath string
	Globs         []DiscoveryGlob
}

// FileSystemRoutesPlugins is a PluginsAcquirer that walks the discovery
// path of every route and registers the files matching its globs
type FileSystemRoutesPlugins struct {
	mu        sync.Mutex
	routes    []DiscoveryRoute
	logger    logger.Logger
	onInvalid OnInvalidFunc
	valid     []*ValidRegistration
	invalid   []*InvalidRegistration
}

// NewFileSystemRoutesPlugins creates an acquirer for routes
func NewFileSystemRoutesPlugins(routes []DiscoveryRoute, l logger.Logger) *FileSystemRoutesPlugins {
	if l == nil {
		l = logger.Nop{}
	}

	return &FileSystemRoutesPlugins{
		routes:    routes,
		logger:    l,
		onInvalid: DefaultOnInvalid,
	}
}

// OnInvalid sets the function that decides the shape of invalid
// registrations
func (f *FileSystemRoutesPlugins) OnInvalid(fn OnInvalidFunc) *FileSystemRoutesPlugins {
	if fn != nil {
		f.onInvalid = fn
	}

	return f
}

// ValidInactivePlugins implements PluginsAcquirer
func (f *FileSystemRoutesPlugins) ValidInactivePlugins() []*ValidRegistration {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]*ValidRegistration{}, f.valid...)
}

// InvalidPlugins implements PluginsAcquirer
func (f *FileSystemRoutesPlugins) InvalidPlugins() []*InvalidRegistration {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]*InvalidRegistration{}, f.invalid...)
}

// Acquire implements PluginsAcquirer. Discovery paths that do not exist
// are logged and skipped.
func (f *FileSystemRoutesPlugins) Acquire(ctx context.Context) error {
	valid := []*ValidRegistration{}
	invalid := []*InvalidRegistration{}

	// deduplicate routes pointing at the same directory with the same globs
	seen := map[string]bool{}

	for _, r := range f.routes {
		dir, err := filepath.Abs(r.DiscoveryPath)
		if err != nil {
			f.logger.Warn("Unable to resolve discovery path", "route", r.Name, "path", r.DiscoveryPath, "error", err)
			continue
		}

		matchers, err := compileGlobs(r.Globs)
		if err != nil {
			return fmt.Errorf("invalid glob in route %s: %w", r.Name, err)
		}

		info, err := os.Stat(dir)
		if err != nil {
			if os.IsNotExist(err) {
				f.logger.Warn("Discovery path does not exist", "route", r.Name, "path", dir)
				continue
			}

			return err
		}

		if !info.IsDir() {
			f.logger.Warn("Discovery path is not a directory", "route", r.Name, "path", dir)
			continue
		}

		err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}

			if err := ctx.Err(); err != nil {
				return err
			}

			if d.IsDir() {
				return nil
			}

			rel, err := filepath.Rel(dir, path)
			if err != nil {
				return err
			}
			rel = filepath.ToSlash(rel)

			for _, m := range matchers {
				if !m.match(rel) {
					continue
				}

				key := path + "|" + m.glob.Glob
				if seen[key] {
					return nil
				}
				seen[key] = true

				src := NewFileSystemSource(dir, m.glob.Glob, path, m.registrarID())
				reg := RegisterFirst(ctx, m.glob.Registrars, src, f.onInvalid, m.options())

				switch v := reg.(type) {
				case *ValidRegistration:
					valid = append(valid, v)
				case *InvalidRegistration:
					f.logger.Debug("Invalid plugin", "route", r.Name, "source", rel, "diagnostics", v.Diagnostics())
					invalid = append(invalid, v)
				}

				// a file is registered by the first glob that matches it
				return nil
			}

			return nil
		})

		if err != nil {
			return fmt.Errorf("unable to walk discovery path %s: %w", dir, err)
		}
	}

	f.logger.Debug("Discovered plugins", "valid", len(valid), "invalid", len(invalid))

	f.mu.Lock()
	f.valid = valid
	f.invalid = invalid
	f.mu.Unlock()

	return nil
}

var _ PluginsAcquirer = (*FileSystemRoutesPlugins)(nil)

type globMatcher struct {
	glob     DiscoveryGlob
	patterns []glob.Glob
}

func (g globMatcher) match(path string) bool {
	for _, p := range g.patterns {
		if p.Match(path) {
			return true
		}
	}

	return false
}

func (g globMatcher) registrarID() string {
	if len(g.glob.Registrars) == 0 {
		return ""
	}

	return g.glob.Registrars[0].ID()
}

func (g globMatcher) options() *RegistrationOptions {
	if g.glob.Nature == "" {
		return g.glob.Options
	}

	o := RegistrationOptions{}
	if g.glob.Options != nil {
		o = *g.glob.Options
	}

	identity := g.glob.Nature
	next := o.Nature
	o.Nature = func(n Nature) Nature {
		if next != nil {
			n = next(n)
		}

		n.Identity = identity
		return n
	}

	return &o
}

func compileGlobs(globs []DiscoveryGlob) ([]globMatcher, error) {
	matchers := []globMatcher{}

	for _, dg := range globs {
		patterns := []string{dg.Glob}
		if strings.HasPrefix(dg.Glob, "**/") {
			patterns = append(patterns, strings.TrimPrefix(dg.Glob, "**/"))
		}

		m := globMatcher{glob: dg}
		for _, p := range patterns {
			g, err := glob.Compile(p, '/')
			if err != nil {
				return nil, fmt.Errorf("unable to compile %s: %w", p, err)
			}

			m.patterns = append(m.patterns, g)
		}

		matchers = append(matchers, m)
	}

	return matchers, nil
}

// ExpandDiscoveryPaths expands environment variables and a leading ~/ in
// every path and removes duplicates
func ExpandDiscoveryPaths(paths ...string) []string {
	home, _ := os.UserHomeDir()

	expanded := []string{}
	seen := map[string]bool{}

	for _, p := range paths {
		p = os.ExpandEnv(p)

		if home != "" && (p == "~" || strings.HasPrefix(p, "~/")) {
			p = filepath.Join(home, strings.TrimPrefix(p, "~"))
		}

		if p == "" || seen[p] {
			continue
		}

		seen[p] = true
		expanded = append(expanded, p)
	}

	return expanded
}
