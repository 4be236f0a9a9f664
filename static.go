package pluggable

import (
	"context"
	"sync"
)

// StaticPlugins is a PluginsAcquirer for modules that are compiled into the
// host, no file system access is needed to register them.
type StaticPlugins struct {
	mu        sync.Mutex
	registrar Registrar
	modules   []*Module
	options   *RegistrationOptions
	valid     []*ValidRegistration
	invalid   []*InvalidRegistration
}

// NewStaticPlugins creates an acquirer registering modules with r, usually
// a ModuleRegistrar
func NewStaticPlugins(r Registrar, modules ...*Module) *StaticPlugins {
	return &StaticPlugins{registrar: r, modules: modules}
}

// WithOptions sets the registration options used for every module
func (s *StaticPlugins) WithOptions(opts *RegistrationOptions) *StaticPlugins {
	s.options = opts
	return s
}

// Acquire implements PluginsAcquirer
func (s *StaticPlugins) Acquire(ctx context.Context) error {
	valid := []*ValidRegistration{}
	invalid := []*InvalidRegistration{}

	for _, m := range s.modules {
		src := NewModuleSource(s.registrar.ID(), m)

		switch reg := Register(ctx, s.registrar, src, nil, s.options).(type) {
		case *ValidRegistration:
			valid = append(valid, reg)
		case *InvalidRegistration:
			invalid = append(invalid, reg)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.valid = valid
	s.invalid = invalid

	return nil
}

// ValidInactivePlugins implements PluginsAcquirer
func (s *StaticPlugins) ValidInactivePlugins() []*ValidRegistration {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]*ValidRegistration{}, s.valid...)
}

// InvalidPlugins implements PluginsAcquirer
func (s *StaticPlugins) InvalidPlugins() []*InvalidRegistration {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]*InvalidRegistration{}, s.invalid...)
}

var _ PluginsAcquirer = (*StaticPlugins)(nil)
