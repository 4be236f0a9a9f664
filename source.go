package pluggable

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Source carries the identity fields shared by every kind of plugin source.
// A Source is a value and is never modified once constructed, overrides
// always produce a new value.
type Source struct {
	// RegistrarID is the id of the registrar that created the source
	RegistrarID string `json:"registrar_id" yaml:"registrar_id"`
	// SystemID uniquely identifies the source across the whole system
	SystemID string `json:"system_id" yaml:"system_id"`
	// FriendlyName is the human readable name of the source
	FriendlyName string `json:"friendly_name" yaml:"friendly_name"`
	// AbbreviatedName is a short name, usually the file name
	AbbreviatedName string `json:"abbreviated_name" yaml:"abbreviated_name"`
	// GraphNodeName is the name of the node in the PluginsGraph
	GraphNodeName string `json:"graph_node_name" yaml:"graph_node_name"`
}

// Identity implements PluginSource
func (s Source) Identity() Source {
	return s
}

// PluginSource identifies where a plugin candidate came from.
type PluginSource interface {
	Identity() Source
}

// FileSystemSource is a plugin source discovered on disk.
type FileSystemSource struct {
	Source
	AbsPath       string `json:"abs_path"`
	FileExtension string `json:"file_extension"`
	DiscoveryPath string `json:"discovery_path"`
	Glob          string `json:"glob"`
}

// NewFileSystemSource creates a FileSystemSource for the file at absPath that
// was found under discoveryPath using glob.
func NewFileSystemSource(discoveryPath, glob, absPath, registrarID string) *FileSystemSource {
	rel, err := filepath.Rel(discoveryPath, absPath)
	if err != nil {
		rel = absPath
	}
	rel = filepath.ToSlash(rel)

	return &FileSystemSource{
		Source: Source{
			RegistrarID:     registrarID,
			SystemID:        absPath,
			FriendlyName:    rel,
			AbbreviatedName: filepath.Base(absPath),
			GraphNodeName:   rel,
		},
		AbsPath:       absPath,
		FileExtension: strings.ToLower(filepath.Ext(absPath)),
		DiscoveryPath: discoveryPath,
		Glob:          glob,
	}
}

// ModuleSource is a plugin source backed by a script or in-process module.
type ModuleSource struct {
	Source
	// Location is the path or URL of the module, used as the module cache key
	Location string `json:"location"`
	// EntryPoint is the already loaded module, when nil the module is
	// imported from Location
	EntryPoint *Module `json:"-"`
}

// NewModuleSource creates a ModuleSource for an in-memory module.
func NewModuleSource(registrarID string, m *Module) *ModuleSource {
	name := m.Location
	if name == "" {
		name = m.Metadata.Source.SystemID
	}

	if name == "" {
		name = fmt.Sprintf("module@%p", m)
	}

	return &ModuleSource{
		Source: Source{
			RegistrarID:     registrarID,
			SystemID:        name,
			FriendlyName:    name,
			AbbreviatedName: filepath.Base(name),
			GraphNodeName:   name,
		},
		Location:   m.Location,
		EntryPoint: m,
	}
}

// withIdentity returns a copy of src whose identity fields are replaced by
// the non empty fields of override
func withIdentity(src PluginSource, override Source) PluginSource {
	merge := func(s Source) Source {
		if override.RegistrarID != "" {
			s.RegistrarID = override.RegistrarID
		}
		if override.SystemID != "" {
			s.SystemID = override.SystemID
		}
		if override.FriendlyName != "" {
			s.FriendlyName = override.FriendlyName
		}
		if override.AbbreviatedName != "" {
			s.AbbreviatedName = override.AbbreviatedName
		}
		if override.GraphNodeName != "" {
			s.GraphNodeName = override.GraphNodeName
		}
		return s
	}

	switch s := src.(type) {
	case *ModuleSource:
		c := *s
		c.Source = merge(c.Source)
		return &c
	case *FileSystemSource:
		c := *s
		c.Source = merge(c.Source)
		return &c
	default:
		return merge(src.Identity())
	}
}

// Nature classifies the origin kind of a plugin.
type Nature struct {
	Identity string `json:"identity" yaml:"identity"`
	// Metadata is set for module plugins and holds the metadata extracted
	// from the module exports
	Metadata *Metadata `json:"-" yaml:"-"`
}

const (
	NatureShellExecutable = "shell-file-executable"
	NatureModule          = "module"
	NatureModuleFunction  = "module-function"
	NatureModuleScalar    = "module-scalar"
)
