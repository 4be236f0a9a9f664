package pluggable

import (
	"context"
	"fmt"
	"strings"
)

// ExtensionRegistrarID is the id of the ExtensionRegistrar
const ExtensionRegistrarID = "file-extension"

// ExtensionRegistrar routes file system sources to another registrar based
// on the file extension. Sources with a mapped extension are redirected as
// a ModuleSource located at the file, everything else goes to the default
// registrar.
type ExtensionRegistrar struct {
	extensions map[string]Registrar
	def        Registrar
}

// NewExtensionRegistrar creates a registrar that sends .lua files to
// modules and every other file to def
func NewExtensionRegistrar(modules Registrar, def Registrar) *ExtensionRegistrar {
	return &ExtensionRegistrar{
		extensions: map[string]Registrar{".lua": modules},
		def:        def,
	}
}

// Map routes files with extension ext to r
func (e *ExtensionRegistrar) Map(ext string, r Registrar) *ExtensionRegistrar {
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}

	e.extensions[strings.ToLower(ext)] = r

	return e
}

// ID implements Registrar
func (e *ExtensionRegistrar) ID() string {
	return ExtensionRegistrarID
}

// Applicability implements Registrar
func (e *ExtensionRegistrar) Applicability(_ context.Context, src PluginSource) Applicability {
	fs, ok := src.(*FileSystemSource)
	if !ok {
		return Applicability{}
	}

	if r, ok := e.extensions[fs.FileExtension]; ok && r != nil {
		return Applicability{
			IsApplicable:       true,
			AlternateRegistrar: r,
			RedirectSource: &ModuleSource{
				Source:   fs.Source,
				Location: fs.AbsPath,
			},
		}
	}

	if e.def == nil {
		return Applicability{}
	}

	return Applicability{IsApplicable: true, AlternateRegistrar: e.def}
}

// Registration implements Registrar, the source is routed through the
// registrar chain so redirect cycles are detected
func (e *ExtensionRegistrar) Registration(ctx context.Context, src PluginSource, onInvalid OnInvalidFunc, opts *RegistrationOptions) Registration {
	if onInvalid == nil {
		onInvalid = DefaultOnInvalid
	}

	app := e.Applicability(ctx, src)
	if !app.IsApplicable || app.AlternateRegistrar == nil {
		return onInvalid(src, NewInvalidRegistration(src,
			fmt.Sprintf("no registrar for files with extension %q", extensionOf(src))))
	}

	redirected := src
	if app.RedirectSource != nil {
		redirected = app.RedirectSource
	}

	return Register(ctx, app.AlternateRegistrar, redirected, onInvalid, opts)
}

func extensionOf(src PluginSource) string {
	if fs, ok := src.(*FileSystemSource); ok {
		return fs.FileExtension
	}

	return ""
}

var _ Registrar = (*ExtensionRegistrar)(nil)
