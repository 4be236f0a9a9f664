package pluggable

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/creasty/defaults"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"gopkg.in/yaml.v3"
)

// Options are the host settings of a routes config file
type Options struct {
	// ModuleCache is the folder remote modules are downloaded to
	ModuleCache string `hcl:"module_cache,optional" yaml:"module_cache" default:"~/.pluggable/cache"`
	// EnvVarsPrefix is the prefix of the variables set for shell plugins
	EnvVarsPrefix string `hcl:"env_vars_prefix,optional" yaml:"env_vars_prefix" default:"PLUGGABLE_"`
	// EnvFile is the dotenv file read from the directory of shell plugins
	EnvFile string `hcl:"env_file,optional" yaml:"env_file" default:".env"`
	// ArgTemplate replaces the default arguments of shell plugins
	ArgTemplate string `hcl:"arg_template,optional" yaml:"arg_template"`
	LogLevel    string `hcl:"log_level,optional" yaml:"log_level" default:"info"`
}

// GlobConfig is a glob inside a route
type GlobConfig struct {
	Pattern string `hcl:"pattern,label" yaml:"pattern"`
	Nature  string `hcl:"nature,optional" yaml:"nature"`
	// Registrars are the names of the registrars tried for matching files,
	// the extension registrar is used when empty
	Registrars []string `hcl:"registrars,optional" yaml:"registrars"`
}

// RouteConfig is a discovery path and its globs
type RouteConfig struct {
	Name  string       `hcl:"name,label" yaml:"name"`
	Path  string       `hcl:"path" yaml:"path"`
	Globs []GlobConfig `hcl:"glob,block" yaml:"globs"`
}

// RoutesConfig is the content of a routes config file
type RoutesConfig struct {
	Options *Options      `hcl:"options,block" yaml:"options"`
	Routes  []RouteConfig `hcl:"route,block" yaml:"routes"`

	// File is the path the config was loaded from
	File string `yaml:"-"`
}

// LoadRoutesConfig loads a routes config from an HCL or YAML file, the
// format is chosen by the file extension
func LoadRoutesConfig(path string) (*RoutesConfig, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	var c *RoutesConfig

	switch strings.ToLower(filepath.Ext(abs)) {
	case ".hcl":
		c, err = parseRoutesHCL(abs)
	case ".yaml", ".yml":
		c, err = parseRoutesYAML(abs)
	default:
		return nil, fmt.Errorf("unsupported routes config format %q, expected .hcl, .yaml or .yml", filepath.Ext(abs))
	}

	if err != nil {
		return nil, err
	}

	c.File = abs

	return c, c.finalize()
}

func parseRoutesHCL(path string) (*RoutesConfig, error) {
	parser := hclparse.NewParser()

	f, diag := parser.ParseHCLFile(path)
	if diag.HasErrors() {
		return nil, errors.New(diag.Error())
	}

	ctx := &hcl.EvalContext{
		Functions: configFunctions(path),
		Variables: map[string]cty.Value{
			"env": envVariables(),
		},
	}

	c := &RoutesConfig{}

	diag = gohcl.DecodeBody(f.Body, ctx, c)
	if diag.HasErrors() {
		return nil, errors.New(diag.Error())
	}

	return c, nil
}

func parseRoutesYAML(path string) (*RoutesConfig, error) {
	d, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read routes config: %w", err)
	}

	c := &RoutesConfig{}

	err = yaml.Unmarshal([]byte(os.ExpandEnv(string(d))), c)
	if err != nil {
		return nil, fmt.Errorf("unable to parse routes config %s: %w", path, err)
	}

	return c, nil
}

// finalize sets default options and resolves route paths relative to the
// config file
func (c *RoutesConfig) finalize() error {
	if c.Options == nil {
		c.Options = &Options{}
	}

	err := defaults.Set(c.Options)
	if err != nil {
		return fmt.Errorf("unable to set default options: %w", err)
	}

	if mc := ExpandDiscoveryPaths(c.Options.ModuleCache); len(mc) == 1 {
		c.Options.ModuleCache = mc[0]
	}

	names := map[string]bool{}
	for i, r := range c.Routes {
		if names[r.Name] {
			return fmt.Errorf("duplicate route %q", r.Name)
		}
		names[r.Name] = true

		if r.Path == "" {
			return fmt.Errorf("route %q has no path", r.Name)
		}

		if len(r.Globs) == 0 {
			return fmt.Errorf("route %q has no globs", r.Name)
		}

		p := r.Path
		if expanded := ExpandDiscoveryPaths(p); len(expanded) == 1 {
			p = expanded[0]
		}

		if c.File != "" {
			p = ensureAbsolute(p, c.File)
		}

		c.Routes[i].Path = p
	}

	return nil
}

// DiscoveryRoutes converts the routes of the config into discovery routes,
// registrar names in the config are resolved with registrars. Globs without
// registrars use the registrar named by fallback.
func (c *RoutesConfig) DiscoveryRoutes(registrars map[string]Registrar, fallback string) ([]DiscoveryRoute, error) {
	routes := []DiscoveryRoute{}

	for _, r := range c.Routes {
		dr := DiscoveryRoute{Name: r.Name, DiscoveryPath: r.Path}

		for _, g := range r.Globs {
			names := g.Registrars
			if len(names) == 0 {
				names = []string{fallback}
			}

			rs := []Registrar{}
			for _, n := range names {
				reg, ok := registrars[n]
				if !ok {
					return nil, fmt.Errorf("route %q glob %q: unknown registrar %q", r.Name, g.Pattern, n)
				}

				rs = append(rs, reg)
			}

			dr.Globs = append(dr.Globs, DiscoveryGlob{
				Glob:       g.Pattern,
				Registrars: rs,
				Nature:     g.Nature,
			})
		}

		routes = append(routes, dr)
	}

	return routes, nil
}
