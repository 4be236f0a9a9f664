package pluggable

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/infinytum/raymond/v2"
	"github.com/joho/godotenv"
	"github.com/jumppad-labs/pluggable/logger"
	"github.com/jumppad-labs/pluggable/shell"
)

// ShellFileRegistrarID is the id of the ShellFileRegistrar
const ShellFileRegistrarID = "shell-file"

// ShellCmdEnhancer adds arguments to the command line of a shell plugin,
// cmd starts with the absolute path of the executable
type ShellCmdEnhancer func(cmd []string, pc *Context) []string

// DefaultShellCmdEnhancer appends the command name followed by every
// argument as a name value pair, sorted by name
func DefaultShellCmdEnhancer(cmd []string, pc *Context) []string {
	if pc.Command.Name != "" {
		cmd = append(cmd, pc.Command.Name)
	}

	names := make([]string, 0, len(pc.Arguments))
	for k := range pc.Arguments {
		names = append(names, k)
	}
	sort.Strings(names)

	for _, n := range names {
		cmd = append(cmd, n, pc.Arguments[n])
	}

	return cmd
}

// ShellOptions configure the shell executable plugins created by a
// ShellFileRegistrar
type ShellOptions struct {
	Runner shell.Runner
	// EnvVarsPrefix is prepended to the names of the environment variables
	// set for every command
	EnvVarsPrefix string
	// EnvVarsSupplier adds environment variables for a single execution
	EnvVarsSupplier func(pc *Context) map[string]string
	// EnvFile is the name of a dotenv file in the directory of the plugin
	// whose values are added to the environment, ignored when missing
	EnvFile string
	// CmdEnhancer builds the arguments, defaults to DefaultShellCmdEnhancer
	CmdEnhancer ShellCmdEnhancer
	// ArgTemplate is a handlebars template rendered into the arguments of
	// the command, it replaces CmdEnhancer when set
	ArgTemplate string
	Stdout      io.Writer
	Stderr      io.Writer
	Logger      logger.Logger
}

// ShellFileRegistrar registers executable files as ShellExePlugin
type ShellFileRegistrar struct {
	options ShellOptions
}

// NewShellFileRegistrar creates a ShellFileRegistrar, opts can be nil
func NewShellFileRegistrar(opts *ShellOptions) *ShellFileRegistrar {
	o := ShellOptions{}
	if opts != nil {
		o = *opts
	}

	if o.Runner == nil {
		o.Runner = shell.ExecRunner{}
	}

	if o.CmdEnhancer == nil {
		o.CmdEnhancer = DefaultShellCmdEnhancer
	}

	if o.Logger == nil {
		o.Logger = logger.Nop{}
	}

	return &ShellFileRegistrar{options: o}
}

// ID implements Registrar
func (r *ShellFileRegistrar) ID() string {
	return ShellFileRegistrarID
}

// Applicability implements Registrar
func (r *ShellFileRegistrar) Applicability(_ context.Context, src PluginSource) Applicability {
	_, ok := src.(*FileSystemSource)
	return Applicability{IsApplicable: ok}
}

// Registration implements Registrar
func (r *ShellFileRegistrar) Registration(_ context.Context, src PluginSource, onInvalid OnInvalidFunc, opts *RegistrationOptions) Registration {
	if onInvalid == nil {
		onInvalid = DefaultOnInvalid
	}

	fs, ok := src.(*FileSystemSource)
	if !ok {
		return onInvalid(src, NewInvalidRegistration(src,
			fmt.Sprintf("shell file registrar is unable to register sources of type %T", src)))
	}

	info, err := os.Stat(fs.AbsPath)
	if err != nil {
		return onInvalid(src, NewInvalidRegistration(src, fmt.Sprintf("unable to read source: %s", err)))
	}

	if info.IsDir() {
		return onInvalid(src, NewInvalidRegistration(src, "source is a directory"))
	}

	if info.Mode().Perm()&0111 == 0 {
		return onInvalid(src, NewInvalidRegistration(src,
			fmt.Sprintf("source is not executable (executable bit not set?): file mode is %s", info.Mode())))
	}

	nature := opts.nature(Nature{Identity: NatureShellExecutable})

	p := &ShellExePlugin{
		nature:  nature,
		source:  fs,
		options: r.options,
	}
	p.graphNode = opts.graphNode(nature, fs, NewGraphNode(fs.GraphNodeName, p))

	reg := opts.guard(&ValidRegistration{Source: fs, Plugin: p})
	if inv, ok := reg.(*InvalidRegistration); ok {
		return onInvalid(src, inv)
	}

	return opts.transform(reg)
}

var _ Registrar = (*ShellFileRegistrar)(nil)

// ShellExePlugin runs an executable file for every command
type ShellExePlugin struct {
	nature    Nature
	source    *FileSystemSource
	graphNode *GraphNode
	options   ShellOptions
}

func (p *ShellExePlugin) Nature() Nature       { return p.nature }
func (p *ShellExePlugin) Source() PluginSource { return p.source }

// ActivateGraphNode implements GraphContributor
func (p *ShellExePlugin) ActivateGraphNode(g *PluginsGraph) *GraphNode {
	return g.AddNode(p.graphNode)
}

// DeactivateGraphNode implements GraphNodeRemover
func (p *ShellExePlugin) DeactivateGraphNode(g *PluginsGraph) {
	g.Remove(p.graphNode)
}

// ShellResult is returned by ShellExePlugin.Execute
type ShellResult struct {
	Context *Context
	// Result is nil for dry runs
	Result *shell.Result
	// Spec is the command that was or would have been run
	Spec shell.Spec
}

// Execute implements Action
func (p *ShellExePlugin) Execute(ctx context.Context, pc *Context) (any, error) {
	cmd, err := p.command(pc)
	if err != nil {
		return nil, err
	}

	env, err := p.env(pc)
	if err != nil {
		return nil, err
	}

	spec := shell.Spec{
		Cmd: cmd,
		Dir: filepath.Dir(p.source.AbsPath),
		Env: env,
	}

	if pc.Command.DryRun {
		pc.Report("%s", spec)
		return &ShellResult{Context: pc, Spec: spec}, nil
	}

	p.options.Logger.Debug("Running shell plugin", "plugin", p.source.FriendlyName, "command", spec.String())

	res, err := p.options.Runner.Run(ctx, spec, shell.Options{
		Stdout: p.options.Stdout,
		Stderr: p.options.Stderr,
	})
	if err != nil {
		return nil, err
	}

	return &ShellResult{Context: pc, Result: res, Spec: spec}, nil
}

func (p *ShellExePlugin) command(pc *Context) ([]string, error) {
	cmd := []string{p.source.AbsPath}

	if p.options.ArgTemplate == "" {
		return p.options.CmdEnhancer(cmd, pc), nil
	}

	tmpl, err := raymond.Parse(p.options.ArgTemplate)
	if err != nil {
		return nil, fmt.Errorf("error parsing argument template: %s", err)
	}

	out, err := tmpl.Exec(map[string]interface{}{
		"command": pc.Command.Name,
		"args":    pc.Arguments,
		"plugin": map[string]interface{}{
			"friendlyName":    p.source.FriendlyName,
			"abbreviatedName": p.source.AbbreviatedName,
			"systemID":        p.source.SystemID,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("error processing argument template: %s", err)
	}

	return append(cmd, strings.Fields(out)...), nil
}

func (p *ShellExePlugin) env(pc *Context) (map[string]string, error) {
	env := map[string]string{}

	if p.options.EnvFile != "" {
		path := filepath.Join(filepath.Dir(p.source.AbsPath), p.options.EnvFile)
		if _, err := os.Stat(path); err == nil {
			vars, err := godotenv.Read(path)
			if err != nil {
				return nil, fmt.Errorf("unable to read env file %s: %w", path, err)
			}

			for k, v := range vars {
				env[k] = v
			}
		}
	}

	prefix := p.options.EnvVarsPrefix
	env[prefix+"PLUGIN_SRC"] = p.source.AbsPath
	env[prefix+"PLUGIN_SRC_FRIENDLY"] = p.source.FriendlyName
	env[prefix+"PLUGIN_SRC_ABBREV"] = p.source.AbbreviatedName
	env[prefix+"COMMAND"] = pc.Command.Name

	if len(pc.Arguments) > 0 {
		d, err := json.Marshal(pc.Arguments)
		if err != nil {
			return nil, err
		}

		env[prefix+"ARGS_JSON"] = string(d)
	}

	if p.options.EnvVarsSupplier != nil {
		for k, v := range p.options.EnvVarsSupplier(pc) {
			env[k] = v
		}
	}

	return env, nil
}
