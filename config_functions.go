package pluggable

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

// configFunctions returns the functions available in a routes config file
// located at filePath
func configFunctions(filePath string) map[string]function.Function {
	var EnvFunc = function.New(&function.Spec{
		Params: []function.Parameter{
			{
				Name:             "env",
				Type:             cty.String,
				AllowDynamicType: true,
			},
		},
		Type: function.StaticReturnType(cty.String),
		Impl: func(args []cty.Value, retType cty.Type) (cty.Value, error) {
			return cty.StringVal(os.Getenv(args[0].AsString())), nil
		},
	})

	var HomeFunc = function.New(&function.Spec{
		Type: function.StaticReturnType(cty.String),
		Impl: func(args []cty.Value, retType cty.Type) (cty.Value, error) {
			h, _ := os.UserHomeDir()
			return cty.StringVal(h), nil
		},
	})

	var DirFunc = function.New(&function.Spec{
		Type: function.StaticReturnType(cty.String),
		Impl: func(args []cty.Value, retType cty.Type) (cty.Value, error) {
			s, err := filepath.Abs(filePath)

			// check if filepath is already a directory
			if stat, err := os.Stat(s); err == nil && stat.IsDir() {
				return cty.StringVal(s), err
			}

			return cty.StringVal(filepath.Dir(s)), err
		},
	})

	var FileFunc = function.New(&function.Spec{
		Params: []function.Parameter{
			{
				Name:             "path",
				Type:             cty.String,
				AllowDynamicType: true,
			},
		},
		Type: function.StaticReturnType(cty.String),
		Impl: func(args []cty.Value, retType cty.Type) (cty.Value, error) {
			d, err := os.ReadFile(ensureAbsolute(args[0].AsString(), filePath))
			if err != nil {
				return cty.StringVal(""), err
			}

			return cty.StringVal(strings.TrimSpace(string(d))), nil
		},
	})

	return map[string]function.Function{
		"dir":        DirFunc,
		"env":        EnvFunc,
		"file":       FileFunc,
		"format":     stdlib.FormatFunc,
		"home":       HomeFunc,
		"join":       stdlib.JoinFunc,
		"lower":      stdlib.LowerFunc,
		"split":      stdlib.SplitFunc,
		"trimprefix": stdlib.TrimPrefixFunc,
		"trimspace":  stdlib.TrimSpaceFunc,
		"trimsuffix": stdlib.TrimSuffixFunc,
		"upper":      stdlib.UpperFunc,
	}
}

// envVariables converts the environment of the process into the cty
// object exposed as env in config files
func envVariables() cty.Value {
	vars := map[string]cty.Value{}

	for _, e := range os.Environ() {
		k, v, ok := strings.Cut(e, "=")
		if !ok || k == "" {
			continue
		}

		vars[k] = cty.StringVal(v)
	}

	return cty.ObjectVal(vars)
}

// ensureAbsolute returns path relative to the directory of file when path
// is not absolute
func ensureAbsolute(path, file string) string {
	if filepath.IsAbs(path) {
		return path
	}

	// file could be either a file or a directory
	baseDir := file
	if info, err := os.Stat(file); err != nil || !info.IsDir() {
		baseDir = filepath.Dir(file)
	}

	return filepath.Clean(filepath.Join(baseDir, path))
}
