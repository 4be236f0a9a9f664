// Package shell runs the subprocess behind shell executable plugins.
package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"
)

// Spec describes the command to run
type Spec struct {
	// Cmd is the executable followed by its arguments
	Cmd []string
	// Dir is the working directory, empty means the current directory
	Dir string
	// Env is added to the environment of the current process
	Env map[string]string
}

// Options changes how the output of a command is handled
type Options struct {
	// Stdout and Stderr receive a copy of the output as it is produced
	Stdout io.Writer
	Stderr io.Writer
	// Stdin is passed to the process
	Stdin io.Reader
}

// Result is the outcome of running a command
type Result struct {
	Cmd      []string
	Stdout   []byte
	Stderr   []byte
	ExitCode int
	// Signal is set when the process was terminated by a signal
	Signal string
}

// Success returns true when the command exited with code 0
func (r *Result) Success() bool {
	return r.ExitCode == 0 && r.Signal == ""
}

// Runner executes commands
type Runner interface {
	Run(ctx context.Context, spec Spec, opts Options) (*Result, error)
}

// RunnerFunc adapts a function to a Runner
type RunnerFunc func(ctx context.Context, spec Spec, opts Options) (*Result, error)

// Run implements Runner
func (f RunnerFunc) Run(ctx context.Context, spec Spec, opts Options) (*Result, error) {
	return f(ctx, spec, opts)
}

// ExecRunner runs commands with os/exec
type ExecRunner struct{}

var _ Runner = ExecRunner{}

// Run starts the command and waits for it to finish. A non zero exit code
// is reported in the Result and is not an error, errors are only returned
// when the process could not be started.
func (ExecRunner) Run(ctx context.Context, spec Spec, opts Options) (*Result, error) {
	if len(spec.Cmd) == 0 {
		return nil, fmt.Errorf("no command specified")
	}

	cmd := exec.CommandContext(ctx, spec.Cmd[0], spec.Cmd[1:]...)
	cmd.Dir = spec.Dir
	cmd.Env = append(os.Environ(), EnvList(spec.Env)...)
	cmd.Stdin = opts.Stdin

	stdout := bytes.NewBuffer(nil)
	stderr := bytes.NewBuffer(nil)
	cmd.Stdout = tee(stdout, opts.Stdout)
	cmd.Stderr = tee(stderr, opts.Stderr)

	err := cmd.Run()

	res := &Result{
		Cmd:    spec.Cmd,
		Stdout: stdout.Bytes(),
		Stderr: stderr.Bytes(),
	}

	if cmd.ProcessState != nil {
		res.ExitCode = cmd.ProcessState.ExitCode()
		if res.ExitCode == -1 {
			res.Signal = cmd.ProcessState.String()
		}
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return res, nil
		}

		return res, fmt.Errorf("unable to run %s: %w", spec.Cmd[0], err)
	}

	return res, nil
}

// EnvList converts env into KEY=value pairs sorted by key
func EnvList(env map[string]string) []string {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	list := make([]string, 0, len(keys))
	for _, k := range keys {
		list = append(list, k+"="+env[k])
	}

	return list
}

// String formats the command line for display
func (s Spec) String() string {
	return strings.Join(s.Cmd, " ")
}

func tee(buf *bytes.Buffer, w io.Writer) io.Writer {
	if w == nil {
		return buf
	}

	return io.MultiWriter(buf, w)
}
