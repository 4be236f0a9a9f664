package pluggable

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtensionRegistrarRedirectsLuaFilesToModules(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "hello.lua", "return 1", 0644)
	src := NewFileSystemSource(dir, "**/*", path, ExtensionRegistrarID)

	modules := &testRegistrar{id: "modules"}
	files := &testRegistrar{id: "files"}

	e := NewExtensionRegistrar(modules, files)

	app := e.Applicability(context.Background(), src)
	require.True(t, app.IsApplicable)
	require.Same(t, modules, app.AlternateRegistrar)

	ms, ok := app.RedirectSource.(*ModuleSource)
	require.True(t, ok)
	require.Equal(t, path, ms.Location)
	require.Equal(t, "hello.lua", ms.FriendlyName)

	reg := Register(context.Background(), e, src, nil, nil)
	require.True(t, IsValid(reg))
	require.Equal(t, 1, modules.calls)
	require.Equal(t, 0, files.calls)
	require.IsType(t, &ModuleSource{}, reg.RegistrationSource())
}

func TestExtensionRegistrarSendsOtherFilesToDefault(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "build.sh", "#!/bin/sh", 0755)
	src := NewFileSystemSource(dir, "**/*", path, ExtensionRegistrarID)

	modules := &testRegistrar{id: "modules"}
	files := &testRegistrar{id: "files"}

	reg := Register(context.Background(), NewExtensionRegistrar(modules, files), src, nil, nil)

	require.True(t, IsValid(reg))
	require.Equal(t, 0, modules.calls)
	require.Equal(t, 1, files.calls)
	require.Same(t, src, reg.RegistrationSource())
}

func TestExtensionRegistrarWithoutDefaultIsNotApplicable(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "notes.txt", "", 0644)
	src := NewFileSystemSource(dir, "**/*", path, ExtensionRegistrarID)

	e := NewExtensionRegistrar(&testRegistrar{id: "modules"}, nil)

	require.False(t, e.Applicability(context.Background(), src).IsApplicable)

	reg := e.Registration(context.Background(), src, nil, nil)
	inv, ok := reg.(*InvalidRegistration)
	require.True(t, ok)
	require.Equal(t, []string{`no registrar for files with extension ".txt"`}, inv.Diagnostics())
}

func TestExtensionRegistrarMapsAdditionalExtensions(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.YAML", "", 0644)
	src := NewFileSystemSource(dir, "**/*", path, ExtensionRegistrarID)

	yaml := &testRegistrar{id: "yaml"}
	e := NewExtensionRegistrar(&testRegistrar{id: "modules"}, nil).Map("yaml", yaml)

	reg := Register(context.Background(), e, src, nil, nil)

	require.True(t, IsValid(reg))
	require.Equal(t, 1, yaml.calls)
}

func TestExtensionRegistrarDetectsRedirectCycles(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "loop.sh", "", 0755)
	src := NewFileSystemSource(dir, "**/*", path, ExtensionRegistrarID)

	e := NewExtensionRegistrar(nil, nil)
	e.def = e

	reg := Register(context.Background(), e, src, nil, nil)

	inv, ok := reg.(*InvalidRegistration)
	require.True(t, ok)
	require.Equal(t, []string{"registrar redirect cycle: file-extension -> file-extension"}, inv.Diagnostics())
}
