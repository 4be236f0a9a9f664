package pluggable

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const routesHCL = `
options {
  env_vars_prefix = "TASKS_"
  arg_template    = "{{command}}"
}

route "tasks" {
  path = "./tasks"

  glob "**/*.sh" {
    registrars = ["shell"]
    nature     = "task"
  }

  glob "**/*.lua" {}
}

route "shared" {
  path = "${env.SHARED_PLUGINS}/common"

  glob "*" {}
}
`

const routesYAML = `
options:
  log_level: debug
routes:
  - name: tasks
    path: ./tasks
    globs:
      - pattern: "**/*.sh"
        registrars: [shell]
  - name: shared
    path: ${SHARED_PLUGINS}/common
    globs:
      - pattern: "*"
`

func TestLoadRoutesConfigHCL(t *testing.T) {
	t.Setenv("SHARED_PLUGINS", "/opt/plugins")

	dir := t.TempDir()
	path := writeFile(t, dir, "pluggable.hcl", routesHCL, 0644)

	c, err := LoadRoutesConfig(path)
	require.NoError(t, err)

	require.Equal(t, path, c.File)
	require.Equal(t, "TASKS_", c.Options.EnvVarsPrefix)
	require.Equal(t, "{{command}}", c.Options.ArgTemplate)
	require.Equal(t, ".env", c.Options.EnvFile)
	require.Equal(t, "info", c.Options.LogLevel)

	require.Len(t, c.Routes, 2)
	require.Equal(t, "tasks", c.Routes[0].Name)
	require.Equal(t, filepath.Join(dir, "tasks"), c.Routes[0].Path)
	require.Equal(t, "**/*.sh", c.Routes[0].Globs[0].Pattern)
	require.Equal(t, []string{"shell"}, c.Routes[0].Globs[0].Registrars)
	require.Equal(t, "task", c.Routes[0].Globs[0].Nature)
	require.Equal(t, "/opt/plugins/common", c.Routes[1].Path)
}

func TestLoadRoutesConfigHCLFunctions(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "path.txt", "scripts\n", 0644)
	path := writeFile(t, dir, "pluggable.hcl", `
route "scripts" {
  path = "${dir()}/${file("path.txt")}"

  glob "*.sh" {}
}
`, 0644)

	c, err := LoadRoutesConfig(path)
	require.NoError(t, err)

	require.Equal(t, filepath.Join(dir, "scripts"), c.Routes[0].Path)
}

func TestLoadRoutesConfigYAML(t *testing.T) {
	t.Setenv("SHARED_PLUGINS", "/opt/plugins")

	dir := t.TempDir()
	path := writeFile(t, dir, "pluggable.yaml", routesYAML, 0644)

	c, err := LoadRoutesConfig(path)
	require.NoError(t, err)

	require.Equal(t, "debug", c.Options.LogLevel)
	require.Equal(t, "PLUGGABLE_", c.Options.EnvVarsPrefix)

	require.Len(t, c.Routes, 2)
	require.Equal(t, filepath.Join(dir, "tasks"), c.Routes[0].Path)
	require.Equal(t, []string{"shell"}, c.Routes[0].Globs[0].Registrars)
	require.Equal(t, "/opt/plugins/common", c.Routes[1].Path)
}

func TestLoadRoutesConfigSetsDefaultOptions(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "pluggable.hcl", `
route "tasks" {
  path = "tasks"
  glob "*" {}
}
`, 0644)

	c, err := LoadRoutesConfig(path)
	require.NoError(t, err)

	require.NotNil(t, c.Options)
	require.Equal(t, "PLUGGABLE_", c.Options.EnvVarsPrefix)
	require.Equal(t, ".env", c.Options.EnvFile)
	require.True(t, filepath.IsAbs(c.Options.ModuleCache))
}

func TestLoadRoutesConfigValidatesRoutes(t *testing.T) {
	tt := []struct {
		name    string
		content string
		err     string
	}{
		{
			"duplicate",
			"route \"a\" {\n path = \"a\"\n glob \"*\" {}\n}\nroute \"a\" {\n path = \"b\"\n glob \"*\" {}\n}\n",
			`duplicate route "a"`,
		},
		{
			"no globs",
			"route \"a\" {\n path = \"a\"\n}\n",
			`route "a" has no globs`,
		},
		{
			"empty path",
			"route \"a\" {\n path = \"\"\n glob \"*\" {}\n}\n",
			`route "a" has no path`,
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "pluggable.hcl", tc.content, 0644)

			_, err := LoadRoutesConfig(path)
			require.ErrorContains(t, err, tc.err)
		})
	}
}

func TestLoadRoutesConfigReturnsParseErrors(t *testing.T) {
	path := writeFile(t, t.TempDir(), "pluggable.hcl", "route \"a\" {", 0644)

	_, err := LoadRoutesConfig(path)
	require.Error(t, err)
}

func TestLoadRoutesConfigRejectsUnknownFormats(t *testing.T) {
	path := writeFile(t, t.TempDir(), "pluggable.toml", "", 0644)

	_, err := LoadRoutesConfig(path)
	require.ErrorContains(t, err, "unsupported routes config format")
}

func TestDiscoveryRoutesResolvesRegistrars(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "pluggable.hcl", routesHCL, 0644)
	t.Setenv("SHARED_PLUGINS", dir)

	c, err := LoadRoutesConfig(path)
	require.NoError(t, err)

	shell := &testRegistrar{id: "shell"}
	ext := &testRegistrar{id: "extension"}

	routes, err := c.DiscoveryRoutes(map[string]Registrar{"shell": shell, "extension": ext}, "extension")
	require.NoError(t, err)

	require.Len(t, routes, 2)
	require.Equal(t, filepath.Join(dir, "tasks"), routes[0].DiscoveryPath)
	require.Equal(t, []Registrar{shell}, routes[0].Globs[0].Registrars)
	require.Equal(t, "task", routes[0].Globs[0].Nature)
	require.Equal(t, []Registrar{ext}, routes[0].Globs[1].Registrars)
}

func TestDiscoveryRoutesRejectsUnknownRegistrars(t *testing.T) {
	c := &RoutesConfig{Routes: []RouteConfig{
		{Name: "tasks", Path: "/tasks", Globs: []GlobConfig{{Pattern: "*", Registrars: []string{"python"}}}},
	}}

	_, err := c.DiscoveryRoutes(map[string]Registrar{}, "extension")
	require.ErrorContains(t, err, `unknown registrar "python"`)
}
