package pluggable

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type getterCall struct {
	src     string
	dest    string
	working string
}

func setupMockGetter(t *testing.T, err error) (*GoGetter, *[]getterCall) {
	calls := &[]getterCall{}

	g := &GoGetter{
		get: func(_ context.Context, src, dest, working string) error {
			*calls = append(*calls, getterCall{
				src:     src,
				dest:    dest,
				working: working,
			})

			if err != nil {
				return err
			}

			// simulate a downloaded module
			os.MkdirAll(dest, os.ModePerm)
			return os.WriteFile(filepath.Join(dest, "init.lua"), []byte("return { default = 1 }"), 0644)
		},
	}

	return g, calls
}

func TestGetterDoesNothingWhenFolderExistsAndIgnoreCacheFalse(t *testing.T) {
	dest := t.TempDir()
	downloadPath := filepath.Join(dest, "github.com_test")
	os.MkdirAll(downloadPath, os.ModePerm)

	g, calls := setupMockGetter(t, nil)

	_, err := g.Get(context.Background(), "github.com/test", dest, false)
	require.NoError(t, err)

	require.Len(t, *calls, 0)
}

func TestGetterCallsGetWhenFolderExistsAndIgnoreCacheTrue(t *testing.T) {
	dest := t.TempDir()

	g, calls := setupMockGetter(t, nil)

	_, err := g.Get(context.Background(), "github.com/test", dest, true)
	require.NoError(t, err)

	require.Len(t, *calls, 1)
}

func TestGetterCallsGetWithURLEncodedOutputFolder(t *testing.T) {
	dest := t.TempDir()
	g, calls := setupMockGetter(t, nil)

	_, err := g.Get(context.Background(), "github.com/jumppad-labs/plugins?ref=v0.1.0", dest, false)
	require.NoError(t, err)

	require.Len(t, *calls, 1)
	require.Equal(t, filepath.Join(dest, "github.com_jumppad-labs_plugins_ref=v0.1.0"), (*calls)[0].dest)
}

func TestGetterReturnsFullDownloadPath(t *testing.T) {
	dest := t.TempDir()
	downloadPath := filepath.Join(dest, "github.com_test")

	g, calls := setupMockGetter(t, nil)

	path, err := g.Get(context.Background(), "github.com/test", dest, true)
	require.NoError(t, err)

	require.Len(t, *calls, 1)
	require.Equal(t, downloadPath, path)
}

func TestGetterReturnsErrorWhenUnableToDownload(t *testing.T) {
	dest := t.TempDir()

	g, calls := setupMockGetter(t, fmt.Errorf("unable to download"))

	_, err := g.Get(context.Background(), "github.com/test", dest, true)
	require.Error(t, err)
	require.Len(t, *calls, 1)
}

func TestIsRemoteLocation(t *testing.T) {
	local := filepath.Join(t.TempDir(), "module.lua")
	require.NoError(t, os.WriteFile(local, []byte("return {}"), 0644))

	require.False(t, IsRemoteLocation(local))
	require.False(t, IsRemoteLocation("file://"+local))
	require.True(t, IsRemoteLocation("github.com/jumppad-labs/plugins//greet"))
	require.True(t, IsRemoteLocation("git::https://example.com/plugins.git"))
}

func TestRemoteImporterDownloadsRemoteModules(t *testing.T) {
	dest := t.TempDir()
	g, calls := setupMockGetter(t, nil)

	imported := []string{}
	imp := NewRemoteImporter(ImporterFunc(func(_ context.Context, location string) (*Module, error) {
		imported = append(imported, location)
		return &Module{Default: 1}, nil
	}), g, dest)

	m, err := imp.Import(context.Background(), "github.com/jumppad-labs/plugins//greet")
	require.NoError(t, err)

	require.Len(t, *calls, 1)
	require.Len(t, imported, 1)
	require.Equal(t, "init.lua", filepath.Base(imported[0]))
	require.Equal(t, "github.com/jumppad-labs/plugins//greet", m.Location)
}

func TestRemoteImporterPassesLocalModulesThrough(t *testing.T) {
	local := filepath.Join(t.TempDir(), "module.lua")
	require.NoError(t, os.WriteFile(local, []byte("return {}"), 0644))

	g, calls := setupMockGetter(t, nil)

	imported := []string{}
	imp := NewRemoteImporter(ImporterFunc(func(_ context.Context, location string) (*Module, error) {
		imported = append(imported, location)
		return &Module{}, nil
	}), g, t.TempDir())

	_, err := imp.Import(context.Background(), local)
	require.NoError(t, err)

	require.Len(t, *calls, 0)
	require.Equal(t, []string{local}, imported)
}

func TestGetterFunctionalTest(t *testing.T) {
	dest := t.TempDir()

	if os.Getenv("ACC_TEST") != "1" {
		return
	}

	g := NewGoGetter()
	download, err := g.Get(context.Background(), "github.com/jumppad-labs/hclconfig?ref=7271da1cd14778d3762304954d7061cc753da204", dest, false)
	require.NoError(t, err)

	require.DirExists(t, download)
	require.FileExists(t, filepath.Join(download, "README.md"))
}
