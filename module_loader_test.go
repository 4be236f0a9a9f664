package pluggable

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/jumppad-labs/pluggable/logger"
	"github.com/stretchr/testify/require"
)

func countingImporter(count *int32) Importer {
	return ImporterFunc(func(ctx context.Context, location string) (*Module, error) {
		atomic.AddInt32(count, 1)
		return &Module{Default: "value"}, nil
	})
}

func TestModuleLoaderImportsLocationOnce(t *testing.T) {
	var count int32
	l := NewModuleLoader(nil, countingImporter(&count), logger.NewTestLogger(t))

	first, err := l.Import(context.Background(), "/plugins/one.lua")
	require.NoError(t, err)

	second, err := l.Import(context.Background(), "/plugins/one.lua")
	require.NoError(t, err)

	require.Equal(t, int32(1), count)
	require.Same(t, first, second)
	require.Equal(t, 1, l.Cache().Len())
}

func TestModuleLoaderTreatsEquivalentLocationsAsEqual(t *testing.T) {
	var count int32
	l := NewModuleLoader(nil, countingImporter(&count), nil)

	abs, err := filepath.Abs("one.lua")
	require.NoError(t, err)

	_, err = l.Import(context.Background(), "one.lua")
	require.NoError(t, err)

	_, err = l.Import(context.Background(), "file://"+filepath.ToSlash(abs))
	require.NoError(t, err)

	require.Equal(t, int32(1), count)
}

func TestModuleLoaderImportsConcurrentRequestsOnce(t *testing.T) {
	var count int32
	l := NewModuleLoader(nil, countingImporter(&count), nil)

	wg := sync.WaitGroup{}
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Import(context.Background(), "/plugins/one.lua")
		}()
	}
	wg.Wait()

	require.Equal(t, int32(1), count)
}

func TestModuleLoaderSetsLocation(t *testing.T) {
	var count int32
	l := NewModuleLoader(nil, countingImporter(&count), nil)

	m, err := l.Import(context.Background(), "/plugins/one.lua")
	require.NoError(t, err)
	require.Equal(t, "/plugins/one.lua", m.Location)
}

func TestModuleLoaderDoesNotCacheErrors(t *testing.T) {
	calls := 0
	l := NewModuleLoader(nil, ImporterFunc(func(ctx context.Context, location string) (*Module, error) {
		calls++
		return nil, fmt.Errorf("boom")
	}), nil)

	_, err := l.Import(context.Background(), "/plugins/one.lua")
	require.ErrorContains(t, err, "boom")

	_, err = l.Import(context.Background(), "/plugins/one.lua")
	require.Error(t, err)

	require.Equal(t, 2, calls)
	require.Equal(t, 0, l.Cache().Len())
}

func TestModuleLoaderSharesInjectedCache(t *testing.T) {
	var count int32
	cache := NewMemoryModuleCache()

	a := NewModuleLoader(cache, countingImporter(&count), nil)
	b := NewModuleLoader(cache, countingImporter(&count), nil)

	_, err := a.Import(context.Background(), "/plugins/one.lua")
	require.NoError(t, err)

	_, err = b.Import(context.Background(), "/plugins/one.lua")
	require.NoError(t, err)

	require.Equal(t, int32(1), count)
}

func TestNormalizeModuleLocation(t *testing.T) {
	key, err := NormalizeModuleLocation("/plugins/../plugins/one.lua")
	require.NoError(t, err)
	require.Equal(t, "file:///plugins/one.lua", key)

	key, err = NormalizeModuleLocation("https://example.com/plugins/one.lua")
	require.NoError(t, err)
	require.Equal(t, "https://example.com/plugins/one.lua", key)

	_, err = NormalizeModuleLocation("")
	require.Error(t, err)
}
