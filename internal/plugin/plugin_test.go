package plugin

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annelo/starfall-server/internal/registry"
)

func writeFile(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

func TestLoadInvalidDirReturnsError(t *testing.T) {
	m := NewManager("/nonexistent_directory_for_tests", nil)
	assert.Error(t, m.Load(registry.New()))
}

func TestLoadSkipsVersionMismatch(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "old.so", "not an elf")
	writeFile(t, dir, "old.yaml", "name: old\nversion: \"0\"\n")
	writeFile(t, dir, "notes.txt", "ignored")

	skipped := pluginSkipCount.Value()
	m := NewManager(dir, nil)
	require.NoError(t, m.Load(registry.New()))
	assert.Empty(t, m.Metas())
	assert.Equal(t, skipped+1, pluginSkipCount.Value())
}

func TestLoadFailsOnBrokenObject(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "broken.so", "not an elf")
	writeFile(t, dir, "broken.json", `{"name":"broken","version":"1"}`)

	err := NewManager(dir, nil).Load(registry.New())
	assert.ErrorContains(t, err, "failed to open plugin")
}

func TestConcurrentLoad(t *testing.T) {
	m := NewManager(t.TempDir(), nil)
	reg := registry.New()
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = m.Load(reg)
		}()
	}
	wg.Wait()
}

func TestRegisterRecordsMetaAndFiresHook(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "feed.yaml", "name: feed\nversion: \"1\"\nsize: 3\n")

	reg := registry.New()
	var loaded []any
	reg.RegisterHook(registry.HookPluginLoaded, func(args ...any) { loaded = append(loaded, args...) })

	type feedConfig struct {
		Size int `yaml:"size"`
	}
	var cfg feedConfig
	m := NewManager(dir, nil)
	meta, err := readMeta(dir, "feed")
	require.NoError(t, err)

	ok := m.register(reg, func(r *registry.Registry, load ConfigLoader) {
		require.NoError(t, load(&cfg))
		r.RegisterCommand("feed", "Show feed", func([]string) (string, error) { return "", nil })
	}, meta, "feed")

	assert.True(t, ok)
	assert.Equal(t, 3, cfg.Size)
	assert.Equal(t, []Meta{{Name: "feed", Version: "1"}}, m.Metas())
	assert.Equal(t, []any{"feed"}, loaded)
	_, found := reg.Command("feed")
	assert.True(t, found)
}

func TestRegisterRecoversPanic(t *testing.T) {
	m := NewManager(t.TempDir(), nil)
	ok := m.register(registry.New(), func(*registry.Registry, ConfigLoader) { panic("boom") }, Meta{Name: "bad"}, "bad")
	assert.False(t, ok)
	assert.Empty(t, m.Metas())
}

func TestReloadDropsPluginRegistrations(t *testing.T) {
	reg := registry.New()
	reg.RegisterCommand("help", "List commands", func([]string) (string, error) { return "", nil })
	reg.MarkCore()

	m := NewManager(t.TempDir(), nil)
	m.register(reg, func(r *registry.Registry, _ ConfigLoader) {
		r.RegisterCommand("extra", "", func([]string) (string, error) { return "", nil })
	}, Meta{Name: "p1", Version: APIVersion}, "p1")

	var unloaded []any
	reg.RegisterHook(registry.HookPluginUnloaded, func(args ...any) { unloaded = append(unloaded, args...) })

	require.NoError(t, m.Reload(reg))
	assert.Equal(t, []any{"p1"}, unloaded)
	assert.Empty(t, m.Metas())
	_, found := reg.Command("extra")
	assert.False(t, found)
	_, found = reg.Command("help")
	assert.True(t, found)
}

func TestReadMetaDefaultsName(t *testing.T) {
	dir := t.TempDir()
	meta, err := readMeta(dir, "bare")
	require.NoError(t, err)
	assert.Equal(t, Meta{Name: "bare"}, meta)

	writeFile(t, dir, "odd.json", "{")
	_, err = readMeta(dir, "odd")
	assert.Error(t, err)
}

func TestConfigLoaderMissingFileKeepsDefaults(t *testing.T) {
	cfg := struct {
		Size int `yaml:"size"`
	}{Size: 7}
	require.NoError(t, configLoader(t.TempDir(), "none")(&cfg))
	assert.Equal(t, 7, cfg.Size)
}
