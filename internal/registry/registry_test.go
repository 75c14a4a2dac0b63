package registry_test

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annelo/starfall-server/internal/gameloop"
	"github.com/annelo/starfall-server/internal/registry"
)

func TestRegistry_RegisterAndRetrieve(t *testing.T) {
	reg := registry.New()

	spawnSys := gameloop.NewSpawnSystem()
	reg.RegisterGameSystem(spawnSys)
	systems := reg.GameSystems()
	require.Len(t, systems, 1)
	assert.Equal(t, spawnSys, systems[0])

	var got []any
	reg.RegisterHook(registry.HookPlayerKilled, func(args ...any) { got = args })
	assert.Len(t, reg.Hooks(registry.HookPlayerKilled), 1)
	reg.Fire(registry.HookPlayerKilled, uint64(3), "ace")
	assert.Equal(t, []any{uint64(3), "ace"}, got)

	reg.RegisterCommand("echo", "echo args", func(args []string) (string, error) {
		return "out: " + strings.Join(args, ","), nil
	})
	cmd, ok := reg.Command("echo")
	require.True(t, ok)
	assert.Equal(t, "echo args", cmd.Description)
	out, err := cmd.Handler([]string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, "out: a,b", out)

	_, ok = reg.Command("missing")
	assert.False(t, ok)
}

func TestRegistry_CommandsSortedAndShadowed(t *testing.T) {
	reg := registry.New()
	reg.RegisterCommand("stop", "old", nil)
	reg.RegisterCommand("help", "help", nil)
	reg.RegisterCommand("stop", "new", nil)

	cmds := reg.Commands()
	require.Len(t, cmds, 2)
	assert.Equal(t, "help", cmds[0].Name)
	assert.Equal(t, "new", cmds[1].Description)
}

func TestRegistry_FireSurvivesPanic(t *testing.T) {
	reg := registry.New()
	calls := 0
	reg.RegisterHook(registry.HookEnemySpawned, func(...any) { panic("bad hook") })
	reg.RegisterHook(registry.HookEnemySpawned, func(...any) { calls++ })

	assert.NotPanics(t, func() { reg.Fire(registry.HookEnemySpawned) })
	assert.Equal(t, 1, calls)
}

func TestRegistry_MarkCoreAndReset(t *testing.T) {
	reg := registry.New()
	reg.RegisterGameSystem(gameloop.NewSpawnSystem())
	reg.RegisterCommand("core", "core", nil)
	reg.RegisterHook(registry.HookPlayerReaped, func(...any) {})
	reg.MarkCore()

	reg.RegisterGameSystem(gameloop.NewStatsSystem())
	reg.RegisterCommand("extra", "extra", nil)
	reg.RegisterHook(registry.HookPlayerReaped, func(...any) {})
	reg.RegisterHook(registry.HookRoomCreated, func(...any) {})

	reg.Reset()
	assert.Len(t, reg.GameSystems(), 1)
	assert.Len(t, reg.Commands(), 1)
	assert.Len(t, reg.Hooks(registry.HookPlayerReaped), 1)
	assert.Empty(t, reg.Hooks(registry.HookRoomCreated))
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	reg := registry.New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			reg.RegisterHook(registry.HookPlayerConnected, func(...any) {})
		}()
		go func() {
			defer wg.Done()
			reg.Fire(registry.HookPlayerConnected, 1)
		}()
	}
	wg.Wait()
	assert.Len(t, reg.Hooks(registry.HookPlayerConnected), 50)
}
