package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annelo/starfall-server/internal/registry"
	"github.com/annelo/starfall-server/internal/world"
)

func TestKillfeedKeepsNewest(t *testing.T) {
	reg := registry.New()
	Register(reg, func(dst any) error {
		dst.(*Config).Size = 2
		return nil
	})
	cmd, ok := reg.Command("killfeed")
	require.True(t, ok)

	out, err := cmd.Handler(nil)
	require.NoError(t, err)
	assert.Equal(t, "no kills yet\n", out)

	reg.Fire(registry.HookPlayerKilled, world.PlayerID(2), world.PlayerID(1), "")
	reg.Fire(registry.HookPlayerKilled, world.PlayerID(3), world.PlayerID(0), "enemy_4")
	reg.Fire(registry.HookPlayerKilled, world.PlayerID(1), world.PlayerID(2), "")
	reg.Fire(registry.HookPlayerKilled, "malformed")

	out, err = cmd.Handler(nil)
	require.NoError(t, err)
	assert.Equal(t, "enemy_4 destroyed #3\n#2 shot down #1\n", out)
}
