package gameloop

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/annelo/starfall-server/internal/config"
	"github.com/annelo/starfall-server/internal/physics"
	"github.com/annelo/starfall-server/internal/protocol"
	"github.com/annelo/starfall-server/internal/vmath"
	"github.com/annelo/starfall-server/internal/world"
)

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeOutbox struct {
	mu       sync.Mutex
	sent     map[world.PlayerID][]any
	buffered map[world.PlayerID]int
	failing  map[world.PlayerID]bool
}

func newFakeOutbox() *fakeOutbox {
	return &fakeOutbox{
		sent:     make(map[world.PlayerID][]any),
		buffered: make(map[world.PlayerID]int),
		failing:  make(map[world.PlayerID]bool),
	}
}

func (o *fakeOutbox) Send(id world.PlayerID, msg any) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.failing[id] {
		return errors.New("connection closed")
	}
	o.sent[id] = append(o.sent[id], msg)
	return nil
}

func (o *fakeOutbox) Buffered(id world.PlayerID) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.buffered[id]
}

type recorder struct {
	name  string
	order *[]string
	panic bool
}

func (r *recorder) Init(Dependencies) error { return nil }
func (r *recorder) Name() string            { return r.name }
func (r *recorder) Tick(context.Context, time.Time) {
	*r.order = append(*r.order, r.name)
	if r.panic {
		panic("boom")
	}
}

func newDeps(t *testing.T) (Dependencies, *fakeOutbox, *[]Event) {
	t.Helper()
	cfg := config.Default()
	out := newFakeOutbox()
	events := &[]Event{}
	return Dependencies{
		World:  world.NewStore(cfg.Game.PublicRoomCapacity, t0),
		Config: cfg,
		Rand:   rand.New(rand.NewSource(11)),
		Outbox: out,
		Emit:   func(e Event) { *events = append(*events, e) },
	}, out, events
}

func addShip(t *testing.T, w *world.Store, at vmath.Vec2) *world.Player {
	t.Helper()
	p, err := w.AddPlayer(&world.Player{
		Kinetics:   physics.Kinetics{Pos: at, Radius: 30},
		Health:     100,
		MaxHealth:  100,
		Shield:     50,
		MaxShield:  50,
		Speed:      30,
		Damage:     10,
		LastUpdate: t0,
		Connected:  true,
	})
	require.NoError(t, err)
	return p
}

func TestStepRunsSystemsInOrder(t *testing.T) {
	deps, _, _ := newDeps(t)
	var order []string
	l := NewLoop(time.Second, deps,
		&recorder{name: "a", order: &order},
		&recorder{name: "b", order: &order, panic: true},
		&recorder{name: "c", order: &order},
	)

	l.Step(context.Background(), t0)
	l.Step(context.Background(), t0.Add(time.Second))

	assert.Equal(t, []string{"a", "b", "c", "a", "b", "c"}, order)
	assert.Equal(t, uint64(2), l.Ticks())
}

func TestDefaultSystemsOrder(t *testing.T) {
	var names []string
	for _, s := range DefaultSystems() {
		names = append(names, s.Name())
	}
	assert.Equal(t, []string{
		"spawn", "projectiles", "enemies", "combat", "ships", "reaper", "broadcast", "stats",
	}, names)
}

func TestReaperHonorsGrace(t *testing.T) {
	deps, _, events := newDeps(t)
	p := addShip(t, deps.World, vmath.V(100, 100))
	p.Disconnect(t0)
	l := NewLoop(time.Second, deps, NewReaperSystem())

	l.Step(context.Background(), t0.Add(4999*time.Millisecond))
	_, ok := deps.World.Player(p.ID)
	assert.True(t, ok)

	l.Step(context.Background(), t0.Add(5000*time.Millisecond))
	_, ok = deps.World.Player(p.ID)
	assert.False(t, ok)
	assert.Empty(t, deps.World.Roster(world.PublicRoom))
	require.Len(t, *events, 1)
	assert.Equal(t, PlayerReaped, (*events)[0].Kind)
}

func TestBroadcastSkipsAndDisconnects(t *testing.T) {
	deps, out, _ := newDeps(t)
	ok := addShip(t, deps.World, vmath.V(100, 100))
	slow := addShip(t, deps.World, vmath.V(200, 100))
	broken := addShip(t, deps.World, vmath.V(300, 100))
	gone := addShip(t, deps.World, vmath.V(400, 100))
	gone.Disconnect(t0)
	out.buffered[slow.ID] = deps.Config.Transport.SendBufferLimit
	out.failing[broken.ID] = true

	l := NewLoop(time.Second, deps, NewBroadcastSystem())
	l.Step(context.Background(), t0)

	require.Len(t, out.sent[ok.ID], 1)
	gs, isState := out.sent[ok.ID][0].(protocol.GameState)
	require.True(t, isState)
	assert.Equal(t, protocol.TypeGameState, gs.Type)
	assert.Len(t, gs.Data.Players, 4)

	assert.Empty(t, out.sent[slow.ID])
	assert.True(t, slow.Connected)
	assert.False(t, broken.Connected)
	assert.Equal(t, t0, broken.DisconnectedAt)
	assert.Empty(t, out.sent[gone.ID])
}

func TestFullTickSpawnsAndBroadcasts(t *testing.T) {
	deps, out, events := newDeps(t)
	p := addShip(t, deps.World, vmath.V(25000, 25000))
	l := NewLoop(time.Second/60, deps, DefaultSystems()...)

	l.Step(context.Background(), t0.Add(16*time.Millisecond))

	assert.Equal(t, 3, deps.World.Counts().Enemies)
	spawned := 0
	for _, e := range *events {
		if e.Kind == EnemySpawned {
			spawned++
		}
	}
	assert.Equal(t, 3, spawned)
	for _, e := range deps.World.Enemies() {
		assert.Equal(t, p.ID, e.Target)
	}
	// в первом тике с целью стреляет каждый враг
	assert.Equal(t, 3, deps.World.Counts().Projectiles)
	require.Len(t, out.sent[p.ID], 1)
	gs := out.sent[p.ID][0].(protocol.GameState)
	assert.Len(t, gs.Data.Enemies, 3)
	assert.Len(t, gs.Data.Projectiles, 3)
}

func TestProjectilesExpireThroughLoop(t *testing.T) {
	deps, _, _ := newDeps(t)
	p := addShip(t, deps.World, vmath.V(100, 100))
	p.Inputs.Fire = true
	l := NewLoop(time.Second/60, deps, NewProjectileSystem(), NewShipSystem())

	l.Step(context.Background(), t0)
	require.Equal(t, 1, deps.World.Counts().Projectiles)
	shot := deps.World.Projectiles()[0]
	p.Inputs.Fire = false

	l.Step(context.Background(), t0.Add(deps.Config.Game.ProjectileLifetime))
	_, alive := deps.World.Projectile(shot.ID)
	assert.True(t, alive)

	l.Step(context.Background(), t0.Add(deps.Config.Game.ProjectileLifetime+time.Millisecond))
	_, alive = deps.World.Projectile(shot.ID)
	assert.False(t, alive)
}

func TestEventKindString(t *testing.T) {
	assert.Equal(t, "player_killed", PlayerKilled.String())
	assert.Equal(t, "unknown", EventKind(99).String())
}

func TestStatsLogsOncePerInterval(t *testing.T) {
	deps, _, _ := newDeps(t)
	core, logs := observer.New(zap.InfoLevel)
	deps.Logger = zap.New(core).Sugar()
	addShip(t, deps.World, vmath.V(100, 100))
	l := NewLoop(time.Second, deps, NewStatsSystem())

	l.Step(context.Background(), t0)
	l.Step(context.Background(), t0.Add(59*time.Second))
	assert.Zero(t, logs.FilterMessage("world stats").Len())

	l.Step(context.Background(), t0.Add(time.Minute))
	entries := logs.FilterMessage("world stats").All()
	require.Len(t, entries, 1)
	assert.EqualValues(t, 1, entries[0].ContextMap()["players"])
}
