package combat

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annelo/starfall-server/internal/config"
	"github.com/annelo/starfall-server/internal/physics"
	"github.com/annelo/starfall-server/internal/vmath"
	"github.com/annelo/starfall-server/internal/world"
)

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	w   *world.Store
	cfg config.GameConfig
	r   *Resolver
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	g := config.Default().Game
	return &fixture{
		w:   world.NewStore(g.PublicRoomCapacity, t0),
		cfg: g,
		r:   NewResolver(g, rand.New(rand.NewSource(9))),
	}
}

func (f *fixture) ship(t *testing.T, name string, at vmath.Vec2) *world.Player {
	t.Helper()
	p, err := f.w.AddPlayer(&world.Player{
		Kinetics:  physics.Kinetics{Pos: at, Radius: f.cfg.Ship.Radius},
		Name:      name,
		Health:    100,
		MaxHealth: 100,
		Shield:    50,
		MaxShield: 50,
		Connected: true,
	})
	require.NoError(t, err)
	return p
}

func (f *fixture) enemy(k world.EnemyKind, at vmath.Vec2) *world.Enemy {
	tpl := f.cfg.Enemies.Of(k)
	return f.w.AddEnemy(&world.Enemy{
		Kinetics:   physics.Kinetics{Pos: at, Radius: tpl.Radius},
		Kind:       k,
		Health:     tpl.Health,
		MaxHealth:  tpl.Health,
		Damage:     tpl.Damage,
		ScoreValue: tpl.ScoreValue,
	})
}

// shot ставит неподвижный снаряд в точку a.
func (f *fixture) shot(at vmath.Vec2, damage float64, owner *world.Player, enemy *world.Enemy) *world.Projectile {
	p := world.NewProjectile(world.Shot{Origin: at, Damage: damage, Radius: 5, Lifetime: time.Second}, t0)
	p.Room = world.PublicRoom
	if owner != nil {
		p.OwnerPlayer = owner.ID
	}
	if enemy != nil {
		p.EnemyFired = true
		p.OwnerEnemy = enemy.ID
	}
	return f.w.AddProjectile(p)
}

func TestExpiredShotsRemovedBeforeCollision(t *testing.T) {
	f := newFixture(t)
	a := f.ship(t, "a", vmath.V(100, 100))
	b := f.ship(t, "b", vmath.V(500, 500))
	p := f.shot(b.Pos, 10, a, nil)

	rep := f.r.Projectiles(f.w, t0.Add(time.Second))
	assert.Equal(t, 0, rep.Expired, "still alive at exactly the expiry time")
	assert.Equal(t, 40.0, b.Shield)

	f.shot(b.Pos, 10, a, nil)
	rep = f.r.Projectiles(f.w, t0.Add(time.Second+time.Millisecond))
	assert.Equal(t, 1, rep.Expired)
	_, ok := f.w.Projectile(p.ID)
	assert.False(t, ok)
}

func TestExpiryProperty(t *testing.T) {
	f := newFixture(t)
	a := f.ship(t, "a", vmath.V(100, 100))
	p := f.shot(vmath.V(5000, 5000), 10, a, nil)

	f.r.Projectiles(f.w, t0.Add(time.Second-time.Millisecond))
	_, ok := f.w.Projectile(p.ID)
	assert.True(t, ok)

	f.r.Projectiles(f.w, t0.Add(time.Second+time.Millisecond))
	_, ok = f.w.Projectile(p.ID)
	assert.False(t, ok)
	assert.Zero(t, f.w.OutstandingShots(a.ID))
}

func TestOrphanedShotsDiscarded(t *testing.T) {
	f := newFixture(t)
	a := f.ship(t, "a", vmath.V(100, 100))
	b := f.ship(t, "b", vmath.V(500, 500))
	f.shot(b.Pos, 10, a, nil)
	a.Disconnect(t0)

	rep := f.r.Projectiles(f.w, t0.Add(16*time.Millisecond))
	assert.Equal(t, 1, rep.Orphaned)
	assert.Equal(t, 50.0, b.Shield, "no collision processing")
	assert.Zero(t, f.w.Counts().Projectiles)
}

func TestPlayerKillAwardsScoreAndRespawns(t *testing.T) {
	f := newFixture(t)
	a := f.ship(t, "ace", vmath.V(100, 100))
	b := f.ship(t, "b", vmath.V(500, 500))
	b.Health, b.Shield = 5, 0
	f.shot(b.Pos, 10, a, nil)

	rep := f.r.Projectiles(f.w, t0.Add(16*time.Millisecond))
	require.Len(t, rep.Kills, 1)
	assert.Equal(t, Kill{Victim: b.ID, Killer: a.ID, KillerName: "ace"}, rep.Kills[0])
	assert.Equal(t, 10, a.Score)
	assert.Equal(t, 1, a.Kills)
	assert.Equal(t, 1, b.Deaths)
	assert.Equal(t, b.MaxHealth, b.Health)
	assert.Equal(t, b.MaxShield, b.Shield)
	assert.Zero(t, f.w.Counts().Projectiles)
}

func TestShotNeverHitsItsShooter(t *testing.T) {
	f := newFixture(t)
	a := f.ship(t, "a", vmath.V(100, 100))
	f.shot(a.Pos, 10, a, nil)

	f.r.Projectiles(f.w, t0.Add(16*time.Millisecond))
	assert.Equal(t, 50.0, a.Shield)
	assert.Equal(t, 1, f.w.Counts().Projectiles)
}

func TestShotKillsEnemyAndScores(t *testing.T) {
	f := newFixture(t)
	a := f.ship(t, "a", vmath.V(100, 100))
	e := f.enemy(world.Basic, vmath.V(900, 900))
	f.shot(e.Pos, 20, a, nil)
	f.shot(e.Pos, 20, a, nil)

	rep := f.r.Resolve(f.w)
	require.Len(t, rep.Destroyed, 1)
	assert.Equal(t, a.ID, rep.Destroyed[0].Shooter)
	assert.Equal(t, e.ScoreValue, a.Score)
	_, ok := f.w.Enemy(e.ID)
	assert.False(t, ok)
	assert.Zero(t, f.w.Counts().Projectiles, "each shot hits once")
}

func TestShotHitsOnlyFirstEnemy(t *testing.T) {
	f := newFixture(t)
	a := f.ship(t, "a", vmath.V(100, 100))
	e1 := f.enemy(world.Boss, vmath.V(900, 900))
	e2 := f.enemy(world.Boss, vmath.V(905, 900))
	f.shot(vmath.V(902, 900), 10, a, nil)

	f.r.Resolve(f.w)
	assert.Equal(t, e1.MaxHealth-10, e1.Health)
	assert.Equal(t, e2.MaxHealth, e2.Health)
}

func TestEnemyShotAbsorbedByShield(t *testing.T) {
	f := newFixture(t)
	b := f.ship(t, "b", vmath.V(500, 500))
	e := f.enemy(world.Medium, vmath.V(5000, 5000))
	f.shot(b.Pos, 30, nil, e)

	rep := f.r.Resolve(f.w)
	assert.Empty(t, rep.Kills)
	assert.Equal(t, 20.0, b.Shield)
	assert.Equal(t, 100.0, b.Health)
	assert.Zero(t, f.w.Counts().Projectiles)
}

func TestEnemyShotKillRespawns(t *testing.T) {
	f := newFixture(t)
	b := f.ship(t, "b", vmath.V(500, 500))
	b.Health, b.Shield = 10, 5
	e := f.enemy(world.Boss, vmath.V(5000, 5000))
	f.shot(b.Pos, 20, nil, e)

	rep := f.r.Resolve(f.w)
	require.Len(t, rep.Kills, 1)
	assert.Equal(t, e.ID, rep.Kills[0].Enemy)
	assert.Zero(t, rep.Kills[0].Killer)
	assert.Equal(t, 1, b.Deaths)
	assert.Equal(t, 100.0, b.Health)
}

func TestEnemyShotsSpareEnemies(t *testing.T) {
	f := newFixture(t)
	e := f.enemy(world.Boss, vmath.V(5000, 5000))
	other := f.enemy(world.Basic, vmath.V(3000, 3000))
	f.shot(other.Pos, 20, nil, e)

	f.r.Resolve(f.w)
	assert.Equal(t, other.MaxHealth, other.Health)
	assert.Equal(t, 1, f.w.Counts().Projectiles)
}

func TestContactDefaultIsHarmlessButSeparates(t *testing.T) {
	f := newFixture(t)
	b := f.ship(t, "b", vmath.V(500, 500))
	e := f.enemy(world.Basic, vmath.V(510, 500))

	f.r.Resolve(f.w)
	assert.Equal(t, 50.0, b.Shield)
	assert.Equal(t, 100.0, b.Health)
	assert.InDelta(t, 555, e.Pos.X, 1e-9)
	assert.False(t, physics.Overlaps(e, b))
}

func TestContactMultiplierApplies(t *testing.T) {
	f := newFixture(t)
	f.cfg.ContactDamageMultiplier = 2
	f.r = NewResolver(f.cfg, rand.New(rand.NewSource(1)))
	b := f.ship(t, "b", vmath.V(500, 500))
	f.enemy(world.Medium, vmath.V(520, 500))

	f.r.Resolve(f.w)
	assert.Equal(t, 30.0, b.Shield)
}
