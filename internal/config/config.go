// Package config загружает настройки сервера и игры из YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/annelo/starfall-server/internal/physics"
	"github.com/annelo/starfall-server/internal/world"
)

// Config описывает полную конфигурацию сервера.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Transport TransportConfig `yaml:"transport"`
	Game      GameConfig      `yaml:"game"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr"`
	GRPCAddr string `yaml:"grpc_addr"`
	WSPath   string `yaml:"ws_path"`
	// Encoding выбирает кодек: "json" (текстовые кадры) или "msgpack" (бинарные).
	Encoding      string        `yaml:"encoding"`
	ShutdownGrace time.Duration `yaml:"shutdown_grace"`
}

type TransportConfig struct {
	// SendBufferLimit задаёт объём очереди в байтах, выше которого снимок тика пропускается.
	SendBufferLimit int           `yaml:"send_buffer_limit"`
	SendQueueSize   int           `yaml:"send_queue_size"`
	MaxMessageSize  int64         `yaml:"max_message_size"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	MaxConnections  int           `yaml:"max_connections"`
}

type LoggingConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

type ShipConfig struct {
	MaxHealth     float64 `yaml:"max_health"`
	MaxShield     float64 `yaml:"max_shield"`
	ShieldRegen   float64 `yaml:"shield_regen"`
	Speed         float64 `yaml:"speed"`
	RotationSpeed float64 `yaml:"rotation_speed"`
	Damage        float64 `yaml:"damage"`
	Radius        float64 `yaml:"radius"`
}

type EnemyConfig struct {
	SpawnInterval time.Duration `yaml:"spawn_interval"`
	MaxCount      int           `yaml:"max_count"`
	Health        float64       `yaml:"health"`
	Speed         float64       `yaml:"speed"`
	Damage        float64       `yaml:"damage"`
	Radius        float64       `yaml:"radius"`
	ScoreValue    int           `yaml:"score_value"`
	FireInterval  time.Duration `yaml:"fire_interval"`
}

// EnemiesConfig хранит шаблон характеристик для каждого вида врагов.
type EnemiesConfig struct {
	Basic  EnemyConfig `yaml:"basic"`
	Medium EnemyConfig `yaml:"medium"`
	Boss   EnemyConfig `yaml:"boss"`
}

// Of возвращает шаблон для вида k.
func (e EnemiesConfig) Of(k world.EnemyKind) EnemyConfig {
	switch k {
	case world.Medium:
		return e.Medium
	case world.Boss:
		return e.Boss
	default:
		return e.Basic
	}
}

type GameConfig struct {
	TickRate           int           `yaml:"tick_rate"`
	WorldWidth         float64       `yaml:"world_width"`
	WorldHeight        float64       `yaml:"world_height"`
	SpawnRadius        float64       `yaml:"spawn_radius"`
	WeaponCooldown     time.Duration `yaml:"weapon_cooldown"`
	ProjectileSpeed    float64       `yaml:"projectile_speed"`
	ProjectileLifetime time.Duration `yaml:"projectile_lifetime"`
	ProjectileRadius   float64       `yaml:"projectile_radius"`
	MaxProjectiles     int           `yaml:"max_projectiles"`
	DisconnectGrace    time.Duration `yaml:"disconnect_grace"`
	// ContactDamageMultiplier масштабирует урон врага при таране. Ноль означает толчок без урона.
	ContactDamageMultiplier float64       `yaml:"contact_damage_multiplier"`
	PlayerKillScore         int           `yaml:"player_kill_score"`
	MaxNameLength           int           `yaml:"max_name_length"`
	PublicRoomCapacity      int           `yaml:"public_room_capacity"`
	ProjectileWarnThreshold int           `yaml:"projectile_warn_threshold"`
	StatsInterval           time.Duration `yaml:"stats_interval"`
	Ship                    ShipConfig    `yaml:"ship"`
	Enemies                 EnemiesConfig `yaml:"enemies"`
}

// TickInterval возвращает длительность одного шага симуляции.
func (g GameConfig) TickInterval() time.Duration {
	if g.TickRate <= 0 {
		return time.Second / 60
	}
	return time.Second / time.Duration(g.TickRate)
}

// Bounds возвращает игровой прямоугольник.
func (g GameConfig) Bounds() physics.Bounds {
	return physics.Bounds{Width: g.WorldWidth, Height: g.WorldHeight}
}

// Default возвращает конфигурацию по умолчанию.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPAddr:      ":5588",
			GRPCAddr:      ":50051",
			WSPath:        "/game",
			Encoding:      "json",
			ShutdownGrace: 500 * time.Millisecond,
		},
		Transport: TransportConfig{
			SendBufferLimit: 16384,
			SendQueueSize:   256,
			MaxMessageSize:  16 * 1024,
			IdleTimeout:     120 * time.Second,
			MaxConnections:  256,
		},
		Game: GameConfig{
			TickRate:                60,
			WorldWidth:              50000,
			WorldHeight:             50000,
			SpawnRadius:             1000,
			WeaponCooldown:          300 * time.Millisecond,
			ProjectileSpeed:         500,
			ProjectileLifetime:      time.Second,
			ProjectileRadius:        5,
			MaxProjectiles:          100,
			DisconnectGrace:         5 * time.Second,
			ContactDamageMultiplier: 0,
			PlayerKillScore:         10,
			MaxNameLength:           20,
			PublicRoomCapacity:      50,
			ProjectileWarnThreshold: 1000,
			StatsInterval:           time.Minute,
			Ship: ShipConfig{
				MaxHealth:     100,
				MaxShield:     50,
				ShieldRegen:   0.5,
				Speed:         30,
				RotationSpeed: 2,
				Damage:        10,
				Radius:        30,
			},
			Enemies: EnemiesConfig{
				Basic: EnemyConfig{
					SpawnInterval: 5 * time.Second, MaxCount: 1,
					Health: 30, Speed: 60, Damage: 5, Radius: 25, ScoreValue: 5,
					FireInterval: 6 * time.Second,
				},
				Medium: EnemyConfig{
					SpawnInterval: 15 * time.Second, MaxCount: 1,
					Health: 100, Speed: 40, Damage: 10, Radius: 40, ScoreValue: 15,
					FireInterval: 4 * time.Second,
				},
				Boss: EnemyConfig{
					SpawnInterval: 60 * time.Second, MaxCount: 1,
					Health: 500, Speed: 15, Damage: 20, Radius: 80, ScoreValue: 50,
					FireInterval: 3 * time.Second,
				},
			},
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load читает path поверх значений по умолчанию. Пустой путь даёт Default().
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate отклоняет настройки, с которыми симуляция не запустится.
func (c *Config) Validate() error {
	var errs []error
	g := c.Game
	if g.TickRate <= 0 {
		errs = append(errs, errors.New("game.tick_rate must be positive"))
	}
	if g.WorldWidth <= 0 || g.WorldHeight <= 0 {
		errs = append(errs, errors.New("game.world_width and game.world_height must be positive"))
	}
	if g.SpawnRadius < 0 {
		errs = append(errs, errors.New("game.spawn_radius must not be negative"))
	}
	if g.ContactDamageMultiplier < 0 {
		errs = append(errs, errors.New("game.contact_damage_multiplier must not be negative"))
	}
	if g.MaxProjectiles <= 0 {
		errs = append(errs, errors.New("game.max_projectiles must be positive"))
	}
	if g.MaxNameLength <= 0 {
		errs = append(errs, errors.New("game.max_name_length must be positive"))
	}
	for _, k := range world.EnemyKinds {
		e := g.Enemies.Of(k)
		if e.SpawnInterval <= 0 || e.MaxCount < 0 || e.Health <= 0 {
			errs = append(errs, fmt.Errorf("game.enemies.%s: spawn_interval and health must be positive", k))
		}
	}
	switch c.Server.Encoding {
	case "json", "msgpack":
	default:
		errs = append(errs, fmt.Errorf("server.encoding %q: want json or msgpack", c.Server.Encoding))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
