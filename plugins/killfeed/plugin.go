// Command killfeed реализует плагин сервера, который хранит последние убийства и
// показывает их командой администратора "killfeed".
//
//	go build -buildmode=plugin -o plugins/killfeed/killfeed.so ./plugins/killfeed
package main

import (
	"fmt"
	"strings"
	"sync"

	"github.com/annelo/starfall-server/internal/plugin"
	"github.com/annelo/starfall-server/internal/registry"
	"github.com/annelo/starfall-server/internal/world"
)

type Config struct {
	Size int `yaml:"size"`
}

type entry struct {
	victim world.PlayerID
	killer world.PlayerID
	enemy  string
}

func (e entry) String() string {
	switch {
	case e.killer != 0:
		return fmt.Sprintf("#%d shot down #%d", e.killer, e.victim)
	case e.enemy != "":
		return fmt.Sprintf("%s destroyed #%d", e.enemy, e.victim)
	default:
		return fmt.Sprintf("#%d went down", e.victim)
	}
}

// feed хранит кольцо убийств фиксированного размера, новые в конце.
type feed struct {
	mu      sync.Mutex
	size    int
	entries []entry
}

func (f *feed) add(e entry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, e)
	if len(f.entries) > f.size {
		f.entries = f.entries[len(f.entries)-f.size:]
	}
}

func (f *feed) render() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.entries) == 0 {
		return "no kills yet\n"
	}
	var sb strings.Builder
	for _, e := range f.entries {
		sb.WriteString(e.String())
		sb.WriteString("\n")
	}
	return sb.String()
}

// Register находит и вызывает менеджер плагинов.
func Register(reg *registry.Registry, load plugin.ConfigLoader) {
	cfg := Config{Size: 10}
	if err := load(&cfg); err != nil {
		panic(err)
	}
	if cfg.Size <= 0 {
		cfg.Size = 10
	}
	f := &feed{size: cfg.Size}

	// args: жертва, убийца, id врага
	reg.RegisterHook(registry.HookPlayerKilled, func(args ...any) {
		if len(args) != 3 {
			return
		}
		victim, _ := args[0].(world.PlayerID)
		killer, _ := args[1].(world.PlayerID)
		enemy, _ := args[2].(string)
		f.add(entry{victim: victim, killer: killer, enemy: enemy})
	})
	reg.RegisterCommand("killfeed", "Show recent kills", func(args []string) (string, error) {
		return f.render(), nil
	})
}

func main() {}
