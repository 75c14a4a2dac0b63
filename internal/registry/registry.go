// Package registry собирает игровые системы, команды администратора и хуки
// событий работающего сервера.
package registry

import (
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/annelo/starfall-server/internal/gameloop"
)

// HookType называет хук события.
type HookType string

const (
	HookPlayerConnected    HookType = "PlayerConnected"
	HookPlayerDisconnected HookType = "PlayerDisconnected"
	HookPlayerRenamed      HookType = "PlayerRenamed"
	HookPlayerKilled       HookType = "PlayerKilled"
	HookPlayerReaped       HookType = "PlayerReaped"
	HookEnemySpawned       HookType = "EnemySpawned"
	HookEnemyDestroyed     HookType = "EnemyDestroyed"
	HookRoomCreated        HookType = "RoomCreated"
	HookServerShutdown     HookType = "ServerShutdown"
	HookPluginLoaded       HookType = "PluginLoaded"
	HookPluginUnloaded     HookType = "PluginUnloaded"
)

// HookFunc обрабатывает хук. Содержимое args зависит от события.
type HookFunc func(args ...any)

// CommandFunc обрабатывает команду администратора.
type CommandFunc func(args []string) (string, error)

// CommandRegistration описывает одну команду администратора.
type CommandRegistration struct {
	Name        string
	Description string
	Handler     CommandFunc
}

// Registry безопасен для конкурентного использования.
type Registry struct {
	mu sync.RWMutex

	systems  []gameloop.System
	commands []CommandRegistration
	hooks    map[HookType][]HookFunc

	// размеры на момент MarkCore
	coreSystems  int
	coreCommands int
	coreHooks    map[HookType][]HookFunc

	logger *zap.SugaredLogger
}

func New() *Registry {
	return &Registry{
		hooks:  make(map[HookType][]HookFunc),
		logger: zap.NewNop().Sugar(),
	}
}

// SetLogger задаёт логгер для сообщений о паниках в хуках.
func (r *Registry) SetLogger(l *zap.SugaredLogger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if l != nil {
		r.logger = l.Named("registry")
	}
}

// RegisterGameSystem добавляет sys в конец порядка тика.
func (r *Registry) RegisterGameSystem(sys gameloop.System) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.systems = append(r.systems, sys)
}

// GameSystems возвращает системы в порядке регистрации.
func (r *Registry) GameSystems() []gameloop.System {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]gameloop.System(nil), r.systems...)
}

func (r *Registry) RegisterHook(hook HookType, fn HookFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks[hook] = append(r.hooks[hook], fn)
}

func (r *Registry) Hooks(hook HookType) []HookFunc {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]HookFunc(nil), r.hooks[hook]...)
}

// Fire по порядку вызывает все обработчики hook. Паника в обработчике
// логируется и не мешает остальным.
func (r *Registry) Fire(hook HookType, args ...any) {
	for _, h := range r.Hooks(hook) {
		func() {
			defer func() {
				if rec := recover(); rec != nil {
					r.mu.RLock()
					r.logger.Errorw("hook panic", "hook", hook, "panic", rec)
					r.mu.RUnlock()
				}
			}()
			h(args...)
		}()
	}
}

// RegisterCommand добавляет команду администратора. Более поздняя
// регистрация с тем же именем перекрывает прежнюю.
func (r *Registry) RegisterCommand(name, description string, handler CommandFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands = append(r.commands, CommandRegistration{Name: name, Description: description, Handler: handler})
}

// Commands возвращает по одной регистрации на имя, отсортированные по имени.
func (r *Registry) Commands() []CommandRegistration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	byName := make(map[string]CommandRegistration, len(r.commands))
	for _, c := range r.commands {
		byName[c.Name] = c
	}
	out := make([]CommandRegistration, 0, len(byName))
	for _, c := range byName {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Command ищет самую новую регистрацию для name.
func (r *Registry) Command(name string) (CommandRegistration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i := len(r.commands) - 1; i >= 0; i-- {
		if r.commands[i].Name == name {
			return r.commands[i], true
		}
	}
	return CommandRegistration{}, false
}

// MarkCore запоминает текущие регистрации как встроенные.
func (r *Registry) MarkCore() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.coreSystems = len(r.systems)
	r.coreCommands = len(r.commands)
	r.coreHooks = make(map[HookType][]HookFunc, len(r.hooks))
	for k, v := range r.hooks {
		r.coreHooks[k] = append([]HookFunc(nil), v...)
	}
}

// Reset сбрасывает всё, что зарегистрировано после MarkCore.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.coreSystems <= len(r.systems) {
		r.systems = r.systems[:r.coreSystems]
	}
	if r.coreCommands <= len(r.commands) {
		r.commands = r.commands[:r.coreCommands]
	}
	r.hooks = make(map[HookType][]HookFunc, len(r.coreHooks))
	for k, v := range r.coreHooks {
		r.hooks[k] = append([]HookFunc(nil), v...)
	}
}
