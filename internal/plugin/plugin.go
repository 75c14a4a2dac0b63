// Package plugin загружает Go-плагины, которые дополняют реестр хуками,
// командами администратора и системами тика.
package plugin

import (
	"encoding/json"
	"errors"
	"expvar"
	"fmt"
	"os"
	"path/filepath"
	pluginpkg "plugin"
	"strings"
	"sync"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/annelo/starfall-server/internal/registry"
)

// APIVersion задаёт версию API, которую должен объявить файл метаданных.
const APIVersion = "1"

// Meta читается из файла рядом с плагином: <name>.json,
// <name>.yaml или <name>.yml.
type Meta struct {
	Name        string `json:"name" yaml:"name"`
	Version     string `json:"version" yaml:"version"`
	Author      string `json:"author" yaml:"author"`
	Description string `json:"description" yaml:"description"`
}

// ConfigLoader декодирует <name>.yaml плагина в dst. Если файла нет,
// dst не меняется.
type ConfigLoader func(dst any) error

// RegisterFunc задаёт сигнатуру экспортируемого символа Register.
type RegisterFunc func(reg *registry.Registry, load ConfigLoader)

var (
	pluginLoadCount  = expvar.NewInt("plugins_loaded")
	pluginSkipCount  = expvar.NewInt("plugins_skipped")
	pluginErrorCount = expvar.NewInt("plugins_errors")
)

// Manager загружает плагины из Dir.
type Manager struct {
	Dir string

	logger *zap.SugaredLogger
	// mu упорядочивает Load, Unload и Reload.
	mu    sync.Mutex
	metas []Meta
}

func NewManager(dir string, logger *zap.SugaredLogger) *Manager {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Manager{Dir: dir, logger: logger.Named("plugin")}
}

// Metas возвращает метаданные загруженных плагинов.
func (m *Manager) Metas() []Meta {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Meta(nil), m.metas...)
}

// Load открывает каждый .so в Dir и вызывает его функцию Register. Плагины,
// чьи метаданные объявляют другую версию API, пропускаются.
func (m *Manager) Load(reg *registry.Registry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.load(reg)
}

func (m *Manager) load(reg *registry.Registry) error {
	entries, err := os.ReadDir(m.Dir)
	if err != nil {
		pluginErrorCount.Add(1)
		return fmt.Errorf("cannot read plugin directory %s: %w", m.Dir, err)
	}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".so" {
			continue
		}
		base := strings.TrimSuffix(e.Name(), ".so")
		meta, err := readMeta(m.Dir, base)
		if err != nil {
			m.logger.Warnw("bad plugin metadata", "plugin", base, "error", err)
		}
		if meta.Version != APIVersion {
			m.logger.Warnw("skipping plugin, version mismatch",
				"plugin", base, "got", meta.Version, "want", APIVersion)
			pluginSkipCount.Add(1)
			continue
		}

		path := filepath.Join(m.Dir, e.Name())
		p, err := pluginpkg.Open(path)
		if err != nil {
			pluginErrorCount.Add(1)
			return fmt.Errorf("failed to open plugin %s: %w", path, err)
		}
		sym, err := p.Lookup("Register")
		if err != nil {
			pluginErrorCount.Add(1)
			m.logger.Warnw("no Register symbol", "plugin", path, "error", err)
			continue
		}
		register, ok := sym.(func(*registry.Registry, ConfigLoader))
		if !ok {
			pluginErrorCount.Add(1)
			m.logger.Warnw("invalid Register signature", "plugin", path)
			continue
		}
		if m.register(reg, RegisterFunc(register), meta, base) {
			pluginLoadCount.Add(1)
		}
	}
	return nil
}

// register вызывает fn с перехватом паники и при успехе запоминает meta.
func (m *Manager) register(reg *registry.Registry, fn RegisterFunc, meta Meta, base string) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			pluginErrorCount.Add(1)
			m.logger.Errorw("panic in plugin Register", "plugin", base, "panic", r)
			ok = false
		}
	}()
	fn(reg, configLoader(m.Dir, base))
	m.metas = append(m.metas, meta)
	m.logger.Infow("plugin loaded", "name", meta.Name, "version", meta.Version, "author", meta.Author)
	reg.Fire(registry.HookPluginLoaded, meta.Name)
	return true
}

// Unload вызывает хук выгрузки для каждого плагина и забывает их.
func (m *Manager) Unload(reg *registry.Registry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unload(reg)
}

func (m *Manager) unload(reg *registry.Registry) {
	for _, meta := range m.metas {
		reg.Fire(registry.HookPluginUnloaded, meta.Name)
	}
	m.metas = nil
}

// Reload выгружает плагины, сбрасывает всё, что зарегистрировано после
// MarkCore, и загружает плагины заново.
func (m *Manager) Reload(reg *registry.Registry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unload(reg)
	reg.Reset()
	return m.load(reg)
}

func readMeta(dir, base string) (Meta, error) {
	for _, ext := range []string{".json", ".yaml", ".yml"} {
		path := filepath.Join(dir, base+ext)
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var meta Meta
		if ext == ".json" {
			err = json.Unmarshal(data, &meta)
		} else {
			err = yaml.Unmarshal(data, &meta)
		}
		if err != nil {
			return Meta{}, fmt.Errorf("parse %s: %w", path, err)
		}
		if meta.Name == "" {
			meta.Name = base
		}
		return meta, nil
	}
	return Meta{Name: base}, nil
}

func configLoader(dir, base string) ConfigLoader {
	return func(dst any) error {
		path := filepath.Join(dir, base+".yaml")
		data, err := os.ReadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, dst); err != nil {
			return fmt.Errorf("parse config file %s: %w", path, err)
		}
		return nil
	}
}
