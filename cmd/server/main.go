package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"
	yaml "gopkg.in/yaml.v3"

	"github.com/annelo/starfall-server/internal/config"
	"github.com/annelo/starfall-server/internal/logging"
	"github.com/annelo/starfall-server/internal/plugin"
	"github.com/annelo/starfall-server/internal/registry"
	"github.com/annelo/starfall-server/internal/service"
	"github.com/annelo/starfall-server/internal/transport"
)

var (
	configPath = flag.String("config", "", "Путь к YAML-файлу конфигурации")
	port       = flag.Int("port", 0, "Порт HTTP/WebSocket сервера (0 = из конфигурации)")
	grpcPort   = flag.Int("grpc-port", 0, "Порт gRPC health-сервера (0 = из конфигурации)")
	logLevel   = flag.String("log-level", "", "Уровень логирования: debug, info, warn, error")
	noREPL     = flag.Bool("no-repl", false, "Не запускать консоль администратора")
	pluginDir  = flag.String("plugins", "", "Каталог с плагинами .so (пусто = без плагинов)")
)

func main() {
	// Парсим флаги командной строки
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка конфигурации: %v\n", err)
		os.Exit(1)
	}
	// Флаги имеют приоритет над файлом
	if *port != 0 {
		cfg.Server.HTTPAddr = fmt.Sprintf(":%d", *port)
	}
	if *grpcPort != 0 {
		cfg.Server.GRPCAddr = fmt.Sprintf(":%d", *grpcPort)
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Не удалось создать логгер: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	log := logger.Sugar()

	// Контекст для управления сервисными задачами
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 1) Реестр: core-системы тика регистрирует сам сервис
	reg := registry.New()
	reg.SetLogger(log)
	svc := service.New(cfg, reg)
	svc.SetLogger(log)

	// Транспорт
	hub, err := transport.NewHub(cfg, svc, log)
	if err != nil {
		log.Fatalw("Не удалось создать транспорт", "error", err)
	}
	svc.SetOutbox(hub)

	httpServer := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           hub.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// gRPC: health и reflection для инструментов вроде grpcurl
	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		log.Fatalw("Не удалось создать слушателя gRPC", "addr", cfg.Server.GRPCAddr, "error", err)
	}
	grpcServer := grpc.NewServer()
	svc.RegisterServer(grpcServer)
	reflection.Register(grpcServer)

	// Остановка: уведомляем клиентов, ждем grace-период, закрываем всё
	var stopOnce sync.Once
	stopped := make(chan struct{})
	stop := func() {
		stopOnce.Do(func() {
			defer close(stopped)
			log.Infow("Останавливаем сервер", "grace", cfg.Server.ShutdownGrace)
			svc.Shutdown()
			time.Sleep(cfg.Server.ShutdownGrace)
			cancel()
			hub.Close()

			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				log.Warnw("HTTP сервер остановлен с ошибкой", "error", err)
			}
			grpcServer.GracefulStop()
		})
	}

	// Обрабатываем сигналы для корректного завершения
	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-signalChan
		log.Infow("Получен сигнал завершения", "signal", sig.String())
		stop()
	}()

	// 2) Встроенные команды, граница core-регистраций, затем плагины
	registerCommands(reg, svc, cfg, stop)
	pm := plugin.NewManager(*pluginDir, log)
	reg.RegisterCommand("plugins", "List loaded plugins", func(args []string) (string, error) {
		var sb strings.Builder
		for _, meta := range pm.Metas() {
			sb.WriteString(fmt.Sprintf("%s v%s by %s: %s\n", meta.Name, meta.Version, meta.Author, meta.Description))
		}
		return sb.String(), nil
	})
	reg.RegisterCommand("reload", "Reload plugins (hooks and commands only)", func(args []string) (string, error) {
		if *pluginDir == "" {
			return "No plugin directory configured\n", nil
		}
		if err := pm.Reload(reg); err != nil {
			return "", err
		}
		return "Plugins reloaded successfully\n", nil
	})
	reg.MarkCore()
	if *pluginDir != "" {
		if err := pm.Load(reg); err != nil {
			log.Errorw("Ошибка при загрузке плагинов", "dir", *pluginDir, "error", err)
		}
	}

	// 3) Цикл тиков строится из зарегистрированных систем
	svc.Start(ctx)
	if !*noREPL {
		go runREPL(reg)
	}

	go func() {
		if err := grpcServer.Serve(lis); err != nil {
			log.Errorw("Ошибка gRPC сервера", "error", err)
		}
	}()

	log.Infow("Игровой сервер запущен",
		"http", cfg.Server.HTTPAddr,
		"ws", cfg.Server.WSPath,
		"grpc", cfg.Server.GRPCAddr,
		"encoding", cfg.Server.Encoding,
		"tick_rate", cfg.Game.TickRate,
	)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalw("Ошибка запуска сервера", "error", err)
	}
	<-stopped
	log.Info("Сервер остановлен")
}

// registerCommands добавляет встроенные команды консоли администратора
func registerCommands(reg *registry.Registry, svc *service.GameService, cfg *config.Config, stop func()) {
	reg.RegisterCommand("help", "List commands", func(args []string) (string, error) {
		var sb strings.Builder
		for _, cmd := range reg.Commands() {
			sb.WriteString(fmt.Sprintf("%s - %s\n", cmd.Name, cmd.Description))
		}
		return sb.String(), nil
	})
	reg.RegisterCommand("status", "Show entity counts and uptime", func(args []string) (string, error) {
		st := svc.Status()
		return fmt.Sprintf("players=%d projectiles=%d enemies=%d rooms=%d ticks=%d uptime=%s\n",
			st.Players, st.Projectiles, st.Enemies, len(st.Rooms), st.Ticks,
			svc.Uptime().Truncate(time.Second)), nil
	})
	reg.RegisterCommand("rooms", "List rooms", func(args []string) (string, error) {
		var sb strings.Builder
		for _, r := range svc.Rooms() {
			sb.WriteString(fmt.Sprintf("%s %q %d/%d", r.ID, r.Name, r.PlayerCount, r.MaxPlayers))
			if r.Private {
				sb.WriteString(" private")
			}
			sb.WriteString("\n")
		}
		return sb.String(), nil
	})
	reg.RegisterCommand("players", "List ships", func(args []string) (string, error) {
		var sb strings.Builder
		for _, p := range svc.Players() {
			state := "online"
			if !p.Connected {
				state = "offline"
			}
			sb.WriteString(fmt.Sprintf("#%d %s [%s] hp=%.0f shield=%.0f score=%d k/d=%d/%d %s\n",
				p.ID, p.Name, p.Room, p.Health, p.Shield, p.Score, p.Kills, p.Deaths, state))
		}
		return sb.String(), nil
	})
	// Show effective config
	reg.RegisterCommand("config", "Show effective config", func(args []string) (string, error) {
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return "", err
		}
		return string(data), nil
	})
	reg.RegisterCommand("stop", "Stop server", func(args []string) (string, error) {
		go stop()
		return "Server stopping\n", nil
	})
}

// runREPL читает команды администратора из stdin
func runREPL(reg *registry.Registry) {
	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Print("> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		parts := strings.Fields(strings.TrimSpace(line))
		if len(parts) == 0 {
			continue
		}
		cmd, ok := reg.Command(parts[0])
		if !ok {
			fmt.Printf("Неизвестная команда: %s\n", parts[0])
			continue
		}
		out, err := cmd.Handler(parts[1:])
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			continue
		}
		fmt.Print(out)
	}
}
