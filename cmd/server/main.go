package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/annel0/gridcast/internal/api"
	"github.com/annel0/gridcast/internal/app"
	"github.com/annel0/gridcast/internal/config"
	"github.com/annel0/gridcast/internal/logging"
	"github.com/annel0/gridcast/internal/metrics"
	"github.com/annel0/gridcast/internal/observability"
	"github.com/annel0/gridcast/internal/storage"
)

func main() {
	configPath := flag.String("config", "", "Путь к YAML конфигурации (или GRIDCAST_CONFIG)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Ошибка загрузки конфигурации: %v", err)
	}

	// Логирование: уровень и файловый вывод из конфигурации
	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		log.Fatalf("❌ Неверный уровень логов: %v", err)
	}
	logging.SetDefaultLevel(level)
	if cfg.Logging.FileEnabled {
		logging.FileOutput = true
		if err := logging.InitDefaultLogger("server"); err != nil {
			log.Fatalf("❌ Ошибка инициализации логирования: %v", err)
		}
		logging.SetDefaultLevel(level)
	}
	defer logging.CloseDefaultLogger()
	defer logging.GetLoggerManager().CloseAll()

	logging.Info("🎮 Запуск gridcast сервера...")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// === ТЕЛЕМЕТРИЯ ===
	if cfg.Telemetry.Enabled {
		shutdown, err := observability.InitTelemetry(ctx, cfg.Telemetry.ServiceName)
		if err != nil {
			logging.Warn("OpenTelemetry недоступен: %v", err)
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logging.Warn("Ошибка остановки OpenTelemetry: %v", err)
				}
			}()
		}
	}

	// === ХРАНИЛИЩЕ ===
	store, err := storage.NewMapStore(cfg.Storage.Path)
	if err != nil {
		logging.Error("❌ Ошибка открытия хранилища: %v", err)
		os.Exit(1)
	}
	defer store.Close()

	gcStop := make(chan struct{})
	go store.RunGC(10*time.Minute, gcStop)
	defer close(gcStop)

	// === СЦЕНА ===
	m, err := app.BuildMap(cfg, store)
	if err != nil {
		logging.Error("❌ Ошибка построения карты (%s): %v", cfg.Map.Source, err)
		os.Exit(1)
	}
	opts := app.OptionsFromConfig(cfg)
	opts.Camera = app.PlaceCamera(m, opts.Camera, opts.Render)

	collector := metrics.NewCollector("gridcast", nil)
	scene := app.NewScene(m, opts, store, collector)
	defer scene.Close()
	logging.Info("🗺️  Карта %dx%d готова (источник %s)", m.Width(), m.Height(), cfg.Map.Source)

	// === REST API ===
	restPort := fmt.Sprintf(":%d", cfg.Server.GetRESTPort())
	server := api.NewRestServer(api.Config{
		Port:        restPort,
		Scene:       scene,
		ServiceName: cfg.Telemetry.ServiceName,
	})

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	logging.Info("✅ Сервер запущен")
	logging.Info("   🌐 REST API: http://localhost%s", restPort)
	logging.Info("   ❤️  Health check: http://localhost%s/health", restPort)
	logging.Info("   📈 Metrics: http://localhost%s/metrics", restPort)

	select {
	case <-ctx.Done():
		logging.Info("📡 Получен сигнал завершения, остановка...")
	case err := <-errCh:
		if err != nil {
			logging.Error("❌ Ошибка REST API: %v", err)
		}
	}

	// === GRACEFUL SHUTDOWN ===
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Stop(shutdownCtx); err != nil {
		logging.Error("❌ Ошибка остановки REST API: %v", err)
	}

	logging.Info("👋 Сервер успешно остановлен")
}
