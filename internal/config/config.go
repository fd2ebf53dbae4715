package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config корневая структура конфигурации приложения.
type Config struct {
	Render    RenderConfig    `yaml:"render"`
	Map       MapConfig       `yaml:"map"`
	Storage   StorageConfig   `yaml:"storage"`
	Server    ServerConfig    `yaml:"server"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// RenderConfig параметры геометрии и освещения
type RenderConfig struct {
	DrawScale      float64    `yaml:"draw_scale"`
	DepthIncrement float64    `yaml:"depth_increment"`
	SunDirection   [3]float64 `yaml:"sun_direction"`
	Ambient        float64    `yaml:"ambient"`
	FloorBoost     float64    `yaml:"floor_boost"`
	CeilingBoost   float64    `yaml:"ceiling_boost"`
	FovX           float64    `yaml:"fov_x"`
}

// MapConfig источник начальной карты
type MapConfig struct {
	Source          string  `yaml:"source"` // generate | image | store
	Name            string  `yaml:"name"`
	Width           int     `yaml:"width"`
	Height          int     `yaml:"height"`
	Seed            int64   `yaml:"seed"`
	SolidThreshold  float64 `yaml:"solid_threshold"`
	ImagePath       string  `yaml:"image_path"`
	DefaultFloor    uint8   `yaml:"default_floor"`
	DefaultCeiling  uint8   `yaml:"default_ceiling"`
	WallMaterial    string  `yaml:"wall_material"`
	FloorMaterial   string  `yaml:"floor_material"`
	CeilingMaterial string  `yaml:"ceiling_material"`
}

// StorageConfig каталог BadgerDB
type StorageConfig struct {
	Path string `yaml:"path"`
}

// ServerConfig сетевые параметры
type ServerConfig struct {
	RESTPort int `yaml:"rest_port"`
}

// TelemetryConfig параметры OpenTelemetry
type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"service_name"`
}

// LoggingConfig уровень и файловый вывод логов
type LoggingConfig struct {
	Level       string `yaml:"level"`
	FileEnabled bool   `yaml:"file_enabled"`
}

// Источники карты
const (
	SourceGenerate = "generate"
	SourceImage    = "image"
	SourceStore    = "store"
)

// Default возвращает конфигурацию по умолчанию
func Default() *Config {
	return &Config{
		Render: RenderConfig{
			DrawScale:      1,
			DepthIncrement: 1.0 / 16,
			SunDirection:   [3]float64{1, -1, 0.5},
			Ambient:        0.25,
			FloorBoost:     5,
			CeilingBoost:   4,
			FovX:           1.2,
		},
		Map: MapConfig{
			Source:          SourceGenerate,
			Name:            "default",
			Width:           32,
			Height:          32,
			Seed:            1,
			SolidThreshold:  0.6,
			DefaultFloor:    0,
			DefaultCeiling:  16,
			WallMaterial:    "textures/wall.png",
			FloorMaterial:   "textures/floor.png",
			CeilingMaterial: "textures/ceiling.png",
		},
		Storage:   StorageConfig{Path: "data"},
		Telemetry: TelemetryConfig{ServiceName: "gridcast"},
		Logging:   LoggingConfig{Level: "INFO"},
	}
}

// Validate проверяет согласованность значений
func (c *Config) Validate() error {
	var errs []error
	if c.Render.DrawScale <= 0 {
		errs = append(errs, fmt.Errorf("render.draw_scale должен быть > 0"))
	}
	if c.Render.DepthIncrement <= 0 {
		errs = append(errs, fmt.Errorf("render.depth_increment должен быть > 0"))
	}
	if c.Render.Ambient < 0 || c.Render.Ambient > 1 {
		errs = append(errs, fmt.Errorf("render.ambient должен быть в [0,1]"))
	}
	switch c.Map.Source {
	case SourceGenerate:
		if c.Map.Width <= 0 || c.Map.Height <= 0 {
			errs = append(errs, fmt.Errorf("map.width и map.height должны быть > 0"))
		}
	case SourceImage:
		if c.Map.ImagePath == "" {
			errs = append(errs, fmt.Errorf("map.image_path обязателен для source=image"))
		}
	case SourceStore:
		if c.Map.Name == "" {
			errs = append(errs, fmt.Errorf("map.name обязателен для source=store"))
		}
	default:
		errs = append(errs, fmt.Errorf("неизвестный map.source: %q", c.Map.Source))
	}
	if c.Map.DefaultFloor == 255 {
		errs = append(errs, fmt.Errorf("map.default_floor 255 зарезервирован для сплошных клеток"))
	}
	return errors.Join(errs...)
}

// GetRESTPort возвращает REST API порт с поддержкой fallback значений
func (s *ServerConfig) GetRESTPort() int {
	return getPortWithEnvFallback(s.RESTPort, "GRIDCAST_REST_PORT", 8088)
}

// getPortWithEnvFallback возвращает порт с приоритетом: config -> env -> default
func getPortWithEnvFallback(configPort int, envVar string, defaultPort int) int {
	// Если порт задан в конфиге и больше 0, используем его
	if configPort > 0 {
		return configPort
	}

	// Пробуем прочитать из environment variable
	if envVal := os.Getenv(envVar); envVal != "" {
		if port, err := strconv.Atoi(envVal); err == nil && port > 0 {
			return port
		}
	}

	// Используем дефолтное значение
	return defaultPort
}

// Load читает YAML файл конфигурации поверх значений по умолчанию.
// Если path == "", пытается прочитать из ENV GRIDCAST_CONFIG или возвращает Default().
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = os.Getenv("GRIDCAST_CONFIG")
		if path == "" {
			return cfg, nil // конфиг не задан, используются дефолты
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("не удалось прочитать конфиг %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("ошибка разбора конфига %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("некорректный конфиг %s: %w", path, err)
	}
	return cfg, nil
}
