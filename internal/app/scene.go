package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/annel0/gridcast/internal/editor"
	"github.com/annel0/gridcast/internal/gridmap"
	"github.com/annel0/gridcast/internal/logging"
	"github.com/annel0/gridcast/internal/metrics"
	"github.com/annel0/gridcast/internal/minimap"
	"github.com/annel0/gridcast/internal/observability"
	"github.com/annel0/gridcast/internal/physics"
	"github.com/annel0/gridcast/internal/picking"
	"github.com/annel0/gridcast/internal/render"
	"github.com/annel0/gridcast/internal/render/headless"
	"github.com/annel0/gridcast/internal/storage"
	"github.com/annel0/gridcast/internal/vec"
	"github.com/annel0/gridcast/internal/visibility"
	"go.opentelemetry.io/otel/attribute"
)

var (
	// ErrNoSet набор видимости с таким именем не существует
	ErrNoSet = errors.New("app: visibility set not found")
	// ErrNoStore сцена создана без хранилища
	ErrNoStore = errors.New("app: map store is not configured")
)

const (
	// DefaultSet имя набора видимости основной камеры
	DefaultSet = "main"
	// CameraRadius радиус камеры для проверки столкновений в клетках
	CameraRadius = 0.2
)

// Options параметры сцены
type Options struct {
	Render   render.Options
	Defaults editor.Defaults
	Camera   visibility.Camera // Камера набора DefaultSet
}

// FrameResult итог одного кадра для набора видимости
type FrameResult struct {
	Set      string
	Visible  []int
	Targets  []int
	Stats    visibility.Stats
	Draw     render.DrawStats
	Took     time.Duration
	Minimap  []string
	Collided bool
}

// Scene связывает карту, рендер, движок видимости и редактор.
// Все операции сериализуются мьютексом сцены.
type Scene struct {
	mutex sync.Mutex

	opts      Options
	gridMap   *gridmap.GridMap
	backend   *headless.Backend
	renderer  *render.Renderer
	engine    *visibility.Engine
	editor    *editor.Service
	sets      map[string]*visibility.Set
	store     *storage.MapStore
	collector *metrics.Collector
	logger    *logging.Logger
	mapName   string
}

// NewScene создаёт сцену поверх карты; store и collector могут быть nil
func NewScene(m *gridmap.GridMap, opts Options, store *storage.MapStore, collector *metrics.Collector) *Scene {
	backend := headless.New()
	s := &Scene{
		opts:      opts,
		backend:   backend,
		renderer:  render.NewRenderer(backend, opts.Render, collector),
		sets:      make(map[string]*visibility.Set),
		store:     store,
		collector: collector,
		logger:    logging.GetComponentLogger("scene"),
	}
	s.setMap(m)
	s.sets[DefaultSet] = visibility.NewSet(DefaultSet, opts.Camera)
	return s
}

// setMap заменяет карту и пересобирает все зависимые части
func (s *Scene) setMap(m *gridmap.GridMap) {
	s.gridMap = m
	s.engine = visibility.NewEngine(m, s.renderer.Options().DrawScale)
	s.editor = editor.NewService(m, s.opts.Defaults, s.onDirty)
	s.renderer.Setup(m)
}

func (s *Scene) onDirty(index int) {
	s.renderer.BuildCellGeo(index)
}

// Map возвращает текущую карту
func (s *Scene) Map() *gridmap.GridMap {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.gridMap
}

// View выполняет чтение карты под мьютексом сцены
func (s *Scene) View(fn func(m *gridmap.GridMap)) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	fn(s.gridMap)
}

// Backend возвращает headless-бэкенд рендера
func (s *Scene) Backend() *headless.Backend {
	return s.backend
}

// DrawScale размер клетки в мире
func (s *Scene) DrawScale() float64 {
	return s.renderer.Options().DrawScale
}

// AddSet создаёт или заменяет именованный набор видимости
func (s *Scene) AddSet(name string, cam visibility.Camera) *visibility.Set {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	vs := visibility.NewSet(name, cam)
	s.sets[name] = vs
	return vs
}

// RemoveSet удаляет набор видимости
func (s *Scene) RemoveSet(name string) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	_, ok := s.sets[name]
	delete(s.sets, name)
	return ok
}

// SetNames имена наборов по алфавиту
func (s *Scene) SetNames() []string {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	names := make([]string, 0, len(s.sets))
	for name := range s.sets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SetCamera обновляет камеру набора
func (s *Scene) SetCamera(name string, cam visibility.Camera) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	vs, ok := s.sets[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoSet, name)
	}
	vs.Camera = cam
	return nil
}

// SetDrawEverything включает отрисовку всей карты для набора
func (s *Scene) SetDrawEverything(name string, on bool) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	vs, ok := s.sets[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoSet, name)
	}
	vs.DrawEverything = on
	return nil
}

// Frame считает видимость набора и отправляет видимые грани на отрисовку
func (s *Scene) Frame(ctx context.Context, name string) (FrameResult, error) {
	_, span := observability.Tracer().Start(ctx, "scene.Frame")
	defer span.End()

	s.mutex.Lock()
	defer s.mutex.Unlock()

	vs, ok := s.sets[name]
	if !ok {
		return FrameResult{}, fmt.Errorf("%w: %s", ErrNoSet, name)
	}

	start := time.Now()
	s.engine.ComputeVisibility(vs)
	took := time.Since(start)
	draw := s.renderer.Draw(vs)

	stats := vs.Stats()
	s.collector.ObserveVisibility(name, vs.VisibleCount(), vs.TargetCount(), stats.Splits, took)
	logging.LogVisibility(name, vs.VisibleCount(), vs.TargetCount(), stats.Wedges, took)

	span.SetAttributes(
		attribute.String("set", name),
		attribute.Int("visible", vs.VisibleCount()),
		attribute.Int("targets", vs.TargetCount()),
		attribute.Int("wedges", stats.Wedges),
	)

	collision := physics.CollideWithMap(s.gridMap, s.DrawScale(), vs.Camera.Position, CameraRadius)
	return FrameResult{
		Set:      name,
		Visible:  vs.VisibleCells(),
		Targets:  vs.TargetCells(),
		Stats:    stats,
		Draw:     draw,
		Took:     took,
		Minimap:  minimap.Render(s.gridMap, vs, s.DrawScale(), minimap.DefaultRadius),
		Collided: collision.Hit,
	}, nil
}

// Minimap текстовая миникарта набора с заданным радиусом
func (s *Scene) Minimap(name string, radius int) []string {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	vs, ok := s.sets[name]
	if !ok {
		return nil
	}
	return minimap.Render(s.gridMap, vs, s.DrawScale(), radius)
}

// Pick ищет ближайшую видимую грань под лучом камеры набора
func (s *Scene) Pick(name string, ray *picking.Ray) (picking.Result, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	vs, ok := s.sets[name]
	if !ok {
		return picking.Result{}, fmt.Errorf("%w: %s", ErrNoSet, name)
	}
	r := picking.CameraRay(vs.Camera)
	if ray != nil {
		r = *ray
	}
	return picking.PickVisible(s.renderer, vs, r), nil
}

// Collide проверяет столкновение точки с картой
func (s *Scene) Collide(pos vec.Vec3Float, radius float64) physics.CollisionReport {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return physics.CollideWithMap(s.gridMap, s.DrawScale(), pos, radius)
}

// Faces возвращает грани клетки
func (s *Scene) Faces(index int) []render.Face {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.renderer.Faces(index)
}

// Edit выполняет правку редактором под мьютексом сцены
func (s *Scene) Edit(fn func(ed *editor.Service) ([]int, error)) ([]int, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return fn(s.editor)
}

// Save сохраняет карту в хранилище под именем name
func (s *Scene) Save(name string) (storage.MapInfo, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.store == nil {
		return storage.MapInfo{}, ErrNoStore
	}
	info, err := s.store.Save(name, s.gridMap)
	if err != nil {
		return storage.MapInfo{}, err
	}
	s.mapName = name
	return info, nil
}

// ListMaps перечисляет сохранённые карты
func (s *Scene) ListMaps() ([]storage.MapInfo, error) {
	if s.store == nil {
		return nil, ErrNoStore
	}
	return s.store.List()
}

// Load заменяет карту сцены картой из хранилища
func (s *Scene) Load(name string) (storage.MapInfo, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.store == nil {
		return storage.MapInfo{}, ErrNoStore
	}
	m, info, err := s.store.Load(name)
	if err != nil {
		return storage.MapInfo{}, err
	}
	s.setMap(m)
	s.mapName = name
	s.logger.Info("Карта %s загружена (%dx%d)", name, info.Width, info.Height)
	return info, nil
}

// Export пишет карту в поток
func (s *Scene) Export(w io.Writer, name string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return storage.Encode(w, storage.NewDocument(name, s.gridMap))
}

// Import заменяет карту сцены картой из потока
func (s *Scene) Import(r io.Reader) error {
	doc, err := storage.Decode(r)
	if err != nil {
		return err
	}
	m, err := doc.ToMap()
	if err != nil {
		return err
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.setMap(m)
	s.mapName = doc.Name
	return nil
}

// MapName имя последней сохранённой или загруженной карты
func (s *Scene) MapName() string {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.mapName
}

// Close освобождает геометрию
func (s *Scene) Close() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.renderer.CleanUp()
}
