package visibility

import (
	"sort"

	"github.com/annel0/gridcast/internal/vec"
	"github.com/google/uuid"
)

// Camera точка обзора: позиция, цель и горизонтальный угол обзора в радианах
type Camera struct {
	Position vec.Vec3Float
	Target   vec.Vec3Float
	FovX     float64
}

// ViewDirection нормализованное направление взгляда в плоскости карты
func (c Camera) ViewDirection() vec.Vec2Float {
	return c.Target.Sub(c.Position).Flat().Normalized()
}

// Stats счётчики последнего прохода
type Stats struct {
	Rays     int // Проходов DDA
	Wedges   int // Обработанных секторов
	Splits   int // Разбиений секторов
	MaxQueue int // Максимальная длина очереди
}

// Set состояние видимости для одной камеры
type Set struct {
	ID             uuid.UUID
	Name           string
	Camera         Camera
	DrawEverything bool // Рисовать всю карту, игнорируя видимость
	TraceRays      bool // Сохранять обработанные секторы

	visible map[int]struct{}
	targets map[int]struct{}
	pending []RaySet
	head    int
	trace   []RaySet
	stats   Stats
}

// NewSet создаёт пустой набор видимости
func NewSet(name string, camera Camera) *Set {
	return &Set{
		ID:      uuid.New(),
		Name:    name,
		Camera:  camera,
		visible: make(map[int]struct{}),
		targets: make(map[int]struct{}),
	}
}

// Reset очищает результаты предыдущего прохода
func (s *Set) Reset() {
	clear(s.visible)
	clear(s.targets)
	s.pending = s.pending[:0]
	s.head = 0
	s.trace = s.trace[:0]
	s.stats = Stats{}
}

func (s *Set) addVisible(index int) {
	if _, hit := s.targets[index]; hit {
		return
	}
	s.visible[index] = struct{}{}
}

func (s *Set) addTarget(index int) {
	delete(s.visible, index)
	s.targets[index] = struct{}{}
}

func (s *Set) push(rs RaySet) {
	s.pending = append(s.pending, rs)
	if n := len(s.pending) - s.head; n > s.stats.MaxQueue {
		s.stats.MaxQueue = n
	}
}

func (s *Set) pop() (RaySet, bool) {
	if s.head >= len(s.pending) {
		return RaySet{}, false
	}
	rs := s.pending[s.head]
	s.pending[s.head] = RaySet{}
	s.head++
	return rs, true
}

// Pending количество необработанных секторов
func (s *Set) Pending() int {
	return len(s.pending) - s.head
}

// IsVisible проверяет, видима ли открытая клетка
func (s *Set) IsVisible(index int) bool {
	_, ok := s.visible[index]
	return ok
}

// IsTarget проверяет, попал ли луч в сплошную клетку
func (s *Set) IsTarget(index int) bool {
	_, ok := s.targets[index]
	return ok
}

// VisibleCount количество видимых клеток
func (s *Set) VisibleCount() int { return len(s.visible) }

// TargetCount количество клеток-целей
func (s *Set) TargetCount() int { return len(s.targets) }

// VisibleCells возвращает отсортированные индексы видимых клеток
func (s *Set) VisibleCells() []int {
	return sortedKeys(s.visible)
}

// TargetCells возвращает отсортированные индексы клеток-целей
func (s *Set) TargetCells() []int {
	return sortedKeys(s.targets)
}

// Trace возвращает обработанные секторы последнего прохода
func (s *Set) Trace() []RaySet {
	return s.trace
}

// Stats возвращает счётчики последнего прохода
func (s *Set) Stats() Stats {
	return s.stats
}

func sortedKeys(m map[int]struct{}) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
