package visibility

import (
	"math"

	"github.com/annel0/gridcast/internal/vec"
)

// NoCell отсутствие конечной клетки луча
const NoCell = -1

// Ray направление луча на плоскости карты и результат его прохода
type Ray struct {
	Dir      vec.Vec2Float
	Terminal int  // Последняя клетка прохода: первая сплошная или крайняя в карте
	Hit      bool // Конечная клетка сплошная
	cast     bool
}

// NewRay создаёт непросчитанный луч
func NewRay(dir vec.Vec2Float) *Ray {
	return &Ray{Dir: dir, Terminal: NoCell}
}

// Cast возвращает true, если луч уже пройден по сетке
func (r *Ray) Cast() bool {
	return r.cast
}

// RaySet угловой сектор между положительным и отрицательным лучом
type RaySet struct {
	Positive *Ray
	Negative *Ray
}

// Center возвращает биссектрису сектора; положительный луч лежит против часовой от отрицательного
func (s RaySet) Center() vec.Vec2Float {
	sum := s.Positive.Dir.Add(s.Negative.Dir)
	if sum.Length() < 1e-9 {
		return s.Negative.Dir.Rotate(math.Pi / 2).Normalized()
	}
	center := sum.Normalized()
	if s.Negative.Dir.Cross(s.Positive.Dir) < 0 {
		// Сектор шире полуокружности
		center = center.Mul(-1)
	}
	return center
}

// Bisect делит сектор на два с общим центральным лучом
func (s RaySet) Bisect() (RaySet, RaySet) {
	center := NewRay(s.Center())
	return RaySet{Positive: s.Positive, Negative: center}, RaySet{Positive: center, Negative: s.Negative}
}

// Dot косинус угла между граничными лучами
func (s RaySet) Dot() float64 {
	return s.Positive.Dir.Dot(s.Negative.Dir)
}

// AngleLimit порог разбиения секторов для карты заданного размера
func AngleLimit(width, height int) float64 {
	maxMapSize := math.Hypot(float64(width), float64(height))
	limitVec := vec.Vec2Float{X: maxMapSize, Y: 0.025}.Normalized()
	return vec.Vec2Float{X: 1, Y: 0}.Dot(limitVec)
}
