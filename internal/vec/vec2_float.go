package vec

import "math"

// Vec2Float представляет 2D координаты с плавающей точкой
type Vec2Float struct {
	X, Y float64
}

// Floor возвращает клетку, в которой лежит точка (округление вниз)
func (v Vec2Float) Floor() Vec2 {
	return Vec2{X: int(math.Floor(v.X)), Y: int(math.Floor(v.Y))}
}

// FromVec2 создает Vec2Float из Vec2
func FromVec2(v Vec2) Vec2Float {
	return Vec2Float{X: float64(v.X), Y: float64(v.Y)}
}

// Add складывает два вектора
func (v Vec2Float) Add(other Vec2Float) Vec2Float {
	return Vec2Float{X: v.X + other.X, Y: v.Y + other.Y}
}

// Sub вычитает вектор
func (v Vec2Float) Sub(other Vec2Float) Vec2Float {
	return Vec2Float{X: v.X - other.X, Y: v.Y - other.Y}
}

// Mul умножает вектор на скаляр
func (v Vec2Float) Mul(scalar float64) Vec2Float {
	return Vec2Float{X: v.X * scalar, Y: v.Y * scalar}
}

// Dot возвращает скалярное произведение
func (v Vec2Float) Dot(other Vec2Float) float64 {
	return v.X*other.X + v.Y*other.Y
}

// Rotate поворачивает вектор на угол в радианах против часовой стрелки
func (v Vec2Float) Rotate(angle float64) Vec2Float {
	sin, cos := math.Sincos(angle)
	return Vec2Float{
		X: v.X*cos - v.Y*sin,
		Y: v.X*sin + v.Y*cos,
	}
}

// Normalized возвращает нормализованный вектор
func (v Vec2Float) Normalized() Vec2Float {
	length := v.Length()
	if length == 0 {
		return Vec2Float{X: 0, Y: 0}
	}
	return Vec2Float{X: v.X / length, Y: v.Y / length}
}

// Length возвращает длину вектора
func (v Vec2Float) Length() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y)
}

// IsZero проверяет, что вектор нулевой
func (v Vec2Float) IsZero() bool {
	return v.X == 0 && v.Y == 0
}

// IsFinite проверяет отсутствие NaN и бесконечностей
func (v Vec2Float) IsFinite() bool {
	return !math.IsNaN(v.X) && !math.IsNaN(v.Y) && !math.IsInf(v.X, 0) && !math.IsInf(v.Y, 0)
}

// DistanceTo вычисляет расстояние до другой точки
func (v Vec2Float) DistanceTo(other Vec2Float) float64 {
	dx := v.X - other.X
	dy := v.Y - other.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// Cross возвращает z-компоненту векторного произведения
func (v Vec2Float) Cross(other Vec2Float) float64 {
	return v.X*other.Y - v.Y*other.X
}
