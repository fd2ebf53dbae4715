package vec

import "math"

// Vec3Float представляет трехмерный вектор мира (Y направлен вверх)
type Vec3Float struct {
	X float64
	Y float64
	Z float64
}

// Sub вычитает вектор
func (v Vec3Float) Sub(other Vec3Float) Vec3Float {
	return Vec3Float{X: v.X - other.X, Y: v.Y - other.Y, Z: v.Z - other.Z}
}

// Add складывает два вектора
func (v Vec3Float) Add(other Vec3Float) Vec3Float {
	return Vec3Float{X: v.X + other.X, Y: v.Y + other.Y, Z: v.Z + other.Z}
}

// Mul умножает вектор на скаляр
func (v Vec3Float) Mul(scalar float64) Vec3Float {
	return Vec3Float{X: v.X * scalar, Y: v.Y * scalar, Z: v.Z * scalar}
}

// Length возвращает длину вектора
func (v Vec3Float) Length() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Normalized возвращает нормализованный вектор
func (v Vec3Float) Normalized() Vec3Float {
	length := v.Length()
	if length == 0 {
		return Vec3Float{}
	}
	return v.Mul(1 / length)
}

// Dot возвращает скалярное произведение
func (v Vec3Float) Dot(other Vec3Float) float64 {
	return v.X*other.X + v.Y*other.Y + v.Z*other.Z
}

// Flat проецирует вектор на горизонтальную плоскость (X, Z)
func (v Vec3Float) Flat() Vec2Float {
	return Vec2Float{X: v.X, Y: v.Z}
}
