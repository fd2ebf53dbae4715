package gridmap

import "github.com/annel0/gridcast/internal/vec"

// Direction задаёт одну из шести граней клетки
type Direction uint8

const (
	ZNeg Direction = iota // север
	ZPos                  // юг
	XPos                  // восток
	XNeg                  // запад
	YNeg                  // пол
	YPos                  // потолок
)

// DirectionCount количество направлений
const DirectionCount = 6

// HorizontalDirections четыре соседа по плоскости
var HorizontalDirections = [4]Direction{ZNeg, ZPos, XPos, XNeg}

// AllDirections все шесть направлений в порядке объявления
var AllDirections = [DirectionCount]Direction{ZNeg, ZPos, XPos, XNeg, YNeg, YPos}

var directionNames = [DirectionCount]string{"ZNeg", "ZPos", "XPos", "XNeg", "YNeg", "YPos"}

// String возвращает имя направления
func (d Direction) String() string {
	if int(d) < len(directionNames) {
		return directionNames[d]
	}
	return "Unknown"
}

// ParseDirection разбирает имя направления
func ParseDirection(s string) (Direction, bool) {
	for i, name := range directionNames {
		if name == s {
			return Direction(i), true
		}
	}
	return 0, false
}

// IsHorizontal возвращает true для стен
func (d Direction) IsHorizontal() bool {
	return d <= XNeg
}

// Offset возвращает смещение соседней клетки в координатах сетки
func (d Direction) Offset() vec.Vec2 {
	switch d {
	case ZNeg:
		return vec.Vec2{X: 0, Y: -1}
	case ZPos:
		return vec.Vec2{X: 0, Y: 1}
	case XPos:
		return vec.Vec2{X: 1, Y: 0}
	case XNeg:
		return vec.Vec2{X: -1, Y: 0}
	}
	return vec.Vec2{}
}

// Opposite возвращает противоположное направление
func (d Direction) Opposite() Direction {
	switch d {
	case ZNeg:
		return ZPos
	case ZPos:
		return ZNeg
	case XPos:
		return XNeg
	case XNeg:
		return XPos
	case YNeg:
		return YPos
	}
	return YNeg
}
