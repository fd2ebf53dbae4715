package physics

import (
	"math"

	"github.com/annel0/gridcast/internal/gridmap"
	"github.com/annel0/gridcast/internal/vec"
)

// Bounds прямоугольник в мировой плоскости XZ
type Bounds struct {
	MinX, MinZ float64
	MaxX, MaxZ float64
}

// CellBounds возвращает границы клетки в мировых координатах
func CellBounds(cell *gridmap.Cell, drawScale float64) Bounds {
	x := float64(cell.Position.X) * drawScale
	z := float64(cell.Position.Y) * drawScale
	return Bounds{MinX: x, MinZ: z, MaxX: x + drawScale, MaxZ: z + drawScale}
}

// Expand расширяет прямоугольник на радиус со всех сторон
func (b Bounds) Expand(radius float64) Bounds {
	return Bounds{MinX: b.MinX - radius, MinZ: b.MinZ - radius, MaxX: b.MaxX + radius, MaxZ: b.MaxZ + radius}
}

// Contains проверяет, лежит ли точка внутри прямоугольника (границы включены)
func (b Bounds) Contains(x, z float64) bool {
	return x >= b.MinX && x <= b.MaxX && z >= b.MinZ && z <= b.MaxZ
}

// CollisionReport результат проверки столкновения с картой
type CollisionReport struct {
	Hit     bool
	Current int   // Клетка позиции, -1 вне карты
	HitCell int   // Клетка, давшая столкновение, -1 для края карты
	Checked []int // Проверенные клетки по порядку
}

// neighborOrder порядок обхода блока 3x3 вокруг позиции
var neighborOrder = [9]vec.Vec2{
	{X: 0, Y: 0}, {X: 1, Y: 0}, {X: -1, Y: 0},
	{X: 0, Y: 1}, {X: 1, Y: 1}, {X: -1, Y: 1},
	{X: 0, Y: -1}, {X: 1, Y: -1}, {X: -1, Y: -1},
}

// CollideWithMap проверяет точку с радиусом против сплошных клеток блока 3x3.
// Радиус задаётся в размерах клетки и масштабируется на drawScale; край карты считается стеной.
func CollideWithMap(m *gridmap.GridMap, drawScale float64, pos vec.Vec3Float, radius float64) CollisionReport {
	report := CollisionReport{Current: -1, HitCell: -1}
	if drawScale <= 0 {
		drawScale = 1
	}

	mapX := int(math.Floor(pos.X / drawScale))
	mapY := int(math.Floor(pos.Z / drawScale))
	if current := m.Cell(mapX, mapY); current != nil {
		report.Current = current.Index
	}

	scaled := radius * drawScale
	for _, offset := range neighborOrder {
		cell := m.Cell(mapX+offset.X, mapY+offset.Y)
		if cell == nil {
			report.Hit = true
			return report
		}
		report.Checked = append(report.Checked, cell.Index)
		if !cell.IsSolid() {
			continue
		}
		if CellBounds(cell, drawScale).Expand(scaled).Contains(pos.X, pos.Z) {
			report.Hit = true
			report.HitCell = cell.Index
			return report
		}
	}
	return report
}
