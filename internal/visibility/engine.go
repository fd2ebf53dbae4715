package visibility

import (
	"math"

	"github.com/annel0/gridcast/internal/gridmap"
	"github.com/annel0/gridcast/internal/vec"
)

// Engine вычисляет потенциально видимые клетки карты лучами с делением угла
type Engine struct {
	gridMap    *gridmap.GridMap
	drawScale  float64
	angleLimit float64
}

// NewEngine создаёт движок видимости для карты
func NewEngine(m *gridmap.GridMap, drawScale float64) *Engine {
	if drawScale <= 0 {
		drawScale = 1
	}
	return &Engine{
		gridMap:    m,
		drawScale:  drawScale,
		angleLimit: AngleLimit(m.Width(), m.Height()),
	}
}

// AngleLimit возвращает порог косинуса, ниже которого сектор делится
func (e *Engine) AngleLimit() float64 {
	return e.angleLimit
}

// DrawScale возвращает размер клетки в мировых единицах
func (e *Engine) DrawScale() float64 {
	return e.drawScale
}

// MapOrigin переводит мировую позицию камеры в координаты карты
func (e *Engine) MapOrigin(pos vec.Vec3Float) vec.Vec2Float {
	return vec.Vec2Float{X: pos.X / e.drawScale, Y: pos.Z / e.drawScale}
}

// ComputeVisibility заполняет набор видимыми клетками и клетками-целями
func (e *Engine) ComputeVisibility(vs *Set) {
	vs.Reset()
	if vs.DrawEverything {
		return
	}

	origin := e.MapOrigin(vs.Camera.Position)
	e.seed(vs, origin)

	view := vs.Camera.ViewDirection()
	fov := math.Max(0, math.Min(vs.Camera.FovX, 2*math.Pi))
	positive := NewRay(view.Rotate(fov * 0.5))
	negative := NewRay(view.Rotate(-fov * 0.5))

	if fov > math.Pi {
		// Секторы шире полуокружности делятся по направлению взгляда
		center := NewRay(view)
		vs.push(RaySet{Positive: positive, Negative: center})
		vs.push(RaySet{Positive: center, Negative: negative})
	} else {
		vs.push(RaySet{Positive: positive, Negative: negative})
	}

	e.castRays(vs, origin)
}

// seed добавляет клетку камеры и восемь соседей
func (e *Engine) seed(vs *Set, origin vec.Vec2Float) {
	if !origin.IsFinite() {
		return
	}
	center := origin.Floor()
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if cell := e.gridMap.Cell(center.X+dx, center.Y+dy); cell != nil {
				vs.addVisible(cell.Index)
			}
		}
	}
}

// castRays обрабатывает очередь секторов до опустошения
func (e *Engine) castRays(vs *Set, origin vec.Vec2Float) {
	for {
		set, ok := vs.pop()
		if !ok {
			return
		}
		vs.stats.Wedges++
		if vs.TraceRays {
			vs.trace = append(vs.trace, set)
		}

		e.castRay(vs, set.Positive, origin)
		e.castRay(vs, set.Negative, origin)

		if set.Positive.Terminal == NoCell || set.Negative.Terminal == NoCell {
			continue
		}
		if set.Positive.Terminal == set.Negative.Terminal {
			continue
		}
		if set.Dot() < e.angleLimit {
			pos, neg := set.Bisect()
			vs.push(pos)
			vs.push(neg)
			vs.stats.Splits++
		}
	}
}

// castRay проходит луч по сетке методом DDA
func (e *Engine) castRay(vs *Set, ray *Ray, origin vec.Vec2Float) {
	if ray.cast {
		return
	}
	ray.cast = true
	vs.stats.Rays++

	dir := ray.Dir
	if !dir.IsFinite() || dir.IsZero() || !origin.IsFinite() {
		return
	}

	mapPos := origin.Floor()
	cell := e.gridMap.Cell(mapPos.X, mapPos.Y)
	if cell == nil {
		return
	}

	deltaX := math.Abs(1 / dir.X)
	deltaY := math.Abs(1 / dir.Y)

	stepX, sideX := 1, math.Inf(1)
	if dir.X < 0 {
		stepX = -1
		if !math.IsInf(deltaX, 1) {
			sideX = (origin.X - float64(mapPos.X)) * deltaX
		}
	} else if !math.IsInf(deltaX, 1) {
		sideX = (float64(mapPos.X) + 1 - origin.X) * deltaX
	}

	stepY, sideY := 1, math.Inf(1)
	if dir.Y < 0 {
		stepY = -1
		if !math.IsInf(deltaY, 1) {
			sideY = (origin.Y - float64(mapPos.Y)) * deltaY
		}
	} else if !math.IsInf(deltaY, 1) {
		sideY = (float64(mapPos.Y) + 1 - origin.Y) * deltaY
	}

	for !cell.IsSolid() {
		vs.addVisible(cell.Index)

		// При равенстве шагаем по X
		if sideX <= sideY {
			sideX += deltaX
			mapPos.X += stepX
		} else {
			sideY += deltaY
			mapPos.Y += stepY
		}

		next := e.gridMap.Cell(mapPos.X, mapPos.Y)
		if next == nil {
			ray.Terminal = cell.Index
			return
		}
		cell = next
	}

	ray.Terminal = cell.Index
	ray.Hit = true
	vs.addTarget(cell.Index)
}
