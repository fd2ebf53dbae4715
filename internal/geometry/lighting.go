package geometry

import (
	"image/color"
	"math"

	"github.com/annel0/gridcast/internal/gridmap"
	"github.com/annel0/gridcast/internal/vec"
)

// Lighting статическое освещение граней по направлениям
type Lighting struct {
	SunDirection vec.Vec3Float
	Ambient      float64
	FloorBoost   float64
	CeilingBoost float64
}

// DefaultLighting возвращает стандартное солнце и усиления пола и потолка
func DefaultLighting() Lighting {
	return Lighting{
		SunDirection: vec.Vec3Float{X: 1, Y: -1, Z: 0.5},
		Ambient:      0.25,
		FloorBoost:   5,
		CeilingBoost: 4,
	}
}

// Tints вычисляет оттенок каждого направления один раз при настройке рендера
func (l Lighting) Tints() [gridmap.DirectionCount]color.RGBA {
	sun := l.SunDirection.Normalized()
	var tints [gridmap.DirectionCount]color.RGBA
	for _, dir := range gridmap.AllDirections {
		boost := 1.0
		switch dir {
		case gridmap.YNeg:
			boost = l.FloorBoost
		case gridmap.YPos:
			boost = l.CeilingBoost
		}
		n := DirectionNormal(dir)
		normal := vec.Vec3Float{X: float64(n[0]), Y: float64(n[1]), Z: float64(n[2])}
		tints[dir] = colorFromNormal(normal, sun, l.Ambient, boost)
	}
	return tints
}

func colorFromNormal(normal, light vec.Vec3Float, ambient, boost float64) color.RGBA {
	param := 0.0
	if dot := normal.Dot(light); dot < 0 {
		param = -dot
	}
	factor := math.Min((ambient+(1-ambient)*param)*boost, 1)
	if factor < 0 {
		factor = 0
	}
	c := uint8(factor * 255)
	return color.RGBA{R: c, G: c, B: c, A: 255}
}
