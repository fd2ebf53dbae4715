package mapgen

import (
	"fmt"
	"math"

	"github.com/annel0/gridcast/internal/editor"
	"github.com/annel0/gridcast/internal/gridmap"
	"github.com/annel0/gridcast/internal/vec"
)

// Params параметры процедурной карты
type Params struct {
	Width          int
	Height         int
	Seed           int64
	Frequency      float64 // Масштаб шума: больше значение, мельче пещеры
	SolidThreshold float64 // Значение шума, выше которого клетка сплошная
	BaseFloor      uint8
	BaseCeiling    uint8
	FloorVariation int  // Максимальный подъём пола в шагах
	Border         bool // Сплошная рамка по краю
	Materials      editor.Defaults
}

// DefaultParams стандартные параметры пещерной карты
func DefaultParams() Params {
	return Params{
		Width:          32,
		Height:         32,
		Seed:           1,
		Frequency:      0.12,
		SolidThreshold: 0.6,
		BaseFloor:      0,
		BaseCeiling:    16,
		FloorVariation: 4,
		Border:         true,
		Materials:      editor.Defaults{Wall: "textures/wall.png", Floor: "textures/floor.png", Ceiling: "textures/ceiling.png"},
	}
}

// Generate строит карту по шуму Перлина и расставляет грани
func Generate(p Params) (*gridmap.GridMap, error) {
	m, err := gridmap.New(p.Width, p.Height, p.BaseFloor, p.BaseCeiling)
	if err != nil {
		return nil, fmt.Errorf("mapgen: %w", err)
	}

	solidNoise := NewNoise(p.Seed)
	heightNoise := NewNoise(p.Seed + 1)

	m.ForEachCell(func(cell *gridmap.Cell) {
		x, y := cell.Position.X, cell.Position.Y
		if p.Border && (x == 0 || y == 0 || x == p.Width-1 || y == p.Height-1) {
			cell.SetSolid()
			return
		}

		fx := float64(x) * p.Frequency
		fy := float64(y) * p.Frequency
		if solidNoise.At(fx, fy) > p.SolidThreshold {
			cell.SetSolid()
			return
		}

		if p.FloorVariation > 0 {
			lift := int(math.Round(heightNoise.At(fx, fy) * float64(p.FloorVariation)))
			floor := min(int(p.BaseFloor)+lift, int(gridmap.MaxOpenFloor))
			ceiling := max(int(p.BaseCeiling)-lift, 1)
			_ = cell.SetHeights(uint8(floor), uint8(ceiling))
		}
	})

	// Клетка в центре всегда открыта для камеры
	if spawn := m.Cell(p.Width/2, p.Height/2); spawn != nil && spawn.IsSolid() {
		_ = spawn.Open(p.BaseFloor, p.BaseCeiling)
	}

	editor.NewService(m, p.Materials, nil).RebuildInventory()
	return m, nil
}

// FindOpenCell ищет ближайшую к точке открытую клетку
func FindOpenCell(m *gridmap.GridMap, near vec.Vec2) *gridmap.Cell {
	var best *gridmap.Cell
	bestDist := math.MaxFloat64
	m.ForEachCell(func(cell *gridmap.Cell) {
		if cell.IsSolid() {
			return
		}
		if d := cell.Position.DistanceTo(near); d < bestDist {
			best = cell
			bestDist = d
		}
	})
	return best
}
