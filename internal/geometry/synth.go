package geometry

import (
	"github.com/annel0/gridcast/internal/gridmap"
	"github.com/annel0/gridcast/internal/vec"
)

// FaceSpec описывает одну грань клетки: направление и вертикальный диапазон в шагах высоты
type FaceSpec struct {
	Direction gridmap.Direction
	Cell      vec.Vec2
	Material  gridmap.MaterialID
	Bottom    int // Нижняя граница (для пола и потолка совпадает с полом клетки)
	Top       int // Верхняя граница (для пола и потолка совпадает с потолком клетки)
}

// Extent возвращает высоту грани в шагах
func (f FaceSpec) Extent() int {
	return f.Top - f.Bottom
}

// Synthesize возвращает минимальный набор граней клетки с учётом высот соседей
func Synthesize(m *gridmap.GridMap, cell *gridmap.Cell) []FaceSpec {
	if m == nil || cell == nil || cell.IsSolid() {
		return nil
	}

	floor := cell.FloorLevel()
	ceiling := cell.CeilingLevel()
	faces := make([]FaceSpec, 0, 6)

	emit := func(dir gridmap.Direction, mat gridmap.MaterialID, bottom, top int) {
		faces = append(faces, FaceSpec{Direction: dir, Cell: cell.Position, Material: mat, Bottom: bottom, Top: top})
	}

	// Пол и потолок всегда целые
	for _, dir := range [2]gridmap.Direction{gridmap.YNeg, gridmap.YPos} {
		if mat, ok := cell.Material(dir); ok {
			emit(dir, mat, floor, ceiling)
		}
	}

	for _, dir := range gridmap.HorizontalDirections {
		mat, ok := cell.Material(dir)
		if !ok {
			continue
		}

		neighbor := m.DirectionCell(cell, dir)
		if neighbor == nil {
			emitWall(emit, dir, mat, floor, ceiling)
			continue
		}

		nFloor := neighbor.FloorLevel()
		nCeiling := neighbor.CeilingLevel()

		switch {
		case floor >= nFloor && ceiling <= nCeiling:
			// Сосед полностью перекрывает проём
		case neighbor.IsSolid() || nFloor > ceiling || nCeiling < floor:
			emitWall(emit, dir, mat, floor, ceiling)
		default:
			if nFloor > floor {
				emitWall(emit, dir, mat, floor, nFloor)
			}
			if nCeiling < ceiling {
				emitWall(emit, dir, mat, nCeiling, ceiling)
			}
		}
	}

	return faces
}

// emitWall пропускает стены нулевой высоты
func emitWall(emit func(gridmap.Direction, gridmap.MaterialID, int, int), dir gridmap.Direction, mat gridmap.MaterialID, bottom, top int) {
	if top <= bottom {
		return
	}
	emit(dir, mat, bottom, top)
}
