package gridmap

import (
	"errors"
	"sort"

	"github.com/annel0/gridcast/internal/vec"
)

// SolidFloor значение пола, которое помечает клетку как сплошную
const SolidFloor uint8 = 255

// MaxOpenFloor максимальный пол открытой клетки
const MaxOpenFloor uint8 = SolidFloor - 1

var (
	// ErrSolidFloor пол 255 зарезервирован под сплошные клетки
	ErrSolidFloor = errors.New("gridmap: floor 255 is reserved for solid cells")
	// ErrCellSolid высоты сплошной клетки меняются только через Open
	ErrCellSolid = errors.New("gridmap: cell is solid")
)

// MaterialID ссылка на материал из таблицы карты
type MaterialID int

// Cell представляет одну клетку карты
type Cell struct {
	Index     int                      // Индекс в массиве карты
	Position  vec.Vec2                 // Координаты в сетке
	Materials map[Direction]MaterialID // Материалы граней (кандидаты на геометрию)

	floor   uint8 // Пол в шагах высоты, 255 = сплошная
	ceiling uint8 // Потолок в шагах над полом
}

func newCell(index int, pos vec.Vec2, floor, ceiling uint8) Cell {
	return Cell{
		Index:     index,
		Position:  pos,
		Materials: make(map[Direction]MaterialID),
		floor:     floor,
		ceiling:   ceiling,
	}
}

// IsSolid возвращает true, если клетка сплошная
func (c *Cell) IsSolid() bool {
	return c.floor == SolidFloor
}

// Floor возвращает пол в шагах высоты
func (c *Cell) Floor() uint8 {
	return c.floor
}

// Ceiling возвращает потолок в шагах над полом
func (c *Cell) Ceiling() uint8 {
	return c.ceiling
}

// FloorLevel абсолютная высота пола в шагах
func (c *Cell) FloorLevel() int {
	return int(c.floor)
}

// CeilingLevel абсолютная высота потолка в шагах
func (c *Cell) CeilingLevel() int {
	return int(c.floor) + int(c.ceiling)
}

// FloorHeight высота пола в единицах карты
func (c *Cell) FloorHeight(depthIncrement float64) float64 {
	return float64(c.FloorLevel()) * depthIncrement
}

// CeilingHeight абсолютная высота потолка в единицах карты
func (c *Cell) CeilingHeight(depthIncrement float64) float64 {
	return float64(c.CeilingLevel()) * depthIncrement
}

// SetHeights меняет высоты открытой клетки, не меняя её сплошность
func (c *Cell) SetHeights(floor, ceiling uint8) error {
	if c.IsSolid() {
		return ErrCellSolid
	}
	if floor == SolidFloor {
		return ErrSolidFloor
	}
	c.floor = floor
	c.ceiling = ceiling
	return nil
}

// SetSolid делает клетку сплошной; потолок сохраняется для последующего Open
func (c *Cell) SetSolid() {
	c.floor = SolidFloor
}

// Open делает клетку открытой с указанными высотами
func (c *Cell) Open(floor, ceiling uint8) error {
	if floor == SolidFloor {
		return ErrSolidFloor
	}
	c.floor = floor
	c.ceiling = ceiling
	return nil
}

// Material возвращает материал грани
func (c *Cell) Material(dir Direction) (MaterialID, bool) {
	id, ok := c.Materials[dir]
	return id, ok
}

// SetMaterial назначает материал грани
func (c *Cell) SetMaterial(dir Direction, id MaterialID) {
	if c.Materials == nil {
		c.Materials = make(map[Direction]MaterialID)
	}
	c.Materials[dir] = id
}

// ClearMaterial удаляет материал грани, возвращает true если он был
func (c *Cell) ClearMaterial(dir Direction) bool {
	if _, ok := c.Materials[dir]; !ok {
		return false
	}
	delete(c.Materials, dir)
	return true
}

// MaterialDirections возвращает направления с материалами по порядку
func (c *Cell) MaterialDirections() []Direction {
	dirs := make([]Direction, 0, len(c.Materials))
	for dir := range c.Materials {
		dirs = append(dirs, dir)
	}
	sort.Slice(dirs, func(i, j int) bool { return dirs[i] < dirs[j] })
	return dirs
}
