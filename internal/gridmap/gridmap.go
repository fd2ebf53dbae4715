package gridmap

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/annel0/gridcast/internal/vec"
)

// ErrOutOfRange индекс или координаты вне карты
var ErrOutOfRange = errors.New("gridmap: position out of range")

// GridMap двумерная сетка клеток с таблицей материалов
type GridMap struct {
	width     int
	height    int
	cells     []Cell
	materials map[MaterialID]string
	nextMat   MaterialID
}

// MaxSize предельная ширина и высота карты в клетках
const MaxSize = 1 << 15

// New создаёт открытую карту с одинаковыми высотами во всех клетках
func New(width, height int, floor, ceiling uint8) (*GridMap, error) {
	if width <= 0 || height <= 0 || width > MaxSize || height > MaxSize {
		return nil, fmt.Errorf("gridmap: invalid size %dx%d", width, height)
	}
	if floor == SolidFloor {
		return nil, ErrSolidFloor
	}

	m := &GridMap{
		width:     width,
		height:    height,
		cells:     make([]Cell, width*height),
		materials: make(map[MaterialID]string),
	}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			index := y*width + x
			m.cells[index] = newCell(index, vec.Vec2{X: x, Y: y}, floor, ceiling)
		}
	}
	return m, nil
}

// Size возвращает размер карты в клетках
func (m *GridMap) Size() vec.Vec2 {
	return vec.Vec2{X: m.width, Y: m.height}
}

// Width ширина карты
func (m *GridMap) Width() int { return m.width }

// Height высота карты
func (m *GridMap) Height() int { return m.height }

// CellCount количество клеток
func (m *GridMap) CellCount() int { return len(m.cells) }

// InBounds проверяет, что координаты лежат внутри карты
func (m *GridMap) InBounds(x, y int) bool {
	return x >= 0 && x < m.width && y >= 0 && y < m.height
}

// Cell возвращает клетку по координатам или nil за пределами карты
func (m *GridMap) Cell(x, y int) *Cell {
	if !m.InBounds(x, y) {
		return nil
	}
	return &m.cells[y*m.width+x]
}

// CellByIndex возвращает клетку по индексу или nil
func (m *GridMap) CellByIndex(index int) *Cell {
	if index < 0 || index >= len(m.cells) {
		return nil
	}
	return &m.cells[index]
}

// CellAtWorld возвращает клетку, содержащую мировую точку (по X и Z)
func (m *GridMap) CellAtWorld(pos vec.Vec3Float, drawScale float64) *Cell {
	if drawScale == 0 {
		return nil
	}
	x := math.Floor(pos.X / drawScale)
	y := math.Floor(pos.Z / drawScale)
	if math.IsNaN(x) || math.IsNaN(y) || math.IsInf(x, 0) || math.IsInf(y, 0) {
		return nil
	}
	return m.Cell(int(x), int(y))
}

// DirectionCell возвращает соседа клетки по горизонтальному направлению
func (m *GridMap) DirectionCell(cell *Cell, dir Direction) *Cell {
	if cell == nil || !dir.IsHorizontal() {
		return nil
	}
	pos := cell.Position.Add(dir.Offset())
	return m.Cell(pos.X, pos.Y)
}

// ForEachCell обходит все клетки в порядке индексов
func (m *GridMap) ForEachCell(fn func(cell *Cell)) {
	for i := range m.cells {
		fn(&m.cells[i])
	}
}

// AddMaterial добавляет путь к материалу и возвращает его ID; повтор даёт тот же ID
func (m *GridMap) AddMaterial(path string) MaterialID {
	for id, existing := range m.materials {
		if existing == path {
			return id
		}
	}
	id := m.nextMat
	m.materials[id] = path
	m.nextMat++
	return id
}

// SetMaterialPath регистрирует материал с заданным ID (используется при загрузке)
func (m *GridMap) SetMaterialPath(id MaterialID, path string) {
	m.materials[id] = path
	if id >= m.nextMat {
		m.nextMat = id + 1
	}
}

// MaterialPath возвращает путь материала по ID
func (m *GridMap) MaterialPath(id MaterialID) (string, bool) {
	path, ok := m.materials[id]
	return path, ok
}

// MaterialIDs возвращает отсортированные ID материалов
func (m *GridMap) MaterialIDs() []MaterialID {
	ids := make([]MaterialID, 0, len(m.materials))
	for id := range m.materials {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
