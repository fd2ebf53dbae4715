package editor

import (
	"errors"
	"fmt"

	"github.com/annel0/gridcast/internal/gridmap"
	"github.com/annel0/gridcast/internal/logging"
)

var (
	// ErrNoCell координаты вне карты
	ErrNoCell = errors.New("editor: no cell at position")
	// ErrNoFace у клетки нет грани в этом направлении
	ErrNoFace = errors.New("editor: cell has no face in direction")
)

// DirtyFunc вызывается для каждой клетки, чья геометрия должна быть пересобрана
type DirtyFunc func(index int)

// Defaults пути материалов для новых граней
type Defaults struct {
	Wall    string
	Floor   string
	Ceiling string
}

// Service применяет правки к карте и поддерживает набор граней клеток
type Service struct {
	gridMap  *gridmap.GridMap
	defaults Defaults
	onDirty  DirtyFunc
	logger   *logging.Logger
	dirty    []int
}

// NewService создаёт редактор карты
func NewService(m *gridmap.GridMap, defaults Defaults, onDirty DirtyFunc) *Service {
	return &Service{
		gridMap:  m,
		defaults: defaults,
		onDirty:  onDirty,
		logger:   logging.GetEditorLogger(),
	}
}

// SetDirtyCallback заменяет обработчик грязных клеток
func (s *Service) SetDirtyCallback(fn DirtyFunc) {
	s.onDirty = fn
}

// Map возвращает редактируемую карту
func (s *Service) Map() *gridmap.GridMap {
	return s.gridMap
}

func (s *Service) cell(x, y int) (*gridmap.Cell, error) {
	cell := s.gridMap.Cell(x, y)
	if cell == nil {
		return nil, fmt.Errorf("%w: (%d,%d)", ErrNoCell, x, y)
	}
	return cell, nil
}

// SetCellHeights задаёт пол и потолок открытой клетки
func (s *Service) SetCellHeights(x, y int, floor, ceiling uint8) ([]int, error) {
	cell, err := s.cell(x, y)
	if err != nil {
		return nil, err
	}
	if err := cell.SetHeights(floor, ceiling); err != nil {
		s.logger.Warn("Правка высот (%d,%d) отклонена: %v", x, y, err)
		return nil, err
	}
	return s.commit(cell.Index), nil
}

// IncrementCellHeights сдвигает пол и потолок на заданное число шагов с ограничением диапазона
func (s *Service) IncrementCellHeights(x, y, floorDelta, ceilingDelta int) ([]int, error) {
	cell, err := s.cell(x, y)
	if err != nil {
		return nil, err
	}
	if cell.IsSolid() {
		s.logger.Warn("Правка высот (%d,%d) отклонена: клетка сплошная", x, y)
		return nil, gridmap.ErrCellSolid
	}
	floor := clamp(int(cell.Floor())+floorDelta, 0, int(gridmap.MaxOpenFloor))
	ceiling := clamp(int(cell.Ceiling())+ceilingDelta, 0, int(gridmap.SolidFloor))
	return s.SetCellHeights(x, y, uint8(floor), uint8(ceiling))
}

// SetSolid делает клетку сплошной
func (s *Service) SetSolid(x, y int) ([]int, error) {
	cell, err := s.cell(x, y)
	if err != nil {
		return nil, err
	}
	cell.SetSolid()
	return s.commit(cell.Index), nil
}

// SetOpen открывает клетку с указанными высотами
func (s *Service) SetOpen(x, y int, floor, ceiling uint8) ([]int, error) {
	cell, err := s.cell(x, y)
	if err != nil {
		return nil, err
	}
	if err := cell.Open(floor, ceiling); err != nil {
		s.logger.Warn("Открытие (%d,%d) отклонено: %v", x, y, err)
		return nil, err
	}
	return s.commit(cell.Index), nil
}

// SetCellMaterial меняет материал существующей грани клетки
func (s *Service) SetCellMaterial(x, y int, dir gridmap.Direction, path string) ([]int, error) {
	cell, err := s.cell(x, y)
	if err != nil {
		return nil, err
	}
	if _, ok := cell.Material(dir); !ok {
		return nil, fmt.Errorf("%w: (%d,%d) %s", ErrNoFace, x, y, dir)
	}
	cell.SetMaterial(dir, s.gridMap.AddMaterial(path))

	// Материал влияет только на грани самой клетки
	s.addDirty(cell.Index)
	return s.flush(), nil
}

// FacesAfter возвращает направления граней, которые будут у клетки после открытия с указанными высотами.
// Карта не меняется; для solid=true граней нет.
func (s *Service) FacesAfter(x, y int, solid bool, floor, ceiling uint8) ([]gridmap.Direction, error) {
	cell, err := s.cell(x, y)
	if err != nil {
		return nil, err
	}
	if solid {
		return nil, nil
	}
	planned := *cell
	if err := planned.Open(floor, ceiling); err != nil {
		return nil, err
	}
	dirs := make([]gridmap.Direction, 0, gridmap.DirectionCount)
	for _, dir := range gridmap.HorizontalDirections {
		if s.CellNeedsWall(&planned, dir) {
			dirs = append(dirs, dir)
		}
	}
	return append(dirs, gridmap.YNeg, gridmap.YPos), nil
}

// CellNeedsWall определяет, нужна ли открытой клетке стена в направлении
func (s *Service) CellNeedsWall(cell *gridmap.Cell, dir gridmap.Direction) bool {
	if cell == nil || cell.IsSolid() {
		return false
	}
	other := s.gridMap.DirectionCell(cell, dir)
	if other == nil || other.IsSolid() {
		return true
	}
	if other.FloorLevel() <= cell.FloorLevel() && other.CeilingLevel() >= cell.CeilingLevel() {
		return false
	}
	return true
}

// checkFaceWall добавляет или убирает материал стены, возвращает true при изменении
func (s *Service) checkFaceWall(cell *gridmap.Cell, dir gridmap.Direction) bool {
	if cell == nil {
		return false
	}
	_, has := cell.Material(dir)
	if s.CellNeedsWall(cell, dir) {
		if !has {
			cell.SetMaterial(dir, s.gridMap.AddMaterial(s.defaults.Wall))
			return true
		}
		return false
	}
	return cell.ClearMaterial(dir)
}

// CheckFacesAround приводит набор граней клетки и обращённых к ней стен соседей в согласие с высотами.
// Возвращает индексы соседей.
func (s *Service) CheckFacesAround(index int) []int {
	cell := s.gridMap.CellByIndex(index)
	if cell == nil {
		return nil
	}

	for _, dir := range gridmap.HorizontalDirections {
		s.checkFaceWall(cell, dir)
	}

	if cell.IsSolid() {
		cell.ClearMaterial(gridmap.YNeg)
		cell.ClearMaterial(gridmap.YPos)
	} else {
		if _, ok := cell.Material(gridmap.YNeg); !ok {
			cell.SetMaterial(gridmap.YNeg, s.gridMap.AddMaterial(s.defaults.Floor))
		}
		if _, ok := cell.Material(gridmap.YPos); !ok {
			cell.SetMaterial(gridmap.YPos, s.gridMap.AddMaterial(s.defaults.Ceiling))
		}
	}

	neighbors := make([]int, 0, 4)
	for _, dir := range gridmap.HorizontalDirections {
		other := s.gridMap.DirectionCell(cell, dir)
		if other == nil {
			continue
		}
		s.checkFaceWall(other, dir.Opposite())
		neighbors = append(neighbors, other.Index)
	}
	return neighbors
}

// RebuildInventory проверяет грани всех клеток карты без вызова обработчика
func (s *Service) RebuildInventory() {
	s.gridMap.ForEachCell(func(cell *gridmap.Cell) {
		s.CheckFacesAround(cell.Index)
	})
}

func (s *Service) addDirty(index int) {
	for _, d := range s.dirty {
		if d == index {
			return
		}
	}
	s.dirty = append(s.dirty, index)
}

// commit помечает клетку и соседей, обновляет грани и вызывает обработчик
func (s *Service) commit(index int) []int {
	s.addDirty(index)
	for _, neighbor := range s.CheckFacesAround(index) {
		s.addDirty(neighbor)
	}
	return s.flush()
}

func (s *Service) flush() []int {
	dirty := s.dirty
	s.dirty = nil
	if s.onDirty != nil {
		for _, index := range dirty {
			s.onDirty(index)
		}
	}
	return dirty
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
