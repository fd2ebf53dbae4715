package storage

import (
	"fmt"
	"sort"
	"time"

	"github.com/annel0/gridcast/internal/gridmap"
	"github.com/google/uuid"
)

// FormatVersion версия формата документа карты
const FormatVersion = 1

// MapInfo заголовок сохранённой карты
type MapInfo struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	Version   int       `json:"version"`
	SavedAt   time.Time `json:"saved_at"`
	SizeBytes int       `json:"size_bytes,omitempty"` // Размер сжатого документа
}

// CellDelta данные одной клетки
type CellDelta struct {
	Floor     uint8          `json:"f"`
	Ceiling   uint8          `json:"c"`
	Materials map[string]int `json:"m,omitempty"` // Ключ - имя направления
}

// MapDocument полный документ карты: высоты, материалы клеток и таблица материалов
type MapDocument struct {
	MapInfo
	Materials map[int]string `json:"materials"`
	Cells     []CellDelta    `json:"cells"`
}

// NewDocument снимает документ с карты
func NewDocument(name string, m *gridmap.GridMap) *MapDocument {
	doc := &MapDocument{
		MapInfo: MapInfo{
			ID:      uuid.New(),
			Name:    name,
			Width:   m.Width(),
			Height:  m.Height(),
			Version: FormatVersion,
			SavedAt: time.Now().UTC(),
		},
		Materials: make(map[int]string),
		Cells:     make([]CellDelta, 0, m.CellCount()),
	}

	for _, id := range m.MaterialIDs() {
		path, _ := m.MaterialPath(id)
		doc.Materials[int(id)] = path
	}

	m.ForEachCell(func(cell *gridmap.Cell) {
		delta := CellDelta{Floor: cell.Floor(), Ceiling: cell.Ceiling()}
		if dirs := cell.MaterialDirections(); len(dirs) > 0 {
			delta.Materials = make(map[string]int, len(dirs))
			for _, dir := range dirs {
				id, _ := cell.Material(dir)
				delta.Materials[dir.String()] = int(id)
			}
		}
		doc.Cells = append(doc.Cells, delta)
	})
	return doc
}

// ToMap восстанавливает карту из документа
func (d *MapDocument) ToMap() (*gridmap.GridMap, error) {
	if d.Version > FormatVersion {
		return nil, fmt.Errorf("неподдерживаемая версия документа: %d", d.Version)
	}
	if d.Width <= 0 || d.Height <= 0 || d.Width > gridmap.MaxSize || d.Height > gridmap.MaxSize {
		return nil, fmt.Errorf("документ повреждён: недопустимый размер карты %dx%d", d.Width, d.Height)
	}
	if len(d.Cells) != d.Width*d.Height {
		return nil, fmt.Errorf("документ повреждён: %d клеток для карты %dx%d", len(d.Cells), d.Width, d.Height)
	}

	m, err := gridmap.New(d.Width, d.Height, 0, 0)
	if err != nil {
		return nil, err
	}

	ids := make([]int, 0, len(d.Materials))
	for id := range d.Materials {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		m.SetMaterialPath(gridmap.MaterialID(id), d.Materials[id])
	}

	for i, delta := range d.Cells {
		cell := m.CellByIndex(i)
		if delta.Floor == gridmap.SolidFloor {
			// Потолок сплошной клетки сохраняется для последующего открытия
			_ = cell.Open(0, delta.Ceiling)
			cell.SetSolid()
		} else if err := cell.SetHeights(delta.Floor, delta.Ceiling); err != nil {
			return nil, fmt.Errorf("клетка %d: %w", i, err)
		}
		for name, id := range delta.Materials {
			dir, ok := gridmap.ParseDirection(name)
			if !ok {
				return nil, fmt.Errorf("клетка %d: неизвестное направление %q", i, name)
			}
			cell.SetMaterial(dir, gridmap.MaterialID(id))
		}
	}
	return m, nil
}
