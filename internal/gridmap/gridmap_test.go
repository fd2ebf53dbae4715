package gridmap

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"strconv"
	"testing"

	"github.com/annel0/gridcast/internal/vec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_CellsAndBounds(t *testing.T) {
	m, err := New(4, 3, 0, 16)
	require.NoError(t, err)

	assert.Equal(t, 12, m.CellCount(), "Количество клеток должно быть width*height")
	assert.Equal(t, vec.Vec2{X: 4, Y: 3}, m.Size())

	cell := m.Cell(2, 1)
	require.NotNil(t, cell)
	assert.Equal(t, 6, cell.Index, "Индекс клетки должен быть y*width+x")
	assert.Equal(t, vec.Vec2{X: 2, Y: 1}, cell.Position)
	assert.Same(t, cell, m.CellByIndex(6), "Поиск по индексу должен вернуть ту же клетку")

	assert.Nil(t, m.Cell(-1, 0), "За левым краем клетки нет")
	assert.Nil(t, m.Cell(4, 0), "За правым краем клетки нет")
	assert.Nil(t, m.Cell(0, 3), "За нижним краем клетки нет")
	assert.Nil(t, m.CellByIndex(12))
	assert.Nil(t, m.CellByIndex(-1))
}

func TestNew_InvalidArguments(t *testing.T) {
	_, err := New(0, 3, 0, 16)
	assert.Error(t, err)
	_, err = New(MaxSize+1, 1, 0, 16)
	assert.Error(t, err, "Ширина сверх предела")
	side := 1 << (strconv.IntSize / 2)
	_, err = New(side, side, 0, 16)
	assert.Error(t, err, "Произведение сторон переполняет int")

	_, err = New(3, 3, SolidFloor, 16)
	assert.ErrorIs(t, err, ErrSolidFloor)
}

func TestCellAtWorld(t *testing.T) {
	m, err := New(4, 4, 0, 16)
	require.NoError(t, err)

	cell := m.CellAtWorld(vec.Vec3Float{X: 5.5, Y: 100, Z: 2.1}, 2)
	require.NotNil(t, cell)
	assert.Equal(t, vec.Vec2{X: 2, Y: 1}, cell.Position, "Мировая позиция делится на масштаб и округляется вниз")

	assert.Nil(t, m.CellAtWorld(vec.Vec3Float{X: -0.1, Z: 0}, 1), "Отрицательная координата вне карты")
	assert.Nil(t, m.CellAtWorld(vec.Vec3Float{X: 1, Z: 1}, 0), "Нулевой масштаб не даёт клетки")
}

func TestDirectionCell(t *testing.T) {
	m, err := New(3, 3, 0, 16)
	require.NoError(t, err)
	center := m.Cell(1, 1)

	assert.Equal(t, vec.Vec2{X: 1, Y: 0}, m.DirectionCell(center, ZNeg).Position)
	assert.Equal(t, vec.Vec2{X: 1, Y: 2}, m.DirectionCell(center, ZPos).Position)
	assert.Equal(t, vec.Vec2{X: 2, Y: 1}, m.DirectionCell(center, XPos).Position)
	assert.Equal(t, vec.Vec2{X: 0, Y: 1}, m.DirectionCell(center, XNeg).Position)
	assert.Nil(t, m.DirectionCell(center, YNeg), "У вертикальных направлений соседей нет")

	corner := m.Cell(0, 0)
	assert.Nil(t, m.DirectionCell(corner, XNeg), "Край карты возвращает nil")
	assert.Nil(t, m.DirectionCell(corner, ZNeg))
	assert.Nil(t, m.DirectionCell(nil, XPos))
}

func TestDirection_OppositeAndNames(t *testing.T) {
	for _, dir := range AllDirections {
		assert.Equal(t, dir, dir.Opposite().Opposite(), "Двойная инверсия возвращает направление")
		parsed, ok := ParseDirection(dir.String())
		assert.True(t, ok)
		assert.Equal(t, dir, parsed)
	}
	_, ok := ParseDirection("Up")
	assert.False(t, ok)
}

func TestCell_SolidityIsExplicit(t *testing.T) {
	m, err := New(2, 2, 3, 10)
	require.NoError(t, err)
	cell := m.Cell(0, 0)

	assert.False(t, cell.IsSolid())
	assert.Equal(t, 13, cell.CeilingLevel(), "Потолок хранится относительно пола")
	assert.InDelta(t, 13.0/16.0, cell.CeilingHeight(1.0/16.0), 1e-9)

	assert.ErrorIs(t, cell.SetHeights(SolidFloor, 0), ErrSolidFloor, "Запись 255 через SetHeights запрещена")
	assert.False(t, cell.IsSolid())

	require.NoError(t, cell.SetHeights(254, 1))
	assert.Equal(t, uint8(254), cell.Floor())

	cell.SetSolid()
	assert.True(t, cell.IsSolid())
	assert.ErrorIs(t, cell.SetHeights(1, 1), ErrCellSolid, "Высоты сплошной клетки не меняются")

	assert.ErrorIs(t, cell.Open(SolidFloor, 1), ErrSolidFloor)
	require.NoError(t, cell.Open(2, 8))
	assert.False(t, cell.IsSolid())
	assert.Equal(t, 10, cell.CeilingLevel())
}

func TestCell_Materials(t *testing.T) {
	m, err := New(1, 1, 0, 16)
	require.NoError(t, err)
	cell := m.Cell(0, 0)

	cell.SetMaterial(YPos, 2)
	cell.SetMaterial(ZNeg, 1)
	id, ok := cell.Material(ZNeg)
	assert.True(t, ok)
	assert.Equal(t, MaterialID(1), id)
	assert.Equal(t, []Direction{ZNeg, YPos}, cell.MaterialDirections())

	assert.True(t, cell.ClearMaterial(ZNeg))
	assert.False(t, cell.ClearMaterial(ZNeg), "Повторное удаление ничего не меняет")
}

func TestMaterialTable(t *testing.T) {
	m, err := New(1, 1, 0, 16)
	require.NoError(t, err)

	wall := m.AddMaterial("textures/wall.png")
	floor := m.AddMaterial("textures/floor.png")
	assert.NotEqual(t, wall, floor)
	assert.Equal(t, wall, m.AddMaterial("textures/wall.png"), "Повторный путь даёт тот же ID")

	m.SetMaterialPath(7, "textures/lava.png")
	path, ok := m.MaterialPath(7)
	assert.True(t, ok)
	assert.Equal(t, "textures/lava.png", path)
	assert.Equal(t, MaterialID(8), m.AddMaterial("textures/new.png"), "Новые ID идут после загруженных")
	assert.Equal(t, []MaterialID{0, 1, 7, 8}, m.MaterialIDs())
}

func testImage() *image.RGBA {
	// 3x2: правый столбец сплошной
	img := image.NewRGBA(image.Rect(0, 0, 3, 2))
	for y := 0; y < 2; y++ {
		for x := 0; x < 3; x++ {
			img.Set(x, y, color.RGBA{R: 255, A: 255})
		}
		img.Set(2, y, color.RGBA{B: 255, A: 255})
	}
	return img
}

func TestLoadFromImage(t *testing.T) {
	mats := ImageMaterials{Walls: 0, Floor: 1, Ceiling: 2}
	m, err := LoadFromImage(testImage(), ImageHeights{Floor: 0, Ceiling: 16}, mats)
	require.NoError(t, err)

	assert.Equal(t, vec.Vec2{X: 3, Y: 2}, m.Size())
	assert.True(t, m.Cell(2, 0).IsSolid(), "Синий пиксель даёт сплошную клетку")
	assert.Empty(t, m.Cell(2, 0).Materials, "Сплошная клетка без материалов")

	cell := m.Cell(1, 0)
	require.False(t, cell.IsSolid())
	assert.Equal(t, []Direction{ZNeg, XPos, YNeg, YPos}, cell.MaterialDirections(),
		"Стена к сплошному соседу и к краю карты, плюс пол и потолок")

	cell = m.Cell(0, 1)
	assert.Equal(t, []Direction{ZPos, XNeg, YNeg, YPos}, cell.MaterialDirections())
	id, _ := cell.Material(YNeg)
	assert.Equal(t, MaterialID(1), id)
}

func TestDecodeImage_PNG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, testImage()))

	img, err := DecodeImage(&buf)
	require.NoError(t, err)
	assert.Equal(t, 3, img.Bounds().Dx())

	_, err = DecodeImage(bytes.NewReader([]byte("not an image")))
	assert.Error(t, err)
}
