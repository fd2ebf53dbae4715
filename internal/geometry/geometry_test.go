package geometry

import (
	"testing"

	"github.com/annel0/gridcast/internal/gridmap"
	"github.com/annel0/gridcast/internal/vec"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newPair создаёт карту 2x1: клетка A слева, B справа; у A материалы на всех гранях
func newPair(t *testing.T, aFloor, aCeil, bFloor, bCeil uint8) (*gridmap.GridMap, *gridmap.Cell, *gridmap.Cell) {
	t.Helper()
	m, err := gridmap.New(2, 1, 0, 16)
	require.NoError(t, err)

	a := m.Cell(0, 0)
	b := m.Cell(1, 0)
	require.NoError(t, a.SetHeights(aFloor, aCeil))
	require.NoError(t, b.SetHeights(bFloor, bCeil))
	for _, dir := range gridmap.AllDirections {
		a.SetMaterial(dir, 1)
	}
	return m, a, b
}

func facesIn(faces []FaceSpec, dir gridmap.Direction) []FaceSpec {
	var out []FaceSpec
	for _, f := range faces {
		if f.Direction == dir {
			out = append(out, f)
		}
	}
	return out
}

func TestSynthesize_SolidCellHasNoFaces(t *testing.T) {
	m, a, _ := newPair(t, 0, 4, 0, 4)
	a.SetSolid()
	assert.Empty(t, Synthesize(m, a), "Сплошная клетка не имеет граней")
}

func TestSynthesize_FloorAndCeiling(t *testing.T) {
	m, a, _ := newPair(t, 2, 6, 2, 6)
	faces := Synthesize(m, a)

	floor := facesIn(faces, gridmap.YNeg)
	ceiling := facesIn(faces, gridmap.YPos)
	require.Len(t, floor, 1)
	require.Len(t, ceiling, 1)
	assert.Equal(t, 2, floor[0].Bottom)
	assert.Equal(t, 8, ceiling[0].Top, "Потолок на абсолютной высоте пол+приращение")
}

func TestSynthesize_MapEdgeFullWall(t *testing.T) {
	m, a, _ := newPair(t, 1, 5, 1, 5)
	faces := Synthesize(m, a)

	// Слева, сверху и снизу край карты
	for _, dir := range []gridmap.Direction{gridmap.XNeg, gridmap.ZNeg, gridmap.ZPos} {
		walls := facesIn(faces, dir)
		require.Len(t, walls, 1, "На краю карты ровно одна стена: %s", dir)
		assert.Equal(t, 1, walls[0].Bottom)
		assert.Equal(t, 6, walls[0].Top)
	}
}

func TestSynthesize_EqualHeightsNoWall(t *testing.T) {
	m, a, _ := newPair(t, 0, 4, 0, 4)
	assert.Empty(t, facesIn(Synthesize(m, a), gridmap.XPos), "Равные высоты не требуют стены")
}

func TestSynthesize_NeighborContainsRange(t *testing.T) {
	m, a, _ := newPair(t, 2, 2, 1, 10)
	assert.Empty(t, facesIn(Synthesize(m, a), gridmap.XPos), "Сосед полностью перекрывает диапазон")
}

func TestSynthesize_DisjointRangesFullWall(t *testing.T) {
	t.Run("neighbour above", func(t *testing.T) {
		m, a, _ := newPair(t, 0, 4, 6, 4)
		walls := facesIn(Synthesize(m, a), gridmap.XPos)
		require.Len(t, walls, 1)
		assert.Equal(t, FaceSpec{Direction: gridmap.XPos, Cell: a.Position, Material: 1, Bottom: 0, Top: 4}, walls[0])
	})
	t.Run("neighbour below", func(t *testing.T) {
		m, a, _ := newPair(t, 10, 4, 0, 3)
		walls := facesIn(Synthesize(m, a), gridmap.XPos)
		require.Len(t, walls, 1)
		assert.Equal(t, 10, walls[0].Bottom)
		assert.Equal(t, 14, walls[0].Top)
	})
	t.Run("solid neighbour", func(t *testing.T) {
		m, a, b := newPair(t, 0, 4, 0, 4)
		b.SetSolid()
		walls := facesIn(Synthesize(m, a), gridmap.XPos)
		require.Len(t, walls, 1)
		assert.Equal(t, 4, walls[0].Extent())
	})
}

func TestSynthesize_PartialOverlapTwoFaces(t *testing.T) {
	// A: [0,8], B: [2,6]
	m, a, _ := newPair(t, 0, 8, 2, 4)
	walls := facesIn(Synthesize(m, a), gridmap.XPos)
	require.Len(t, walls, 2, "Ступень снизу и перемычка сверху")
	assert.Equal(t, 0, walls[0].Bottom)
	assert.Equal(t, 2, walls[0].Top)
	assert.Equal(t, 6, walls[1].Bottom)
	assert.Equal(t, 8, walls[1].Top)
}

func TestSynthesize_StepUp(t *testing.T) {
	// floor(B) > floor(A), ceiling(B) >= ceiling(A): одна стена [floor(A), floor(B)]
	m, a, _ := newPair(t, 1, 6, 3, 8)
	walls := facesIn(Synthesize(m, a), gridmap.XPos)
	require.Len(t, walls, 1)
	assert.Equal(t, 1, walls[0].Bottom)
	assert.Equal(t, 3, walls[0].Top)
}

func TestSynthesize_ZeroExtentSuppressed(t *testing.T) {
	// A: [0,4], B: [2,4] -> верхняя часть нулевой высоты
	m, a, _ := newPair(t, 0, 4, 2, 2)
	walls := facesIn(Synthesize(m, a), gridmap.XPos)
	require.Len(t, walls, 1, "Грань нулевой высоты не создаётся")
	assert.Equal(t, 0, walls[0].Bottom)
	assert.Equal(t, 2, walls[0].Top)

	m, a, _ = newPair(t, 3, 0, 3, 0)
	faces := Synthesize(m, a)
	for _, f := range faces {
		if f.Direction.IsHorizontal() {
			assert.Positive(t, f.Extent(), "Стены всегда имеют высоту")
		}
	}
	assert.Len(t, facesIn(faces, gridmap.YNeg), 1, "Пол клетки нулевой высоты остаётся")
}

func TestSynthesize_MaterialRequired(t *testing.T) {
	m, a, b := newPair(t, 0, 4, 0, 4)
	b.SetSolid()
	a.ClearMaterial(gridmap.XPos)
	a.ClearMaterial(gridmap.YPos)

	faces := Synthesize(m, a)
	assert.Empty(t, facesIn(faces, gridmap.XPos), "Без материала стены нет")
	assert.Empty(t, facesIn(faces, gridmap.YPos))
}

func TestSynthesize_Idempotent(t *testing.T) {
	m, a, _ := newPair(t, 0, 8, 2, 4)
	assert.Equal(t, Synthesize(m, a), Synthesize(m, a), "Повторный синтез даёт тот же результат")
}

func TestBuildQuad_WorldPlacement(t *testing.T) {
	scale := Scale{DrawScale: 2, DepthIncrement: 0.125}
	face := FaceSpec{Direction: gridmap.XPos, Cell: vec.Vec2{X: 3, Y: 1}, Bottom: 0, Top: 4}
	q := BuildQuad(face, scale)

	for _, v := range q.Vertices {
		assert.InDelta(t, 8.0, v[0], 1e-6, "Восточная стена лежит на x = (x+1)*scale")
	}
	assert.Equal(t, mgl32.Vec3{8, 1, 2}, q.Vertices[0], "Верх стены равен top*inc*scale")
	assert.Equal(t, mgl32.Vec3{8, 0, 4}, q.Vertices[3])
	assert.InDelta(t, 0.5, q.TexCoords[0][1], 1e-6, "minV = 1 - высота в единицах карты")
	assert.Equal(t, mgl32.Vec3{-1, 0, 0}, q.Normals[2])
	assert.Equal(t, [6]uint16{0, 1, 2, 1, 3, 2}, q.Indices)
}

func TestBuildQuad_FloorAndCeilingPlanes(t *testing.T) {
	scale := Scale{DrawScale: 1, DepthIncrement: 0.25}
	floor := BuildQuad(FaceSpec{Direction: gridmap.YNeg, Bottom: 2, Top: 6}, scale)
	ceiling := BuildQuad(FaceSpec{Direction: gridmap.YPos, Bottom: 2, Top: 6}, scale)

	for i := 0; i < 4; i++ {
		assert.InDelta(t, 0.5, floor.Vertices[i][1], 1e-6, "Пол на высоте пола")
		assert.InDelta(t, 1.5, ceiling.Vertices[i][1], 1e-6, "Потолок на абсолютной высоте")
	}
	assert.Equal(t, mgl32.Vec3{0, 1, 0}, floor.Normals[0])
	assert.Equal(t, mgl32.Vec3{0, -1, 0}, ceiling.Normals[0])
	assert.Equal(t, [6]uint16{2, 1, 0, 2, 3, 1}, floor.Indices)
}

func TestBuildQuad_TrianglesFaceNormal(t *testing.T) {
	scale := Scale{DrawScale: 1, DepthIncrement: 0.25}
	for _, dir := range gridmap.AllDirections {
		q := BuildQuad(FaceSpec{Direction: dir, Bottom: 0, Top: 4}, scale)
		for _, tri := range q.Triangles() {
			n := tri[1].Sub(tri[0]).Cross(tri[2].Sub(tri[0]))
			assert.Greater(t, n.Len(), float32(0), "Треугольник не вырожден: %s", dir)
		}
	}
}

func TestLighting_Tints(t *testing.T) {
	tints := DefaultLighting().Tints()

	assert.Equal(t, uint8(255), tints[gridmap.YNeg].R, "Пол усилен до максимума")
	assert.Equal(t, uint8(255), tints[gridmap.YPos].R, "Потолок усилен до максимума")
	assert.InDelta(t, 63, int(tints[gridmap.XNeg].R), 1, "Грань против солнца освещена только фоном")
	assert.InDelta(t, 191, int(tints[gridmap.XPos].R), 1)
	assert.InDelta(t, 63, int(tints[gridmap.ZNeg].R), 1)
	assert.InDelta(t, 127, int(tints[gridmap.ZPos].R), 1)
	for _, c := range tints {
		assert.Equal(t, c.R, c.G)
		assert.Equal(t, uint8(255), c.A)
	}
}
