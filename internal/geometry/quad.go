package geometry

import (
	"github.com/annel0/gridcast/internal/gridmap"
	"github.com/go-gl/mathgl/mgl32"
)

// Quad сырые буферы одной грани: 4 вершины, 2 треугольника
type Quad struct {
	Vertices  [4]mgl32.Vec3
	TexCoords [4]mgl32.Vec2
	Normals   [4]mgl32.Vec3
	Indices   [6]uint16
}

var (
	indicesCW  = [6]uint16{0, 1, 2, 1, 3, 2}
	indicesCCW = [6]uint16{2, 1, 0, 2, 3, 1}
)

// Scale параметры перевода шагов сетки в мировые единицы
type Scale struct {
	DrawScale      float32 // Размер клетки в мире
	DepthIncrement float32 // Один шаг высоты в единицах карты
}

// BuildQuad строит вершины грани по шаблону направления в мировых координатах
func BuildQuad(face FaceSpec, scale Scale) Quad {
	s := scale.DrawScale
	minX := float32(face.Cell.X) * s
	maxX := float32(face.Cell.X+1) * s
	minZ := float32(face.Cell.Y) * s
	maxZ := float32(face.Cell.Y+1) * s
	bottom := float32(face.Bottom) * scale.DepthIncrement * s
	top := float32(face.Top) * scale.DepthIncrement * s

	// Текстура тянется от низа стены, верх обрезается по высоте в единицах карты
	minV := 1 - float32(face.Top-face.Bottom)*scale.DepthIncrement

	var q Quad
	normal := DirectionNormal(face.Direction)
	for i := range q.Normals {
		q.Normals[i] = normal
	}

	switch face.Direction {
	case gridmap.YPos:
		q.Vertices = [4]mgl32.Vec3{{minX, top, minZ}, {maxX, top, minZ}, {minX, top, maxZ}, {maxX, top, maxZ}}
		q.TexCoords = [4]mgl32.Vec2{{1, 0}, {0, 0}, {1, 1}, {0, 1}}
		q.Indices = indicesCW
	case gridmap.YNeg:
		q.Vertices = [4]mgl32.Vec3{{minX, bottom, minZ}, {maxX, bottom, minZ}, {minX, bottom, maxZ}, {maxX, bottom, maxZ}}
		q.TexCoords = [4]mgl32.Vec2{{0, 0}, {1, 0}, {0, 1}, {1, 1}}
		q.Indices = indicesCCW
	case gridmap.XNeg:
		q.Vertices = [4]mgl32.Vec3{{minX, top, minZ}, {minX, bottom, minZ}, {minX, top, maxZ}, {minX, bottom, maxZ}}
		q.TexCoords = [4]mgl32.Vec2{{1, minV}, {1, 1}, {0, minV}, {0, 1}}
		q.Indices = indicesCCW
	case gridmap.XPos:
		q.Vertices = [4]mgl32.Vec3{{maxX, top, minZ}, {maxX, bottom, minZ}, {maxX, top, maxZ}, {maxX, bottom, maxZ}}
		q.TexCoords = [4]mgl32.Vec2{{0, minV}, {0, 1}, {1, minV}, {1, 1}}
		q.Indices = indicesCW
	case gridmap.ZPos:
		q.Vertices = [4]mgl32.Vec3{{minX, top, maxZ}, {minX, bottom, maxZ}, {maxX, top, maxZ}, {maxX, bottom, maxZ}}
		q.TexCoords = [4]mgl32.Vec2{{1, minV}, {1, 1}, {0, minV}, {0, 1}}
		q.Indices = indicesCCW
	case gridmap.ZNeg:
		q.Vertices = [4]mgl32.Vec3{{minX, top, minZ}, {minX, bottom, minZ}, {maxX, top, minZ}, {maxX, bottom, minZ}}
		q.TexCoords = [4]mgl32.Vec2{{0, minV}, {0, 1}, {1, minV}, {1, 1}}
		q.Indices = indicesCW
	}
	return q
}

// Triangles возвращает два треугольника грани в порядке индексов
func (q Quad) Triangles() [2][3]mgl32.Vec3 {
	var tris [2][3]mgl32.Vec3
	for i, idx := range q.Indices {
		tris[i/3][i%3] = q.Vertices[idx]
	}
	return tris
}

// DirectionNormal нормаль грани, направленная внутрь клетки
func DirectionNormal(dir gridmap.Direction) mgl32.Vec3 {
	switch dir {
	case gridmap.YNeg:
		return mgl32.Vec3{0, 1, 0}
	case gridmap.YPos:
		return mgl32.Vec3{0, -1, 0}
	case gridmap.XNeg:
		return mgl32.Vec3{1, 0, 0}
	case gridmap.XPos:
		return mgl32.Vec3{-1, 0, 0}
	case gridmap.ZNeg:
		return mgl32.Vec3{0, 0, 1}
	case gridmap.ZPos:
		return mgl32.Vec3{0, 0, -1}
	}
	return mgl32.Vec3{}
}
