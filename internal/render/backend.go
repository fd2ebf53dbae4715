package render

import (
	"image/color"

	"github.com/annel0/gridcast/internal/geometry"
	"github.com/annel0/gridcast/internal/gridmap"
	"github.com/go-gl/mathgl/mgl32"
)

// MeshHandle непрозрачный идентификатор загруженного меша
type MeshHandle uint32

// MaterialHandle непрозрачный идентификатор готового к отрисовке материала
type MaterialHandle uint32

// MeshUploader загружает буферы грани и освобождает их
type MeshUploader interface {
	UploadMesh(q geometry.Quad) (MeshHandle, error)
	ReleaseMesh(h MeshHandle)
}

// MaterialResolver сопоставляет материал карты и оттенок направления с материалом отрисовки.
// При отсутствии текстуры резолвер обязан вернуть запасной материал.
type MaterialResolver interface {
	ResolveMaterial(id gridmap.MaterialID, path string, tint color.RGBA) MaterialHandle
}

// Drawer рисует меш с материалом и мировым преобразованием
type Drawer interface {
	DrawMesh(mesh MeshHandle, material MaterialHandle, transform mgl32.Mat4)
}

// FrameStarter необязательный интерфейс отрисовщика: вызывается в начале каждого кадра
type FrameStarter interface {
	BeginFrame()
}

// Backend объединяет три внешних примитива отрисовки
type Backend interface {
	MeshUploader
	MaterialResolver
	Drawer
}
