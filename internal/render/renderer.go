package render

import (
	"image/color"
	"slices"
	"sort"

	"github.com/annel0/gridcast/internal/geometry"
	"github.com/annel0/gridcast/internal/gridmap"
	"github.com/annel0/gridcast/internal/logging"
	"github.com/annel0/gridcast/internal/metrics"
	"github.com/annel0/gridcast/internal/visibility"
	"github.com/go-gl/mathgl/mgl32"
)

// Options параметры сборки геометрии
type Options struct {
	DrawScale      float64 // Размер клетки в мире
	DepthIncrement float64 // Один шаг высоты в единицах карты
	Lighting       geometry.Lighting
}

// DefaultOptions возвращает стандартные параметры: клетка 1x1, шаг высоты 1/16
func DefaultOptions() Options {
	return Options{DrawScale: 1, DepthIncrement: 1.0 / 16, Lighting: geometry.DefaultLighting()}
}

// Face сгенерированная грань клетки
type Face struct {
	geometry.FaceSpec
	Mesh     MeshHandle
	Material MaterialHandle
	Quad     geometry.Quad
}

// CellRecord грани одной клетки, связь с картой только по индексу
type CellRecord struct {
	CellIndex int
	Faces     []Face
}

// DrawStats счётчики последнего кадра
type DrawStats struct {
	Cells  int
	Faces  int
	Groups int
}

type faceRef struct {
	cell int
	face int
}

// Renderer хранит грани клеток и отправляет видимые грани на отрисовку
type Renderer struct {
	uploader MeshUploader
	resolver MaterialResolver
	drawer   Drawer
	opts     Options
	tints    [gridmap.DirectionCount]color.RGBA
	metrics  *metrics.Collector
	logger   *logging.Logger

	gridMap *gridmap.GridMap
	records []CellRecord
	groups  map[MaterialHandle][]faceRef
	stats   DrawStats
	meshes  int
}

// NewRenderer создаёт рендер поверх внешних примитивов; collector может быть nil
func NewRenderer(backend Backend, opts Options, collector *metrics.Collector) *Renderer {
	return NewRendererWith(backend, backend, backend, opts, collector)
}

// NewRendererWith создаёт рендер из отдельных примитивов
func NewRendererWith(uploader MeshUploader, resolver MaterialResolver, drawer Drawer, opts Options, collector *metrics.Collector) *Renderer {
	if opts.DrawScale <= 0 {
		opts.DrawScale = 1
	}
	if opts.DepthIncrement <= 0 {
		opts.DepthIncrement = 1.0 / 16
	}
	return &Renderer{
		uploader: uploader,
		resolver: resolver,
		drawer:   drawer,
		opts:     opts,
		tints:    opts.Lighting.Tints(),
		metrics:  collector,
		logger:   logging.GetRenderLogger(),
		groups:   make(map[MaterialHandle][]faceRef),
	}
}

// Options возвращает параметры рендера
func (r *Renderer) Options() Options {
	return r.opts
}

// Map возвращает текущую карту
func (r *Renderer) Map() *gridmap.GridMap {
	return r.gridMap
}

// Tint возвращает оттенок направления
func (r *Renderer) Tint(dir gridmap.Direction) color.RGBA {
	return r.tints[dir]
}

// Setup привязывает карту и собирает геометрию всех клеток
func (r *Renderer) Setup(m *gridmap.GridMap) {
	r.CleanUp()
	r.gridMap = m
	r.records = make([]CellRecord, m.CellCount())

	faces := 0
	for i := range r.records {
		r.records[i].CellIndex = i
		faces += r.BuildCellGeo(i)
	}
	r.logger.Info("Геометрия собрана: %d клеток, %d граней", len(r.records), faces)
}

// BuildCellGeo пересобирает грани клетки и возвращает их количество
func (r *Renderer) BuildCellGeo(index int) int {
	if r.gridMap == nil || index < 0 || index >= len(r.records) {
		return 0
	}
	record := &r.records[index]
	r.releaseRecord(record)

	cell := r.gridMap.CellByIndex(index)
	scale := geometry.Scale{DrawScale: float32(r.opts.DrawScale), DepthIncrement: float32(r.opts.DepthIncrement)}

	for _, fs := range geometry.Synthesize(r.gridMap, cell) {
		quad := geometry.BuildQuad(fs, scale)
		mesh, err := r.uploader.UploadMesh(quad)
		if err != nil {
			r.logger.Warn("Не удалось загрузить меш клетки %d (%s): %v", index, fs.Direction, err)
			r.metrics.ObserveUploadFailure()
			continue
		}
		path, _ := r.gridMap.MaterialPath(fs.Material)
		material := r.resolver.ResolveMaterial(fs.Material, path, r.tints[fs.Direction])
		record.Faces = append(record.Faces, Face{FaceSpec: fs, Mesh: mesh, Material: material, Quad: quad})
	}

	r.meshes += len(record.Faces)
	r.metrics.AddMeshes(len(record.Faces))
	r.metrics.ObserveRebuild()
	logging.LogCellRebuild(index, len(record.Faces))
	return len(record.Faces)
}

// RebuildAround пересобирает клетку и четырёх её соседей
func (r *Renderer) RebuildAround(index int) {
	if r.gridMap == nil {
		return
	}
	cell := r.gridMap.CellByIndex(index)
	if cell == nil {
		return
	}
	r.BuildCellGeo(index)
	for _, dir := range gridmap.HorizontalDirections {
		if neighbor := r.gridMap.DirectionCell(cell, dir); neighbor != nil {
			r.BuildCellGeo(neighbor.Index)
		}
	}
}

func (r *Renderer) releaseRecord(record *CellRecord) {
	for _, face := range record.Faces {
		r.uploader.ReleaseMesh(face.Mesh)
	}
	r.meshes -= len(record.Faces)
	r.metrics.AddMeshes(-len(record.Faces))
	record.Faces = nil
}

// Faces возвращает копию граней клетки
func (r *Renderer) Faces(index int) []Face {
	if index < 0 || index >= len(r.records) {
		return nil
	}
	return slices.Clone(r.records[index].Faces)
}

// MeshCount количество живых мешей
func (r *Renderer) MeshCount() int {
	return r.meshes
}

// Draw отправляет грани видимых клеток, сгруппированные по материалу.
// nil или DrawEverything рисуют всю карту.
func (r *Renderer) Draw(vs *visibility.Set) DrawStats {
	for handle, refs := range r.groups {
		r.groups[handle] = refs[:0]
	}
	r.stats = DrawStats{}
	if fs, ok := r.drawer.(FrameStarter); ok {
		fs.BeginFrame()
	}

	if vs == nil || vs.DrawEverything {
		for i := range r.records {
			r.collectCell(i)
		}
	} else {
		for _, index := range vs.VisibleCells() {
			r.collectCell(index)
		}
	}

	handles := make([]MaterialHandle, 0, len(r.groups))
	for handle, refs := range r.groups {
		if len(refs) > 0 {
			handles = append(handles, handle)
		}
	}
	sort.Slice(handles, func(i, j int) bool { return handles[i] < handles[j] })

	// Геометрия уже в мировых координатах
	identity := mgl32.Ident4()
	for _, handle := range handles {
		for _, ref := range r.groups[handle] {
			face := r.records[ref.cell].Faces[ref.face]
			r.drawer.DrawMesh(face.Mesh, handle, identity)
		}
	}

	r.stats.Groups = len(handles)
	r.metrics.ObserveDraw(r.stats.Cells, r.stats.Faces)
	return r.stats
}

func (r *Renderer) collectCell(index int) {
	if index < 0 || index >= len(r.records) {
		return
	}
	r.stats.Cells++
	for i, face := range r.records[index].Faces {
		r.stats.Faces++
		r.groups[face.Material] = append(r.groups[face.Material], faceRef{cell: index, face: i})
	}
}

// Stats возвращает счётчики последнего кадра
func (r *Renderer) Stats() DrawStats {
	return r.stats
}

// CleanUp освобождает все меши
func (r *Renderer) CleanUp() {
	for i := range r.records {
		r.releaseRecord(&r.records[i])
	}
	r.records = nil
	r.gridMap = nil
}
