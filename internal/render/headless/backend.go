// Package headless реализует примитивы отрисовки в памяти: для серверов без GPU и тестов.
package headless

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"os"
	"sort"
	"sync"

	"github.com/annel0/gridcast/internal/geometry"
	"github.com/annel0/gridcast/internal/gridmap"
	"github.com/annel0/gridcast/internal/logging"
	"github.com/annel0/gridcast/internal/render"
	"github.com/go-gl/mathgl/mgl32"
)

// ErrUploadRejected загрузка меша отклонена хуком
var ErrUploadRejected = errors.New("headless: mesh upload rejected")

// Material материал, выданный резолвером
type Material struct {
	Handle   render.MaterialHandle
	ID       gridmap.MaterialID
	Path     string
	Tint     color.RGBA
	Texture  image.Image
	Fallback bool // Текстура не найдена, используется шахматка
}

// DrawCall одна записанная отрисовка
type DrawCall struct {
	Mesh      render.MeshHandle
	Material  render.MaterialHandle
	Transform mgl32.Mat4
}

type materialKey struct {
	id   gridmap.MaterialID
	path string
	tint color.RGBA
}

// Backend хранит меши, материалы и вызовы отрисовки в памяти
type Backend struct {
	mu sync.Mutex

	// UploadHook вызывается перед загрузкой меша; ошибка отклоняет грань
	UploadHook func(q geometry.Quad) error

	nextMesh  render.MeshHandle
	meshes    map[render.MeshHandle]geometry.Quad
	released  int
	textures  map[string]image.Image
	materials map[materialKey]*Material
	byHandle  []*Material
	draws     []DrawCall
	fallback  image.Image
}

// New создаёт пустой бэкенд
func New() *Backend {
	return &Backend{
		nextMesh:  1,
		meshes:    make(map[render.MeshHandle]geometry.Quad),
		textures:  make(map[string]image.Image),
		materials: make(map[materialKey]*Material),
		fallback:  Checkerboard(128, 128, 4, color.RGBA{245, 245, 245, 255}, color.RGBA{130, 130, 130, 255}),
	}
}

// AddTexture регистрирует текстуру по пути без обращения к диску
func (b *Backend) AddTexture(path string, img image.Image) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.textures[path] = img
}

// UploadMesh сохраняет буферы грани и выдаёт новый идентификатор
func (b *Backend) UploadMesh(q geometry.Quad) (render.MeshHandle, error) {
	if b.UploadHook != nil {
		if err := b.UploadHook(q); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrUploadRejected, err)
		}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	h := b.nextMesh
	b.nextMesh++
	b.meshes[h] = q
	return h, nil
}

// ReleaseMesh удаляет меш
func (b *Backend) ReleaseMesh(h render.MeshHandle) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.meshes[h]; ok {
		delete(b.meshes, h)
		b.released++
	}
}

// ResolveMaterial выдаёт материал для тройки (ID, путь, оттенок), при отсутствии текстуры берёт шахматку.
// Путь входит в ключ: после загрузки другой карты те же ID указывают на другие текстуры.
func (b *Backend) ResolveMaterial(id gridmap.MaterialID, path string, tint color.RGBA) render.MaterialHandle {
	b.mu.Lock()
	defer b.mu.Unlock()

	key := materialKey{id: id, path: path, tint: tint}
	if mat, ok := b.materials[key]; ok {
		return mat.Handle
	}

	tex, ok := b.textures[path]
	if !ok && path != "" {
		if img, err := loadTexture(path); err == nil {
			tex = img
			ok = true
			b.textures[path] = img
		} else {
			logging.Debug("Текстура %s недоступна, используется шахматка: %v", path, err)
		}
	}

	mat := &Material{
		Handle: render.MaterialHandle(len(b.byHandle) + 1),
		ID:     id,
		Path:   path,
		Tint:   tint,
	}
	if ok {
		mat.Texture = tex
	} else {
		mat.Texture = b.fallback
		mat.Fallback = true
	}
	b.materials[key] = mat
	b.byHandle = append(b.byHandle, mat)
	return mat.Handle
}

// BeginFrame сбрасывает журнал: в нём остаются вызовы только последнего кадра
func (b *Backend) BeginFrame() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.draws = nil
}

// DrawMesh записывает вызов отрисовки
func (b *Backend) DrawMesh(mesh render.MeshHandle, material render.MaterialHandle, transform mgl32.Mat4) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.draws = append(b.draws, DrawCall{Mesh: mesh, Material: material, Transform: transform})
}

// Material возвращает материал по идентификатору
func (b *Backend) Material(h render.MaterialHandle) (*Material, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	i := int(h) - 1
	if i < 0 || i >= len(b.byHandle) {
		return nil, false
	}
	return b.byHandle[i], true
}

// Mesh возвращает буферы меша
func (b *Backend) Mesh(h render.MeshHandle) (geometry.Quad, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	q, ok := b.meshes[h]
	return q, ok
}

// LiveMeshes количество неосвобождённых мешей
func (b *Backend) LiveMeshes() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.meshes)
}

// Released количество освобождённых мешей
func (b *Backend) Released() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.released
}

// Draws возвращает вызовы текущего кадра и очищает журнал
func (b *Backend) Draws() []DrawCall {
	b.mu.Lock()
	defer b.mu.Unlock()
	draws := b.draws
	b.draws = nil
	return draws
}

// MaterialCount количество выданных материалов
func (b *Backend) MaterialCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.byHandle)
}

// TexturePaths возвращает пути загруженных текстур
func (b *Backend) TexturePaths() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	paths := make([]string, 0, len(b.textures))
	for p := range b.textures {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

func loadTexture(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return gridmap.DecodeImage(f)
}

// Checkerboard создаёт шахматную текстуру с клетками размера check пикселей
func Checkerboard(width, height, check int, a, b color.RGBA) *image.RGBA {
	if check <= 0 {
		check = 1
	}
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if ((x/check)+(y/check))%2 == 0 {
				img.SetRGBA(x, y, a)
			} else {
				img.SetRGBA(x, y, b)
			}
		}
	}
	return img
}

var _ render.Backend = (*Backend)(nil)
