package headless

import (
	"bytes"
	"errors"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/annel0/gridcast/internal/geometry"
	"github.com/annel0/gridcast/internal/render"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackend_MeshLifecycle(t *testing.T) {
	b := New()
	h1, err := b.UploadMesh(geometry.Quad{})
	require.NoError(t, err)
	h2, err := b.UploadMesh(geometry.Quad{})
	require.NoError(t, err)

	assert.NotEqual(t, h1, h2, "Каждый меш получает новый идентификатор")
	assert.Equal(t, 2, b.LiveMeshes())

	b.ReleaseMesh(h1)
	b.ReleaseMesh(h1)
	assert.Equal(t, 1, b.LiveMeshes())
	assert.Equal(t, 1, b.Released(), "Повторное освобождение не считается")
}

func TestBackend_UploadHook(t *testing.T) {
	b := New()
	b.UploadHook = func(geometry.Quad) error { return errors.New("vram exhausted") }

	_, err := b.UploadMesh(geometry.Quad{})
	assert.ErrorIs(t, err, ErrUploadRejected)
	assert.Zero(t, b.LiveMeshes())
}

func TestBackend_ResolveMaterialFallback(t *testing.T) {
	b := New()
	tint := color.RGBA{63, 63, 63, 255}

	missing := filepath.Join(t.TempDir(), "missing.png")
	h := b.ResolveMaterial(3, missing, tint)
	mat, ok := b.Material(h)
	require.True(t, ok)
	assert.True(t, mat.Fallback, "Отсутствующая текстура заменяется шахматкой")
	assert.Equal(t, 128, mat.Texture.Bounds().Dx())

	assert.Equal(t, h, b.ResolveMaterial(3, missing, tint), "Тройка (ID, путь, оттенок) кэшируется")
	assert.NotEqual(t, h, b.ResolveMaterial(3, missing, color.RGBA{255, 255, 255, 255}))
	other := b.ResolveMaterial(3, "other.png", tint)
	assert.NotEqual(t, h, other, "Тот же ID с другим путём даёт новый материал")
	mat, _ = b.Material(other)
	assert.Equal(t, "other.png", mat.Path)
	assert.Equal(t, 3, b.MaterialCount())
}

func TestBackend_ResolveMaterialFromDisk(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, Checkerboard(8, 8, 2, color.RGBA{A: 255}, color.RGBA{R: 255, A: 255})))
	path := filepath.Join(t.TempDir(), "wall.png")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	b := New()
	mat, ok := b.Material(b.ResolveMaterial(0, path, color.RGBA{A: 255}))
	require.True(t, ok)
	assert.False(t, mat.Fallback)
	assert.Equal(t, 8, mat.Texture.Bounds().Dx())
	assert.Equal(t, []string{path}, b.TexturePaths())
}

func TestBackend_DrawJournal(t *testing.T) {
	b := New()
	b.DrawMesh(1, 2, mgl32.Ident4())
	b.DrawMesh(3, 2, mgl32.Ident4())

	draws := b.Draws()
	require.Len(t, draws, 2)
	assert.Equal(t, mgl32.Ident4(), draws[1].Transform)
	assert.Empty(t, b.Draws(), "Журнал очищается после чтения")

	b.DrawMesh(1, 2, mgl32.Ident4())
	b.BeginFrame()
	b.DrawMesh(3, 2, mgl32.Ident4())
	draws = b.Draws()
	require.Len(t, draws, 1, "Новый кадр начинает журнал заново")
	assert.Equal(t, render.MeshHandle(3), draws[0].Mesh)
}

func TestCheckerboard(t *testing.T) {
	a := color.RGBA{R: 1, A: 255}
	c := color.RGBA{B: 1, A: 255}
	img := Checkerboard(4, 4, 2, a, c)

	assert.Equal(t, a, img.RGBAAt(0, 0))
	assert.Equal(t, c, img.RGBAAt(2, 0))
	assert.Equal(t, a, img.RGBAAt(2, 2))
}
