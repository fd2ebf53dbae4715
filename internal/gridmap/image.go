package gridmap

import (
	"fmt"
	"image"
	_ "image/png" // декодер PNG
	"io"
	"os"

	_ "golang.org/x/image/bmp" // декодер BMP
)

// ImageMaterials материалы, назначаемые при загрузке карты из изображения
type ImageMaterials struct {
	Walls   MaterialID
	Floor   MaterialID
	Ceiling MaterialID
}

// ImageHeights высоты открытых клеток при загрузке из изображения
type ImageHeights struct {
	Floor   uint8
	Ceiling uint8
}

// LoadFromImage строит карту по изображению: пиксель с ненулевым синим каналом сплошной
func LoadFromImage(img image.Image, heights ImageHeights, mats ImageMaterials) (*GridMap, error) {
	bounds := img.Bounds()
	m, err := New(bounds.Dx(), bounds.Dy(), heights.Floor, heights.Ceiling)
	if err != nil {
		return nil, err
	}

	solid := func(x, y int) bool {
		if !m.InBounds(x, y) {
			return true
		}
		_, _, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
		return b > 0
	}

	// Первый проход: сплошность
	m.ForEachCell(func(cell *Cell) {
		if solid(cell.Position.X, cell.Position.Y) {
			cell.SetSolid()
		}
	})

	// Второй проход: материалы открытых клеток, край карты считается стеной
	m.ForEachCell(func(cell *Cell) {
		if cell.IsSolid() {
			return
		}
		for _, dir := range HorizontalDirections {
			pos := cell.Position.Add(dir.Offset())
			if solid(pos.X, pos.Y) {
				cell.SetMaterial(dir, mats.Walls)
			}
		}
		cell.SetMaterial(YNeg, mats.Floor)
		cell.SetMaterial(YPos, mats.Ceiling)
	})

	return m, nil
}

// DecodeImage читает изображение карты из потока (PNG или BMP)
func DecodeImage(r io.Reader) (image.Image, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("gridmap: не удалось декодировать изображение: %w", err)
	}
	return img, nil
}

// LoadImageFile загружает карту из файла изображения
func LoadImageFile(path string, heights ImageHeights, mats ImageMaterials) (*GridMap, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("gridmap: не удалось открыть %s: %w", path, err)
	}
	defer f.Close()

	img, err := DecodeImage(f)
	if err != nil {
		return nil, err
	}
	return LoadFromImage(img, heights, mats)
}
