package minimap

import (
	"math"
	"strings"

	"github.com/annel0/gridcast/internal/gridmap"
	"github.com/annel0/gridcast/internal/visibility"
)

// Глифы клеток миникарты
const (
	GlyphCurrent = '@'
	GlyphTarget  = '#'
	GlyphVisible = '+'
	GlyphSolid   = 'X'
	GlyphOpen    = '.'
	GlyphOutside = ' '
)

// DefaultRadius даёт блок 5x5 вокруг камеры
const DefaultRadius = 2

// Render рисует текстовую миникарту (2*radius+1)^2 вокруг клетки камеры.
// Строка соответствует Z (сверху вниз по возрастанию), столбец соответствует X.
func Render(m *gridmap.GridMap, vs *visibility.Set, drawScale float64, radius int) []string {
	if radius < 0 {
		radius = 0
	}
	if drawScale <= 0 {
		drawScale = 1
	}
	cx := int(math.Floor(vs.Camera.Position.X / drawScale))
	cy := int(math.Floor(vs.Camera.Position.Z / drawScale))

	lines := make([]string, 0, 2*radius+1)
	var sb strings.Builder
	for y := cy - radius; y <= cy+radius; y++ {
		sb.Reset()
		for x := cx - radius; x <= cx+radius; x++ {
			sb.WriteRune(glyph(m, vs, x, y, x == cx && y == cy))
		}
		lines = append(lines, sb.String())
	}
	return lines
}

// String собирает миникарту в одну строку с переводами строк
func String(m *gridmap.GridMap, vs *visibility.Set, drawScale float64, radius int) string {
	return strings.Join(Render(m, vs, drawScale, radius), "\n")
}

func glyph(m *gridmap.GridMap, vs *visibility.Set, x, y int, current bool) rune {
	cell := m.Cell(x, y)
	switch {
	case current:
		return GlyphCurrent
	case cell == nil:
		return GlyphOutside
	case vs.IsTarget(cell.Index):
		return GlyphTarget
	case vs.IsVisible(cell.Index):
		return GlyphVisible
	case cell.IsSolid():
		return GlyphSolid
	default:
		return GlyphOpen
	}
}
