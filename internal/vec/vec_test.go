package vec

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVec2Float_Rotate(t *testing.T) {
	v := Vec2Float{X: 1, Y: 0}

	r := v.Rotate(math.Pi / 2)
	assert.InDelta(t, 0.0, r.X, 1e-12, "X после поворота на 90° должен быть 0")
	assert.InDelta(t, 1.0, r.Y, 1e-12, "Y после поворота на 90° должен быть 1")

	back := r.Rotate(-math.Pi / 2)
	assert.InDelta(t, 1.0, back.X, 1e-12)
	assert.InDelta(t, 0.0, back.Y, 1e-12)
}

func TestVec2Float_NormalizedZero(t *testing.T) {
	assert.Equal(t, Vec2Float{}, Vec2Float{}.Normalized(), "Нулевой вектор остаётся нулевым")
	assert.InDelta(t, 1.0, Vec2Float{X: 3, Y: 4}.Normalized().Length(), 1e-12)
}

func TestVec2Float_Floor(t *testing.T) {
	assert.Equal(t, Vec2{X: -1, Y: 2}, Vec2Float{X: -0.25, Y: 2.99}.Floor(), "Округление вниз для отрицательных координат")
}

func TestVec2Float_IsFinite(t *testing.T) {
	assert.True(t, Vec2Float{X: 1, Y: 2}.IsFinite())
	assert.False(t, Vec2Float{X: math.NaN(), Y: 0}.IsFinite())
	assert.False(t, Vec2Float{X: math.Inf(1), Y: 0}.IsFinite())
}

func TestVec3Float_Flat(t *testing.T) {
	v := Vec3Float{X: 1, Y: 5, Z: -2}
	assert.Equal(t, Vec2Float{X: 1, Y: -2}, v.Flat(), "Flat использует X и Z")
}
