package picking

import (
	"fmt"
	"math"

	"github.com/annel0/gridcast/internal/gridmap"
	"github.com/annel0/gridcast/internal/render"
	"github.com/annel0/gridcast/internal/visibility"
	"github.com/go-gl/mathgl/mgl32"
)

const (
	normalLimit = 0.75
	epsilon     = 1e-6
)

// FaceSource источник граней клеток (render.Renderer)
type FaceSource interface {
	Faces(index int) []render.Face
}

// Ray луч выбора в мировых координатах
type Ray struct {
	Origin    mgl32.Vec3
	Direction mgl32.Vec3
}

// Result ближайшее пересечение луча с гранью
type Result struct {
	Hit       bool
	CellIndex int
	Direction gridmap.Direction
	Position  mgl32.Vec3
	Distance  float32
}

// DirectionFromNormal определяет грань по нормали попадания
func DirectionFromNormal(n mgl32.Vec3) gridmap.Direction {
	switch {
	case n.X() > normalLimit:
		return gridmap.XNeg
	case n.X() < -normalLimit:
		return gridmap.XPos
	case n.Z() > normalLimit:
		return gridmap.ZNeg
	case n.Z() < -normalLimit:
		return gridmap.ZPos
	case n.Y() < -normalLimit:
		return gridmap.YPos
	}
	return gridmap.YNeg
}

// RayTriangle пересекает луч с треугольником без отсечения задних граней
func RayTriangle(ray Ray, a, b, c mgl32.Vec3) (float32, mgl32.Vec3, bool) {
	edge1 := b.Sub(a)
	edge2 := c.Sub(a)

	p := ray.Direction.Cross(edge2)
	det := edge1.Dot(p)
	if det > -epsilon && det < epsilon {
		return 0, mgl32.Vec3{}, false
	}
	inv := 1 / det

	tv := ray.Origin.Sub(a)
	u := tv.Dot(p) * inv
	if u < 0 || u > 1 {
		return 0, mgl32.Vec3{}, false
	}

	q := tv.Cross(edge1)
	v := ray.Direction.Dot(q) * inv
	if v < 0 || u+v > 1 {
		return 0, mgl32.Vec3{}, false
	}

	t := edge2.Dot(q) * inv
	if t <= epsilon {
		return 0, mgl32.Vec3{}, false
	}
	return t, edge1.Cross(edge2).Normalize(), true
}

// PickFace ищет ближайшую грань среди граней указанных клеток
func PickFace(src FaceSource, cells []int, ray Ray) Result {
	result := Result{CellIndex: -1, Distance: math.MaxFloat32}
	if ray.Direction.Len() == 0 {
		return result
	}
	ray.Direction = ray.Direction.Normalize()

	for _, index := range cells {
		for _, face := range src.Faces(index) {
			for _, tri := range face.Quad.Triangles() {
				dist, normal, ok := RayTriangle(ray, tri[0], tri[1], tri[2])
				if !ok || dist >= result.Distance {
					continue
				}
				result.Hit = true
				result.Distance = dist
				result.CellIndex = index
				result.Direction = DirectionFromNormal(normal)
				result.Position = ray.Origin.Add(ray.Direction.Mul(dist))
			}
		}
	}
	if !result.Hit {
		result.Distance = 0
	}
	return result
}

// PickVisible ищет грань среди видимых клеток набора
func PickVisible(src FaceSource, vs *visibility.Set, ray Ray) Result {
	return PickFace(src, vs.VisibleCells(), ray)
}

// CameraRay луч из камеры в направлении цели (центр экрана)
func CameraRay(cam visibility.Camera) Ray {
	origin := mgl32.Vec3{float32(cam.Position.X), float32(cam.Position.Y), float32(cam.Position.Z)}
	target := mgl32.Vec3{float32(cam.Target.X), float32(cam.Target.Y), float32(cam.Target.Z)}
	return Ray{Origin: origin, Direction: target.Sub(origin)}
}

// ScreenRay строит луч через точку экрана (px, py от левого верхнего угла) для перспективной камеры
func ScreenRay(cam visibility.Camera, fovY float32, width, height int, px, py float32) (Ray, error) {
	if width <= 0 || height <= 0 {
		return Ray{}, fmt.Errorf("picking: invalid viewport %dx%d", width, height)
	}
	base := CameraRay(cam)
	view := mgl32.LookAtV(base.Origin, base.Origin.Add(base.Direction), mgl32.Vec3{0, 1, 0})
	proj := mgl32.Perspective(fovY, float32(width)/float32(height), 0.01, 1000)

	winY := float32(height) - py
	near, err := mgl32.UnProject(mgl32.Vec3{px, winY, 0}, view, proj, 0, 0, width, height)
	if err != nil {
		return Ray{}, fmt.Errorf("picking: unproject near: %w", err)
	}
	far, err := mgl32.UnProject(mgl32.Vec3{px, winY, 1}, view, proj, 0, 0, width, height)
	if err != nil {
		return Ray{}, fmt.Errorf("picking: unproject far: %w", err)
	}
	return Ray{Origin: near, Direction: far.Sub(near).Normalize()}, nil
}
