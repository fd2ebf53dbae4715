package app

import (
	"fmt"

	"github.com/annel0/gridcast/internal/config"
	"github.com/annel0/gridcast/internal/editor"
	"github.com/annel0/gridcast/internal/geometry"
	"github.com/annel0/gridcast/internal/gridmap"
	"github.com/annel0/gridcast/internal/mapgen"
	"github.com/annel0/gridcast/internal/render"
	"github.com/annel0/gridcast/internal/storage"
	"github.com/annel0/gridcast/internal/vec"
	"github.com/annel0/gridcast/internal/visibility"
)

// OptionsFromConfig переводит конфигурацию в параметры сцены
func OptionsFromConfig(cfg *config.Config) Options {
	rc := cfg.Render
	return Options{
		Render: render.Options{
			DrawScale:      rc.DrawScale,
			DepthIncrement: rc.DepthIncrement,
			Lighting: geometry.Lighting{
				SunDirection: vec.Vec3Float{X: rc.SunDirection[0], Y: rc.SunDirection[1], Z: rc.SunDirection[2]},
				Ambient:      rc.Ambient,
				FloorBoost:   rc.FloorBoost,
				CeilingBoost: rc.CeilingBoost,
			},
		},
		Defaults: editor.Defaults{
			Wall:    cfg.Map.WallMaterial,
			Floor:   cfg.Map.FloorMaterial,
			Ceiling: cfg.Map.CeilingMaterial,
		},
		Camera: visibility.Camera{FovX: rc.FovX},
	}
}

// BuildMap создаёт карту из источника, заданного в конфигурации
func BuildMap(cfg *config.Config, store *storage.MapStore) (*gridmap.GridMap, error) {
	mc := cfg.Map
	switch mc.Source {
	case config.SourceGenerate:
		p := mapgen.DefaultParams()
		p.Width, p.Height, p.Seed = mc.Width, mc.Height, mc.Seed
		p.SolidThreshold = mc.SolidThreshold
		p.BaseFloor, p.BaseCeiling = mc.DefaultFloor, mc.DefaultCeiling
		p.Materials = editor.Defaults{Wall: mc.WallMaterial, Floor: mc.FloorMaterial, Ceiling: mc.CeilingMaterial}
		return mapgen.Generate(p)
	case config.SourceImage:
		mats := gridmap.ImageMaterials{Walls: 0, Floor: 1, Ceiling: 2}
		m, err := gridmap.LoadImageFile(mc.ImagePath,
			gridmap.ImageHeights{Floor: mc.DefaultFloor, Ceiling: mc.DefaultCeiling}, mats)
		if err != nil {
			return nil, err
		}
		m.SetMaterialPath(mats.Walls, mc.WallMaterial)
		m.SetMaterialPath(mats.Floor, mc.FloorMaterial)
		m.SetMaterialPath(mats.Ceiling, mc.CeilingMaterial)
		return m, nil
	case config.SourceStore:
		if store == nil {
			return nil, ErrNoStore
		}
		m, _, err := store.Load(mc.Name)
		return m, err
	default:
		return nil, fmt.Errorf("неизвестный источник карты: %q", mc.Source)
	}
}

// PlaceCamera ставит камеру в открытую клетку ближе всего к центру карты, взгляд вдоль +Z
func PlaceCamera(m *gridmap.GridMap, cam visibility.Camera, opts render.Options) visibility.Camera {
	cell := mapgen.FindOpenCell(m, vec.Vec2{X: m.Width() / 2, Y: m.Height() / 2})
	if cell == nil {
		return cam
	}
	drawScale := opts.DrawScale
	x := (float64(cell.Position.X) + 0.5) * drawScale
	z := (float64(cell.Position.Y) + 0.5) * drawScale
	y := (cell.FloorHeight(opts.DepthIncrement) + 0.5) * drawScale
	cam.Position = vec.Vec3Float{X: x, Y: y, Z: z}
	cam.Target = vec.Vec3Float{X: x, Y: y, Z: z + drawScale}
	return cam
}
