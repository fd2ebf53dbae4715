package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"strings"

	"github.com/annel0/gridcast/internal/app"
	"github.com/annel0/gridcast/internal/config"
	"github.com/annel0/gridcast/internal/logging"
	"github.com/annel0/gridcast/internal/vec"
)

func main() {
	var (
		configPath = flag.String("config", "", "YAML config path (or GRIDCAST_CONFIG)")
		imagePath  = flag.String("image", "", "Load map from PNG/BMP image instead of config source")
		posX       = flag.Float64("x", -1, "Camera X in world units (default: open cell near center)")
		posZ       = flag.Float64("z", -1, "Camera Z in world units")
		angle      = flag.Float64("yaw", 0, "View yaw in degrees, 0 looks along +Z")
		fov        = flag.Float64("fov", 0, "Horizontal FOV in degrees (default from config)")
		radius     = flag.Int("radius", 0, "Minimap radius override, 0 uses the frame minimap")
		export     = flag.String("export", "", "Write the map document to this file")
	)
	flag.Parse()

	logging.SetDefaultLevel(logging.WARN)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ config: %v", err)
	}
	if *imagePath != "" {
		cfg.Map.Source = config.SourceImage
		cfg.Map.ImagePath = *imagePath
	}

	m, err := app.BuildMap(cfg, nil)
	if err != nil {
		log.Fatalf("❌ map: %v", err)
	}
	opts := app.OptionsFromConfig(cfg)
	if *fov > 0 {
		opts.Camera.FovX = *fov * math.Pi / 180
	}
	cam := app.PlaceCamera(m, opts.Camera, opts.Render)
	if *posX >= 0 && *posZ >= 0 {
		cam.Position.X, cam.Position.Z = *posX, *posZ
	}
	dir := vec.Vec2Float{X: 0, Y: 1}.Rotate(*angle * math.Pi / 180)
	cam.Target = vec.Vec3Float{X: cam.Position.X + dir.X, Y: cam.Position.Y, Z: cam.Position.Z + dir.Y}
	opts.Camera = cam

	scene := app.NewScene(m, opts, nil, nil)
	defer scene.Close()

	res, err := scene.Frame(context.Background(), app.DefaultSet)
	if err != nil {
		log.Fatalf("❌ frame: %v", err)
	}

	fmt.Printf("map %dx%d, camera (%.2f, %.2f) fov %.3f rad\n", m.Width(), m.Height(), cam.Position.X, cam.Position.Z, cam.FovX)
	fmt.Printf("visible=%d targets=%d rays=%d wedges=%d splits=%d took=%s\n",
		len(res.Visible), len(res.Targets), res.Stats.Rays, res.Stats.Wedges, res.Stats.Splits, res.Took)
	fmt.Printf("drawn cells=%d faces=%d groups=%d collided=%v\n", res.Draw.Cells, res.Draw.Faces, res.Draw.Groups, res.Collided)

	lines := res.Minimap
	if *radius > 0 {
		lines = scene.Minimap(app.DefaultSet, *radius)
	}
	fmt.Println(strings.Join(lines, "\n"))

	if *export != "" {
		f, err := os.Create(*export)
		if err != nil {
			log.Fatalf("❌ export: %v", err)
		}
		defer f.Close()
		if err := scene.Export(f, cfg.Map.Name); err != nil {
			log.Fatalf("❌ export: %v", err)
		}
	}
}
