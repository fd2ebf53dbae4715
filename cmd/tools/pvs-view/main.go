package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math"

	"github.com/annel0/gridcast/internal/app"
	"github.com/annel0/gridcast/internal/config"
	"github.com/annel0/gridcast/internal/logging"
	"github.com/annel0/gridcast/internal/minimap"
	"github.com/annel0/gridcast/internal/vec"
	"github.com/annel0/gridcast/internal/visibility"
	"github.com/gdamore/tcell/v2"
)

const (
	moveStep = 0.25         // шаг камеры в клетках
	turnStep = math.Pi / 24 // поворот за нажатие
)

// viewer интерактивный просмотр набора видимости в терминале
type viewer struct {
	screen tcell.Screen
	scene  *app.Scene
	cam    visibility.Camera
	yaw    float64
	result app.FrameResult
	all    bool
}

var glyphStyles = map[rune]tcell.Style{
	minimap.GlyphCurrent: tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true),
	minimap.GlyphTarget:  tcell.StyleDefault.Foreground(tcell.ColorRed),
	minimap.GlyphVisible: tcell.StyleDefault.Foreground(tcell.ColorGreen),
	minimap.GlyphSolid:   tcell.StyleDefault.Foreground(tcell.ColorGray),
	minimap.GlyphOpen:    tcell.StyleDefault.Foreground(tcell.ColorDarkGray),
}

func main() {
	configPath := flag.String("config", "", "YAML config path (or GRIDCAST_CONFIG)")
	imagePath := flag.String("image", "", "Load map from PNG/BMP image")
	flag.Parse()

	// Логи в консоль испортят экран
	logging.SetDefaultLevel(logging.ERROR)

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
	opts.Camera = app.PlaceCamera(m, opts.Camera, opts.Render)

	screen, err := tcell.NewScreen()
	if err != nil {
		log.Fatalf("❌ screen: %v", err)
	}
	if err := screen.Init(); err != nil {
		log.Fatalf("❌ screen: %v", err)
	}
	defer screen.Fini()

	v := &viewer{screen: screen, scene: app.NewScene(m, opts, nil, nil), cam: opts.Camera}
	defer v.scene.Close()
	v.run()
}

func (v *viewer) run() {
	v.frame()
	for {
		v.draw()
		switch ev := v.screen.PollEvent().(type) {
		case *tcell.EventKey:
			if !v.handleKey(ev) {
				return
			}
			v.frame()
		case *tcell.EventResize:
			v.screen.Sync()
		}
	}
}

func (v *viewer) handleKey(ev *tcell.EventKey) bool {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return false
	case tcell.KeyUp:
		v.move(moveStep)
	case tcell.KeyDown:
		v.move(-moveStep)
	case tcell.KeyLeft:
		v.yaw += turnStep
	case tcell.KeyRight:
		v.yaw -= turnStep
	case tcell.KeyRune:
		switch ev.Rune() {
		case 'q':
			return false
		case 'w':
			v.move(moveStep)
		case 's':
			v.move(-moveStep)
		case 'a':
			v.yaw += turnStep
		case 'd':
			v.yaw -= turnStep
		case '+':
			v.cam.FovX = math.Min(v.cam.FovX+0.1, 2*math.Pi)
		case '-':
			v.cam.FovX = math.Max(v.cam.FovX-0.1, 0)
		case 'e':
			v.all = !v.all
		}
	}
	return true
}

// direction направление взгляда по углу рыскания, 0 смотрит вдоль +Z
func (v *viewer) direction() vec.Vec2Float {
	return vec.Vec2Float{X: 0, Y: 1}.Rotate(v.yaw)
}

func (v *viewer) move(step float64) {
	scale := v.scene.DrawScale()
	dir := v.direction().Mul(step * scale)
	next := v.cam.Position
	next.X += dir.X
	next.Z += dir.Y
	if v.scene.Collide(next, app.CameraRadius).Hit {
		return
	}
	v.cam.Position = next
}

func (v *viewer) frame() {
	dir := v.direction()
	v.cam.Target = vec.Vec3Float{X: v.cam.Position.X + dir.X, Y: v.cam.Position.Y, Z: v.cam.Position.Z + dir.Y}
	_ = v.scene.SetCamera(app.DefaultSet, v.cam)
	_ = v.scene.SetDrawEverything(app.DefaultSet, v.all)
	res, err := v.scene.Frame(context.Background(), app.DefaultSet)
	if err == nil {
		v.result = res
	}
}

func (v *viewer) draw() {
	v.screen.Clear()
	width, height := v.screen.Size()

	radius := (min(width/2, height-3) - 1) / 2
	if radius < 1 {
		radius = 1
	}
	lines := v.scene.Minimap(app.DefaultSet, radius)
	for y, line := range lines {
		x := 0
		for _, r := range line {
			style, ok := glyphStyles[r]
			if !ok {
				style = tcell.StyleDefault
			}
			// Две колонки на клетку для квадратных пропорций
			v.screen.SetContent(x, y, r, nil, style)
			v.screen.SetContent(x+1, y, r, nil, style)
			x += 2
		}
	}

	stats := v.result.Stats
	status := fmt.Sprintf("pos (%.2f, %.2f) fov %.2f | visible %d targets %d | wedges %d splits %d | faces %d",
		v.cam.Position.X, v.cam.Position.Z, v.cam.FovX,
		len(v.result.Visible), len(v.result.Targets), stats.Wedges, stats.Splits, v.result.Draw.Faces)
	v.text(0, len(lines)+1, status)
	v.text(0, len(lines)+2, "w/s move  a/d turn  +/- fov  e draw all  q quit")
	v.screen.Show()
}

func (v *viewer) text(x, y int, s string) {
	for i, r := range []rune(s) {
		v.screen.SetContent(x+i, y, r, nil, tcell.StyleDefault)
	}
}
