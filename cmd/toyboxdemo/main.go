// Command toyboxdemo opens a GPU device, renders a few frames of UI quads
// and debug geometry offscreen, and reports timing. It exists to exercise
// the full resource/batch/submit path outside of tests.
package main

import (
	"flag"
	"log/slog"
	"os"
	"time"

	"toybox/config"
	"toybox/debugdraw"
	"toybox/gfx"
	"toybox/ui"
)

func main() {
	var (
		configPath = flag.String("config", "config.toml", "settings file")
		frames     = flag.Int("frames", 60, "number of frames to render")
		verbose    = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	gfx.SetLogger(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("loading config failed", "error", err)
		os.Exit(1)
	}
	logger.Info("loaded config", "path", *configPath,
		"window", cfg.Window, "vsync", cfg.Render.VSync)

	// Pre-validate the built-in shaders through the WGSL to SPIR-V
	// translator before touching the device.
	if _, err := gfx.CompileShaderToSPIRV(gfx.UIShaderSource()); err != nil {
		logger.Error("ui shader failed validation", "error", err)
		os.Exit(1)
	}
	if _, err := gfx.CompileShaderToSPIRV(gfx.DebugShaderSource()); err != nil {
		logger.Error("debug shader failed validation", "error", err)
		os.Exit(1)
	}

	sys, err := gfx.Open()
	if err != nil {
		logger.Error("opening GPU device failed", "error", err)
		os.Exit(1)
	}
	defer sys.Close()

	if err := run(sys, cfg, *frames, logger); err != nil {
		logger.Error("rendering failed", "error", err)
		os.Exit(1)
	}
}

func run(sys *gfx.System, cfg config.Config, frames int, logger *slog.Logger) error {
	textures := ui.NewTextureManager(sys.Resources)
	renderer := ui.NewRenderer(textures)
	if cfg.Render.UIScale > 0 {
		renderer.SetScaling(float32(cfg.Render.UIScale))
	}
	painter := debugdraw.NewPainter()

	width := int32(cfg.Window.Width)
	height := int32(cfg.Window.Height)

	start := time.Now()
	for i := 0; i < frames; i++ {
		if err := sys.Frame.BeginBatch(); err != nil {
			return err
		}

		prims := demoFrame(width, height, i)
		if err := renderer.Record(sys.Frame, prims, width, height); err != nil {
			return err
		}

		if cfg.Debug.DrawEnabled {
			if err := sys.Frame.SetTransform(gfx.IdentityTransform()); err != nil {
				return err
			}
			painter.SetColor(255, 220, 0, 255)
			painter.WireBox(
				debugdraw.Vec3{X: -0.5, Y: -0.5, Z: -0.5},
				debugdraw.Vec3{X: 0.5, Y: 0.5, Z: 0.5},
			)
			painter.Axes(debugdraw.Vec3{}, 1)
			if err := painter.Flush(sys.Frame); err != nil {
				return err
			}
		}

		if err := sys.Frame.EndBatch(); err != nil {
			return err
		}
		if err := sys.Session.Submit(sys.Frame); err != nil {
			return err
		}
	}

	elapsed := time.Since(start)
	logger.Info("rendered frames",
		"frames", sys.Session.FramesFlushed(),
		"elapsed", elapsed,
		"per_frame", elapsed/time.Duration(frames))
	return nil
}

// demoFrame builds a moving colored quad as a single clipped primitive.
func demoFrame(width, height int32, frame int) []ui.ClippedPrimitive {
	x := float32(40 + (frame*4)%200)
	white := [4]uint8{255, 255, 255, 255}

	mesh := ui.Mesh{
		Vertices: []ui.Vertex{
			{X: x, Y: 40, U: 0, V: 0, Color: white},
			{X: x + 120, Y: 40, U: 1, V: 0, Color: white},
			{X: x + 120, Y: 160, U: 1, V: 1, Color: white},
			{X: x, Y: 160, U: 0, V: 1, Color: white},
		},
		Indices: []uint16{0, 1, 2, 0, 2, 3},
	}
	return []ui.ClippedPrimitive{{
		Clip: ui.Rect{Left: 0, Top: 0, Right: float32(width), Bottom: float32(height)},
		Mesh: mesh,
	}}
}
