package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Barryalien23/monoart"
	"github.com/Barryalien23/monoart/capture"
	"github.com/Barryalien23/monoart/compose"
	"github.com/Barryalien23/monoart/effect"
	"github.com/Barryalien23/monoart/grid"
	"github.com/Barryalien23/monoart/imageutil"
	"github.com/Barryalien23/monoart/internal/config"
	"github.com/Barryalien23/monoart/internal/termview"
	"github.com/Barryalien23/monoart/preview"
)

// loadConfig reads the config file, applies flag overrides and installs
// the logger.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	changed := func(name string, v *float64) *float64 {
		if flags.Changed(name) {
			return v
		}
		return nil
	}
	o := config.Overrides{
		Effect:     effectName,
		Cell:       changed("cell", &cell),
		Jitter:     changed("jitter", &jitter),
		Softy:      changed("softy", &softy),
		Edge:       changed("edge", &edge),
		Background: background,
		Foreground: foreground,
		Gradient:   gradient,
		Mirror:     mirror,
		CPUOnly:    cpuOnly,
	}
	if debugMode {
		o.LogLevel = "debug"
	}
	cfg = o.Apply(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	level, _ := config.ParseLevel(cfg.Log.Level)
	if level != config.LevelOff {
		monoart.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	}
	return cfg, nil
}

func newEngine(cfg *config.Config, ecfg monoart.EngineConfiguration) (*monoart.GPUEngine, error) {
	var opts []monoart.EngineOption
	if cfg.Engine.CPUOnly {
		opts = append(opts, monoart.WithCPUOnly())
	}
	e := monoart.NewGPUEngine(opts...)
	if err := e.Prepare(ecfg); err != nil {
		return nil, err
	}
	return e, nil
}

// orientation parses the --orientation flag.
func orientation() (grid.Orientation, error) {
	return grid.ParseOrientation(orientName)
}

func signalContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(ctx, os.Interrupt)
}

func renderCommand() *cobra.Command {
	var (
		pngPath  string
		textPath string
		ansi     bool
		cells    int
	)
	cmd := &cobra.Command{
		Use:   "render <image>",
		Short: "Render a still image as glyph text or PNG",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			st, err := cfg.Settings()
			if err != nil {
				return err
			}
			o, err := orientation()
			if err != nil {
				return err
			}
			src, err := capture.Still(args[0])
			if err != nil {
				return err
			}
			buf := src.Frame().Buffer
			if o != grid.Auto {
				buf.Orientation = o
			}
			engine, err := newEngine(cfg, cfg.EngineConfiguration())
			if err != nil {
				return err
			}
			defer engine.Close()

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()
			q := monoart.NewRenderQueue(engine)
			defer q.Close()

			res := q.Render(ctx, monoart.Request{
				Kind:         monoart.CaptureJob,
				Source:       buf,
				Effect:       st.Effect,
				Parameters:   st.Parameters,
				Palette:      st.Palette,
				CellOverride: cells,
			})
			if res.Cancelled {
				return context.Canceled
			}
			if res.Err != nil {
				return res.Err
			}
			frame := res.Frame

			if pngPath != "" {
				r, err := compose.NewRasterizer(
					compose.WithCanvas(cfg.Export.Width, cfg.Export.Height),
					compose.WithMirror(cfg.Export.Mirror))
				if err != nil {
					return err
				}
				img, err := frame.Image(r, st.Effect, st.Palette, false)
				if err != nil {
					return err
				}
				if err := imageutil.SaveImage(img, pngPath); err != nil {
					return err
				}
			}

			out := frame.GlyphText + "\n"
			if ansi {
				out = compose.ANSI(frame.GlyphText, st.Palette)
			}
			if textPath != "" {
				return os.WriteFile(textPath, []byte(out), 0644)
			}
			if pngPath == "" || ansi {
				fmt.Print(out)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&pngPath, "png", "", "Write a PNG export to this path")
	cmd.Flags().StringVarP(&textPath, "output", "o", "", "Write glyph text to this path")
	cmd.Flags().BoolVar(&ansi, "ansi", false, "Colour the text with 24-bit ANSI escapes")
	cmd.Flags().IntVar(&cells, "cells", 0, "Cell budget (default: capture budget from config)")
	return cmd
}

func liveCommand() *cobra.Command {
	var (
		cameraID  int
		videoPath string
	)
	cmd := &cobra.Command{
		Use:   "live",
		Short: "Show a camera or video as glyphs in the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			st, err := cfg.Settings()
			if err != nil {
				return err
			}

			o, err := orientation()
			if err != nil {
				return err
			}
			var src capture.Source
			if videoPath != "" {
				src, err = capture.OpenVideo(videoPath)
			} else {
				src, err = capture.OpenCamera(cameraID)
			}
			if err != nil {
				return err
			}
			src = capture.Oriented(src, o)
			defer src.Close()

			view, err := termview.Open()
			if err != nil {
				return err
			}
			defer view.Close()

			// Size the preview budget to the terminal; larger grids are clipped.
			w, h := view.Size()
			ecfg := cfg.EngineConfiguration()
			ecfg.MaxPreviewCells = max(w*h, grid.MinColumns*grid.MinRows)
			engine, err := newEngine(cfg, ecfg)
			if err != nil {
				return err
			}
			defer engine.Close()

			q := monoart.NewRenderQueue(engine)
			defer q.Close()
			session := monoart.NewPreviewSession(q,
				monoart.WithSettings(st),
				monoart.OnFrame(func(f monoart.PreviewFrame) {
					view.Draw(f.Frame.GlyphText, st.Palette)
				}),
			)
			defer session.Close()

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()
			go func() {
				<-view.Quit(ctx)
				cancel()
			}()

			err = capture.Run(ctx, src, func(f capture.Frame) error {
				session.PushFrame(f.Buffer)
				return nil
			})
			if monoart.IsCancelled(err) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().IntVar(&cameraID, "camera", 0, "Camera device index")
	cmd.Flags().StringVar(&videoPath, "video", "", "Play a video file instead of the camera")
	return cmd
}

var errEnoughFrames = errors.New("enough frames")

func previewCommand() *cobra.Command {
	var (
		outPath string
		frames  int
		front   bool
	)
	cmd := &cobra.Command{
		Use:   "preview <image>",
		Short: "Draw GPU preview frames of an image to PNG",
		Long: `Runs the GPU preview shader headlessly: the image is uploaded as the video
texture and drawn through the glyph atlas for the given number of frames.
The last frame is written as a PNG. Requires a hardware GPU.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.Engine.CPUOnly {
				return fmt.Errorf("preview needs the GPU: %w", monoart.ErrGPUUnavailable)
			}
			st, err := cfg.Settings()
			if err != nil {
				return err
			}
			o, err := orientation()
			if err != nil {
				return err
			}
			src, err := capture.Still(args[0])
			if err != nil {
				return err
			}
			buf := src.Frame().Buffer
			o = o.Resolve(buf.Width, buf.Height)
			buf.Orientation = o
			engine, err := newEngine(cfg, cfg.EngineConfiguration())
			if err != nil {
				return err
			}
			defer engine.Close()

			w, h := cfg.Export.Width, cfg.Export.Height
			if o == grid.Landscape {
				w, h = h, w
			}
			target, err := engine.OffscreenTarget(w, h)
			if err != nil {
				return err
			}
			defer target.Release()

			if err := engine.UpdatePreviewParameters(st.Effect, st.Parameters, st.Palette); err != nil {
				return err
			}
			engine.UpdateCameraPosition(front || cfg.Export.Mirror)
			engine.UpdatePreviewVideo(buf)
			renderer, err := engine.SetupPreview(target)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()
			var last *image.RGBA
			n := 0
			loop := preview.Loop{
				Renderer: renderer,
				Target:   target,
				OnFrame: func(ctx context.Context, _ preview.Target) error {
					n++
					if n < frames {
						return nil
					}
					img, err := target.Readback(ctx)
					if err != nil {
						return err
					}
					last = img
					return errEnoughFrames
				},
			}
			if err := loop.Run(ctx); err != nil && !errors.Is(err, errEnoughFrames) {
				return err
			}
			if last == nil {
				return context.Canceled
			}
			return imageutil.SaveImage(last, outPath)
		},
	}
	cmd.Flags().StringVarP(&outPath, "output", "o", "preview.png", "PNG output path")
	cmd.Flags().IntVar(&frames, "frames", 1, "Frames to draw before capturing")
	cmd.Flags().BoolVar(&front, "front", false, "Mirror as for a front camera")
	return cmd
}

func effectsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "effects",
		Short: "List effects, their glyphs and parameters",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			for _, t := range effect.Types {
				params := t.SupportedParameters()
				names := make([]string, len(params))
				for i, p := range params {
					names[i] = p.String()
				}
				fmt.Printf("%-10s %2d glyphs  [%s]\n", t, t.GlyphCount(), strings.Join(names, ", "))
				fmt.Printf("           %q\n", string(t.Charset()))
			}
			return nil
		},
	}
}

func configCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}

	pathCmd := &cobra.Command{
		Use:   "path",
		Short: "Print the configuration file path",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			path, err := config.Path()
			if err != nil {
				return err
			}
			fmt.Println(path)
			return nil
		},
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			path, err := config.Path()
			if err != nil {
				return err
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := config.Write(path, config.DefaultConfig()); err != nil {
				return err
			}
			fmt.Println(path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")

	cmd.AddCommand(pathCmd, initCmd)
	return cmd
}
