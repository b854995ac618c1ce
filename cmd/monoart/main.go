// Package main implements the monoart command line tool: it turns images,
// videos and camera feeds into glyph art in the terminal, as text or as
// PNG exports.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

// Version information (set by the release build)
var (
	version = "dev"
	commit  = "none"
)

// Global flags
var (
	debugMode  bool
	configPath string
	effectName string
	cell       float64
	jitter     float64
	softy      float64
	edge       float64
	background string
	foreground string
	gradient   []string
	mirror     bool
	cpuOnly    bool
	orientName string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "monoart",
		Short: "Render images and camera feeds as glyph art",
		Long: `monoart turns pixels into glyphs.

Each frame is divided into a grid of cells; every cell's brightness picks a
glyph from the selected effect's character set. Output goes to the terminal,
to plain text or to a PNG canvas.`,
		Example: `  # Render a photo as ASCII text
  monoart render photo.jpg

  # Render with circles and a gradient, exporting a PNG
  monoart render photo.jpg --effect circles --gradient cyan,magenta --png out.png

  # Live camera preview in the terminal
  monoart live --camera 0

  # Headless GPU preview frame
  monoart preview photo.jpg -o preview.png

  # Show the configuration file location
  monoart config path`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.BoolVar(&debugMode, "debug", false, "Enable debug logging")
	pf.StringVar(&configPath, "config", "", "Config file (default: $XDG_CONFIG_HOME/monoart/config.toml)")
	pf.StringVarP(&effectName, "effect", "e", "", "Effect: ascii, shapes, circles, squares, triangles, diamonds")
	pf.Float64Var(&cell, "cell", 0, "Grid density 0-100")
	pf.Float64Var(&jitter, "jitter", 0, "Glyph jitter 0-100")
	pf.Float64Var(&softy, "softy", 0, "Contrast 0-100")
	pf.Float64Var(&edge, "edge", 0, "Edge 0-100")
	pf.StringVar(&background, "background", "", "Background colour (preset or #rrggbb)")
	pf.StringVar(&foreground, "foreground", "", "Symbol colour (preset or #rrggbb)")
	pf.StringSliceVar(&gradient, "gradient", nil, "Symbol gradient, 2-4 colours top to bottom")
	pf.BoolVar(&mirror, "mirror", false, "Mirror output horizontally")
	pf.BoolVar(&cpuOnly, "cpu", false, "Never use the GPU")
	pf.StringVar(&orientName, "orientation", "auto", "Nominal frame orientation: auto, portrait, landscape")

	rootCmd.AddCommand(renderCommand(), liveCommand(), previewCommand(), effectsCommand(), configCommand())

	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(fmt.Sprintf("%s\nCommit: %s", version, commit)),
	); err != nil {
		os.Exit(1)
	}
}
