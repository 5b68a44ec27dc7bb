// Package imagefile writes rendered color grids as viewable images.
//
// Grids hold linear colors, rows top first.  Writers gamma-correct and
// quantize each pixel to 8 bits per channel.
package imagefile

import (
	"bufio"
	"fmt"
	"image"
	imagecolor "image/color"
	"image/png"
	"io"
	"path/filepath"
	"strings"

	"row-major/skylight/color"
)

type Format int

const (
	FormatPNG Format = iota
	FormatPPM
)

func (f Format) String() string {
	switch f {
	case FormatPNG:
		return "png"
	case FormatPPM:
		return "ppm"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// FormatFromName picks a format by file extension.
func FormatFromName(name string) (Format, error) {
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".png":
		return FormatPNG, nil
	case ".ppm":
		return FormatPPM, nil
	default:
		return 0, fmt.Errorf("no image format for extension %q of %q", ext, name)
	}
}

func Write(w io.Writer, format Format, grid [][]color.RGB) error {
	switch format {
	case FormatPNG:
		return WritePNG(w, grid)
	case FormatPPM:
		return WritePPM(w, grid)
	default:
		return fmt.Errorf("unknown image format %v", format)
	}
}

func dimensions(grid [][]color.RGB) (width, height int, err error) {
	height = len(grid)
	if height == 0 {
		return 0, 0, nil
	}
	width = len(grid[0])
	for r, row := range grid {
		if len(row) != width {
			return 0, 0, fmt.Errorf("row %d has %d pixels, want %d", r, len(row), width)
		}
	}
	return width, height, nil
}

// WritePPM writes a plain-text (P3) portable pixmap.
func WritePPM(w io.Writer, grid [][]color.RGB) error {
	width, height, err := dimensions(grid)
	if err != nil {
		return fmt.Errorf("while checking grid: %w", err)
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "P3\n%d %d\n255\n", width, height)
	for _, row := range grid {
		for _, c := range row {
			q := c.Gamma2().Quantize()
			fmt.Fprintf(bw, "%d %d %d\n", q[0], q[1], q[2])
		}
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("while writing PPM: %w", err)
	}
	return nil
}

func WritePNG(w io.Writer, grid [][]color.RGB) error {
	width, height, err := dimensions(grid)
	if err != nil {
		return fmt.Errorf("while checking grid: %w", err)
	}

	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for r, row := range grid {
		for c, v := range row {
			q := v.Gamma2().Quantize()
			img.SetNRGBA(c, r, imagecolor.NRGBA{R: q[0], G: q[1], B: q[2], A: 255})
		}
	}

	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("while encoding PNG: %w", err)
	}
	return nil
}
