// Package ascii renders a pixel grid as character art.
package ascii

import (
	"math"
	"strings"
	"time"

	"github.com/TheGhostHuCodes/catscii/internal/imaging"
)

// DefaultRamp orders glyphs from sparse to dense ink coverage.
// Darker cells select denser glyphs, so on a light background the art
// reads with the same polarity as the photograph.
const DefaultRamp = " .:-=+*#%@"

// DefaultHeightScale compensates for terminal glyphs being roughly twice
// as tall as they are wide.
const DefaultHeightScale = 0.5

// Art is a finished rendering: equal-length text lines plus the instant
// the rendering was produced.
type Art struct {
	Lines     []string
	CreatedAt time.Time
}

// Text joins the art lines into a single newline-terminated string.
func (a Art) Text() string {
	return strings.Join(a.Lines, "\n") + "\n"
}

// Renderer converts pixel grids into glyph grids with fixed geometry.
type Renderer struct {
	columns     int
	heightScale float64
	ramp        []rune
}

// NewRenderer builds a Renderer. Zero values fall back to defaults;
// columns must be positive.
func NewRenderer(columns int, heightScale float64, ramp string) *Renderer {
	if columns <= 0 {
		columns = 80
	}
	if heightScale <= 0 {
		heightScale = DefaultHeightScale
	}
	if ramp == "" {
		ramp = DefaultRamp
	}
	return &Renderer{
		columns:     columns,
		heightScale: heightScale,
		ramp:        []rune(ramp),
	}
}

// Render downsamples the grid to the configured column count and maps each
// cell's average luminance onto the glyph ramp. Every output line has
// exactly the configured number of glyphs.
func (r *Renderer) Render(grid *imaging.Grid) Art {
	rows := r.rowsFor(grid.Width, grid.Height)

	lines := make([]string, rows)
	var sb strings.Builder
	for row := 0; row < rows; row++ {
		sb.Reset()
		sb.Grow(r.columns)
		yStart, yEnd := blockBounds(row, rows, grid.Height)
		for col := 0; col < r.columns; col++ {
			xStart, xEnd := blockBounds(col, r.columns, grid.Width)
			lum := averageLuminance(grid, xStart, xEnd, yStart, yEnd)
			sb.WriteRune(r.glyphFor(lum))
		}
		lines[row] = sb.String()
	}

	return Art{Lines: lines}
}

// rowsFor computes the output row count proportional to the source aspect
// ratio, scaled by the height correction, never below one row.
func (r *Renderer) rowsFor(width, height int) int {
	rows := int(math.Round(float64(r.columns) * float64(height) / float64(width) * r.heightScale))
	if rows < 1 {
		rows = 1
	}
	return rows
}

// blockBounds returns the half-open source range covered by output index i
// of n cells across size source samples. The range always spans at least
// one sample; a misshapen trailing block covers whatever remains.
func blockBounds(i, n, size int) (int, int) {
	start := i * size / n
	end := (i + 1) * size / n
	if end <= start {
		end = start + 1
	}
	if end > size {
		end = size
	}
	if start >= size {
		start = size - 1
	}
	return start, end
}

// averageLuminance block-averages the channel values over the given cell
// and converts the mean color to perceptual luminance
// (0.299 R + 0.587 G + 0.114 B).
func averageLuminance(grid *imaging.Grid, xStart, xEnd, yStart, yEnd int) float64 {
	var sumR, sumG, sumB float64
	count := 0
	for y := yStart; y < yEnd; y++ {
		for x := xStart; x < xEnd; x++ {
			p := grid.Pix[y][x]
			sumR += float64(p.R)
			sumG += float64(p.G)
			sumB += float64(p.B)
			count++
		}
	}
	if count == 0 {
		return 0
	}
	n := float64(count)
	return 0.299*(sumR/n) + 0.587*(sumG/n) + 0.114*(sumB/n)
}

// glyphFor buckets a luminance in [0,255] onto the ramp, darker to denser:
// idx = floor((255-lum) * len(ramp) / 256), clamped to the valid range.
func (r *Renderer) glyphFor(lum float64) rune {
	idx := int((255 - lum) * float64(len(r.ramp)) / 256)
	if idx < 0 {
		idx = 0
	}
	if idx >= len(r.ramp) {
		idx = len(r.ramp) - 1
	}
	return r.ramp[idx]
}
