// Package minimap renders the derived flat colors of a world grid as images.
package minimap

import (
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"golang.org/x/image/draw"

	"github.com/Faultbox/terrafirma/pkg/wld"
)

// Image copies the grid colors into an RGBA image, one pixel per cell.
func Image(g *wld.Grid) (*image.RGBA, error) {
	if g == nil {
		return nil, fmt.Errorf("minimap: no grid")
	}
	if len(g.Colors) != g.Width*g.Height*4 {
		return nil, fmt.Errorf("color data size mismatch: expected %d, got %d", g.Width*g.Height*4, len(g.Colors))
	}

	img := image.NewRGBA(image.Rect(0, 0, g.Width, g.Height))
	rowSize := g.Width * 4
	for y := 0; y < g.Height; y++ {
		copy(img.Pix[y*img.Stride:y*img.Stride+rowSize], g.Colors[y*rowSize:(y+1)*rowSize])
	}
	return img, nil
}

// Fit returns the size of a w x h image scaled down so neither side exceeds
// maxDim. A non-positive maxDim keeps the size.
func Fit(w, h, maxDim int) (int, int) {
	if maxDim <= 0 || (w <= maxDim && h <= maxDim) {
		return w, h
	}
	if w >= h {
		return maxDim, max(1, h*maxDim/w)
	}
	return max(1, w*maxDim/h), maxDim
}

// Scale downsizes src to fit maxDim. Smaller images are returned as is.
func Scale(src image.Image, maxDim int) image.Image {
	b := src.Bounds()
	w, h := Fit(b.Dx(), b.Dy(), maxDim)
	if w == b.Dx() && h == b.Dy() {
		return src
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	return dst
}

// Render builds the minimap of g limited to maxDim pixels per side.
func Render(g *wld.Grid, maxDim int) (image.Image, error) {
	img, err := Image(g)
	if err != nil {
		return nil, err
	}
	return Scale(img, maxDim), nil
}

// Encode writes img as PNG.
func Encode(w io.Writer, img image.Image) error {
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("encoding PNG: %w", err)
	}
	return nil
}

// Exporter writes minimaps to a folder.
type Exporter struct {
	outputDir string
	maxDim    int
}

// NewExporter creates an exporter. maxDim <= 0 keeps full size.
func NewExporter(outputDir string, maxDim int) *Exporter {
	return &Exporter{
		outputDir: outputDir,
		maxDim:    maxDim,
	}
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// GenerateFilename returns the path Export would write for worldName.
func (e *Exporter) GenerateFilename(worldName string) string {
	name := unsafeName.ReplaceAllString(worldName, "_")
	if name == "" || name == "_" {
		name = "world"
	}
	timestamp := time.Now().Format("2006-01-02_15-04-05")
	filename := fmt.Sprintf("%s_%s.png", name, timestamp)
	if e.outputDir != "" {
		filename = filepath.Join(e.outputDir, filename)
	}
	return filename
}

// Export renders w and writes it under a generated name.
func (e *Exporter) Export(w *wld.World) (string, error) {
	path := e.GenerateFilename(w.Name())
	return path, e.ExportTo(path, w)
}

// ExportTo renders w and writes it to path.
func (e *Exporter) ExportTo(path string, w *wld.World) error {
	img, err := Render(w.Grid, e.maxDim)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating output dir: %w", err)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating file: %w", err)
	}
	if err := Encode(file, img); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
