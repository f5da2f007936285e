package sprite

import (
	"image"
	"image/color"
	"math"

	"github.com/wcharczuk/go-chart/v2/drawing"
)

// canvas wraps an anti-aliased raster context. Shapes are composited with
// source-over, so translucent layers accumulate.
type canvas struct {
	img *image.RGBA
	gc  *drawing.RasterGraphicContext
}

func newCanvas(size int) (*canvas, error) {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	gc, err := drawing.NewRasterGraphicContext(img)
	if err != nil {
		return nil, err
	}
	return &canvas{img: img, gc: gc}, nil
}

// ellipse fills the ellipse inscribed in the box (x0, y0)-(x1, y1).
func (c *canvas) ellipse(x0, y0, x1, y1 float64, col color.Color) {
	rx := (x1 - x0) / 2
	ry := (y1 - y0) / 2
	if rx <= 0 || ry <= 0 {
		return
	}
	c.gc.BeginPath()
	c.gc.SetFillColor(col)
	c.gc.ArcTo(x0+rx, y0+ry, rx, ry, 0, 2*math.Pi)
	c.gc.Close()
	c.gc.Fill()
}

// circle fills a circle of radius r around (cx, cy).
func (c *canvas) circle(cx, cy, r float64, col color.Color) {
	c.ellipse(cx-r, cy-r, cx+r, cy+r, col)
}

// roundedRect fills the box (x0, y0)-(x1, y1) with corner radius r.
func (c *canvas) roundedRect(x0, y0, x1, y1, r float64, col color.Color) {
	if x1 <= x0 || y1 <= y0 {
		return
	}
	r = math.Min(r, math.Min((x1-x0)/2, (y1-y0)/2))

	c.gc.BeginPath()
	c.gc.SetFillColor(col)
	c.gc.MoveTo(x0+r, y0)
	c.gc.LineTo(x1-r, y0)
	c.gc.ArcTo(x1-r, y0+r, r, r, -math.Pi/2, math.Pi/2)
	c.gc.LineTo(x1, y1-r)
	c.gc.ArcTo(x1-r, y1-r, r, r, 0, math.Pi/2)
	c.gc.LineTo(x0+r, y1)
	c.gc.ArcTo(x0+r, y1-r, r, r, math.Pi/2, math.Pi/2)
	c.gc.LineTo(x0, y0+r)
	c.gc.ArcTo(x0+r, y0+r, r, r, math.Pi, math.Pi/2)
	c.gc.Close()
	c.gc.Fill()
}

// polygon fills the closed polygon through pts.
func (c *canvas) polygon(pts []image.Point, col color.Color) {
	if len(pts) < 3 {
		return
	}
	c.gc.BeginPath()
	c.gc.SetFillColor(col)
	c.gc.MoveTo(float64(pts[0].X), float64(pts[0].Y))
	for _, p := range pts[1:] {
		c.gc.LineTo(float64(p.X), float64(p.Y))
	}
	c.gc.Close()
	c.gc.Fill()
}
