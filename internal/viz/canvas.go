package viz

import (
	"math"
	"strings"
)

// Braille dot bits by sub-row and sub-column; glyphs start at 0x2800.
var pixelMap = [4][2]rune{
	{0x1, 0x8},
	{0x2, 0x10},
	{0x4, 0x20},
	{0x40, 0x80},
}

const blank = 0x2800

// Canvas is a character grid of Width x Height Braille cells, giving
// (2*Width) x (4*Height) addressable dots.
type Canvas struct {
	Width, Height int
	Grid          [][]rune
}

func NewCanvas(w, h int) *Canvas {
	c := &Canvas{Width: w, Height: h, Grid: make([][]rune, h)}
	for i := range c.Grid {
		c.Grid[i] = make([]rune, w)
	}
	c.Clear()
	return c
}

// Set turns on the dot at sub-pixel (x, y). Out of range dots are ignored.
func (c *Canvas) Set(x, y int) {
	if x < 0 || y < 0 {
		return
	}
	col, row := x/2, y/4
	if col >= c.Width || row >= c.Height {
		return
	}
	c.Grid[row][col] |= pixelMap[y%4][x%2]
}

func (c *Canvas) Clear() {
	for i := range c.Grid {
		for j := range c.Grid[i] {
			c.Grid[i][j] = blank
		}
	}
}

// DrawLine draws a line using Bresenham's algorithm.
func (c *Canvas) DrawLine(x0, y0, x1, y1 int) {
	dx, dy := absInt(x1-x0), absInt(y1-y0)
	sx, sy := -1, -1
	if x0 < x1 {
		sx = 1
	}
	if y0 < y1 {
		sy = 1
	}
	err := dx - dy

	for {
		c.Set(x0, y0)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x0 += sx
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
	}
}

func (c *Canvas) String() string {
	var b strings.Builder
	for _, row := range c.Grid {
		b.WriteString(string(row))
		b.WriteByte('\n')
	}
	return b.String()
}

// Viewport maps world coordinates in metres, y up, onto canvas dots with
// the origin at the centre.
type Viewport struct {
	c     *Canvas
	scale float64
}

// NewViewport fits a world square of half-width span into the canvas.
func NewViewport(c *Canvas, span float64) Viewport {
	w, h := float64(c.Width*2), float64(c.Height*4)
	return Viewport{c: c, scale: math.Min(w, h) / (2 * span)}
}

func (v Viewport) point(x, y float64) (int, int) {
	cx, cy := v.c.Width, v.c.Height*2
	return cx + int(math.Round(x*v.scale)), cy - int(math.Round(y*v.scale))
}

func (v Viewport) Line(x0, y0, x1, y1 float64) {
	ax, ay := v.point(x0, y0)
	bx, by := v.point(x1, y1)
	v.c.DrawLine(ax, ay, bx, by)
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
