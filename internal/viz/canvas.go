package viz

import (
	"math"
	"strings"

	"gonum.org/v1/gonum/spatial/r2"
)

// Braille Patterns: 2x4 dots
// 1 4
// 2 5
// 3 6
// 7 8
//
// Unicode offset 0x2800
var pixelMap = [4][2]int{
	{0x1, 0x8},
	{0x2, 0x10},
	{0x4, 0x20},
	{0x40, 0x80},
}

const blank = 0x2800

// Canvas is a braille pixel grid. Width and Height are in terminal cells;
// the drawable area is (Width*2) x (Height*4) dots.
type Canvas struct {
	Width, Height int
	Grid          [][]rune
}

func NewCanvas(w, h int) *Canvas {
	c := &Canvas{
		Width:  w,
		Height: h,
		Grid:   make([][]rune, h),
	}
	for i := range c.Grid {
		c.Grid[i] = make([]rune, w)
	}
	c.Clear()
	return c
}

// Set lights the dot at (x, y). Out-of-range dots are ignored.
func (c *Canvas) Set(x, y int) {
	if x < 0 || y < 0 {
		return
	}

	col := x / 2
	row := y / 4
	if col >= c.Width || row >= c.Height {
		return
	}

	c.Grid[row][col] |= rune(pixelMap[y%4][x%2])
}

func (c *Canvas) Unset(x, y int) {
	if x < 0 || y < 0 {
		return
	}

	col := x / 2
	row := y / 4
	if col >= c.Width || row >= c.Height {
		return
	}

	c.Grid[row][col] &^= rune(pixelMap[y%4][x%2])
}

// Clear resets the canvas
func (c *Canvas) Clear() {
	for i := range c.Grid {
		for j := range c.Grid[i] {
			c.Grid[i][j] = blank
		}
	}
}

// Dots is the drawable size in braille dots.
func (c *Canvas) Dots() (w, h int) { return c.Width * 2, c.Height * 4 }

// Plot lights the dot under world position p, with box mapped onto the
// whole canvas. World y grows downward like the screen.
func (c *Canvas) Plot(p r2.Vec, box r2.Box) {
	x, y := c.toDots(p, box)
	c.Set(x, y)
}

func (c *Canvas) toDots(p r2.Vec, box r2.Box) (int, int) {
	w, h := c.Dots()
	size := r2.Sub(box.Max, box.Min)
	fx := (p.X - box.Min.X) / size.X * float64(w)
	fy := (p.Y - box.Min.Y) / size.Y * float64(h)
	if math.IsNaN(fx) || math.IsNaN(fy) {
		return -1, -1
	}
	return int(math.Floor(fx)), int(math.Floor(fy))
}

// ToWorld maps a terminal cell of the canvas to the world position at its
// centre.
func (c *Canvas) ToWorld(col, row int, box r2.Box) r2.Vec {
	size := r2.Sub(box.Max, box.Min)
	return r2.Vec{
		X: box.Min.X + (float64(col)+0.5)/float64(c.Width)*size.X,
		Y: box.Min.Y + (float64(row)+0.5)/float64(c.Height)*size.Y,
	}
}

// DrawLine draws a line using Bresenham's algorithm
func (c *Canvas) DrawLine(x0, y0, x1, y1 int) {
	dx := absInt(x1 - x0)
	dy := absInt(y1 - y0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	sy := -1
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

// Frame outlines the drawable area.
func (c *Canvas) Frame() {
	w, h := c.Dots()
	c.DrawLine(0, 0, w-1, 0)
	c.DrawLine(0, h-1, w-1, h-1)
	c.DrawLine(0, 0, 0, h-1)
	c.DrawLine(w-1, 0, w-1, h-1)
}

func (c *Canvas) String() string {
	var b strings.Builder
	for _, row := range c.Grid {
		b.WriteString(string(row))
		b.WriteByte('\n')
	}
	return b.String()
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
