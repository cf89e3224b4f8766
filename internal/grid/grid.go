// Package grid partitions the 2D domain into uniform square cells of
// particle indices for neighbor discovery.
package grid

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Grid buckets particle indices by cell. It never holds particles, only
// their positions in the simulation's particle slice.
type Grid struct {
	cellSize float64
	inv      float64
	cols     int
	rows     int
	count    int
	cells    [][]int // flat, row-major
}

// New covers a width x height domain. Partial cells at the far edges count
// as full cells, so every in-domain position maps to its own cell.
func New(width, height, cellSize float64) *Grid {
	cols := int(math.Ceil(width / cellSize))
	rows := int(math.Ceil(height / cellSize))
	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}

	cells := make([][]int, cols*rows)
	for i := range cells {
		cells[i] = make([]int, 0, 8)
	}

	return &Grid{
		cellSize: cellSize,
		inv:      1.0 / cellSize,
		cols:     cols,
		rows:     rows,
		cells:    cells,
	}
}

// Clear empties every bucket and keeps the backing arrays.
func (g *Grid) Clear() {
	for i := range g.cells {
		g.cells[i] = g.cells[i][:0]
	}
	g.count = 0
}

// Insert appends index to the cell containing p and returns that cell.
func (g *Grid) Insert(index int, p r2.Vec) (ix, iy int) {
	ix, iy = g.CellOf(p)
	c := iy*g.cols + ix
	g.cells[c] = append(g.cells[c], index)
	g.count++
	return ix, iy
}

// CellOf returns floor(p / cellSize) clamped to the grid.
func (g *Grid) CellOf(p r2.Vec) (ix, iy int) {
	return clamp(p.X*g.inv, g.cols), clamp(p.Y*g.inv, g.rows)
}

// CellAt returns the bucket at (ix, iy), or nil when the cell is outside the
// grid. The returned slice is only valid until the next Clear.
func (g *Grid) CellAt(ix, iy int) []int {
	if ix < 0 || iy < 0 || ix >= g.cols || iy >= g.rows {
		return nil
	}
	return g.cells[iy*g.cols+ix]
}

func (g *Grid) Dims() (cols, rows int) { return g.cols, g.rows }
func (g *Grid) CellSize() float64      { return g.cellSize }

// Len is the number of indices inserted since the last Clear.
func (g *Grid) Len() int { return g.count }

func clamp(v float64, n int) int {
	// NaN and -Inf land in the first cell
	if !(v >= 0) {
		return 0
	}
	if v >= float64(n) {
		return n - 1
	}
	return int(v)
}
