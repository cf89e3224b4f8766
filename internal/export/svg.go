package export

import (
	"bufio"
	"fmt"
	"io"
	"math"

	"github.com/san-kum/fluidsim/internal/sim"
	"gonum.org/v1/gonum/spatial/r2"
)

const background = "#0a0a0a"

// ParticlesSVG draws a particle snapshot of the domain box at scale pixels
// per world unit. Particles are shaded from blue to white by speed relative
// to the fastest one.
func ParticlesSVG(w io.Writer, ps []sim.Particle, box r2.Box, radius, scale float64) error {
	size := r2.Sub(box.Max, box.Min)
	width, height := size.X*scale, size.Y*scale

	vmax := 0.0
	for _, p := range ps {
		vmax = math.Max(vmax, r2.Norm(p.Vel))
	}
	if vmax == 0 {
		vmax = 1
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%.0f" height="%.0f" viewBox="0 0 %.0f %.0f">
<rect width="100%%" height="100%%" fill="%s"/>
`, width, height, width, height, background)

	for _, p := range ps {
		if math.IsNaN(p.Pos.X) || math.IsNaN(p.Pos.Y) {
			continue
		}
		x := (p.Pos.X - box.Min.X) * scale
		y := (p.Pos.Y - box.Min.Y) * scale
		fmt.Fprintf(bw, `<circle cx="%.1f" cy="%.1f" r="%.1f" fill="%s"/>
`, x, y, radius*scale, speedColor(r2.Norm(p.Vel)/vmax))
	}

	bw.WriteString("</svg>\n")
	return bw.Flush()
}

// speedColor blends #4fc3f7 toward white as t goes from 0 to 1.
func speedColor(t float64) string {
	t = math.Max(0, math.Min(t, 1))
	mix := func(a int) int { return a + int(t*float64(255-a)) }
	return fmt.Sprintf("#%02x%02x%02x", mix(0x4f), mix(0xc3), mix(0xf7))
}

// SeriesSVG plots values against times as a polyline in a width x height
// image, y growing upward.
func SeriesSVG(w io.Writer, times, values []float64, width, height int, strokeColor string) error {
	n := min(len(times), len(values))
	if n < 2 {
		return fmt.Errorf("series needs at least 2 samples, got %d", n)
	}

	minX, maxX := times[0], times[0]
	minY, maxY := values[0], values[0]
	for i := 0; i < n; i++ {
		minX, maxX = math.Min(minX, times[i]), math.Max(maxX, times[i])
		minY, maxY = math.Min(minY, values[i]), math.Max(maxY, values[i])
	}

	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minY -= rangeY * 0.1
	rangeY *= 1.2

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="%s"/>
<path fill="none" stroke="%s" stroke-width="1.5" d="M`,
		width, height, width, height, background, strokeColor)

	for i := 0; i < n; i++ {
		x := (times[i] - minX) / rangeX * float64(width)
		y := float64(height) - (values[i]-minY)/rangeY*float64(height)
		if i == 0 {
			fmt.Fprintf(bw, "%.1f,%.1f", x, y)
		} else {
			fmt.Fprintf(bw, " L%.1f,%.1f", x, y)
		}
	}

	bw.WriteString(`"/>
</svg>
`)
	return bw.Flush()
}
