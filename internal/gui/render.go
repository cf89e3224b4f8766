package gui

import (
	"fmt"
	"math"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/san-kum/fluidsim/internal/sim"
	"gonum.org/v1/gonum/spatial/r2"
)

func (a *App) Draw() {
	rl.BeginDrawing()
	rl.ClearBackground(ColBg)

	a.drawDomain()
	a.drawParticles()
	a.DrawHUD()

	rl.EndDrawing()
}

func (a *App) drawDomain() {
	p := a.Sim.Params()
	w, h := float32(p.Width)*a.Scale, float32(p.Height)*a.Scale
	rl.DrawRectangleLinesEx(rl.NewRectangle(a.Origin.X, a.Origin.Y, w, h), 1, ColGrid)
}

// drawParticles tints each particle from the fluid colour toward white as
// its speed approaches the fastest particle's.
func (a *App) drawParticles() {
	vmax := 0.0
	a.Sim.ForEachState(func(p sim.Particle) {
		vmax = math.Max(vmax, r2.Norm(p.Vel))
	})
	if vmax == 0 {
		vmax = 1
	}
	a.Sim.ForEachState(func(p sim.Particle) {
		t := float32(r2.Norm(p.Vel) / vmax)
		r := float32(a.Sim.Params().DrawRadius) * a.Scale
		rl.DrawCircleV(a.toScreen(p.Pos), max(r, 1), lerpColor(ColFluid, ColFast, t))
	})
}

func lerpColor(from, to rl.Color, t float32) rl.Color {
	mix := func(x, y uint8) uint8 { return uint8(float32(x) + t*(float32(y)-float32(x))) }
	return rl.NewColor(mix(from.R, to.R), mix(from.G, to.G), mix(from.B, to.B), 255)
}

func (a *App) DrawHUD() {
	a.drawText("fluidsim", 30, 16, 24, ColSelect)
	a.drawText(fmt.Sprintf(":: %s", a.Title), 150, 20, 16, ColText)

	status := "RUNNING"
	col := ColSelect
	if !a.Running {
		status = "PAUSED"
		col = ColTextDim
	}
	a.drawText(status, windowW-130, 16, 16, col)

	p := a.Sim.Params()
	g := a.Sim.Gravity()
	a.drawText(fmt.Sprintf("particles %d/%d   t %.2f   steps %d   g (%.3g, %.3g)",
		a.Sim.Len(), p.MaxParticles, a.Sim.Time(), a.Sim.Steps(), g.X, g.Y), 30, 44, 14, ColText)
	if a.Err != nil {
		a.drawText(a.Err.Error(), 30, 62, 14, rl.Red)
	}

	a.DrawTelemetry()
	a.drawText("[MOUSE] POUR  [ARROWS] GRAVITY  [SPACE] PAUSE  [R] RESET  [Q] QUIT", 640, windowH-24, 14, ColTextDim)
	a.drawText(fmt.Sprintf("%d FPS", int32(rl.GetFPS())), 30, windowH-24, 14, ColTextDim)
}

func (a *App) drawText(text string, x, y int, size int, color rl.Color) {
	rl.DrawText(text, int32(x), int32(y), int32(size), color)
}

func (a *App) DrawTelemetry() {
	if len(a.Telemetry) < 2 {
		return
	}

	rectX, rectY := windowW-440, 40
	width, height := 300, 36

	minVal, maxVal := a.Telemetry[0], a.Telemetry[0]
	for _, v := range a.Telemetry {
		minVal = math.Min(minVal, v)
		maxVal = math.Max(maxVal, v)
	}
	if maxVal == minVal {
		maxVal = minVal + 1
	}

	points := make([]rl.Vector2, len(a.Telemetry))
	for i, val := range a.Telemetry {
		px := float32(rectX) + (float32(i)/float32(len(a.Telemetry)))*float32(width)
		norm := (val - minVal) / (maxVal - minVal)
		py := float32(rectY+height) - float32(norm)*float32(height)
		points[i] = rl.NewVector2(px, py)
	}

	rl.DrawLineStrip(points, ColAccent)
	a.drawText(fmt.Sprintf("KE: %.2e", a.Telemetry[len(a.Telemetry)-1]), rectX+width+10, rectY+height-10, 14, ColText)
}
