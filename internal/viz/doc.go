// Package viz draws a running fluid in the terminal.
//
// The live view is a Bubble Tea program: particles are plotted on a
// braille [Canvas] beside a stats panel with a kinetic energy graph. The
// simulation advances one step per frame at 60 frames per second.
//
// # Controls
//
//	Mouse  - Hold the left button to pour particles at the pointer
//	Arrows - Point gravity left, right, up or down
//	Space  - Pause/Resume simulation
//	R      - Reset to the configured scene
//	T      - Cycle color themes
//	?      - Show help overlay
//
// [RunInteractive] starts from a preset picker; [RunLive] opens a given
// configuration.
package viz
