package viz

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/san-kum/fluidsim/internal/config"
	"github.com/san-kum/fluidsim/internal/experiment"
)

var presetInfo = map[string]string{
	"sph/pour": "stream into an empty tank", "sph/block": "resting block settles", "sph/dambreak": "tall column collapses",
	"sph/sideways": "gravity along +x", "pbf/square": "800 particle block", "pbf/pour": "stream, position based",
	"pbf/parallel": "1600 particles, 4 workers",
}

const (
	stateMenu = iota
	stateSim
)

type entry struct{ solver, preset string }

func (e entry) String() string { return e.solver + "/" + e.preset }

// picker lists every preset and opens the live view on the chosen one.
type picker struct {
	state, cursor int
	entries       []entry
	reg           *experiment.Registry
	opts          []experiment.Option
	live          Model
	err           error
}

func newPicker(reg *experiment.Registry, opts ...experiment.Option) picker {
	p := picker{state: stateMenu, reg: reg, opts: opts}
	for _, solver := range config.ListSolvers() {
		for _, preset := range config.ListPresets(solver) {
			p.entries = append(p.entries, entry{solver, preset})
		}
	}
	return p
}

func (m picker) Init() tea.Cmd { return nil }

func (m picker) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.state == stateSim {
		if k, ok := msg.(tea.KeyMsg); ok && k.String() == "esc" {
			m.state = stateMenu
			return m, nil
		}
		lm, cmd := m.live.Update(msg)
		m.live = lm.(Model)
		return m, cmd
	}

	// ticks left over from a closed live view end here
	k, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch k.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.entries)-1 {
			m.cursor++
		}
	case "enter":
		return m.start()
	}
	return m, nil
}

func (m picker) start() (picker, tea.Cmd) {
	e := m.entries[m.cursor]
	cfg := config.GetPreset(e.solver, e.preset)
	live, err := NewLive(cfg, m.reg, m.opts...)
	if err != nil {
		m.err = err
		return m, nil
	}
	live.title = e.String()
	m.live, m.state, m.err = live, stateSim, nil
	return m, live.Init()
}

func (m picker) View() string {
	if m.state == stateSim {
		return m.live.View()
	}

	var b strings.Builder
	h, sub := lipgloss.NewStyle().Foreground(CurrentTheme.Secondary).Bold(true), lipgloss.NewStyle().Foreground(lipgloss.Color("#666688"))
	b.WriteString("\n\n    " + h.Render("FLUIDSIM") + "\n    " + sub.Render("particle fluid playground") + "\n    " + sub.Render("─────────────────────────") + "\n\n")
	for i, e := range m.entries {
		desc := presetInfo[e.String()]
		if i == m.cursor {
			b.WriteString(fmt.Sprintf("    %s %s  %s\n", lipgloss.NewStyle().Foreground(lipgloss.Color("#00ffff")).Bold(true).Render("▸"), lipgloss.NewStyle().Foreground(lipgloss.Color("#ffffff")).Bold(true).Render(fmt.Sprintf("%-14s", e)), lipgloss.NewStyle().Foreground(lipgloss.Color("#ff88ff")).Render(desc)))
		} else {
			b.WriteString(fmt.Sprintf("    %s  %s\n", lipgloss.NewStyle().Foreground(lipgloss.Color("#555566")).Render(fmt.Sprintf("  %-14s", e)), lipgloss.NewStyle().Foreground(lipgloss.Color("#444455")).Render(desc)))
		}
	}
	if m.err != nil {
		b.WriteString("\n    " + SparkLow.Render(m.err.Error()) + "\n")
	}
	b.WriteString("\n    " + KeyHint.Render("j/k navigate  enter start  esc back  q quit") + "\n")
	return b.String()
}

// RunInteractive opens the preset picker.
func RunInteractive(reg *experiment.Registry, opts ...experiment.Option) error {
	_, err := tea.NewProgram(newPicker(reg, opts...), tea.WithAltScreen(), tea.WithMouseCellMotion()).Run()
	return err
}

// RunLive opens the live view on cfg directly.
func RunLive(cfg *config.Config, reg *experiment.Registry, opts ...experiment.Option) error {
	m, err := NewLive(cfg, reg, opts...)
	if err != nil {
		return err
	}
	_, err = tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion()).Run()
	return err
}
