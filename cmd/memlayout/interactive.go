package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/wippyai/memlayout/emit/report"
	"github.com/wippyai/memlayout/layout"
)

type inspectModel struct {
	err      error
	input    string
	arch     string
	opts     layout.Options
	sizer    layout.Sizer
	report   report.Report
	visible  []int
	filter   textinput.Model
	selected int
	state    inspectState
}

type inspectState int

const (
	stateLoading inspectState = iota
	stateBrowse
	stateFilter
)

type loadedMsg struct {
	err    error
	report report.Report
}

func newInspectModel(input, arch string, opts layout.Options, sizer layout.Sizer) *inspectModel {
	ti := textinput.New()
	ti.Prompt = "/"
	ti.Placeholder = "struct name"
	ti.Width = 30
	return &inspectModel{
		input:  input,
		arch:   arch,
		opts:   opts,
		sizer:  sizer,
		filter: ti,
		state:  stateLoading,
	}
}

func (m *inspectModel) Init() tea.Cmd {
	return m.load
}

func (m *inspectModel) load() tea.Msg {
	u, err := load(m.input)
	if err != nil {
		return loadedMsg{err: err}
	}
	// Structs that fail to resolve are reported, the rest stay browsable.
	plans, err := layout.ResolveAll(u.inputs, m.opts)
	r := report.Build(u.source, plans, m.sizer)
	r.Arch = m.arch
	return loadedMsg{err: err, report: r}
}

func (m *inspectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadedMsg:
		m.err = msg.err
		m.report = msg.report
		m.state = stateBrowse
		m.applyFilter()
		return m, nil

	case tea.KeyMsg:
		if m.state == stateFilter {
			switch msg.String() {
			case "ctrl+c":
				return m, tea.Quit
			case "esc":
				m.filter.SetValue("")
				m.filter.Blur()
				m.state = stateBrowse
				m.applyFilter()
				return m, nil
			case "enter":
				m.filter.Blur()
				m.state = stateBrowse
				return m, nil
			}
			var cmd tea.Cmd
			m.filter, cmd = m.filter.Update(msg)
			m.applyFilter()
			return m, cmd
		}

		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "up", "k":
			if m.selected > 0 {
				m.selected--
			}
		case "down", "j":
			if m.selected < len(m.visible)-1 {
				m.selected++
			}
		case "/":
			if m.state == stateBrowse {
				m.state = stateFilter
				return m, m.filter.Focus()
			}
		case "esc":
			m.filter.SetValue("")
			m.applyFilter()
		}
	}
	return m, nil
}

// applyFilter keeps the structs whose name contains the filter text.
func (m *inspectModel) applyFilter() {
	needle := strings.ToLower(m.filter.Value())
	m.visible = m.visible[:0]
	for i, st := range m.report.Structs {
		if needle == "" || strings.Contains(strings.ToLower(st.Name), needle) {
			m.visible = append(m.visible, i)
		}
	}
	if m.selected >= len(m.visible) {
		m.selected = max(len(m.visible)-1, 0)
	}
}

func (m *inspectModel) View() string {
	if m.state == stateLoading {
		return "Resolving layouts..."
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("memlayout"))
	b.WriteString(" ")
	b.WriteString(m.input)
	if m.report.Arch != "" {
		b.WriteString(" ")
		b.WriteString(helpStyle.Render(m.report.Arch))
	}
	b.WriteString("\n\n")

	if m.err != nil {
		for _, line := range strings.Split(m.err.Error(), "\n") {
			b.WriteString(errorStyle.Render(line))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if m.state == stateFilter || m.filter.Value() != "" {
		b.WriteString(m.filter.View())
		b.WriteString("\n\n")
	}

	if len(m.visible) == 0 {
		b.WriteString("No structs.\n")
	}
	for i, idx := range m.visible {
		st := m.report.Structs[idx]
		line := fmt.Sprintf("%s (%d fields, size %s)", st.Name, len(st.Fields), optHex(st.Size))
		if i == m.selected {
			b.WriteString(selectedStyle.Render("> " + line))
		} else {
			b.WriteString("  " + fieldStyle.Render(line))
		}
		b.WriteString("\n")
	}

	if len(m.visible) > 0 {
		st := m.report.Structs[m.visible[m.selected]]
		b.WriteString("\n")
		b.WriteString(structHeader(st))
		b.WriteString("\n")
		b.WriteString(structTable(st))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if m.state == stateFilter {
		b.WriteString(helpStyle.Render("enter apply • esc clear"))
	} else {
		b.WriteString(helpStyle.Render("↑/↓ select • / filter • esc clear • q quit"))
	}
	return b.String()
}

func runInspect(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("inspect", flag.ContinueOnError)
	var c common
	c.register(fs)
	ev := registerEval(fs)
	if err := parseFlags(fs, &c, args); err != nil {
		return err
	}

	opts, err := c.options()
	if err != nil {
		return err
	}
	sizer, err := ev.sizer()
	if err != nil {
		return err
	}

	// Without a terminal print the tables instead.
	if f, ok := stdout.(*os.File); !ok || !term.IsTerminal(int(f.Fd())) {
		u, err := load(c.in)
		if err != nil {
			return err
		}
		plans, err := layout.ResolveAll(u.inputs, opts)
		if err != nil {
			return err
		}
		r := report.Build(u.source, plans, sizer)
		r.Arch = ev.arch
		_, err = io.WriteString(stdout, renderTables(r))
		return err
	}

	p := tea.NewProgram(newInspectModel(c.in, ev.arch, opts, sizer), tea.WithAltScreen())
	_, err = p.Run()
	return err
}
