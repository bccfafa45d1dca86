package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/tetratelabs/wazero/api"

	"github.com/luaugo/luauhost/assert"
	"github.com/luaugo/luauhost/config"
	"github.com/luaugo/luauhost/runtime"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	funcStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	typeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	assertStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFD700"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

// assertCapture collects diagnostics raised while a call is in flight.
type assertCapture struct {
	mu    sync.Mutex
	lines []string
}

func (c *assertCapture) handler() assert.Handler {
	return func(expression, file string, line int, _ string) int {
		c.mu.Lock()
		c.lines = append(c.lines,
			fmt.Sprintf("%s(%d): ASSERTION FAILED: %s", file, line, expression))
		c.mu.Unlock()
		return assert.Abort
	}
}

func (c *assertCapture) drain() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	lines := c.lines
	c.lines = nil
	return lines
}

type interactiveModel struct {
	err      error
	cfg      *config.Config
	rt       *runtime.Runtime
	module   *runtime.Module
	instance *runtime.Instance
	capture  *assertCapture
	filename string
	manifest string
	result   string
	asserts  []string
	funcs    []funcInfo
	inputs   []textinput.Model
	selected int
	focusIdx int
	state    modelState
}

type funcInfo struct {
	name       string
	paramTypes []string
	resultType string
}

type modelState int

const (
	stateSelectFunc modelState = iota
	stateInputArgs
	stateShowResult
)

func newInteractiveModel(filename, manifest string, cfg *config.Config) *interactiveModel {
	return &interactiveModel{
		cfg:      cfg,
		filename: filename,
		manifest: manifest,
		capture:  &assertCapture{},
		state:    stateSelectFunc,
	}
}

type loadedMsg struct {
	err   error
	rt    *runtime.Runtime
	mod   *runtime.Module
	funcs []funcInfo
}

type callResultMsg struct {
	err     error
	result  string
	asserts []string
}

func (m *interactiveModel) Init() tea.Cmd {
	return m.loadBuild
}

func (m *interactiveModel) loadBuild() tea.Msg {
	ctx := context.Background()

	data, err := os.ReadFile(m.filename)
	if err != nil {
		return loadedMsg{err: err}
	}

	bridge := assert.NewBridge()
	bridge.Register(m.capture.handler())

	rt, err := runtime.New(ctx, runtime.Options{
		Engine: m.cfg.EngineConfig(),
		Bridge: bridge,
	})
	if err != nil {
		return loadedMsg{err: err}
	}

	mod, err := loadModule(ctx, rt, data, m.manifest)
	if err != nil {
		rt.Close(ctx)
		return loadedMsg{err: err}
	}

	var funcs []funcInfo
	for _, name := range exportNames(mod) {
		def := mod.ExportedFunctions()[name]
		fi := funcInfo{name: name}
		for _, p := range def.ParamTypes() {
			fi.paramTypes = append(fi.paramTypes, api.ValueTypeName(p))
		}
		if rs := def.ResultTypes(); len(rs) > 0 {
			fi.resultType = api.ValueTypeName(rs[0])
		}
		funcs = append(funcs, fi)
	}

	return loadedMsg{funcs: funcs, rt: rt, mod: mod}
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			ctx := context.Background()
			if m.instance != nil {
				m.instance.Close(ctx)
			}
			if m.rt != nil {
				m.rt.Close(ctx)
			}
			return m, tea.Quit

		case "up", "k":
			if m.state == stateSelectFunc && m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.state == stateSelectFunc && m.selected < len(m.funcs)-1 {
				m.selected++
			}

		case "enter":
			switch m.state {
			case stateSelectFunc:
				m.prepareInputs()
				if len(m.inputs) == 0 {
					return m, m.callFunction
				}
				m.state = stateInputArgs

			case stateInputArgs:
				return m, m.callFunction

			case stateShowResult:
				m.state = stateSelectFunc
				m.result = ""
				m.asserts = nil
				m.err = nil
			}

		case "tab":
			if m.state == stateInputArgs && len(m.inputs) > 1 {
				m.inputs[m.focusIdx].Blur()
				m.focusIdx = (m.focusIdx + 1) % len(m.inputs)
				m.inputs[m.focusIdx].Focus()
			}

		case "esc":
			switch m.state {
			case stateInputArgs:
				m.state = stateSelectFunc
				m.inputs = nil
			case stateShowResult:
				m.state = stateSelectFunc
				m.result = ""
				m.asserts = nil
				m.err = nil
			}
		}

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.funcs = msg.funcs
		m.rt = msg.rt
		m.module = msg.mod

	case callResultMsg:
		m.result = msg.result
		m.asserts = msg.asserts
		m.err = msg.err
		m.state = stateShowResult
	}

	if m.state == stateInputArgs {
		var cmds []tea.Cmd
		for i := range m.inputs {
			var cmd tea.Cmd
			m.inputs[i], cmd = m.inputs[i].Update(msg)
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)
	}

	return m, nil
}

func (m *interactiveModel) prepareInputs() {
	f := m.funcs[m.selected]
	m.inputs = make([]textinput.Model, len(f.paramTypes))
	for i, pt := range f.paramTypes {
		ti := textinput.New()
		ti.Placeholder = pt
		ti.Prompt = fmt.Sprintf("arg%d: ", i)
		ti.Width = 40
		if i == 0 {
			ti.Focus()
		}
		m.inputs[i] = ti
	}
	m.focusIdx = 0
}

func (m *interactiveModel) callFunction() tea.Msg {
	ctx := context.Background()

	if m.instance == nil {
		if m.module == nil {
			return callResultMsg{err: fmt.Errorf("build not loaded")}
		}
		inst, err := m.module.Instantiate(ctx)
		if err != nil {
			return callResultMsg{err: err}
		}
		m.instance = inst
	}

	f := m.funcs[m.selected]
	var argsStr []string
	for _, input := range m.inputs {
		argsStr = append(argsStr, input.Value())
	}
	args, err := parseArgs(strings.Join(argsStr, ","))
	if err != nil {
		return callResultMsg{err: err}
	}

	results, err := m.instance.Call(ctx, f.name, args...)
	asserts := m.capture.drain()
	if err != nil {
		return callResultMsg{err: err, asserts: asserts}
	}

	return callResultMsg{result: fmt.Sprintf("%v", results), asserts: asserts}
}

func (m *interactiveModel) View() string {
	if m.err != nil && m.state != stateShowResult {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}

	if len(m.funcs) == 0 {
		return "Loading build..."
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("Luau Runner"))
	b.WriteString(" ")
	b.WriteString(m.filename)
	b.WriteString("\n\n")

	switch m.state {
	case stateSelectFunc:
		b.WriteString("Select a function to call:\n\n")
		for i, f := range m.funcs {
			cursor := "  "
			if i == m.selected {
				cursor = "> "
				b.WriteString(selectedStyle.Render(cursor + m.formatFunc(f)))
			} else {
				b.WriteString(cursor + m.formatFunc(f))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter call • q quit"))

	case stateInputArgs:
		f := m.funcs[m.selected]
		b.WriteString(fmt.Sprintf("Calling %s\n\n", funcStyle.Render(f.name)))
		for i, input := range m.inputs {
			b.WriteString(input.View())
			b.WriteString(" ")
			b.WriteString(typeStyle.Render(f.paramTypes[i]))
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("tab next field • enter call • esc back"))

	case stateShowResult:
		f := m.funcs[m.selected]
		b.WriteString(fmt.Sprintf("Result of %s:\n\n", funcStyle.Render(f.name)))
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		} else {
			b.WriteString(resultStyle.Render(m.result))
		}
		for _, line := range m.asserts {
			b.WriteString("\n")
			b.WriteString(assertStyle.Render(line))
		}
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter continue • q quit"))
	}

	return b.String()
}

func (m *interactiveModel) formatFunc(f funcInfo) string {
	var params []string
	for i, pt := range f.paramTypes {
		params = append(params, fmt.Sprintf("arg%d: %s", i, typeStyle.Render(pt)))
	}
	result := ""
	if f.resultType != "" {
		result = " -> " + typeStyle.Render(f.resultType)
	}
	return funcStyle.Render(f.name) + "(" + strings.Join(params, ", ") + ")" + result
}

func runInteractive(filename, manifest string, cfg *config.Config) error {
	p := tea.NewProgram(newInteractiveModel(filename, manifest, cfg), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
