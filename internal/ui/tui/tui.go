package tui

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/felixgeelhaar/reach/internal/puzzle"
	"github.com/felixgeelhaar/reach/internal/render"
	"github.com/felixgeelhaar/reach/internal/runtime"
	"github.com/felixgeelhaar/reach/internal/solver"
)

// TUI forwards runtime progress into a running program.
type TUI struct {
	program *tea.Program
}

func NewTUI(p *tea.Program) *TUI {
	return &TUI{program: p}
}

func (t *TUI) UpdateStatus(status string) {
	t.program.Send(StatusMsg(status))
}

func (t *TUI) UpdateProgress(states int) {
	t.program.Send(ProgressMsg(states))
}

func (t *TUI) Log(msg string) {
	t.program.Send(LogMsg(msg))
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#04B575"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#777777"))
)

// shownSolutions is how many solutions the form lists.
const shownSolutions = 3

const failureText = "Something went wrong while solving. Please try again."

// Submitter starts solves. *runtime.Dispatcher implements it.
type Submitter interface {
	Submit(ctx context.Context, req runtime.Request) runtime.Ticket
}

const (
	fieldNumbers = iota
	fieldTarget
	fieldLevel
	fieldCount
)

type LogMsg string
type StatusMsg string
type ProgressMsg int

// resultMsg carries a finished ticket back into the update loop.
type resultMsg struct {
	generation uint64
	outcome    runtime.Outcome
	err        error
}

// Model is the interactive puzzle form.
type Model struct {
	Mode       puzzle.Mode
	Inputs     []textinput.Model
	Focus      int
	Spinner    spinner.Model
	Running    bool
	Status     string
	States     int
	Result     *runtime.Response
	Err        string
	Logs       []string
	Quitting   bool
	Width      int
	// Budget bounds each submission; zero waits indefinitely.
	Budget     time.Duration
	generation uint64

	submitter    Submitter
	defaultLevel solver.Level
}

func NewModel(s Submitter, defaultLevel solver.Level) Model {
	inputs := make([]textinput.Model, fieldCount)
	for i := range inputs {
		ti := textinput.New()
		ti.CharLimit = 40
		ti.Width = 24
		inputs[i] = ti
	}
	inputs[fieldLevel].Placeholder = strconv.Itoa(int(defaultLevel))
	inputs[fieldLevel].CharLimit = 1
	inputs[fieldNumbers].Focus()

	m := Model{
		Mode:         puzzle.ModeFour,
		Inputs:       inputs,
		Spinner:      spinner.New(spinner.WithSpinner(spinner.Dot)),
		Status:       "ready",
		submitter:    s,
		defaultLevel: defaultLevel,
	}
	m.setPlaceholders()
	return m
}

// SetInputs pre-fills the form.
func (m *Model) SetInputs(numbers, target, level string) {
	m.Inputs[fieldNumbers].SetValue(numbers)
	m.Inputs[fieldTarget].SetValue(target)
	m.Inputs[fieldLevel].SetValue(level)
	if n := len(strings.Fields(strings.ReplaceAll(numbers, ",", " "))); n == int(puzzle.ModeFive) {
		m.Mode = puzzle.ModeFive
		m.setPlaceholders()
	}
}

func (m *Model) setPlaceholders() {
	m.Inputs[fieldNumbers].Placeholder = fmt.Sprintf("%d numbers, space separated", m.Mode)
	m.Inputs[fieldTarget].Placeholder = fmt.Sprintf("%d-digit target", m.Mode.TargetDigits())
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.Quitting = true
			return m, tea.Quit
		case tea.KeyTab:
			m.Mode = m.Mode.Toggle()
			m.setPlaceholders()
			return m, nil
		case tea.KeyUp, tea.KeyShiftTab:
			return m, m.focus((m.Focus + fieldCount - 1) % fieldCount)
		case tea.KeyDown:
			return m, m.focus((m.Focus + 1) % fieldCount)
		case tea.KeyEnter:
			return m.submit()
		}

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		return m, nil

	case spinner.TickMsg:
		if !m.Running {
			return m, nil
		}
		var cmd tea.Cmd
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd

	case resultMsg:
		if msg.generation != m.generation {
			// A newer submission replaced this one.
			return m, nil
		}
		m.Running = false
		if msg.err != nil {
			if errors.Is(msg.err, runtime.ErrSuperseded) {
				return m, nil
			}
			if errors.Is(msg.err, context.DeadlineExceeded) {
				m.Err = fmt.Sprintf("No answer within %s. Try fewer numbers or a lower level.", m.Budget)
				m.Status = "timed out"
				return m, nil
			}
			m.Err = failureText
			m.Status = "failed"
			return m, nil
		}
		resp := msg.outcome.Response
		m.Result = &resp
		m.Status = "done"
		return m, nil

	case StatusMsg:
		m.Status = string(msg)
		return m, nil

	case ProgressMsg:
		m.States = int(msg)
		return m, nil

	case LogMsg:
		m.Logs = append(m.Logs, string(msg))
		return m, nil
	}

	var cmd tea.Cmd
	m.Inputs[m.Focus], cmd = m.Inputs[m.Focus].Update(msg)
	return m, cmd
}

func (m *Model) focus(i int) tea.Cmd {
	m.Inputs[m.Focus].Blur()
	m.Focus = i
	return m.Inputs[i].Focus()
}

// submit parses the form and hands the request to the submitter. A solve
// still running is superseded.
func (m Model) submit() (tea.Model, tea.Cmd) {
	req, err := m.request()
	if err != nil {
		m.Err = err.Error()
		return m, nil
	}

	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if m.Budget > 0 {
		ctx, cancel = context.WithTimeout(context.Background(), m.Budget)
	} else {
		ctx, cancel = context.WithCancel(context.Background())
	}
	ticket := m.submitter.Submit(ctx, req)
	m.generation = ticket.Generation
	m.Running = true
	m.Result = nil
	m.Err = ""
	m.States = 0
	m.Status = "solving"
	return m, tea.Batch(m.Spinner.Tick, waitFor(ticket, cancel))
}

// waitFor blocks on the ticket and releases its budget once it resolves.
func waitFor(t runtime.Ticket, release context.CancelFunc) tea.Cmd {
	return func() tea.Msg {
		defer release()
		o, err := t.Wait(context.Background())
		return resultMsg{generation: t.Generation, outcome: o, err: err}
	}
}

func (m Model) request() (runtime.Request, error) {
	fields := strings.Fields(strings.ReplaceAll(m.Inputs[fieldNumbers].Value(), ",", " "))
	if len(fields) != int(m.Mode) {
		return runtime.Request{}, fmt.Errorf("enter exactly %d numbers", m.Mode)
	}
	numbers := make([]float64, len(fields))
	for i, f := range fields {
		n, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return runtime.Request{}, fmt.Errorf("%q is not a number", f)
		}
		numbers[i] = n
	}

	target, err := strconv.ParseFloat(strings.TrimSpace(m.Inputs[fieldTarget].Value()), 64)
	if err != nil {
		return runtime.Request{}, errors.New("enter a numeric target")
	}

	level := m.defaultLevel
	if s := strings.TrimSpace(m.Inputs[fieldLevel].Value()); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return runtime.Request{}, fmt.Errorf("%q is not a level", s)
		}
		if level, err = solver.ParseLevel(n); err != nil {
			return runtime.Request{}, err
		}
	}

	return runtime.Request{Numbers: numbers, Target: target, Level: level}, nil
}

func (m Model) View() string {
	var b strings.Builder

	header := titleStyle.Render(" reach ")
	status := infoStyle.Render(fmt.Sprintf(" %d numbers | %s ", m.Mode, m.Status))
	b.WriteString(header + status + "\n\n")

	labels := []string{"Numbers", "Target ", "Level  "}
	for i, in := range m.Inputs {
		b.WriteString(fmt.Sprintf("%s %s\n", labels[i], in.View()))
	}
	b.WriteString("\n")

	switch {
	case m.Err != "":
		b.WriteString(errorStyle.Render(m.Err) + "\n")
	case m.Running:
		b.WriteString(fmt.Sprintf("%s Solving... %d states\n", m.Spinner.View(), m.States))
	case m.Result != nil:
		b.WriteString(resultView(*m.Result))
	}

	if n := len(m.Logs); n > 0 {
		b.WriteString(dimStyle.Render(m.Logs[n-1]) + "\n")
	}
	b.WriteString("\n" + dimStyle.Render("enter solve | tab 4/5 numbers | up/down move | esc quit") + "\n")
	if m.Quitting {
		b.WriteString("  Quitting...\n")
	}
	return b.String()
}

func resultView(resp runtime.Response) string {
	var b strings.Builder
	switch {
	case len(resp.Solutions) > 0:
		for _, s := range resp.Top(shownSolutions) {
			b.WriteString("  " + render.Display(s.Item()) + "\n")
		}
		if extra := len(resp.Solutions) - shownSolutions; extra > 0 {
			b.WriteString(dimStyle.Render(fmt.Sprintf("  and %d more", extra)) + "\n")
		}
	case !resp.Closest.Unreached():
		c := resp.Closest
		b.WriteString(fmt.Sprintf("  No exact solution. Closest: %s\n", render.Equation(c.Item())))
	default:
		b.WriteString("  No solution.\n")
	}
	return b.String()
}
