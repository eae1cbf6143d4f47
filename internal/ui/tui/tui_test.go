package tui

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/reach/internal/guard"
	"github.com/felixgeelhaar/reach/internal/observe"
	"github.com/felixgeelhaar/reach/internal/puzzle"
	"github.com/felixgeelhaar/reach/internal/runtime"
	"github.com/felixgeelhaar/reach/internal/solver"
)

func newTestModel(t *testing.T) Model {
	t.Helper()
	d := runtime.NewDispatcher(runtime.New(nil, guard.New(guard.DefaultPolicy), observe.Discard()))
	t.Cleanup(d.Close)
	return NewModel(d, solver.LevelBasic)
}

// result runs cmd, descending into batches, until it yields a resultMsg.
func result(cmd tea.Cmd) (resultMsg, bool) {
	if cmd == nil {
		return resultMsg{}, false
	}
	switch msg := cmd().(type) {
	case resultMsg:
		return msg, true
	case tea.BatchMsg:
		for _, c := range msg {
			if r, ok := result(c); ok {
				return r, true
			}
		}
	}
	return resultMsg{}, false
}

func press(t *testing.T, m Model, k tea.KeyType) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(tea.KeyMsg{Type: k})
	return next.(Model), cmd
}

func apply(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(Model)
}

func TestModel_SubmitShowsSolutions(t *testing.T) {
	m := newTestModel(t)
	m.SetInputs("1 2 3 4", "10", "")

	m, cmd := press(t, m, tea.KeyEnter)
	require.True(t, m.Running)
	assert.Empty(t, m.Err)
	assert.Contains(t, m.View(), "Solving")

	msg, ok := result(cmd)
	require.True(t, ok)
	m = apply(t, m, msg)

	assert.False(t, m.Running)
	require.NotNil(t, m.Result)
	assert.Contains(t, m.View(), "1+2+3+4")
}

func TestModel_ShowsClosestWithoutSolutions(t *testing.T) {
	m := newTestModel(t)
	m.SetInputs("1 1 1 1", "100", "0")

	m, cmd := press(t, m, tea.KeyEnter)
	msg, ok := result(cmd)
	require.True(t, ok)
	m = apply(t, m, msg)

	assert.Contains(t, m.View(), "No exact solution. Closest: 1+1+1+1 = 4")
}

func TestModel_NewSubmitSupersedesOld(t *testing.T) {
	m := newTestModel(t)
	m.SetInputs("1 2 3 4", "10", "")

	m, first := press(t, m, tea.KeyEnter)
	m.SetInputs("1 2 3 4", "24", "")
	m, second := press(t, m, tea.KeyEnter)

	// The first result is stale whether it finished or was cancelled.
	stale, ok := result(first)
	require.True(t, ok)
	m = apply(t, m, stale)
	assert.True(t, m.Running)
	assert.Nil(t, m.Result)

	fresh, ok := result(second)
	require.True(t, ok)
	m = apply(t, m, fresh)
	assert.False(t, m.Running)
	require.NotNil(t, m.Result)
	require.NotEmpty(t, m.Result.Solutions)
	assert.InDelta(t, 24, float64(m.Result.Solutions[0].Value), 1e-4)
}

func TestModel_StaleResultIsIgnored(t *testing.T) {
	m := newTestModel(t)
	m.generation = 2
	m.Running = true

	m = apply(t, m, resultMsg{generation: 1, outcome: runtime.Outcome{Generation: 1}})
	assert.True(t, m.Running)
	assert.Nil(t, m.Result)
}

func TestModel_FailureReenablesInput(t *testing.T) {
	m := newTestModel(t)
	m.generation = 1
	m.Running = true

	m = apply(t, m, resultMsg{generation: 1, err: runtime.ErrComputationFailed})
	assert.False(t, m.Running)
	assert.Equal(t, failureText, m.Err)
	assert.Contains(t, m.View(), failureText)

	m.SetInputs("1 2 3 4", "10", "")
	m, cmd := press(t, m, tea.KeyEnter)
	assert.True(t, m.Running)
	assert.NotNil(t, cmd)
}

func TestModel_TabTogglesMode(t *testing.T) {
	m := newTestModel(t)
	assert.Equal(t, puzzle.ModeFour, m.Mode)

	m, _ = press(t, m, tea.KeyTab)
	assert.Equal(t, puzzle.ModeFive, m.Mode)
	assert.Contains(t, m.Inputs[fieldTarget].Placeholder, "3-digit")

	m.Inputs[fieldNumbers].SetValue("1 2 3 4")
	m.Inputs[fieldTarget].SetValue("10")
	m, cmd := press(t, m, tea.KeyEnter)
	assert.Nil(t, cmd)
	assert.Equal(t, "enter exactly 5 numbers", m.Err)
}

func TestModel_RejectsBadInput(t *testing.T) {
	tests := []struct {
		name                   string
		numbers, target, level string
		wantErr                string
	}{
		{"bad number", "1 2 x 4", "10", "", `"x" is not a number`},
		{"bad target", "1 2 3 4", "ten", "", "enter a numeric target"},
		{"bad level", "1 2 3 4", "10", "7", "level must be between 0 and 3, got 7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestModel(t)
			m.SetInputs(tt.numbers, tt.target, tt.level)

			m, cmd := press(t, m, tea.KeyEnter)
			assert.Nil(t, cmd)
			assert.False(t, m.Running)
			assert.Equal(t, tt.wantErr, m.Err)
		})
	}
}

func TestModel_SetInputsDetectsFiveNumbers(t *testing.T) {
	m := newTestModel(t)
	m.SetInputs("2,3,4,5,6", "100", "")
	assert.Equal(t, puzzle.ModeFive, m.Mode)
}

func TestModel_FocusAndMessages(t *testing.T) {
	m := newTestModel(t)

	m, _ = press(t, m, tea.KeyDown)
	assert.Equal(t, fieldTarget, m.Focus)
	m, _ = press(t, m, tea.KeyUp)
	m, _ = press(t, m, tea.KeyUp)
	assert.Equal(t, fieldLevel, m.Focus)

	m = apply(t, m, StatusMsg("solving"))
	m = apply(t, m, ProgressMsg(2048))
	m = apply(t, m, LogMsg("hello"))
	assert.Equal(t, "solving", m.Status)
	assert.Equal(t, 2048, m.States)
	assert.Contains(t, m.View(), "hello")
}

func TestModel_Quit(t *testing.T) {
	m := newTestModel(t)
	m, cmd := press(t, m, tea.KeyEsc)
	assert.True(t, m.Quitting)
	assert.NotNil(t, cmd)
}

func TestModel_BudgetStopsLongSolves(t *testing.T) {
	m := newTestModel(t)
	m.Budget = time.Nanosecond
	m.SetInputs("2 3 4 5 6", "1", "3")

	m, cmd := press(t, m, tea.KeyEnter)
	require.True(t, m.Running)

	msg, ok := result(cmd)
	require.True(t, ok)
	m = apply(t, m, msg)

	assert.False(t, m.Running)
	assert.Equal(t, "timed out", m.Status)
	assert.Contains(t, m.Err, "No answer within 1ns")
	assert.NotEqual(t, failureText, m.Err)
}
