// Package ui renders terminal progress for long story runs.
package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Neperienx/TTS-local/internal/story"
)

// ProgressMsg forwards a pipeline event into the UI. Send it with
// Program.Send from the pipeline's progress callback.
type ProgressMsg story.Event

// DoneMsg reports the end of the run, successful or not.
type DoneMsg struct {
	Err error
}

const maxBarWidth = 60

var (
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF00"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000"))
	faintStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	titleStyle  = lipgloss.NewStyle().Bold(true)
	cancelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF8800"))
)

type storyModel struct {
	title  string
	pages  int
	out    string
	cancel func()

	spinner spinner.Model
	bar     progress.Model
	start   time.Time

	synthDone  int
	segDone    int
	concatDone bool

	cancelling bool
	done       bool
	err        error
}

// NewStoryProgram builds the progress UI for one story run. cancel is
// invoked when the user aborts; the run must answer by sending DoneMsg.
func NewStoryProgram(title string, pages int, out string, cancel func()) *tea.Program {
	return tea.NewProgram(newStoryModel(title, pages, out, cancel))
}

func newStoryModel(title string, pages int, out string, cancel func()) storyModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	bar := progress.New(progress.WithDefaultGradient())
	bar.Width = maxBarWidth

	return storyModel{
		title:   title,
		pages:   pages,
		out:     out,
		cancel:  cancel,
		spinner: sp,
		bar:     bar,
		start:   time.Now(),
	}
}

func (m storyModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m storyModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			if !m.cancelling && m.cancel != nil {
				m.cancel()
			}
			m.cancelling = true
			return m, nil
		}

	case tea.WindowSizeMsg:
		w := msg.Width - 4
		if w > maxBarWidth {
			w = maxBarWidth
		}
		if w > 0 {
			m.bar.Width = w
		}
		return m, nil

	case ProgressMsg:
		switch story.Event(msg).Stage {
		case story.StageSynthesize:
			m.synthDone++
		case story.StageSegment:
			m.segDone++
		case story.StageConcat:
			m.concatDone = true
		}
		return m, nil

	case DoneMsg:
		m.done = true
		m.err = msg.Err
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m storyModel) View() string {
	if m.done {
		if m.err != nil {
			return errStyle.Render("✗") + " " + m.err.Error() + "\n"
		}
		return okStyle.Render("✓") + " Story video written to " + m.out + "\n"
	}

	var b strings.Builder
	b.WriteString("\n  ")
	b.WriteString(m.spinner.View())
	b.WriteString(m.statusLine())
	b.WriteString("\n\n  ")
	b.WriteString(m.bar.ViewAs(m.percent()))
	b.WriteString("\n\n  ")
	b.WriteString(faintStyle.Render("press q to cancel"))
	b.WriteString("\n")
	return b.String()
}

func (m storyModel) statusLine() string {
	if m.cancelling {
		return cancelStyle.Render("Cancelling…")
	}

	elapsed := faintStyle.Render(fmt.Sprintf(" (%s)", time.Since(m.start).Round(time.Second)))

	var status string
	switch {
	case m.concatDone:
		status = "Finishing up"
	case m.synthDone >= m.pages:
		status = fmt.Sprintf("Encoding segments: %d/%d", m.segDone, m.pages)
	default:
		status = fmt.Sprintf("Narrating %s: %d/%d pages",
			titleStyle.Render(m.title), m.synthDone, m.pages)
	}
	return status + elapsed
}

// percent spreads run progress over every synthesis and encode step
// plus the final join.
func (m storyModel) percent() float64 {
	total := float64(2*m.pages + 1)
	if total <= 0 {
		return 0
	}
	steps := float64(m.synthDone + m.segDone)
	if m.concatDone {
		steps++
	}
	return steps / total
}
