package ui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"yxscraper/pkg/models"
)

const progressBarWidth = 30

var (
	barFilledStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("36"))
	barEmptyStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	okStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	skipStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	failStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	urlStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

type recordMsg models.DownloadRecord

type finishMsg struct{}

// progressModel renders live download progress.
type progressModel struct {
	total     int
	succeeded int
	skipped   int
	failed    int
	lastURL   string
	quitting  bool
}

func (m progressModel) Init() tea.Cmd {
	return nil
}

func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case recordMsg:
		switch msg.Outcome {
		case models.OutcomeSuccess:
			m.succeeded++
		case models.OutcomeSkipped:
			m.skipped++
		case models.OutcomeFailed:
			m.failed++
		}
		m.lastURL = msg.URL
		return m, nil
	case finishMsg:
		m.quitting = true
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.quitting = true
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m progressModel) View() string {
	done := m.succeeded + m.skipped + m.failed

	filled := 0
	if m.total > 0 {
		filled = done * progressBarWidth / m.total
	}
	bar := barFilledStyle.Render(strings.Repeat("█", filled)) +
		barEmptyStyle.Render(strings.Repeat("░", progressBarWidth-filled))

	line := fmt.Sprintf("[%s] %d/%d  %s %d  %s %d  %s %d",
		bar, done, m.total,
		okStyle.Render("ok"), m.succeeded,
		skipStyle.Render("skip"), m.skipped,
		failStyle.Render("fail"), m.failed,
	)

	if m.quitting {
		return line + "\n"
	}

	url := m.lastURL
	if len(url) > 60 {
		url = url[:57] + "..."
	}
	return line + "\n" + urlStyle.Render(url) + "\n"
}

// Progress is a live download progress display. Records are fed in
// from the result-processing goroutine; Finish blocks until the final
// frame has been rendered.
type Progress struct {
	program *tea.Program
	done    chan struct{}
}

// NewProgress starts the progress display for the given batch size.
func NewProgress(total int) *Progress {
	p := &Progress{
		program: tea.NewProgram(progressModel{total: total}),
		done:    make(chan struct{}),
	}
	go func() {
		defer close(p.done)
		_, _ = p.program.Run()
	}()
	return p
}

// Record folds one download record into the display.
func (p *Progress) Record(rec models.DownloadRecord) {
	p.program.Send(recordMsg(rec))
}

// Finish stops the display and waits for it to exit.
func (p *Progress) Finish() {
	p.program.Send(finishMsg{})
	<-p.done
}
