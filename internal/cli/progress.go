package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"

	"github.com/matzehuels/licensecrawl/pkg/deps"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

type (
	recordMsg deps.Record
	tickMsg   time.Time
	doneMsg   struct{}
)

// progressModel is the live status line shown while a scan resolves.
type progressModel struct {
	label    string
	start    time.Time
	frame    int
	total    int
	unknown  int
	degraded int
	last     string
	done     bool
}

func newProgressModel(label string) progressModel {
	return progressModel{label: label, start: time.Now()}
}

func tick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m progressModel) Init() tea.Cmd { return tick() }

func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case recordMsg:
		m.total++
		if msg.License == deps.UnknownLicense {
			m.unknown++
		}
		if msg.Status.Degraded() {
			m.degraded++
		}
		m.last = msg.ID
	case tickMsg:
		m.frame++
		return m, tick()
	case doneMsg:
		m.done = true
		return m, tea.Quit
	}
	return m, nil
}

func (m progressModel) View() string {
	if m.done {
		return ""
	}
	var b strings.Builder
	b.WriteString(styleIconSpinner.Render(spinnerFrames[m.frame%len(spinnerFrames)]))
	b.WriteString(" ")
	b.WriteString(StyleDim.Render(m.label))
	parts := []string{
		StyleNumber.Render(fmt.Sprint(m.total)) + StyleDim.Render(" packages"),
		StyleWarning.Render(fmt.Sprint(m.unknown)) + StyleDim.Render(" unknown"),
	}
	if m.degraded > 0 {
		parts = append(parts, styleIconError.Render(fmt.Sprint(m.degraded))+StyleDim.Render(" failed"))
	}
	parts = append(parts, StyleDim.Render(time.Since(m.start).Round(100*time.Millisecond).String()))
	b.WriteString(StyleDim.Render(" · "))
	b.WriteString(strings.Join(parts, StyleDim.Render(" · ")))
	if m.last != "" {
		b.WriteString("  ")
		b.WriteString(StyleDim.Render(m.last))
	}
	b.WriteString("\n")
	return b.String()
}

// scanProgress drives a progressModel from resolver callbacks. It is a
// no-op unless w is a terminal.
type scanProgress struct {
	prog *tea.Program
	wg   sync.WaitGroup
}

func newScanProgress(w io.Writer, label string) *scanProgress {
	sp := &scanProgress{}
	if f, ok := w.(*os.File); !ok || !isatty.IsTerminal(f.Fd()) {
		return sp
	}
	sp.prog = tea.NewProgram(newProgressModel(label),
		tea.WithOutput(w),
		tea.WithInput(nil),
		tea.WithoutSignalHandler(),
	)
	sp.wg.Add(1)
	go func() {
		defer sp.wg.Done()
		_, _ = sp.prog.Run()
	}()
	return sp
}

// record is safe to call from resolver workers.
func (sp *scanProgress) record(rec deps.Record) {
	if sp.prog != nil {
		sp.prog.Send(recordMsg(rec))
	}
}

// stop clears the status line and waits for the program to exit.
func (sp *scanProgress) stop() {
	if sp.prog == nil {
		return
	}
	sp.prog.Send(doneMsg{})
	sp.wg.Wait()
}
