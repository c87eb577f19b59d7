package cli

import (
	"context"
	"io"
	"os"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

const spinnerInterval = 80 * time.Millisecond

type spinnerTick struct{}

type spinnerStop struct{}

// spinnerModel animates one status line.
type spinnerModel struct {
	message string
	frame   int
	stopped bool
}

func spinnerTicker() tea.Cmd {
	return tea.Tick(spinnerInterval, func(time.Time) tea.Msg { return spinnerTick{} })
}

func (m spinnerModel) Init() tea.Cmd { return spinnerTicker() }

func (m spinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg.(type) {
	case spinnerTick:
		m.frame = (m.frame + 1) % len(spinnerFrames)
		return m, spinnerTicker()
	case spinnerStop:
		m.stopped = true
		return m, tea.Quit
	}
	return m, nil
}

func (m spinnerModel) View() string {
	if m.stopped {
		return ""
	}
	return styleIconSpinner.Render(spinnerFrames[m.frame]) + " " + StyleDim.Render(m.message)
}

// Spinner shows progress on stderr while a long operation runs. It stops on
// its own when the context is cancelled.
type Spinner struct {
	ctx  context.Context
	prog *tea.Program

	mu      sync.Mutex
	started bool
	stop    sync.Once
	done    chan struct{}
}

func newSpinnerWithContext(ctx context.Context, message string) *Spinner {
	return newSpinnerTo(ctx, os.Stderr, message)
}

func newSpinnerTo(ctx context.Context, w io.Writer, message string) *Spinner {
	return &Spinner{
		ctx: ctx,
		prog: tea.NewProgram(spinnerModel{message: message},
			tea.WithContext(ctx),
			tea.WithOutput(w),
			tea.WithInput(nil),
			tea.WithoutSignalHandler(),
		),
		done: make(chan struct{}),
	}
}

// Start begins the animation.
func (s *Spinner) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true
	go func() {
		defer close(s.done)
		_, _ = s.prog.Run()
	}()
}

// Stop stops the animation and clears the line.
func (s *Spinner) Stop() {
	s.mu.Lock()
	started := s.started
	s.mu.Unlock()
	if !started {
		return
	}
	s.stop.Do(func() { s.prog.Send(spinnerStop{}) })
	<-s.done
}

func (s *Spinner) StopWithSuccess(message string) {
	s.Stop()
	printSuccess("%s", message)
}

func (s *Spinner) StopWithError(message string) {
	s.Stop()
	printError("%s", message)
}

// Cancelled reports whether the spinner's context was cancelled.
func (s *Spinner) Cancelled() bool {
	return s.ctx.Err() != nil
}
