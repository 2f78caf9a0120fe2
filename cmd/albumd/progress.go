package main

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"
)

// spinner shows an indeterminate progress bar while an operation runs.
// It does nothing when the writer is not a terminal.
type spinner struct {
	w       io.Writer
	enabled bool

	mu   sync.Mutex
	bar  *progressbar.ProgressBar
	quit chan struct{}
	wg   sync.WaitGroup
}

func newSpinner(w io.Writer) *spinner {
	return &spinner{w: w, enabled: isTerminal(w)}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// start shows the spinner with message. A running spinner only changes its
// description.
func (s *spinner) start(message string) {
	if !s.enabled {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.bar != nil {
		s.bar.Describe(message)
		return
	}
	s.bar = progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(s.w),
		progressbar.OptionSetDescription(message),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionThrottle(65*time.Millisecond),
	)
	s.quit = make(chan struct{})
	s.wg.Add(1)
	go s.spin(s.bar, s.quit)
}

func (s *spinner) spin(bar *progressbar.ProgressBar, quit chan struct{}) {
	defer s.wg.Done()
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-quit:
			return
		case <-ticker.C:
			_ = bar.Add(1)
		}
	}
}

// stop clears the spinner.
func (s *spinner) stop() {
	s.mu.Lock()
	bar, quit := s.bar, s.quit
	s.bar, s.quit = nil, nil
	s.mu.Unlock()

	if bar == nil {
		return
	}
	close(quit)
	s.wg.Wait()
	_ = bar.Finish()
}
