package ui

import (
	"fmt"
	"io"
	"sync"
	"time"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// spinner animates a loading line. Writes share the display mutex.
type spinner struct {
	out   io.Writer
	color bool
	outMu *sync.Mutex

	mu      sync.Mutex
	stop    chan struct{}
	stopped chan struct{}
}

func newSpinner(out io.Writer, color bool, outMu *sync.Mutex) *spinner {
	return &spinner{out: out, color: color, outMu: outMu}
}

// Start shows the spinner; a running one is replaced
func (s *spinner) Start(msg string) {
	s.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.stop = make(chan struct{})
	s.stopped = make(chan struct{})

	if !s.color {
		s.outMu.Lock()
		fmt.Fprintf(s.out, "%s...\n", msg)
		s.outMu.Unlock()
		close(s.stopped)
		return
	}

	go s.run(msg, s.stop, s.stopped)
}

func (s *spinner) run(msg string, stop <-chan struct{}, stopped chan<- struct{}) {
	defer close(stopped)
	ticker := time.NewTicker(80 * time.Millisecond)
	defer ticker.Stop()

	for i := 0; ; i = (i + 1) % len(spinnerFrames) {
		s.outMu.Lock()
		fmt.Fprintf(s.out, "\r%s%s %s%s", colorCyan, spinnerFrames[i], msg, colorReset)
		s.outMu.Unlock()

		select {
		case <-stop:
			s.outMu.Lock()
			fmt.Fprint(s.out, "\r\033[2K\r")
			s.outMu.Unlock()
			return
		case <-ticker.C:
		}
	}
}

// Stop hides the spinner and waits for it to clear its line
func (s *spinner) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop == nil {
		return
	}
	close(s.stop)
	<-s.stopped
	s.stop = nil
}
