package main

import (
	"fmt"
	"io"
	"strings"
	"time"
)

var brailleFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Spinner displays an animated spinner with a message on the current terminal line.
type Spinner struct {
	w       io.Writer
	message string
	start   time.Time
	stop    chan struct{}
	done    chan struct{}
}

// NewSpinner creates and starts a spinner on w.
func NewSpinner(w io.Writer, message string) *Spinner {
	s := &Spinner{
		w:       w,
		message: message,
		start:   time.Now(),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go s.run()
	return s
}

// Stop halts the spinner and clears the line.
func (s *Spinner) Stop() {
	close(s.stop)
	<-s.done
}

func (s *Spinner) run() {
	defer close(s.done)
	tick := time.NewTicker(80 * time.Millisecond)
	defer tick.Stop()

	frame := 0
	for {
		select {
		case <-s.stop:
			fmt.Fprintf(s.w, "\r%s\r", strings.Repeat(" ", 100))
			return
		case <-tick.C:
			fmt.Fprintf(s.w, "\r  %s %s (%.0fs)",
				styleSpinner.Render(brailleFrames[frame]),
				styleDim.Render(s.message),
				time.Since(s.start).Seconds())
			frame = (frame + 1) % len(brailleFrames)
		}
	}
}
