// Package progress draws single-line progress bars on a terminal.
//
// Writer tracks bytes (the package index download) and Counter tracks
// completed units (candidates scored). Both redraw at most ten times per
// second and stay silent when the output isn't a terminal.
package progress

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/term"
)

// IsTerminalFunc is the function used to check if a file descriptor is a terminal.
// It can be overridden for testing.
var IsTerminalFunc = term.IsTerminal

// redrawInterval caps updates at ten per second to avoid flicker.
const redrawInterval = 100 * time.Millisecond

const (
	barWidth  = 30
	lineWidth = 80
)

// Writer counts bytes written through it and displays download progress.
type Writer struct {
	output    io.Writer
	total     int64
	written   int64
	startTime time.Time
	lastPrint time.Time
	mu        sync.Mutex
}

// NewWriter creates a progress writer reporting to output.
// If total is <= 0, no percentage or ETA can be calculated.
func NewWriter(total int64, output io.Writer) *Writer {
	return &Writer{
		output:    output,
		total:     total,
		startTime: time.Now(),
	}
}

// Write implements io.Writer. It never fails, so it can sit behind an
// io.TeeReader.
func (pw *Writer) Write(p []byte) (int, error) {
	pw.mu.Lock()
	defer pw.mu.Unlock()
	pw.written += int64(len(p))

	now := time.Now()
	if now.Sub(pw.lastPrint) < redrawInterval || now.Sub(pw.startTime) < redrawInterval {
		return len(p), nil
	}
	pw.lastPrint = now

	elapsed := now.Sub(pw.startTime).Seconds()
	speed := float64(pw.written) / elapsed

	var line string
	if pw.total > 0 {
		line = fmt.Sprintf("   %s (%s/%s) %s/s ETA: %s",
			bar(pw.written, pw.total),
			humanize.IBytes(uint64(pw.written)),
			humanize.IBytes(uint64(pw.total)),
			humanize.IBytes(uint64(speed)),
			eta(pw.total-pw.written, speed))
	} else {
		line = fmt.Sprintf("   Downloaded: %s (%s/s)",
			humanize.IBytes(uint64(pw.written)),
			humanize.IBytes(uint64(speed)))
	}
	redraw(pw.output, line)
	return len(p), nil
}

// Finish clears the progress line.
func (pw *Writer) Finish() {
	pw.mu.Lock()
	defer pw.mu.Unlock()
	clearLine(pw.output)
}

// Counter displays how many of a known number of units have completed.
type Counter struct {
	output    io.Writer
	label     string
	total     int
	done      int
	startTime time.Time
	lastPrint time.Time
	now       func() time.Time
	mu        sync.Mutex
}

// NewCounter creates a counter for total units reporting to output.
func NewCounter(label string, total int, output io.Writer) *Counter {
	c := &Counter{
		output: output,
		label:  label,
		total:  total,
		now:    time.Now,
	}
	c.startTime = c.now()
	return c
}

// Update records that done units have completed. done never moves backwards.
func (c *Counter) Update(done, total int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if done < c.done {
		return
	}
	c.done = done
	if total > 0 {
		c.total = total
	}

	now := c.now()
	if now.Sub(c.lastPrint) < redrawInterval && done < c.total {
		return
	}
	c.lastPrint = now
	redraw(c.output, c.line(now))
}

// Done returns the completed count.
func (c *Counter) Done() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done
}

// Finish clears the progress line.
func (c *Counter) Finish() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clearLine(c.output)
}

func (c *Counter) line(now time.Time) string {
	elapsed := now.Sub(c.startTime).Seconds()
	var rate float64
	if elapsed > 0 {
		rate = float64(c.done) / elapsed
	}
	return fmt.Sprintf("   %s %s (%s/%s) %.0f/s ETA: %s",
		c.label,
		bar(int64(c.done), int64(c.total)),
		humanize.Comma(int64(c.done)),
		humanize.Comma(int64(c.total)),
		rate,
		eta(int64(c.total-c.done), rate))
}

// bar renders "[=====>    ]  42%".
func bar(done, total int64) string {
	var percent float64
	if total > 0 {
		percent = float64(done) / float64(total) * 100
	}
	if percent > 100 {
		percent = 100
	}
	filled := int(percent / 100 * barWidth)
	b := strings.Repeat("=", filled)
	if filled < barWidth {
		b += ">" + strings.Repeat(" ", barWidth-filled-1)
	}
	return fmt.Sprintf("[%s] %3.0f%%", b, percent)
}

func eta(remaining int64, rate float64) string {
	if rate <= 0 {
		return "--:--"
	}
	return formatDuration(float64(remaining) / rate)
}

// formatDuration formats seconds into MM:SS or HH:MM:SS format
func formatDuration(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	s := int(seconds)
	if s >= 3600 {
		return fmt.Sprintf("%d:%02d:%02d", s/3600, (s%3600)/60, s%60)
	}
	return fmt.Sprintf("%d:%02d", s/60, s%60)
}

// redraw overwrites the current line, padding to clear leftovers.
func redraw(w io.Writer, line string) {
	if len(line) < lineWidth {
		line += strings.Repeat(" ", lineWidth-len(line))
	}
	_, _ = fmt.Fprint(w, "\r"+line)
}

func clearLine(w io.Writer) {
	_, _ = fmt.Fprintf(w, "\r%s\r", strings.Repeat(" ", lineWidth))
}

// ShouldShowProgress returns true if progress should be displayed.
// Progress goes to stderr, so it is shown when stderr is a terminal.
func ShouldShowProgress() bool {
	return IsTerminalFunc(int(os.Stderr.Fd()))
}
