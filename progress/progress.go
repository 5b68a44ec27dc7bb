// Package progress reports how far along a render is.
package progress

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/golang/glog"
	"golang.org/x/term"
	"golang.org/x/time/rate"
)

// Reporter turns a stream of (cur, total) updates into occasional status
// lines.  Terminals get a single line rewritten in place; anything else gets
// glog lines.
type Reporter struct {
	mu sync.Mutex

	out         io.Writer
	interactive bool
	limiter     *rate.Limiter
	started     time.Time
	printed     bool
}

// New reports at most once per interval, plus the final update.
func New(out io.Writer, interactive bool, interval time.Duration) *Reporter {
	return &Reporter{
		out:         out,
		interactive: interactive,
		limiter:     rate.NewLimiter(rate.Every(interval), 1),
		started:     time.Now(),
	}
}

// ForFile reports to f, rewriting a single line if f is a terminal.
func ForFile(f *os.File, interval time.Duration) *Reporter {
	return New(f, term.IsTerminal(int(f.Fd())), interval)
}

func (r *Reporter) Update(cur, total int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cur < total && !r.limiter.Allow() {
		return
	}

	line := r.format(cur, total)
	if r.interactive {
		fmt.Fprintf(r.out, "\r%s", line)
		r.printed = true
		return
	}
	glog.Infof("Progress: %s", line)
}

func (r *Reporter) format(cur, total int) string {
	percent := 100
	if total > 0 {
		percent = 100 * cur / total
	}
	line := fmt.Sprintf("%d/%d %d%%", cur, total, percent)

	if cur > 0 && cur < total {
		elapsed := time.Since(r.started)
		remaining := time.Duration(float64(elapsed) * float64(total-cur) / float64(cur))
		line += fmt.Sprintf(" (%v left)", remaining.Round(time.Second))
	}
	return line
}

// Done ends the status line.
func (r *Reporter) Done() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.interactive && r.printed {
		fmt.Fprintln(r.out)
		r.printed = false
	}
}
