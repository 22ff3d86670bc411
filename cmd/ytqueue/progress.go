package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"

	"ytqueue/internal/events"
)

// progressPrinter renders runner events for queue-run. On a terminal the
// progress line is redrawn in place; otherwise only phase changes and
// every tenth percent are printed.
type progressPrinter struct {
	mu       sync.Mutex
	out      io.Writer
	tty      bool
	lineOpen bool
	lastKey  string
	lastStep int
}

func newProgressPrinter(out io.Writer) *progressPrinter {
	return &progressPrinter{out: out, tty: isTerminal(out), lastStep: -1}
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func (p *progressPrinter) handle(evt events.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch evt.Type {
	case events.QueueProgress:
		key := fmt.Sprintf("%d/%s", evt.Index, evt.Phase)
		line := fmt.Sprintf("[#%d] %-8s %s %5.1f%%", evt.Index, evt.Phase, bar(evt.Progress, 30), evt.Progress)
		if p.tty {
			fmt.Fprintf(p.out, "\r%s", line)
			p.lineOpen = true
			p.lastKey = key
			return
		}
		step := int(evt.Progress) / 10
		if key == p.lastKey && step == p.lastStep {
			return
		}
		p.lastKey, p.lastStep = key, step
		fmt.Fprintln(p.out, line)
	case events.QueueNotify:
		p.closeLine()
		p.lastKey, p.lastStep = "", -1
		if evt.Success {
			fmt.Fprintf(p.out, "[#%d] done\n", evt.Index)
		} else {
			fmt.Fprintf(p.out, "[#%d] failed: %s\n", evt.Index, evt.Error)
		}
	}
}

func (p *progressPrinter) finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closeLine()
}

func (p *progressPrinter) closeLine() {
	if p.lineOpen {
		fmt.Fprintln(p.out)
		p.lineOpen = false
	}
}

func bar(percent float64, width int) string {
	filled := int(percent / 100 * float64(width))
	filled = min(max(filled, 0), width)
	return "[" + strings.Repeat("#", filled) + strings.Repeat(".", width-filled) + "]"
}
