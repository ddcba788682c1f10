package app

import (
	"bytes"
	"fmt"
	"image/color"
	"strings"

	"tinygo.org/x/tinyfont"
	"tinygo.org/x/tinyfont/proggy"
	"tinygo.org/x/tinyterm"

	"minikern/kernel"
)

const (
	fontHeight = 10
	fontOffset = 6

	// maxNotes is how many recent warnings stay on screen.
	maxNotes = 4
)

var (
	consoleFont = &proggy.TinySZ8pt7b
	consoleBG   = color.RGBA{A: 255}
)

// console is the text screen: a process table redrawn every status period
// with the most recent warnings below it.
type console struct {
	scr  *screen
	term *tinyterm.Terminal
	rows int
	cols int

	notes []string
}

func newConsole(scr *screen) *console {
	if scr == nil {
		return nil
	}
	_, w := tinyfont.LineWidth(consoleFont, "0")
	if w == 0 {
		w = 6
	}
	x, y := scr.Size()
	return &console{
		scr:  scr,
		rows: int(y) / fontHeight,
		cols: int(x) / int(w),
	}
}

// Write keeps each line of p as a note. It is the sink of the console log
// core.
func (c *console) Write(p []byte) (int, error) {
	for _, line := range bytes.Split(bytes.TrimRight(p, "\n"), []byte{'\n'}) {
		c.note(string(line))
	}
	return len(p), nil
}

func (c *console) Sync() error { return nil }

func (c *console) note(line string) {
	c.notes = append(c.notes, line)
	if len(c.notes) > maxNotes {
		c.notes = c.notes[len(c.notes)-maxNotes:]
	}
}

// render redraws the whole screen from st.
func (c *console) render(st Status) {
	c.scr.clear(consoleBG)
	c.term = tinyterm.NewTerminal(c.scr)
	c.term.Configure(&tinyterm.Config{
		Font:       consoleFont,
		FontHeight: fontHeight,
		FontOffset: fontOffset,
	})

	lines := statusLines(st, c.cols)
	budget := c.rows - 1
	notes := c.notes
	if len(notes) > 0 {
		budget -= len(notes) + 1
	}
	if budget < 2 {
		budget = 2
		notes = nil
	}
	if len(lines) > budget {
		lines = lines[:budget]
	}
	for _, l := range lines {
		fmt.Fprint(c.term, l+"\n")
	}
	if len(notes) > 0 {
		fmt.Fprint(c.term, "\n")
		for _, n := range notes {
			fmt.Fprint(c.term, "\x1b[31m"+clip(n, c.cols)+"\x1b[0m\n")
		}
	}
	_ = c.scr.Display()
}

// statusLines formats st as a fixed width table. The running process is
// green and the operator selection is yellow.
func statusLines(st Status, cols int) []string {
	lines := []string{
		clip(fmt.Sprintf("jiffies %d  sw %d  %s  mem %d/%d",
			st.Jiffies, st.Switches, st.Policy, st.FreePages, st.TotalPages), cols),
		clip(fmt.Sprintf("%-5s%-5s%-3s%-4s%-4s%-7s%s", "PID", "PPID", "S", "CNT", "PRI", "TIME", "NAME"), cols),
	}
	for _, pi := range st.Procs {
		mark := " "
		if pi.PID == st.Selected {
			mark = ">"
		}
		row := clip(fmt.Sprintf("%s%-4d%-5d%-3s%-4d%-4d%-7d%s",
			mark, pi.PID, pi.PPID, stateCode(pi.State), pi.Counter, pi.Priority, pi.Utime+pi.Stime, pi.Name), cols)
		switch {
		case pi.PID == st.Selected:
			row = "\x1b[33m" + row + "\x1b[0m"
		case pi.Current:
			row = "\x1b[32m" + row + "\x1b[0m"
		}
		lines = append(lines, row)
	}
	return lines
}

func clip(s string, cols int) string {
	if cols <= 0 || len(s) <= cols {
		return s
	}
	return strings.TrimRight(s[:cols], " ")
}

// stateCode is the one letter ps(1) label of s.
func stateCode(s kernel.State) string {
	switch s {
	case kernel.StateRunning, kernel.StateRunnable:
		return "R"
	case kernel.StateInterruptible:
		return "S"
	case kernel.StateUninterruptible:
		return "D"
	case kernel.StateZombie:
		return "Z"
	case kernel.StateStopped:
		return "T"
	}
	return "?"
}
