package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"minikern/app"
	"minikern/kernel"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#5B8DEF"))
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF6B6B")).
			Padding(0, 1)
	cellStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#AAAAAA")).
			Padding(0, 1)
	currentStyle = cellStyle.
			Foreground(lipgloss.Color("#7CD67C"))
	zombieStyle = cellStyle.
			Foreground(lipgloss.Color("#888888")).
			Italic(true)
)

var columns = []string{"SLOT", "PID", "PPID", "NAME", "STATE", "CNT", "PRI", "UTIME", "STIME", "SIGNALS"}

// render formats the snapshot as a bordered table with a summary line.
func render(st app.Status) string {
	rows := make([][]string, 0, len(st.Procs))
	for _, pi := range st.Procs {
		rows = append(rows, row(pi))
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("#444444"))).
		Headers(columns...).
		Rows(rows...).
		StyleFunc(func(r, _ int) lipgloss.Style {
			if r == table.HeaderRow {
				return headerStyle
			}
			if r < 0 || r >= len(st.Procs) {
				return cellStyle
			}
			switch pi := st.Procs[r]; {
			case pi.Current:
				return currentStyle
			case pi.State == kernel.StateZombie:
				return zombieStyle
			}
			return cellStyle
		})

	title := titleStyle.Render(fmt.Sprintf("jiffies %d · switches %d · %s · timers %d · pages %d/%d free",
		st.Jiffies, st.Switches, st.Policy, st.Timers, st.FreePages, st.TotalPages))
	return lipgloss.JoinVertical(lipgloss.Left, title, t.Render())
}

func row(pi kernel.ProcInfo) []string {
	sigs := make([]string, 0, 2)
	for _, s := range pi.Signal.Signals() {
		sigs = append(sigs, strings.TrimPrefix(s.String(), "SIG"))
	}
	return []string{
		strconv.Itoa(pi.Slot),
		strconv.Itoa(pi.PID),
		strconv.Itoa(pi.PPID),
		pi.Name,
		pi.State.String(),
		strconv.Itoa(pi.Counter),
		strconv.Itoa(pi.Priority),
		strconv.FormatUint(pi.Utime, 10),
		strconv.FormatUint(pi.Stime, 10),
		strings.Join(sigs, ","),
	}
}
