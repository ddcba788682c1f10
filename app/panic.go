package app

import (
	"fmt"
	"image/color"
	"strings"
	"unicode/utf8"

	"tinygo.org/x/tinyfont"

	"minikern/hal"
	"minikern/kernel"
)

var (
	panicBG = color.RGBA{R: 0x80, A: 255}
	panicFG = color.RGBA{R: 255, G: 255, B: 255, A: 255}
)

// panicLines is the text of the panic screen.
func panicLines(info kernel.PanicInfo) []string {
	lines := []string{
		"Kernel panic:",
		fmt.Sprintf("%v", info.Value),
		fmt.Sprintf("pid %d  slot %d  jiffies %d", info.PID, info.Slot, info.Jiffies),
	}
	if len(info.Stack) == 0 {
		return append(lines, "stack: unavailable")
	}
	lines = append(lines, "stack:")
	for _, line := range strings.Split(string(info.Stack), "\n") {
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// showPanic dumps info to the log and paints it over the screen. It does
// not return control to the kernel; the machine stops ticking after the
// fault is recovered.
func showPanic(out hal.Logger, scr *screen, info kernel.PanicInfo) {
	lines := panicLines(info)
	if out != nil {
		for _, l := range lines {
			out.WriteLineString(l)
		}
	}
	if scr == nil {
		return
	}

	scr.clear(panicBG)
	_, w := tinyfont.LineWidth(consoleFont, "0")
	fontWidth := int16(w)
	if fontWidth <= 0 {
		_ = scr.Display()
		return
	}
	maxW, maxH := scr.Size()
	cols := maxW / fontWidth
	if cols <= 0 {
		cols = 1
	}

	y := int16(0)
	for _, line := range lines {
		for len(line) > 0 {
			if y+fontHeight > maxH {
				_ = scr.Display()
				return
			}
			chunk, rest := takeRunes(line, cols)
			drawTextLine(scr, fontWidth, 0, y, chunk, panicFG)
			y += fontHeight
			line = strings.TrimLeft(rest, " ")
		}
	}
	_ = scr.Display()
}

func drawTextLine(scr *screen, fontWidth, x0, y0 int16, s string, fg color.RGBA) {
	x := x0
	for _, r := range s {
		tinyfont.DrawChar(scr, consoleFont, x, y0+fontOffset, r, fg)
		x += fontWidth
	}
}

// takeRunes splits s after n runes.
func takeRunes(s string, n int16) (prefix, rest string) {
	if n <= 0 || s == "" {
		return "", s
	}
	i := 0
	for count := int16(0); i < len(s) && count < n; count++ {
		_, size := utf8.DecodeRuneInString(s[i:])
		i += size
	}
	return s[:i], s[i:]
}
