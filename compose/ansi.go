package compose

import (
	"fmt"
	"strings"

	"github.com/Barryalien23/monoart/palette"
)

// ESC starts an ANSI escape sequence.
const ESC = "\u001b"

const fullBlock = '█'

// ANSI renders a glyph grid as 24-bit colour ANSI text, one line per row,
// coloured with the palette's background and the row's symbol colour.
// Adjacent glyphs sharing the same codes are emitted under a single
// escape: spaces only need the background and full blocks only the
// foreground. Every line ends with a reset.
func ANSI(text string, pal palette.State) string {
	if text == "" {
		return ""
	}
	lines := Lines(text)
	bg := bgCode(pal.Background)

	var sb strings.Builder
	for row, line := range lines {
		fg := fgCode(pal.RowColor(row, len(lines)))
		var curFg, curBg string
		var run strings.Builder
		flush := func() {
			if run.Len() > 0 {
				sb.WriteString(formatANSICode(curFg, curBg, run.String()))
				run.Reset()
			}
		}
		for _, r := range line {
			f, b := fg, bg
			switch r {
			case ' ':
				f = ""
			case fullBlock:
				b = ""
			}
			if f != curFg || b != curBg {
				flush()
				curFg, curBg = f, b
			}
			run.WriteRune(r)
		}
		flush()
		sb.WriteString(ESC + "[0m\n")
	}
	return sb.String()
}

// formatANSICode prefixes block with one SGR sequence carrying the
// non-empty codes.
func formatANSICode(fg, bg, block string) string {
	var code strings.Builder
	code.WriteString(ESC)
	code.WriteByte('[')
	switch {
	case fg != "" && bg != "":
		code.WriteString(fg)
		code.WriteByte(';')
		code.WriteString(bg)
	case fg != "":
		code.WriteString(fg)
	case bg != "":
		code.WriteString(bg)
	}
	code.WriteByte('m')
	code.WriteString(block)
	return code.String()
}

func fgCode(c palette.Color) string {
	n := c.NRGBA()
	return fmt.Sprintf("38;2;%d;%d;%d", n.R, n.G, n.B)
}

func bgCode(c palette.Color) string {
	n := c.NRGBA()
	return fmt.Sprintf("48;2;%d;%d;%d", n.R, n.G, n.B)
}
