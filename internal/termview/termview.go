// Package termview draws glyph grids on a terminal screen.
package termview

import (
	"context"
	"sync"

	"github.com/gdamore/tcell/v2"
	"golang.org/x/text/width"

	"github.com/Barryalien23/monoart/compose"
	"github.com/Barryalien23/monoart/palette"
)

// View presents frames on a tcell screen. Draw is safe to call from any
// goroutine.
type View struct {
	mu     sync.Mutex
	screen tcell.Screen
}

// Open initialises the controlling terminal.
func Open() (*View, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, err
	}
	if err := screen.Init(); err != nil {
		return nil, err
	}
	return New(screen), nil
}

// New wraps an initialised screen.
func New(screen tcell.Screen) *View {
	return &View{screen: screen}
}

// Size returns the screen size in cells.
func (v *View) Size() (w, h int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.screen.Size()
}

// Color converts a palette colour to a 24-bit terminal colour.
func Color(c palette.Color) tcell.Color {
	n := c.NRGBA()
	return tcell.NewRGBColor(int32(n.R), int32(n.G), int32(n.B))
}

// RuneWidth returns how many terminal cells r occupies.
func RuneWidth(r rune) int {
	switch width.LookupRune(r).Kind() {
	case width.EastAsianWide, width.EastAsianFullwidth:
		return 2
	}
	return 1
}

// Draw clears the screen to the palette background and draws text centred,
// clipping rows and columns that do not fit. Each row takes its own symbol
// colour so gradients run top to bottom.
func (v *View) Draw(text string, pal palette.State) {
	v.mu.Lock()
	defer v.mu.Unlock()

	bg := Color(pal.Background)
	v.screen.Fill(' ', tcell.StyleDefault.Background(bg))

	lines := compose.Lines(text)
	if text == "" {
		lines = nil
	}
	sw, sh := v.screen.Size()
	top := max(0, (sh-len(lines))/2)
	for row, line := range lines {
		y := top + row
		if y >= sh {
			break
		}
		style := tcell.StyleDefault.Background(bg).Foreground(Color(pal.RowColor(row, len(lines))))
		x := max(0, (sw-lineWidth(line))/2)
		for _, r := range line {
			if x >= sw {
				break
			}
			v.screen.SetContent(x, y, r, nil, style)
			x += RuneWidth(r)
		}
	}
	v.screen.Show()
}

func lineWidth(line string) int {
	n := 0
	for _, r := range line {
		n += RuneWidth(r)
	}
	return n
}

// Quit returns a channel closed when the user presses Esc, q or Ctrl-C, or
// when ctx ends. Resize events resynchronise the screen.
func (v *View) Quit(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	events := make(chan tcell.Event, 16)
	go func() {
		for {
			ev := v.screen.PollEvent()
			if ev == nil {
				close(events)
				return
			}
			events <- ev
		}
	}()
	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-events:
				if !ok {
					return
				}
				switch ev := ev.(type) {
				case *tcell.EventKey:
					if isQuit(ev) {
						return
					}
				case *tcell.EventResize:
					v.mu.Lock()
					v.screen.Sync()
					v.mu.Unlock()
				}
			}
		}
	}()
	return done
}

func isQuit(ev *tcell.EventKey) bool {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return true
	case tcell.KeyRune:
		return ev.Rune() == 'q'
	}
	return false
}

// Close restores the terminal.
func (v *View) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.screen.Fini()
}
