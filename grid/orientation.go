package grid

import (
	"fmt"
	"strings"
)

// Orientation is the layout class of a source frame. Grids follow the
// class, not the literal source aspect. The zero value Auto means the
// frame source gave no nominal orientation.
type Orientation int

const (
	Auto Orientation = iota
	Portrait
	Landscape
)

// Aspect returns the target width/height ratio: 9:16 or 16:9.
func (o Orientation) Aspect() float64 {
	if o == Landscape {
		return 16.0 / 9.0
	}
	return 9.0 / 16.0
}

func (o Orientation) String() string {
	switch o {
	case Portrait:
		return "portrait"
	case Landscape:
		return "landscape"
	default:
		return "auto"
	}
}

// Resolve returns o, or the class of a width x height frame when o is Auto.
func (o Orientation) Resolve(width, height int) Orientation {
	if o == Portrait || o == Landscape {
		return o
	}
	return OrientationOf(width, height)
}

// OrientationOf classifies a frame size. Square frames are landscape.
func OrientationOf(width, height int) Orientation {
	if width >= height {
		return Landscape
	}
	return Portrait
}

// ParseOrientation accepts "auto", "portrait" or "landscape".
func ParseOrientation(s string) (Orientation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return Auto, nil
	case "portrait":
		return Portrait, nil
	case "landscape":
		return Landscape, nil
	}
	return Auto, fmt.Errorf("unknown orientation %q", s)
}
