// Package layout converts absolute component geometry into the percentage based
// style used for responsive rendering.
package layout

import (
	"errors"
	"fmt"
	"math"
)

// Style is an opaque style mapping. Keys outside the four geometry keys are
// passed through untouched.
type Style map[string]any

// Box is an absolute rectangle in client units.
type Box struct {
	Left   int
	Top    int
	Width  int
	Height int
}

// Mode selects the parent dimension offsets are divided by.
type Mode int

const (
	// OffsetsRelativeToSize divides left by the parent width and top by the
	// parent height.
	OffsetsRelativeToSize Mode = iota
	// OffsetsRelativeToOffset divides left by the parent left and top by the
	// parent top. Kept for clients built against the first API release.
	OffsetsRelativeToOffset
)

const (
	sizeSnapAbove   = 98
	offsetSnapBelow = 1
)

var (
	// ErrBrokenReference means a component names a parent that does not
	// resolve to exactly one component on the same page.
	ErrBrokenReference = errors.New("broken parent reference")
	// ErrDegenerateParent means a parent dimension used as a divisor is not positive.
	ErrDegenerateParent = errors.New("degenerate parent geometry")
)

// Normalizer derives styles. The zero value uses OffsetsRelativeToSize.
type Normalizer struct {
	Mode Mode
}

// DeriveStyle returns a new style made of the opaque style plus the derived
// width, height and, for child components, left and top. The input style is
// never modified.
func (n Normalizer) DeriveStyle(style Style, box Box, parent *Box) (Style, error) {
	out := make(Style, len(style)+4)
	for key, value := range style {
		out[key] = value
	}

	if parent == nil {
		out["width"] = "100%"
		out["height"] = "100%"
		return out, nil
	}

	leftBase, topBase := parent.Width, parent.Height
	if n.Mode == OffsetsRelativeToOffset {
		leftBase, topBase = parent.Left, parent.Top
	}

	width, err := percent("width", box.Width, parent.Width)
	if err != nil {
		return nil, err
	}
	height, err := percent("height", box.Height, parent.Height)
	if err != nil {
		return nil, err
	}
	left, err := percent("left", box.Left, leftBase)
	if err != nil {
		return nil, err
	}
	top, err := percent("top", box.Top, topBase)
	if err != nil {
		return nil, err
	}

	out["width"] = Percent(snapSize(width))
	out["height"] = Percent(snapSize(height))
	out["left"] = Percent(snapOffset(left))
	out["top"] = Percent(snapOffset(top))
	return out, nil
}

// Percent renders an integer percentage, e.g. "42%".
func Percent(value int) string {
	return fmt.Sprintf("%d%%", value)
}

func percent(field string, value, base int) (int, error) {
	if base <= 0 {
		return 0, fmt.Errorf("%w: parent %s divisor is %d", ErrDegenerateParent, field, base)
	}
	return int(math.RoundToEven(float64(value) / float64(base) * 100)), nil
}

func snapSize(value int) int {
	if value > sizeSnapAbove {
		return 100
	}
	return value
}

func snapOffset(value int) int {
	if value < offsetSnapBelow {
		return 0
	}
	return value
}
