package kingdom

import "strings"

// Color is one of the 16 banner palette colors.
// IDs are stable and cross the wire in border/HUD syncs.
type Color int32

const (
	ColorWhite Color = iota
	ColorOrange
	ColorMagenta
	ColorLightBlue
	ColorYellow
	ColorLime
	ColorPink
	ColorGray
	ColorLightGray
	ColorCyan
	ColorPurple
	ColorBlue
	ColorBrown
	ColorGreen
	ColorRed
	ColorBlack

	colorCount = 16
)

var colorNames = [colorCount]string{
	"white", "orange", "magenta", "light_blue",
	"yellow", "lime", "pink", "gray",
	"light_gray", "cyan", "purple", "blue",
	"brown", "green", "red", "black",
}

// Valid returns true if c is inside the palette.
func (c Color) Valid() bool {
	return c >= 0 && c < colorCount
}

// ID returns the numeric palette id.
func (c Color) ID() int32 { return int32(c) }

// String returns the lowercase palette name, or "white" for out-of-range values.
func (c Color) String() string {
	if !c.Valid() {
		return colorNames[ColorWhite]
	}
	return colorNames[c]
}

// ColorByName resolves a palette name case-insensitively.
// Returns (ColorWhite, false) for unknown names.
func ColorByName(name string) (Color, bool) {
	lower := strings.ToLower(strings.TrimSpace(name))
	for i, n := range colorNames {
		if n == lower {
			return Color(i), true
		}
	}
	return ColorWhite, false
}

// ColorNames returns the palette names in id order.
func ColorNames() []string {
	out := make([]string, colorCount)
	copy(out, colorNames[:])
	return out
}
