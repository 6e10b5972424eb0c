package kingdom

// MaxDesignLayers caps the pattern layer list of a banner design.
const MaxDesignLayers = 6

// BannerLayer is one pattern layer of a kingdom's banner design.
// PatternID is an opaque identifier owned by the presentation layer;
// unknown ids are carried through untouched.
type BannerLayer struct {
	PatternID string
	Color     Color
}

// Design is a kingdom's visual identity: a primary and accent color plus an
// ordered list of pattern layers. Applied to member equipment externally.
type Design struct {
	Primary Color
	Accent  Color
	Layers  []BannerLayer
}

// DefaultDesign returns the plain white design used by new kingdoms.
func DefaultDesign() Design {
	return Design{Primary: ColorWhite, Accent: ColorWhite}
}

// Clone returns a deep copy of the design.
func (d Design) Clone() Design {
	out := Design{Primary: d.Primary, Accent: d.Accent}
	if len(d.Layers) > 0 {
		out.Layers = make([]BannerLayer, len(d.Layers))
		copy(out.Layers, d.Layers)
	}
	return out
}

// Normalize clamps invalid colors to white and trims the layer list to
// MaxDesignLayers. Persistence and wire input pass through here.
func (d Design) Normalize() Design {
	out := d.Clone()
	if !out.Primary.Valid() {
		out.Primary = ColorWhite
	}
	if !out.Accent.Valid() {
		out.Accent = ColorWhite
	}
	if len(out.Layers) > MaxDesignLayers {
		out.Layers = out.Layers[:MaxDesignLayers]
	}
	for i := range out.Layers {
		if !out.Layers[i].Color.Valid() {
			out.Layers[i].Color = out.Accent
		}
	}
	return out
}
