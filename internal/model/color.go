package model

// Color is one entry of a map's ordered color table. Priority is the
// drawing order (0 = topmost) and doubles as the dense table index.
type Color struct {
	Priority   int
	C, M, Y, K float64 // CMYK components as fractions 0.0-1.0
	Opacity    float64
	Name       string

	// Working RGB value derived from CMYK, used for previews only.
	R, G, B float64
}

// UpdateFromCMYK recomputes the working RGB value.
func (c *Color) UpdateFromCMYK() {
	c.R = (1 - c.C) * (1 - c.K)
	c.G = (1 - c.M) * (1 - c.K)
	c.B = (1 - c.Y) * (1 - c.K)
}

// NewColor creates a color at the given priority with fully opaque ink.
func NewColor(priority int) *Color {
	return &Color{Priority: priority, Opacity: 1.0}
}
