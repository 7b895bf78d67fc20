package model

// Template is a background image or map referenced by path, positioned on
// the map with an affine placement.
type Template struct {
	Path string

	// Placement: offset of the template center in micrometers, per-axis
	// scale and rotation in radians counterclockwise.
	OffsetX, OffsetY int64
	ScaleX, ScaleY   float64
	Rotation         float64

	// Dimming and Transparency are carried through unchanged; their
	// rendering semantics are not interpreted here.
	Dimming      int
	Transparency int
}

// NewTemplate creates a template with identity placement.
func NewTemplate(path string) *Template {
	return &Template{Path: path, ScaleX: 1, ScaleY: 1}
}
