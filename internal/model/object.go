package model

import "strings"

// ObjectType discriminates the closed set of object variants.
type ObjectType int

const (
	ObjectPoint ObjectType = iota
	ObjectPath
	ObjectText
)

// Object is one drawn feature on the map. Concrete types are *PointObject,
// *PathObject and *TextObject.
type Object interface {
	Type() ObjectType
	Common() *ObjectCommon
}

// ObjectCommon holds the attributes shared by every object variant.
type ObjectCommon struct {
	Sym    Symbol
	Coords []MapCoord
}

func (o *ObjectCommon) Common() *ObjectCommon { return o }

// PointObject is a single symbol stamp with an optional rotation.
type PointObject struct {
	ObjectCommon
	// Rotation in radians counterclockwise; meaningful only when the
	// symbol is rotatable.
	Rotation float64
}

func (o *PointObject) Type() ObjectType { return ObjectPoint }

func NewPointObject(sym Symbol) *PointObject {
	p := &PointObject{}
	p.Sym = sym
	p.Coords = make([]MapCoord, 1)
	return p
}

// Position returns the stamp coordinate.
func (o *PointObject) Position() MapCoord { return o.Coords[0] }

func (o *PointObject) SetPosition(c MapCoord) { o.Coords[0] = c }

// PathPart describes one sub-path of a path object as an index range into
// the object's coordinate slice.
type PathPart struct {
	Start, End int // inclusive indexes of the first and last coordinate
	Closed     bool
}

// PathObject is a polyline or polygon, possibly with bezier segments and
// multiple sub-paths (holes).
type PathObject struct {
	ObjectCommon
	// PatternRotation rotates the fill pattern of rotatable area symbols,
	// radians counterclockwise.
	PatternRotation float64

	parts []PathPart
}

func (o *PathObject) Type() ObjectType { return ObjectPath }

func NewPathObject(sym Symbol) *PathObject {
	p := &PathObject{}
	p.Sym = sym
	return p
}

func (o *PathObject) AppendCoord(c MapCoord) {
	o.Coords = append(o.Coords, c)
}

// Parts returns the sub-path ranges computed by the last RecalculateParts.
func (o *PathObject) Parts() []PathPart { return o.parts }

// RecalculateParts splits the coordinate sequence at hole points and marks
// each sub-path closed when its last position equals its first. Closed
// sub-paths get the close flag on their final point; the flag is cleared
// everywhere else.
func (o *PathObject) RecalculateParts() {
	o.parts = o.parts[:0]
	start := 0
	for i := range o.Coords {
		o.Coords[i].SetClosePoint(false)
		last := i == len(o.Coords)-1
		if o.Coords[i].IsHolePoint() || last {
			closed := i > start && o.Coords[i].PositionEqualTo(o.Coords[start])
			if closed {
				o.Coords[i].SetClosePoint(true)
			}
			o.parts = append(o.parts, PathPart{Start: start, End: i, Closed: closed})
			start = i + 1
		}
	}
}

// HorizontalAlignment positions text relative to its anchor or box.
type HorizontalAlignment int

const (
	AlignLeft HorizontalAlignment = iota
	AlignHCenter
	AlignRight
)

// VerticalAlignment positions text relative to its anchor or box.
type VerticalAlignment int

const (
	AlignBaseline VerticalAlignment = iota
	AlignTop
	AlignVCenter
	AlignBottom
)

// TextObject is a piece of text either anchored at a single coordinate or
// flowed into a word-wrap box. The anchor is Coords[0].
type TextObject struct {
	ObjectCommon
	Text     string
	HAlign   HorizontalAlignment
	VAlign   VerticalAlignment
	Rotation float64 // radians counterclockwise

	// HasBox selects box mode; the box is centered on the anchor.
	HasBox    bool
	BoxWidth  int // micrometers
	BoxHeight int // micrometers
}

func (o *TextObject) Type() ObjectType { return ObjectText }

func NewTextObject(sym Symbol) *TextObject {
	t := &TextObject{}
	t.Sym = sym
	t.Coords = make([]MapCoord, 1)
	return t
}

// Anchor returns the anchor coordinate.
func (o *TextObject) Anchor() MapCoord { return o.Coords[0] }

func (o *TextObject) SetAnchor(c MapCoord) { o.Coords[0] = c }

// SetBox switches the object to box mode with the given size, keeping the
// anchor at the box center.
func (o *TextObject) SetBox(width, height int) {
	o.HasBox = true
	o.BoxWidth = width
	o.BoxHeight = height
}

// LineInfo is the layout of one rendered text line: the source rune range
// and the line's anchor position.
type LineInfo struct {
	Start, End int // rune indexes into Text, End exclusive
	X, Y       int // micrometers, baseline anchor of the line
	Width      int // micrometers
}

// LayoutLines computes a deterministic line layout for the object using the
// symbol's font metrics. Without a font engine, character advance is
// approximated as half the em size. Box mode wraps at the box width and
// breaks overlong words; anchor mode only breaks at newlines.
func (o *TextObject) LayoutLines() []LineInfo {
	sym, ok := o.Sym.(*TextSymbol)
	if !ok || sym.FontSize <= 0 {
		return nil
	}
	metrics := sym.Metrics()
	advance := sym.FontSize / 2
	lineHeight := int(float64(metrics.LineHeight) * sym.LineSpacing)
	if lineHeight <= 0 {
		lineHeight = metrics.LineHeight
	}

	runes := []rune(o.Text)
	var lines []LineInfo
	lineStart := 0
	lineWidth := 0
	flush := func(end int) {
		lines = append(lines, LineInfo{Start: lineStart, End: end, Width: lineWidth})
		lineStart = end
		lineWidth = 0
	}
	for i := 0; i < len(runes); i++ {
		if runes[i] == '\n' {
			flush(i)
			lineStart = i + 1
			continue
		}
		w := advance
		if o.HasBox && lineWidth+w > o.BoxWidth && i > lineStart {
			// Wrap before this rune, preferring the last space.
			break_ := i
			for j := i - 1; j > lineStart; j-- {
				if runes[j] == ' ' {
					break_ = j + 1
					break
				}
			}
			lineWidth = (break_ - lineStart) * advance
			flush(break_)
			i = break_ - 1
			continue
		}
		lineWidth += w
	}
	if lineStart <= len(runes) {
		flush(len(runes))
	}

	anchor := o.Anchor()
	for i := range lines {
		y := int(anchor.Y) + i*lineHeight
		x := int(anchor.X)
		switch o.HAlign {
		case AlignHCenter:
			x -= lines[i].Width / 2
		case AlignRight:
			x -= lines[i].Width
		}
		lines[i].X = x
		lines[i].Y = y
	}
	return lines
}

// NumLines returns the number of layout lines, at least 1 for non-empty
// text and 1 for empty text as well.
func (o *TextObject) NumLines() int {
	n := strings.Count(o.Text, "\n") + 1
	if lines := o.LayoutLines(); len(lines) > n {
		n = len(lines)
	}
	return n
}
