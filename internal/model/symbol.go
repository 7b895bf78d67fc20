package model

import (
	"fmt"
	"image"
)

// SymbolType discriminates the closed set of symbol variants.
type SymbolType int

const (
	SymbolPoint SymbolType = iota + 1
	SymbolLine
	SymbolArea
	SymbolText
	SymbolCombined
)

// Symbol is one entry of a map's symbol table. Concrete types are
// *PointSymbol, *LineSymbol, *AreaSymbol, *TextSymbol and *CombinedSymbol;
// dispatch sites switch exhaustively on the concrete type.
type Symbol interface {
	Type() SymbolType
	Common() *SymbolCommon
	// Dependencies returns the symbols this symbol renders through
	// (combined symbol parts); used for the symbol use closure.
	Dependencies() []Symbol
	// ContainsColor reports whether the symbol visually uses the color.
	ContainsColor(c *Color) bool
}

// SymbolCommon holds the attributes shared by every symbol variant.
type SymbolCommon struct {
	Name string
	// Number is the dotted symbol identifier major.minor[.aux];
	// unset components are -1.
	Number    [3]int
	Hidden    bool
	Protected bool
	Helper    bool

	// Icon is an optional preview image quantized into the file's
	// 4-bit icon block on export. May be nil.
	Icon image.Image
}

func (s *SymbolCommon) Common() *SymbolCommon { return s }

// NumberString formats the dotted symbol number for messages.
func (s *SymbolCommon) NumberString() string {
	if s.Number[2] >= 0 {
		return fmt.Sprintf("%d.%d.%d", s.Number[0], s.Number[1], s.Number[2])
	}
	if s.Number[1] >= 0 {
		return fmt.Sprintf("%d.%d", s.Number[0], s.Number[1])
	}
	return fmt.Sprintf("%d", s.Number[0])
}

// SetNumberComponent sets one component of the dotted number.
func (s *SymbolCommon) SetNumberComponent(i, value int) {
	s.Number[i] = value
}

// PointSymbol is a symbol stamped at a single coordinate. It consists of
// an optional centered dot (inner radius/color), an optional ring around it
// (outer width/color) and an ordered list of further graphical elements.
type PointSymbol struct {
	SymbolCommon
	Rotatable bool

	InnerColor  *Color
	InnerRadius int // micrometers
	OuterColor  *Color
	OuterWidth  int // micrometers

	Elements []Element
}

// Element is one graphical element of a point symbol: a sub-symbol drawn
// with a private sub-object. Sub-symbols are point, line or area symbols.
type Element struct {
	Symbol Symbol
	Object Object
}

func (s *PointSymbol) Type() SymbolType { return SymbolPoint }

func (s *PointSymbol) Dependencies() []Symbol { return nil }

// IsEmpty reports whether the symbol draws nothing at all.
func (s *PointSymbol) IsEmpty() bool {
	return len(s.Elements) == 0 &&
		(s.InnerRadius <= 0 || s.InnerColor == nil) &&
		(s.OuterWidth <= 0 || s.OuterColor == nil)
}

// IsSymmetrical reports whether rotating the symbol has no visible effect.
func (s *PointSymbol) IsSymmetrical() bool {
	return len(s.Elements) == 0
}

func (s *PointSymbol) AddElement(sym Symbol, obj Object) {
	s.Elements = append(s.Elements, Element{Symbol: sym, Object: obj})
}

func (s *PointSymbol) ContainsColor(c *Color) bool {
	if c == nil {
		return false
	}
	if s.InnerColor == c || s.OuterColor == c {
		return true
	}
	for _, e := range s.Elements {
		if e.Symbol != nil && e.Symbol.ContainsColor(c) {
			return true
		}
	}
	return false
}

// CapStyle is the line end style.
type CapStyle int

const (
	FlatCap CapStyle = iota
	RoundCap
	SquareCap
	PointedCap
)

// JoinStyle is the line corner style.
type JoinStyle int

const (
	BevelJoin JoinStyle = iota
	MiterJoin
	RoundJoin
)

// LineSymbol draws a stroked path, optionally dashed, bordered, and
// decorated with point symbols placed along the path.
type LineSymbol struct {
	SymbolCommon

	LineWidth int // micrometers
	Color     *Color
	Cap       CapStyle
	Join      JoinStyle
	// PointedCapLength is the length of the taper for pointed caps.
	PointedCapLength int

	MinimumLength int

	Dashed             bool
	DashLength         int
	BreakLength        int
	DashesInGroup      int
	InGroupBreakLength int
	HalfOuterDashes    bool
	// SegmentLength and EndLength control mid symbol placement on
	// undashed lines.
	SegmentLength int
	EndLength     int

	HaveBorderLines   bool
	BorderColor       *Color
	BorderWidth       int
	BorderShift       int
	DashedBorder      bool
	BorderDashLength  int
	BorderBreakLength int

	MidSymbol   *PointSymbol
	DashSymbol  *PointSymbol
	StartSymbol *PointSymbol
	EndSymbol   *PointSymbol

	MidSymbolsPerSpot               int
	MidSymbolDistance               int
	MinimumMidSymbolCount           int
	MinimumMidSymbolCountWhenClosed int
	ShowAtLeastOneSymbol            bool
}

func (s *LineSymbol) Type() SymbolType { return SymbolLine }

func (s *LineSymbol) Dependencies() []Symbol { return nil }

// HasBorder reports whether border lines are enabled and visible.
func (s *LineSymbol) HasBorder() bool {
	return s.HaveBorderLines && s.BorderWidth > 0
}

func (s *LineSymbol) ContainsColor(c *Color) bool {
	if c == nil {
		return false
	}
	if s.Color == c || (s.HaveBorderLines && s.BorderColor == c) {
		return true
	}
	for _, p := range []*PointSymbol{s.MidSymbol, s.DashSymbol, s.StartSymbol, s.EndSymbol} {
		if p != nil && p.ContainsColor(c) {
			return true
		}
	}
	return false
}

// FillPatternType discriminates area symbol fill patterns.
type FillPatternType int

const (
	LinePattern FillPatternType = iota
	PointPattern
)

// FillPattern is one hatching or point grid filling an area symbol.
type FillPattern struct {
	Type      FillPatternType
	Angle     float64 // radians
	Rotatable bool

	// LinePattern fields
	LineSpacing int // micrometers, line center to line center
	LineOffset  int
	LineColor   *Color
	LineWidth   int

	// PointPattern fields
	OffsetAlongLine int
	PointDistance   int
	Point           *PointSymbol
}

// AreaSymbol fills closed paths with an optional solid color and an
// ordered list of fill patterns.
type AreaSymbol struct {
	SymbolCommon
	Color       *Color
	MinimumArea int
	Patterns    []FillPattern
}

func (s *AreaSymbol) Type() SymbolType { return SymbolArea }

func (s *AreaSymbol) Dependencies() []Symbol { return nil }

func (s *AreaSymbol) ContainsColor(c *Color) bool {
	if c == nil {
		return false
	}
	if s.Color == c {
		return true
	}
	for i := range s.Patterns {
		p := &s.Patterns[i]
		if p.LineColor == c {
			return true
		}
		if p.Point != nil && p.Point.ContainsColor(c) {
			return true
		}
	}
	return false
}

// FramingMode selects how text framing is drawn.
type FramingMode int

const (
	NoFraming FramingMode = iota
	ShadowFraming
	LineFraming
)

// FontMetrics are the deterministic font metrics used for text geometry.
// All values are in micrometers.
type FontMetrics struct {
	Ascent     int
	Descent    int
	LineHeight int
}

// TextSymbol styles text objects. Horizontal alignment is not part of the
// symbol; it is carried per object.
type TextSymbol struct {
	SymbolCommon

	FontFamily string
	FontSize   int // micrometers (em size)
	Bold       bool
	Italic     bool
	Underline  bool
	Kerning    bool
	Color      *Color

	LineSpacing      float64 // factor of the font's line height
	ParagraphSpacing int     // micrometers
	CharacterSpacing float64 // factor of the em size

	LineBelow         bool
	LineBelowColor    *Color
	LineBelowWidth    int
	LineBelowDistance int

	CustomTabs []int

	Framing              FramingMode
	FramingColor         *Color
	FramingShadowX       int
	FramingShadowY       int
	FramingLineHalfWidth int
}

func (s *TextSymbol) Type() SymbolType { return SymbolText }

func (s *TextSymbol) Dependencies() []Symbol { return nil }

func (s *TextSymbol) ContainsColor(c *Color) bool {
	if c == nil {
		return false
	}
	return s.Color == c ||
		(s.LineBelow && s.LineBelowColor == c) ||
		(s.Framing != NoFraming && s.FramingColor == c)
}

// Metrics returns the font metrics used for text box geometry and line
// spacing conversion. The renderer's font engine is not available here, so
// a fixed proportional model of the em size is used.
func (s *TextSymbol) Metrics() FontMetrics {
	return FontMetrics{
		Ascent:     s.FontSize * 80 / 100,
		Descent:    s.FontSize * 22 / 100,
		LineHeight: s.FontSize * 120 / 100,
	}
}

// CombinedSymbol renders an ordered list of other symbols as one logical
// unit. Parts do not inherit the combined symbol's hidden/protected flags.
type CombinedSymbol struct {
	SymbolCommon
	Parts []Symbol
}

func (s *CombinedSymbol) Type() SymbolType { return SymbolCombined }

func (s *CombinedSymbol) Dependencies() []Symbol { return s.Parts }

func (s *CombinedSymbol) ContainsColor(c *Color) bool {
	for _, p := range s.Parts {
		if p != nil && p.ContainsColor(c) {
			return true
		}
	}
	return false
}
