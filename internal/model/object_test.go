package model

import "testing"

// TestRecalculatePartsOpen tests a simple polyline
func TestRecalculatePartsOpen(t *testing.T) {
	o := NewPathObject(nil)
	o.Coords = []MapCoord{{X: 0, Y: 0}, {X: 100, Y: 0}, {X: 200, Y: 100}}
	o.RecalculateParts()

	parts := o.Parts()
	if len(parts) != 1 {
		t.Fatalf("got %d parts, want 1", len(parts))
	}
	if parts[0] != (PathPart{Start: 0, End: 2, Closed: false}) {
		t.Errorf("part = %+v, want open 0..2", parts[0])
	}
}

// TestRecalculatePartsClosed tests close detection and the close flag
func TestRecalculatePartsClosed(t *testing.T) {
	o := NewPathObject(nil)
	o.Coords = []MapCoord{{X: 0, Y: 0}, {X: 100, Y: 0}, {X: 100, Y: 100}, {X: 0, Y: 0}}
	o.RecalculateParts()

	parts := o.Parts()
	if len(parts) != 1 || !parts[0].Closed {
		t.Fatalf("parts = %+v, want one closed part", parts)
	}
	if !o.Coords[3].IsClosePoint() {
		t.Error("final coordinate of a closed part is not flagged")
	}
	if o.Coords[1].IsClosePoint() {
		t.Error("close flag set on an interior coordinate")
	}
}

// TestRecalculatePartsHole tests splitting at hole points
func TestRecalculatePartsHole(t *testing.T) {
	o := NewPathObject(nil)
	o.Coords = []MapCoord{
		{X: 0, Y: 0}, {X: 100, Y: 0}, {X: 100, Y: 100, Flags: HolePoint},
		{X: 20, Y: 20}, {X: 80, Y: 20}, {X: 80, Y: 80},
	}
	o.RecalculateParts()

	parts := o.Parts()
	if len(parts) != 2 {
		t.Fatalf("got %d parts, want 2", len(parts))
	}
	if parts[0] != (PathPart{Start: 0, End: 2}) {
		t.Errorf("first part = %+v, want 0..2", parts[0])
	}
	if parts[1] != (PathPart{Start: 3, End: 5}) {
		t.Errorf("second part = %+v, want 3..5", parts[1])
	}
}

// TestLayoutLines tests the newline layout of anchored text
func TestLayoutLines(t *testing.T) {
	sym := &TextSymbol{FontSize: 1000, LineSpacing: 1}
	o := NewTextObject(sym)
	o.Text = "ab\ncd"
	o.SetAnchor(MapCoord{X: 5000, Y: 2000})

	lines := o.LayoutLines()
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	// Character advance is approximated as half the em size.
	if lines[0].Width != 1000 {
		t.Errorf("first line width = %d, want 1000", lines[0].Width)
	}
	if lines[0].Y != 2000 {
		t.Errorf("first line Y = %d, want 2000", lines[0].Y)
	}
	if lines[1].Y != 2000+1200 {
		t.Errorf("second line Y = %d, want %d", lines[1].Y, 2000+1200)
	}
	if o.NumLines() != 2 {
		t.Errorf("NumLines = %d, want 2", o.NumLines())
	}
}

// TestLayoutLinesAlignment tests the horizontal anchor shift
func TestLayoutLinesAlignment(t *testing.T) {
	sym := &TextSymbol{FontSize: 1000, LineSpacing: 1}
	o := NewTextObject(sym)
	o.Text = "abcd"
	o.HAlign = AlignRight

	lines := o.LayoutLines()
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1", len(lines))
	}
	if lines[0].X != -2000 {
		t.Errorf("right aligned X = %d, want -2000", lines[0].X)
	}

	o.HAlign = AlignHCenter
	lines = o.LayoutLines()
	if lines[0].X != -1000 {
		t.Errorf("centered X = %d, want -1000", lines[0].X)
	}
}

// TestLayoutLinesBoxWrap tests word wrapping in box mode
func TestLayoutLinesBoxWrap(t *testing.T) {
	sym := &TextSymbol{FontSize: 1000, LineSpacing: 1}
	o := NewTextObject(sym)
	o.Text = "aa bb"
	o.SetBox(1500, 3000)

	lines := o.LayoutLines()
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	if lines[1].Start != 3 {
		t.Errorf("second line starts at rune %d, want 3", lines[1].Start)
	}
}
