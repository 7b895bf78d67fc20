package ocd

import (
	"encoding/binary"
	"errors"
	"strings"
	"testing"

	"github.com/kjetilk/mapper/internal/model"
)

// TestSniff tests magic detection
func TestSniff(t *testing.T) {
	if !Sniff([]byte{0xAD, 0x0C, 0x00}) {
		t.Error("Sniff rejected the file magic")
	}
	if Sniff([]byte{0x0C, 0xAD}) {
		t.Error("Sniff accepted swapped magic bytes")
	}
	if Sniff([]byte{0xAD}) {
		t.Error("Sniff accepted a single byte")
	}
}

// TestImportBadMagic tests the fatal format error
func TestImportBadMagic(t *testing.T) {
	_, err := NewImporter(nil).Import(make([]byte, headerSize))
	if !errors.Is(err, ErrFormat) {
		t.Errorf("Import error = %v, want ErrFormat", err)
	}
}

// TestImportVersionGate tests that only the supported version band passes
func TestImportVersionGate(t *testing.T) {
	for _, version := range []uint16{0, 5, 9, 12} {
		buf := make([]byte, headerSize)
		binary.LittleEndian.PutUint16(buf[hdrMagic:], magic)
		binary.LittleEndian.PutUint16(buf[hdrVersion:], version)

		_, err := NewImporter(nil).Import(buf)
		var verr *VersionError
		if !errors.As(err, &verr) {
			t.Fatalf("version %d: error = %v, want VersionError", version, err)
		}
		if verr.Version != int(version) {
			t.Errorf("version %d: reported version = %d", version, verr.Version)
		}
	}
}

// buildMinimalFile assembles a file with one color, one line symbol and
// one two-point path object.
func buildMinimalFile() []byte {
	b := &builder{}
	b.appendZeros(headerSize)

	colorPos := b.len()
	b.appendS16(0)
	b.appendU16(0)
	b.appendU16(0)
	b.appendU16(0)
	b.appendU16(200)
	colorName, _ := encodePascalString("Black", 32, defaultByteEncoding)
	b.appendBytes(colorName)

	symPos := b.len()
	rec := &builder{}
	rec.appendU16(uint16(symBaseSize + lineExtraSize))
	rec.appendS16(101)
	rec.appendU8(symTypeLine)
	rec.appendU8(0)
	rec.appendU8(statusProtected)
	rec.appendU8(0)
	rec.appendS16(5)
	rec.appendZeros(symColorsLen)
	symName, _ := encodePascalString("Road", symNameLen, defaultByteEncoding)
	rec.appendBytes(symName)
	rec.appendZeros(symIconLen)
	var f [lineFieldCount]int16
	f[lineFieldWidth] = 100
	for _, v := range f {
		rec.appendS16(v)
	}
	b.appendBytes(rec.buf)

	objPos := b.len()
	orec := &builder{}
	orec.appendS16(101)
	orec.appendU8(objTypePath)
	orec.appendU8(0)
	orec.appendU16(2)
	orec.appendU16(0)
	orec.appendS16(0)
	orec.appendU16(0)
	orec.appendS32(0)
	orec.appendS32(0)
	orec.appendS32(1000 << 8)
	orec.appendS32(1000 << 8)
	b.appendBytes(orec.buf)

	symBlk := b.len()
	b.appendU32(0)
	b.appendU32(uint32(symPos))
	b.appendZeros((indexBlockSlots - 1) * symbolIndexEntrySize)

	objBlk := b.len()
	b.appendU32(0)
	b.appendS32(0)
	b.appendS32(0)
	b.appendS32(1000)
	b.appendS32(1000)
	b.appendU32(uint32(objPos))
	b.appendU16(uint16(len(orec.buf)))
	b.appendS16(101)
	b.appendZeros((indexBlockSlots - 1) * objectIndexEntrySize)

	b.putU16(hdrMagic, magic)
	b.putU16(hdrVersion, 8)
	b.putU32(hdrFirstSymBlk, uint32(symBlk))
	b.putU32(hdrFirstObjBlk, uint32(objBlk))
	b.putU16(hdrNumColors, 1)
	b.putU32(hdrColorPos, uint32(colorPos))
	return b.buf
}

// TestImportMinimalFile tests end to end parsing of a crafted file
func TestImportMinimalFile(t *testing.T) {
	var warnings WarningList
	m, err := NewImporter(&warnings).Import(buildMinimalFile())
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if len(warnings.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", warnings.Warnings)
	}

	if len(m.Colors) != 1 {
		t.Fatalf("got %d colors, want 1", len(m.Colors))
	}
	black := m.Colors[0]
	if black.Name != "Black" {
		t.Errorf("color name = %q, want %q", black.Name, "Black")
	}
	if black.K != 1.0 || black.C != 0 || black.M != 0 || black.Y != 0 {
		t.Errorf("color CMYK = (%v,%v,%v,%v), want (0,0,0,1)", black.C, black.M, black.Y, black.K)
	}

	if len(m.Symbols) != 1 {
		t.Fatalf("got %d symbols, want 1", len(m.Symbols))
	}
	line, ok := m.Symbols[0].(*model.LineSymbol)
	if !ok {
		t.Fatalf("symbol is %T, want *model.LineSymbol", m.Symbols[0])
	}
	if line.Name != "Road" {
		t.Errorf("symbol name = %q, want %q", line.Name, "Road")
	}
	if line.Number != [3]int{10, 1, -1} {
		t.Errorf("symbol number = %v, want [10 1 -1]", line.Number)
	}
	if !line.Protected || line.Hidden {
		t.Errorf("symbol flags protected=%v hidden=%v, want protected only", line.Protected, line.Hidden)
	}
	if line.LineWidth != 1000 {
		t.Errorf("line width = %d, want 1000", line.LineWidth)
	}
	if line.Color != black {
		t.Error("line color is not the imported black")
	}
	if line.Cap != model.FlatCap || line.Join != model.BevelJoin {
		t.Errorf("cap/join = %v/%v, want FlatCap/BevelJoin", line.Cap, line.Join)
	}
	if line.Dashed {
		t.Error("line imported as dashed")
	}

	if m.NumObjects() != 1 {
		t.Fatalf("got %d objects, want 1", m.NumObjects())
	}
	path, ok := m.CurrentLayer().Objects[0].(*model.PathObject)
	if !ok {
		t.Fatalf("object is %T, want *model.PathObject", m.CurrentLayer().Objects[0])
	}
	if path.Sym != line {
		t.Error("object does not reference the imported symbol")
	}
	if len(path.Coords) != 2 {
		t.Fatalf("got %d coordinates, want 2", len(path.Coords))
	}
	if path.Coords[0].X != 0 || path.Coords[0].Y != 0 {
		t.Errorf("first coord = (%d,%d), want (0,0)", path.Coords[0].X, path.Coords[0].Y)
	}
	// The file's Y axis grows upwards, the model's downwards.
	if path.Coords[1].X != 10000 || path.Coords[1].Y != -10000 {
		t.Errorf("second coord = (%d,%d), want (10000,-10000)", path.Coords[1].X, path.Coords[1].Y)
	}
	parts := path.Parts()
	if len(parts) != 1 || parts[0].Closed {
		t.Errorf("parts = %+v, want one open part", parts)
	}
}

// buildSymbolFile assembles a file with one black color and a single
// symbol record whose type specific payload is produced by extra.
func buildSymbolFile(symType uint8, number int16, extra func(rec *builder)) []byte {
	b := &builder{}
	b.appendZeros(headerSize)

	colorPos := b.len()
	b.appendS16(0)
	b.appendU16(0)
	b.appendU16(0)
	b.appendU16(0)
	b.appendU16(200)
	colorName, _ := encodePascalString("Black", 32, defaultByteEncoding)
	b.appendBytes(colorName)

	symPos := b.len()
	rec := &builder{}
	rec.appendU16(0) // size, patched below
	rec.appendS16(number)
	rec.appendU8(symType)
	rec.appendU8(0)
	rec.appendU8(0)
	rec.appendU8(0)
	rec.appendS16(5)
	rec.appendZeros(symColorsLen)
	symName, _ := encodePascalString("Test", symNameLen, defaultByteEncoding)
	rec.appendBytes(symName)
	rec.appendZeros(symIconLen)
	extra(rec)
	rec.putU16(0, uint16(rec.len()))
	b.appendBytes(rec.buf)

	symBlk := b.len()
	b.appendU32(0)
	b.appendU32(uint32(symPos))
	b.appendZeros((indexBlockSlots - 1) * symbolIndexEntrySize)

	b.putU16(hdrMagic, magic)
	b.putU16(hdrVersion, 8)
	b.putU32(hdrFirstSymBlk, uint32(symBlk))
	b.putU16(hdrNumColors, 1)
	b.putU32(hdrColorPos, uint32(colorPos))
	return b.buf
}

func buildLineSymbolFile(f [lineFieldCount]int16) []byte {
	return buildSymbolFile(symTypeLine, 101, func(rec *builder) {
		for _, v := range f {
			rec.appendS16(v)
		}
	})
}

func importCollecting(t *testing.T, data []byte) (*model.Map, []string) {
	t.Helper()
	var warnings WarningList
	m, err := NewImporter(&warnings).Import(data)
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	return m, warnings.Warnings
}

func hasWarning(warnings []string, substr string) bool {
	for _, w := range warnings {
		if strings.Contains(w, substr) {
			return true
		}
	}
	return false
}

// TestImportDashSecondaryGapOnly tests the gap encoding that stores the
// break inside the segment length
func TestImportDashSecondaryGapOnly(t *testing.T) {
	var f [lineFieldCount]int16
	f[lineFieldWidth] = 100
	f[lineFieldMainLength] = 200
	f[lineFieldEndLength] = 100
	f[lineFieldSecGap] = 60

	m, warnings := importCollecting(t, buildLineSymbolFile(f))
	line, ok := m.Symbols[0].(*model.LineSymbol)
	if !ok {
		t.Fatalf("symbol is %T, want *model.LineSymbol", m.Symbols[0])
	}
	if !line.Dashed {
		t.Fatal("line imported as undashed")
	}
	if line.DashLength != 1400 || line.BreakLength != 600 {
		t.Errorf("dash/break = %d/%d, want 1400/600", line.DashLength, line.BreakLength)
	}
	if line.DashesInGroup != 0 {
		t.Errorf("dashes in group = %d, want 0", line.DashesInGroup)
	}
	if len(warnings) != 0 {
		t.Errorf("unexpected warnings: %v", warnings)
	}
}

// TestImportDashEndLengthWarning tests the warning for end dashes that do
// not fit the half-length window
func TestImportDashEndLengthWarning(t *testing.T) {
	var f [lineFieldCount]int16
	f[lineFieldWidth] = 100
	f[lineFieldMainLength] = 200
	f[lineFieldEndLength] = 50
	f[lineFieldSecGap] = 60

	m, warnings := importCollecting(t, buildLineSymbolFile(f))
	line := m.Symbols[0].(*model.LineSymbol)
	if line.DashLength != 1400 {
		t.Errorf("dash length = %d, want 1400", line.DashLength)
	}
	if !hasWarning(warnings, "end length") {
		t.Errorf("no end length warning in %v", warnings)
	}

	f[lineFieldEndLength] = 100
	f[lineFieldEndGap] = 20
	_, warnings = importCollecting(t, buildLineSymbolFile(f))
	if !hasWarning(warnings, "end gap") {
		t.Errorf("no end gap warning in %v", warnings)
	}
}

// TestImportDashBothGaps tests grouped dashes from a record carrying both
// gap fields
func TestImportDashBothGaps(t *testing.T) {
	var f [lineFieldCount]int16
	f[lineFieldWidth] = 100
	f[lineFieldMainLength] = 200
	f[lineFieldEndLength] = 200
	f[lineFieldMainGap] = 100
	f[lineFieldSecGap] = 60
	f[lineFieldEndGap] = 60

	m, warnings := importCollecting(t, buildLineSymbolFile(f))
	line := m.Symbols[0].(*model.LineSymbol)
	if line.DashesInGroup != 2 {
		t.Fatalf("dashes in group = %d, want 2", line.DashesInGroup)
	}
	if line.DashLength != 700 {
		t.Errorf("dash length = %d, want 700", line.DashLength)
	}
	if line.BreakLength != 1000 || line.InGroupBreakLength != 600 {
		t.Errorf("break/group break = %d/%d, want 1000/600", line.BreakLength, line.InGroupBreakLength)
	}
	if len(warnings) != 0 {
		t.Errorf("unexpected warnings: %v", warnings)
	}

	f[lineFieldEndGap] = 30
	_, warnings = importCollecting(t, buildLineSymbolFile(f))
	if !hasWarning(warnings, "dash group") {
		t.Errorf("no dash group gap warning in %v", warnings)
	}
}

// TestImportDoubleLineCombined tests that a filled main line with double
// mode splits into a two-part combined symbol
func TestImportDoubleLineCombined(t *testing.T) {
	var f [lineFieldCount]int16
	f[lineFieldWidth] = 100
	f[lineFieldDoubleMode] = 1
	f[lineFieldDoubleWidth] = 20
	f[lineFieldDoubleFlags] = dblFlagFilled

	m, warnings := importCollecting(t, buildLineSymbolFile(f))
	if len(warnings) != 0 {
		t.Errorf("unexpected warnings: %v", warnings)
	}
	if len(m.Symbols) != 3 {
		t.Fatalf("got %d symbols, want 3", len(m.Symbols))
	}
	combined, ok := m.Symbols[2].(*model.CombinedSymbol)
	if !ok {
		t.Fatalf("symbol 2 is %T, want *model.CombinedSymbol", m.Symbols[2])
	}
	if len(combined.Parts) != 2 {
		t.Fatalf("combined symbol has %d parts, want 2", len(combined.Parts))
	}
	if combined.Parts[0] != m.Symbols[0] || combined.Parts[1] != m.Symbols[1] {
		t.Error("combined parts are not the registered main and double symbols")
	}

	main, ok := combined.Parts[0].(*model.LineSymbol)
	if !ok {
		t.Fatalf("part 0 is %T, want *model.LineSymbol", combined.Parts[0])
	}
	if main.LineWidth != 1000 {
		t.Errorf("main width = %d, want 1000", main.LineWidth)
	}
	double, ok := combined.Parts[1].(*model.LineSymbol)
	if !ok {
		t.Fatalf("part 1 is %T, want *model.LineSymbol", combined.Parts[1])
	}
	if double.LineWidth != 200 {
		t.Errorf("double width = %d, want 200", double.LineWidth)
	}
	if double.Color != m.Colors[0] {
		t.Error("filled double line did not pick up the fill color")
	}
	if main.Number != [3]int{10, 1, 1} || double.Number != [3]int{10, 1, 2} {
		t.Errorf("part numbers = %v/%v, want [10 1 1]/[10 1 2]", main.Number, double.Number)
	}
	if main.Hidden || main.Protected || double.Hidden || double.Protected {
		t.Error("combined parts inherited hidden or protected flags")
	}
}

// TestImportBorderedDoubleLine tests border import with asymmetric widths,
// a left-only dash mode and a framing line
func TestImportBorderedDoubleLine(t *testing.T) {
	var f [lineFieldCount]int16
	f[lineFieldDoubleMode] = 2
	f[lineFieldDoubleWidth] = 40
	f[lineFieldLeftWidth] = 10
	f[lineFieldRightWidth] = 14
	f[lineFieldDoubleLength] = 30
	f[lineFieldDoubleGap] = 20
	f[lineFieldFrameWidth] = 5

	m, warnings := importCollecting(t, buildLineSymbolFile(f))
	if len(m.Symbols) != 1 {
		t.Fatalf("got %d symbols, want 1", len(m.Symbols))
	}
	line, ok := m.Symbols[0].(*model.LineSymbol)
	if !ok {
		t.Fatalf("symbol is %T, want *model.LineSymbol", m.Symbols[0])
	}
	if line.LineWidth != 400 {
		t.Errorf("double width = %d, want 400", line.LineWidth)
	}
	if !line.HaveBorderLines || line.BorderWidth != 100 || line.BorderShift != 50 {
		t.Errorf("border = %v width %d shift %d, want true 100 50", line.HaveBorderLines, line.BorderWidth, line.BorderShift)
	}
	if !line.DashedBorder || line.BorderDashLength != 300 || line.BorderBreakLength != 200 {
		t.Errorf("border dashes = %v %d/%d, want true 300/200", line.DashedBorder, line.BorderDashLength, line.BorderBreakLength)
	}
	if !hasWarning(warnings, "different widths") {
		t.Errorf("no border width warning in %v", warnings)
	}
	if !hasWarning(warnings, "left border") {
		t.Errorf("no left-only dash warning in %v", warnings)
	}
	if !hasWarning(warnings, "framing") {
		t.Errorf("no framing line warning in %v", warnings)
	}
}

// buildHolePlacementFile assembles a file with a line and an area symbol
// and one four-point object per symbol, the hole flag on the third point.
func buildHolePlacementFile() []byte {
	b := &builder{}
	b.appendZeros(headerSize)

	appendSymbol := func(number int16, symType uint8, extra func(rec *builder)) int {
		pos := b.len()
		rec := &builder{}
		rec.appendU16(0)
		rec.appendS16(number)
		rec.appendU8(symType)
		rec.appendU8(0)
		rec.appendU8(0)
		rec.appendU8(0)
		rec.appendS16(5)
		rec.appendZeros(symColorsLen)
		name, _ := encodePascalString("Test", symNameLen, defaultByteEncoding)
		rec.appendBytes(name)
		rec.appendZeros(symIconLen)
		extra(rec)
		rec.putU16(0, uint16(rec.len()))
		b.appendBytes(rec.buf)
		return pos
	}
	linePos := appendSymbol(101, symTypeLine, func(rec *builder) {
		var f [lineFieldCount]int16
		f[lineFieldWidth] = 100
		for _, v := range f {
			rec.appendS16(v)
		}
	})
	areaPos := appendSymbol(201, symTypeArea, func(rec *builder) {
		var f [areaFieldCount]int16
		f[areaFieldFillOn] = 1
		for _, v := range f {
			rec.appendS16(v)
		}
	})

	appendObject := func(number int16, objType uint8) (int, int) {
		pos := b.len()
		rec := &builder{}
		rec.appendS16(number)
		rec.appendU8(objType)
		rec.appendU8(0)
		rec.appendU16(4)
		rec.appendU16(0)
		rec.appendS16(0)
		rec.appendU16(0)
		for i := int32(0); i < 4; i++ {
			var yf int32
			if i == 2 {
				yf = yFlagHole
			}
			rec.appendS32(i * 100 << 8)
			rec.appendS32(i*100<<8 | yf)
		}
		b.appendBytes(rec.buf)
		return pos, rec.len()
	}
	obj1Pos, obj1Len := appendObject(101, objTypePath)
	obj2Pos, obj2Len := appendObject(201, objTypeArea)

	symBlk := b.len()
	b.appendU32(0)
	b.appendU32(uint32(linePos))
	b.appendU32(uint32(areaPos))
	b.appendZeros((indexBlockSlots - 2) * symbolIndexEntrySize)

	objBlk := b.len()
	b.appendU32(0)
	for _, o := range []struct{ pos, size, num int }{
		{obj1Pos, obj1Len, 101},
		{obj2Pos, obj2Len, 201},
	} {
		b.appendS32(0)
		b.appendS32(0)
		b.appendS32(300)
		b.appendS32(300)
		b.appendU32(uint32(o.pos))
		b.appendU16(uint16(o.size))
		b.appendS16(int16(o.num))
	}
	b.appendZeros((indexBlockSlots - 2) * objectIndexEntrySize)

	b.putU16(hdrMagic, magic)
	b.putU16(hdrVersion, 8)
	b.putU32(hdrFirstSymBlk, uint32(symBlk))
	b.putU32(hdrFirstObjBlk, uint32(objBlk))
	return b.buf
}

// TestImportHolePlacement tests that the hole flag starts a new sub-path
// at the flagged point for plain paths and after it for area outlines
func TestImportHolePlacement(t *testing.T) {
	m, _ := importCollecting(t, buildHolePlacementFile())
	if m.NumObjects() != 2 {
		t.Fatalf("got %d objects, want 2", m.NumObjects())
	}

	path := m.CurrentLayer().Objects[0].(*model.PathObject)
	for i, want := range []bool{false, false, true, false} {
		if got := path.Coords[i].IsHolePoint(); got != want {
			t.Errorf("path coord %d hole = %v, want %v", i, got, want)
		}
	}

	area := m.CurrentLayer().Objects[1].(*model.PathObject)
	for i, want := range []bool{false, true, false, false} {
		if got := area.Coords[i].IsHolePoint(); got != want {
			t.Errorf("area coord %d hole = %v, want %v", i, got, want)
		}
	}
}

// TestImportDensePriorities tests that color priorities come from the
// table position, not the stored numbers
func TestImportDensePriorities(t *testing.T) {
	b := &builder{}
	b.appendZeros(headerSize)
	colorPos := b.len()
	for i, num := range []int16{5, 9} {
		b.appendS16(num)
		b.appendU16(0)
		b.appendU16(0)
		b.appendU16(0)
		b.appendU16(uint16(200 - i*100))
		name, _ := encodePascalString("Shade", 32, defaultByteEncoding)
		b.appendBytes(name)
	}
	b.putU16(hdrMagic, magic)
	b.putU16(hdrVersion, 8)
	b.putU16(hdrNumColors, 2)
	b.putU32(hdrColorPos, uint32(colorPos))

	m, _ := importCollecting(t, b.buf)
	if len(m.Colors) != 2 {
		t.Fatalf("got %d colors, want 2", len(m.Colors))
	}
	if m.Colors[0].Priority != 0 || m.Colors[1].Priority != 1 {
		t.Errorf("priorities = %d/%d, want 0/1", m.Colors[0].Priority, m.Colors[1].Priority)
	}
}

// TestImportSymbolsOnly tests that the restricted mode loads the symbol
// table but no objects
func TestImportSymbolsOnly(t *testing.T) {
	var warnings WarningList
	im := NewImporter(&warnings)
	im.SetSymbolsOnly(true)
	m, err := im.Import(buildMinimalFile())
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if len(m.Symbols) != 1 {
		t.Errorf("got %d symbols, want 1", len(m.Symbols))
	}
	if len(m.Colors) != 1 {
		t.Errorf("got %d colors, want 1", len(m.Colors))
	}
	if m.NumObjects() != 0 {
		t.Errorf("got %d objects, want 0", m.NumObjects())
	}
}

// buildTextSymbolFile assembles a file with one text symbol whose fields
// are filled by fill.
func buildTextSymbolFile(fill func(f *[textFieldCount]int16)) []byte {
	return buildSymbolFile(symTypeText, 110, func(rec *builder) {
		font, _ := encodePascalString("Arial", textFontNameLen, defaultByteEncoding)
		rec.appendBytes(font)
		var f [textFieldCount]int16
		f[textFieldSize] = 150
		f[textFieldWeight] = 400
		f[textFieldWordSpace] = 100
		f[textFieldLineSpace] = 120
		fill(&f)
		for _, v := range f {
			rec.appendS16(v)
		}
		for i := 0; i < textMaxTabs; i++ {
			rec.appendS32(0)
		}
	})
}

// TestImportTextSpacingWarnings tests the lossy-import warnings for text
// style fields without a model counterpart
func TestImportTextSpacingWarnings(t *testing.T) {
	data := buildTextSymbolFile(func(f *[textFieldCount]int16) {
		f[textFieldWeight] = 500
		f[textFieldCharSpace] = 10
		f[textFieldWordSpace] = 80
		f[textFieldIndentFirst] = 5
		f[textFieldFrameMode] = 3
	})
	_, warnings := importCollecting(t, data)
	for _, want := range []string{"weight", "character spacing", "word spacing", "indents", "framing"} {
		if !hasWarning(warnings, want) {
			t.Errorf("no %s warning in %v", want, warnings)
		}
	}
}

// TestImportTextBoxTopAligned tests the box corner decoding and the
// metric shift of the box center
func TestImportTextBoxTopAligned(t *testing.T) {
	b := &builder{}
	b.appendZeros(headerSize)

	symPos := b.len()
	rec := &builder{}
	rec.appendU16(0)
	rec.appendS16(110)
	rec.appendU8(symTypeText)
	rec.appendU8(0)
	rec.appendU8(0)
	rec.appendU8(0)
	rec.appendS16(5)
	rec.appendZeros(symColorsLen)
	name, _ := encodePascalString("Label", symNameLen, defaultByteEncoding)
	rec.appendBytes(name)
	rec.appendZeros(symIconLen)
	font, _ := encodePascalString("Arial", textFontNameLen, defaultByteEncoding)
	rec.appendBytes(font)
	var f [textFieldCount]int16
	f[textFieldSize] = 150
	f[textFieldWeight] = 400
	f[textFieldWordSpace] = 100
	f[textFieldLineSpace] = 120
	for _, v := range f {
		rec.appendS16(v)
	}
	for i := 0; i < textMaxTabs; i++ {
		rec.appendS32(0)
	}
	rec.putU16(0, uint16(rec.len()))
	b.appendBytes(rec.buf)

	objPos := b.len()
	orec := &builder{}
	orec.appendS16(110)
	orec.appendU8(objTypeTextBox)
	orec.appendU8(0)
	orec.appendU16(4)
	orec.appendU16(1)
	orec.appendS16(0)
	orec.appendU16(0)
	// bottom-left, bottom-right, top-right, top-left; the file's Y axis
	// grows upwards
	for _, pt := range [][2]int32{{-100, -100}, {100, -100}, {100, 100}, {-100, 100}} {
		orec.appendS32(pt[0] << 8)
		orec.appendS32(pt[1] << 8)
	}
	orec.appendZeros(8) // empty text payload
	b.appendBytes(orec.buf)

	symBlk := b.len()
	b.appendU32(0)
	b.appendU32(uint32(symPos))
	b.appendZeros((indexBlockSlots - 1) * symbolIndexEntrySize)

	objBlk := b.len()
	b.appendU32(0)
	b.appendS32(-100)
	b.appendS32(-100)
	b.appendS32(100)
	b.appendS32(100)
	b.appendU32(uint32(objPos))
	b.appendU16(uint16(orec.len()))
	b.appendS16(110)
	b.appendZeros((indexBlockSlots - 1) * objectIndexEntrySize)

	b.putU16(hdrMagic, magic)
	b.putU16(hdrVersion, 8)
	b.putU32(hdrFirstSymBlk, uint32(symBlk))
	b.putU32(hdrFirstObjBlk, uint32(objBlk))

	m, _ := importCollecting(t, b.buf)
	if m.NumObjects() != 1 {
		t.Fatalf("got %d objects, want 1", m.NumObjects())
	}
	text, ok := m.CurrentLayer().Objects[0].(*model.TextObject)
	if !ok {
		t.Fatalf("object is %T, want *model.TextObject", m.CurrentLayer().Objects[0])
	}
	if !text.HasBox || text.BoxWidth != 2000 || text.BoxHeight != 2000 {
		t.Errorf("box = %v %dx%d, want true 2000x2000", text.HasBox, text.BoxWidth, text.BoxHeight)
	}
	if text.VAlign != model.AlignTop {
		t.Errorf("vertical alignment = %v, want AlignTop", text.VAlign)
	}
	// The box center shifts down by ascent + descent - em size.
	if text.Anchor() != (model.MapCoord{X: 0, Y: 105}) {
		t.Errorf("anchor = %+v, want (0,105)", text.Anchor())
	}
}

// TestImportDegeneratePatternElements tests that invisible dots and
// circles are dropped from point symbol patterns
func TestImportDegeneratePatternElements(t *testing.T) {
	data := buildSymbolFile(symTypePoint, 301, func(rec *builder) {
		rec.appendS16(9) // three elements, three units each
		rec.appendS16(0)
		appendElement := func(typ, lineWidth, diameter int16) {
			rec.appendS16(typ)
			rec.appendU16(0)
			rec.appendS16(0)
			rec.appendS16(lineWidth)
			rec.appendS16(diameter)
			rec.appendS16(1)
			rec.appendU32(0)
			rec.appendS32(0)
			rec.appendS32(0)
		}
		appendElement(elemTypeDot, 0, 0)      // no radius
		appendElement(elemTypeCircle, 10, 20) // line width eats the radius
		appendElement(elemTypeDot, 0, 80)
	})

	m, warnings := importCollecting(t, data)
	if len(warnings) != 0 {
		t.Errorf("unexpected warnings: %v", warnings)
	}
	point, ok := m.Symbols[0].(*model.PointSymbol)
	if !ok {
		t.Fatalf("symbol is %T, want *model.PointSymbol", m.Symbols[0])
	}
	// Only the visible dot survives and collapses onto the symbol.
	if len(point.Elements) != 0 {
		t.Errorf("got %d elements, want 0", len(point.Elements))
	}
	if point.InnerRadius != 400 || point.InnerColor != m.Colors[0] {
		t.Errorf("inner = r%d %v, want r400 black", point.InnerRadius, point.InnerColor)
	}
}

// TestImportRectGridDefaults tests the fixed grid line and cell number
// styles of rectangle symbols
func TestImportRectGridDefaults(t *testing.T) {
	data := buildSymbolFile(symTypeRect, 401, func(rec *builder) {
		rec.appendS16(0)   // line color
		rec.appendS16(50)  // line width
		rec.appendS16(0)   // corner radius
		rec.appendU16(rectGridFlagGrid | rectGridFlagNumbered)
		rec.appendS16(500) // cell width
		rec.appendS16(500) // cell height
		rec.appendS16(0)   // unnumbered cells
		cellText, _ := encodePascalString("", 32, defaultByteEncoding)
		rec.appendBytes(cellText)
		rec.appendS16(0)
	})

	m, _ := importCollecting(t, data)
	if len(m.Symbols) != 3 {
		t.Fatalf("got %d symbols, want 3", len(m.Symbols))
	}
	grid, ok := m.Symbols[1].(*model.LineSymbol)
	if !ok {
		t.Fatalf("symbol 1 is %T, want *model.LineSymbol", m.Symbols[1])
	}
	if grid.LineWidth != 150 {
		t.Errorf("grid line width = %d, want 150", grid.LineWidth)
	}
	numbers, ok := m.Symbols[2].(*model.TextSymbol)
	if !ok {
		t.Fatalf("symbol 2 is %T, want *model.TextSymbol", m.Symbols[2])
	}
	if !numbers.Bold {
		t.Error("cell number text is not bold")
	}
	if numbers.FontSize != 5292 {
		t.Errorf("cell number font size = %d, want 5292", numbers.FontSize)
	}
}

// TestImportUndefinedSymbol tests the fallback for dangling references
func TestImportUndefinedSymbol(t *testing.T) {
	data := buildMinimalFile()
	// The object record starts right after the color table (44 bytes of
	// header, 42 of color entry) and the symbol record (398 bytes); its
	// first field is the referenced symbol number. Point it at a number
	// that does not exist.
	objPos := headerSize + colorEntrySize + symBaseSize + lineExtraSize
	binary.LittleEndian.PutUint16(data[objPos:], 999)

	var warnings WarningList
	m, err := NewImporter(&warnings).Import(data)
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if m.NumObjects() != 1 {
		t.Fatalf("got %d objects, want 1", m.NumObjects())
	}
	path, ok := m.CurrentLayer().Objects[0].(*model.PathObject)
	if !ok {
		t.Fatalf("object is %T, want *model.PathObject", m.CurrentLayer().Objects[0])
	}
	if path.Sym != m.UndefinedLine() {
		t.Error("dangling reference did not fall back to the undefined line symbol")
	}
	if len(warnings.Warnings) == 0 {
		t.Error("dangling reference produced no warning")
	}
}
