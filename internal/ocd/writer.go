package ocd

import (
	"math"

	"golang.org/x/text/encoding"

	"github.com/kjetilk/mapper/internal/model"
)

// Exporter writes one map into a fresh output buffer. An Exporter carries
// the per-operation state (assigned file numbers, record positions) and is
// used for a single Export call.
type Exporter struct {
	byteEncoding encoding.Encoding
	wideEncoding encoding.Encoding
	sink         WarningSink

	m *model.Map
	b *builder

	usedNumbers map[int]bool
	// primitive symbol -> its assigned file number
	symbolNumbers map[model.Symbol]int
	// text symbol -> per-alignment file numbers (text records are
	// duplicated per alignment used by the objects)
	textNumbers map[*model.TextSymbol]map[model.HorizontalAlignment]int
	// assigned file number -> the symbol behind it
	numberSymbols map[int]model.Symbol

	// symbol use closure of the map, computed on first combined-symbol
	// object
	closure []map[int]bool

	symbolRecords []indexedRecord
	objectRecords []objectRecord
	stringRecords []stringRecord
}

type indexedRecord struct {
	pos uint32
}

type objectRecord struct {
	pos                    uint32
	size                   uint16
	symbol                 int16
	minX, minY, maxX, maxY int32
}

type stringRecord struct {
	pos  uint32
	size uint32
	typ  int32
}

// NewExporter creates an exporter reporting through sink. A nil sink
// discards warnings.
func NewExporter(sink WarningSink) *Exporter {
	return &Exporter{
		byteEncoding:  defaultByteEncoding,
		wideEncoding:  defaultWideEncoding,
		sink:          sinkOrDiscard(sink),
		usedNumbers:   make(map[int]bool),
		symbolNumbers: make(map[model.Symbol]int),
		textNumbers:   make(map[*model.TextSymbol]map[model.HorizontalAlignment]int),
		numberSymbols: make(map[int]model.Symbol),
	}
}

// SetByteEncoding overrides the 1-byte text encoding (default Windows-1252).
func (ex *Exporter) SetByteEncoding(enc encoding.Encoding) { ex.byteEncoding = enc }

// SetWideEncoding overrides the 2-byte text encoding (default UTF-16LE).
func (ex *Exporter) SetWideEncoding(enc encoding.Encoding) { ex.wideEncoding = enc }

// Export serializes the map into a complete file image.
func (ex *Exporter) Export(m *model.Map) ([]byte, error) {
	if len(m.Colors) > 256 {
		return nil, ErrColorLimit
	}
	ex.m = m
	ex.b = &builder{}
	ex.b.appendZeros(headerSize)

	setupPos := ex.exportSetup()
	infoPos, infoSize := ex.exportInfo()
	colorPos := ex.exportColors()

	ex.exportSymbols()
	ex.exportObjects()
	ex.exportStrings()

	firstSymBlk := ex.writeSymbolIndex()
	firstObjBlk := ex.writeObjectIndex()
	firstStrBlk := ex.writeStringIndex()

	ex.b.putU16(hdrMagic, magic)
	ex.b.putU16(hdrFileType, 0)
	ex.b.putU16(hdrVersion, 8)
	ex.b.putU16(hdrSubversion, 0)
	ex.b.putU32(hdrFirstSymBlk, firstSymBlk)
	ex.b.putU32(hdrFirstObjBlk, firstObjBlk)
	ex.b.putU32(hdrFirstStrBlk, firstStrBlk)
	ex.b.putU32(hdrSetupPos, uint32(setupPos))
	ex.b.putU32(hdrSetupSize, setupSize)
	ex.b.putU32(hdrInfoPos, uint32(infoPos))
	ex.b.putU32(hdrInfoSize, uint32(infoSize))
	ex.b.putU16(hdrNumColors, uint16(len(m.Colors)))
	ex.b.putU32(hdrColorPos, uint32(colorPos))

	return ex.b.buf, nil
}

func (ex *Exporter) exportSetup() int {
	pos := ex.b.len()
	view := ex.m.View()
	if view == nil {
		view = model.NewView()
	}
	ex.b.appendS32(int32(roundUnits(view.CenterX)))
	ex.b.appendS32(int32(-roundUnits(view.CenterY)))
	ex.b.appendU32(uint32(ex.m.ScaleDenominator))
	ex.b.appendF64(view.Zoom())
	return pos
}

func (ex *Exporter) exportInfo() (pos, size int) {
	notes := encodeCString(ex.m.Notes, ex.byteEncoding)
	pos = ex.b.appendBytes(notes)
	return pos, len(notes)
}

func (ex *Exporter) exportColors() int {
	pos := ex.b.len()
	for _, c := range ex.m.Colors {
		ex.b.appendS16(clampS16(c.Priority))
		ex.b.appendU16(exportColorComponent(c.C))
		ex.b.appendU16(exportColorComponent(c.M))
		ex.b.appendU16(exportColorComponent(c.Y))
		ex.b.appendU16(exportColorComponent(c.K))
		ex.appendPascal(c.Name, 32, "color name")
	}
	return pos
}

// appendPascal writes a fixed-size Pascal string field, warning when the
// value had to be cut.
func (ex *Exporter) appendPascal(s string, size int, what string) {
	field, truncated := encodePascalString(s, size, ex.byteEncoding)
	if truncated {
		ex.sink.Warnf("%s too long, truncated: %s", what, truncatedForWarning(s, size-1))
	}
	ex.b.appendBytes(field)
}

// ---- symbols ----

// exportSymbols writes the symbol records in two passes: primitives first,
// then combined symbols are resolved to the number sets of their parts.
func (ex *Exporter) exportSymbols() {
	needed := ex.neededTextAlignments()

	for _, sym := range ex.m.Symbols {
		switch s := sym.(type) {
		case *model.PointSymbol:
			n := ex.assignNumber(sym)
			ex.writeSymbolRecord(sym, n, ex.makePointRecord(s))
		case *model.LineSymbol:
			n := ex.assignNumber(sym)
			ex.writeSymbolRecord(sym, n, ex.makeLineRecord(s))
		case *model.AreaSymbol:
			n := ex.assignNumber(sym)
			ex.writeSymbolRecord(sym, n, ex.makeAreaRecord(s))
		case *model.TextSymbol:
			aligns := needed[s]
			if len(aligns) == 0 {
				aligns = []model.HorizontalAlignment{model.AlignLeft}
			}
			ex.textNumbers[s] = make(map[model.HorizontalAlignment]int)
			for _, a := range aligns {
				n := ex.assignNumber(sym)
				ex.textNumbers[s][a] = n
				ex.writeSymbolRecord(sym, n, ex.makeTextRecord(s, a))
			}
		case *model.CombinedSymbol:
			// resolved below, no record of its own
		}
	}
}

// neededTextAlignments collects, per text symbol, the alignments its
// objects actually use, in left/center/right order.
func (ex *Exporter) neededTextAlignments() map[*model.TextSymbol][]model.HorizontalAlignment {
	used := make(map[*model.TextSymbol]map[model.HorizontalAlignment]bool)
	for _, layer := range ex.m.Layers {
		for _, obj := range layer.Objects {
			text, ok := obj.(*model.TextObject)
			if !ok {
				continue
			}
			sym, ok := text.Sym.(*model.TextSymbol)
			if !ok {
				continue
			}
			if used[sym] == nil {
				used[sym] = make(map[model.HorizontalAlignment]bool)
			}
			used[sym][text.HAlign] = true
		}
	}
	needed := make(map[*model.TextSymbol][]model.HorizontalAlignment, len(used))
	for sym, set := range used {
		for _, a := range []model.HorizontalAlignment{model.AlignLeft, model.AlignHCenter, model.AlignRight} {
			if set[a] {
				needed[sym] = append(needed[sym], a)
			}
		}
	}
	return needed
}

// assignNumber maps a symbol's dotted number onto a free file number,
// incrementing past collisions.
func (ex *Exporter) assignNumber(sym model.Symbol) int {
	common := sym.Common()
	major, minor := common.Number[0], common.Number[1]
	if major < 0 {
		major = 0
	}
	if minor < 0 {
		minor = 0
	}
	n := major*10 + minor
	if n <= 0 {
		n = 1
	}
	for ex.usedNumbers[n] {
		n++
	}
	ex.usedNumbers[n] = true
	if _, have := ex.symbolNumbers[sym]; !have {
		ex.symbolNumbers[sym] = n
	}
	ex.numberSymbols[n] = sym
	return n
}

// writeSymbolRecord prepends the shared base record to the type-specific
// payload and appends the whole record to the output.
func (ex *Exporter) writeSymbolRecord(sym model.Symbol, number int, payload symbolPayload) {
	common := sym.Common()
	rec := &builder{}
	rec.appendU16(0) // size, patched below
	rec.appendS16(clampS16(number))
	rec.appendU8(payload.typ)
	rec.appendU8(payload.baseFlags)
	var status uint8
	if common.Protected {
		status |= statusProtected
	}
	if common.Hidden {
		status |= statusHidden
	}
	rec.appendU8(status)
	rec.appendU8(0)
	rec.appendS16(exportSize(payload.extent))

	mask := make([]byte, symColorsLen)
	for i, c := range ex.m.Colors {
		if i >= symColorsLen*8 {
			break
		}
		if sym.ContainsColor(c) {
			mask[i/8] |= 1 << (i % 8)
		}
	}
	rec.appendBytes(mask)

	name, truncated := encodePascalString(common.Name, symNameLen, ex.byteEncoding)
	if truncated {
		ex.sink.Warnf("symbol %s name too long, truncated: %s", common.NumberString(), truncatedForWarning(common.Name, symNameLen-1))
	}
	rec.appendBytes(name)
	rec.appendBytes(encodeIcon(common.Icon))
	rec.appendBytes(payload.extra)
	rec.putU16(0, uint16(rec.len()))

	pos := ex.b.appendBytes(rec.buf)
	ex.symbolRecords = append(ex.symbolRecords, indexedRecord{pos: uint32(pos)})
}

type symbolPayload struct {
	typ       uint8
	baseFlags uint8
	extent    int
	extra     []byte
}

func (ex *Exporter) makePointRecord(s *model.PointSymbol) symbolPayload {
	var flags uint8
	if s.Rotatable {
		flags |= baseFlagRotatable
	}
	pattern, units := ex.exportPattern(s)
	extra := &builder{}
	extra.appendS16(clampS16(units))
	extra.appendS16(0)
	extra.appendBytes(pattern)
	return symbolPayload{
		typ:       symTypePoint,
		baseFlags: flags,
		extent:    s.InnerRadius + s.OuterWidth,
		extra:     extra.buf,
	}
}

func (ex *Exporter) makeLineRecord(s *model.LineSymbol) symbolPayload {
	var f [lineFieldCount]int16
	f[lineFieldColor] = ex.colorIndex(s.Color)
	f[lineFieldWidth] = exportSize(s.LineWidth)
	f[lineFieldEnds] = ex.exportLineEnds(s)
	if s.Cap == model.PointedCap {
		f[lineFieldDistFromStart] = exportSize(s.PointedCapLength)
		f[lineFieldDistToEnd] = exportSize(s.PointedCapLength)
	}
	f[lineFieldMinLength] = exportSize(s.MinimumLength)

	if s.Dashed {
		switch {
		case s.MidSymbol != nil && !s.MidSymbol.IsEmpty():
			// Mid symbols sit at the gap centers, which only the
			// secondary-gap encoding can express.
			if s.DashesInGroup > 1 {
				ex.sink.Warnf("line symbol %s: neglecting the dash grouping", s.NumberString())
			}
			f[lineFieldMainLength] = exportSize(s.DashLength + s.BreakLength)
			f[lineFieldEndLength] = f[lineFieldMainLength] / 2
			f[lineFieldSecGap] = exportSize(s.BreakLength)
		case s.DashesInGroup >= 2:
			if s.DashesInGroup > 2 {
				ex.sink.Warnf("line symbol %s: %d dashes per group cannot be represented, writing groups of 2", s.NumberString(), s.DashesInGroup)
			}
			f[lineFieldMainLength] = exportSize(2*s.DashLength + s.InGroupBreakLength)
			f[lineFieldEndLength] = f[lineFieldMainLength]
			f[lineFieldMainGap] = exportSize(s.BreakLength)
			f[lineFieldSecGap] = exportSize(s.InGroupBreakLength)
			f[lineFieldEndGap] = exportSize(s.InGroupBreakLength)
		default:
			f[lineFieldMainLength] = exportSize(s.DashLength)
			f[lineFieldMainGap] = exportSize(s.BreakLength)
			if s.HalfOuterDashes {
				f[lineFieldEndLength] = f[lineFieldMainLength] / 2
			} else {
				f[lineFieldEndLength] = f[lineFieldMainLength]
			}
		}
	} else {
		f[lineFieldMainLength] = exportSize(s.SegmentLength)
		f[lineFieldEndLength] = exportSize(s.EndLength)
	}

	f[lineFieldSymbolsPerSpot] = clampS16(s.MidSymbolsPerSpot)
	f[lineFieldSymbolDistance] = exportSize(s.MidSymbolDistance)

	if s.HaveBorderLines {
		// The border lines become the double line pair; their center
		// distance follows from the main width and the shift.
		f[lineFieldDoubleWidth] = exportSize(s.LineWidth - s.BorderWidth + 2*s.BorderShift)
		f[lineFieldLeftWidth] = exportSize(s.BorderWidth)
		f[lineFieldRightWidth] = exportSize(s.BorderWidth)
		f[lineFieldLeftColor] = ex.colorIndex(s.BorderColor)
		f[lineFieldRightColor] = ex.colorIndex(s.BorderColor)
		if s.DashedBorder {
			f[lineFieldDoubleMode] = 3
			f[lineFieldDoubleLength] = exportSize(s.BorderDashLength)
			f[lineFieldDoubleGap] = exportSize(s.BorderBreakLength)
		} else {
			f[lineFieldDoubleMode] = 1
		}
	}

	mid, midUnits := ex.exportDecoration(s.MidSymbol)
	corner, cornerUnits := ex.exportDecoration(s.DashSymbol)
	start, startUnits := ex.exportDecoration(s.StartSymbol)
	end, endUnits := ex.exportDecoration(s.EndSymbol)
	f[lineFieldMainCount] = clampS16(midUnits)
	f[lineFieldCornerCount] = clampS16(cornerUnits)
	f[lineFieldStartCount] = clampS16(startUnits)
	f[lineFieldEndCount] = clampS16(endUnits)

	extra := &builder{}
	for _, v := range f {
		extra.appendS16(v)
	}
	extra.appendBytes(mid)
	extra.appendBytes(corner)
	extra.appendBytes(start)
	extra.appendBytes(end)
	return symbolPayload{
		typ:    symTypeLine,
		extent: s.LineWidth/2 + s.BorderShift + s.BorderWidth,
		extra:  extra.buf,
	}
}

func (ex *Exporter) exportLineEnds(s *model.LineSymbol) int16 {
	if s.Cap == model.PointedCap {
		switch s.Join {
		case model.BevelJoin:
			return 2
		case model.MiterJoin:
			return 6
		default:
			return 3
		}
	}
	if s.Cap == model.SquareCap {
		ex.sink.Warnf("line symbol %s: square caps cannot be represented, writing flat caps", s.NumberString())
	}
	if s.Cap == model.RoundCap {
		if s.Join != model.RoundJoin {
			ex.sink.Warnf("line symbol %s: round caps force round joins in the output", s.NumberString())
		}
		return 1
	}
	switch s.Join {
	case model.MiterJoin:
		return 4
	case model.RoundJoin:
		ex.sink.Warnf("line symbol %s: round joins with flat caps cannot be represented, writing bevel joins", s.NumberString())
		return 0
	default:
		return 0
	}
}

func (ex *Exporter) exportDecoration(s *model.PointSymbol) ([]byte, int) {
	if s == nil || s.IsEmpty() {
		return nil, 0
	}
	return ex.exportPattern(s)
}

func (ex *Exporter) makeAreaRecord(s *model.AreaSymbol) symbolPayload {
	var f [areaFieldCount]int16
	var flags uint8
	if s.Color != nil {
		f[areaFieldFillOn] = 1
		f[areaFieldFillColor] = ex.colorIndex(s.Color)
	}

	var pattern []byte
	var patternUnits int
	pointPatterns := 0
	for i := range s.Patterns {
		p := &s.Patterns[i]
		if p.Rotatable {
			flags |= baseFlagRotatable
		}
		switch p.Type {
		case model.LinePattern:
			switch f[areaFieldHatchMode] {
			case 0:
				f[areaFieldHatchMode] = 1
				f[areaFieldHatchColor] = ex.colorIndex(p.LineColor)
				f[areaFieldHatchLineWidth] = exportSize(p.LineWidth)
				f[areaFieldHatchDist] = exportSize(p.LineSpacing - p.LineWidth)
				f[areaFieldHatchAngle1] = exportRotation(p.Angle)
			case 1:
				f[areaFieldHatchMode] = 2
				f[areaFieldHatchAngle2] = exportRotation(p.Angle)
				if ex.colorIndex(p.LineColor) != f[areaFieldHatchColor] || exportSize(p.LineWidth) != f[areaFieldHatchLineWidth] {
					ex.sink.Warnf("area symbol %s: second hatch pattern differs in color or width, writing the first pattern's values", s.NumberString())
				}
			default:
				ex.sink.Warnf("area symbol %s: more than two hatch patterns cannot be represented, extra pattern dropped", s.NumberString())
			}
		case model.PointPattern:
			pointPatterns++
			switch pointPatterns {
			case 1:
				f[areaFieldStructMode] = 1
				f[areaFieldStructWidth] = exportSize(p.PointDistance)
				f[areaFieldStructHeight] = exportSize(p.LineSpacing)
				f[areaFieldStructAngle] = exportRotation(p.Angle)
				if p.Point != nil {
					pattern, patternUnits = ex.exportPattern(p.Point)
				}
			case 2:
				// A second point pattern is written as staggered rows;
				// its own point symbol cannot be kept.
				f[areaFieldStructMode] = 2
				if p.LineOffset != 0 {
					f[areaFieldStructHeight] /= 2
				} else {
					f[areaFieldStructWidth] /= 2
				}
				ex.sink.Warnf("area symbol %s: second point pattern approximated as staggered rows", s.NumberString())
			default:
				ex.sink.Warnf("area symbol %s: more than two point patterns cannot be represented, extra pattern dropped", s.NumberString())
			}
		}
	}
	f[areaFieldDataSize] = clampS16(patternUnits)

	extra := &builder{}
	for _, v := range f {
		extra.appendS16(v)
	}
	extra.appendBytes(pattern)
	return symbolPayload{
		typ:       symTypeArea,
		baseFlags: flags,
		extra:     extra.buf,
	}
}

func (ex *Exporter) makeTextRecord(s *model.TextSymbol, align model.HorizontalAlignment) symbolPayload {
	extra := &builder{}
	font, truncated := encodePascalString(s.FontFamily, textFontNameLen, ex.byteEncoding)
	if truncated {
		ex.sink.Warnf("text symbol %s font name too long, truncated: %s", s.NumberString(), truncatedForWarning(s.FontFamily, textFontNameLen-1))
	}
	extra.appendBytes(font)

	var f [textFieldCount]int16
	f[textFieldColor] = ex.colorIndex(s.Color)
	f[textFieldSize] = exportFontSize(s.FontSize)
	if s.Bold {
		f[textFieldWeight] = 700
	} else {
		f[textFieldWeight] = 400
	}
	if s.Italic {
		f[textFieldItalic] = 1
	}
	f[textFieldCharSpace] = clampS16(int(math.Round(s.CharacterSpacing * 100)))
	f[textFieldWordSpace] = 100
	switch align {
	case model.AlignHCenter:
		f[textFieldAlignment] = 1
	case model.AlignRight:
		f[textFieldAlignment] = 2
	}
	f[textFieldLineSpace] = clampS16(int(math.Round(s.LineSpacing * 120)))
	f[textFieldParaSpace] = exportSize(s.ParagraphSpacing)

	tabs := s.CustomTabs
	if len(tabs) > textMaxTabs {
		ex.sink.Warnf("text symbol %s: %d tab stops cannot be represented, keeping the first %d", s.NumberString(), len(tabs), textMaxTabs)
		tabs = tabs[:textMaxTabs]
	}
	f[textFieldNumTabs] = int16(len(tabs))

	if s.LineBelow {
		f[textFieldLineBelowOn] = 1
		f[textFieldLineBelowColor] = ex.colorIndex(s.LineBelowColor)
		f[textFieldLineBelowWidth] = exportSize(s.LineBelowWidth)
		f[textFieldLineBelowDist] = exportSize(s.LineBelowDistance)
	}

	switch s.Framing {
	case model.ShadowFraming:
		f[textFieldFrameMode] = 1
		f[textFieldFrameColor] = ex.colorIndex(s.FramingColor)
		f[textFieldFrameShadowX] = exportSize(s.FramingShadowX)
		f[textFieldFrameShadowY] = exportSize(-s.FramingShadowY)
	case model.LineFraming:
		f[textFieldFrameMode] = 2
		f[textFieldFrameColor] = ex.colorIndex(s.FramingColor)
		f[textFieldFrameWidth] = exportSize(s.FramingLineHalfWidth)
	}

	for _, v := range f {
		extra.appendS16(v)
	}
	for i := 0; i < textMaxTabs; i++ {
		if i < len(tabs) {
			extra.appendS32(int32(roundUnits(int64(tabs[i]))))
		} else {
			extra.appendS32(0)
		}
	}
	return symbolPayload{
		typ:    symTypeText,
		extent: 0,
		extra:  extra.buf,
	}
}

// exportPattern serializes a point symbol into pattern elements: the
// explicit elements first, then the symbol's own ring and dot as circle
// and dot elements at the origin. Returns the data and its length in
// 8-byte units.
func (ex *Exporter) exportPattern(s *model.PointSymbol) ([]byte, int) {
	b := &builder{}
	units := 0

	appendElement := func(typ int16, sym model.Symbol, color *model.Color, lineWidth, diameter int, coords []model.MapCoord) {
		if len(coords) == 0 {
			coords = []model.MapCoord{{}}
		}
		b.appendS16(typ)
		b.appendU16(0)
		b.appendS16(ex.colorIndex(color))
		b.appendS16(exportSize(lineWidth))
		b.appendS16(exportSize(diameter))
		b.appendS16(clampS16(len(coords)))
		b.appendU32(0)
		appendCoords(b, coords, sym)
		units += 2 + len(coords)
	}

	for _, el := range s.Elements {
		switch sub := el.Symbol.(type) {
		case *model.LineSymbol:
			appendElement(elemTypeLine, sub, sub.Color, sub.LineWidth, 0, el.Object.Common().Coords)
		case *model.AreaSymbol:
			appendElement(elemTypeArea, sub, sub.Color, 0, 0, el.Object.Common().Coords)
		case *model.PointSymbol:
			if len(sub.Elements) > 0 {
				ex.sink.Warnf("nested point symbol elements cannot be represented, dropped")
			}
			coords := el.Object.Common().Coords
			if sub.OuterColor != nil && sub.OuterWidth > 0 {
				appendElement(elemTypeCircle, sub, sub.OuterColor, sub.OuterWidth, 2*(sub.InnerRadius+sub.OuterWidth), coords)
			}
			if sub.InnerColor != nil && sub.InnerRadius > 0 {
				appendElement(elemTypeDot, sub, sub.InnerColor, 0, 2*sub.InnerRadius, coords)
			}
		default:
			ex.sink.Warnf("point symbol element of unsupported kind dropped")
		}
	}

	if s.OuterColor != nil && s.OuterWidth > 0 {
		appendElement(elemTypeCircle, s, s.OuterColor, s.OuterWidth, 2*(s.InnerRadius+s.OuterWidth), nil)
	}
	if s.InnerColor != nil && s.InnerRadius > 0 {
		appendElement(elemTypeDot, s, s.InnerColor, 0, 2*s.InnerRadius, nil)
	}
	return b.buf, units
}

// colorIndex resolves a color to its table index, or 0 with a warning for
// colors missing from the table.
func (ex *Exporter) colorIndex(c *model.Color) int16 {
	if c == nil {
		return 0
	}
	if i := ex.m.FindColorIndex(c); i >= 0 {
		return int16(i)
	}
	ex.sink.Warnf("color %q is not in the color table, writing color 0", c.Name)
	return 0
}

// appendCoords packs a coordinate sequence. Bezier control flags are
// carried by the two points after a curve start; the hole flag is carried
// by the point after the marked one. Dash points keep the dash flag only
// when the owning symbol is a dashed line without a dash symbol; otherwise
// they become corner points.
func appendCoords(b *builder, coords []model.MapCoord, sym model.Symbol) {
	dashFlag := uint8(yFlagCorner)
	if line, ok := sym.(*model.LineSymbol); ok {
		if line.Dashed && (line.DashSymbol == nil || line.DashSymbol.IsEmpty()) {
			dashFlag = yFlagDash
		}
	}
	for i, c := range coords {
		var xf, yf uint8
		if i > 0 && coords[i-1].IsCurveStart() {
			xf |= xFlagCtl1
		} else if i > 1 && coords[i-2].IsCurveStart() {
			xf |= xFlagCtl2
		}
		if c.IsDashPoint() {
			yf |= dashFlag
		}
		if i > 0 && coords[i-1].IsHolePoint() {
			yf |= yFlagHole
		}
		x, y := exportCoord(c, xf, yf)
		b.appendS32(x)
		b.appendS32(y)
	}
}

// ---- objects ----

func (ex *Exporter) exportObjects() {
	for _, layer := range ex.m.Layers {
		for _, obj := range layer.Objects {
			for _, target := range ex.objectTargets(obj) {
				ex.exportObject(obj, target.number, target.sym)
			}
		}
	}
}

type objectTarget struct {
	number int
	sym    model.Symbol
}

// objectTargets resolves the file numbers an object must be written under.
// Objects with a combined symbol fan out into one record per primitive in
// the symbol's use closure; objects with an unknown symbol are written
// with number -1.
func (ex *Exporter) objectTargets(obj model.Object) []objectTarget {
	sym := obj.Common().Sym
	if text, ok := obj.(*model.TextObject); ok {
		if ts, ok := sym.(*model.TextSymbol); ok {
			if n, have := ex.textNumbers[ts][text.HAlign]; have {
				return []objectTarget{{number: n, sym: ts}}
			}
		}
	}
	if n, have := ex.symbolNumbers[sym]; have {
		return []objectTarget{{number: n, sym: sym}}
	}
	if combined, ok := sym.(*model.CombinedSymbol); ok {
		targets := ex.combinedTargets(combined)
		if len(targets) == 0 {
			ex.sink.Warnf("combined symbol %s has no exportable parts, object written with no symbol", combined.NumberString())
			return []objectTarget{{number: -1, sym: nil}}
		}
		return targets
	}
	ex.sink.Warnf("object references a symbol missing from the symbol table, written with no symbol")
	return []objectTarget{{number: -1, sym: nil}}
}

// combinedTargets resolves a combined symbol to the primitives in its use
// closure, in symbol table order. Combined symbols have no record of their
// own and contribute no target themselves.
func (ex *Exporter) combinedTargets(sym *model.CombinedSymbol) []objectTarget {
	if ex.closure == nil {
		ex.closure = ex.m.SymbolUseClosure()
	}
	idx := ex.m.FindSymbolIndex(sym)
	if idx < 0 {
		return nil
	}
	var targets []objectTarget
	for i, part := range ex.m.Symbols {
		if !ex.closure[idx][i] {
			continue
		}
		if ts, ok := part.(*model.TextSymbol); ok {
			for _, a := range []model.HorizontalAlignment{model.AlignLeft, model.AlignHCenter, model.AlignRight} {
				if n, have := ex.textNumbers[ts][a]; have {
					targets = append(targets, objectTarget{number: n, sym: ts})
					break
				}
			}
			continue
		}
		if n, have := ex.symbolNumbers[part]; have {
			targets = append(targets, objectTarget{number: n, sym: part})
		}
	}
	return targets
}

func (ex *Exporter) exportObject(obj model.Object, number int, partSym model.Symbol) {
	rec := &builder{}
	var coords []model.MapCoord
	var text []byte
	var angle int16
	var objType uint8
	unicode := uint8(0)

	switch o := obj.(type) {
	case *model.PointObject:
		objType = objTypePoint
		coords = []model.MapCoord{o.Position()}
		angle = exportRotation(o.Rotation)
	case *model.PathObject:
		objType = objTypePath
		if _, isArea := partSym.(*model.AreaSymbol); isArea {
			objType = objTypeArea
		}
		coords = o.Coords
		angle = exportRotation(o.PatternRotation)
	case *model.TextObject:
		angle = exportRotation(o.Rotation)
		unicode = 1
		text = encodeWideString(o.Text, ex.wideEncoding)
		if o.HasBox {
			objType = objTypeTextBox
			coords = ex.textBoxCorners(o)
		} else {
			objType = objTypeText
			coords = ex.anchoredTextCoords(o)
		}
	default:
		return
	}

	rec.appendS16(clampS16(number))
	rec.appendU8(objType)
	rec.appendU8(unicode)
	rec.appendU16(uint16(len(coords)))
	rec.appendU16(uint16(len(text) / 8))
	rec.appendS16(angle)
	rec.appendU16(0)
	appendCoords(rec, coords, partSym)
	rec.appendBytes(text)

	pos := ex.b.appendBytes(rec.buf)

	minX, minY := int32(math.MaxInt32), int32(math.MaxInt32)
	maxX, maxY := int32(math.MinInt32), int32(math.MinInt32)
	for _, c := range coords {
		x := int32(roundUnits(c.X))
		y := int32(-roundUnits(c.Y))
		if x < minX {
			minX = x
		}
		if x > maxX {
			maxX = x
		}
		if y < minY {
			minY = y
		}
		if y > maxY {
			maxY = y
		}
	}
	if len(coords) == 0 {
		minX, minY, maxX, maxY = 0, 0, 0, 0
	}

	ex.objectRecords = append(ex.objectRecords, objectRecord{
		pos:    uint32(pos),
		size:   uint16(rec.len()),
		symbol: clampS16(number),
		minX:   minX, minY: minY, maxX: maxX, maxY: maxY,
	})
}

// rotateCCW rotates a vector counterclockwise in the on-paper sense (the
// map's Y axis grows downwards).
func rotateCCW(v model.MapCoordF, angle float64) model.MapCoordF {
	sin, cos := math.Sincos(angle)
	return model.MapCoordF{
		X: v.X*cos + v.Y*sin,
		Y: -v.X*sin + v.Y*cos,
	}
}

// textBoxCorners returns the box corners bottom-left, bottom-right,
// top-right, top-left around the anchor. The top edge is raised by the
// metric overhang, mirroring the shift applied on import.
func (ex *Exporter) textBoxCorners(o *model.TextObject) []model.MapCoord {
	center := o.Anchor().ToF()
	hw := float64(o.BoxWidth) / 2
	hh := float64(o.BoxHeight) / 2
	top := -hh
	if sym, ok := o.Sym.(*model.TextSymbol); ok {
		metrics := sym.Metrics()
		top -= float64(metrics.Ascent + metrics.Descent - sym.FontSize)
	}
	offsets := []model.MapCoordF{
		{X: -hw, Y: hh},
		{X: hw, Y: hh},
		{X: hw, Y: top},
		{X: -hw, Y: top},
	}
	corners := make([]model.MapCoord, 4)
	for i, off := range offsets {
		corners[i] = center.Add(rotateCCW(off, o.Rotation)).ToCoord()
	}
	return corners
}

// anchoredTextCoords returns the anchor at the first baseline followed by
// the four extent corners. Non-baseline vertical alignments are shifted
// onto the baseline using the font metrics.
func (ex *Exporter) anchoredTextCoords(o *model.TextObject) []model.MapCoord {
	sym, _ := o.Sym.(*model.TextSymbol)
	if sym == nil {
		return []model.MapCoord{o.Anchor()}
	}
	metrics := sym.Metrics()
	lineHeight := int(float64(metrics.LineHeight) * sym.LineSpacing)
	if lineHeight <= 0 {
		lineHeight = metrics.LineHeight
	}

	lines := o.LayoutLines()
	n := len(lines)
	if n == 0 {
		n = 1
	}
	maxWidth := 0
	for _, l := range lines {
		if l.Width > maxWidth {
			maxWidth = l.Width
		}
	}
	height := metrics.Ascent + (n-1)*lineHeight + metrics.Descent

	var dy float64
	switch o.VAlign {
	case model.AlignTop:
		dy = float64(metrics.Ascent)
	case model.AlignVCenter:
		dy = float64(metrics.Ascent) - float64(height)/2
	case model.AlignBottom:
		dy = float64(metrics.Ascent) - float64(height)
	}

	var left float64
	switch o.HAlign {
	case model.AlignHCenter:
		left = -float64(maxWidth) / 2
	case model.AlignRight:
		left = -float64(maxWidth)
	}

	center := o.Anchor().ToF()
	anchor := center.Add(rotateCCW(model.MapCoordF{Y: dy}, o.Rotation))
	top := dy - float64(metrics.Ascent)
	bottom := top + float64(height)

	cornerOffsets := []model.MapCoordF{
		{X: left, Y: bottom},
		{X: left + float64(maxWidth), Y: bottom},
		{X: left + float64(maxWidth), Y: top},
		{X: left, Y: top},
	}
	coords := make([]model.MapCoord, 0, 5)
	coords = append(coords, anchor.ToCoord())
	for _, off := range cornerOffsets {
		coords = append(coords, center.Add(rotateCCW(off, o.Rotation)).ToCoord())
	}
	return coords
}

// ---- strings ----

func (ex *Exporter) exportStrings() {
	for _, tpl := range ex.m.Templates {
		rec := &builder{}
		rec.appendS32(int32(roundUnits(tpl.OffsetX)))
		rec.appendS32(int32(-roundUnits(tpl.OffsetY)))
		rec.appendS32(int32(exportRotation(tpl.Rotation)))
		rec.appendS32(exportTemplateScale(tpl.ScaleX, ex.m.ScaleDenominator))
		rec.appendS32(exportTemplateScale(tpl.ScaleY, ex.m.ScaleDenominator))
		rec.appendS16(clampS16(tpl.Dimming))
		rec.appendS16(clampS16(tpl.Transparency))
		rec.appendZeros(12)
		rec.appendBytes(encodeCString(tpl.Path, ex.byteEncoding))

		pos := ex.b.appendBytes(rec.buf)
		ex.stringRecords = append(ex.stringRecords, stringRecord{
			pos:  uint32(pos),
			size: uint32(rec.len()),
			typ:  stringTypeTemplate,
		})
	}
}

// ---- index blocks ----

func (ex *Exporter) writeSymbolIndex() uint32 {
	return writeIndexChain(ex.b, len(ex.symbolRecords), symbolIndexEntrySize, func(b *builder, i int) {
		b.appendU32(ex.symbolRecords[i].pos)
	})
}

func (ex *Exporter) writeObjectIndex() uint32 {
	return writeIndexChain(ex.b, len(ex.objectRecords), objectIndexEntrySize, func(b *builder, i int) {
		r := ex.objectRecords[i]
		b.appendS32(r.minX)
		b.appendS32(r.minY)
		b.appendS32(r.maxX)
		b.appendS32(r.maxY)
		b.appendU32(r.pos)
		b.appendU16(r.size)
		b.appendS16(r.symbol)
	})
}

func (ex *Exporter) writeStringIndex() uint32 {
	return writeIndexChain(ex.b, len(ex.stringRecords), stringIndexEntrySize, func(b *builder, i int) {
		r := ex.stringRecords[i]
		b.appendU32(r.pos)
		b.appendU32(r.size)
		b.appendS32(r.typ)
	})
}

// writeIndexChain appends the linked index blocks for n records. The
// blocks are contiguous, so each block's link to the next is known when
// it is written; the last block links to 0.
func writeIndexChain(b *builder, n, entrySize int, appendEntry func(b *builder, i int)) uint32 {
	if n == 0 {
		return 0
	}
	blockSize := 4 + indexBlockSlots*entrySize
	nBlocks := (n + indexBlockSlots - 1) / indexBlockSlots
	first := uint32(b.len())
	for blk := 0; blk < nBlocks; blk++ {
		if blk < nBlocks-1 {
			b.appendU32(uint32(b.len() + blockSize))
		} else {
			b.appendU32(0)
		}
		for slot := 0; slot < indexBlockSlots; slot++ {
			i := blk*indexBlockSlots + slot
			if i < n {
				appendEntry(b, i)
			} else {
				b.appendZeros(entrySize)
			}
		}
	}
	return first
}
