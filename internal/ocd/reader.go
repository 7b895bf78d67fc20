package ocd

import (
	"encoding/binary"
	"fmt"
	"math"

	"golang.org/x/text/encoding"

	"github.com/kjetilk/mapper/internal/img"
	"github.com/kjetilk/mapper/internal/model"
)

// Sniff reports whether the data starts with the file magic.
func Sniff(data []byte) bool {
	return len(data) >= 2 && binary.LittleEndian.Uint16(data) == magic
}

// Importer reads one binary file into a fresh map. An Importer carries the
// per-operation state (symbol cross-reference, text alignment side table)
// and is used for a single Import call.
type Importer struct {
	byteEncoding encoding.Encoding
	wideEncoding encoding.Encoding
	sink         WarningSink

	data        []byte
	m           *model.Map
	symbolsOnly bool

	// file symbol number -> imported symbol
	symbolIndex map[int]model.Symbol
	// file symbol number -> horizontal alignment of its text objects
	textAlign map[int]model.HorizontalAlignment
	// file symbol number -> rectangle construction info
	rectangles map[int]*rectangleInfo
}

// rectangleInfo is the transient description of a rectangle symbol; its
// objects are expanded into border, grid and cell number objects.
type rectangleInfo struct {
	borderLine       *model.LineSymbol
	cornerRadius     int
	hasGrid          bool
	numberFromBottom bool
	cellWidth        int
	cellHeight       int
	unnumberedCells  int
	unnumberedText   string
	gridLine         *model.LineSymbol
	numberText       *model.TextSymbol
}

// NewImporter creates an importer reporting through sink. A nil sink
// discards warnings.
func NewImporter(sink WarningSink) *Importer {
	return &Importer{
		byteEncoding: defaultByteEncoding,
		wideEncoding: defaultWideEncoding,
		sink:         sinkOrDiscard(sink),
		symbolIndex:  make(map[int]model.Symbol),
		textAlign:    make(map[int]model.HorizontalAlignment),
		rectangles:   make(map[int]*rectangleInfo),
	}
}

// SetByteEncoding overrides the 1-byte text encoding (default Windows-1252).
func (im *Importer) SetByteEncoding(enc encoding.Encoding) { im.byteEncoding = enc }

// SetWideEncoding overrides the 2-byte text encoding (default UTF-16LE).
func (im *Importer) SetWideEncoding(enc encoding.Encoding) { im.wideEncoding = enc }

// SetSymbolsOnly restricts the import to the color and symbol tables; the
// object index is not walked at all.
func (im *Importer) SetSymbolsOnly(on bool) { im.symbolsOnly = on }

// Import parses a complete file.
func (im *Importer) Import(data []byte) (*model.Map, error) {
	if !Sniff(data) {
		return nil, ErrFormat
	}
	if len(data) < headerSize {
		return nil, fmt.Errorf("file too short for header: %d bytes", len(data))
	}
	version := int(binary.LittleEndian.Uint16(data[hdrVersion:]))
	if version <= versionMin || version >= versionMax {
		return nil, &VersionError{Version: version}
	}

	im.data = data
	im.m = model.NewMap()

	hdr := newCursor(data)
	hdr.seek(hdrFirstSymBlk)
	firstSymBlk := hdr.u32()
	firstObjBlk := hdr.u32()
	firstStrBlk := hdr.u32()
	setupPos := hdr.u32()
	setupSz := hdr.u32()
	infoPos := hdr.u32()
	infoSz := hdr.u32()
	nColors := hdr.u16()
	hdr.u16()
	colorPos := hdr.u32()
	if err := hdr.err(); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	if err := im.importColors(colorPos, int(nColors)); err != nil {
		return nil, fmt.Errorf("read color table: %w", err)
	}
	im.importSetup(setupPos, setupSz)
	im.importInfo(infoPos, infoSz)

	if err := im.walkIndex(firstSymBlk, symbolIndexEntrySize, im.importSymbolEntry); err != nil {
		return nil, fmt.Errorf("read symbols: %w", err)
	}
	if !im.symbolsOnly {
		if err := im.walkIndex(firstObjBlk, objectIndexEntrySize, im.importObjectEntry); err != nil {
			return nil, fmt.Errorf("read objects: %w", err)
		}
	}
	if err := im.walkIndex(firstStrBlk, stringIndexEntrySize, im.importStringEntry); err != nil {
		return nil, fmt.Errorf("read strings: %w", err)
	}

	return im.m, nil
}

// walkIndex follows a linked chain of index blocks and calls handle for
// every non-empty slot.
func (im *Importer) walkIndex(first uint32, entrySize int, handle func(entry []byte)) error {
	blockSize := 4 + indexBlockSlots*entrySize
	seen := make(map[uint32]bool)
	for pos := first; pos != 0; {
		if seen[pos] {
			return fmt.Errorf("index block chain loops at position %d", pos)
		}
		seen[pos] = true
		if int(pos)+blockSize > len(im.data) {
			return fmt.Errorf("index block at position %d exceeds file size", pos)
		}
		block := im.data[pos : int(pos)+blockSize]
		for i := 0; i < indexBlockSlots; i++ {
			entry := block[4+i*entrySize : 4+(i+1)*entrySize]
			empty := true
			for _, b := range entry {
				if b != 0 {
					empty = false
					break
				}
			}
			if !empty {
				handle(entry)
			}
		}
		pos = binary.LittleEndian.Uint32(block)
	}
	return nil
}

func (im *Importer) record(pos uint32, size int) []byte {
	if size < 0 || int(pos)+size > len(im.data) {
		return nil
	}
	return im.data[pos : int(pos)+size]
}

// color returns the map color with the given table index, or nil with a
// warning for out-of-range references.
func (im *Importer) color(index int16) *model.Color {
	if index < 0 || int(index) >= len(im.m.Colors) {
		im.sink.Warnf("reference to undefined color %d dropped", index)
		return nil
	}
	return im.m.Colors[index]
}

func (im *Importer) importColors(pos uint32, n int) error {
	table := im.record(pos, n*colorEntrySize)
	if table == nil {
		return fmt.Errorf("color table at position %d (%d entries) exceeds file size", pos, n)
	}
	for i := 0; i < n; i++ {
		c := newCursor(table[i*colorEntrySize : (i+1)*colorEntrySize])
		// Priorities are the dense table index; the stored number may
		// have gaps and is not carried over.
		c.s16()
		color := model.NewColor(i)
		color.C = convertColorComponent(c.u16())
		color.M = convertColorComponent(c.u16())
		color.Y = convertColorComponent(c.u16())
		color.K = convertColorComponent(c.u16())
		name, err := decodePascalString(c.bytes(32), im.byteEncoding)
		if err != nil {
			im.sink.Warnf("color %d: undecodable name dropped: %v", i, err)
		}
		color.Name = name
		color.UpdateFromCMYK()
		im.m.AddColor(color)
	}
	return nil
}

func (im *Importer) importSetup(pos, size uint32) {
	if size < setupSize {
		return
	}
	block := im.record(pos, int(size))
	if block == nil {
		im.sink.Warnf("setup block at position %d exceeds file size, view dropped", pos)
		return
	}
	c := newCursor(block)
	view := model.NewView()
	view.CenterX = int64(c.s32()) * unitFactor
	view.CenterY = -int64(c.s32()) * unitFactor
	if scale := c.u32(); scale > 0 {
		im.m.ScaleDenominator = int(scale)
	}
	view.SetZoom(c.f64())
	im.m.SetView(view)
}

func (im *Importer) importInfo(pos, size uint32) {
	if size == 0 {
		return
	}
	block := im.record(pos, int(size))
	if block == nil {
		im.sink.Warnf("info block at position %d exceeds file size, notes dropped", pos)
		return
	}
	notes, err := decodeCString(block, im.byteEncoding)
	if err != nil {
		im.sink.Warnf("undecodable map notes dropped: %v", err)
		return
	}
	im.m.Notes = notes
}

// ---- symbols ----

func (im *Importer) importSymbolEntry(entry []byte) {
	pos := binary.LittleEndian.Uint32(entry)
	if int(pos)+2 > len(im.data) {
		im.sink.Warnf("symbol record at position %d exceeds file size, skipped", pos)
		return
	}
	size := int(binary.LittleEndian.Uint16(im.data[pos:]))
	rec := im.record(pos, size)
	if rec == nil || size < symBaseSize {
		im.sink.Warnf("symbol record at position %d is malformed, skipped", pos)
		return
	}
	if err := im.importSymbol(rec); err != nil {
		im.sink.Warnf("symbol record at position %d skipped: %v", pos, err)
	}
}

func (im *Importer) importSymbol(rec []byte) error {
	c := newCursor(rec)
	c.u16() // size
	number := int(c.s16())
	symType := c.u8()
	baseFlags := c.u8()
	status := c.u8()
	c.u8()
	c.s16() // extent, recomputed on export
	c.skip(symColorsLen)
	name, err := decodePascalString(c.bytes(symNameLen), im.byteEncoding)
	if err != nil {
		im.sink.Warnf("symbol %d: undecodable name dropped: %v", number, err)
	}
	icon := decodeIcon(c.bytes(symIconLen))
	if err := c.err(); err != nil {
		return err
	}

	var sym model.Symbol
	switch symType {
	case symTypePoint:
		sym, err = im.importPointSymbol(c, baseFlags)
	case symTypeLine:
		sym, err = im.importLineSymbol(c, name, number)
	case symTypeArea:
		sym, err = im.importAreaSymbol(c, baseFlags)
	case symTypeText:
		sym, err = im.importTextSymbol(c, number)
	case symTypeRect:
		sym, err = im.importRectSymbol(c, name, number)
	default:
		return fmt.Errorf("unknown symbol type %d", symType)
	}
	if err != nil {
		return err
	}
	if sym == nil {
		// rectangle symbols register their own expansion symbols
		return nil
	}

	common := sym.Common()
	common.Name = name
	common.Number = [3]int{number / 10, number % 10, -1}
	common.Protected = status&statusProtected != 0
	common.Hidden = status&statusHidden != 0
	common.Icon = icon

	im.m.AddSymbol(sym)
	im.symbolIndex[number] = sym
	return nil
}

func (im *Importer) importPointSymbol(c *cursor, baseFlags uint8) (model.Symbol, error) {
	dataSize := int(c.s16())
	c.s16()
	if err := c.err(); err != nil {
		return nil, err
	}
	sym := &model.PointSymbol{Rotatable: baseFlags&baseFlagRotatable != 0}
	if err := im.importPattern(c.bytes(dataSize*8), sym); err != nil {
		return nil, err
	}
	return sym, c.err()
}

// symbolNumberString formats a file symbol number for warnings.
func symbolNumberString(number int) string {
	return fmt.Sprintf("%d.%d", number/10, number%10)
}

// importLineSymbol builds up to two line symbols from one record: a main
// line when the fill requires it, and a double line when double mode is on.
// When both exist they are stacked as the two parts of a combined symbol.
func (im *Importer) importLineSymbol(c *cursor, name string, number int) (model.Symbol, error) {
	var f [lineFieldCount]int16
	for i := range f {
		f[i] = c.s16()
	}
	if err := c.err(); err != nil {
		return nil, err
	}
	num := symbolNumberString(number)

	mainLen := f[lineFieldMainLength]
	endLen := f[lineFieldEndLength]
	mainGap := f[lineFieldMainGap]
	secGap := f[lineFieldSecGap]
	endGap := f[lineFieldEndGap]

	var main *model.LineSymbol
	if f[lineFieldDoubleMode] == 0 || f[lineFieldWidth] > 0 {
		main = &model.LineSymbol{
			Color:         im.color(f[lineFieldColor]),
			LineWidth:     convertSize(f[lineFieldWidth]),
			MinimumLength: convertSize(f[lineFieldMinLength]),
		}
		im.importLineEnds(main, f[lineFieldEnds], num)
		if main.Cap == model.PointedCap {
			bdist := convertSize(f[lineFieldDistFromStart])
			edist := convertSize(f[lineFieldDistToEnd])
			if bdist != edist {
				im.sink.Warnf("line symbol %s: different pointed cap lengths at the two line ends (%d and %d), using the average", num, bdist, edist)
			}
			main.PointedCapLength = (bdist + edist) / 2
			main.Join = model.RoundJoin
		}

		switch {
		case mainGap > 0 || secGap > 0:
			main.Dashed = true
			if secGap > 0 && mainGap == 0 {
				// Secondary gap without a main gap: the dash is the
				// segment length minus that gap.
				main.DashLength = convertSize(mainLen - secGap)
				main.BreakLength = convertSize(secGap)
				if endLen < mainLen/2-1 || endLen > mainLen/2+1 {
					im.sink.Warnf("line symbol %s: the end length cannot be imported correctly", num)
				}
				if endGap != 0 {
					im.sink.Warnf("line symbol %s: the end gap cannot be imported correctly", num)
				}
			} else {
				if mainLen != endLen {
					if endLen >= mainLen/2-1 && endLen <= mainLen/2+1 {
						main.HalfOuterDashes = true
					} else {
						im.sink.Warnf("line symbol %s: main and end length are different (%d and %d), using %d", num, mainLen, endLen, mainLen)
					}
				}
				main.DashLength = convertSize(mainLen)
				main.BreakLength = convertSize(mainGap)
				if secGap > 0 {
					main.DashesInGroup = 2
					if secGap != endGap {
						im.sink.Warnf("line symbol %s: the gaps inside and after a dash group are different (%d and %d), using %d", num, secGap, endGap, secGap)
					}
					main.InGroupBreakLength = convertSize(secGap)
					main.DashLength = (main.DashLength - main.InGroupBreakLength) / 2
				}
			}
		default:
			main.SegmentLength = convertSize(mainLen)
			main.EndLength = convertSize(endLen)
		}
	}

	var double *model.LineSymbol
	if f[lineFieldDoubleMode] > 0 {
		double = &model.LineSymbol{
			LineWidth:     convertSize(f[lineFieldDoubleWidth]),
			Cap:           model.FlatCap,
			Join:          model.MiterJoin,
			SegmentLength: convertSize(mainLen),
			EndLength:     convertSize(endLen),
		}
		if f[lineFieldDoubleFlags]&dblFlagFilled != 0 {
			double.Color = im.color(f[lineFieldDoubleFillColor])
		}
		if f[lineFieldLeftWidth] > 0 || f[lineFieldRightWidth] > 0 {
			double.HaveBorderLines = true
			if f[lineFieldLeftColor] != f[lineFieldRightColor] {
				im.sink.Warnf("line symbol %s: left and right borders have different colors (%d and %d), using %d", num, f[lineFieldLeftColor], f[lineFieldRightColor], f[lineFieldLeftColor])
			}
			double.BorderColor = im.color(f[lineFieldLeftColor])
			if f[lineFieldLeftWidth] != f[lineFieldRightWidth] {
				im.sink.Warnf("line symbol %s: left and right borders have different widths (%d and %d), using %d", num, f[lineFieldLeftWidth], f[lineFieldRightWidth], f[lineFieldLeftWidth])
			}
			double.BorderWidth = convertSize(f[lineFieldLeftWidth])
			double.BorderShift = double.BorderWidth / 2
			if f[lineFieldDoubleGap] > 0 && f[lineFieldDoubleMode] > 1 {
				double.DashedBorder = true
				double.BorderDashLength = convertSize(f[lineFieldDoubleLength])
				double.BorderBreakLength = convertSize(f[lineFieldDoubleGap])
				if f[lineFieldDoubleMode] == 2 {
					im.sink.Warnf("line symbol %s: ignoring that only the left border line should be dashed", num)
				}
			}
		}
	}

	// Decoration patterns follow in fixed order and attach to the main
	// line when there is one. The secondary pattern slot has no model
	// counterpart and is skipped.
	carrier := main
	if carrier == nil {
		carrier = double
	}
	carrier.MidSymbol = im.importDecoration(c, int(f[lineFieldMainCount]))
	carrier.MidSymbolsPerSpot = int(f[lineFieldSymbolsPerSpot])
	carrier.MidSymbolDistance = convertSize(f[lineFieldSymbolDistance])
	if n := int(f[lineFieldSecCount]); n > 0 {
		c.skip(n * 8)
	}
	carrier.DashSymbol = im.importDecoration(c, int(f[lineFieldCornerCount]))
	carrier.StartSymbol = im.importDecoration(c, int(f[lineFieldStartCount]))
	carrier.EndSymbol = im.importDecoration(c, int(f[lineFieldEndCount]))

	if f[lineFieldFrameWidth] > 0 {
		im.sink.Warnf("line symbol %s: ignoring framing line", num)
	}

	if double == nil {
		return main, c.err()
	}
	if main == nil {
		return double, c.err()
	}

	// Both a filled main line and a double line: stack them. The parts
	// keep their own hidden/protected flags, both unset.
	main.Name = name
	main.Number = [3]int{number / 10, number % 10, 1}
	double.Name = name
	double.Number = [3]int{number / 10, number % 10, 2}
	im.m.AddSymbol(main)
	im.m.AddSymbol(double)
	return &model.CombinedSymbol{Parts: []model.Symbol{main, double}}, c.err()
}

// importLineEnds decodes the combined cap/join field.
func (im *Importer) importLineEnds(sym *model.LineSymbol, ends int16, num string) {
	switch ends {
	case 0:
		sym.Cap, sym.Join = model.FlatCap, model.BevelJoin
	case 1:
		sym.Cap, sym.Join = model.RoundCap, model.RoundJoin
	case 2:
		sym.Cap, sym.Join = model.PointedCap, model.BevelJoin
	case 3:
		sym.Cap, sym.Join = model.PointedCap, model.RoundJoin
	case 4:
		sym.Cap, sym.Join = model.FlatCap, model.MiterJoin
	case 6:
		sym.Cap, sym.Join = model.PointedCap, model.MiterJoin
	default:
		im.sink.Warnf("line symbol %s: unknown line end style %d, using flat caps", num, ends)
		sym.Cap, sym.Join = model.FlatCap, model.BevelJoin
	}
}

func (im *Importer) importDecoration(c *cursor, units int) *model.PointSymbol {
	if units <= 0 {
		return nil
	}
	data := c.bytes(units * 8)
	if data == nil {
		return nil
	}
	sym := &model.PointSymbol{Rotatable: true}
	if err := im.importPattern(data, sym); err != nil {
		im.sink.Warnf("line symbol: malformed decoration pattern dropped: %v", err)
		return nil
	}
	if sym.IsEmpty() {
		return nil
	}
	return sym
}

func (im *Importer) importAreaSymbol(c *cursor, baseFlags uint8) (model.Symbol, error) {
	var f [areaFieldCount]int16
	for i := range f {
		f[i] = c.s16()
	}
	if err := c.err(); err != nil {
		return nil, err
	}

	sym := &model.AreaSymbol{}
	if f[areaFieldFillOn] != 0 {
		sym.Color = im.color(f[areaFieldFillColor])
	}

	rotatable := baseFlags&baseFlagRotatable != 0
	if mode := f[areaFieldHatchMode]; mode >= 1 {
		hatch := model.FillPattern{
			Type:        model.LinePattern,
			Angle:       convertRotation(f[areaFieldHatchAngle1]),
			Rotatable:   rotatable,
			LineColor:   im.color(f[areaFieldHatchColor]),
			LineWidth:   convertSize(f[areaFieldHatchLineWidth]),
			LineSpacing: convertSize(f[areaFieldHatchDist] + f[areaFieldHatchLineWidth]),
		}
		sym.Patterns = append(sym.Patterns, hatch)
		if mode >= 2 {
			cross := hatch
			cross.Angle = convertRotation(f[areaFieldHatchAngle2])
			// The file's cross hatch spacing excludes the line width.
			cross.LineSpacing = convertSize(f[areaFieldHatchDist])
			sym.Patterns = append(sym.Patterns, cross)
		}
	}

	structMode := f[areaFieldStructMode]
	point := (*model.PointSymbol)(nil)
	if n := int(f[areaFieldDataSize]); n > 0 {
		point = &model.PointSymbol{Rotatable: true}
		if err := im.importPattern(c.bytes(n*8), point); err != nil {
			return nil, err
		}
	}
	if structMode >= 1 && point != nil {
		grid := model.FillPattern{
			Type:          model.PointPattern,
			Angle:         convertRotation(f[areaFieldStructAngle]),
			Rotatable:     rotatable,
			PointDistance: convertSize(f[areaFieldStructWidth]),
			LineSpacing:   convertSize(f[areaFieldStructHeight]),
			Point:         point,
		}
		if structMode == 1 {
			sym.Patterns = append(sym.Patterns, grid)
		} else {
			// Staggered rows: two aligned patterns at twice the row
			// spacing, the second shifted by half a cell.
			grid.LineSpacing *= 2
			second := grid
			second.LineOffset = convertSize(f[areaFieldStructHeight])
			second.OffsetAlongLine = convertSize(f[areaFieldStructWidth]) / 2
			sym.Patterns = append(sym.Patterns, grid, second)
		}
	}
	return sym, c.err()
}

func (im *Importer) importTextSymbol(c *cursor, number int) (model.Symbol, error) {
	num := symbolNumberString(number)
	font, err := decodePascalString(c.bytes(textFontNameLen), im.byteEncoding)
	if err != nil {
		im.sink.Warnf("text symbol %s: undecodable font name dropped: %v", num, err)
	}
	var f [textFieldCount]int16
	for i := range f {
		f[i] = c.s16()
	}
	tabs := make([]int32, textMaxTabs)
	for i := range tabs {
		tabs[i] = c.s32()
	}
	if err := c.err(); err != nil {
		return nil, err
	}

	sym := &model.TextSymbol{
		FontFamily:       font,
		FontSize:         convertFontSize(f[textFieldSize]),
		Bold:             f[textFieldWeight] >= 550,
		Italic:           f[textFieldItalic] != 0,
		Kerning:          true,
		Color:            im.color(f[textFieldColor]),
		CharacterSpacing: float64(f[textFieldCharSpace]) / 100,
		ParagraphSpacing: convertSize(f[textFieldParaSpace]),
	}
	// The file's line spacing is a percentage of the em size; the model
	// factor is relative to the metric line height of 1.2 em.
	sym.LineSpacing = float64(f[textFieldLineSpace]) / 120

	if w := f[textFieldWeight]; w != 400 && w != 700 {
		im.sink.Warnf("text symbol %s: ignoring custom weight (%d)", num, w)
	}
	if f[textFieldCharSpace] != 0 {
		im.sink.Warnf("text symbol %s: custom character spacing is set and may not be reproduced exactly", num)
	}
	if f[textFieldWordSpace] != 100 {
		im.sink.Warnf("text symbol %s: ignoring custom word spacing (%d%%)", num, f[textFieldWordSpace])
	}
	if f[textFieldIndentFirst] != 0 || f[textFieldIndentOther] != 0 {
		im.sink.Warnf("text symbol %s: ignoring custom indents (%d/%d)", num, f[textFieldIndentFirst], f[textFieldIndentOther])
	}

	if f[textFieldLineBelowOn] != 0 {
		sym.LineBelow = true
		sym.LineBelowColor = im.color(f[textFieldLineBelowColor])
		sym.LineBelowWidth = convertSize(f[textFieldLineBelowWidth])
		sym.LineBelowDistance = convertSize(f[textFieldLineBelowDist])
	}

	nTabs := int(f[textFieldNumTabs])
	if nTabs > textMaxTabs {
		nTabs = textMaxTabs
	}
	for i := 0; i < nTabs; i++ {
		sym.CustomTabs = append(sym.CustomTabs, int(tabs[i])*unitFactor)
	}

	switch f[textFieldFrameMode] {
	case 0:
	case 1:
		sym.Framing = model.ShadowFraming
		sym.FramingColor = im.color(f[textFieldFrameColor])
		sym.FramingShadowX = convertSize(f[textFieldFrameShadowX])
		sym.FramingShadowY = -convertSize(f[textFieldFrameShadowY])
	case 2:
		sym.Framing = model.LineFraming
		sym.FramingColor = im.color(f[textFieldFrameColor])
		sym.FramingLineHalfWidth = convertSize(f[textFieldFrameWidth])
	default:
		im.sink.Warnf("text symbol %s: ignoring text framing (mode %d)", num, f[textFieldFrameMode])
	}

	align := model.AlignLeft
	switch f[textFieldAlignment] {
	case 1:
		align = model.AlignHCenter
	case 2:
		align = model.AlignRight
	case 3:
		im.sink.Warnf("text symbol %s: justified alignment is not supported, using left", num)
	}
	im.textAlign[number] = align

	return sym, nil
}

func (im *Importer) importRectSymbol(c *cursor, name string, number int) (model.Symbol, error) {
	lineColor := c.s16()
	lineWidth := c.s16()
	cornerRadius := c.s16()
	gridFlags := c.u16()
	cellWidth := c.s16()
	cellHeight := c.s16()
	unnumberedCells := c.s16()
	unnumberedText, err := decodePascalString(c.bytes(32), im.byteEncoding)
	if err != nil {
		im.sink.Warnf("rectangle symbol %d: undecodable cell text dropped: %v", number, err)
	}
	c.s16()
	if err := c.err(); err != nil {
		return nil, err
	}

	rect := &rectangleInfo{
		cornerRadius: convertSize(cornerRadius),
		hasGrid:      gridFlags&rectGridFlagGrid != 0,
	}
	rect.borderLine = &model.LineSymbol{
		LineWidth: convertSize(lineWidth),
		Color:     im.color(lineColor),
		Cap:       model.FlatCap,
		Join:      model.RoundJoin,
	}
	rect.borderLine.Name = name
	rect.borderLine.Number = [3]int{number / 10, number % 10, 1}
	im.m.AddSymbol(rect.borderLine)

	if rect.hasGrid {
		rect.numberFromBottom = gridFlags&rectGridFlagNumbered != 0
		rect.cellWidth = convertSize(cellWidth)
		rect.cellHeight = convertSize(cellHeight)
		rect.unnumberedCells = int(unnumberedCells)
		rect.unnumberedText = unnumberedText

		rect.gridLine = &model.LineSymbol{
			LineWidth: 150,
			Color:     rect.borderLine.Color,
			Cap:       model.FlatCap,
			Join:      model.MiterJoin,
		}
		rect.gridLine.Name = name + " grid"
		rect.gridLine.Number = [3]int{number / 10, number % 10, 2}
		im.m.AddSymbol(rect.gridLine)

		rect.numberText = &model.TextSymbol{
			FontFamily: "Arial",
			FontSize:   convertFontSize(150),
			Bold:       true,
			Kerning:    true,
			Color:      rect.borderLine.Color,
		}
		rect.numberText.LineSpacing = 1
		rect.numberText.Name = name + " numbers"
		rect.numberText.Number = [3]int{number / 10, number % 10, 3}
		im.m.AddSymbol(rect.numberText)
	}

	im.rectangles[number] = rect
	return nil, nil
}

// importPattern parses point symbol pattern elements into sym. A pattern
// consisting of a single dot or circle collapses onto the symbol itself
// instead of producing a sub-element.
func (im *Importer) importPattern(data []byte, sym *model.PointSymbol) error {
	if data == nil {
		return fmt.Errorf("pattern data exceeds record size")
	}
	type element struct {
		typ       int16
		color     *model.Color
		lineWidth int
		diameter  int
		coords    []model.MapCoord
	}
	var elements []element

	c := newCursor(data)
	for c.remaining() >= patternElementHeaderSize {
		typ := c.s16()
		c.u16()
		colorIdx := c.s16()
		lineWidth := c.s16()
		diameter := c.s16()
		npts := int(c.s16())
		c.skip(4)
		if npts < 0 || c.remaining() < npts*coordSize {
			return fmt.Errorf("pattern element wants %d points, %d bytes left", npts, c.remaining())
		}
		el := element{
			typ:       typ,
			color:     im.color(colorIdx),
			lineWidth: convertSize(lineWidth),
			diameter:  convertSize(diameter),
		}
		isArea := typ == elemTypeArea
		for i := 0; i < npts; i++ {
			coord, xf, yf := convertCoord(c.s32(), c.s32())
			if xf&xFlagCtl1 != 0 && len(el.coords) > 0 {
				el.coords[len(el.coords)-1].SetCurveStart(true)
			}
			if yf&(yFlagDash|yFlagCorner) != 0 {
				coord.SetDashPoint(true)
			}
			if yf&yFlagHole != 0 {
				if isArea && len(el.coords) > 0 {
					el.coords[len(el.coords)-1].SetHolePoint(true)
				} else {
					coord.SetHolePoint(true)
				}
			}
			el.coords = append(el.coords, coord)
		}
		// Degenerate dots and circles draw nothing and are dropped.
		switch typ {
		case elemTypeLine, elemTypeArea:
			elements = append(elements, el)
		case elemTypeCircle:
			if el.lineWidth > 0 && el.diameter/2-el.lineWidth > 0 {
				elements = append(elements, el)
			}
		case elemTypeDot:
			if el.diameter/2 > 0 {
				elements = append(elements, el)
			}
		default:
			im.sink.Warnf("unknown pattern element type %d dropped", typ)
		}
	}
	if err := c.err(); err != nil {
		return err
	}

	atOrigin := func(el element) bool {
		return len(el.coords) == 0 || (len(el.coords) == 1 && el.coords[0].X == 0 && el.coords[0].Y == 0)
	}
	if len(elements) == 1 && atOrigin(elements[0]) {
		switch elements[0].typ {
		case elemTypeCircle:
			sym.OuterColor = elements[0].color
			sym.OuterWidth = elements[0].lineWidth
			sym.InnerRadius = elements[0].diameter/2 - elements[0].lineWidth
			return nil
		case elemTypeDot:
			sym.InnerColor = elements[0].color
			sym.InnerRadius = elements[0].diameter / 2
			return nil
		}
	}

	for _, el := range elements {
		switch el.typ {
		case elemTypeLine:
			line := &model.LineSymbol{
				Color:     el.color,
				LineWidth: el.lineWidth,
				Cap:       model.FlatCap,
				Join:      model.MiterJoin,
			}
			obj := model.NewPathObject(line)
			obj.Coords = el.coords
			obj.RecalculateParts()
			sym.AddElement(line, obj)
		case elemTypeArea:
			area := &model.AreaSymbol{Color: el.color}
			obj := model.NewPathObject(area)
			obj.Coords = el.coords
			obj.RecalculateParts()
			sym.AddElement(area, obj)
		case elemTypeCircle:
			circle := &model.PointSymbol{
				OuterColor:  el.color,
				OuterWidth:  el.lineWidth,
				InnerRadius: el.diameter/2 - el.lineWidth,
			}
			obj := model.NewPointObject(circle)
			if len(el.coords) > 0 {
				obj.SetPosition(el.coords[0])
			}
			sym.AddElement(circle, obj)
		case elemTypeDot:
			dot := &model.PointSymbol{
				InnerColor:  el.color,
				InnerRadius: el.diameter / 2,
			}
			obj := model.NewPointObject(dot)
			if len(el.coords) > 0 {
				obj.SetPosition(el.coords[0])
			}
			sym.AddElement(dot, obj)
		}
	}
	return nil
}

// ---- objects ----

func (im *Importer) importObjectEntry(entry []byte) {
	c := newCursor(entry)
	c.skip(16) // bounding rect, recomputed on export
	pos := c.u32()
	size := int(c.u16())
	c.s16()

	rec := im.record(pos, size)
	if rec == nil || size < objectHeaderSize {
		im.sink.Warnf("object record at position %d is malformed, skipped", pos)
		return
	}
	if err := im.importObject(rec); err != nil {
		im.sink.Warnf("object record at position %d skipped: %v", pos, err)
	}
}

func (im *Importer) importObject(rec []byte) error {
	c := newCursor(rec)
	symNumber := int(c.s16())
	objType := c.u8()
	unicode := c.u8()
	npts := int(c.u16())
	ntext := int(c.u16())
	angle := c.s16()
	c.u16()

	coords, err := im.importCoords(c, npts, objType == objTypeArea)
	if err != nil {
		return err
	}

	if rect, ok := im.rectangles[symNumber]; ok {
		return im.importRectangleObject(rect, coords)
	}

	sym := im.symbolIndex[symNumber]

	switch objType {
	case objTypePoint:
		if sym == nil {
			im.sink.Warnf("object references undefined symbol %d, importing as undefined point", symNumber)
			sym = im.m.UndefinedPoint()
		}
		obj := model.NewPointObject(sym)
		if len(coords) > 0 {
			obj.SetPosition(coords[0])
		}
		obj.Rotation = convertRotation(angle)
		im.m.CurrentLayer().AddObject(obj)

	case objTypePath, objTypeArea:
		if sym == nil {
			im.sink.Warnf("object references undefined symbol %d, importing as undefined line", symNumber)
			sym = im.m.UndefinedLine()
		}
		obj := model.NewPathObject(sym)
		obj.Coords = coords
		obj.PatternRotation = convertRotation(angle)
		obj.RecalculateParts()
		im.m.CurrentLayer().AddObject(obj)

	case objTypeText, objTypeTextBox:
		textSym, ok := sym.(*model.TextSymbol)
		if !ok {
			return fmt.Errorf("text object references non-text symbol %d", symNumber)
		}
		text, err := im.importObjectText(c, ntext, unicode != 0)
		if err != nil {
			return err
		}
		obj := model.NewTextObject(textSym)
		obj.Text = text
		obj.HAlign = im.textAlign[symNumber]
		obj.Rotation = convertRotation(angle)
		if objType == objTypeTextBox {
			if len(coords) < 4 {
				return fmt.Errorf("text box object has %d coordinates, want 4", len(coords))
			}
			im.importTextBox(obj, coords)
		} else {
			if len(coords) < 1 {
				return fmt.Errorf("text object has no coordinates")
			}
			obj.SetAnchor(coords[0])
			obj.VAlign = model.AlignBaseline
		}
		im.m.CurrentLayer().AddObject(obj)

	default:
		return fmt.Errorf("unknown object type %d", objType)
	}
	return nil
}

// importCoords decodes packed coordinates. Area outlines mark the point
// BEFORE a hole-flagged point as the end of the previous ring; plain paths
// start the new sub-path at the flagged point itself.
func (im *Importer) importCoords(c *cursor, npts int, isArea bool) ([]model.MapCoord, error) {
	if npts < 0 || c.remaining() < npts*coordSize {
		return nil, fmt.Errorf("object wants %d coordinates, %d bytes left", npts, c.remaining())
	}
	coords := make([]model.MapCoord, 0, npts)
	for i := 0; i < npts; i++ {
		coord, xf, yf := convertCoord(c.s32(), c.s32())
		if xf&xFlagCtl1 != 0 && len(coords) > 0 {
			coords[len(coords)-1].SetCurveStart(true)
		}
		if yf&(yFlagDash|yFlagCorner) != 0 {
			coord.SetDashPoint(true)
		}
		if yf&yFlagHole != 0 {
			if isArea && len(coords) > 0 {
				coords[len(coords)-1].SetHolePoint(true)
			} else {
				coord.SetHolePoint(true)
			}
		}
		coords = append(coords, coord)
	}
	return coords, c.err()
}

func (im *Importer) importObjectText(c *cursor, ntext int, wide bool) (string, error) {
	data := c.bytes(ntext * 8)
	if data == nil {
		return "", fmt.Errorf("object text exceeds record size")
	}
	if wide {
		return decodeWideString(data, im.wideEncoding)
	}
	return decodeCString(data, im.byteEncoding)
}

// importTextBox derives the word wrap box from the four corner points
// (bottom-left, bottom-right, top-right, top-left). The file box wraps the
// em squares of the text while the model box wraps the line boxes, so the
// center shifts down by the metric overhang.
func (im *Importer) importTextBox(obj *model.TextObject, corners []model.MapCoord) {
	c0, c1, c3 := corners[0].ToF(), corners[1].ToF(), corners[3].ToF()
	width := c1.Sub(c0).Length()
	height := c3.Sub(c0).Length()
	center := c0.Add(corners[2].ToF()).Scale(0.5)
	if sym, ok := obj.Sym.(*model.TextSymbol); ok {
		metrics := sym.Metrics()
		overhang := float64(metrics.Ascent + metrics.Descent - sym.FontSize)
		sin, cos := math.Sincos(obj.Rotation)
		center = center.Add(model.MapCoordF{X: overhang * sin, Y: overhang * cos})
	}
	obj.SetAnchor(center.ToCoord())
	obj.SetBox(int(width+0.5), int(height+0.5))
	obj.VAlign = model.AlignTop
}

// bezierKappa approximates a quarter circle with one cubic segment.
const bezierKappa = 0.5522847498

// importRectangleObject expands a rectangle object into its border path,
// grid lines and cell number texts.
func (im *Importer) importRectangleObject(rect *rectangleInfo, corners []model.MapCoord) error {
	if len(corners) < 4 {
		return fmt.Errorf("rectangle object has %d coordinates, want 4", len(corners))
	}
	c0 := corners[0].ToF() // top left
	c1 := corners[1].ToF() // top right
	c2 := corners[2].ToF() // bottom right

	right := c1.Sub(c0)
	down := c2.Sub(c1)
	width := right.Length()
	height := down.Length()
	if width <= 0 || height <= 0 {
		return fmt.Errorf("degenerate rectangle object")
	}
	right = right.Normalized()
	down = down.Normalized()

	im.m.CurrentLayer().AddObject(im.makeRectanglePath(rect, c0, right, down, width, height))

	if !rect.hasGrid || rect.cellWidth <= 0 || rect.cellHeight <= 0 {
		return nil
	}

	cols := int(width) / rect.cellWidth
	rows := int(height) / rect.cellHeight
	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}
	cellW := width / float64(cols)
	cellH := height / float64(rows)

	for i := 1; i < cols; i++ {
		top := c0.Add(right.Scale(float64(i) * cellW))
		line := model.NewPathObject(rect.gridLine)
		line.Coords = []model.MapCoord{top.ToCoord(), top.Add(down.Scale(height)).ToCoord()}
		line.RecalculateParts()
		im.m.CurrentLayer().AddObject(line)
	}
	for i := 1; i < rows; i++ {
		left := c0.Add(down.Scale(float64(i) * cellH))
		line := model.NewPathObject(rect.gridLine)
		line.Coords = []model.MapCoord{left.ToCoord(), left.Add(right.Scale(width)).ToCoord()}
		line.RecalculateParts()
		im.m.CurrentLayer().AddObject(line)
	}

	if rect.numberText == nil {
		return nil
	}
	metrics := rect.numberText.Metrics()
	total := cols * rows
	num := 0
	for r := 0; r < rows; r++ {
		row := r
		if rect.numberFromBottom {
			row = rows - 1 - r
		}
		for col := 0; col < cols; col++ {
			num++
			text := fmt.Sprintf("%d", num)
			if num > total-rect.unnumberedCells {
				if rect.unnumberedText == "" {
					continue
				}
				text = rect.unnumberedText
			}
			anchor := c0.
				Add(right.Scale(float64(col)*cellW + 0.07*cellW)).
				Add(down.Scale(float64(row)*cellH + 0.04*cellH + float64(metrics.Ascent)))
			obj := model.NewTextObject(rect.numberText)
			obj.Text = text
			obj.SetAnchor(anchor.ToCoord())
			obj.HAlign = model.AlignLeft
			obj.VAlign = model.AlignBaseline
			obj.Rotation = normalizeAngle(right.Angle() * -1)
			im.m.CurrentLayer().AddObject(obj)
		}
	}
	return nil
}

func normalizeAngle(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	if a < 0 {
		a += 2 * math.Pi
	}
	return a
}

// makeRectanglePath builds the border path, with rounded corners when the
// symbol has a corner radius.
func (im *Importer) makeRectanglePath(rect *rectangleInfo, c0, right, down model.MapCoordF, width, height float64) *model.PathObject {
	obj := model.NewPathObject(rect.borderLine)

	r := float64(rect.cornerRadius)
	if r > width/2 {
		r = width / 2
	}
	if r > height/2 {
		r = height / 2
	}

	corners := []model.MapCoordF{
		c0,
		c0.Add(right.Scale(width)),
		c0.Add(right.Scale(width)).Add(down.Scale(height)),
		c0.Add(down.Scale(height)),
	}
	if r <= 0 {
		for _, p := range corners {
			obj.AppendCoord(p.ToCoord())
		}
		obj.AppendCoord(corners[0].ToCoord())
		obj.RecalculateParts()
		return obj
	}

	dirs := []model.MapCoordF{right, down, right.Scale(-1), down.Scale(-1)}
	for i, corner := range corners {
		in := dirs[(i+3)%4]  // direction of travel into the corner
		out := dirs[i]       // direction of travel out of it
		p := corner.Sub(in.Scale(r))
		q := corner.Add(out.Scale(r))
		obj.AppendCoord(p.ToCurveStartCoord())
		obj.AppendCoord(p.Add(in.Scale(r * bezierKappa)).ToCoord())
		obj.AppendCoord(q.Sub(out.Scale(r * bezierKappa)).ToCoord())
		obj.AppendCoord(q.ToCoord())
	}
	first := obj.Coords[0]
	obj.AppendCoord(model.MapCoord{X: first.X, Y: first.Y})
	obj.RecalculateParts()
	return obj
}

// ---- strings ----

func (im *Importer) importStringEntry(entry []byte) {
	c := newCursor(entry)
	pos := c.u32()
	size := int(c.u32())
	typ := c.s32()

	if typ != stringTypeTemplate {
		return
	}
	rec := im.record(pos, size)
	if rec == nil || size < templateFixedSize+1 {
		im.sink.Warnf("template record at position %d is malformed, skipped", pos)
		return
	}
	if err := im.importTemplate(rec); err != nil {
		im.sink.Warnf("template record at position %d skipped: %v", pos, err)
	}
}

func (im *Importer) importTemplate(rec []byte) error {
	c := newCursor(rec)
	offX := c.s32()
	offY := c.s32()
	rotation := c.s32()
	scaleX := c.s32()
	scaleY := c.s32()
	dimming := c.s16()
	transparency := c.s16()
	c.skip(12)
	if err := c.err(); err != nil {
		return err
	}
	path, err := decodeCString(rec[templateFixedSize:], im.byteEncoding)
	if err != nil {
		return fmt.Errorf("undecodable template path: %w", err)
	}
	if path == "" {
		return fmt.Errorf("template has an empty path")
	}
	if !img.IsRaster(path) {
		im.sink.Warnf("template %q is not a known raster image type and may not be displayable", path)
	}

	tpl := model.NewTemplate(path)
	tpl.OffsetX = int64(offX) * unitFactor
	tpl.OffsetY = -int64(offY) * unitFactor
	tpl.Rotation = convertRotation(clampS16(int(rotation)))
	tpl.ScaleX = convertTemplateScale(scaleX, im.m.ScaleDenominator)
	tpl.ScaleY = convertTemplateScale(scaleY, im.m.ScaleDenominator)
	tpl.Dimming = int(dimming)
	tpl.Transparency = int(transparency)
	im.m.AddTemplate(tpl)
	return nil
}
