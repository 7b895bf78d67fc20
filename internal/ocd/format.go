// Package ocd implements the version 8 binary map format: a little-endian
// flat file with a fixed header, a color table, and paged 256-slot linked
// indexes for symbols, objects and strings.
package ocd

// File magic: the first two bytes are 0xAD, 0x0C.
const magic = 0x0CAD

// Supported version band. Versions at or below the lower bound and at or
// above the upper bound are rejected.
const (
	versionMin = 5 // exclusive
	versionMax = 9 // exclusive
)

// Header layout, 44 bytes.
const (
	hdrMagic       = 0x00 // u16
	hdrFileType    = 0x02 // u16
	hdrVersion     = 0x04 // u16
	hdrSubversion  = 0x06 // u16
	hdrFirstSymBlk = 0x08 // u32, position of the first symbol index block
	hdrFirstObjBlk = 0x0C // u32, position of the first object index block
	hdrFirstStrBlk = 0x10 // u32, position of the first string index block
	hdrSetupPos    = 0x14 // u32
	hdrSetupSize   = 0x18 // u32
	hdrInfoPos     = 0x1C // u32
	hdrInfoSize    = 0x20 // u32
	hdrNumColors   = 0x24 // u16
	hdrReserved    = 0x26 // u16
	hdrColorPos    = 0x28 // u32

	headerSize = 44
)

// Setup block, 20 bytes: view center (2 s32, map units), scale denominator
// (u32), zoom factor (f64).
const setupSize = 20

// Color table entry, 42 bytes: number (s16), CMYK components as u16 in
// 0..200 (value*0.005 is the fraction), name as a 32-byte Pascal string.
const colorEntrySize = 42

// Index blocks: u32 link to the next block (0 terminates the chain)
// followed by 256 fixed-size entries. Empty slots are zero.
const indexBlockSlots = 256

const (
	symbolIndexEntrySize = 4  // u32 record position
	objectIndexEntrySize = 24 // s32 minX,minY,maxX,maxY; u32 pos; u16 len; s16 symbol
	stringIndexEntrySize = 12 // u32 pos; u32 len; s32 type
)

const (
	symbolIndexBlockSize = 4 + indexBlockSlots*symbolIndexEntrySize
	objectIndexBlockSize = 4 + indexBlockSlots*objectIndexEntrySize
	stringIndexBlockSize = 4 + indexBlockSlots*stringIndexEntrySize
)

// Symbol record types.
const (
	symTypePoint = 1
	symTypeLine  = 2
	symTypeArea  = 3
	symTypeText  = 4
	symTypeRect  = 5
)

// Symbol base record, 338 bytes, shared by all symbol types:
//
//	0x000 u16  size (total record size in bytes)
//	0x002 s16  number (major*10 + minor)
//	0x004 u8   type
//	0x005 u8   base flags (bit 0: pattern rotatable)
//	0x006 u8   status (bit 0: protected, bit 1: hidden)
//	0x007 u8   reserved
//	0x008 s16  extent (map units)
//	0x00A [32] color usage bitmask over color priorities
//	0x02A [32] name, Pascal string
//	0x04A [264] icon, 22x22 4-bit pixels, bottom row first, 12 bytes/row
const (
	symBaseSize     = 338
	symColorsOff    = 0x0A
	symColorsLen    = 32
	symNameOff      = 0x2A
	symNameLen      = 32
	symIconOff      = 0x4A
	symIconLen      = 264
	iconSize        = 22
	iconBytesPerRow = 12
)

const (
	baseFlagRotatable = 1 << 0
	statusProtected   = 1 << 0
	statusHidden      = 1 << 1
)

// Line symbol extra block, 60 bytes: 30 s16 fields in this order.
const lineExtraSize = 60

const (
	lineFieldColor = iota
	lineFieldWidth
	lineFieldEnds // 0..6 cap/join combination
	lineFieldDistFromStart
	lineFieldDistToEnd
	lineFieldMinLength
	lineFieldMainLength
	lineFieldEndLength
	lineFieldMainGap
	lineFieldSecGap
	lineFieldEndGap
	lineFieldSymbolsPerSpot
	lineFieldSymbolDistance
	lineFieldDoubleMode  // 0 off, 1 on, 2 left border dashed, 3 borders dashed
	lineFieldDoubleFlags // bit 0: double line filled
	lineFieldDoubleFillColor
	lineFieldDoubleWidth // distance between the border line centers
	lineFieldLeftWidth
	lineFieldRightWidth
	lineFieldDoubleLength // border dash length
	lineFieldDoubleGap    // border break length
	lineFieldLeftColor
	lineFieldRightColor
	lineFieldFrameWidth
	lineFieldMainCount // mid symbol pattern size, 8-byte units
	lineFieldSecCount  // secondary symbol pattern size, parsed and skipped
	lineFieldCornerCount
	lineFieldStartCount
	lineFieldEndCount
	lineFieldFrameColor

	lineFieldCount = 30
)

const dblFlagFilled = 1 << 0

// Area symbol extra block, 28 bytes: 14 s16 fields in this order.
const areaExtraSize = 28

const (
	areaFieldFillOn = iota
	areaFieldFillColor
	areaFieldHatchMode // 0 none, 1 single, 2 cross
	areaFieldHatchColor
	areaFieldHatchLineWidth
	areaFieldHatchDist // gap between hatch line edges, excludes line width
	areaFieldHatchAngle1
	areaFieldHatchAngle2
	areaFieldStructMode // 0 none, 1 aligned rows, 2 staggered rows
	areaFieldStructWidth
	areaFieldStructHeight
	areaFieldStructAngle
	areaFieldReserved
	areaFieldDataSize // point pattern size, 8-byte units

	areaFieldCount = 14
)

// Text symbol extra block, 202 bytes: font name (32-byte Pascal string),
// 21 s16 fields, 32 s32 tab stops. Total record size 540 bytes.
const (
	textExtraSize   = 202
	textFontNameLen = 32
	textMaxTabs     = 32
)

const (
	textFieldColor = iota
	textFieldSize // decipoints
	textFieldWeight
	textFieldItalic
	textFieldCharSpace // percent
	textFieldWordSpace // percent, 100 is normal
	textFieldAlignment // 0 left, 1 center, 2 right, 3 justified
	textFieldLineSpace // percent of the em size
	textFieldParaSpace // map units
	textFieldIndentFirst
	textFieldIndentOther
	textFieldNumTabs
	textFieldLineBelowOn
	textFieldLineBelowColor
	textFieldLineBelowWidth
	textFieldLineBelowDist
	textFieldFrameMode // 0 none, 1 shadow, 2 line
	textFieldFrameColor
	textFieldFrameShadowX
	textFieldFrameShadowY
	textFieldFrameWidth

	textFieldCount = 21
)

// Rectangle symbol extra block, 48 bytes: 7 s16 fields, a 32-byte Pascal
// string for the unnumbered cell text, one reserved s16.
const rectExtraSize = 48

const (
	rectGridFlagGrid     = 1 << 0
	rectGridFlagNumbered = 1 << 1
)

// Point symbol extra block: data size (s16, 8-byte units), reserved s16,
// then the pattern.
const pointExtraSize = 4

// Pattern element header, 16 bytes (two 8-byte units): type (s16), flags
// (u16), color (s16), line width (s16), diameter (s16), point count (s16),
// 4 reserved bytes. The coordinates follow. Readers advance 2+npts units
// per element regardless of whether the element was kept.
const patternElementHeaderSize = 16

const (
	elemTypeLine   = 1
	elemTypeArea   = 2
	elemTypeCircle = 3
	elemTypeDot    = 4
)

// Object record header, 12 bytes: symbol number (s16), type (u8), unicode
// flag (u8), coordinate count (u16), text length in 8-byte units (u16),
// angle in tenths of a degree (s16), reserved u16. Coordinates follow,
// then the text payload.
const objectHeaderSize = 12

const (
	objTypePoint   = 1
	objTypePath    = 2
	objTypeArea    = 3
	objTypeText    = 4 // anchored, 5 coordinates
	objTypeTextBox = 5 // word wrap box, 4 corner coordinates
)

// Coordinate packing: each axis is an s32 holding (unit value << 8) | flags,
// where the unit is 0.01 mm and the file's Y axis grows upwards.
const (
	xFlagCtl1   = 1 << 0 // first bezier control point
	xFlagCtl2   = 1 << 1 // second bezier control point
	yFlagDash   = 1 << 0 // dash point on a dashed line
	yFlagHole   = 1 << 1 // first point of a new sub-path
	yFlagCorner = 1 << 2 // corner point
)

const coordSize = 8

// String record types.
const stringTypeTemplate = 8

// Template string record: a 36-byte fixed part (offset x/y as s32 map
// units, rotation s32 in tenths of a degree, scale x/y as s32 where the
// real scale is value * 0.00001 * scale denominator, dimming s16,
// transparency s16, 12 reserved bytes) followed by the zero-terminated
// 1-byte encoded file path.
const templateFixedSize = 36

// Color component scale: file components are 0..200, fraction = value * 0.005.
const colorComponentMax = 200
