package ocd

import (
	"math"

	"github.com/kjetilk/mapper/internal/model"
)

// The file measures lengths in units of 0.01 mm; the model measures in
// micrometers. One file unit is ten micrometers.
const unitFactor = 10

func convertSize(units int16) int { return int(units) * unitFactor }

func exportSize(um int) int16 {
	v := (um + sign(um)*unitFactor/2) / unitFactor
	return clampS16(v)
}

func sign(v int) int {
	if v < 0 {
		return -1
	}
	return 1
}

func clampS16(v int) int16 {
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	if v < math.MinInt16 {
		return math.MinInt16
	}
	return int16(v)
}

// convertRotation turns a file angle in tenths of a degree counterclockwise
// into radians normalized to [0, 2pi).
func convertRotation(tenths int16) float64 {
	rad := float64(tenths) * math.Pi / 1800
	rad = math.Mod(rad, 2*math.Pi)
	if rad < 0 {
		rad += 2 * math.Pi
	}
	return rad
}

// exportRotation is the inverse, rounding to the nearest tenth of a degree.
func exportRotation(rad float64) int16 {
	deg := rad * 1800 / math.Pi
	deg = math.Mod(deg, 3600)
	if deg < 0 {
		deg += 3600
	}
	return int16(math.Round(deg))
}

// convertCoord unpacks one packed axis pair into a map coordinate. Each
// axis is (unit << 8) | flags and the file's Y axis grows upwards.
func convertCoord(x, y int32) (model.MapCoord, uint8, uint8) {
	xf := uint8(x & 0xFF)
	yf := uint8(y & 0xFF)
	c := model.MapCoord{
		X: int64(x>>8) * unitFactor,
		Y: -int64(y>>8) * unitFactor,
	}
	return c, xf, yf
}

// exportCoord packs a map coordinate into the two axis words.
func exportCoord(c model.MapCoord, xf, yf uint8) (int32, int32) {
	x := roundUnits(c.X)
	y := -roundUnits(c.Y)
	return int32(x<<8) | int32(xf), int32(y<<8) | int32(yf)
}

func roundUnits(um int64) int64 {
	if um < 0 {
		return (um - unitFactor/2) / unitFactor
	}
	return (um + unitFactor/2) / unitFactor
}

// Font sizes are stored in decipoints. One point is 25.4/72 mm, so one
// decipoint is 2540/72 micrometers.
func convertFontSize(dpts int16) int {
	return int(math.Round(float64(dpts) * 2540 / 72))
}

func exportFontSize(um int) int16 {
	return clampS16(int(math.Round(float64(um) * 72 / 2540)))
}

// convertColorComponent maps a 0..200 file component to a 0.0..1.0
// fraction; out-of-range values are clamped.
func convertColorComponent(v uint16) float64 {
	if v > colorComponentMax {
		v = colorComponentMax
	}
	return float64(v) / colorComponentMax
}

func exportColorComponent(f float64) uint16 {
	if f < 0 {
		f = 0
	}
	if f > 1 {
		f = 1
	}
	return uint16(math.Round(f * colorComponentMax))
}

// convertTemplateScale maps a stored scale word to the real template scale
// factor, which depends on the map scale denominator.
func convertTemplateScale(word int32, scaleDenominator int) float64 {
	return float64(word) * float64(scaleDenominator) / 100000
}

func exportTemplateScale(scale float64, scaleDenominator int) int32 {
	if scaleDenominator == 0 {
		return 0
	}
	return int32(math.Round(scale * 100000 / float64(scaleDenominator)))
}
