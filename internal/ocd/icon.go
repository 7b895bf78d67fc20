package ocd

import (
	"image"
	"image/color"
	"math"
)

// The 16-entry icon palette. Icons are stored as 4-bit indexes into this
// fixed table.
var iconPalette = [16]color.RGBA{
	{0, 0, 0, 255},
	{128, 0, 0, 255},
	{0, 128, 0, 255},
	{128, 128, 0, 255},
	{0, 0, 128, 255},
	{128, 0, 128, 255},
	{0, 128, 128, 255},
	{128, 128, 128, 255},
	{192, 192, 192, 255},
	{255, 0, 0, 255},
	{0, 255, 0, 255},
	{255, 255, 0, 255},
	{0, 0, 255, 255},
	{255, 0, 255, 255},
	{0, 255, 255, 255},
	{255, 255, 255, 255},
}

// Per-index distance multipliers. The mid-tone and very light palette
// entries match too eagerly on plain hue distance, so they are penalized.
var iconDistanceTweak = [16]float64{
	0: 1, 1: 1.5, 2: 1, 3: 2, 4: 1, 5: 1, 6: 1, 7: 2,
	8: 3, 9: 3, 10: 1, 11: 2, 12: 1, 13: 1, 14: 1, 15: 4,
}

// matchIconColor returns the palette index closest to the pixel in HSV
// space. Mostly transparent pixels map to white.
func matchIconColor(c color.Color) uint8 {
	r, g, b, a := c.RGBA()
	if a < 128*257 {
		return 15
	}
	h1, s1, v1 := rgbToHSV(uint8(r>>8), uint8(g>>8), uint8(b>>8))

	best := 0
	bestDist := math.Inf(1)
	for i, p := range iconPalette {
		h2, s2, v2 := rgbToHSV(p.R, p.G, p.B)
		dh := math.Abs(h1 - h2)
		if dh > 180 {
			dh = 360 - dh
		}
		dh /= 60
		dist := dh*dh*s1*s2 + (s1-s2)*(s1-s2) + (v1-v2)*(v1-v2)
		dist *= iconDistanceTweak[i]
		if dist < bestDist {
			bestDist = dist
			best = i
		}
	}
	return uint8(best)
}

func rgbToHSV(r, g, b uint8) (h, s, v float64) {
	rf, gf, bf := float64(r)/255, float64(g)/255, float64(b)/255
	max := math.Max(rf, math.Max(gf, bf))
	min := math.Min(rf, math.Min(gf, bf))
	v = max
	d := max - min
	if max > 0 {
		s = d / max
	}
	if d == 0 {
		return 0, s, v
	}
	switch max {
	case rf:
		h = math.Mod((gf-bf)/d, 6)
	case gf:
		h = (bf-rf)/d + 2
	default:
		h = (rf-gf)/d + 4
	}
	h *= 60
	if h < 0 {
		h += 360
	}
	return h, s, v
}

// encodeIcon quantizes an image into the 264-byte icon block: 22x22 pixels,
// two 4-bit palette indexes per byte (left pixel in the high nibble), rows
// stored bottom-up, 12 bytes per row. A nil image yields a zeroed block.
func encodeIcon(img image.Image) []byte {
	block := make([]byte, symIconLen)
	if img == nil {
		return block
	}
	bounds := img.Bounds()
	for y := 0; y < iconSize; y++ {
		row := block[(iconSize-1-y)*iconBytesPerRow:]
		for x := 0; x < iconSize; x++ {
			var idx uint8 = 15
			if x < bounds.Dx() && y < bounds.Dy() {
				idx = matchIconColor(img.At(bounds.Min.X+x, bounds.Min.Y+y))
			}
			if x%2 == 0 {
				row[x/2] |= idx << 4
			} else {
				row[x/2] |= idx
			}
		}
	}
	return block
}

// decodeIcon expands an icon block back into an image.
func decodeIcon(block []byte) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, iconSize, iconSize))
	if len(block) < symIconLen {
		return img
	}
	for y := 0; y < iconSize; y++ {
		row := block[(iconSize-1-y)*iconBytesPerRow:]
		for x := 0; x < iconSize; x++ {
			b := row[x/2]
			var idx uint8
			if x%2 == 0 {
				idx = b >> 4
			} else {
				idx = b & 0x0F
			}
			img.SetRGBA(x, y, iconPalette[idx])
		}
	}
	return img
}
