package ocd

import (
	"image"
	"image/color"
	"testing"
)

// TestMatchIconColor tests the palette matcher on exact palette colors
func TestMatchIconColor(t *testing.T) {
	cases := []struct {
		c    color.Color
		want uint8
	}{
		{color.RGBA{0, 0, 0, 255}, 0},
		{color.RGBA{255, 0, 0, 255}, 9},
		{color.RGBA{0, 255, 0, 255}, 10},
		{color.RGBA{0, 0, 255, 255}, 12},
		{color.RGBA{255, 255, 255, 255}, 15},
		// Mostly transparent pixels map to white
		{color.RGBA{0, 0, 0, 0}, 15},
	}
	for _, tc := range cases {
		if got := matchIconColor(tc.c); got != tc.want {
			t.Errorf("matchIconColor(%v) = %d, want %d", tc.c, got, tc.want)
		}
	}
}

// TestIconRoundtrip tests the 4-bit icon block codec
func TestIconRoundtrip(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, iconSize, iconSize))
	for y := 0; y < iconSize; y++ {
		for x := 0; x < iconSize; x++ {
			src.SetRGBA(x, y, iconPalette[(x+y)%16])
		}
	}

	block := encodeIcon(src)
	if len(block) != symIconLen {
		t.Fatalf("icon block size = %d, want %d", len(block), symIconLen)
	}

	back := decodeIcon(block)
	for y := 0; y < iconSize; y++ {
		for x := 0; x < iconSize; x++ {
			want := iconPalette[(x+y)%16]
			got := back.At(x, y)
			r1, g1, b1, _ := got.RGBA()
			r2, g2, b2, _ := want.RGBA()
			if r1 != r2 || g1 != g2 || b1 != b2 {
				t.Fatalf("pixel (%d,%d) = %v, want %v", x, y, got, want)
			}
		}
	}
}

// TestEncodeIconNil tests that a missing icon yields a zeroed block
func TestEncodeIconNil(t *testing.T) {
	block := encodeIcon(nil)
	if len(block) != symIconLen {
		t.Fatalf("icon block size = %d, want %d", len(block), symIconLen)
	}
	for i, b := range block {
		if b != 0 {
			t.Fatalf("block[%d] = %d, want 0", i, b)
		}
	}
}
