package img

import "testing"

func TestKind(t *testing.T) {
	cases := []struct {
		path string
		want string
	}{
		{"background.png", "PNG"},
		{"photo.JPG", "JPEG"},
		{"scan.jpeg", "JPEG"},
		{"anim.gif", "GIF"},
		{"old.bmp", "BMP"},
		{"ortho.tif", "TIFF"},
		{"ortho.tiff", "TIFF"},
		{"C:\\maps\\base.PNG", "PNG"},
		{"drawing.ocd", ""},
		{"noextension", ""},
	}
	for _, tc := range cases {
		if got := Kind(tc.path); got != tc.want {
			t.Errorf("Kind(%q) = %q, want %q", tc.path, got, tc.want)
		}
	}
}

func TestIsRaster(t *testing.T) {
	if !IsRaster("base.png") {
		t.Error("IsRaster rejected a png path")
	}
	if IsRaster("vector.dxf") {
		t.Error("IsRaster accepted a dxf path")
	}
}
