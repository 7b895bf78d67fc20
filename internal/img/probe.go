// Package img classifies template file references by raster image type.
//
// Map files reference background templates by file path only; the image
// data itself is never embedded. This package decides from the file name
// whether a reference points at a raster image and which format it is.
package img

import (
	"path/filepath"
	"strings"
)

// Known raster file extensions and their format names.
var rasterKinds = map[string]string{
	".png":  "PNG",
	".jpg":  "JPEG",
	".jpeg": "JPEG",
	".gif":  "GIF",
	".bmp":  "BMP",
	".tif":  "TIFF",
	".tiff": "TIFF",
}

// Kind returns the raster format name for the path, or "" when the
// extension is not a known raster type.
func Kind(path string) string {
	return rasterKinds[strings.ToLower(filepath.Ext(path))]
}

// IsRaster reports whether the path looks like a raster image reference.
func IsRaster(path string) bool {
	return Kind(path) != ""
}
