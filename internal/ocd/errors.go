package ocd

import (
	"errors"
	"fmt"
)

// ErrFormat is returned when the input does not start with the file magic.
var ErrFormat = errors.New("not a map file (bad magic)")

// ErrColorLimit is returned by the exporter when the map has more colors
// than the format's color table can hold.
var ErrColorLimit = errors.New("too many colors for the color table (maximum 256)")

// VersionError reports a file whose version is outside the supported band.
type VersionError struct {
	Version int
}

func (e *VersionError) Error() string {
	return fmt.Sprintf("unsupported file version %d (only version 8 files and their minor relatives are supported)", e.Version)
}
