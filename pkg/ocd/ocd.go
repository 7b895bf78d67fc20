// Package ocd provides functions for working with version 8 binary map
// files.
//
// This package can be used as a library to parse and generate map files
// programmatically.
//
// Example usage:
//
//	data, _ := os.ReadFile("forest.ocd")
//
//	m, warnings, err := ocd.Parse(data)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, w := range warnings {
//	    log.Println("warning:", w)
//	}
//
//	out, _, _ := ocd.Write(m)
//	os.WriteFile("copy.ocd", out, 0644)
package ocd

import (
	"github.com/kjetilk/mapper/internal/model"
	codec "github.com/kjetilk/mapper/internal/ocd"
)

// Sniff reports whether the data starts with the map file magic. It never
// reads more than the first two bytes.
func Sniff(data []byte) bool {
	return codec.Sniff(data)
}

// Parse reads a complete binary map file and returns the internal model
// together with the non-fatal warnings collected along the way: skipped
// malformed items and lossy approximations.
func Parse(data []byte) (*model.Map, []string, error) {
	var warnings codec.WarningList
	m, err := codec.NewImporter(&warnings).Import(data)
	return m, warnings.Warnings, err
}

// ParseSymbols reads a binary map file without walking the object index:
// the color and symbol tables are fully loaded, the returned map has no
// objects.
func ParseSymbols(data []byte) (*model.Map, []string, error) {
	var warnings codec.WarningList
	im := codec.NewImporter(&warnings)
	im.SetSymbolsOnly(true)
	m, err := im.Import(data)
	return m, warnings.Warnings, err
}

// Write serializes a map into a complete binary file image, returning the
// non-fatal warnings collected along the way.
//
// Maps with more than 256 colors cannot be written and fail with
// ErrColorLimit.
func Write(m *model.Map) ([]byte, []string, error) {
	var warnings codec.WarningList
	data, err := codec.NewExporter(&warnings).Export(m)
	return data, warnings.Warnings, err
}

// Common errors.
var (
	// ErrFormat is returned by Parse when the input is not a map file.
	ErrFormat = codec.ErrFormat
	// ErrColorLimit is returned by Write when the color table is full.
	ErrColorLimit = codec.ErrColorLimit
)

// VersionError is returned by Parse for map files of unsupported versions.
type VersionError = codec.VersionError
