// Package geometries is a lookup table of named, standard FAT volume
// geometries -- the BPB fields for common floppy disk formats -- loaded
// from an embedded CSV the same way the teacher's disk-geometry catalog
// does, via gocsv.UnmarshalToCallback.
//
// This supplements the distilled spec: it isn't one of its operations, but
// it gives fatimage (and callers building their own test fixtures) a
// ready-made, correctly-shaped BPB to start from instead of hand-deriving
// sector counts for every test.
package geometries

import (
	_ "embed"
	"fmt"
	"io"
	"strings"

	"github.com/gocarina/gocsv"
)

//go:embed geometries.csv
var rawCSV string

// Geometry is one row of the standard-geometry table: everything needed to
// populate a FAT12/16 BPB for a well-known floppy format.
type Geometry struct {
	Slug              string `csv:"slug"`
	Name              string `csv:"name"`
	BytesPerSector    uint   `csv:"bytes_per_sector"`
	SectorsPerCluster uint   `csv:"sectors_per_cluster"`
	ReservedSectors   uint   `csv:"reserved_sectors"`
	NumFATs           uint   `csv:"num_fats"`
	RootEntryCount    uint   `csv:"root_entry_count"`
	TotalSectors      uint   `csv:"total_sectors"`
	FATSize16         uint   `csv:"fat_size_16"`
	Media             uint   `csv:"media"`
}

var table map[string]Geometry

// Lookup returns the named standard geometry, if one exists.
func Lookup(slug string) (Geometry, bool) {
	g, ok := table[slug]
	return g, ok
}

// All returns every standard geometry, in no particular order.
func All() []Geometry {
	out := make([]Geometry, 0, len(table))
	for _, g := range table {
		out = append(out, g)
	}
	return out
}

func init() {
	table = make(map[string]Geometry)
	reader := strings.NewReader(rawCSV)
	err := gocsv.UnmarshalToCallback(reader, func(row Geometry) error {
		if _, exists := table[row.Slug]; exists {
			return fmt.Errorf("duplicate standard geometry slug %q", row.Slug)
		}
		table[row.Slug] = row
		return nil
	})
	if err != nil && err != io.EOF {
		panic(err)
	}
}
