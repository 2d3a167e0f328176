// Package longname reconstructs a presentable file name from a FAT short
// entry plus its (possibly empty) run of long-name fragments, and folds
// names for case-insensitive comparison.
//
// Long-name UTF-16 decoding is grounded on the reference reader's
// decode_utf16 step (original_source/lib_fat/src/fat_dir.rs); folding uses
// Unicode simple case folding per spec.md §9's Design Note, instead of the
// ASCII-only lowercasing a ToLower-based comparison would give.
package longname

import (
	"unicode/utf16"

	"golang.org/x/text/cases"
)

// Fragment is one long-name directory entry's three UTF-16 sub-ranges,
// already split out of the raw 32-byte record by the directory decoder.
type Fragment struct {
	// Index is the fragment's 1-based position, i.e. order&0x3F.
	Index int
	Name1 [5]uint16
	Name2 [6]uint16
	Name3 [2]uint16
}

// Reconstruct concatenates fragments (which need not be sorted) in
// ascending Index order, truncates at the first NUL code unit, and decodes
// the result as UTF-16, replacing ill-formed surrogate pairs with U+FFFD.
func Reconstruct(fragments []Fragment) string {
	units := make([]uint16, len(fragments)*13)
	for _, f := range fragments {
		offset := (f.Index - 1) * 13
		if offset < 0 || offset+13 > len(units) {
			continue
		}
		copy(units[offset:offset+5], f.Name1[:])
		copy(units[offset+5:offset+11], f.Name2[:])
		copy(units[offset+11:offset+13], f.Name3[:])
	}

	end := len(units)
	for i, u := range units {
		if u == 0 {
			end = i
			break
		}
	}
	units = units[:end]

	runes := utf16.Decode(units)
	return string(runes)
}

var folder = cases.Fold()

// Fold returns s normalized for case-insensitive comparison using Unicode
// simple case folding.
func Fold(s string) string {
	return folder.String(s)
}

// EqualFold reports whether a and b are equal under Fold.
func EqualFold(a, b string) bool {
	return Fold(a) == Fold(b)
}
