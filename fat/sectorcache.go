package fat

import (
	"fmt"

	"github.com/boljen/go-bitmap"
)

// fetchSectorFunc loads the contents of one sector, identified by its
// index within the cached region (not an absolute image sector number),
// into buf. buf is always exactly bytesPerSector long.
type fetchSectorFunc func(sectorIndex uint, buf []byte) error

// sectorCache is a read-only, lazily-populated view over a contiguous
// region of sectors, adapted from the teacher's block cache: a bitmap
// tracks which sectors have been pulled in from the backing image so
// repeated reads of the same region don't re-hit storage.
//
// There is no write-back path here; this driver never modifies the image.
type sectorCache struct {
	loaded         bitmap.Bitmap
	fetch          fetchSectorFunc
	bytesPerSector uint
	totalSectors   uint
	data           []byte
}

func newSectorCache(bytesPerSector, totalSectors uint, fetch fetchSectorFunc) *sectorCache {
	return &sectorCache{
		loaded:         bitmap.NewSlice(int(totalSectors)),
		data:           make([]byte, bytesPerSector*totalSectors),
		fetch:          fetch,
		bytesPerSector: bytesPerSector,
		totalSectors:   totalSectors,
	}
}

func (c *sectorCache) checkBounds(start uint, numSectors uint) error {
	if start+numSectors > c.totalSectors {
		return fmt.Errorf(
			"sector range [%d, %d) out of bounds for cache of %d sectors",
			start, start+numSectors, c.totalSectors)
	}
	return nil
}

func (c *sectorCache) ensureLoaded(start, numSectors uint) error {
	if err := c.checkBounds(start, numSectors); err != nil {
		return err
	}

	for i := start; i < start+numSectors; i++ {
		if c.loaded.Get(int(i)) {
			continue
		}
		offset := i * c.bytesPerSector
		buf := c.data[offset : offset+c.bytesPerSector]
		if err := c.fetch(i, buf); err != nil {
			return fmt.Errorf("failed to load sector %d: %w", i, err)
		}
		c.loaded.Set(int(i), true)
	}
	return nil
}

// LoadAll pulls every sector in the cached region into memory up front.
func (c *sectorCache) LoadAll() error {
	return c.ensureLoaded(0, c.totalSectors)
}

// Slice returns a view of count sectors starting at start, loading any of
// them that aren't already cached.
func (c *sectorCache) Slice(start, count uint) ([]byte, error) {
	if err := c.ensureLoaded(start, count); err != nil {
		return nil, err
	}
	offset := start * c.bytesPerSector
	end := offset + count*c.bytesPerSector
	return c.data[offset:end], nil
}
