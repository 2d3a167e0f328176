package fat

import (
	"fmt"
	"io"

	"github.com/relvacode/gofat/errors"
	"github.com/relvacode/gofat/internal/binutil"
)

// table holds one loaded copy of a volume's File Allocation Table, along
// with enough of the boot sector's geometry to translate cluster numbers
// into byte offsets within it. The bytes themselves live behind a
// sectorCache so MountOptions.LazyFATLoad can defer reading sectors a
// caller never actually visits.
type table struct {
	bootSector *BootSector
	cache      *sectorCache
	strict     bool
}

// activeFATSectorOffset returns the byte offset, from the start of the
// image, of the first FAT copy this volume actually uses for reads. FAT32
// can be configured so the FATs aren't mirrored: bit 7 of the EBPB32 flags
// word clear means mirrored (all copies kept in sync, copy 0 is read),
// set means only one copy identified by bits 0-3 is authoritative.
func activeFATSectorOffset(bs *BootSector) int64 {
	reservedBytes := int64(bs.BPB.ReservedSectors) * int64(bs.BPB.BytesPerSector)
	if bs.Type != FAT32 || bs.EBPB32 == nil {
		return reservedBytes
	}

	flags := bs.EBPB32.Flags
	if flags&0x0080 == 0 {
		return reservedBytes
	}

	activeFAT := int64(flags & 0x000F)
	fatSizeBytes := int64(bs.FATSize) * int64(bs.BPB.BytesPerSector)
	return reservedBytes + activeFAT*fatSizeBytes
}

// loadTable builds the cache backing one volume's active FAT copy. When
// lazy is false (the default) every sector is pulled in immediately so
// later lookups never touch the backing image; when lazy is true, sectors
// are fetched the first time a lookup actually needs them.
func loadTable(src io.ReaderAt, bs *BootSector, strict bool, lazy bool) (*table, error) {
	bytesPerSector := uint(bs.BPB.BytesPerSector)
	base := activeFATSectorOffset(bs)

	fetch := func(sectorIndex uint, buf []byte) error {
		offset := base + int64(sectorIndex)*int64(bytesPerSector)
		if _, err := src.ReadAt(buf, offset); err != nil {
			return errors.ErrOpenFailed.WrapError(err)
		}
		return nil
	}

	cache := newSectorCache(bytesPerSector, uint(bs.FATSize), fetch)
	if !lazy {
		if err := cache.LoadAll(); err != nil {
			return nil, err
		}
	}

	return &table{bootSector: bs, cache: cache, strict: strict}, nil
}

// entry returns the raw value stored in the FAT for the given cluster,
// unmasked except for FAT32's reserved top nibble.
func (t *table) entry(cluster ClusterID) (uint32, error) {
	switch t.bootSector.Type {
	case FAT12:
		return t.entry12(cluster)
	case FAT16:
		return t.entry16(cluster)
	case FAT32:
		return t.entry32(cluster)
	default:
		return 0, fmt.Errorf("unreachable FAT type %v", t.bootSector.Type)
	}
}

func (t *table) bytesPerSector() uint {
	return uint(t.bootSector.BPB.BytesPerSector)
}

// sliceAt returns n bytes of FAT table content starting at byte offset
// fatOffset, loading whichever sectors back it.
func (t *table) sliceAt(fatOffset uint32, n uint) ([]byte, error) {
	bps := t.bytesPerSector()
	startSector := uint(fatOffset) / bps
	endSector := (uint(fatOffset) + n - 1) / bps
	region, err := t.cache.Slice(startSector, endSector-startSector+1)
	if err != nil {
		return nil, errors.ErrGeometryInconsistent.WithMessage(err.Error())
	}
	within := uint(fatOffset) - startSector*bps
	return region[within : within+n], nil
}

func (t *table) entry12(cluster ClusterID) (uint32, error) {
	fatOffset := uint32(cluster) + uint32(cluster)/2
	b, err := t.sliceAt(fatOffset, 2)
	if err != nil {
		return 0, err
	}

	raw := uint32(b[0]) | uint32(b[1])<<8
	if cluster%2 != 0 {
		return raw >> 4, nil
	}
	return raw & 0x0FFF, nil
}

func (t *table) entry16(cluster ClusterID) (uint32, error) {
	fatOffset := uint32(cluster) * 2
	b, err := t.sliceAt(fatOffset, 2)
	if err != nil {
		return 0, err
	}
	return uint32(binutil.Uint16At(b, 0)), nil
}

func (t *table) entry32(cluster ClusterID) (uint32, error) {
	fatOffset := uint32(cluster) * 4
	b, err := t.sliceAt(fatOffset, 4)
	if err != nil {
		return 0, err
	}
	return binutil.Uint32At(b, 0) & 0x0FFFFFFF, nil
}

// eocThreshold is the smallest raw FAT entry value that marks end-of-chain
// for each FAT variant; anything at or above it terminates the chain.
func eocThreshold(t FATType) uint32 {
	switch t {
	case FAT12:
		return 0x0FF8
	case FAT16:
		return 0xFFF8
	default:
		return 0x0FFFFFF8
	}
}

// NextCluster looks up the FAT entry for cluster and reports whether it is
// the end of the chain. A raw entry of 0 mid-chain is non-standard -- it
// denotes a free cluster, not an allocated one -- but is treated as
// end-of-chain by default to match original_source/lib_fat/src/fat_helper.rs.
// Set MountOptions.StrictChainTermination to reject it instead.
func (t *table) NextCluster(cluster ClusterID) (next ClusterID, isLast bool, err error) {
	raw, err := t.entry(cluster)
	if err != nil {
		return 0, false, err
	}

	if raw == 0 {
		if t.strict {
			return 0, false, errors.ErrGeometryInconsistent.WithMessage(
				fmt.Sprintf("cluster %d points to free cluster 0 mid-chain", cluster))
		}
		return 0, true, nil
	}

	if raw >= eocThreshold(t.bootSector.Type) {
		return 0, true, nil
	}

	// An out-of-range pointer (below cluster 2, or past the last
	// allocatable cluster) terminates the chain instead of being followed
	// into sliceAt, where it would either read garbage or abort the whole
	// traversal with ErrGeometryInconsistent.
	if raw < 2 || int64(raw) > t.bootSector.ClusterCount+1 {
		return 0, true, nil
	}

	return ClusterID(raw), false, nil
}
