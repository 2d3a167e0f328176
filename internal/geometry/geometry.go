// Package geometry implements the pure sector/cluster layout functions
// spec.md §4.2 derives from a parsed BPB. None of these functions touch the
// backing image; they only operate on the handful of BPB fields that
// determine layout, so they're trivially testable in isolation and reused
// by both the reserved-region parser (to classify the FAT type) and the
// FAT table reader / cluster-chain walker (to turn cluster numbers into
// sector numbers).
package geometry

// BPBFields is the subset of the boot sector's BIOS Parameter Block needed
// to derive geometry. It intentionally mirrors the on-disk field names
// instead of wrapping the full boot sector type, so this package has no
// dependency on package fat and cannot form an import cycle.
type BPBFields struct {
	BytesPerSector    uint
	SectorsPerCluster uint
	ReservedSectors   uint
	NumFATs           uint
	RootEntryCount    uint
	TotalSectors16    uint
	FATSize16         uint
	TotalSectors32    int64
	FATSize32         uint
}

// RootDirSectors returns the number of sectors occupied by the fixed-size
// root directory. It is always 0 for FAT32, where the root directory is an
// ordinary cluster chain.
func RootDirSectors(b BPBFields) uint {
	if b.BytesPerSector == 0 {
		return 0
	}
	return ((b.RootEntryCount * 32) + (b.BytesPerSector - 1)) / b.BytesPerSector
}

// FATSize returns the number of sectors occupied by a single copy of the
// File Allocation Table.
func FATSize(b BPBFields) uint {
	if b.FATSize16 != 0 {
		return b.FATSize16
	}
	return b.FATSize32
}

// FirstDataSector returns the sector number of the first sector of cluster 2,
// i.e. the start of the data region.
func FirstDataSector(b BPBFields) uint {
	return b.ReservedSectors + b.NumFATs*FATSize(b) + RootDirSectors(b)
}

// FirstSectorOfCluster returns the sector number of the first sector of
// cluster c. c must be >= 2; clusters 0 and 1 are reserved and have no
// corresponding data-region sector.
func FirstSectorOfCluster(b BPBFields, c uint) uint {
	return (c-2)*b.SectorsPerCluster + FirstDataSector(b)
}

// TotalSectors returns the volume's total sector count, preferring the
// 16-bit BPB field and falling back to the 32-bit one when the 16-bit field
// is 0 (as is always the case on FAT32, and often on large FAT16 volumes).
func TotalSectors(b BPBFields) int64 {
	if b.TotalSectors16 != 0 {
		return int64(b.TotalSectors16)
	}
	return b.TotalSectors32
}

// DataSectors returns the number of sectors in the data region.
func DataSectors(b BPBFields) int64 {
	return TotalSectors(b) - int64(FirstDataSector(b))
}

// ClusterCount returns the total number of allocatable data clusters. This
// is the value spec.md §3 mandates as the sole input to FAT-type
// classification.
func ClusterCount(b BPBFields) int64 {
	if b.SectorsPerCluster == 0 {
		return 0
	}
	return DataSectors(b) / int64(b.SectorsPerCluster)
}

// FATType classifies a volume from its cluster count using the
// Microsoft-mandated, non-adjustable thresholds.
type FATType int

const (
	FAT12 FATType = 12
	FAT16 FATType = 16
	FAT32 FATType = 32
)

// ClassifyFATType implements spec.md §3's threshold table.
func ClassifyFATType(clusterCount int64) FATType {
	switch {
	case clusterCount < 4085:
		return FAT12
	case clusterCount < 65525:
		return FAT16
	default:
		return FAT32
	}
}
