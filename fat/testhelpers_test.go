package fat

import (
	"github.com/relvacode/gofat/fatimage"
	"github.com/relvacode/gofat/geometries"
)

// floppy144Config returns a fatimage.Config for a standard 1.44MB FAT12
// floppy, matching the standard-geometry table's "1440k" entry.
func floppy144Config() fatimage.Config {
	g, _ := geometries.Lookup("1440k")
	return fatimage.Config{
		BytesPerSector:    uint16(g.BytesPerSector),
		SectorsPerCluster: uint8(g.SectorsPerCluster),
		ReservedSectors:   uint16(g.ReservedSectors),
		NumFATs:           uint8(g.NumFATs),
		RootEntryCount:    uint16(g.RootEntryCount),
		TotalSectors:      uint32(g.TotalSectors),
		FATSize:           uint32(g.FATSize16),
		Media:             uint8(g.Media),
	}
}

// rawName builds an 11-byte padded short name from an unpadded "NAME" and
// "EXT" pair, space-padding each to its fixed width.
func rawName(name, ext string) [11]byte {
	var out [11]byte
	for i := range out {
		out[i] = ' '
	}
	copy(out[0:8], name)
	copy(out[8:11], ext)
	return out
}

// fat32Config returns a fatimage.Config for a small FAT32 volume with
// enough clusters to clear the FAT32 threshold and the given EBPB32 flags
// word (0x0081 disables mirroring and selects the second FAT copy as
// active; 0 leaves mirroring on).
func fat32Config(flags uint16) fatimage.Config {
	const bytesPerSector = 512
	const sectorsPerCluster = 1
	const reservedSectors = 32
	const numFATs = 2
	const fatSize = 512 // sectors per FAT copy, exactly enough for totalClusters+2 dword entries

	// Need cluster_count >= 65525 to classify as FAT32; use the threshold
	// itself to keep the synthetic image as small as possible.
	const totalClusters = 65525
	totalSectors := uint32(reservedSectors) + uint32(numFATs)*fatSize + totalClusters*sectorsPerCluster

	return fatimage.Config{
		BytesPerSector:    bytesPerSector,
		SectorsPerCluster: sectorsPerCluster,
		ReservedSectors:   reservedSectors,
		NumFATs:           numFATs,
		RootEntryCount:    0,
		TotalSectors:      totalSectors,
		FATSize:           fatSize,
		Media:             0xF8,
		FAT32RootCluster:  2,
		FAT32Flags:        flags,
	}
}
