// Package fat implements a read-only driver for FAT12, FAT16 and FAT32
// volumes: reserved-region parsing, FAT type classification, FAT-table
// traversal, cluster-chain I/O, directory-entry decoding (including long
// names), and a volume façade with directory/inode caches.
//
// There is no write path. Formatting, repair, exFAT and NTFS are out of
// scope, as is anything that would hand a live mount to a kernel -- that's
// the job of a collaborator built on top of this package.
package fat

import (
	"github.com/relvacode/gofat/internal/geometry"
)

// ClusterID identifies a cluster. Cluster numbers start at 2; 0 and 1 are
// reserved and never appear as the start of a real chain, except that the
// FAT12/16 root directory is conventionally given cluster number 0 because
// it has no cluster of its own -- it lives at a fixed sector range instead.
type ClusterID uint32

// SectorID identifies an absolute sector on the backing image.
type SectorID uint32

// FATType is the on-disk FAT variant, determined purely from the volume's
// cluster count per spec.md §3.
type FATType int

const (
	FAT12 FATType = FATType(geometry.FAT12)
	FAT16 FATType = FATType(geometry.FAT16)
	FAT32 FATType = FATType(geometry.FAT32)
)

func (t FATType) String() string {
	switch t {
	case FAT12:
		return "FAT12"
	case FAT16:
		return "FAT16"
	case FAT32:
		return "FAT32"
	default:
		return "FAT(unknown)"
	}
}

// Directory entry attribute flags (spec.md §3). AttrLongName is the
// reserved combination that marks a record as a long-name fragment rather
// than a short entry.
const (
	AttrReadOnly  = 0x01
	AttrHidden    = 0x02
	AttrSystem    = 0x04
	AttrVolumeID  = 0x08
	AttrDirectory = 0x10
	AttrArchive   = 0x20
	AttrLongName  = AttrReadOnly | AttrHidden | AttrSystem | AttrVolumeID
)

// BPB is the BIOS Parameter Block common to all three FAT variants,
// decoded from offset 0x0B of the boot sector.
type BPB struct {
	BytesPerSector    uint16
	SectorsPerCluster uint8
	ReservedSectors   uint16
	NumFATs           uint8
	RootEntryCount    uint16
	TotalSectors16    uint16
	Media             uint8
	FATSize16         uint16
	SectorsPerTrack   uint16
	Heads             uint16
	HiddenSectors     uint32
	TotalSectors32    uint32
}

// EBPB1216 is the FAT12/FAT16 extended BPB at offset 0x24.
type EBPB1216 struct {
	DriveNumber    uint8
	Reserved       uint8
	BootSignature  uint8
	VolumeID       uint32
	VolumeLabel    [11]byte
	FileSystemType [8]byte
}

// EBPB32 is the FAT32 extended BPB at offset 0x24.
type EBPB32 struct {
	FATSize32        uint32
	Flags            uint16
	Version          uint16
	RootCluster      uint32
	FSInfoSector     uint16
	BackupBootSector uint16
	Reserved         [12]byte
	DriveNumber      uint8
	ReservedFlags    uint8
	Signature        uint8
	VolumeID         uint32
	VolumeLabel      [11]byte
	FileSystemType   [8]byte
}

// BootSector is the fully decoded reserved region: the raw BPB, whichever
// EBPB variant applies, and the geometry values derived from them.
type BootSector struct {
	JumpBoot [3]byte
	OEMName  [8]byte
	BPB      BPB

	// Exactly one of EBPB1216/EBPB32 is populated, matching spec.md §3's
	// data model invariant.
	EBPB1216 *EBPB1216
	EBPB32   *EBPB32

	Type FATType

	RootDirSectors  uint
	FATSize         uint
	FirstDataSector SectorID
	ClusterCount    int64
}

func (b *BootSector) geometryFields() geometry.BPBFields {
	fields := geometry.BPBFields{
		BytesPerSector:    uint(b.BPB.BytesPerSector),
		SectorsPerCluster: uint(b.BPB.SectorsPerCluster),
		ReservedSectors:   uint(b.BPB.ReservedSectors),
		NumFATs:           uint(b.BPB.NumFATs),
		RootEntryCount:    uint(b.BPB.RootEntryCount),
		TotalSectors16:    uint(b.BPB.TotalSectors16),
		FATSize16:         uint(b.BPB.FATSize16),
		TotalSectors32:    int64(b.BPB.TotalSectors32),
	}
	if b.EBPB32 != nil {
		fields.FATSize32 = uint(b.EBPB32.FATSize32)
	}
	return fields
}

// RootCluster returns the cluster number to treat the root directory as.
// It is 0 for FAT12/16 (a fixed sector range, not a cluster chain) and the
// EBPB32-declared root cluster for FAT32.
func (b *BootSector) RootCluster() ClusterID {
	if b.EBPB32 != nil {
		return ClusterID(b.EBPB32.RootCluster)
	}
	return 0
}
