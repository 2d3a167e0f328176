package fat

import (
	"fmt"
	"io"

	"github.com/relvacode/gofat/errors"
	"github.com/relvacode/gofat/internal/binutil"
	"github.com/relvacode/gofat/internal/geometry"
)

const bootSectorSize = 512
const backupBootSectorNumber = 6

// readBootSectorBytes reads the primary boot sector at sector 0, falling
// back to the backup copy at sector 6 if the primary signature is bad, per
// spec.md §4.1.
func readBootSectorBytes(src io.ReaderAt) ([]byte, error) {
	buf := make([]byte, bootSectorSize)
	if _, err := src.ReadAt(buf, 0); err != nil {
		return nil, errors.ErrOpenFailed.WrapError(err)
	}
	if hasValidSignature(buf) {
		return buf, nil
	}

	backup := make([]byte, bootSectorSize)
	backupOffset := int64(backupBootSectorNumber) * bootSectorSize
	if _, err := src.ReadAt(backup, backupOffset); err != nil {
		return nil, errors.ErrCorruptBootSector.WithMessage(
			"primary signature invalid and backup boot sector unreadable")
	}
	if !hasValidSignature(backup) {
		return nil, errors.ErrCorruptBootSector.WithMessage(
			"primary and backup boot sector signatures are both invalid")
	}
	return backup, nil
}

func hasValidSignature(buf []byte) bool {
	return buf[510] == 0x55 && buf[511] == 0xAA
}

// parseBootSector decodes a 512-byte boot sector buffer into a BootSector,
// classifying the FAT type and validating the invariants spec.md §4.1
// requires before a volume can be mounted.
func parseBootSector(buf []byte, imageSize int64) (*BootSector, error) {
	bs := &BootSector{}
	copy(bs.JumpBoot[:], buf[0:3])
	copy(bs.OEMName[:], buf[3:11])

	bpb := BPB{
		BytesPerSector:    binutil.Uint16At(buf, 0x0B),
		SectorsPerCluster: buf[0x0D],
		ReservedSectors:   binutil.Uint16At(buf, 0x0E),
		NumFATs:           buf[0x10],
		RootEntryCount:    binutil.Uint16At(buf, 0x11),
		TotalSectors16:    binutil.Uint16At(buf, 0x13),
		Media:             buf[0x15],
		FATSize16:         binutil.Uint16At(buf, 0x16),
		SectorsPerTrack:   binutil.Uint16At(buf, 0x18),
		Heads:             binutil.Uint16At(buf, 0x1A),
		HiddenSectors:     binutil.Uint32At(buf, 0x1C),
		TotalSectors32:    binutil.Uint32At(buf, 0x20),
	}
	bs.BPB = bpb

	if err := validateBPBValues(bpb); err != nil {
		return nil, err
	}

	isFAT32 := bpb.FATSize16 == 0 && bpb.TotalSectors16 == 0 && bpb.TotalSectors32 != 0
	if isFAT32 {
		bs.EBPB32 = &EBPB32{
			FATSize32:        binutil.Uint32At(buf, 0x24),
			Flags:            binutil.Uint16At(buf, 0x28),
			Version:          binutil.Uint16At(buf, 0x2A),
			RootCluster:      binutil.Uint32At(buf, 0x2C),
			FSInfoSector:     binutil.Uint16At(buf, 0x30),
			BackupBootSector: binutil.Uint16At(buf, 0x32),
			DriveNumber:      buf[0x40],
			ReservedFlags:    buf[0x41],
			Signature:        buf[0x42],
			VolumeID:         binutil.Uint32At(buf, 0x43),
		}
		copy(bs.EBPB32.Reserved[:], buf[0x34:0x40])
		copy(bs.EBPB32.VolumeLabel[:], buf[0x47:0x52])
		copy(bs.EBPB32.FileSystemType[:], buf[0x52:0x5A])
	} else {
		bs.EBPB1216 = &EBPB1216{
			DriveNumber:   buf[0x24],
			Reserved:      buf[0x25],
			BootSignature: buf[0x26],
			VolumeID:      binutil.Uint32At(buf, 0x27),
		}
		copy(bs.EBPB1216.VolumeLabel[:], buf[0x2B:0x36])
		copy(bs.EBPB1216.FileSystemType[:], buf[0x36:0x3E])
	}

	fields := bs.geometryFields()
	bs.RootDirSectors = geometry.RootDirSectors(fields)
	bs.FATSize = geometry.FATSize(fields)
	bs.FirstDataSector = SectorID(geometry.FirstDataSector(fields))
	bs.ClusterCount = geometry.ClusterCount(fields)
	bs.Type = FATType(geometry.ClassifyFATType(bs.ClusterCount))

	if err := validatePostParse(bs, imageSize); err != nil {
		return nil, err
	}

	return bs, nil
}

func validateBPBValues(bpb BPB) error {
	switch bpb.BytesPerSector {
	case 512, 1024, 2048, 4096:
	default:
		return errors.ErrUnsupportedValue.WithMessage(
			fmt.Sprintf("bytes_per_sector must be 512/1024/2048/4096, got %d", bpb.BytesPerSector))
	}

	switch bpb.SectorsPerCluster {
	case 1, 2, 4, 8, 16, 32, 64, 128:
	default:
		return errors.ErrUnsupportedValue.WithMessage(
			fmt.Sprintf("sectors_per_cluster must be a power of 2 in [1,128], got %d", bpb.SectorsPerCluster))
	}

	return nil
}

func validatePostParse(bs *BootSector, imageSize int64) error {
	if bs.BPB.NumFATs < 2 {
		return errors.ErrGeometryInconsistent.WithMessage(
			fmt.Sprintf("num_fats must be >= 2, got %d", bs.BPB.NumFATs))
	}

	fields := bs.geometryFields()
	declaredSectors := geometry.TotalSectors(fields)
	declaredBytes := declaredSectors * int64(bs.BPB.BytesPerSector)
	if imageSize < declaredBytes {
		return errors.ErrGeometryInconsistent.WithMessage(
			fmt.Sprintf(
				"image is %d bytes but the volume declares %d sectors of %d bytes (%d bytes)",
				imageSize, declaredSectors, bs.BPB.BytesPerSector, declaredBytes))
	}

	if bs.Type == FAT32 && bs.RootDirSectors != 0 {
		return errors.ErrGeometryInconsistent.WithMessage(
			fmt.Sprintf("FAT32 volume has a nonzero root directory sector count (%d)", bs.RootDirSectors))
	}

	return nil
}
