// Package fatimage synthesizes FAT12/16/32 images in memory for tests,
// the way the teacher's testing package turns a compressed fixture into a
// ready-to-mount stream -- except here there is no fixture to check in:
// every field of the boot sector, FAT, and directory region is written
// directly by the caller.
package fatimage

import (
	"io"

	"github.com/relvacode/gofat/internal/geometry"
	"github.com/xaionaro-go/bytesextra"
)

// Config describes the geometry of a synthetic volume. Setting
// RootEntryCount to 0 writes a FAT32-shaped boot sector (TotalSectors and
// FATSize go into the 32-bit fields, FAT32RootCluster and FAT32Flags into
// the EBPB32); otherwise a FAT12/16 boot sector is written. Which FAT type
// a reader then classifies the volume as follows from the resulting
// cluster count.
type Config struct {
	BytesPerSector    uint16
	SectorsPerCluster uint8
	ReservedSectors   uint16
	NumFATs           uint8
	RootEntryCount    uint16
	TotalSectors      uint32
	FATSize           uint32
	Media             uint8

	// FAT32RootCluster and FAT32Flags are only meaningful when
	// RootEntryCount is 0 (the FAT32 case).
	FAT32RootCluster uint32
	FAT32Flags       uint16
}

func (c Config) isFAT32() bool { return c.RootEntryCount == 0 }

func (c Config) geometryFields() geometry.BPBFields {
	f := geometry.BPBFields{
		BytesPerSector:    uint(c.BytesPerSector),
		SectorsPerCluster: uint(c.SectorsPerCluster),
		ReservedSectors:   uint(c.ReservedSectors),
		NumFATs:           uint(c.NumFATs),
		RootEntryCount:    uint(c.RootEntryCount),
	}
	if c.isFAT32() {
		f.TotalSectors32 = int64(c.TotalSectors)
		f.FATSize32 = uint(c.FATSize)
	} else {
		f.TotalSectors16 = uint(c.TotalSectors)
		f.FATSize16 = uint(c.FATSize)
	}
	return f
}

// Image is a fully in-memory FAT volume under construction.
type Image struct {
	cfg             Config
	buf             []byte
	bytesPerSector  int
	bytesPerCluster int
	firstDataSector int
	fatSizeBytes    int
	rootDirOffset   int
	rootDirSize     int
}

// Build allocates a zeroed image matching cfg and writes its boot sector.
func Build(cfg Config) *Image {
	fields := cfg.geometryFields()
	bps := int(cfg.BytesPerSector)
	totalSectors := geometry.TotalSectors(fields)

	img := &Image{
		cfg:             cfg,
		buf:             make([]byte, totalSectors*int64(bps)),
		bytesPerSector:  bps,
		bytesPerCluster: bps * int(cfg.SectorsPerCluster),
		firstDataSector: int(geometry.FirstDataSector(fields)),
		fatSizeBytes:    int(geometry.FATSize(fields)) * bps,
		rootDirOffset:   (int(cfg.ReservedSectors) + int(cfg.NumFATs)*int(geometry.FATSize(fields))) * bps,
		rootDirSize:     int(geometry.RootDirSectors(fields)) * bps,
	}

	img.writeBootSector()
	return img
}

func put16(b []byte, off int, v uint16) {
	b[off] = byte(v)
	b[off+1] = byte(v >> 8)
}

func put32(b []byte, off int, v uint32) {
	b[off] = byte(v)
	b[off+1] = byte(v >> 8)
	b[off+2] = byte(v >> 16)
	b[off+3] = byte(v >> 24)
}

func (img *Image) writeBootSector() {
	b := img.buf
	c := img.cfg

	put16(b, 0x0B, c.BytesPerSector)
	b[0x0D] = c.SectorsPerCluster
	put16(b, 0x0E, c.ReservedSectors)
	b[0x10] = c.NumFATs
	put16(b, 0x11, c.RootEntryCount)
	b[0x15] = c.Media
	put16(b, 0x18, 0)
	put16(b, 0x1A, 0)
	put32(b, 0x1C, 0)

	if c.isFAT32() {
		put16(b, 0x13, 0)
		put16(b, 0x16, 0)
		put32(b, 0x20, c.TotalSectors)

		put32(b, 0x24, c.FATSize)
		put16(b, 0x28, c.FAT32Flags)
		put16(b, 0x2A, 0)
		put32(b, 0x2C, c.FAT32RootCluster)
		put16(b, 0x30, 1)
		put16(b, 0x32, 6)
		b[0x40] = 0x80
		b[0x42] = 0x29
	} else {
		put16(b, 0x13, uint16(c.TotalSectors))
		put16(b, 0x16, uint16(c.FATSize))
		put32(b, 0x20, 0)

		b[0x24] = 0x80
		b[0x26] = 0x29
	}

	b[510] = 0x55
	b[511] = 0xAA
}

// fatOffset returns the byte offset of FAT copy copyIndex (0-based).
func (img *Image) fatOffset(copyIndex int) int {
	return (int(img.cfg.ReservedSectors)*img.bytesPerSector) + copyIndex*img.fatSizeBytes
}

// SetFATEntry12 writes a 12-bit FAT entry for cluster into FAT copy
// copyIndex, handling the nibble packing and any sector-boundary straddle.
func (img *Image) SetFATEntry12(copyIndex int, cluster uint32, value uint16) {
	base := img.fatOffset(copyIndex)
	fatOffset := cluster + cluster/2

	existing := uint16(img.buf[base+int(fatOffset)]) | uint16(img.buf[base+int(fatOffset)+1])<<8
	var packed uint16
	if cluster%2 != 0 {
		packed = (existing & 0x000F) | (value << 4)
	} else {
		packed = (existing & 0xF000) | (value & 0x0FFF)
	}
	img.buf[base+int(fatOffset)] = byte(packed)
	img.buf[base+int(fatOffset)+1] = byte(packed >> 8)
}

// SetFATEntry16 writes a 16-bit FAT entry.
func (img *Image) SetFATEntry16(copyIndex int, cluster uint32, value uint16) {
	base := img.fatOffset(copyIndex)
	put16(img.buf, base+int(cluster)*2, value)
}

// SetFATEntry32 writes a 28-bit FAT32 entry, preserving the reserved top
// nibble of whatever was already there.
func (img *Image) SetFATEntry32(copyIndex int, cluster uint32, value uint32) {
	base := img.fatOffset(copyIndex)
	off := base + int(cluster)*4
	existing := uint32(img.buf[off]) | uint32(img.buf[off+1])<<8 | uint32(img.buf[off+2])<<16 | uint32(img.buf[off+3])<<24
	packed := (existing & 0xF0000000) | (value & 0x0FFFFFFF)
	put32(img.buf, off, packed)
}

// firstSectorOfCluster mirrors geometry.FirstSectorOfCluster for this image.
func (img *Image) firstSectorOfCluster(cluster uint32) int {
	return (int(cluster)-2)*int(img.cfg.SectorsPerCluster) + img.firstDataSector
}

// WriteCluster writes data into the given cluster, zero-padding or
// truncating to exactly one cluster's worth of bytes.
func (img *Image) WriteCluster(cluster uint32, data []byte) {
	offset := img.firstSectorOfCluster(cluster) * img.bytesPerSector
	n := copy(img.buf[offset:offset+img.bytesPerCluster], data)
	for i := n; i < img.bytesPerCluster; i++ {
		img.buf[offset+i] = 0
	}
}

// CorruptFATCopy overwrites an entire FAT copy with a fixed byte, for
// exercising active-FAT-selection tests where a non-authoritative copy
// must be ignored.
func (img *Image) CorruptFATCopy(copyIndex int, fill byte) {
	base := img.fatOffset(copyIndex)
	for i := 0; i < img.fatSizeBytes; i++ {
		img.buf[base+i] = fill
	}
}

// rootEntryOffset returns the byte offset of slot within the root
// directory region (FAT12/16 only).
func (img *Image) rootEntryOffset(slot int) int {
	return img.rootDirOffset + slot*32
}

// clusterEntryOffset returns the byte offset of slot within cluster
// for a non-root (or FAT32 root) directory.
func (img *Image) clusterEntryOffset(cluster uint32, slot int) int {
	return img.firstSectorOfCluster(cluster)*img.bytesPerSector + slot*32
}

// writeShortEntryAt writes a short directory entry at the given absolute
// byte offset.
func (img *Image) writeShortEntryAt(off int, rawName [11]byte, attr uint8, writeDate, writeTime uint16, cluster uint32, size uint32) {
	copy(img.buf[off:off+11], rawName[:])
	img.buf[off+11] = attr
	put16(img.buf, off+22, writeTime)
	put16(img.buf, off+24, writeDate)
	put16(img.buf, off+20, uint16(cluster>>16))
	put16(img.buf, off+26, uint16(cluster))
	put32(img.buf, off+28, size)
}

// WriteRootShortEntry writes a short entry into slot `slot` of a FAT12/16
// root directory.
func (img *Image) WriteRootShortEntry(slot int, rawName [11]byte, attr uint8, writeDate, writeTime uint16, cluster uint32, size uint32) {
	img.writeShortEntryAt(img.rootEntryOffset(slot), rawName, attr, writeDate, writeTime, cluster, size)
}

// WriteClusterShortEntry writes a short entry into slot `slot` of the
// directory whose data lives at the given cluster (FAT32 root, or any
// subdirectory).
func (img *Image) WriteClusterShortEntry(cluster uint32, slot int, rawName [11]byte, attr uint8, writeDate, writeTime uint16, entryCluster uint32, size uint32) {
	img.writeShortEntryAt(img.clusterEntryOffset(cluster, slot), rawName, attr, writeDate, writeTime, entryCluster, size)
}

func (img *Image) writeLongEntryAt(off int, order uint8, name1 [5]uint16, name2 [6]uint16, name3 [2]uint16, checksum uint8) {
	img.buf[off] = order
	for i, u := range name1 {
		put16(img.buf, off+1+i*2, u)
	}
	img.buf[off+11] = 0x0F
	img.buf[off+12] = 0
	img.buf[off+13] = checksum
	for i, u := range name2 {
		put16(img.buf, off+14+i*2, u)
	}
	put16(img.buf, off+26, 0)
	for i, u := range name3 {
		put16(img.buf, off+28+i*2, u)
	}
}

// WriteRootLongEntry writes a long-name fragment into slot `slot` of a
// FAT12/16 root directory.
func (img *Image) WriteRootLongEntry(slot int, order uint8, name1 [5]uint16, name2 [6]uint16, name3 [2]uint16, checksum uint8) {
	img.writeLongEntryAt(img.rootEntryOffset(slot), order, name1, name2, name3, checksum)
}

// Bytes returns the raw image content.
func (img *Image) Bytes() []byte { return img.buf }

// Size returns the image size in bytes.
func (img *Image) Size() int64 { return int64(len(img.buf)) }

// ReadAt implements io.ReaderAt directly against the image's own buffer,
// so an *Image can be passed straight to fat.Mount.
func (img *Image) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off >= int64(len(img.buf)) {
		return 0, io.EOF
	}
	n := copy(p, img.buf[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// ReadWriteSeeker exposes the image as a seekable stream backed by the
// same underlying bytes Mount reads, for tests that want to patch the
// image in place (corrupting a FAT copy, say) using ordinary Seek/Write
// calls instead of the Set*/Corrupt* helpers above.
func (img *Image) ReadWriteSeeker() io.ReadWriteSeeker {
	return bytesextra.NewReadWriteSeeker(img.buf)
}
