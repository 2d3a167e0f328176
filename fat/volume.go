package fat

import (
	"io"
	"os"

	"github.com/boljen/go-bitmap"
	"github.com/relvacode/gofat/errors"
	"github.com/relvacode/gofat/internal/longname"
)

// MountOptions configures how a Volume reads and validates its backing
// image. The zero value is the historical, permissive default: eager FAT
// loading and a zero FAT entry mid-chain silently treated as end-of-chain.
type MountOptions struct {
	// StrictChainTermination rejects a raw FAT entry of 0 encountered
	// mid-chain instead of treating it as end-of-chain. See the Design
	// Note on zero-as-EOC.
	StrictChainTermination bool

	// LazyFATLoad defers reading FAT sectors until a lookup actually
	// needs them, instead of pulling the whole active FAT in at mount.
	LazyFATLoad bool
}

// Entry is the logical file or directory presented to callers: a short
// entry, its reconstructed display name, and the cluster count of its
// data chain.
type Entry struct {
	Short        ShortEntry
	Name         string
	ClusterCount int
}

// Cluster returns the entry's starting cluster -- its inode.
func (e *Entry) Cluster() ClusterID { return e.Short.Cluster() }

// IsDirectory reports whether this entry is a directory.
func (e *Entry) IsDirectory() bool { return e.Short.Attributes&AttrDirectory != 0 }

// Size returns the entry's declared file size. Directories conventionally
// store 0 here; their real extent is their cluster chain.
func (e *Entry) Size() int64 { return int64(e.Short.FileSize) }

// VolumeStat summarizes a mounted volume's capacity, derived purely from
// read-side state -- no write path feeds it.
type VolumeStat struct {
	Type            FATType
	TotalClusters   int64
	FreeClusters    int64
	BytesPerCluster int
}

// Volume is a mounted FAT12/16/32 image: the parsed boot sector, the
// active FAT, a cluster-chain walker, and the caches that make repeated
// lookups cheap. It is not safe for concurrent use; callers sharing one
// Volume must serialize their own calls.
type Volume struct {
	src        io.ReaderAt
	bootSector *BootSector
	table      *table
	walker     *chainWalker
	opts       MountOptions

	dirCache         map[ClusterID][]*Entry
	parentOf         map[ClusterID]ClusterID
	childByInode     map[ClusterID]*Entry
	knownDirectories map[ClusterID]bool

	freeClusterBitmap bitmap.Bitmap
	freeClusters      *int64
	totalClusters     int64
}

// Mount parses src as a FAT image of the given size and decodes its root
// directory, per spec.md §4.6.
func Mount(src io.ReaderAt, size int64, opts MountOptions) (*Volume, error) {
	rawBoot, err := readBootSectorBytes(src)
	if err != nil {
		return nil, err
	}

	bs, err := parseBootSector(rawBoot, size)
	if err != nil {
		return nil, err
	}

	tbl, err := loadTable(src, bs, opts.StrictChainTermination, opts.LazyFATLoad)
	if err != nil {
		return nil, err
	}

	v := &Volume{
		src:              src,
		bootSector:       bs,
		table:            tbl,
		walker:           newChainWalker(src, bs, tbl),
		opts:             opts,
		dirCache:         make(map[ClusterID][]*Entry),
		parentOf:         make(map[ClusterID]ClusterID),
		childByInode:     make(map[ClusterID]*Entry),
		knownDirectories: make(map[ClusterID]bool),
		totalClusters:    bs.ClusterCount,
	}

	root := bs.RootCluster()
	v.knownDirectories[root] = true

	rootBuf, err := v.readRootDirectoryBytes(root)
	if err != nil {
		return nil, err
	}

	if err := v.decodeAndCacheDirectory(root, rootBuf); err != nil {
		return nil, err
	}

	return v, nil
}

// MountFile opens path read-only and mounts it.
func MountFile(path string, opts MountOptions) (*Volume, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.ErrOpenFailed.WrapError(err)
	}

	info, err := f.Stat()
	if err != nil {
		return nil, errors.ErrOpenFailed.WrapError(err)
	}

	return Mount(f, info.Size(), opts)
}

// readRootDirectoryBytes returns the root directory's raw content. FAT12/16
// roots sit at a fixed sector range right after every FAT copy; FAT32 roots
// are an ordinary cluster chain.
func (v *Volume) readRootDirectoryBytes(root ClusterID) ([]byte, error) {
	bs := v.bootSector
	if bs.Type == FAT32 {
		return v.walker.ReadFull(root)
	}

	firstRootSector := uint(bs.BPB.ReservedSectors) + uint(bs.BPB.NumFATs)*bs.FATSize
	byteOffset := int64(firstRootSector) * int64(bs.BPB.BytesPerSector)
	size := int(bs.RootDirSectors) * int(bs.BPB.BytesPerSector)

	buf := make([]byte, size)
	if _, err := v.src.ReadAt(buf, byteOffset); err != nil {
		return nil, errors.ErrOpenFailed.WrapError(err)
	}
	return buf, nil
}

// RootCluster returns the cluster number external callers should present
// to enter the root directory.
func (v *Volume) RootCluster() ClusterID { return v.bootSector.RootCluster() }

// IsFAT32 reports whether the volume is FAT32.
func (v *Volume) IsFAT32() bool { return v.bootSector.Type == FAT32 }

// Type returns the volume's detected FAT variant.
func (v *Volume) Type() FATType { return v.bootSector.Type }

// Stat computes the volume's capacity. The first call walks the entire
// FAT to count free clusters; the count is cached afterward. Under
// MountOptions.LazyFATLoad this is the point lazy loading catches up, since
// counting free clusters touches every FAT entry.
func (v *Volume) Stat() VolumeStat {
	if v.freeClusters == nil {
		free := v.countFreeClusters()
		v.freeClusters = &free
	}

	bs := v.bootSector
	return VolumeStat{
		Type:            bs.Type,
		TotalClusters:   v.totalClusters,
		FreeClusters:    *v.freeClusters,
		BytesPerCluster: int(bs.BPB.BytesPerSector) * int(bs.BPB.SectorsPerCluster),
	}
}

// countFreeClusters scans every allocatable cluster's FAT entry once and
// records which are free in freeClusterBitmap, so a later caller wanting
// to know whether a specific cluster is free doesn't need to re-walk the
// FAT.
func (v *Volume) countFreeClusters() int64 {
	v.freeClusterBitmap = bitmap.NewSlice(int(v.totalClusters))
	var free int64
	for c := ClusterID(2); int64(c) < v.totalClusters+2; c++ {
		raw, err := v.table.entry(c)
		if err != nil {
			continue
		}
		if raw == 0 {
			free++
			v.freeClusterBitmap.Set(int(c-2), true)
		}
	}
	return free
}

// IsClusterFree reports whether cluster c is unallocated. It forces the
// same full FAT scan Stat does, the first time either is called.
func (v *Volume) IsClusterFree(c ClusterID) bool {
	v.Stat()
	if int64(c) < 2 || int64(c) >= v.totalClusters+2 {
		return false
	}
	return v.freeClusterBitmap.Get(int(c - 2))
}

// ListDirectory returns the decoded entries of the directory at inode,
// decoding and caching them on first access. It returns absent if inode
// has never been observed as a directory.
func (v *Volume) ListDirectory(inode ClusterID) ([]*Entry, bool) {
	if entries, ok := v.dirCache[inode]; ok {
		return entries, true
	}

	if !v.knownDirectories[inode] {
		return nil, false
	}

	buf, err := v.walker.ReadFull(inode)
	if err != nil {
		return nil, false
	}

	if err := v.decodeAndCacheDirectory(inode, buf); err != nil {
		return nil, false
	}

	return v.dirCache[inode], true
}

func (v *Volume) decodeAndCacheDirectory(inode ClusterID, buf []byte) error {
	entries, err := decodeDirectoryEntries(buf, v.walker)
	if err != nil {
		return err
	}

	for _, e := range entries {
		v.parentOf[e.Cluster()] = inode
		v.childByInode[e.Cluster()] = e
		if e.IsDirectory() {
			v.knownDirectories[e.Cluster()] = true
		}
	}

	v.dirCache[inode] = entries
	return nil
}

// Lookup resolves name within the directory at parent, comparing names
// under Unicode simple case folding. The first match in directory order
// wins if more than one entry collides under folding.
func (v *Volume) Lookup(parent ClusterID, name string) (*Entry, bool) {
	entries, ok := v.ListDirectory(parent)
	if !ok {
		return nil, false
	}

	for _, e := range entries {
		if longname.EqualFold(e.Name, name) {
			return e, true
		}
	}
	return nil, false
}

// GetInode returns the child container for inode, provided its parent
// directory has already been cached by ListDirectory or Lookup.
func (v *Volume) GetInode(inode ClusterID) (*Entry, bool) {
	e, ok := v.childByInode[inode]
	return e, ok
}

// GetData returns up to size bytes of inode's data starting at offset. It
// returns absent if inode is not a known child; an empty slice if offset
// is beyond the entry's declared length; otherwise the sub-range, clamped
// at the end of the decoded chain.
func (v *Volume) GetData(inode ClusterID, offset int64, size int) ([]byte, bool) {
	e, ok := v.childByInode[inode]
	if !ok {
		return nil, false
	}

	data, err := v.walker.ReadFull(e.Cluster())
	if err != nil {
		return nil, false
	}

	length := int64(len(data))
	if !e.IsDirectory() {
		length = e.Size()
	}
	if length > int64(len(data)) {
		length = int64(len(data))
	}

	if offset >= length {
		return []byte{}, true
	}

	end := offset + int64(size)
	if end > length {
		end = length
	}
	return data[offset:end], true
}
