package fat

import (
	"io"

	"github.com/relvacode/gofat/errors"
	"github.com/relvacode/gofat/internal/geometry"
)

// chainWalker turns cluster chains into byte streams. It has no notion of
// files or directories -- it just knows how to follow the FAT from a
// starting cluster to end-of-chain, reading the cluster's raw bytes along
// the way.
type chainWalker struct {
	src        io.ReaderAt
	bootSector *BootSector
	table      *table
}

func newChainWalker(src io.ReaderAt, bs *BootSector, t *table) *chainWalker {
	return &chainWalker{src: src, bootSector: bs, table: t}
}

func (w *chainWalker) bytesPerCluster() int {
	return int(w.bootSector.BPB.BytesPerSector) * int(w.bootSector.BPB.SectorsPerCluster)
}

// ReadCluster reads the raw bytes of a single cluster, without following
// the chain any further.
func (w *chainWalker) ReadCluster(cluster ClusterID) ([]byte, error) {
	sector := geometry.FirstSectorOfCluster(w.bootSector.geometryFields(), uint(cluster))
	offset := int64(sector) * int64(w.bootSector.BPB.BytesPerSector)

	buf := make([]byte, w.bytesPerCluster())
	if _, err := w.src.ReadAt(buf, offset); err != nil {
		return nil, errors.ErrOpenFailed.WrapError(err)
	}
	return buf, nil
}

// Chain returns every cluster number in the chain starting at start, in
// order, including start itself. A start of 0 denotes an empty file/
// directory and yields an empty chain.
func (w *chainWalker) Chain(start ClusterID) ([]ClusterID, error) {
	if start == 0 {
		return nil, nil
	}

	var chain []ClusterID
	current := start
	for {
		chain = append(chain, current)

		next, isLast, err := w.table.NextCluster(current)
		if err != nil {
			return nil, err
		}
		if isLast {
			return chain, nil
		}
		current = next
	}
}

// ReadFull reads the entire contents of the cluster chain starting at
// start, concatenated in cluster order.
func (w *chainWalker) ReadFull(start ClusterID) ([]byte, error) {
	chain, err := w.Chain(start)
	if err != nil {
		return nil, err
	}

	data := make([]byte, 0, len(chain)*w.bytesPerCluster())
	for _, cluster := range chain {
		clusterData, err := w.ReadCluster(cluster)
		if err != nil {
			return nil, err
		}
		data = append(data, clusterData...)
	}
	return data, nil
}

// ClusterCount returns the number of clusters in the chain starting at
// start, without reading any cluster data.
func (w *chainWalker) ClusterCount(start ClusterID) (int, error) {
	chain, err := w.Chain(start)
	if err != nil {
		return 0, err
	}
	return len(chain), nil
}
