package geometry_test

import (
	"testing"

	"github.com/relvacode/gofat/internal/geometry"
	"github.com/stretchr/testify/assert"
)

// A classic 1.44MB floppy: 512B/sector, 18 sectors/track, 2 FATs,
// 224 root entries, 9 sectors/FAT, 1 sector/cluster, 2880 total sectors.
func floppy144() geometry.BPBFields {
	return geometry.BPBFields{
		BytesPerSector:    512,
		SectorsPerCluster: 1,
		ReservedSectors:   1,
		NumFATs:           2,
		RootEntryCount:    224,
		TotalSectors16:    2880,
		FATSize16:         9,
	}
}

func TestRootDirSectors(t *testing.T) {
	assert.EqualValues(t, 14, geometry.RootDirSectors(floppy144()))
}

func TestFirstDataSector(t *testing.T) {
	// 1 reserved + 2*9 FAT + 14 root = 33
	assert.EqualValues(t, 33, geometry.FirstDataSector(floppy144()))
}

func TestFirstSectorOfCluster(t *testing.T) {
	b := floppy144()
	assert.EqualValues(t, 33, geometry.FirstSectorOfCluster(b, 2))
	assert.EqualValues(t, 34, geometry.FirstSectorOfCluster(b, 3))
}

func TestClusterCountAndClassification(t *testing.T) {
	b := floppy144()
	cc := geometry.ClusterCount(b)
	// 2880 - 33 = 2847 data sectors / 1 sector per cluster
	assert.EqualValues(t, 2847, cc)
	assert.Equal(t, geometry.FAT12, geometry.ClassifyFATType(cc))
}

func TestClassifyThresholds(t *testing.T) {
	assert.Equal(t, geometry.FAT12, geometry.ClassifyFATType(4084))
	assert.Equal(t, geometry.FAT16, geometry.ClassifyFATType(4085))
	assert.Equal(t, geometry.FAT16, geometry.ClassifyFATType(65524))
	assert.Equal(t, geometry.FAT32, geometry.ClassifyFATType(65525))
}

func TestFATSizePrefers16(t *testing.T) {
	b := geometry.BPBFields{FATSize16: 9, FATSize32: 1000}
	assert.EqualValues(t, 9, geometry.FATSize(b))

	b2 := geometry.BPBFields{FATSize16: 0, FATSize32: 1000}
	assert.EqualValues(t, 1000, geometry.FATSize(b2))
}

func TestTotalSectorsPrefers16(t *testing.T) {
	b := geometry.BPBFields{TotalSectors16: 2880, TotalSectors32: 999999}
	assert.EqualValues(t, 2880, geometry.TotalSectors(b))

	b2 := geometry.BPBFields{TotalSectors16: 0, TotalSectors32: 999999}
	assert.EqualValues(t, 999999, geometry.TotalSectors(b2))
}
