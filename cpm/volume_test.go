package cpm

import (
	"testing"

	"github.com/zellyn/sectorcpc/cpcemu"
)

// newTestVolume formats a fresh in-memory data disk and resolves its
// CP/M volume, without ever touching the filesystem.
func newTestVolume(t *testing.T) *Volume {
	t.Helper()
	disk, err := cpcemu.New("test.dsk")
	if err != nil {
		t.Fatal(err)
	}
	v, err := Init(disk)
	if err != nil {
		t.Fatal(err)
	}
	return v
}

func TestInitResolvesDataDPB(t *testing.T) {
	v := newTestVolume(t)
	if v.DPB.DSM != dpbData.DSM {
		t.Errorf("resolved DSM = %#x, want data-disk DSM %#x", v.DPB.DSM, dpbData.DSM)
	}
	if v.baseTrack != 0 {
		t.Errorf("baseTrack = %d, want 0 for a data disk", v.baseTrack)
	}
	if v.blockSize != 1024 {
		t.Errorf("blockSize = %d, want 1024", v.blockSize)
	}
	if v.dirSectors != 4 {
		t.Errorf("dirSectors = %d, want 4", v.dirSectors)
	}
	if v.firstDataBlock != 2 {
		t.Errorf("firstDataBlock = %d, want 2", v.firstDataBlock)
	}
}

func TestBlockToTrackSector(t *testing.T) {
	v := newTestVolume(t)
	// Block 0 starts at sector offset 0: track 0, sector 0.
	track, sector := v.BlockToTrackSector(0)
	if track != 0 || sector != 0 {
		t.Errorf("block 0 -> (%d,%d), want (0,0)", track, sector)
	}
	// Block 9: sectorOffset = 9*1024/512 = 18; track 18/9=2, sector 18%9=0.
	track, sector = v.BlockToTrackSector(9)
	if track != 2 || sector != 0 {
		t.Errorf("block 9 -> (%d,%d), want (2,0)", track, sector)
	}
}

func TestAddSectorOffsetWrapsTracks(t *testing.T) {
	track, sector := AddSectorOffset(0, 8, 1)
	if track != 1 || sector != 0 {
		t.Errorf("AddSectorOffset(0,8,1) = (%d,%d), want (1,0)", track, sector)
	}
	track, sector = AddSectorOffset(3, 2, 4)
	if track != 3 || sector != 6 {
		t.Errorf("AddSectorOffset(3,2,4) = (%d,%d), want (3,6)", track, sector)
	}
}

func TestSeedBitmapOnEmptyDiskLeavesDirectoryBlocksClear(t *testing.T) {
	v := newTestVolume(t)
	if err := v.SeedBitmap(); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < v.firstDataBlock; i++ {
		// Nothing has been written yet, so no directory entry marks
		// any block; only a real insert populates the bitmap.
		if v.bitmap.IsSet(i) {
			t.Errorf("block %d unexpectedly marked before any insert", i)
		}
	}
}
