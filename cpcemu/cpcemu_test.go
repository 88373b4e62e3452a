package cpcemu

import (
	"testing"

	"github.com/kr/pretty"
	"github.com/zellyn/sectorcpc/image"
)

// TestNewImageSize checks scenario S1: a freshly formatted image is
// exactly 256 + 40*4864 bytes, starts with 'M', and track 1's
// sector-info table carries the interleaved data-disk sector IDs.
func TestNewImageSize(t *testing.T) {
	disk, err := New("test.dsk")
	if err != nil {
		t.Fatal(err)
	}
	bb := disk.Image().Bytes()

	if got, want := len(bb), 194816; got != want {
		t.Errorf("image size = %d, want %d", got, want)
	}
	if bb[0] != 'M' {
		t.Errorf("first byte = %q, want 'M'", bb[0])
	}

	ti, err := disk.ReadTrackInfo(1)
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{0xC1, 0xC6, 0xC2, 0xC7, 0xC3, 0xC8, 0xC4, 0xC9, 0xC5}
	got := make([]byte, NumSectorsPerTrack)
	for i, si := range ti.SectorInfos[:NumSectorsPerTrack] {
		got[i] = si.SectorID
	}
	if diff := pretty.Diff(got, want); len(diff) > 0 {
		t.Errorf("track 1 sector IDs differ: %v", diff)
	}
}

func TestNewThenInitRoundtrips(t *testing.T) {
	disk, err := New("test.dsk")
	if err != nil {
		t.Fatal(err)
	}
	bb := disk.Image().Bytes()

	reattached := Attach(image.New("test.dsk", len(bb)))
	copy(reattached.Image().Bytes(), bb)

	if err := reattached.Init(); err != nil {
		t.Fatal(err)
	}
	if reattached.Variant() != VariantData {
		t.Errorf("Variant() = %v, want VariantData", reattached.Variant())
	}
	if reattached.Skew() != DefaultSkew {
		t.Errorf("Skew() = %v, want %v", reattached.Skew(), DefaultSkew)
	}
}

// TestSkewPermutation checks property P3: after New the skew table is
// a permutation of 0..8.
func TestSkewPermutation(t *testing.T) {
	disk, err := New("test.dsk")
	if err != nil {
		t.Fatal(err)
	}
	skew := disk.Skew()
	var seen [NumSectorsPerTrack]bool
	for _, p := range skew {
		if seen[p] {
			t.Fatalf("skew table %v is not a permutation", skew)
		}
		seen[p] = true
	}
}

func TestLogicalSectorReadWrite(t *testing.T) {
	disk, err := New("test.dsk")
	if err != nil {
		t.Fatal(err)
	}
	data := make([]byte, SectorSize)
	for i := range data {
		data[i] = byte(i % 251)
	}
	if err := disk.WriteLogicalSector(5, 3, data); err != nil {
		t.Fatal(err)
	}
	got, err := disk.ReadLogicalSector(5, 3)
	if err != nil {
		t.Fatal(err)
	}
	if diff := pretty.Diff(got, data); len(diff) > 0 {
		t.Errorf("read-after-write differs: %v", diff)
	}
}

func TestInitRejectsUnknownVariant(t *testing.T) {
	disk, err := New("test.dsk")
	if err != nil {
		t.Fatal(err)
	}
	ti, err := disk.ReadTrackInfo(0)
	if err != nil {
		t.Fatal(err)
	}
	ti.SectorInfos[0].SectorID = 0x99
	if err := disk.WriteTrackInfo(0, ti); err != nil {
		t.Fatal(err)
	}
	if err := disk.Init(); err == nil {
		t.Error("expected Init to reject an unrecognised sector-id base")
	}
}

func TestDiskInfoMarshalRoundtrip(t *testing.T) {
	info := DiskInfo{NumTracks: 40, NumHeads: 1, TrackSize: TrackSize}
	copy(info.Header[:], stdHeader)
	copy(info.Creator[:], creator)

	buf, err := info.MarshalBinary()
	if err != nil {
		t.Fatal(err)
	}
	if len(buf) != InfoSize {
		t.Fatalf("marshalled size = %d, want %d", len(buf), InfoSize)
	}

	var got DiskInfo
	if err := got.UnmarshalBinary(buf); err != nil {
		t.Fatal(err)
	}
	if diff := pretty.Diff(got, info); len(diff) > 0 {
		t.Errorf("roundtrip differs: %v", diff)
	}
	if got.IsExtended() {
		t.Error("standard header reported as extended")
	}
}
