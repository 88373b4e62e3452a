// Package cpm implements the embedded CP/M 2.2 file system: DPB
// resolution, directory scanning and extent chaining, the allocation
// bitmap, block/(track,sector) translation, and the list/info/
// extract/insert/delete operations that drive them.
package cpm

import (
	"github.com/zellyn/sectorcpc/cerrors"
	"github.com/zellyn/sectorcpc/cpcemu"
)

const sectorSize = cpcemu.SectorSize

// Volume is the explicit context constructed by Init and threaded
// through every operation: the resolved DPB, its derived sizes, and
// the allocation bitmap. Nothing below this layer keeps package-level
// mutable state.
type Volume struct {
	Disk *cpcemu.Disk
	DPB  DPB

	blockSize       int
	sectorsPerBlock int
	dirSectors      int
	baseTrack       byte
	firstDataBlock  int

	bitmap *Bitmap
}

// Init resolves the disk variant (via the cpcemu layer, which must
// already have had its own Init called), selects the matching DPB,
// and computes the derived sizes. The allocation bitmap is left
// unseeded; SeedBitmap populates it from a directory scan before any
// write.
func Init(disk *cpcemu.Disk) (*Volume, error) {
	var dpb DPB
	switch disk.Variant() {
	case cpcemu.VariantSystem:
		dpb = dpbSystem
	case cpcemu.VariantData:
		dpb = dpbData
	default:
		return nil, cerrors.InvalidImagef("cannot resolve DPB: unknown disk variant")
	}

	v := &Volume{
		Disk:            disk,
		DPB:             dpb,
		blockSize:       dpb.BlockSize(),
		sectorsPerBlock: dpb.SectorsPerBlock(),
		dirSectors:      dpb.DirSectors(),
		baseTrack:       dpb.BaseTrack(),
		firstDataBlock:  dpb.FirstDataBlock(),
	}
	v.bitmap = NewBitmap(int(dpb.DSM) + 1)
	return v, nil
}

// BlockToTrackSector translates an allocation-block index to its
// starting (track, logical sector) pair.
func (v *Volume) BlockToTrackSector(block int) (track byte, sector byte) {
	sectorOffset := block * v.blockSize / sectorSize
	track = v.baseTrack + byte(sectorOffset/cpcemu.NumSectorsPerTrack)
	sector = byte(sectorOffset % cpcemu.NumSectorsPerTrack)
	return track, sector
}

// AddSectorOffset returns the (track, sector) reached by advancing j
// logical sectors from (track, sector), wrapping across track
// boundaries.
func AddSectorOffset(track, sector byte, j int) (byte, byte) {
	total := int(sector) + j
	newTrack := int(track) + total/cpcemu.NumSectorsPerTrack
	newSector := total % cpcemu.NumSectorsPerTrack
	return byte(newTrack), byte(newSector)
}

// readDirSector reads logical sector index i (0-based within the
// directory area) of the base track.
func (v *Volume) readDirSector(i int) ([]byte, error) {
	return v.Disk.ReadLogicalSector(v.baseTrack, byte(i))
}

func (v *Volume) writeDirSector(i int, data []byte) error {
	return v.Disk.WriteLogicalSector(v.baseTrack, byte(i), data)
}

// forEachDirEntry calls fn for every directory entry in the
// directory area, in on-disk order, passing its sector index and
// offset within the sector so callers can rewrite it in place. fn
// returning a non-nil error stops iteration and is returned as-is
// (use a sentinel to implement early-exit search).
func (v *Volume) forEachDirEntry(fn func(sectorIdx int, sector []byte, entryOffset int, entry DirEntry) error) error {
	for i := 0; i < v.dirSectors; i++ {
		sector, err := v.readDirSector(i)
		if err != nil {
			return err
		}
		for j := 0; j < direntriesPerSector; j++ {
			off := j * direntrySize
			var entry DirEntry
			if err := entry.UnmarshalBinary(sector[off : off+direntrySize]); err != nil {
				return err
			}
			if err := fn(i, sector, off, entry); err != nil {
				return err
			}
		}
	}
	return nil
}

// SeedBitmap scans the directory and marks every non-zero AL[k] of
// every live entry as used. Must be called before any insert.
func (v *Volume) SeedBitmap() error {
	v.bitmap = NewBitmap(int(v.DPB.DSM) + 1)
	return v.forEachDirEntry(func(_ int, _ []byte, _ int, entry DirEntry) error {
		if entry.Unused() {
			return nil
		}
		for _, b := range entry.AL {
			if b != 0 && !v.bitmap.IsSet(int(b)) {
				v.bitmap.Mark(int(b))
			}
		}
		return nil
	})
}

// findExtentChain returns, in EX order, every directory entry whose
// canonical name matches name (case-insensitive).
func (v *Volume) findExtentChain(name string) ([]DirEntry, error) {
	var chain []DirEntry
	err := v.forEachDirEntry(func(_ int, _ []byte, _ int, entry DirEntry) error {
		if entry.Unused() {
			return nil
		}
		if !equalFold(Normalise(entry), name) {
			return nil
		}
		chain = append(chain, entry)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortByExtent(chain)
	return chain, nil
}

func equalFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		ca, cb := a[i], b[i]
		if 'a' <= ca && ca <= 'z' {
			ca -= 'a' - 'A'
		}
		if 'a' <= cb && cb <= 'z' {
			cb -= 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}

func sortByExtent(chain []DirEntry) {
	for i := 1; i < len(chain); i++ {
		for j := i; j > 0 && chain[j].EX < chain[j-1].EX; j-- {
			chain[j], chain[j-1] = chain[j-1], chain[j]
		}
	}
}
