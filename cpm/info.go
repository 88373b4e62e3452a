package cpm

import "github.com/zellyn/sectorcpc/cerrors"

// BlockLocation is where one allocation block lives on the physical
// disk: its starting (track, sector_id), plus the sector_id of the
// following physical sector when the block spans two sectors.
type BlockLocation struct {
	Block         byte
	Track         byte
	SectorID      byte
	SecondSectorID byte
	Spans2        bool
}

// TrackRange coalesces a run of blocks on one track into a
// (track, min sector_id, max sector_id) triple, for tracks-only info.
type TrackRange struct {
	Track    byte
	MinID    byte
	MaxID    byte
}

// Info returns the extent chain and the physical block locations for
// a matching file.
func (v *Volume) Info(name string) ([]DirEntry, []BlockLocation, error) {
	chain, err := v.findExtentChain(name)
	if err != nil {
		return nil, nil, err
	}
	if len(chain) == 0 {
		return nil, nil, cerrors.NotFoundf("file %q not found", name)
	}

	var locs []BlockLocation
	for _, entry := range chain {
		for _, b := range entry.AL {
			if b == 0 {
				continue
			}
			loc, err := v.blockLocation(b)
			if err != nil {
				return nil, nil, err
			}
			locs = append(locs, loc)
		}
	}
	return chain, locs, nil
}

func (v *Volume) blockLocation(block byte) (BlockLocation, error) {
	track, sector := v.BlockToTrackSector(int(block))
	id, err := v.Disk.SectorID(track, sector)
	if err != nil {
		return BlockLocation{}, err
	}
	loc := BlockLocation{Block: block, Track: track, SectorID: id}
	if v.sectorsPerBlock > 1 {
		t2, s2 := AddSectorOffset(track, sector, 1)
		id2, err := v.Disk.SectorID(t2, s2)
		if err != nil {
			return BlockLocation{}, err
		}
		loc.SecondSectorID = id2
		loc.Spans2 = true
	}
	return loc, nil
}

// TracksOnly coalesces a file's block locations into track ranges
// suitable for ROM-side loaders.
func TracksOnly(locs []BlockLocation) []TrackRange {
	var ranges []TrackRange
	for _, loc := range locs {
		ids := []byte{loc.SectorID}
		if loc.Spans2 {
			ids = append(ids, loc.SecondSectorID)
		}
		for _, id := range ids {
			if n := len(ranges); n > 0 && ranges[n-1].Track == loc.Track {
				if id < ranges[n-1].MinID {
					ranges[n-1].MinID = id
				}
				if id > ranges[n-1].MaxID {
					ranges[n-1].MaxID = id
				}
				continue
			}
			ranges = append(ranges, TrackRange{Track: loc.Track, MinID: id, MaxID: id})
		}
	}
	return ranges
}
