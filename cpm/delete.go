package cpm

// Delete marks every directory entry matching name (case-insensitive)
// as unused. It does not clear AL or the data blocks
// themselves; the next insert's bitmap seed reclaims them. The
// returned bool reports whether any entry was found and deleted, so
// callers can implement the idempotent "delete F; delete F" contract
// (the second call is a no-op that leaves the image unchanged).
func (v *Volume) Delete(name string) (bool, error) {
	deletedAny := false

	for i := 0; i < v.dirSectors; i++ {
		sector, err := v.readDirSector(i)
		if err != nil {
			return false, err
		}

		changed := false
		for j := 0; j < direntriesPerSector; j++ {
			off := j * direntrySize
			var entry DirEntry
			if err := entry.UnmarshalBinary(sector[off : off+direntrySize]); err != nil {
				return false, err
			}
			if entry.Unused() {
				continue
			}
			if !equalFold(Normalise(entry), name) {
				continue
			}
			sector[off] = noFile
			changed = true
			deletedAny = true
		}

		if changed {
			if err := v.writeDirSector(i, sector); err != nil {
				return false, err
			}
		}
	}

	return deletedAny, nil
}
