package cpm

// FileEntry is one row of a directory listing.
type FileEntry struct {
	Name       string
	SizeKB     int
	ReadOnly   bool
	System     bool
}

// List returns one FileEntry per live file (EX 0 entries with data),
// with size summed across its whole extent chain.
func (v *Volume) List() ([]FileEntry, error) {
	var entries []FileEntry
	seen := map[string]bool{}

	err := v.forEachDirEntry(func(_ int, _ []byte, _ int, entry DirEntry) error {
		if entry.Unused() || entry.EX != 0 || entry.AL[0] == 0 {
			return nil
		}
		name := Normalise(entry)
		if seen[name] {
			return nil
		}
		seen[name] = true

		chain, err := v.findExtentChain(name)
		if err != nil {
			return err
		}
		var totalRC int
		for _, e := range chain {
			totalRC += int(e.RC)
		}
		sizeKB := (totalRC*recordSize + 1023) / 1024

		entries = append(entries, FileEntry{
			Name:     name,
			SizeKB:   sizeKB,
			ReadOnly: entry.ReadOnly(),
			System:   entry.System(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}
