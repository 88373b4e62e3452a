package cpm

import (
	"bytes"

	"github.com/zellyn/sectorcpc/amsdos"
	"github.com/zellyn/sectorcpc/cerrors"
)

const recordsPerSector = sectorSize / recordSize

const textEOF = 0x1A

// Extract walks a matching file's extent chain and returns its
// contents. When the first record of the first block of
// extent 0 carries a valid AMSDOS checksum, that record is stripped
// from the output. In text mode, output stops at the first 0x1A byte
// encountered.
func (v *Volume) Extract(name string, textMode bool) ([]byte, error) {
	chain, err := v.findExtentChain(name)
	if err != nil {
		return nil, err
	}
	if len(chain) == 0 {
		return nil, cerrors.NotFoundf("file %q not found", name)
	}

	var out []byte
	for ei, entry := range chain {
		target := int(entry.RC)
		if entry.RC == fullExtentRC {
			target = 128
		}
		consumed := 0

		for bi, b := range entry.AL {
			if b == 0 {
				break
			}
			track, sector := v.BlockToTrackSector(int(b))
			for s := 0; s < v.sectorsPerBlock; s++ {
				if consumed >= target {
					break
				}
				t, sec := AddSectorOffset(track, sector, s)
				data, err := v.Disk.ReadLogicalSector(t, sec)
				if err != nil {
					return nil, err
				}
				for r := 0; r < recordsPerSector; r++ {
					if consumed >= target {
						break
					}
					record := data[r*recordSize : (r+1)*recordSize]
					consumed++

					if ei == 0 && bi == 0 && s == 0 && r == 0 && amsdos.HasValidHeader(record) {
						continue
					}

					if textMode {
						if idx := bytes.IndexByte(record, textEOF); idx >= 0 {
							out = append(out, record[:idx]...)
							return out, nil
						}
					}
					out = append(out, record...)
				}
			}
		}
	}
	return out, nil
}
