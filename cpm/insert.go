package cpm

import (
	"io"

	"github.com/zellyn/sectorcpc/amsdos"
	"github.com/zellyn/sectorcpc/cerrors"
)

// Insert writes source (of exactly sourceSize bytes) to the volume
// under name, overwriting any existing file of the same name. When
// amsdosMode is set, a 128-byte AMSDOS header is written as the very
// first record of the file.
func (v *Volume) Insert(name string, source io.Reader, sourceSize int, amsdosMode bool, entryAddr, execAddr uint16) error {
	file, ext, err := Denormalise(name, true)
	if err != nil {
		return err
	}

	var header amsdos.Header
	if amsdosMode {
		header = amsdos.Build(file, ext, sourceSize, entryAddr, execAddr)
	}

	if err := v.SeedBitmap(); err != nil {
		return err
	}
	if _, err := v.Delete(name); err != nil {
		return err
	}

	// totalRecords bounds how many 128-byte records this insert ever
	// writes (the AMSDOS header counts as one). Without this, a source
	// whose length lands exactly on a 16-block extent boundary would
	// fully complete its extent without ever seeing EOF, and the outer
	// loop would open a spurious, empty trailing extent.
	totalRecords := (sourceSize + recordSize - 1) / recordSize
	if amsdosMode {
		totalRecords++
	}
	recordsWritten := 0

	headerWritten := false
	extent := byte(0)

	for {
		sectorIdx, entryOffset, err := v.findFreeDirSlot()
		if err != nil {
			return err
		}

		entry := DirEntry{FileName: file, Ext: ext, EX: extent}

		for k := 0; k < maxExtentAL; k++ {
			block, err := v.bitmap.Allocate(v.firstDataBlock)
			if err != nil {
				return err
			}
			entry.AL[k] = byte(block)

			track, sector := v.BlockToTrackSector(block)
			for s := 0; s < v.sectorsPerBlock; s++ {
				t, sec := AddSectorOffset(track, sector, s)
				buf := make([]byte, sectorSize)
				for i := range buf {
					buf[i] = noFile
				}

				for r := 0; r < recordsPerSector; r++ {
					if amsdosMode && !headerWritten {
						headerWritten = true
						hbytes, _ := header.MarshalBinary()
						copy(buf[r*recordSize:(r+1)*recordSize], hbytes)
						entry.RC++
						recordsWritten++
					} else {
						n, rerr := io.ReadFull(source, buf[r*recordSize:(r+1)*recordSize])
						if n > 0 || rerr == nil {
							entry.RC++
							recordsWritten++
						}
						if rerr == io.EOF || rerr == io.ErrUnexpectedEOF {
							if err := v.Disk.WriteLogicalSector(t, sec, buf); err != nil {
								return err
							}
							return v.writeDirEntryAt(sectorIdx, entryOffset, entry)
						}
						if rerr != nil {
							return cerrors.IoErrorf("reading source for insert: %v", rerr)
						}
					}

					if recordsWritten == totalRecords {
						if err := v.Disk.WriteLogicalSector(t, sec, buf); err != nil {
							return err
						}
						return v.writeDirEntryAt(sectorIdx, entryOffset, entry)
					}
				}

				if err := v.Disk.WriteLogicalSector(t, sec, buf); err != nil {
					return err
				}
			}
		}

		if err := v.writeDirEntryAt(sectorIdx, entryOffset, entry); err != nil {
			return err
		}
		extent++
	}
}

func (v *Volume) findFreeDirSlot() (sectorIdx int, entryOffset int, err error) {
	for i := 0; i < v.dirSectors; i++ {
		sector, err := v.readDirSector(i)
		if err != nil {
			return 0, 0, err
		}
		for j := 0; j < direntriesPerSector; j++ {
			off := j * direntrySize
			if sector[off] == noFile {
				return i, off, nil
			}
		}
	}
	return 0, 0, cerrors.DirectoryFullf("no free directory entry")
}

func (v *Volume) writeDirEntryAt(sectorIdx, entryOffset int, entry DirEntry) error {
	sector, err := v.readDirSector(sectorIdx)
	if err != nil {
		return err
	}
	buf, _ := entry.MarshalBinary()
	copy(sector[entryOffset:entryOffset+direntrySize], buf)
	return v.writeDirSector(sectorIdx, sector)
}
