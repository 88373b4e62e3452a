package cpm

import (
	"strings"

	"github.com/zellyn/sectorcpc/cerrors"
)

const (
	direntrySize = 32
	recordSize   = 128
	noFile       = 0xE5
	maxExtentAL  = 16

	// fullExtentRC is the record count of a full, non-final extent.
	fullExtentRC = 0x80
)

// DirEntry is one 32-byte CP/M directory entry (an "extent").
type DirEntry struct {
	UserNumber byte
	FileName   [8]byte
	Ext        [3]byte
	EX         byte
	S1         byte
	S2         byte
	RC         byte
	AL         [maxExtentAL]byte
}

// MarshalBinary packs the directory entry into exactly direntrySize bytes.
func (d DirEntry) MarshalBinary() ([]byte, error) {
	buf := make([]byte, direntrySize)
	buf[0] = d.UserNumber
	copy(buf[1:9], d.FileName[:])
	copy(buf[9:12], d.Ext[:])
	buf[12] = d.EX
	buf[13] = d.S1
	buf[14] = d.S2
	buf[15] = d.RC
	copy(buf[16:32], d.AL[:])
	return buf, nil
}

// UnmarshalBinary unpacks a 32-byte directory entry.
func (d *DirEntry) UnmarshalBinary(data []byte) error {
	if len(data) != direntrySize {
		return cerrors.InvalidImagef("directory entry must be %d bytes; got %d", direntrySize, len(data))
	}
	d.UserNumber = data[0]
	copy(d.FileName[:], data[1:9])
	copy(d.Ext[:], data[9:12])
	d.EX = data[12]
	d.S1 = data[13]
	d.S2 = data[14]
	d.RC = data[15]
	copy(d.AL[:], data[16:32])
	return nil
}

// Unused reports whether this entry slot holds no file.
func (d DirEntry) Unused() bool {
	return d.UserNumber == noFile
}

// ReadOnly reports the read-only attribute, carried in the high bit
// of Ext[0].
func (d DirEntry) ReadOnly() bool {
	return d.Ext[0]&0x80 != 0
}

// System reports the system attribute, carried in the high bit of
// Ext[1].
func (d DirEntry) System() bool {
	return d.Ext[1]&0x80 != 0
}

// Normalise returns the canonical "NAME.EXT" form of the entry's file
// name: printable, non-space bytes with the attribute high bits
// masked off.
func Normalise(d DirEntry) string {
	var sb strings.Builder
	for _, c := range d.FileName {
		c &= 0x7f
		if c != ' ' && c > 0x20 && c < 0x7f {
			sb.WriteByte(c)
		}
	}
	sb.WriteByte('.')
	for _, c := range d.Ext {
		c &= 0x7f
		if c != ' ' && c > 0x20 && c < 0x7f {
			sb.WriteByte(c)
		}
	}
	return sb.String()
}

// Denormalise splits "NAME.EXT" into padded, uppercased 8- and
// 3-byte fields. requireExt enforces that an extension is present
// (required only for insert paths, not blanket name lookups).
func Denormalise(name string, requireExt bool) (file [8]byte, ext [3]byte, err error) {
	dot := strings.IndexByte(name, '.')
	var stem, extension string
	if dot < 0 {
		if requireExt {
			return file, ext, cerrors.InvalidNamef("file name %q has no extension", name)
		}
		stem = name
	} else {
		stem = name[:dot]
		extension = name[dot+1:]
	}

	if len(stem) > 8 {
		return file, ext, cerrors.InvalidNamef("file name %q stem longer than 8 characters", name)
	}
	if len(extension) > 3 {
		return file, ext, cerrors.InvalidNamef("file name %q extension longer than 3 characters", name)
	}

	for i := range file {
		file[i] = ' '
	}
	for i := range ext {
		ext[i] = ' '
	}
	copy(file[:], []byte(strings.ToUpper(stem)))
	copy(ext[:], []byte(strings.ToUpper(extension)))
	return file, ext, nil
}
