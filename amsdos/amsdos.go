// Package amsdos builds, validates, and checksums the 128-byte AMSDOS
// file header that AMSDOS-aware CPC software stores as the first
// record of some CP/M files.
package amsdos

import (
	"encoding/binary"

	"github.com/zellyn/sectorcpc/cerrors"
)

// HeaderSize is the size in bytes of an AMSDOS header record.
const HeaderSize = 128

// checksumRange is the number of leading bytes summed to produce the checksum.
const checksumRange = 67

// Filetype identifies the AMSDOS file type byte.
type Filetype byte

const (
	FiletypeBasic     Filetype = 0
	FiletypeProtected Filetype = 1
	FiletypeBinary    Filetype = 2
)

// basicDataLocation is the load address AMSDOS uses for BASIC programs.
const basicDataLocation = 0x170

// Header is the in-memory representation of an AMSDOS file header.
type Header struct {
	UserNumber     byte
	Filename       [8]byte
	Ext            [3]byte
	BlockNumber    byte
	LastBlock      byte
	Filetype       Filetype
	DataLength     uint16
	DataLocation   uint16
	FirstBlock     byte
	LogicalLength  uint16
	EntryAddress   uint16
	FileLength     [3]byte
	Checksum       uint16
}

// MarshalBinary packs the header into exactly HeaderSize bytes.
func (h Header) MarshalBinary() ([]byte, error) {
	buf := make([]byte, HeaderSize)
	buf[0x00] = h.UserNumber
	copy(buf[0x01:0x09], h.Filename[:])
	copy(buf[0x09:0x0C], h.Ext[:])
	// 0x0C..0x10: 4 reserved bytes, left zero.
	buf[0x10] = h.BlockNumber
	buf[0x11] = h.LastBlock
	buf[0x12] = byte(h.Filetype)
	binary.LittleEndian.PutUint16(buf[0x13:0x15], h.DataLength)
	binary.LittleEndian.PutUint16(buf[0x15:0x17], h.DataLocation)
	buf[0x17] = h.FirstBlock
	binary.LittleEndian.PutUint16(buf[0x18:0x1A], h.LogicalLength)
	binary.LittleEndian.PutUint16(buf[0x1A:0x1C], h.EntryAddress)
	// 0x1C..0x40: 36 reserved bytes, left zero.
	copy(buf[0x40:0x43], h.FileLength[:])
	binary.LittleEndian.PutUint16(buf[0x43:0x45], h.Checksum)
	// 0x45..0x80: 60 reserved bytes, left zero.
	return buf, nil
}

// UnmarshalBinary unpacks a 128-byte AMSDOS header.
func (h *Header) UnmarshalBinary(data []byte) error {
	if len(data) != HeaderSize {
		return cerrors.InvalidImagef("AMSDOS header must be %d bytes; got %d", HeaderSize, len(data))
	}
	h.UserNumber = data[0x00]
	copy(h.Filename[:], data[0x01:0x09])
	copy(h.Ext[:], data[0x09:0x0C])
	h.BlockNumber = data[0x10]
	h.LastBlock = data[0x11]
	h.Filetype = Filetype(data[0x12])
	h.DataLength = binary.LittleEndian.Uint16(data[0x13:0x15])
	h.DataLocation = binary.LittleEndian.Uint16(data[0x15:0x17])
	h.FirstBlock = data[0x17]
	h.LogicalLength = binary.LittleEndian.Uint16(data[0x18:0x1A])
	h.EntryAddress = binary.LittleEndian.Uint16(data[0x1A:0x1C])
	copy(h.FileLength[:], data[0x40:0x43])
	h.Checksum = binary.LittleEndian.Uint16(data[0x43:0x45])
	return nil
}

// checksum sums the first checksumRange bytes of a marshalled header,
// modulo 2^16.
func checksum(data []byte) uint16 {
	var sum uint32
	for _, b := range data[:checksumRange] {
		sum += uint32(b)
	}
	return uint16(sum)
}

// Build constructs an AMSDOS header for the file whose space-padded,
// uppercased 8-byte stem is name and 3-byte extension is ext, given the
// source size, an explicit entry address (0 meaning "use the default
// for the file type"), and an execution address.
func Build(name [8]byte, ext [3]byte, sourceSize int, entryAddr, execAddr uint16) Header {
	h := Header{
		Filename: name,
		Ext:      ext,
	}

	isBasic := string(ext[:]) == "BAS"
	if isBasic {
		h.Filetype = FiletypeBasic
		h.DataLocation = basicDataLocation
	} else {
		h.Filetype = FiletypeBinary
		h.DataLocation = 0
	}
	if entryAddr != 0 {
		h.DataLocation = entryAddr
	}
	h.EntryAddress = execAddr

	size := uint16(sourceSize)
	h.FileLength[0] = byte(sourceSize)
	h.FileLength[1] = byte(sourceSize >> 8)
	h.FileLength[2] = byte(sourceSize >> 16)
	h.LogicalLength = size

	buf, _ := h.MarshalBinary()
	h.Checksum = checksum(buf)
	return h
}

// HasValidHeader reports whether the first HeaderSize bytes of data
// carry a checksum matching bytes [0, checksumRange).
func HasValidHeader(data []byte) bool {
	if len(data) < HeaderSize {
		return false
	}
	want := binary.LittleEndian.Uint16(data[checksumRange : checksumRange+2])
	return want == checksum(data)
}
