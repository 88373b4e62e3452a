// Package cpcemu implements the CPCEMU disk-image envelope: the
// disk-info and track-info records that wrap the raw sector data of
// an Amstrad CPC floppy, and the sector-skew table that maps logical
// sector numbers to their physical position within a track.
package cpcemu

import (
	"encoding/binary"

	"github.com/zellyn/sectorcpc/cerrors"
	"github.com/zellyn/sectorcpc/image"
)

// Fixed geometry constants for the single-sided, uniform-track images
// this tool produces and consumes.
const (
	SectorSize         = 512
	NumTracks          = 40
	NumSectorsPerTrack = 9
	InfoSize           = 256
	TrackInfoSize      = 256
	TrackSize          = TrackInfoSize + NumSectorsPerTrack*SectorSize // 4864

	diskInfoOffset = 0

	stdHeader = "MV - CPCEMU Disk-File\r\nDisk-Info\r\n"
	extPrefix = "EXTENDED"
	creator   = "sectorcpc 0.3"
	trackHdr  = "Track-Info\r\n"
)

// Variant identifies whether a disk was formatted as a CP/M "system"
// disk (bootable, reserved tracks) or a "data" disk.
type Variant int

const (
	// VariantUnknown means the first sector ID on track 0 did not
	// match either known base.
	VariantUnknown Variant = iota
	VariantSystem
	VariantData
)

// sectorIDBase returns the sector-ID base byte for v.
func (v Variant) sectorIDBase() byte {
	switch v {
	case VariantSystem:
		return 0x41
	case VariantData:
		return 0xC1
	}
	return 0
}

// DefaultSkew is the canonical interleave applied when formatting a
// fresh image.
var DefaultSkew = [NumSectorsPerTrack]byte{0, 5, 1, 6, 2, 7, 3, 8, 4}

// DiskInfo is the 256-byte disk-info record at offset 0 of an image.
type DiskInfo struct {
	Header          [34]byte
	Creator         [14]byte
	NumTracks       byte
	NumHeads        byte
	TrackSize       uint16
	TrackSizeTable  [204]byte
}

// MarshalBinary packs the disk-info record into exactly InfoSize bytes.
func (d DiskInfo) MarshalBinary() ([]byte, error) {
	buf := make([]byte, InfoSize)
	copy(buf[0x00:0x22], d.Header[:])
	copy(buf[0x22:0x30], d.Creator[:])
	buf[0x30] = d.NumTracks
	buf[0x31] = d.NumHeads
	binary.LittleEndian.PutUint16(buf[0x32:0x34], d.TrackSize)
	copy(buf[0x34:0x100], d.TrackSizeTable[:])
	return buf, nil
}

// UnmarshalBinary unpacks a 256-byte disk-info record.
func (d *DiskInfo) UnmarshalBinary(data []byte) error {
	if len(data) != InfoSize {
		return cerrors.InvalidImagef("disk-info record must be %d bytes; got %d", InfoSize, len(data))
	}
	copy(d.Header[:], data[0x00:0x22])
	copy(d.Creator[:], data[0x22:0x30])
	d.NumTracks = data[0x30]
	d.NumHeads = data[0x31]
	d.TrackSize = binary.LittleEndian.Uint16(data[0x32:0x34])
	copy(d.TrackSizeTable[:], data[0x34:0x100])
	return nil
}

// IsExtended reports whether the disk-info header declares the
// "extended" CPCEMU variant (recognised, never produced).
func (d DiskInfo) IsExtended() bool {
	return len(d.Header) >= len(extPrefix) && string(d.Header[:len(extPrefix)]) == extPrefix
}

// SectorInfo describes one physical sector within a track-info table.
type SectorInfo struct {
	Track    byte
	Head     byte
	SectorID byte
	SizeCode byte
	FDCReg1  byte
	FDCReg2  byte
}

func (s SectorInfo) marshalInto(buf []byte) {
	buf[0] = s.Track
	buf[1] = s.Head
	buf[2] = s.SectorID
	buf[3] = s.SizeCode
	buf[4] = s.FDCReg1
	buf[5] = s.FDCReg2
	buf[6] = 0
	buf[7] = 0
}

func (s *SectorInfo) unmarshalFrom(buf []byte) {
	s.Track = buf[0]
	s.Head = buf[1]
	s.SectorID = buf[2]
	s.SizeCode = buf[3]
	s.FDCReg1 = buf[4]
	s.FDCReg2 = buf[5]
}

// TrackInfo is the 256-byte record preceding each track's sector data.
type TrackInfo struct {
	TrackNum     byte
	HeadNum      byte
	SizeCode     byte
	NumSectors   byte
	Gap3Length   byte
	FillerByte   byte
	SectorInfos  [29]SectorInfo
}

// MarshalBinary packs the track-info record into exactly TrackInfoSize bytes.
func (t TrackInfo) MarshalBinary() ([]byte, error) {
	buf := make([]byte, TrackInfoSize)
	copy(buf[0x00:0x0D], []byte(trackHdr))
	buf[0x10] = t.TrackNum
	buf[0x11] = t.HeadNum
	buf[0x14] = t.SizeCode
	buf[0x15] = t.NumSectors
	buf[0x16] = t.Gap3Length
	buf[0x17] = t.FillerByte
	for i, si := range t.SectorInfos {
		si.marshalInto(buf[0x18+i*8 : 0x18+i*8+8])
	}
	return buf, nil
}

// UnmarshalBinary unpacks a 256-byte track-info record.
func (t *TrackInfo) UnmarshalBinary(data []byte) error {
	if len(data) != TrackInfoSize {
		return cerrors.InvalidImagef("track-info record must be %d bytes; got %d", TrackInfoSize, len(data))
	}
	t.TrackNum = data[0x10]
	t.HeadNum = data[0x11]
	t.SizeCode = data[0x14]
	t.NumSectors = data[0x15]
	t.Gap3Length = data[0x16]
	t.FillerByte = data[0x17]
	for i := range t.SectorInfos {
		t.SectorInfos[i].unmarshalFrom(data[0x18+i*8 : 0x18+i*8+8])
	}
	return nil
}

// Disk wraps an image.Image with CPCEMU envelope semantics: track/
// sector lookups and the logical-to-physical skew table.
type Disk struct {
	img     *image.Image
	skew    [NumSectorsPerTrack]byte
	variant Variant
}

// Attach wraps an already-open image with CPCEMU semantics, without
// reading or deriving anything yet. Callers call Init to resolve the
// variant and skew table.
func Attach(img *image.Image) *Disk {
	return &Disk{img: img}
}

// ReadDiskInfo reads the disk-info record at offset 0.
func (d *Disk) ReadDiskInfo() (DiskInfo, error) {
	buf := make([]byte, InfoSize)
	if err := d.img.ReadAt(diskInfoOffset, buf); err != nil {
		return DiskInfo{}, err
	}
	var info DiskInfo
	if err := info.UnmarshalBinary(buf); err != nil {
		return DiskInfo{}, err
	}
	return info, nil
}

// WriteDiskInfo writes the disk-info record at offset 0.
func (d *Disk) WriteDiskInfo(info DiskInfo) error {
	buf, err := info.MarshalBinary()
	if err != nil {
		return err
	}
	return d.img.WriteAt(diskInfoOffset, buf)
}

func trackOffset(track byte) int {
	return InfoSize + int(track)*TrackSize
}

// ReadTrackInfo reads the track-info record for the given track.
func (d *Disk) ReadTrackInfo(track byte) (TrackInfo, error) {
	buf := make([]byte, TrackInfoSize)
	if err := d.img.ReadAt(trackOffset(track), buf); err != nil {
		return TrackInfo{}, err
	}
	var ti TrackInfo
	if err := ti.UnmarshalBinary(buf); err != nil {
		return TrackInfo{}, err
	}
	return ti, nil
}

// WriteTrackInfo writes the track-info record for the given track.
func (d *Disk) WriteTrackInfo(track byte, ti TrackInfo) error {
	buf, err := ti.MarshalBinary()
	if err != nil {
		return err
	}
	return d.img.WriteAt(trackOffset(track), buf)
}

// Init checks the disk-info magic, resolves the disk variant from
// track 0's first sector ID, and rebuilds the skew table from track
// 0's sector-info table. It must be called once after Attach (or
// after New) before any sector I/O.
func (d *Disk) Init() error {
	info, err := d.ReadDiskInfo()
	if err != nil {
		return err
	}
	if !info.IsExtended() && string(info.Header[:]) != stdHeader {
		return cerrors.InvalidImagef("missing CPCEMU disk-info magic")
	}
	ti, err := d.ReadTrackInfo(0)
	if err != nil {
		return err
	}
	first := ti.SectorInfos[0].SectorID
	switch {
	case first == VariantSystem.sectorIDBase():
		d.variant = VariantSystem
	case first == VariantData.sectorIDBase():
		d.variant = VariantData
	default:
		return cerrors.InvalidImagef("unrecognised disk variant: first sector id 0x%02x", first)
	}
	return d.rebuildSkew(ti)
}

func (d *Disk) rebuildSkew(ti TrackInfo) error {
	base := d.variant.sectorIDBase()
	var seen [NumSectorsPerTrack]bool
	for i := 0; i < NumSectorsPerTrack; i++ {
		logical := int(ti.SectorInfos[i].SectorID) - int(base)
		if logical < 0 || logical >= NumSectorsPerTrack || seen[logical] {
			return cerrors.InvalidImagef("sector skew table is not a permutation of 0..%d", NumSectorsPerTrack-1)
		}
		seen[logical] = true
		d.skew[logical] = byte(i)
	}
	return nil
}

// Variant returns the resolved disk variant. Valid only after Init.
func (d *Disk) Variant() Variant {
	return d.variant
}

// Skew returns a copy of the resolved skew table.
func (d *Disk) Skew() [NumSectorsPerTrack]byte {
	return d.skew
}

func sectorOffset(track byte, physical byte) int {
	return trackOffset(track) + TrackInfoSize + int(physical)*SectorSize
}

// ReadLogicalSector reads the 512-byte logical sector within a track,
// applying the resolved skew table.
func (d *Disk) ReadLogicalSector(track byte, logical byte) ([]byte, error) {
	if int(logical) >= NumSectorsPerTrack {
		return nil, cerrors.IoErrorf("logical sector %d out of range", logical)
	}
	physical := d.skew[logical]
	buf := make([]byte, SectorSize)
	if err := d.img.ReadAt(sectorOffset(track, physical), buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// WriteLogicalSector writes a 512-byte logical sector within a track,
// applying the resolved skew table.
func (d *Disk) WriteLogicalSector(track byte, logical byte, data []byte) error {
	if int(logical) >= NumSectorsPerTrack {
		return cerrors.IoErrorf("logical sector %d out of range", logical)
	}
	if len(data) != SectorSize {
		return cerrors.IoErrorf("WriteLogicalSector expects %d bytes; got %d", SectorSize, len(data))
	}
	physical := d.skew[logical]
	return d.img.WriteAt(sectorOffset(track, physical), data)
}

// ImageSize returns the byte size of a standard, freshly formatted image.
func ImageSize() int {
	return InfoSize + NumTracks*TrackSize
}

// New formats a fresh in-memory image: disk-info, every track-info
// record (sector IDs per DefaultSkew, data-disk base), and every
// sector filled with 0xE5. The caller is responsible for writing the
// returned image's backing file via Close.
func New(path string) (*Disk, error) {
	img := image.New(path, ImageSize())
	d := &Disk{img: img}
	d.skew = DefaultSkew

	info := DiskInfo{NumTracks: NumTracks, NumHeads: 1, TrackSize: TrackSize}
	copy(info.Header[:], stdHeader)
	copy(info.Creator[:], creator)
	if err := d.WriteDiskInfo(info); err != nil {
		return nil, err
	}

	filler := make([]byte, SectorSize)
	for i := range filler {
		filler[i] = 0xE5
	}

	for t := byte(0); t < NumTracks; t++ {
		ti := TrackInfo{
			TrackNum:   t,
			HeadNum:    0,
			SizeCode:   2,
			NumSectors: NumSectorsPerTrack,
			Gap3Length: 0x4E,
			FillerByte: 0xE5,
		}
		for i := 0; i < NumSectorsPerTrack; i++ {
			ti.SectorInfos[i] = SectorInfo{
				Track:    t,
				Head:     0,
				SectorID: VariantData.sectorIDBase() + d.skew[i],
				SizeCode: 2,
			}
		}
		if err := d.WriteTrackInfo(t, ti); err != nil {
			return nil, err
		}
		for logical := byte(0); logical < NumSectorsPerTrack; logical++ {
			if err := d.WriteLogicalSector(t, logical, filler); err != nil {
				return nil, err
			}
		}
	}
	d.variant = VariantData

	return d, nil
}

// Image returns the underlying image, for callers (the orchestrator)
// that need to Close it.
func (d *Disk) Image() *image.Image {
	return d.img
}

// SectorID returns the on-wire sector-id byte for a given track and
// logical sector, as recorded in that track's sector-info table. This
// is the physical identifier ROM-side loaders address sectors by,
// distinct from the logical index used by ReadLogicalSector.
func (d *Disk) SectorID(track byte, logical byte) (byte, error) {
	ti, err := d.ReadTrackInfo(track)
	if err != nil {
		return 0, err
	}
	physical := d.skew[logical]
	return ti.SectorInfos[physical].SectorID, nil
}
