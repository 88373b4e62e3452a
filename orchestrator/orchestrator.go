// Package orchestrator sequences one CLI invocation's worth of work:
// open the image (or format a fresh one), initialise the CP/M layer,
// dispatch to exactly one operation, and flush on close. ExitCode
// maps an operation's error to a process exit status (0 for nil, 1
// for any error, whatever its cerrors kind).
package orchestrator

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/zellyn/sectorcpc/amsdos"
	"github.com/zellyn/sectorcpc/cerrors"
	"github.com/zellyn/sectorcpc/cpcemu"
	"github.com/zellyn/sectorcpc/cpm"
	"github.com/zellyn/sectorcpc/image"
)

// Session is one open image together with its resolved CP/M volume,
// held for the duration of one invocation.
type Session struct {
	Disk   *cpcemu.Disk
	Volume *cpm.Volume
	Log    *logrus.Logger
}

// Open attaches to an existing image file and resolves the CP/M
// volume over it.
func Open(path string, log *logrus.Logger) (*Session, error) {
	img, err := image.Open(path)
	if err != nil {
		return nil, err
	}
	disk := cpcemu.Attach(img)
	return initSession(disk, log)
}

// New formats a fresh image at path and resolves the CP/M volume
// over it.
func New(path string, log *logrus.Logger) (*Session, error) {
	disk, err := cpcemu.New(path)
	if err != nil {
		return nil, err
	}
	log.Infof("formatted new image %s", path)
	return initSession(disk, log)
}

func initSession(disk *cpcemu.Disk, log *logrus.Logger) (*Session, error) {
	if err := disk.Init(); err != nil {
		return nil, err
	}
	log.Debugf("resolved disk variant %v, skew %v", disk.Variant(), disk.Skew())
	vol, err := cpm.Init(disk)
	if err != nil {
		return nil, err
	}
	return &Session{Disk: disk, Volume: vol, Log: log}, nil
}

// Close flushes the image to its backing file.
func (s *Session) Close() error {
	return s.Disk.Image().Close()
}

// List implements `dir`.
func (s *Session) List(w io.Writer) error {
	entries, err := s.Volume.List()
	if err != nil {
		return err
	}
	for _, e := range entries {
		attrs := ""
		if e.ReadOnly {
			attrs += "R"
		}
		if e.System {
			attrs += "S"
		}
		fmt.Fprintf(w, "%-12s %4dK %s\n", e.Name, e.SizeKB, attrs)
	}
	return nil
}

// Info implements `info <name> [--tracks]`.
func (s *Session) Info(w io.Writer, name string, tracksOnly bool) error {
	chain, locs, err := s.Volume.Info(name)
	if err != nil {
		if cerrors.IsNotFound(err) {
			fmt.Fprintf(w, "File %s not found.\n", name)
			return nil
		}
		return err
	}

	if tracksOnly {
		for _, r := range cpm.TracksOnly(locs) {
			fmt.Fprintf(w, "%d %d %d\n", r.Track, r.MinID, r.MaxID)
		}
		fmt.Fprintln(w, "0xff")
		return nil
	}

	for _, e := range chain {
		fmt.Fprintf(w, "extent %d: RC=%d AL=%v\n", e.EX, e.RC, e.AL)
	}
	for _, loc := range locs {
		if loc.Spans2 {
			fmt.Fprintf(w, "block %d: track %d, sector %02x/%02x\n", loc.Block, loc.Track, loc.SectorID, loc.SecondSectorID)
		} else {
			fmt.Fprintf(w, "block %d: track %d, sector %02x\n", loc.Block, loc.Track, loc.SectorID)
		}
	}

	if len(locs) > 0 {
		track, sector := s.Volume.BlockToTrackSector(int(chain[0].AL[0]))
		firstSector, err := s.Disk.ReadLogicalSector(track, sector)
		if err == nil && amsdos.HasValidHeader(firstSector[:amsdos.HeaderSize]) {
			var hdr amsdos.Header
			if err := hdr.UnmarshalBinary(firstSector[:amsdos.HeaderSize]); err == nil {
				fmt.Fprintf(w, "AMSDOS: filetype=%d data_location=0x%04x entry_address=0x%04x logical_length=%d\n",
					hdr.Filetype, hdr.DataLocation, hdr.EntryAddress, hdr.LogicalLength)
			}
		}
	}
	return nil
}

// Dump implements `dump <name>` (hex-dump to w).
func (s *Session) Dump(w io.Writer, name string, textMode bool) error {
	data, err := s.Volume.Extract(name, textMode)
	if err != nil {
		if cerrors.IsNotFound(err) {
			fmt.Fprintf(w, "File %s not found.\n", name)
			return nil
		}
		return err
	}
	hexDump(w, data)
	return nil
}

// Extract implements `extract <name>`: write the file's contents to a
// host file of the same canonical name.
func (s *Session) Extract(name string, textMode bool) error {
	data, err := s.Volume.Extract(name, textMode)
	if err != nil {
		if cerrors.IsNotFound(err) {
			s.Log.Infof("file %s not found", name)
			return nil
		}
		return err
	}
	return os.WriteFile(name, data, 0666)
}

// ExtractAll implements `extall`: extract every file in directory order.
func (s *Session) ExtractAll(textMode bool) error {
	entries, err := s.Volume.List()
	if err != nil {
		return err
	}
	for _, e := range entries {
		if err := s.Extract(e.Name, textMode); err != nil {
			return err
		}
	}
	return nil
}

// Insert implements `insert <name> [entryAddr execAddr]`.
func (s *Session) Insert(name string, amsdosMode bool, entryAddr, execAddr uint16) error {
	f, err := os.Open(name)
	if err != nil {
		return cerrors.IoErrorf("opening %q: %v", name, err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return cerrors.IoErrorf("stat %q: %v", name, err)
	}

	baseName := name
	if idx := lastSlash(name); idx >= 0 {
		baseName = name[idx+1:]
	}

	if err := s.Volume.Insert(baseName, f, int(fi.Size()), amsdosMode, entryAddr, execAddr); err != nil {
		return err
	}
	s.Log.Infof("inserted %s (%d bytes)", baseName, fi.Size())
	return nil
}

func lastSlash(s string) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '/' {
			return i
		}
	}
	return -1
}

// Delete implements `del <name>`.
func (s *Session) Delete(w io.Writer, name string) error {
	deleted, err := s.Volume.Delete(name)
	if err != nil {
		return err
	}
	if deleted {
		fmt.Fprintf(w, "%s is deleted.\n", name)
	}
	return nil
}

// hexDump renders data 16 bytes per line: a four-digit hex offset,
// the hex bytes, and an ASCII gutter with non-printable bytes shown
// as '.'.
func hexDump(w io.Writer, data []byte) {
	const stride = 16
	for off := 0; off < len(data); off += stride {
		end := off + stride
		if end > len(data) {
			end = len(data)
		}
		line := data[off:end]
		fmt.Fprintf(w, "%04x: ", off)
		for _, b := range line {
			fmt.Fprintf(w, "%02x ", b)
		}
		for i := len(line); i < stride; i++ {
			fmt.Fprint(w, "   ")
		}
		for _, b := range line {
			if b >= 0x20 && b < 0x7f {
				fmt.Fprintf(w, "%c", b)
			} else {
				fmt.Fprint(w, ".")
			}
		}
		fmt.Fprintln(w)
	}
}

// ExitCode maps an error from any operation to the process exit code
// for an operation.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	return 1
}
