// Package image provides byte-addressed access to the backing store
// of a disk image: positioned reads and writes, size, and a single
// flush-on-close. Nothing above this layer knows whether the bytes
// live in a freshly-created buffer or one loaded from a host file.
package image

import (
	"io/ioutil"
	"os"

	"github.com/zellyn/sectorcpc/cerrors"
)

// Image is an in-memory copy of a disk image file, written back to
// its backing file in one shot when Close is called.
type Image struct {
	path string
	data []byte
}

// Open loads an existing image file into memory.
func Open(path string) (*Image, error) {
	bb, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, cerrors.IoErrorf("opening image %q: %v", path, err)
	}
	return &Image{path: path, data: bb}, nil
}

// New creates a fresh in-memory image of the given size, all bytes
// zero. It is not written to the backing file until Close.
func New(path string, size int) *Image {
	return &Image{path: path, data: make([]byte, size)}
}

// Size returns the current size of the image in bytes.
func (img *Image) Size() int {
	return len(img.data)
}

// ReadAt copies len(p) bytes starting at offset off into p.
func (img *Image) ReadAt(off int, p []byte) error {
	if off < 0 || off+len(p) > len(img.data) {
		return cerrors.IoErrorf("read out of range: offset %d length %d image size %d", off, len(p), len(img.data))
	}
	copy(p, img.data[off:off+len(p)])
	return nil
}

// WriteAt copies p into the image starting at offset off.
func (img *Image) WriteAt(off int, p []byte) error {
	if off < 0 || off+len(p) > len(img.data) {
		return cerrors.IoErrorf("write out of range: offset %d length %d image size %d", off, len(p), len(img.data))
	}
	copy(img.data[off:off+len(p)], p)
	return nil
}

// Bytes returns the image's full underlying buffer. Callers must not
// retain it past a Close.
func (img *Image) Bytes() []byte {
	return img.data
}

// Close flushes the in-memory image to its backing file.
func (img *Image) Close() error {
	if err := os.WriteFile(img.path, img.data, 0666); err != nil {
		return cerrors.IoErrorf("writing image %q: %v", img.path, err)
	}
	return nil
}
