package cpm

import "github.com/zellyn/sectorcpc/cerrors"

// Bitmap is a per-image allocation-block bitset: one bit per block,
// sized to the DPB's block count. Replaces the original
// implementation's byte-per-block table, which hard-coded a capacity
// smaller than some DPBs' theoretical maximum block index.
type Bitmap struct {
	bits []uint64
	size int
}

// NewBitmap allocates a cleared bitmap with room for size blocks.
func NewBitmap(size int) *Bitmap {
	return &Bitmap{bits: make([]uint64, (size+63)/64), size: size}
}

// Mark sets the bit for block index i as used.
func (b *Bitmap) Mark(i int) {
	b.bits[i/64] |= 1 << uint(i%64)
}

// IsSet reports whether block index i is marked used.
func (b *Bitmap) IsSet(i int) bool {
	return b.bits[i/64]&(1<<uint(i%64)) != 0
}

// Allocate finds the first clear bit at index >= from, marks it used,
// and returns its index. It fails with DiskFull when none exists
// within the bitmap's size.
func (b *Bitmap) Allocate(from int) (int, error) {
	for i := from; i < b.size; i++ {
		if !b.IsSet(i) {
			b.Mark(i)
			return i, nil
		}
	}
	return 0, cerrors.DiskFullf("no free allocation block from index %d", from)
}
