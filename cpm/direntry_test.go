package cpm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zellyn/sectorcpc/cerrors"
)

func TestNormaliseMasksAttributeBits(t *testing.T) {
	entry := DirEntry{
		FileName: [8]byte{'H' | 0x80, 'E' | 0x80, 'L', 'L', 'O', ' ', ' ', ' '},
		Ext:      [3]byte{'B' | 0x80, 'A' | 0x80, 'S'},
	}
	assert.Equal(t, "HELLO.BAS", Normalise(entry))
	assert.True(t, entry.ReadOnly(), "expected ReadOnly() true from Ext[0] high bit")
	assert.True(t, entry.System(), "expected System() true from Ext[1] high bit")
}

func TestDenormaliseRoundtrip(t *testing.T) {
	file, ext, err := Denormalise("test.bin", true)
	require.NoError(t, err)
	entry := DirEntry{FileName: file, Ext: ext}
	assert.Equal(t, "TEST.BIN", Normalise(entry))
}

func TestDenormaliseRejectsOversizedFields(t *testing.T) {
	_, _, err := Denormalise("toolongstem.bin", true)
	assert.True(t, cerrors.IsInvalidName(err), "expected InvalidName for an 11-char stem, got %v", err)

	_, _, err = Denormalise("a.toolong", true)
	assert.True(t, cerrors.IsInvalidName(err), "expected InvalidName for a 7-char extension, got %v", err)

	_, _, err = Denormalise("noext", true)
	assert.True(t, cerrors.IsInvalidName(err), "expected InvalidName when requireExt is set and no extension is given")

	_, _, err = Denormalise("noext", false)
	assert.NoError(t, err, "expected no error when requireExt is false")
}

func TestDirEntryMarshalRoundtrip(t *testing.T) {
	file, ext, err := Denormalise("GAME.BIN", true)
	require.NoError(t, err)
	entry := DirEntry{
		FileName: file,
		Ext:      ext,
		EX:       2,
		RC:       0x80,
		AL:       [16]byte{1, 2, 3, 4, 5},
	}
	buf, err := entry.MarshalBinary()
	require.NoError(t, err)
	require.Len(t, buf, direntrySize)

	var got DirEntry
	require.NoError(t, got.UnmarshalBinary(buf))
	assert.Equal(t, entry, got)
}

func TestUnused(t *testing.T) {
	unused := DirEntry{UserNumber: 0xE5}
	assert.True(t, unused.Unused(), "expected UserNumber 0xE5 to be Unused")
	used := DirEntry{UserNumber: 0}
	assert.False(t, used.Unused(), "expected UserNumber 0 to not be Unused")
}
