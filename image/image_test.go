package image

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kr/pretty"
)

func TestReadWriteAtRoundtrip(t *testing.T) {
	img := New("unused.dsk", 1024)
	data := make([]byte, 16)
	for i := range data {
		data[i] = byte(i)
	}
	if err := img.WriteAt(100, data); err != nil {
		t.Fatal(err)
	}
	got := make([]byte, 16)
	if err := img.ReadAt(100, got); err != nil {
		t.Fatal(err)
	}
	if diff := pretty.Diff(data, got); len(diff) > 0 {
		t.Errorf("roundtrip differs: %v", diff)
	}
}

func TestReadWriteOutOfRange(t *testing.T) {
	img := New("unused.dsk", 16)
	buf := make([]byte, 4)
	if err := img.ReadAt(15, buf); err == nil {
		t.Error("expected out-of-range read to fail")
	}
	if err := img.WriteAt(-1, buf); err == nil {
		t.Error("expected negative-offset write to fail")
	}
}

func TestOpenCloseRoundtrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.dsk")

	img := New(path, 32)
	payload := []byte("0123456789abcdef0123456789abcdef")[:32]
	if err := img.WriteAt(0, payload); err != nil {
		t.Fatal(err)
	}
	if err := img.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if reopened.Size() != 32 {
		t.Errorf("Size() = %d, want 32", reopened.Size())
	}
	got := make([]byte, 32)
	if err := reopened.ReadAt(0, got); err != nil {
		t.Fatal(err)
	}
	if string(got) != string(payload) {
		t.Errorf("reopened image = %q, want %q", got, payload)
	}

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("backing file missing: %v", err)
	}
}
