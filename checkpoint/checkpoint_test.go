package checkpoint

import (
	"testing"

	"row-major/skylight/color"
	"row-major/skylight/sampledb"

	"github.com/google/go-cmp/cmp"
)

func openStore(t *testing.T, dir string) *Store {
	t.Helper()
	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Unexpected error opening store: %v", err)
	}
	return s
}

func chunk(rows, cols int, v float64) *sampledb.SampleDB {
	db := sampledb.New(rows, cols)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			db.RecordSample(r, c, color.RGB{v, float64(r), float64(c)})
		}
	}
	return db
}

func TestChunkKeyRoundTrip(t *testing.T) {
	key := ChunkKey(0x0123456789abcdef, 77)
	fingerprint, rowSrc, err := DecodeChunkKey(key)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if fingerprint != 0x0123456789abcdef || rowSrc != 77 {
		t.Errorf("Got (%x, %d), want (123456789abcdef, 77)", fingerprint, rowSrc)
	}

	if _, _, err := DecodeChunkKey(key[:12]); err == nil {
		t.Errorf("Decoding a short key succeeded")
	}
}

func TestPutRestore(t *testing.T) {
	dir := t.TempDir()
	s := openStore(t, dir)

	if err := s.PutChunk(1, 0, chunk(2, 3, 0.5)); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if err := s.PutChunk(1, 4, chunk(1, 3, 0.25)); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	// A different render shares the store but not the chunks.
	if err := s.PutChunk(2, 2, chunk(2, 3, 9)); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	// Chunks survive reopening the store.
	if err := s.Close(); err != nil {
		t.Fatalf("Unexpected error closing: %v", err)
	}
	s = openStore(t, dir)
	defer s.Close()

	db := sampledb.New(5, 3)
	n, err := s.Restore(1, db)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if n != 2 {
		t.Errorf("Restored %d chunks, want 2", n)
	}

	want := sampledb.New(5, 3)
	want.Paste(chunk(2, 3, 0.5), 0, 0)
	want.Paste(chunk(1, 3, 0.25), 4, 0)
	if diff := cmp.Diff(db, want); diff != "" {
		t.Errorf("diff (-got +want)\n%s", diff)
	}

	for _, tc := range []struct {
		fingerprint uint64
		rowSrc      int
		want        bool
	}{
		{1, 0, true},
		{1, 2, false},
		{2, 2, true},
		{3, 0, false},
	} {
		got, err := s.HasChunk(tc.fingerprint, tc.rowSrc)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if got != tc.want {
			t.Errorf("HasChunk(%d, %d) = %v, want %v", tc.fingerprint, tc.rowSrc, got, tc.want)
		}
	}
}

func TestPutReplaces(t *testing.T) {
	s := openStore(t, t.TempDir())
	defer s.Close()

	if err := s.PutChunk(1, 0, chunk(1, 2, 0.5)); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if err := s.PutChunk(1, 0, chunk(1, 2, 0.75)); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	db := sampledb.New(1, 2)
	if _, err := s.Restore(1, db); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if diff := cmp.Diff(db, chunk(1, 2, 0.75)); diff != "" {
		t.Errorf("diff (-got +want)\n%s", diff)
	}
}

func TestRestoreRejectsMisfit(t *testing.T) {
	s := openStore(t, t.TempDir())
	defer s.Close()

	if err := s.PutChunk(1, 3, chunk(2, 4, 0.5)); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	for _, dims := range [][2]int{{4, 4}, {5, 3}} {
		if _, err := s.Restore(1, sampledb.New(dims[0], dims[1])); err == nil {
			t.Errorf("Restoring into %dx%d succeeded, want error", dims[0], dims[1])
		}
	}
}

func TestClear(t *testing.T) {
	s := openStore(t, t.TempDir())
	defer s.Close()

	for fingerprint := uint64(1); fingerprint <= 2; fingerprint++ {
		if err := s.PutChunk(fingerprint, 0, chunk(1, 1, 1)); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
	}

	if err := s.Clear(1); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if n, err := s.Restore(1, sampledb.New(1, 1)); err != nil || n != 0 {
		t.Errorf("After Clear, Restore(1) = %d, %v, want 0, nil", n, err)
	}
	if n, err := s.Restore(2, sampledb.New(1, 1)); err != nil || n != 1 {
		t.Errorf("Clear dropped another render's chunks: Restore(2) = %d, %v", n, err)
	}
}
