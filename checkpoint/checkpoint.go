// Package checkpoint keeps finished render chunks in a badger store, so that
// an interrupted render can pick up where it stopped.
package checkpoint

import (
	"bytes"
	"encoding/binary"

	"row-major/skylight/sampledb"

	"github.com/dgraph-io/badger"
	"github.com/golang/glog"
	"golang.org/x/xerrors"
)

// Key prefixes that denote different tables in the key-value store.
const (
	KeyTypeChunk uint32 = 0
)

// ChunkKey addresses the chunk starting at rowSrc of the render identified by
// fingerprint.  Keys of one render sort by row.
func ChunkKey(fingerprint uint64, rowSrc uint32) []byte {
	key := make([]byte, 16)
	binary.BigEndian.PutUint32(key[0:4], KeyTypeChunk)
	binary.BigEndian.PutUint64(key[4:12], fingerprint)
	binary.BigEndian.PutUint32(key[12:16], rowSrc)
	return key
}

func DecodeChunkKey(key []byte) (fingerprint uint64, rowSrc uint32, err error) {
	if len(key) != 16 {
		return 0, 0, xerrors.Errorf("key has wrong length; got %d, want 16", len(key))
	}
	if keyType := binary.BigEndian.Uint32(key[0:4]); keyType != KeyTypeChunk {
		return 0, 0, xerrors.Errorf("key has type %d, want %d", keyType, KeyTypeChunk)
	}
	fingerprint = binary.BigEndian.Uint64(key[4:12])
	rowSrc = binary.BigEndian.Uint32(key[12:16])
	return fingerprint, rowSrc, nil
}

func ChunkKeyPrefixOneRender(fingerprint uint64) []byte {
	key := make([]byte, 12)
	binary.BigEndian.PutUint32(key[0:4], KeyTypeChunk)
	binary.BigEndian.PutUint64(key[4:12], fingerprint)
	return key
}

type Store struct {
	DB *badger.DB
}

func Open(dataDir string) (*Store, error) {
	db, err := badger.Open(badger.DefaultOptions(dataDir).WithLogger(glogLogger{}))
	if err != nil {
		return nil, xerrors.Errorf("while opening badger kv dir %q: %w", dataDir, err)
	}

	return &Store{DB: db}, nil
}

func (s *Store) Close() error {
	if err := s.DB.Close(); err != nil {
		return xerrors.Errorf("while closing database: %w", err)
	}
	return nil
}

// PutChunk records a finished chunk, replacing any earlier version of it.
func (s *Store) PutChunk(fingerprint uint64, rowSrc int, chunk *sampledb.SampleDB) error {
	buf := &bytes.Buffer{}
	if err := sampledb.Write(chunk, buf); err != nil {
		return xerrors.Errorf("while encoding chunk at row %d: %w", rowSrc, err)
	}

	err := s.DB.Update(func(txn *badger.Txn) error {
		return txn.Set(ChunkKey(fingerprint, uint32(rowSrc)), buf.Bytes())
	})
	if err != nil {
		return xerrors.Errorf("while storing chunk at row %d: %w", rowSrc, err)
	}

	return nil
}

// HasChunk reports whether a chunk starting at rowSrc has been stored.
func (s *Store) HasChunk(fingerprint uint64, rowSrc int) (bool, error) {
	err := s.DB.View(func(txn *badger.Txn) error {
		_, err := txn.Get(ChunkKey(fingerprint, uint32(rowSrc)))
		return err
	})
	if xerrors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	} else if err != nil {
		return false, xerrors.Errorf("while looking up chunk at row %d: %w", rowSrc, err)
	}
	return true, nil
}

// Restore pastes every stored chunk of the render into db and returns how
// many it found.  Chunks that don't fit db are an error.
func (s *Store) Restore(fingerprint uint64, db *sampledb.SampleDB) (int, error) {
	restored := 0

	err := s.DB.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{
			PrefetchValues: true,
			PrefetchSize:   16,
			Prefix:         ChunkKeyPrefixOneRender(fingerprint),
		})
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()

			_, rowSrc, err := DecodeChunkKey(item.KeyCopy(nil))
			if err != nil {
				return xerrors.Errorf("while decoding chunk key: %w", err)
			}

			value, err := item.ValueCopy(nil)
			if err != nil {
				return xerrors.Errorf("while reading chunk at row %d: %w", rowSrc, err)
			}

			chunk, err := sampledb.Read(bytes.NewReader(value))
			if err != nil {
				return xerrors.Errorf("while decoding chunk at row %d: %w", rowSrc, err)
			}

			if chunk.ColSize != db.ColSize || int(rowSrc)+chunk.RowSize > db.RowSize {
				return xerrors.Errorf("chunk at row %d is %dx%d, which doesn't fit a %dx%d image", rowSrc, chunk.RowSize, chunk.ColSize, db.RowSize, db.ColSize)
			}

			db.Paste(chunk, int(rowSrc), 0)
			restored++
		}

		return nil
	})
	if err != nil {
		return restored, xerrors.Errorf("while restoring chunks: %w", err)
	}

	glog.Infof("Restored %d chunks for render %016x", restored, fingerprint)
	return restored, nil
}

// Clear drops every stored chunk of the render.
func (s *Store) Clear(fingerprint uint64) error {
	if err := s.DB.DropPrefix(ChunkKeyPrefixOneRender(fingerprint)); err != nil {
		return xerrors.Errorf("while dropping chunks for render %016x: %w", fingerprint, err)
	}
	return nil
}

// glogLogger routes badger's logging into glog.
type glogLogger struct{}

func (glogLogger) Errorf(format string, args ...interface{}) {
	glog.Errorf(format, args...)
}

func (glogLogger) Warningf(format string, args ...interface{}) {
	glog.Warningf(format, args...)
}

func (glogLogger) Infof(format string, args ...interface{}) {
	glog.V(1).Infof(format, args...)
}

func (glogLogger) Debugf(format string, args ...interface{}) {
	glog.V(2).Infof(format, args...)
}
