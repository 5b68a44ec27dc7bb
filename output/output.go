// Package output reads and writes render artifacts on local disk or in Google
// Cloud Storage.  Names of the form gs://bucket/object refer to GCS; anything
// else is a local path.
package output

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"cloud.google.com/go/storage"
)

const gcsScheme = "gs://"

// SplitGCSPath reports whether name is a GCS name and, if so, splits it.
func SplitGCSPath(name string) (bucket, object string, isGCS bool, err error) {
	if !strings.HasPrefix(name, gcsScheme) {
		return "", "", false, nil
	}

	rest := strings.TrimPrefix(name, gcsScheme)
	slash := strings.Index(rest, "/")
	if slash <= 0 || slash == len(rest)-1 {
		return "", "", true, fmt.Errorf("%q is not of the form gs://bucket/object", name)
	}
	return rest[:slash], rest[slash+1:], true, nil
}

type Store struct {
	mu        sync.Mutex
	gcsClient *storage.Client
}

func NewStore() *Store {
	return &Store{}
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.gcsClient == nil {
		return nil
	}
	if err := s.gcsClient.Close(); err != nil {
		return fmt.Errorf("while closing GCS client: %w", err)
	}
	s.gcsClient = nil
	return nil
}

// The GCS client is created on first use, so local-only runs need no
// credentials.
func (s *Store) client(ctx context.Context) (*storage.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.gcsClient != nil {
		return s.gcsClient, nil
	}

	gcsClient, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("while creating GCS client: %w", err)
	}
	s.gcsClient = gcsClient
	return gcsClient, nil
}

func (s *Store) Exists(ctx context.Context, name string) (bool, error) {
	bucket, object, isGCS, err := SplitGCSPath(name)
	if err != nil {
		return false, err
	}

	if !isGCS {
		_, err := os.Stat(name)
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		} else if err != nil {
			return false, fmt.Errorf("while checking %s: %w", name, err)
		}
		return true, nil
	}

	client, err := s.client(ctx)
	if err != nil {
		return false, err
	}
	_, err = client.Bucket(bucket).Object(object).Attrs(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return false, nil
	} else if err != nil {
		return false, fmt.Errorf("while checking %s: %w", name, err)
	}
	return true, nil
}

// Read calls read with the contents of name.
func (s *Store) Read(ctx context.Context, name string, read func(r io.Reader) error) error {
	bucket, object, isGCS, err := SplitGCSPath(name)
	if err != nil {
		return err
	}

	var in io.ReadCloser
	if isGCS {
		client, err := s.client(ctx)
		if err != nil {
			return err
		}
		in, err = client.Bucket(bucket).Object(object).NewReader(ctx)
		if err != nil {
			return fmt.Errorf("while creating reader for %s: %w", name, err)
		}
	} else {
		in, err = os.Open(name)
		if err != nil {
			return fmt.Errorf("while opening %s: %w", name, err)
		}
	}
	defer in.Close()

	if err := read(in); err != nil {
		return fmt.Errorf("while reading %s: %w", name, err)
	}
	return nil
}

// Write replaces name with whatever write produces.  If write fails, name is
// left as it was.
func (s *Store) Write(ctx context.Context, name string, write func(w io.Writer) error) error {
	bucket, object, isGCS, err := SplitGCSPath(name)
	if err != nil {
		return err
	}

	if !isGCS {
		return writeLocal(name, write)
	}

	client, err := s.client(ctx)
	if err != nil {
		return err
	}

	// Cancelling the context is how a GCS upload is abandoned.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w := client.Bucket(bucket).Object(object).NewWriter(ctx)
	if err := write(w); err != nil {
		cancel()
		w.Close()
		return fmt.Errorf("while writing %s: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("while finalizing %s: %w", name, err)
	}
	return nil
}

func writeLocal(name string, write func(w io.Writer) error) error {
	f, err := os.CreateTemp(filepath.Dir(name), filepath.Base(name)+".tmp*")
	if err != nil {
		return fmt.Errorf("while creating temporary file for %s: %w", name, err)
	}
	if err := f.Chmod(0o644); err != nil {
		f.Close()
		os.Remove(f.Name())
		return fmt.Errorf("while setting permissions on temporary file for %s: %w", name, err)
	}

	if err := write(f); err != nil {
		f.Close()
		os.Remove(f.Name())
		return fmt.Errorf("while writing %s: %w", name, err)
	}

	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return fmt.Errorf("while closing temporary file for %s: %w", name, err)
	}

	if err := os.Rename(f.Name(), name); err != nil {
		os.Remove(f.Name())
		return fmt.Errorf("while moving %s into place: %w", name, err)
	}
	return nil
}
