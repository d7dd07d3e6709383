package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Store reads and writes the students document in a state directory.
//
// Every read-modify-write goes through Update, which holds a single writer
// lock for the whole load-mutate-save cycle. Writes replace the document
// atomically (temp file + rename), so readers never see a partial file.
type Store struct {
	dir string
	now func() time.Time

	mu sync.Mutex
}

// NewStore returns a store rooted at dir (usually <data>/state).
func NewStore(dir string) *Store {
	return &Store{dir: dir, now: func() time.Time { return time.Now().UTC() }}
}

// Path returns the location of the current document.
func (s *Store) Path() string {
	return filepath.Join(s.dir, StateFile)
}

// Now returns the store clock, used for record timestamps.
func (s *Store) Now() time.Time {
	return s.now()
}

// Load returns the current document, upgrading older layouts in place.
func (s *Store) Load(ctx context.Context) (*StudentsState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

// Save replaces the document.
func (s *Store) Save(ctx context.Context, st *StudentsState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(ctx, st)
}

// Update loads the document, applies fn and saves the result. Nothing is
// written when fn returns an error.
func (s *Store) Update(ctx context.Context, fn func(*StudentsState) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.load(ctx)
	if err != nil {
		return err
	}
	if err := fn(st); err != nil {
		return err
	}
	return s.save(ctx, st)
}

func (s *Store) load(ctx context.Context) (*StudentsState, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(s.Path())
	switch {
	case err == nil:
		st, changed, err := decode(raw)
		if err != nil {
			return nil, err
		}
		if changed {
			if err := s.save(ctx, st); err != nil {
				return nil, fmt.Errorf("upgrade %s: %w", StateFile, err)
			}
		}
		return st, nil
	case !errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("read %s: %w", StateFile, err)
	}

	legacy, err := os.ReadFile(filepath.Join(s.dir, LegacyFile))
	switch {
	case err == nil:
		st, err := MigrateLegacy(legacy, s.now())
		if err != nil {
			return nil, err
		}
		if err := s.save(ctx, st); err != nil {
			return nil, fmt.Errorf("migrate %s: %w", LegacyFile, err)
		}
		return st, nil
	case !errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("read %s: %w", LegacyFile, err)
	}

	return NewState(), nil
}

func (s *Store) save(ctx context.Context, st *StudentsState) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	st.repair()

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", StateFile, err)
	}
	data = append(data, '\n')

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	return writeAtomic(s.Path(), data)
}

// writeAtomic writes data to a temp file in the target directory, syncs it
// and renames it over path.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace %s: %w", filepath.Base(path), err)
	}
	return nil
}
