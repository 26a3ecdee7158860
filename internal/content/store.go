package content

import (
	"fmt"
	"io/fs"
	"sync/atomic"
)

// Store holds the current Catalog and swaps it atomically on reload, so
// handlers always see a complete snapshot.
type Store struct {
	src     fs.FS
	current atomic.Pointer[Catalog]
}

// NewStore loads src once and fails if the initial content is invalid.
func NewStore(src fs.FS) (*Store, error) {
	s := &Store{src: src}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) Catalog() *Catalog {
	return s.current.Load()
}

// Reload re-reads the source. On error the previous catalog stays in place.
func (s *Store) Reload() error {
	c, err := Load(s.src)
	if err != nil {
		return fmt.Errorf("failed to load content: %w", err)
	}
	s.current.Store(c)
	return nil
}
