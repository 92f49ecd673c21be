package repositories

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/your-org/todostack/internal/domain"
)

// jsonStore keeps one value of type T in a single pretty-printed JSON file.
//
// Writers hold an in-process mutex and an exclusive advisory lock on a
// sibling ".lock" file across the whole read-modify-write span, and replace
// the document through a temp file + rename, so readers never observe a
// half-written file and concurrent writers cannot lose each other's updates.
type jsonStore[T any] struct {
	path   string
	perm   os.FileMode
	logger *zap.Logger

	// fallback builds the value used when the file is missing or unusable
	fallback func() T
	// usable rejects decoded values that cannot serve as a document
	usable func(T) bool

	mu sync.Mutex
}

func newJSONStore[T any](path string, perm os.FileMode, logger *zap.Logger, fallback func() T, usable func(T) bool) *jsonStore[T] {
	if usable == nil {
		usable = func(T) bool { return true }
	}
	return &jsonStore[T]{
		path:     path,
		perm:     perm,
		logger:   logger,
		fallback: fallback,
		usable:   usable,
	}
}

// read decodes the file. missing reports that the file does not exist;
// in that case and when the content is unparsable the fallback is returned.
func (s *jsonStore[T]) read() (value T, missing bool, err error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s.fallback(), true, nil
		}
		return value, false, fmt.Errorf("%w: read %s: %v", domain.ErrStorage, s.path, err)
	}

	var decoded T
	if err := json.Unmarshal(data, &decoded); err != nil || !s.usable(decoded) {
		s.logger.Warn("unusable document on disk, substituting defaults",
			zap.String("path", s.path),
			zap.Error(err),
		)
		return s.fallback(), false, nil
	}
	return decoded, false, nil
}

// load returns the current document without taking the write lock.
func (s *jsonStore[T]) load(ctx context.Context) (T, bool, error) {
	if err := ctx.Err(); err != nil {
		var zero T
		return zero, false, err
	}
	return s.read()
}

// update runs fn under the write lock and persists the value unless fn fails.
func (s *jsonStore[T]) update(ctx context.Context, fn func(T) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	unlock, err := s.lock()
	if err != nil {
		return err
	}
	defer unlock()

	value, _, err := s.read()
	if err != nil {
		return err
	}
	if err := fn(value); err != nil {
		return err
	}
	return s.write(value)
}

func (s *jsonStore[T]) lock() (func(), error) {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return nil, fmt.Errorf("%w: create data dir: %v", domain.ErrStorage, err)
	}
	f, err := os.OpenFile(s.path+".lock", os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("%w: open lock file: %v", domain.ErrStorage, err)
	}
	if err := lockFile(f); err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: acquire lock on %s: %v", domain.ErrStorage, s.path, err)
	}
	return func() {
		if err := unlockFile(f); err != nil {
			s.logger.Warn("failed to release file lock",
				zap.String("path", s.path),
				zap.Error(err),
			)
		}
		f.Close()
	}, nil
}

func (s *jsonStore[T]) write(value T) error {
	data, err := encodeDocument(value)
	if err != nil {
		return fmt.Errorf("%w: encode %s: %v", domain.ErrStorage, s.path, err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: create temp file: %v", domain.ErrStorage, err)
	}
	tmpName := tmp.Name()
	cleanup := func() {
		tmp.Close()
		os.Remove(tmpName)
	}

	if _, err := tmp.Write(data); err != nil {
		cleanup()
		return fmt.Errorf("%w: write %s: %v", domain.ErrStorage, s.path, err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("%w: sync %s: %v", domain.ErrStorage, s.path, err)
	}
	if err := tmp.Chmod(s.perm); err != nil {
		cleanup()
		return fmt.Errorf("%w: chmod %s: %v", domain.ErrStorage, s.path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: close %s: %v", domain.ErrStorage, s.path, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: replace %s: %v", domain.ErrStorage, s.path, err)
	}
	return nil
}

// encodeDocument renders pretty JSON without HTML escaping
func encodeDocument(value interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(value); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
