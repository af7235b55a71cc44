package cookies

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/sockpuppet-cli/api/schemas"
)

// FileStore keeps one JSON record per account under a directory. Writes go
// to a temp file in the same directory and are renamed into place, so a
// crash mid-write never corrupts the previous valid jar.
type FileStore struct {
	dir    string
	logger *zap.Logger

	// mu guards the per-account locks map; locks serialize writes per
	// account identity.
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

var _ schemas.CookieStore = (*FileStore)(nil)

// NewFileStore creates the jar directory if needed and returns a store
// rooted there.
func NewFileStore(dir string, logger *zap.Logger) (*FileStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("cookie store directory is required")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create cookie store directory: %w", err)
	}
	return &FileStore{
		dir:    dir,
		logger: logger.Named("cookies.file"),
		locks:  make(map[string]*sync.Mutex),
	}, nil
}

// Load reads the jar saved for accountID. Missing or unreadable records
// yield ErrNotFound rather than an error the caller has to distinguish.
func (s *FileStore) Load(ctx context.Context, accountID string) (*schemas.CookieJar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.jarPath(accountID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		s.logger.Warn("Cookie jar unreadable, treating as absent.",
			zap.String("account", accountID), zap.Error(err))
		return nil, ErrNotFound
	}

	var jar schemas.CookieJar
	if err := json.Unmarshal(data, &jar); err != nil {
		s.logger.Warn("Cookie jar corrupt, treating as absent.",
			zap.String("account", accountID), zap.Error(err))
		return nil, ErrNotFound
	}
	if jar.Empty() {
		return nil, ErrNotFound
	}
	return &jar, nil
}

// Save atomically replaces the saved jar for accountID.
func (s *FileStore) Save(ctx context.Context, accountID string, jar *schemas.CookieJar) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if jar == nil {
		return fmt.Errorf("refusing to save a nil cookie jar for %q", accountID)
	}

	lock := s.accountLock(accountID)
	lock.Lock()
	defer lock.Unlock()

	record := *jar
	record.Account = accountID
	if record.SavedAt.IsZero() {
		record.SavedAt = time.Now().UTC()
	}

	data, err := json.MarshalIndent(&record, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode cookie jar: %w", err)
	}

	final := s.jarPath(accountID)
	tmp, err := os.CreateTemp(s.dir, filepath.Base(final)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp jar file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp jar file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to sync temp jar file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp jar file: %w", err)
	}

	if err := os.Rename(tmpName, final); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace cookie jar: %w", err)
	}

	s.logger.Debug("Cookie jar saved.",
		zap.String("account", accountID),
		zap.Int("cookies", len(record.Cookies)),
	)
	return nil
}

// Delete removes the saved jar, tolerating absence.
func (s *FileStore) Delete(ctx context.Context, accountID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	lock := s.accountLock(accountID)
	lock.Lock()
	defer lock.Unlock()

	if err := os.Remove(s.jarPath(accountID)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete cookie jar: %w", err)
	}
	return nil
}

func (s *FileStore) accountLock(accountID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[accountID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[accountID] = lock
	}
	return lock
}

// jarPath maps an account identity onto a filename, flattening anything
// that could escape the store directory.
func (s *FileStore) jarPath(accountID string) string {
	sanitized := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-' || r == '_' || r == '.':
			return r
		default:
			return '_'
		}
	}, accountID)
	return filepath.Join(s.dir, sanitized+".json")
}
