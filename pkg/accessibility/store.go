package accessibility

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/artbeyondsight/sight/pkg/utils"
	"github.com/gofrs/flock"
)

// Store is durable key-value storage for settings.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
}

// FileStore keeps every key in one JSON document. A sibling lock file guards
// it against concurrent writers in other processes.
type FileStore struct {
	path string
	lock *flock.Flock
	mu   sync.Mutex
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path, lock: flock.New(path + ".lock")}
}

// DefaultStorePath is settings.json under the user config directory.
func DefaultStorePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "sight", "settings.json")
}

func (f *FileStore) Path() string {
	return f.path
}

func (f *FileStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.ensureDir(); err != nil {
		return nil, false, utils.WrapIfNotNil(err)
	}
	if err := f.lock.RLock(); err != nil {
		return nil, false, utils.WrapIfNotNil(err)
	}
	defer func() { _ = f.lock.Unlock() }()

	entries, err := f.readLocked()
	if err != nil {
		return nil, false, utils.WrapIfNotNil(err)
	}
	value, ok := entries[key]
	return value, ok, nil
}

func (f *FileStore) Set(ctx context.Context, key string, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !json.Valid(value) {
		return utils.WrapIfNotNil(errors.New("settings value is not valid JSON"), key)
	}
	if err := f.ensureDir(); err != nil {
		return utils.WrapIfNotNil(err)
	}
	if err := f.lock.Lock(); err != nil {
		return utils.WrapIfNotNil(err)
	}
	defer func() { _ = f.lock.Unlock() }()

	// A corrupt document is overwritten.
	entries, err := f.readLocked()
	if err != nil {
		entries = make(map[string]json.RawMessage)
	}
	entries[key] = json.RawMessage(value)

	encoded, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return utils.WrapIfNotNil(err)
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, encoded, 0o600); err != nil {
		return utils.WrapIfNotNil(err)
	}
	return utils.WrapIfNotNil(os.Rename(tmp, f.path))
}

func (f *FileStore) ensureDir() error {
	return os.MkdirAll(filepath.Dir(f.path), 0o755)
}

func (f *FileStore) readLocked() (map[string]json.RawMessage, error) {
	entries := make(map[string]json.RawMessage)
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return entries, nil
	}
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return entries, nil
	}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}
