package session

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// FileStore keeps one Playwright-compatible storage-state file per key. The
// files survive the process, so using it is an explicit choice to reuse a
// login across runs.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

// NewFileStore creates the directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, errors.Wrapf(err, "failed to create session dir %s", dir)
	}
	return &FileStore{dir: dir}, nil
}

// Path returns the file used for key. Keys with characters outside
// [A-Za-z0-9._-] get a hash suffix so "a/b" and "a_b" stay apart.
func (f *FileStore) Path(key string) string {
	name := unsafeFileChars.ReplaceAllString(key, "_")
	if name != key {
		sum := sha256.Sum256([]byte(key))
		name += "-" + hex.EncodeToString(sum[:4])
	}
	return filepath.Join(f.dir, name+".json")
}

func (f *FileStore) Load(_ context.Context, key string) (*State, error) {
	data, err := os.ReadFile(f.Path(key))
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read session %q", key)
	}
	s, err := ValidateDocument(data)
	if err != nil {
		return nil, errors.Wrapf(err, "session file %s", f.Path(key))
	}
	return s, nil
}

func (f *FileStore) Save(_ context.Context, key string, state *State) error {
	if key == "" {
		return ErrEmptyKey
	}
	data, err := state.Marshal()
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	tmp, err := os.CreateTemp(f.dir, ".session-*.json")
	if err != nil {
		return errors.Wrap(err, "failed to create temp session file")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrap(err, "failed to write session file")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "failed to close session file")
	}
	if err := os.Rename(tmp.Name(), f.Path(key)); err != nil {
		return errors.Wrap(err, "failed to move session file into place")
	}
	klog.V(4).Infof("[session] wrote %s", f.Path(key))
	return nil
}

func (f *FileStore) Delete(_ context.Context, key string) error {
	err := os.Remove(f.Path(key))
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "failed to delete session %q", key)
	}
	return nil
}

// Keys lists the keys recorded inside the stored files.
func (f *FileStore) Keys(_ context.Context) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(f.dir, "*.json"))
	if err != nil {
		return nil, errors.Wrap(err, "failed to list session files")
	}

	keys := make([]string, 0, len(matches))
	for _, m := range matches {
		name := strings.TrimSuffix(filepath.Base(m), ".json")
		if strings.HasPrefix(name, ".") {
			continue
		}
		if data, err := os.ReadFile(m); err == nil {
			if s, err := Unmarshal(data); err == nil && s.Key != "" {
				name = s.Key
			}
		}
		keys = append(keys, name)
	}
	sort.Strings(keys)
	return keys, nil
}
