// Package blob is the boundary for opaque byte storage: backing up input
// documents and storing processed output. Transport is someone else's
// problem; this module ships a local-directory implementation.
package blob

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type Store interface {
	// Backup stores data under a timestamped name derived from name and
	// returns the path it was stored at.
	Backup(name string, data []byte) (string, error)
	// Put stores data under the given relative path.
	Put(path string, data []byte) (string, error)
}

type LocalStore struct {
	root string
}

func NewLocalStore(root string) *LocalStore {
	return &LocalStore{root: root}
}

func (s *LocalStore) Backup(name string, data []byte) (string, error) {
	base := filepath.Base(name)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	stamp := time.Now().Format("2006_01_02_15_04_05")
	return s.Put(filepath.Join("backups", fmt.Sprintf("%s_%s%s", stem, stamp, ext)), data)
}

func (s *LocalStore) Put(path string, data []byte) (string, error) {
	full := filepath.Join(s.root, path)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return "", err
	}
	return full, nil
}
