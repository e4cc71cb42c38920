package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"hrm-payroll/internal/platform/crypto"
)

var ErrNotFound = errors.New("stored object not found")

// Local keeps objects under a root directory. When the cipher is configured
// objects are sealed on write and stored with an .enc suffix.
type Local struct {
	root   string
	cipher *crypto.Service
}

func NewLocal(root string, cipher *crypto.Service) (*Local, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	if cipher == nil {
		cipher = &crypto.Service{}
	}
	return &Local{root: root, cipher: cipher}, nil
}

func (l *Local) path(key string) (string, error) {
	clean := filepath.Clean("/" + key)
	if clean == "/" || strings.Contains(key, "..") {
		return "", fmt.Errorf("invalid storage key %q", key)
	}
	path := filepath.Join(l.root, clean)
	if l.cipher.Configured() {
		path += ".enc"
	}
	return path, nil
}

// Put writes through a temp file and rename so readers never see a partial
// object.
func (l *Local) Put(ctx context.Context, key string, data []byte) error {
	path, err := l.path(key)
	if err != nil {
		return err
	}
	sealed, err := l.cipher.Encrypt(data)
	if err != nil {
		return fmt.Errorf("encrypt %s: %w", key, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(sealed); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func (l *Local) Get(ctx context.Context, key string) ([]byte, error) {
	path, err := l.path(key)
	if err != nil {
		return nil, err
	}
	sealed, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return l.cipher.Decrypt(sealed)
}
