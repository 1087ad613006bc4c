package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

type localStorage struct {
	dir string
}

func NewLocal(dir string) (FileStorage, error) {
	if dir == "" {
		dir = "data/receipts"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &localStorage{dir: dir}, nil
}

func (s *localStorage) Save(_ context.Context, key string, data []byte, _ string) error {
	key, err := cleanKey(key)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(s.dir, key), data, 0o644)
}

func (s *localStorage) Read(_ context.Context, key string) ([]byte, error) {
	key, err := cleanKey(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(s.dir, key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrObjectNotFound
	}
	return data, err
}

func (s *localStorage) Delete(_ context.Context, key string) error {
	key, err := cleanKey(key)
	if err != nil {
		return err
	}
	err = os.Remove(filepath.Join(s.dir, key))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
