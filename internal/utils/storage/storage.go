package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

var ErrObjectNotFound = errors.New("stored object not found")

// FileStorage keeps uploaded receipt files. Keys are flat object names such as
// "<receipt_id>.pdf"; backends map them onto a directory or a bucket.
type FileStorage interface {
	Save(ctx context.Context, key string, data []byte, contentType string) error
	Read(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

type Options struct {
	Driver   string
	LocalDir string

	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

func New(ctx context.Context, opts Options) (FileStorage, error) {
	switch strings.ToLower(opts.Driver) {
	case "", "local":
		return NewLocal(opts.LocalDir)
	case "s3":
		return NewAwsS3(ctx, opts)
	case "minio":
		return NewMinio(ctx, opts)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", opts.Driver)
	}
}

func cleanKey(key string) (string, error) {
	key = filepath.Base(filepath.Clean("/" + key))
	if key == "/" || key == "." || key == "" {
		return "", fmt.Errorf("invalid object key")
	}
	return key, nil
}
