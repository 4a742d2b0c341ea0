package infra

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ErrImagenNoEncontrada is returned by Abrir when the reference is unknown.
var ErrImagenNoEncontrada = errors.New("imagen no encontrada")

// ImagenStore persists rendered barcode images addressed by an opaque ref.
type ImagenStore interface {
	Guardar(ctx context.Context, key string, data []byte) (string, error)
	Abrir(ctx context.Context, ref string) ([]byte, error)
	Eliminar(ctx context.Context, ref string) error
}

// ImagenKey is the storage key of the barcode image for a payload.
func ImagenKey(codigo string) string {
	return "barcodes/" + codigo + ".png"
}

// ── Local filesystem ─────────────────────────────────────────────────────────

// LocalStore writes images below a base directory; refs are relative keys.
type LocalStore struct {
	base string
}

func NewLocalStore(base string) (*LocalStore, error) {
	if err := os.MkdirAll(base, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create base dir: %w", err)
	}
	return &LocalStore{base: base}, nil
}

func (s *LocalStore) Guardar(_ context.Context, key string, data []byte) (string, error) {
	path, err := s.path(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("storage: mkdir: %w", err)
	}
	// write-then-rename so readers never see a partial PNG
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("storage: write: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", fmt.Errorf("storage: rename: %w", err)
	}
	return key, nil
}

func (s *LocalStore) Abrir(_ context.Context, ref string) ([]byte, error) {
	path, err := s.path(ref)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrImagenNoEncontrada
	}
	return data, err
}

func (s *LocalStore) Eliminar(_ context.Context, ref string) error {
	path, err := s.path(ref)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (s *LocalStore) path(key string) (string, error) {
	clean := filepath.Clean("/" + key)
	if clean == "/" || strings.Contains(key, "..") {
		return "", fmt.Errorf("storage: clave invalida %q", key)
	}
	return filepath.Join(s.base, clean), nil
}

// ── MinIO / S3 ───────────────────────────────────────────────────────────────

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// MinioStore keeps images as objects in a single bucket; refs are object keys.
type MinioStore struct {
	mc     *minio.Client
	bucket string
}

// NewMinioStore connects to MinIO and creates the bucket when missing.
func NewMinioStore(ctx context.Context, cfg MinioConfig) (*MinioStore, error) {
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio: client: %w", err)
	}
	exists, err := mc.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("minio: bucket exists: %w", err)
	}
	if !exists {
		if err := mc.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("minio: make bucket: %w", err)
		}
	}
	return &MinioStore{mc: mc, bucket: cfg.Bucket}, nil
}

func (s *MinioStore) Guardar(ctx context.Context, key string, data []byte) (string, error) {
	info, err := s.mc.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "image/png",
	})
	if err != nil {
		return "", fmt.Errorf("minio: put %s: %w", key, err)
	}
	return info.Key, nil
}

func (s *MinioStore) Abrir(ctx context.Context, ref string) ([]byte, error) {
	obj, err := s.mc.GetObject(ctx, s.bucket, ref, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("minio: get %s: %w", ref, err)
	}
	defer obj.Close()
	data, err := io.ReadAll(obj)
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, ErrImagenNoEncontrada
		}
		return nil, fmt.Errorf("minio: read %s: %w", ref, err)
	}
	return data, nil
}

func (s *MinioStore) Eliminar(ctx context.Context, ref string) error {
	if err := s.mc.RemoveObject(ctx, s.bucket, ref, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("minio: remove %s: %w", ref, err)
	}
	return nil
}
