package utils

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

const (
	StorageProviderGCS   = "gcs"
	StorageProviderLocal = "local"
)

func GetStorageProvider() string {
	provider := strings.TrimSpace(strings.ToLower(os.Getenv("STORAGE_PROVIDER")))
	if provider == "" {
		return StorageProviderLocal
	}
	return provider
}

// UploadObject stores the payload under objectKey and returns a URL the
// admin UI can render. GCS in deployed environments, local disk for dev.
func UploadObject(ctx context.Context, objectKey string, contentType string, data []byte) (string, error) {
	switch GetStorageProvider() {
	case StorageProviderGCS:
		return uploadToGCS(ctx, objectKey, contentType, data)
	default:
		return uploadToLocal(objectKey, data)
	}
}

func uploadToGCS(ctx context.Context, objectKey string, contentType string, data []byte) (string, error) {
	bucketName := os.Getenv("STORAGE_BUCKET")
	if bucketName == "" {
		return "", fmt.Errorf("STORAGE_BUCKET is not set")
	}

	var opts []option.ClientOption
	if credFile := os.Getenv("STORAGE_CREDENTIALS_FILE"); credFile != "" {
		opts = append(opts, option.WithCredentialsFile(credFile))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return "", err
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	w := client.Bucket(bucketName).Object(objectKey).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		w.Close()
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}

	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", bucketName, objectKey), nil
}

func uploadToLocal(objectKey string, data []byte) (string, error) {
	baseDir := os.Getenv("UPLOAD_DIR")
	if baseDir == "" {
		baseDir = "uploads"
	}
	fullPath := filepath.Join(baseDir, objectKey)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(fullPath, data, 0o644); err != nil {
		return "", err
	}
	return "/" + filepath.ToSlash(fullPath), nil
}
