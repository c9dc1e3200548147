//go:build integration

package objectstore

import (
	"context"
	"io"
	"os"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
)

// Needs a MinIO server, e.g. NPYM_TEST_MINIO_ENDPOINT=localhost:9000 with
// the default minioadmin credentials.
func TestMinIOStoreIntegration(t *testing.T) {
	endpoint := os.Getenv("NPYM_TEST_MINIO_ENDPOINT")
	if endpoint == "" {
		t.Skip("NPYM_TEST_MINIO_ENDPOINT not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s, err := NewMinIOStore(ctx, Config{
		Endpoint:  endpoint,
		AccessKey: "minioadmin",
		SecretKey: "minioadmin",
		Bucket:    "npym-test",
		Prefix:    "wheels",
	})
	if err != nil {
		t.Fatalf("NewMinIOStore() error: %v", err)
	}
	if err := s.Put(ctx, "a.whl", []byte("wheel"), WheelContentType); err != nil {
		t.Fatalf("Put() error: %v", err)
	}

	obj, err := s.Client.GetObject(ctx, s.Bucket, "wheels/a.whl", minio.GetObjectOptions{})
	if err != nil {
		t.Fatalf("GetObject() error: %v", err)
	}
	defer obj.Close()
	data, _ := io.ReadAll(obj)
	if string(data) != "wheel" {
		t.Errorf("object = %q, want wheel", data)
	}
}
