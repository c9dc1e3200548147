package objectstore

import (
	"context"
	"testing"

	"github.com/matzehuels/npym/pkg/errors"
)

func TestObjectKey(t *testing.T) {
	tests := []struct {
		prefix, key, want string
	}{
		{"", "a.whl", "a.whl"},
		{"wheels", "a.whl", "wheels/a.whl"},
		{"wheels/", "a.whl", "wheels/a.whl"},
	}
	for _, tt := range tests {
		if got := objectKey(tt.prefix, tt.key); got != tt.want {
			t.Errorf("objectKey(%q, %q) = %q, want %q", tt.prefix, tt.key, got, tt.want)
		}
	}
}

func TestNullStore(t *testing.T) {
	if err := NewNullStore().Put(context.Background(), "a.whl", []byte("x"), WheelContentType); err != nil {
		t.Errorf("Put() error: %v", err)
	}
}

func TestNewMinIOStoreRequiresBucket(t *testing.T) {
	_, err := NewMinIOStore(context.Background(), Config{Endpoint: "localhost:9000"})
	if !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("error = %v, want INVALID_INPUT", err)
	}
}
