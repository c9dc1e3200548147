// Package objectstore publishes committed wheels to object storage.
package objectstore

import (
	"context"
	"path"
)

// WheelContentType is the media type of uploaded wheels.
const WheelContentType = "application/zip"

// Store uploads objects.
type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
}

// NullStore discards uploads.
type NullStore struct{}

// NewNullStore returns a store that accepts and drops every upload.
func NewNullStore() NullStore { return NullStore{} }

func (NullStore) Put(context.Context, string, []byte, string) error { return nil }

func objectKey(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return path.Join(prefix, key)
}
