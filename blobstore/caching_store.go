package blobstore

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

// CachingStore wraps a BlobStore and keeps whole blobs of recently opened
// names in memory. Concurrent opens of the same missing blob share one read
// of the inner store.
type CachingStore struct {
	inner BlobStore
	cache *lru.Cache[string, []byte]
	group singleflight.Group
}

// NewCachingStore creates a CachingStore holding up to entries blobs.
func NewCachingStore(inner BlobStore, entries int) (*CachingStore, error) {
	cache, err := lru.New[string, []byte](max(entries, 1))
	if err != nil {
		return nil, err
	}
	return &CachingStore{inner: inner, cache: cache}, nil
}

// Open serves the blob from the cache, loading it fully on a miss.
func (s *CachingStore) Open(ctx context.Context, name string) (Blob, error) {
	if data, ok := s.cache.Get(name); ok {
		return &memoryBlob{data: data}, nil
	}
	v, err, _ := s.group.Do(name, func() (any, error) {
		data, err := ReadAll(ctx, s.inner, name)
		if err != nil {
			return nil, err
		}
		s.cache.Add(name, data)
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return &memoryBlob{data: v.([]byte)}, nil
}

// Create streams to the inner store and invalidates the cached blob.
func (s *CachingStore) Create(ctx context.Context, name string) (WritableBlob, error) {
	w, err := s.inner.Create(ctx, name)
	if err != nil {
		return nil, err
	}
	return &invalidatingBlob{WritableBlob: w, invalidate: func() { s.cache.Remove(name) }}, nil
}

// Put writes through and invalidates the cached blob.
func (s *CachingStore) Put(ctx context.Context, name string, data []byte) error {
	defer s.cache.Remove(name)
	return s.inner.Put(ctx, name, data)
}

// Delete removes the blob from the inner store and the cache.
func (s *CachingStore) Delete(ctx context.Context, name string) error {
	defer s.cache.Remove(name)
	return s.inner.Delete(ctx, name)
}

// List is served by the inner store.
func (s *CachingStore) List(ctx context.Context, prefix string) ([]string, error) {
	return s.inner.List(ctx, prefix)
}

// Cached returns the number of cached blobs.
func (s *CachingStore) Cached() int {
	return s.cache.Len()
}

type invalidatingBlob struct {
	WritableBlob
	invalidate func()
}

func (b *invalidatingBlob) Close() error {
	defer b.invalidate()
	return b.WritableBlob.Close()
}
