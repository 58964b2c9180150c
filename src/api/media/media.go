// Package media wraps the external asset store. The service only ever
// sees StoredAsset descriptors; which backend produced them is opaque.
package media

import "context"

// StoredAsset is the durable descriptor returned for one uploaded asset.
type StoredAsset struct {
	StorageID string
	URL       string
}

// Client uploads and deletes binary assets. Each call fails
// independently; callers decide whether a failure is fatal.
type Client interface {
	Upload(ctx context.Context, content []byte, dest string) (*StoredAsset, error)
	Delete(ctx context.Context, storageID string) error
}
