// Package remote provides access to the hierarchical catalog bucket.
// The bucket is laid out as Artist/<artist>/<album>/<file>; directories
// are prefixes, tracks and artwork are leaf blobs.
package remote

import "context"

// Listing is the result of listing one level of the bucket hierarchy.
// Prefixes are sub-directories (artists, albums), Items are leaf blobs
// (tracks, cover art). Both are full paths from the bucket root, in the
// order the backend returned them.
type Listing struct {
	Prefixes []string
	Items    []string
}

// Store abstracts the remote catalog bucket.
type Store interface {
	// ListChildren lists the immediate children of a path. An empty
	// path lists the configured root prefix.
	ListChildren(ctx context.Context, path string) (*Listing, error)

	// DownloadURL returns a time-limited signed URL for a leaf blob.
	DownloadURL(ctx context.Context, blobPath string) (string, error)
}
