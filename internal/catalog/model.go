// Package catalog implements the music catalog synchronizer and its
// two-tier caches over the remote bucket hierarchy.
package catalog

import (
	"path"
	"strings"
	"time"
)

// Song is an immutable leaf entity. Songs are replaced wholesale when
// re-fetched, never mutated in place.
type Song struct {
	ID        string        `json:"id"`
	SongName  string        `json:"songName"`
	Artist    string        `json:"artist"`
	AlbumName string        `json:"albumName,omitempty"`
	SongURL   string        `json:"songUrl"`
	Duration  time.Duration `json:"duration,omitempty"` // nanoseconds
}

// Album is an aggregate root owning an ordered list of Songs. Track
// order follows the remote listing order.
type Album struct {
	ID         string `json:"id"`
	AlbumName  string `json:"albumName"`
	Artist     string `json:"artist,omitempty"`
	AlbumCover string `json:"albumCover,omitempty"`
	Tracks     []Song `json:"tracks"`
}

// CatalogSnapshot is the cached catalog value: the full album list plus
// the moment it was taken.
type CatalogSnapshot struct {
	Albums    []Album   `json:"albums"`
	Timestamp time.Time `json:"timestamp"`
}

// AlbumID builds the id of an album from its artist and name.
func AlbumID(artist, albumName string) string {
	return artist + "_" + albumName
}

// SongID builds the id of a song from its place in the hierarchy.
func SongID(artist, albumName, fileName string) string {
	return artist + "_" + albumName + "_" + fileName
}

// imageExtensions identifies album artwork by file extension only.
var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
}

// IsImageFile reports whether a blob path names an image, by extension,
// case-insensitive.
func IsImageFile(blobPath string) bool {
	return imageExtensions[strings.ToLower(path.Ext(blobPath))]
}

// SongNameFromPath derives a display name from a blob path: the base
// name without its extension.
func SongNameFromPath(blobPath string) string {
	base := path.Base(blobPath)
	return strings.TrimSuffix(base, path.Ext(base))
}
