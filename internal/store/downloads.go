package store

import (
	"database/sql"
	"fmt"
	"time"
)

// DownloadItem represents one download job row. Instances are treated
// as values: updates go through copy-and-replace, never in-place field
// mutation of a shared pointer.
type DownloadItem struct {
	ID              string     `json:"id"`
	SongID          string     `json:"song_id"`
	SongName        string     `json:"song_name"`
	Artist          string     `json:"artist"`
	AlbumName       string     `json:"album_name,omitempty"`
	URL             string     `json:"url"`
	Status          string     `json:"status"` // pending, downloading, completed, failed, paused, cancelled
	Progress        float64    `json:"progress"`
	TotalBytes      int64      `json:"total_bytes,omitempty"`
	DownloadedBytes int64      `json:"downloaded_bytes,omitempty"`
	ErrorMessage    string     `json:"error_message,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// OfflineSong records a completed download backed by a local file.
type OfflineSong struct {
	SongID       string    `json:"song_id"`
	SongName     string    `json:"song_name"`
	Artist       string    `json:"artist"`
	AlbumName    string    `json:"album_name,omitempty"`
	LocalPath    string    `json:"local_path"`
	OriginalURL  string    `json:"original_url,omitempty"`
	FileSize     int64     `json:"file_size"`
	DownloadDate time.Time `json:"download_date"`
}

// DownloadStore persists download queue items
type DownloadStore struct {
	db *sql.DB
}

// NewDownloadStore creates a new DownloadStore
func NewDownloadStore(db *sql.DB) *DownloadStore {
	return &DownloadStore{db: db}
}

// Add inserts a new download item
func (ds *DownloadStore) Add(item *DownloadItem) error {
	now := time.Now()
	item.CreatedAt = now
	item.UpdatedAt = now

	_, err := ds.db.Exec(`
		INSERT INTO download_items (
			id, song_id, song_name, artist, album_name, url, status,
			progress, total_bytes, downloaded_bytes, error_message,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		item.ID, item.SongID, item.SongName, item.Artist, item.AlbumName,
		item.URL, item.Status, item.Progress, item.TotalBytes,
		item.DownloadedBytes, item.ErrorMessage, item.CreatedAt, item.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to add download item: %w", err)
	}
	return nil
}

// Update replaces the stored row for an item
func (ds *DownloadStore) Update(item *DownloadItem) error {
	item.UpdatedAt = time.Now()

	result, err := ds.db.Exec(`
		UPDATE download_items
		SET song_id = ?, song_name = ?, artist = ?, album_name = ?, url = ?,
		    status = ?, progress = ?, total_bytes = ?, downloaded_bytes = ?,
		    error_message = ?, updated_at = ?
		WHERE id = ?
	`,
		item.SongID, item.SongName, item.Artist, item.AlbumName, item.URL,
		item.Status, item.Progress, item.TotalBytes, item.DownloadedBytes,
		item.ErrorMessage, item.UpdatedAt, item.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update download item: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("download item not found: %s", item.ID)
	}
	return nil
}

// GetByID returns a download item by its id
func (ds *DownloadStore) GetByID(id string) (*DownloadItem, error) {
	row := ds.db.QueryRow(selectDownload+" WHERE id = ?", id)
	return scanDownload(row)
}

// GetBySongID returns the download item tracking a song, if any.
func (ds *DownloadStore) GetBySongID(songID string) (*DownloadItem, error) {
	row := ds.db.QueryRow(selectDownload+" WHERE song_id = ?", songID)
	return scanDownload(row)
}

// ListAll returns every download item in creation order
func (ds *DownloadStore) ListAll() ([]*DownloadItem, error) {
	return ds.list(selectDownload + " ORDER BY created_at")
}

// ListByStatus returns items with the given status in creation order
func (ds *DownloadStore) ListByStatus(status string) ([]*DownloadItem, error) {
	return ds.list(selectDownload+" WHERE status = ? ORDER BY created_at", status)
}

// Delete removes an item by id
func (ds *DownloadStore) Delete(id string) error {
	if _, err := ds.db.Exec("DELETE FROM download_items WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete download item: %w", err)
	}
	return nil
}

const selectDownload = `
	SELECT id, song_id, song_name, artist, album_name, url, status,
	       progress, total_bytes, downloaded_bytes, error_message,
	       created_at, updated_at
	FROM download_items`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDownload(row rowScanner) (*DownloadItem, error) {
	var item DownloadItem
	var albumName, errorMessage sql.NullString

	err := row.Scan(
		&item.ID, &item.SongID, &item.SongName, &item.Artist, &albumName,
		&item.URL, &item.Status, &item.Progress, &item.TotalBytes,
		&item.DownloadedBytes, &errorMessage, &item.CreatedAt, &item.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan download item: %w", err)
	}

	item.AlbumName = albumName.String
	item.ErrorMessage = errorMessage.String
	return &item, nil
}

func (ds *DownloadStore) list(query string, args ...any) ([]*DownloadItem, error) {
	rows, err := ds.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list download items: %w", err)
	}
	defer rows.Close()

	var items []*DownloadItem
	for rows.Next() {
		item, err := scanDownload(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// OfflineStore persists completed offline songs
type OfflineStore struct {
	db *sql.DB
}

// NewOfflineStore creates a new OfflineStore
func NewOfflineStore(db *sql.DB) *OfflineStore {
	return &OfflineStore{db: db}
}

// Put inserts or replaces an offline song record
func (os *OfflineStore) Put(song *OfflineSong) error {
	if song.DownloadDate.IsZero() {
		song.DownloadDate = time.Now()
	}

	_, err := os.db.Exec(`
		INSERT INTO offline_songs (
			song_id, song_name, artist, album_name, local_path,
			original_url, file_size, download_date
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(song_id) DO UPDATE SET
			song_name = excluded.song_name,
			artist = excluded.artist,
			album_name = excluded.album_name,
			local_path = excluded.local_path,
			original_url = excluded.original_url,
			file_size = excluded.file_size,
			download_date = excluded.download_date
	`,
		song.SongID, song.SongName, song.Artist, song.AlbumName,
		song.LocalPath, song.OriginalURL, song.FileSize, song.DownloadDate,
	)
	if err != nil {
		return fmt.Errorf("failed to store offline song: %w", err)
	}
	return nil
}

// Get returns an offline song by song id
func (os *OfflineStore) Get(songID string) (*OfflineSong, error) {
	row := os.db.QueryRow(`
		SELECT song_id, song_name, artist, album_name, local_path,
		       original_url, file_size, download_date
		FROM offline_songs WHERE song_id = ?
	`, songID)

	var song OfflineSong
	var albumName, originalURL sql.NullString
	err := row.Scan(
		&song.SongID, &song.SongName, &song.Artist, &albumName,
		&song.LocalPath, &originalURL, &song.FileSize, &song.DownloadDate,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan offline song: %w", err)
	}

	song.AlbumName = albumName.String
	song.OriginalURL = originalURL.String
	return &song, nil
}

// ListAll returns every offline song, newest first
func (os *OfflineStore) ListAll() ([]*OfflineSong, error) {
	rows, err := os.db.Query(`
		SELECT song_id, song_name, artist, album_name, local_path,
		       original_url, file_size, download_date
		FROM offline_songs ORDER BY download_date DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list offline songs: %w", err)
	}
	defer rows.Close()

	var songs []*OfflineSong
	for rows.Next() {
		var song OfflineSong
		var albumName, originalURL sql.NullString
		if err := rows.Scan(
			&song.SongID, &song.SongName, &song.Artist, &albumName,
			&song.LocalPath, &originalURL, &song.FileSize, &song.DownloadDate,
		); err != nil {
			return nil, fmt.Errorf("failed to scan offline song: %w", err)
		}
		song.AlbumName = albumName.String
		song.OriginalURL = originalURL.String
		songs = append(songs, &song)
	}
	return songs, rows.Err()
}

// Delete removes an offline song record
func (os *OfflineStore) Delete(songID string) error {
	if _, err := os.db.Exec("DELETE FROM offline_songs WHERE song_id = ?", songID); err != nil {
		return fmt.Errorf("failed to delete offline song: %w", err)
	}
	return nil
}
