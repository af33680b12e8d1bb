package store

import (
	"database/sql"
	"fmt"
	"time"
)

// KVStore is a durable string key-value store backing the catalog
// snapshot and the resolved-URL cache table.
type KVStore struct {
	db *sql.DB
}

// NewKVStore creates a new KVStore
func NewKVStore(db *sql.DB) *KVStore {
	return &KVStore{db: db}
}

// Get returns the value for a key and whether it exists.
func (kv *KVStore) Get(key string) (string, bool, error) {
	var value string
	err := kv.db.QueryRow("SELECT value FROM kv_entries WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read key %q: %w", key, err)
	}
	return value, true, nil
}

// Set stores a value under a key, replacing any previous value.
func (kv *KVStore) Set(key, value string) error {
	_, err := kv.db.Exec(`
		INSERT INTO kv_entries (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, time.Now())
	if err != nil {
		return fmt.Errorf("failed to write key %q: %w", key, err)
	}
	return nil
}

// Delete removes a key. Deleting a missing key is not an error.
func (kv *KVStore) Delete(key string) error {
	if _, err := kv.db.Exec("DELETE FROM kv_entries WHERE key = ?", key); err != nil {
		return fmt.Errorf("failed to delete key %q: %w", key, err)
	}
	return nil
}
