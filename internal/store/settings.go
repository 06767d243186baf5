package store

import (
	"database/sql"
	"fmt"
	"time"
)

var s3Keys = []string{
	"s3_endpoint",
	"s3_bucket",
	"s3_region",
	"s3_access_key",
	"s3_secret_key",
}

// SettingsStore holds server-level key/value settings (backup target and the
// like). User-facing settings live inside the AppState snapshot instead.
type SettingsStore struct {
	db *sql.DB
}

func NewSettingsStore(db *sql.DB) *SettingsStore {
	return &SettingsStore{db: db}
}

func (s *SettingsStore) Get(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("setting %q not found", key)
	}
	if err != nil {
		return "", fmt.Errorf("get setting %q: %w", key, err)
	}
	return value, nil
}

func (s *SettingsStore) Set(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("set setting %q: %w", key, err)
	}
	return nil
}

// GetS3Settings returns the S3 backup settings that have been configured.
func (s *SettingsStore) GetS3Settings() (map[string]string, error) {
	settings := make(map[string]string)
	for _, key := range s3Keys {
		var value string
		err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("get s3 setting %q: %w", key, err)
		}
		settings[key] = value
	}
	return settings, nil
}
