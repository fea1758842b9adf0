package store

import (
	"context"
	"database/sql"
	"fmt"
)

// PutBlob stores data under path, replacing any previous content.
func PutBlob(ctx context.Context, db *sql.DB, path string, data []byte, mime string) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO blobs (path, data, mime) VALUES (?, ?, ?)
		 ON CONFLICT (path) DO UPDATE SET data = excluded.data, mime = excluded.mime,
		     created_at = CURRENT_TIMESTAMP`,
		path, data, mime,
	)
	if err != nil {
		return fmt.Errorf("storing blob: %w", err)
	}
	return nil
}

// GetBlob returns a blob's data and MIME type. Missing blobs return nil data.
func GetBlob(ctx context.Context, db *sql.DB, path string) ([]byte, string, error) {
	var data []byte
	var mime string
	err := db.QueryRowContext(ctx,
		`SELECT data, mime FROM blobs WHERE path = ?`, path,
	).Scan(&data, &mime)
	if err == sql.ErrNoRows {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("getting blob: %w", err)
	}
	return data, mime, nil
}

// DeleteBlob removes a blob. Deleting a missing blob is not an error.
func DeleteBlob(ctx context.Context, db *sql.DB, path string) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM blobs WHERE path = ?`, path); err != nil {
		return fmt.Errorf("deleting blob: %w", err)
	}
	return nil
}
