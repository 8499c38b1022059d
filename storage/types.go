package storage

import (
	"database/sql"
	"errors"
	"time"
)

var (
	// ErrNotFound indicates a requested row does not exist.
	ErrNotFound = errors.New("storage: record not found")
	// ErrDuplicateToken indicates a transfer with the same token is already recorded.
	ErrDuplicateToken = errors.New("storage: duplicate transfer token")
)

// Transfer is the SQLite representation of one completed sharing operation.
type Transfer struct {
	Token        string
	ArchiveName  string
	ArchivePath  string
	ArtifactName string
	ArtifactPath string
	Link         string
	Contact      *string
	FileCount    int
	FailedCount  int
	ArchiveSize  int64
	Checksum     string
	CreatedAt    int64
}

func nullString(ptr *string) sql.NullString {
	if ptr == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *ptr, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

func nowUnixMilli() int64 {
	return time.Now().UnixMilli()
}
