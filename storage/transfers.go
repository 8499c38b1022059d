package storage

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
)

const transferColumns = `
			token,
			archive_name,
			archive_path,
			artifact_name,
			artifact_path,
			link,
			contact,
			file_count,
			failed_count,
			archive_size,
			checksum,
			created_at`

// AppendTransfer records a new transfer. It returns ErrDuplicateToken when the
// token is already present; the INSERT is the single check-and-write step.
func (s *Store) AppendTransfer(transfer Transfer) error {
	if transfer.Token == "" {
		return errors.New("token is required")
	}
	if transfer.ArchiveName == "" || transfer.ArchivePath == "" {
		return errors.New("archive reference is required")
	}
	if transfer.ArtifactName == "" || transfer.ArtifactPath == "" {
		return errors.New("artifact reference is required")
	}
	if transfer.Link == "" {
		return errors.New("link is required")
	}
	if transfer.FileCount < 0 || transfer.FailedCount < 0 {
		return errors.New("file counts must be >= 0")
	}
	if transfer.CreatedAt == 0 {
		transfer.CreatedAt = nowUnixMilli()
	}

	s.appendMu.Lock()
	defer s.appendMu.Unlock()

	_, err := s.db.Exec(
		`INSERT INTO transfers (`+transferColumns+`
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		transfer.Token,
		transfer.ArchiveName,
		transfer.ArchivePath,
		transfer.ArtifactName,
		transfer.ArtifactPath,
		transfer.Link,
		nullString(transfer.Contact),
		transfer.FileCount,
		transfer.FailedCount,
		transfer.ArchiveSize,
		transfer.Checksum,
		transfer.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert transfer %q: %w", transfer.Token, ErrDuplicateToken)
		}
		return fmt.Errorf("insert transfer %q: %w", transfer.Token, err)
	}

	return nil
}

// GetTransfer fetches one transfer by token.
func (s *Store) GetTransfer(token string) (*Transfer, error) {
	if token == "" {
		return nil, errors.New("token is required")
	}

	row := s.db.QueryRow(
		`SELECT`+transferColumns+`
		FROM transfers
		WHERE token = ?`,
		token,
	)

	transfer, err := scanTransfer(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get transfer %q: %w", token, err)
	}

	return transfer, nil
}

// ListTransfers returns transfers newest first. A limit <= 0 returns every row.
func (s *Store) ListTransfers(limit, offset int) ([]Transfer, error) {
	if limit <= 0 {
		limit = -1
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.db.Query(
		`SELECT`+transferColumns+`
		FROM transfers
		ORDER BY created_at DESC, rowid DESC
		LIMIT ? OFFSET ?`,
		limit,
		offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list transfers: %w", err)
	}
	defer rows.Close()

	transfers := make([]Transfer, 0)
	for rows.Next() {
		transfer, err := scanTransfer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transfer row: %w", err)
		}
		transfers = append(transfers, *transfer)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transfer rows: %w", err)
	}

	return transfers, nil
}

// CountTransfers returns the number of recorded transfers.
func (s *Store) CountTransfers() (int, error) {
	var count int
	if err := s.db.QueryRow(`SELECT COUNT(1) FROM transfers`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count transfers: %w", err)
	}
	return count, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTransfer(row scanner) (*Transfer, error) {
	var (
		transfer Transfer
		contact  sql.NullString
	)

	if err := row.Scan(
		&transfer.Token,
		&transfer.ArchiveName,
		&transfer.ArchivePath,
		&transfer.ArtifactName,
		&transfer.ArtifactPath,
		&transfer.Link,
		&contact,
		&transfer.FileCount,
		&transfer.FailedCount,
		&transfer.ArchiveSize,
		&transfer.Checksum,
		&transfer.CreatedAt,
	); err != nil {
		return nil, err
	}

	transfer.Contact = stringPtr(contact)
	return &transfer, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey ||
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}
