// Package transfer turns file sets into categorized, token-addressed archives
// recorded in the transfer ledger.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"dropsort/archive"
	"dropsort/linkart"
	"dropsort/models"
	"dropsort/scan"
	"dropsort/storage"
	"dropsort/token"
)

const (
	defaultMaxAttempts = 3

	transfersDirName = "transfers"
	downloadPrefix   = "/download/"
	filesPrefix      = "/files/"
)

// errTokenInUse marks an attempt whose token already owns storage on disk.
var errTokenInUse = errors.New("transfer: token already in use")

// Ledger is the append-only transfer record store.
type Ledger interface {
	AppendTransfer(transfer storage.Transfer) error
	GetTransfer(token string) (*storage.Transfer, error)
	ListTransfers(limit, offset int) ([]storage.Transfer, error)
	CountTransfers() (int, error)
}

// ServiceOptions configures a Service.
type ServiceOptions struct {
	Ledger    Ledger
	UploadDir string

	// PublicBaseURL prefixes download and artifact links; empty keeps them relative.
	PublicBaseURL string
	MaxAttempts   int

	Issuer   token.Issuer
	Renderer linkart.Renderer
	// Scanner runs before staging and only reports.
	Scanner scan.Scanner
	Logger  zerolog.Logger
	Now     func() time.Time
}

// Service composes classification, archiving, token issuance and the ledger.
// It is safe for concurrent use.
type Service struct {
	options ServiceOptions
}

// NewService validates options and fills defaults.
func NewService(options ServiceOptions) (*Service, error) {
	if options.Ledger == nil {
		return nil, errors.New("ledger is required")
	}
	if options.UploadDir == "" {
		return nil, errors.New("upload directory is required")
	}
	if options.MaxAttempts <= 0 {
		options.MaxAttempts = defaultMaxAttempts
	}
	if options.Issuer == nil {
		options.Issuer = token.UUIDIssuer{}
	}
	if options.Renderer == nil {
		options.Renderer = linkart.NewQRRenderer(linkart.DefaultSize)
	}
	if options.Now == nil {
		options.Now = time.Now
	}
	options.PublicBaseURL = strings.TrimRight(options.PublicBaseURL, "/")

	return &Service{options: options}, nil
}

// UploadDir returns the directory archives and artifacts are stored under.
func (s *Service) UploadDir() string {
	return s.options.UploadDir
}

// CreateTransfer archives refs under a fresh token, renders the link artifact
// and records the transfer. Files that fail to stage are reported in the
// descriptor and do not fail the call.
func (s *Service) CreateTransfer(ctx context.Context, refs []models.FileRef, contact *string) (*models.Descriptor, error) {
	if len(refs) == 0 {
		return nil, ErrEmptyInput
	}
	contact = normalizeContact(contact)

	report, err := s.scan(ctx, refs)
	if err != nil {
		return nil, err
	}

	logger := s.options.Logger
	for attempt := 1; attempt <= s.options.MaxAttempts; attempt++ {
		tok := s.options.Issuer.IssueToken()

		descriptor, err := s.attempt(ctx, tok, refs, contact)
		if err == nil {
			descriptor.Scan = report
			logger.Info().
				Str("token", tok).
				Int("files", len(descriptor.Members)).
				Int("failed", len(descriptor.Failed)).
				Msg("transfer created")
			for _, failed := range descriptor.Failed {
				logger.Warn().Str("token", tok).Str("file", failed.Ref.Path).Str("reason", failed.Reason).Msg("file not staged")
			}
			return descriptor, nil
		}
		if errors.Is(err, errTokenInUse) || errors.Is(err, storage.ErrDuplicateToken) {
			logger.Warn().Str("token", tok).Int("attempt", attempt).Msg("token collision, issuing a new token")
			continue
		}
		return nil, err
	}

	return nil, fmt.Errorf("%w: token collided on all %d attempts", ErrTransferCreationFailed, s.options.MaxAttempts)
}

type transferPaths struct {
	stagingDir   string
	archiveName  string
	archivePath  string
	artifactName string
	artifactPath string
}

func (s *Service) pathsFor(tok string) transferPaths {
	archiveName := "transfer_" + tok + ".zip"
	artifactName := "qr_" + tok + ".png"
	return transferPaths{
		stagingDir:   filepath.Join(s.options.UploadDir, transfersDirName, tok),
		archiveName:  archiveName,
		archivePath:  filepath.Join(s.options.UploadDir, archiveName),
		artifactName: artifactName,
		artifactPath: filepath.Join(s.options.UploadDir, artifactName),
	}
}

func (s *Service) attempt(ctx context.Context, tok string, refs []models.FileRef, contact *string) (*models.Descriptor, error) {
	paths := s.pathsFor(tok)
	if err := s.claim(paths); err != nil {
		return nil, err
	}

	result, err := archive.Build(ctx, refs, paths.stagingDir, paths.archivePath)
	if err != nil {
		removeAll(paths)
		return nil, err
	}

	link := s.Link(paths.archiveName)
	if err := s.options.Renderer.Render(link, paths.artifactPath); err != nil {
		removeAll(paths)
		return nil, fmt.Errorf("%w: %w", ErrLinkArtifact, err)
	}

	createdAt := s.options.Now()
	record := storage.Transfer{
		Token:        tok,
		ArchiveName:  paths.archiveName,
		ArchivePath:  paths.archivePath,
		ArtifactName: paths.artifactName,
		ArtifactPath: paths.artifactPath,
		Link:         link,
		Contact:      contact,
		FileCount:    len(result.Members),
		FailedCount:  len(result.Failed),
		ArchiveSize:  result.Size,
		Checksum:     result.Checksum,
		CreatedAt:    createdAt.UnixMilli(),
	}
	if err := s.options.Ledger.AppendTransfer(record); err != nil {
		removeAll(paths)
		return nil, fmt.Errorf("record transfer: %w", err)
	}

	return &models.Descriptor{
		Token:       tok,
		Link:        link,
		ArtifactRef: s.ArtifactRef(paths.artifactName),
		ArchiveRef:  paths.archiveName,
		Members:     result.Members,
		Failed:      result.Failed,
		CreatedAt:   time.UnixMilli(record.CreatedAt),
	}, nil
}

// claim takes exclusive ownership of the token's staging directory. The
// directory is kept after success so later claims of the same token fail.
func (s *Service) claim(paths transferPaths) error {
	root := filepath.Dir(paths.stagingDir)
	if err := os.MkdirAll(root, 0o700); err != nil {
		return fmt.Errorf("%w: create transfers directory: %w", ErrStaging, err)
	}
	if err := os.Mkdir(paths.stagingDir, 0o700); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return errTokenInUse
		}
		return fmt.Errorf("%w: create token directory: %w", ErrStaging, err)
	}
	for _, p := range []string{paths.archivePath, paths.artifactPath} {
		if _, err := os.Lstat(p); err == nil {
			_ = os.Remove(paths.stagingDir)
			return errTokenInUse
		}
	}
	return nil
}

func removeAll(paths transferPaths) {
	_ = os.RemoveAll(paths.stagingDir)
	_ = os.Remove(paths.archivePath)
	_ = os.Remove(paths.artifactPath)
}

func (s *Service) scan(ctx context.Context, refs []models.FileRef) (*models.ScanReport, error) {
	if s.options.Scanner == nil {
		return nil, nil
	}
	report, err := s.options.Scanner.Scan(ctx, refs)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		s.options.Logger.Warn().Err(err).Msg("scan failed, continuing without report")
		return nil, nil
	}
	return report, nil
}

// Link builds the canonical download link for a stored archive name.
func (s *Service) Link(archiveName string) string {
	return s.options.PublicBaseURL + downloadPrefix + url.PathEscape(archiveName)
}

// ArtifactRef builds the link under which a stored artifact is served.
func (s *Service) ArtifactRef(artifactName string) string {
	return s.options.PublicBaseURL + filesPrefix + url.PathEscape(artifactName)
}

// Lookup returns the recorded transfer for tok.
func (s *Service) Lookup(tok string) (*models.Transfer, error) {
	if strings.TrimSpace(tok) == "" {
		return nil, ErrEmptyInput
	}
	if !token.ValidToken(tok) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidToken, tok)
	}
	record, err := s.options.Ledger.GetTransfer(tok)
	if err != nil {
		return nil, err
	}
	out := s.toModel(*record)
	return &out, nil
}

// List returns recorded transfers newest first. A limit <= 0 returns all.
func (s *Service) List(limit, offset int) ([]models.Transfer, error) {
	records, err := s.options.Ledger.ListTransfers(limit, offset)
	if err != nil {
		return nil, err
	}
	out := make([]models.Transfer, 0, len(records))
	for _, record := range records {
		out = append(out, s.toModel(record))
	}
	return out, nil
}

// Count returns the number of recorded transfers.
func (s *Service) Count() (int, error) {
	return s.options.Ledger.CountTransfers()
}

func (s *Service) toModel(record storage.Transfer) models.Transfer {
	out := models.Transfer{
		Token:       record.Token,
		Link:        record.Link,
		ArchiveRef:  record.ArchiveName,
		ArtifactRef: s.ArtifactRef(record.ArtifactName),
		FileCount:   record.FileCount,
		FailedCount: record.FailedCount,
		ArchiveSize: record.ArchiveSize,
		Checksum:    record.Checksum,
		CreatedAt:   time.UnixMilli(record.CreatedAt),
	}
	if record.Contact != nil {
		out.Contact = *record.Contact
	}
	return out
}

func normalizeContact(contact *string) *string {
	if contact == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*contact)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
