package transfer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"dropsort/archive"
	"dropsort/models"
)

// Extract expands an archive into a new directory beside it. archiveRef is a
// local path, a stored archive name, or a download link. Only a taken output
// directory is retried; a corrupt archive fails on the first attempt.
func (s *Service) Extract(ctx context.Context, archiveRef string) (*models.Extraction, error) {
	if strings.TrimSpace(archiveRef) == "" {
		return nil, ErrEmptyInput
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	archivePath := s.ResolveArchive(archiveRef)
	for attempt := 0; attempt < s.options.MaxAttempts; attempt++ {
		outputDir := archivePath + "_extracted_" + s.options.Issuer.IssueJobID()

		files, err := archive.Extract(archivePath, outputDir)
		if errors.Is(err, archive.ErrOutputExists) {
			s.options.Logger.Debug().Str("output", outputDir).Msg("extraction directory taken, retrying")
			continue
		}
		if err != nil {
			return nil, err
		}

		s.options.Logger.Info().Str("archive", archivePath).Str("output", outputDir).Int("files", len(files)).Msg("archive extracted")
		return &models.Extraction{OutputDir: outputDir, Files: files}, nil
	}

	return nil, fmt.Errorf("%w: no free output directory for %s after %d attempts", ErrStaging, archivePath, s.options.MaxAttempts)
}

// ResolveArchive maps an archive reference to a filesystem path. Absolute
// paths and relative paths naming an existing file are used as given. Links,
// URLs and unknown relative names resolve by base name under the upload
// directory.
func (s *Service) ResolveArchive(archiveRef string) string {
	ref := strings.TrimSpace(archiveRef)
	if strings.Contains(ref, "://") || strings.HasPrefix(ref, downloadPrefix) {
		return s.storedArchive(ref)
	}
	if filepath.IsAbs(ref) {
		return ref
	}
	if info, err := os.Stat(ref); err == nil && !info.IsDir() {
		if abs, err := filepath.Abs(ref); err == nil {
			return abs
		}
		return ref
	}
	return s.storedArchive(ref)
}

func (s *Service) storedArchive(ref string) string {
	return filepath.Join(s.options.UploadDir, filepath.Base(filepath.FromSlash(ref)))
}

// Organize builds a categorized archive without recording a transfer.
func (s *Service) Organize(ctx context.Context, refs []models.FileRef) (*models.Organized, error) {
	if len(refs) == 0 {
		return nil, ErrEmptyInput
	}
	if err := os.MkdirAll(s.options.UploadDir, 0o700); err != nil {
		return nil, fmt.Errorf("%w: create upload directory: %w", ErrStaging, err)
	}

	for attempt := 0; attempt < s.options.MaxAttempts; attempt++ {
		target := filepath.Join(s.options.UploadDir, "organized_"+s.options.Issuer.IssueJobID())
		archivePath := target + ".zip"
		if err := os.Mkdir(target, 0o700); err != nil {
			if errors.Is(err, fs.ErrExist) {
				continue
			}
			return nil, fmt.Errorf("%w: create organize directory: %w", ErrStaging, err)
		}
		if _, err := os.Lstat(archivePath); err == nil {
			_ = os.Remove(target)
			continue
		}

		result, err := archive.Build(ctx, refs, target, archivePath)
		if err != nil {
			_ = os.RemoveAll(target)
			return nil, err
		}

		s.options.Logger.Info().Str("archive", archivePath).Int("files", len(result.Members)).Int("failed", len(result.Failed)).Msg("files organized")
		return &models.Organized{
			ArchivePath: archivePath,
			ArchiveRef:  filepath.Base(archivePath),
			Members:     result.Members,
			Failed:      result.Failed,
		}, nil
	}

	return nil, fmt.Errorf("%w: no free organize directory after %d attempts", ErrStaging, s.options.MaxAttempts)
}
