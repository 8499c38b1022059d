// Package archive stages classified files and packs them into zip archives.
package archive

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/klauspost/compress/zip"
	"golang.org/x/crypto/blake2b"

	"dropsort/classify"
	"dropsort/models"
)

var (
	// ErrStaging means the staging area could not be prepared or the run was
	// interrupted. Nothing is produced.
	ErrStaging = errors.New("archive: staging failed")
	// ErrArchiveNotFound means the archive reference does not resolve to a file.
	ErrArchiveNotFound = errors.New("archive: not found")
	// ErrCorruptArchive means the container could not be decoded.
	ErrCorruptArchive = errors.New("archive: corrupt archive")
	// ErrOutputExists means the extraction directory is already taken.
	ErrOutputExists = errors.New("archive: output directory exists")
	// ErrNameCollision means an earlier file already claimed the same member path.
	ErrNameCollision = errors.New("archive: member name already staged")
	// ErrInvalidName means the file name cannot be used as a member name.
	ErrInvalidName = errors.New("archive: invalid file name")
)

// Result describes a built archive.
type Result struct {
	ArchivePath string
	Members     []string
	Failed      []models.FailedFile
	Size        int64
	Checksum    string
}

// Build copies each file into stagingDir/<category>/<name> and zips the whole
// staging tree into archivePath. Per-file copy failures are collected in
// Result.Failed and never abort the batch. An empty batch still yields an
// empty archive. A cancelled or failed archive write returns ErrStaging and
// removes the staging tree.
func Build(ctx context.Context, refs []models.FileRef, stagingDir, archivePath string) (*Result, error) {
	if err := os.MkdirAll(stagingDir, 0o700); err != nil {
		return nil, fmt.Errorf("%w: create staging directory %q: %w", ErrStaging, stagingDir, err)
	}

	failed := make([]models.FailedFile, 0)
	staged := make(map[string]struct{}, len(refs))
	for _, ref := range refs {
		if err := ctx.Err(); err != nil {
			discard(stagingDir, "")
			return nil, fmt.Errorf("%w: %w", ErrStaging, err)
		}

		member, err := stageOne(ref, stagingDir, staged)
		if err != nil {
			failed = append(failed, models.FailedFile{Ref: ref, Reason: err.Error(), Err: err})
			continue
		}
		staged[member] = struct{}{}
	}

	members, size, checksum, err := writeArchive(ctx, stagingDir, archivePath)
	if err != nil {
		discard(stagingDir, archivePath)
		if errors.Is(err, ErrStaging) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrStaging, err)
	}

	return &Result{
		ArchivePath: archivePath,
		Members:     members,
		Failed:      failed,
		Size:        size,
		Checksum:    checksum,
	}, nil
}

func stageOne(ref models.FileRef, stagingDir string, staged map[string]struct{}) (string, error) {
	name := ref.Filename()
	if name == "." || name == ".." || name == string(filepath.Separator) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, ref.Path)
	}

	category := classify.Classify(name)
	member := path.Join(string(category), name)
	if _, exists := staged[member]; exists {
		return "", fmt.Errorf("%w: %s", ErrNameCollision, member)
	}

	categoryDir := filepath.Join(stagingDir, string(category))
	if err := os.MkdirAll(categoryDir, 0o700); err != nil {
		return "", fmt.Errorf("create category directory %q: %w", categoryDir, err)
	}
	if err := copyFile(ref.Path, filepath.Join(categoryDir, name)); err != nil {
		return "", err
	}

	return member, nil
}

func copyFile(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("source %q is not a regular file", src)
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("create staged copy: %w", err)
	}
	defer func() {
		if closeErr := out.Close(); err == nil && closeErr != nil {
			err = fmt.Errorf("close staged copy: %w", closeErr)
		}
		if err != nil {
			_ = os.Remove(dst)
		}
	}()

	if _, err = io.Copy(out, in); err != nil {
		return fmt.Errorf("copy file: %w", err)
	}
	modTime := info.ModTime()
	_ = os.Chtimes(dst, modTime, modTime)

	return nil
}

// writeArchive zips root into a temp file beside archivePath and renames it
// into place. Entries are walked in lexical order.
func writeArchive(ctx context.Context, root, archivePath string) (members []string, size int64, checksum string, err error) {
	if err := os.MkdirAll(filepath.Dir(archivePath), 0o700); err != nil {
		return nil, 0, "", fmt.Errorf("%w: create archive directory: %w", ErrStaging, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(archivePath), ".archive-*.tmp")
	if err != nil {
		return nil, 0, "", fmt.Errorf("%w: create archive file: %w", ErrStaging, err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	hasher := newHasher()
	zw := zip.NewWriter(io.MultiWriter(tmp, hasher))
	members = make([]string, 0)

	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)
		if err := addEntry(zw, p, name); err != nil {
			return fmt.Errorf("add %s: %w", name, err)
		}
		members = append(members, name)
		return nil
	})
	if err != nil {
		return nil, 0, "", fmt.Errorf("write archive: %w", err)
	}
	if err = zw.Close(); err != nil {
		return nil, 0, "", fmt.Errorf("finish archive: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return nil, 0, "", fmt.Errorf("close archive: %w", err)
	}
	if err = os.Rename(tmpPath, archivePath); err != nil {
		return nil, 0, "", fmt.Errorf("publish archive: %w", err)
	}

	info, err := os.Stat(archivePath)
	if err != nil {
		return nil, 0, "", fmt.Errorf("stat archive: %w", err)
	}

	return members, info.Size(), hex.EncodeToString(hasher.Sum(nil)), nil
}

func addEntry(zw *zip.Writer, src, name string) error {
	f, err := os.Open(src)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	header.Name = name
	header.Method = zip.Deflate

	w, err := zw.CreateHeader(header)
	if err != nil {
		return err
	}
	_, err = io.Copy(w, f)
	return err
}

// Checksum returns the BLAKE2b-256 hex digest of the file at p.
func Checksum(p string) (string, error) {
	f, err := os.Open(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrArchiveNotFound, p)
		}
		return "", fmt.Errorf("open archive: %w", err)
	}
	defer f.Close()

	hasher := newHasher()
	if _, err := io.Copy(hasher, f); err != nil {
		return "", fmt.Errorf("hash archive: %w", err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

func newHasher() hash.Hash {
	// New256 only fails for keys longer than 64 bytes.
	h, _ := blake2b.New256(nil)
	return h
}

func discard(stagingDir, archivePath string) {
	if stagingDir != "" {
		_ = os.RemoveAll(stagingDir)
	}
	if archivePath != "" {
		_ = os.Remove(archivePath)
	}
}
