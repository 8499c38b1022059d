package archive

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/klauspost/compress/zip"
)

// Extract expands archivePath into outputDir, which must not exist yet.
// It returns the slash-separated paths of the extracted files. An outputDir that
// is already present yields ErrOutputExists; entries that collide with each
// other yield ErrCorruptArchive. On failure the output directory is removed.
func Extract(archivePath, outputDir string) (files []string, err error) {
	zr, err := openArchive(archivePath)
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	if err := os.MkdirAll(filepath.Dir(outputDir), 0o700); err != nil {
		return nil, fmt.Errorf("create extraction parent: %w", err)
	}
	if err := os.Mkdir(outputDir, 0o700); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil, fmt.Errorf("%w: %s", ErrOutputExists, outputDir)
		}
		return nil, fmt.Errorf("create extraction directory %q: %w", outputDir, err)
	}
	defer func() {
		if err != nil {
			_ = os.RemoveAll(outputDir)
		}
	}()

	files = make([]string, 0, len(zr.File))
	for _, entry := range zr.File {
		target, err := entryTarget(outputDir, entry.Name)
		if err != nil {
			return nil, err
		}

		if strings.HasSuffix(entry.Name, "/") || entry.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o700); err != nil {
				return nil, entryConflict(entry.Name, err)
			}
			continue
		}
		if !entry.Mode().IsRegular() {
			continue
		}

		if err := extractEntry(entry, target); err != nil {
			return nil, err
		}
		files = append(files, filepath.ToSlash(strings.TrimPrefix(entry.Name, "./")))
	}

	sort.Strings(files)
	return files, nil
}

// Members lists the file entries of an archive in sorted order.
func Members(archivePath string) ([]string, error) {
	zr, err := openArchive(archivePath)
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	names := make([]string, 0, len(zr.File))
	for _, entry := range zr.File {
		if strings.HasSuffix(entry.Name, "/") || entry.FileInfo().IsDir() {
			continue
		}
		names = append(names, entry.Name)
	}
	sort.Strings(names)
	return names, nil
}

func openArchive(archivePath string) (*zip.ReadCloser, error) {
	info, err := os.Stat(archivePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrArchiveNotFound, archivePath)
		}
		return nil, fmt.Errorf("stat archive: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrArchiveNotFound, archivePath)
	}

	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCorruptArchive, archivePath, err)
	}
	return zr, nil
}

func entryTarget(outputDir, name string) (string, error) {
	if name == "" || strings.Contains(name, "\\") || strings.HasPrefix(name, "/") || filepath.IsAbs(name) {
		return "", fmt.Errorf("%w: unsafe entry name %q", ErrCorruptArchive, name)
	}
	target := filepath.Join(outputDir, filepath.FromSlash(name))
	rel, err := filepath.Rel(outputDir, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: entry %q escapes output directory", ErrCorruptArchive, name)
	}
	return target, nil
}

func extractEntry(entry *zip.File, target string) (err error) {
	if err := os.MkdirAll(filepath.Dir(target), 0o700); err != nil {
		return entryConflict(entry.Name, err)
	}

	rc, err := entry.Open()
	if err != nil {
		return fmt.Errorf("%w: open entry %s: %w", ErrCorruptArchive, entry.Name, err)
	}
	defer rc.Close()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return entryConflict(entry.Name, err)
	}
	defer func() {
		if closeErr := out.Close(); err == nil && closeErr != nil {
			err = fmt.Errorf("close %s: %w", entry.Name, closeErr)
		}
	}()

	if _, err := io.Copy(out, rc); err != nil {
		if errors.Is(err, zip.ErrChecksum) || errors.Is(err, zip.ErrFormat) || errors.Is(err, io.ErrUnexpectedEOF) {
			return fmt.Errorf("%w: read entry %s: %w", ErrCorruptArchive, entry.Name, err)
		}
		return fmt.Errorf("write %s: %w", entry.Name, err)
	}
	return nil
}

// entryConflict classifies a failure to create an entry's path. The output
// directory starts empty, so anything already occupying the path came from an
// earlier entry of the same archive.
func entryConflict(name string, err error) error {
	if errors.Is(err, fs.ErrExist) || errors.Is(err, syscall.ENOTDIR) {
		return fmt.Errorf("%w: duplicate or conflicting entry %s", ErrCorruptArchive, name)
	}
	return fmt.Errorf("create %s: %w", name, err)
}
