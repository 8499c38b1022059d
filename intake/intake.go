// Package intake admits local files into the upload directory under unique,
// sanitized names.
package intake

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/gosimple/slug"

	"dropsort/classify"
	"dropsort/models"
)

const (
	prefixLength    = 8
	prefixSeparator = "__"
	maxNameAttempts = 3
	fallbackStem    = "file"
)

var (
	// ErrNothingAdmitted means no file in the batch was saved.
	ErrNothingAdmitted = errors.New("intake: no files admitted")
	// ErrDisallowedExtension rejects a file whose extension is not on the allow list.
	ErrDisallowedExtension = errors.New("intake: extension not allowed")
)

var allowedExtensions = map[string]struct{}{
	"png": {}, "jpg": {}, "jpeg": {}, "gif": {},
	"mp4": {}, "mov": {},
	"pdf": {}, "docx": {}, "pptx": {}, "txt": {},
	"py": {}, "js": {}, "java": {}, "c": {}, "cpp": {}, "html": {}, "css": {},
	"zip": {}, "rar": {}, "csv": {}, "xlsx": {},
}

// Result lists saved files and per-file rejections.
type Result struct {
	Admitted []models.FileRef    `json:"admitted" yaml:"admitted"`
	Rejected []models.FailedFile `json:"rejected" yaml:"rejected"`
}

// Allowed reports whether name carries an admissible extension.
func Allowed(name string) bool {
	if !strings.Contains(name, ".") {
		return false
	}
	_, ok := allowedExtensions[classify.Extension(name)]
	return ok
}

// SafeName slugifies the stem of name and keeps its lowercased extension.
func SafeName(name string) string {
	base := filepath.Base(name)
	ext := filepath.Ext(base)
	stem := slug.Make(strings.TrimSuffix(base, ext))
	if stem == "" {
		stem = fallbackStem
	}
	return stem + strings.ToLower(ext)
}

// Admit copies each path into uploadDir as <8 hex>__<safe name>. Rejected
// files are reported and do not stop the batch.
func Admit(ctx context.Context, uploadDir string, paths []string) (*Result, error) {
	if err := os.MkdirAll(uploadDir, 0o700); err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}

	result := &Result{
		Admitted: make([]models.FileRef, 0, len(paths)),
		Rejected: make([]models.FailedFile, 0),
	}
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		ref := models.NewFileRef(p)
		stored, err := admitOne(uploadDir, p)
		if err != nil {
			result.Rejected = append(result.Rejected, models.FailedFile{Ref: ref, Reason: err.Error(), Err: err})
			continue
		}
		result.Admitted = append(result.Admitted, models.NewFileRef(stored))
	}

	if len(result.Admitted) == 0 {
		return result, ErrNothingAdmitted
	}
	return result, nil
}

func admitOne(uploadDir, src string) (string, error) {
	name := filepath.Base(src)
	if !Allowed(name) {
		return "", fmt.Errorf("%w: %s", ErrDisallowedExtension, name)
	}

	in, err := os.Open(src)
	if err != nil {
		return "", fmt.Errorf("open source: %w", err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return "", fmt.Errorf("stat source: %w", err)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("source %q is not a regular file", src)
	}

	safe := SafeName(name)
	for attempt := 0; attempt < maxNameAttempts; attempt++ {
		dst := filepath.Join(uploadDir, uniquePrefix()+prefixSeparator+safe)
		out, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("create stored file: %w", err)
		}

		_, copyErr := io.Copy(out, in)
		closeErr := out.Close()
		if copyErr != nil || closeErr != nil {
			_ = os.Remove(dst)
			return "", fmt.Errorf("save file: %w", errors.Join(copyErr, closeErr))
		}
		return dst, nil
	}

	return "", fmt.Errorf("no free stored name for %s", safe)
}

func uniquePrefix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:prefixLength]
}
