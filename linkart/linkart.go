// Package linkart renders scannable artifacts that encode a download link.
package linkart

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	qrcode "github.com/skip2/go-qrcode"
)

// DefaultSize is the PNG edge length used when none is configured.
const DefaultSize = 256

// Renderer writes an artifact encoding link to outputPath.
type Renderer interface {
	Render(link, outputPath string) error
}

// QRRenderer writes PNG QR codes.
type QRRenderer struct {
	Size  int
	Level qrcode.RecoveryLevel
}

// NewQRRenderer returns a renderer with medium error correction.
func NewQRRenderer(size int) *QRRenderer {
	if size <= 0 {
		size = DefaultSize
	}
	return &QRRenderer{Size: size, Level: qrcode.Medium}
}

// Render encodes link as a QR code PNG.
func (r *QRRenderer) Render(link, outputPath string) error {
	if link == "" {
		return errors.New("link is required")
	}
	size := r.Size
	if size <= 0 {
		size = DefaultSize
	}

	png, err := qrcode.Encode(link, r.Level, size)
	if err != nil {
		return fmt.Errorf("encode qr code: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o700); err != nil {
		return fmt.Errorf("create artifact directory: %w", err)
	}
	if err := os.WriteFile(outputPath, png, 0o600); err != nil {
		return fmt.Errorf("write qr code: %w", err)
	}
	return nil
}
