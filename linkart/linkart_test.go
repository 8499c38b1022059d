package linkart

import (
	"bytes"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func TestQRRendererWritesPNG(t *testing.T) {
	out := filepath.Join(t.TempDir(), "nested", "qr_0123456789ab.png")

	if err := NewQRRenderer(128).Render("/download/transfer_0123456789ab.zip", out); err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	raw, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	if got := img.Bounds().Dx(); got != 128 {
		t.Fatalf("expected 128px wide artifact, got %d", got)
	}
}

func TestQRRendererRejectsEmptyLink(t *testing.T) {
	if err := NewQRRenderer(0).Render("", filepath.Join(t.TempDir(), "qr.png")); err == nil {
		t.Fatalf("expected error for empty link")
	}
}
