package transfer

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/require"

	"dropsort/token"
)

// fixedJobIssuer hands out the same job id every time.
type fixedJobIssuer struct {
	token.UUIDIssuer
	jobID string
}

func (i fixedJobIssuer) IssueJobID() string { return i.jobID }

func writeDuplicateZip(t *testing.T, p string) {
	t.Helper()

	f, err := os.Create(p)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for range 2 {
		w, err := zw.Create("images/a.png")
		require.NoError(t, err)
		_, err = w.Write([]byte("png"))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
}

func TestExtractCreatedTransfer(t *testing.T) {
	svc := newTestService(t, ServiceOptions{PublicBaseURL: "http://localhost:5001"})
	descriptor, err := svc.CreateTransfer(context.Background(), writeSources(t, "a.png", "report.pdf"), nil)
	require.NoError(t, err)

	for _, ref := range []string{descriptor.ArchiveRef, descriptor.Link, filepath.Join(svc.UploadDir(), descriptor.ArchiveRef)} {
		extraction, err := svc.Extract(context.Background(), ref)
		require.NoError(t, err, ref)
		require.Equal(t, []string{"documents/report.pdf", "images/a.png"}, extraction.Files)
		require.True(t, strings.HasPrefix(filepath.Base(extraction.OutputDir), descriptor.ArchiveRef+"_extracted_"))

		raw, err := os.ReadFile(filepath.Join(extraction.OutputDir, "images", "a.png"))
		require.NoError(t, err)
		require.Equal(t, "content of a.png", string(raw))
	}
}

func TestExtractMissingArchive(t *testing.T) {
	svc := newTestService(t, ServiceOptions{})

	_, err := svc.Extract(context.Background(), "transfer_000000000000.zip")
	require.ErrorIs(t, err, ErrArchiveNotFound)
	require.Equal(t, KindInput, KindOf(err))

	_, err = svc.Extract(context.Background(), "")
	require.ErrorIs(t, err, ErrEmptyInput)
}

func TestExtractCorruptArchive(t *testing.T) {
	svc := newTestService(t, ServiceOptions{})
	require.NoError(t, os.MkdirAll(svc.UploadDir(), 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(svc.UploadDir(), "broken.zip"), []byte("not a zip"), 0o600))

	_, err := svc.Extract(context.Background(), "broken.zip")
	require.ErrorIs(t, err, ErrCorruptArchive)
	require.Equal(t, KindPermanent, KindOf(err))
}

func TestExtractDuplicateEntriesFailOnce(t *testing.T) {
	svc := newTestService(t, ServiceOptions{})
	require.NoError(t, os.MkdirAll(svc.UploadDir(), 0o700))
	writeDuplicateZip(t, filepath.Join(svc.UploadDir(), "dup.zip"))

	_, err := svc.Extract(context.Background(), "dup.zip")
	require.ErrorIs(t, err, ErrCorruptArchive)
	require.NotErrorIs(t, err, ErrStaging)
	require.Equal(t, KindPermanent, KindOf(err))

	leftovers, err := filepath.Glob(filepath.Join(svc.UploadDir(), "dup.zip_extracted_*"))
	require.NoError(t, err)
	require.Empty(t, leftovers)
}

func TestExtractOutputDirectoryExhausted(t *testing.T) {
	svc := newTestService(t, ServiceOptions{Issuer: fixedJobIssuer{jobID: "job1"}})
	descriptor, err := svc.CreateTransfer(context.Background(), writeSources(t, "a.png"), nil)
	require.NoError(t, err)

	first, err := svc.Extract(context.Background(), descriptor.ArchiveRef)
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(first.OutputDir, "_extracted_job1"))

	_, err = svc.Extract(context.Background(), descriptor.ArchiveRef)
	require.ErrorIs(t, err, ErrStaging)
	require.NotErrorIs(t, err, ErrCorruptArchive)
	require.Equal(t, KindTransient, KindOf(err))
	require.FileExists(t, filepath.Join(first.OutputDir, "images", "a.png"))
}

func TestExtractRelativeLocalPath(t *testing.T) {
	svc := newTestService(t, ServiceOptions{})
	descriptor, err := svc.CreateTransfer(context.Background(), writeSources(t, "a.png"), nil)
	require.NoError(t, err)

	dir := t.TempDir()
	raw, err := os.ReadFile(filepath.Join(svc.UploadDir(), descriptor.ArchiveRef))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bundle.zip"), raw, 0o600))
	t.Chdir(dir)

	extraction, err := svc.Extract(context.Background(), "./bundle.zip")
	require.NoError(t, err)
	require.Equal(t, []string{"images/a.png"}, extraction.Files)
	require.Equal(t, dir, filepath.Dir(extraction.OutputDir))
}

func TestResolveArchive(t *testing.T) {
	svc := newTestService(t, ServiceOptions{UploadDir: "/srv/uploads"})

	require.Equal(t, "/srv/uploads/transfer_x.zip", svc.ResolveArchive("transfer_x.zip"))
	require.Equal(t, "/srv/uploads/transfer_x.zip", svc.ResolveArchive("/download/transfer_x.zip"))
	require.Equal(t, "/srv/uploads/transfer_x.zip", svc.ResolveArchive("http://host/download/transfer_x.zip"))
	require.Equal(t, "/srv/uploads/transfer_x.zip", svc.ResolveArchive("../../transfer_x.zip"))
	require.Equal(t, "/elsewhere/a.zip", svc.ResolveArchive("/elsewhere/a.zip"))

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "transfer_x.zip"), []byte("zip"), 0o600))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "folder.zip"), 0o700))
	t.Chdir(dir)

	require.Equal(t, filepath.Join(dir, "transfer_x.zip"), svc.ResolveArchive("transfer_x.zip"))
	require.Equal(t, filepath.Join(dir, "transfer_x.zip"), svc.ResolveArchive("./transfer_x.zip"))
	require.Equal(t, "/srv/uploads/transfer_x.zip", svc.ResolveArchive("/download/transfer_x.zip"))
	require.Equal(t, "/srv/uploads/folder.zip", svc.ResolveArchive("folder.zip"))
}

func TestOrganizeDoesNotRecordTransfer(t *testing.T) {
	svc := newTestService(t, ServiceOptions{})
	refs := writeSources(t, "clip.mov", "main.py")
	refs = append(refs, refs[0])

	organized, err := svc.Organize(context.Background(), refs)
	require.NoError(t, err)
	require.Equal(t, []string{"codes/main.py", "videos/clip.mov"}, organized.Members)
	require.Len(t, organized.Failed, 1)
	require.True(t, strings.HasPrefix(organized.ArchiveRef, "organized_"))
	require.FileExists(t, organized.ArchivePath)
	require.Equal(t, svc.UploadDir(), filepath.Dir(organized.ArchivePath))

	transfers, err := svc.List(0, 0)
	require.NoError(t, err)
	require.Empty(t, transfers)

	_, err = svc.Organize(context.Background(), nil)
	require.ErrorIs(t, err, ErrEmptyInput)
}

func TestKindOf(t *testing.T) {
	require.Equal(t, KindNone, KindOf(nil))
	require.Equal(t, KindTransient, KindOf(ErrStaging))
	require.Equal(t, KindUnknown, KindOf(os.ErrPermission))
}
