package storage

import (
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	dataDir := t.TempDir()
	store, _, err := Open(dataDir)
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Fatalf("close test store: %v", err)
		}
	})

	return store
}

func testTransfer(token string, createdAt int64) Transfer {
	return Transfer{
		Token:        token,
		ArchiveName:  "transfer_" + token + ".zip",
		ArchivePath:  "/tmp/uploads/transfer_" + token + ".zip",
		ArtifactName: "qr_" + token + ".png",
		ArtifactPath: "/tmp/uploads/qr_" + token + ".png",
		Link:         "/download/transfer_" + token + ".zip",
		FileCount:    2,
		FailedCount:  1,
		ArchiveSize:  4096,
		Checksum:     "abc123",
		CreatedAt:    createdAt,
	}
}

func mustAppendTransfer(t *testing.T, store *Store, transfer Transfer) {
	t.Helper()

	if err := store.AppendTransfer(transfer); err != nil {
		t.Fatalf("append transfer %q: %v", transfer.Token, err)
	}
}
