package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"dropsort/models"
)

func TestWriteXLSX(t *testing.T) {
	transfers := []models.Transfer{
		{
			Token:       "abcdef012345",
			ArchiveRef:  "transfer_abcdef012345.zip",
			Link:        "/download/transfer_abcdef012345.zip",
			FileCount:   3,
			FailedCount: 1,
			ArchiveSize: 2048,
			Checksum:    "deadbeef",
			Contact:     "someone@example.com",
			CreatedAt:   time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		},
		{Token: "0123456789ab", CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, transfers))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.Equal(t, headers, rows[0])
	require.Equal(t, []string{
		"abcdef012345",
		"2026-01-02T03:04:05Z",
		"transfer_abcdef012345.zip",
		"/download/transfer_abcdef012345.zip",
		"3",
		"1",
		"2048",
		"deadbeef",
		"someone@example.com",
	}, rows[1])
	require.Equal(t, "0123456789ab", rows[2][0])
}

func TestWriteXLSXEmptyLedger(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, nil))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 1)
}
