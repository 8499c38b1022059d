// Package export renders the transfer ledger as a spreadsheet.
package export

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"dropsort/models"
)

// SheetName is the worksheet holding the ledger rows.
const SheetName = "Transfers"

var headers = []string{
	"Token",
	"Created",
	"Archive",
	"Link",
	"Files",
	"Failed",
	"Size (bytes)",
	"Checksum",
	"Contact",
}

// WriteXLSX writes transfers, one row each in the given order, as an XLSX
// workbook to w.
func WriteXLSX(w io.Writer, transfers []models.Transfer) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(SheetName, cell, h); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}

	for i, t := range transfers {
		row := []any{
			t.Token,
			t.CreatedAt.UTC().Format(time.RFC3339),
			t.ArchiveRef,
			t.Link,
			t.FileCount,
			t.FailedCount,
			t.ArchiveSize,
			t.Checksum,
			t.Contact,
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	_ = f.SetColWidth(SheetName, "A", "A", 16)
	_ = f.SetColWidth(SheetName, "B", "B", 22)
	_ = f.SetColWidth(SheetName, "C", "D", 48)
	_ = f.SetColWidth(SheetName, "H", "H", 66)

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("xlsx write: %w", err)
	}
	return nil
}
