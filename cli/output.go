package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"dropsort/models"
)

const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

func validateFormat(format string) error {
	switch format {
	case formatText, formatJSON, formatYAML:
		return nil
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

// render writes v in the selected format. text handles the default format.
func render(cmd *cobra.Command, v any, text func(w io.Writer)) error {
	format, _ := cmd.Flags().GetString("output")
	w := cmd.OutOrStdout()

	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		text(w)
		return nil
	}
}

func printFailed(w io.Writer, failed []models.FailedFile) {
	if len(failed) == 0 {
		return
	}
	fmt.Fprintf(w, "Failed:          %d\n", len(failed))
	for _, f := range failed {
		fmt.Fprintf(w, "  - %s: %s\n", f.Ref.Path, f.Reason)
	}
}

func printMembers(w io.Writer, members []string) {
	fmt.Fprintf(w, "Files:           %d\n", len(members))
	for _, m := range members {
		fmt.Fprintf(w, "  %s\n", m)
	}
}

func printDescriptor(w io.Writer, d *models.Descriptor) {
	fmt.Fprintf(w, "Token:           %s\n", d.Token)
	fmt.Fprintf(w, "Link:            %s\n", d.Link)
	fmt.Fprintf(w, "QR Code:         %s\n", d.ArtifactRef)
	fmt.Fprintf(w, "Archive:         %s\n", d.ArchiveRef)
	printMembers(w, d.Members)
	printFailed(w, d.Failed)
	if d.Scan != nil {
		fmt.Fprintf(w, "Scan:            %d clean, %d flagged\n", d.Scan.Clean, d.Scan.Infected)
	}
}

func printTransfer(w io.Writer, t *models.Transfer) {
	fmt.Fprintf(w, "Token:           %s\n", t.Token)
	fmt.Fprintf(w, "Created:         %s\n", t.CreatedAt.Local().Format(time.DateTime))
	fmt.Fprintf(w, "Link:            %s\n", t.Link)
	fmt.Fprintf(w, "QR Code:         %s\n", t.ArtifactRef)
	fmt.Fprintf(w, "Archive:         %s (%d bytes)\n", t.ArchiveRef, t.ArchiveSize)
	fmt.Fprintf(w, "Files:           %d stored, %d failed\n", t.FileCount, t.FailedCount)
	fmt.Fprintf(w, "Checksum:        %s\n", t.Checksum)
	if t.Contact != "" {
		fmt.Fprintf(w, "Contact:         %s\n", t.Contact)
	}
}
