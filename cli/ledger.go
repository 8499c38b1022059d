package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"dropsort/archive"
	"dropsort/export"
	"dropsort/models"
)

func NewListCommand() *cobra.Command {
	var limit, offset int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded transfers, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			transfers, err := a.service.List(limit, offset)
			if err != nil {
				return err
			}
			total, err := a.service.Count()
			if err != nil {
				return err
			}
			return render(cmd, transfers, func(w io.Writer) {
				if len(transfers) == 0 {
					fmt.Fprintln(w, "No transfers recorded")
					return
				}
				for _, t := range transfers {
					fmt.Fprintf(w, "%s  %s  %3d files  %s\n", t.Token, t.CreatedAt.Local().Format(time.DateTime), t.FileCount, t.Link)
				}
				fmt.Fprintf(w, "Showing %d of %d\n", len(transfers), total)
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of transfers (0 for all)")
	cmd.Flags().IntVar(&offset, "offset", 0, "Number of newest transfers to skip")

	return cmd
}

func NewShowCommand() *cobra.Command {
	var members, verify bool

	cmd := &cobra.Command{
		Use:   "show <token>",
		Short: "Show one recorded transfer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			record, err := a.service.Lookup(args[0])
			if err != nil {
				return err
			}

			view := showView{Transfer: record}
			archivePath := a.service.ResolveArchive(record.ArchiveRef)
			if members {
				view.Members, err = archive.Members(archivePath)
				if err != nil {
					return err
				}
			}
			if verify {
				sum, err := archive.Checksum(archivePath)
				if err != nil {
					return err
				}
				ok := sum == record.Checksum
				view.ChecksumOK = &ok
			}

			return render(cmd, view, func(w io.Writer) {
				printTransfer(w, record)
				if view.ChecksumOK != nil {
					fmt.Fprintf(w, "Verified:        %t\n", *view.ChecksumOK)
				}
				if members {
					printMembers(w, view.Members)
				}
			})
		},
	}

	cmd.Flags().BoolVar(&members, "members", false, "List the files inside the archive")
	cmd.Flags().BoolVar(&verify, "verify", false, "Recompute the archive checksum and compare")

	return cmd
}

type showView struct {
	*models.Transfer `yaml:",inline"`

	Members    []string `json:"members,omitempty" yaml:"members,omitempty"`
	ChecksumOK *bool    `json:"checksum_ok,omitempty" yaml:"checksum_ok,omitempty"`
}

func NewExportCommand() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the transfer ledger to an XLSX workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			transfers, err := a.service.List(0, 0)
			if err != nil {
				return err
			}

			if err := os.MkdirAll(filepath.Dir(out), 0o700); err != nil {
				return fmt.Errorf("create export directory: %w", err)
			}
			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("create export file: %w", err)
			}
			if err := export.WriteXLSX(f, transfers); err != nil {
				_ = f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("close export file: %w", err)
			}

			a.logger.Info().Str("file", out).Int("rows", len(transfers)).Msg("ledger exported")
			return nil
		},
	}

	cmd.Flags().StringVar(&out, "out", "transfers.xlsx", "Output workbook path")

	return cmd
}
