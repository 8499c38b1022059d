package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"dropsort/intake"
	"dropsort/models"
	"dropsort/scan"
)

func NewUploadCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upload <file>...",
		Short: "Copy files into the upload directory under unique names",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			result, err := intake.Admit(cmd.Context(), a.cfg.UploadDir, args)
			if result != nil {
				if renderErr := render(cmd, result, func(w io.Writer) {
					fmt.Fprintf(w, "Admitted:        %d\n", len(result.Admitted))
					for _, ref := range result.Admitted {
						fmt.Fprintf(w, "  %s\n", ref.Path)
					}
					printFailed(w, result.Rejected)
				}); renderErr != nil {
					return renderErr
				}
			}
			return err
		},
	}

	return cmd
}

func NewTransferCommand() *cobra.Command {
	var (
		contact string
		admit   bool
	)

	cmd := &cobra.Command{
		Use:   "transfer <file>...",
		Short: "Archive files under a fresh token and record the transfer",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			refs := models.FileRefs(args)
			if admit {
				result, err := intake.Admit(cmd.Context(), a.cfg.UploadDir, args)
				if err != nil {
					return err
				}
				for _, rejected := range result.Rejected {
					a.logger.Warn().Str("file", rejected.Ref.Path).Str("reason", rejected.Reason).Msg("file not admitted")
				}
				refs = result.Admitted
			}

			var contactPtr *string
			if cmd.Flags().Changed("email") {
				contactPtr = &contact
			}

			descriptor, err := a.service.CreateTransfer(cmd.Context(), refs, contactPtr)
			if err != nil {
				return err
			}
			return render(cmd, descriptor, func(w io.Writer) { printDescriptor(w, descriptor) })
		},
	}

	cmd.Flags().StringVar(&contact, "email", "", "Contact address recorded with the transfer")
	cmd.Flags().BoolVar(&admit, "admit", false, "Copy files into the upload directory first")

	return cmd
}

func NewOrganizeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "organize <file>...",
		Short: "Build a categorized archive without recording a transfer",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			organized, err := a.service.Organize(cmd.Context(), models.FileRefs(args))
			if err != nil {
				return err
			}
			return render(cmd, organized, func(w io.Writer) {
				fmt.Fprintf(w, "Archive:         %s\n", organized.ArchivePath)
				fmt.Fprintf(w, "Download:        %s\n", a.service.Link(organized.ArchiveRef))
				printMembers(w, organized.Members)
				printFailed(w, organized.Failed)
			})
		},
	}

	return cmd
}

func NewExtractCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract <archive>",
		Short: "Expand an archive into a new directory beside it",
		Long: `The archive may be a local path, a stored archive name, or a download link.
A relative path that exists is used as given; otherwise its base name is looked up
in the upload directory.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			extraction, err := a.service.Extract(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return render(cmd, extraction, func(w io.Writer) {
				fmt.Fprintf(w, "Extracted to:    %s\n", extraction.OutputDir)
				printMembers(w, extraction.Files)
			})
		},
	}

	return cmd
}

func NewScanCommand() *cobra.Command {
	var mode string

	cmd := &cobra.Command{
		Use:   "scan <file>...",
		Short: "Report a scan verdict for each file",
		Long: `Runs the configured scanner. The "random" scanner is a placeholder that flags files
at random and must not be relied on.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if mode == "" {
				a, err := openApp(cmd)
				if err != nil {
					return err
				}
				mode = a.cfg.Scanner
				a.Close()
			}

			report, err := scan.New(mode).Scan(cmd.Context(), models.FileRefs(args))
			if err != nil {
				return err
			}
			return render(cmd, report, func(w io.Writer) {
				for _, result := range report.Results {
					verdict := "clean"
					if !result.Clean {
						verdict = "flagged"
					}
					fmt.Fprintf(w, "%-8s %s (%s)\n", verdict, result.File, result.Message)
				}
				fmt.Fprintf(w, "Total: %d, clean: %d, flagged: %d\n", report.Total, report.Clean, report.Infected)
			})
		},
	}

	cmd.Flags().StringVar(&mode, "scanner", "", "Scanner to use: none or random (default from config)")

	return cmd
}
