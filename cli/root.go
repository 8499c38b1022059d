package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"dropsort/intake"
	"dropsort/transfer"
)

// Version is reported by the server health endpoint.
var Version = "dev"

// NewRootCommand builds the dropsort command tree.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "dropsort",
		Short: "Sort files into categorized archives and share them by token",
		Long: `dropsort classifies files by extension, packs them into a categorized zip archive,
and records each archive under a short token with a download link and QR code.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			} else {
				zerolog.SetGlobalLevel(zerolog.InfoLevel)
			}

			format, _ := cmd.Flags().GetString("output")
			return validateFormat(format)
		},
	}

	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringP("output", "o", formatText, "Output format: text, json or yaml")
	rootCmd.PersistentFlags().String("data-dir", "", "Override the data directory")

	rootCmd.AddCommand(NewUploadCommand())
	rootCmd.AddCommand(NewTransferCommand())
	rootCmd.AddCommand(NewOrganizeCommand())
	rootCmd.AddCommand(NewExtractCommand())
	rootCmd.AddCommand(NewScanCommand())
	rootCmd.AddCommand(NewListCommand())
	rootCmd.AddCommand(NewShowCommand())
	rootCmd.AddCommand(NewExportCommand())
	rootCmd.AddCommand(NewServeCommand())
	rootCmd.AddCommand(NewWatchCommand())
	rootCmd.AddCommand(NewPeersCommand())

	return rootCmd
}

// Execute runs the root command
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := NewRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(exitCode(err))
	}
}

// exitCode distinguishes bad input from failures worth retrying.
func exitCode(err error) int {
	if errors.Is(err, intake.ErrNothingAdmitted) {
		return 2
	}
	switch transfer.KindOf(err) {
	case transfer.KindNone:
		return 0
	case transfer.KindInput:
		return 2
	case transfer.KindTransient:
		return 3
	case transfer.KindPermanent:
		return 4
	default:
		return 1
	}
}
