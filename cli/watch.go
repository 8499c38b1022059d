package cli

import (
	"context"
	"os"
	"time"

	"github.com/spf13/cobra"

	"dropsort/intake"
	"dropsort/watch"
)

func NewWatchCommand() *cobra.Command {
	var (
		contact  string
		debounce time.Duration
	)

	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Turn files dropped into a folder into transfers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			w, err := watch.New(watch.Config{
				Dir:      args[0],
				Debounce: debounce,
				Filter:   intake.Allowed,
				Logger:   a.logger,
			})
			if err != nil {
				return err
			}

			var contactPtr *string
			if cmd.Flags().Changed("email") {
				contactPtr = &contact
			}

			submit := func(ctx context.Context, paths []string) error {
				result, err := intake.Admit(ctx, a.cfg.UploadDir, paths)
				if err != nil {
					return err
				}
				descriptor, err := a.service.CreateTransfer(ctx, result.Admitted, contactPtr)
				if err != nil {
					return err
				}
				printDescriptor(cmd.OutOrStdout(), descriptor)

				rejected := make(map[string]struct{}, len(result.Rejected))
				for _, r := range result.Rejected {
					rejected[r.Ref.Path] = struct{}{}
				}
				for _, p := range paths {
					if _, skip := rejected[p]; skip {
						continue
					}
					if err := os.Remove(p); err != nil {
						a.logger.Warn().Err(err).Str("file", p).Msg("remove dropped file")
					}
				}
				return nil
			}

			a.logger.Info().Str("dir", args[0]).Msg("watching drop folder")
			return w.Run(cmd.Context(), submit)
		},
	}

	cmd.Flags().StringVar(&contact, "email", "", "Contact address recorded with each transfer")
	cmd.Flags().DurationVar(&debounce, "debounce", watch.DefaultDebounce, "Quiet period before a batch is submitted")

	return cmd
}
