package cli

import (
	"fmt"
	"io"
	"net"
	"time"

	"github.com/spf13/cobra"

	"dropsort/discovery"
	"dropsort/server"
)

func NewServeCommand() *cobra.Command {
	var advertise bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve archives and QR codes over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			ln, err := net.Listen("tcp", a.cfg.ListenAddress())
			if err != nil {
				return fmt.Errorf("listen on %s: %w", a.cfg.ListenAddress(), err)
			}
			port := ln.Addr().(*net.TCPAddr).Port

			if advertise {
				basePath, err := discovery.BasePathFromURL(a.cfg.PublicBaseURL)
				if err != nil {
					a.logger.Warn().Err(err).Msg("advertising root base path")
					basePath = discovery.DefaultBasePath
				}
				advertiser, err := discovery.Advertise(discovery.Config{
					InstanceID:    a.cfg.InstanceID,
					InstanceName:  a.cfg.InstanceName,
					Port:          port,
					BasePath:      basePath,
					ServerVersion: Version,
				})
				if err != nil {
					a.logger.Warn().Err(err).Msg("mDNS advertisement failed")
				} else {
					defer advertiser.Stop()
					a.logger.Debug().Strs("txt", advertiser.Records()).Msg("advertising over mDNS")
				}
			}

			httpApp := server.New(server.Dependencies{
				UploadDir: a.cfg.UploadDir,
				Transfers: a.service,
				Version:   Version,
				Logger:    a.logger,
			})

			a.logger.Info().Int("port", port).Str("upload_dir", a.cfg.UploadDir).Msg("serving transfers")
			return server.Serve(cmd.Context(), httpApp, ln)
		},
	}

	cmd.Flags().BoolVar(&advertise, "advertise", true, "Advertise the server over mDNS")

	return cmd
}

func NewPeersCommand() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "peers",
		Short: "Find other dropsort servers on the local network",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			instances, err := discovery.Browse(cmd.Context(), discovery.Config{
				InstanceID:  a.cfg.InstanceID,
				ScanTimeout: timeout,
			})
			if err != nil {
				return err
			}
			return render(cmd, instances, func(w io.Writer) {
				if len(instances) == 0 {
					fmt.Fprintln(w, "No servers found")
					return
				}
				for _, instance := range instances {
					fmt.Fprintf(w, "%-24s %s\n", instance.Name, instance.URL())
				}
			})
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", discovery.DefaultScanTimeout, "How long to listen for servers")

	return cmd
}
