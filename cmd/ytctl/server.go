package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/dgnsrekt/yt_agent/internal/bridge"
	"github.com/dgnsrekt/yt_agent/internal/config"
	"github.com/dgnsrekt/yt_agent/internal/dispatch"
	"github.com/dgnsrekt/yt_agent/internal/probe"
	"github.com/spf13/cobra"
)

func newProbeCmd(cfg *config.Config) *cobra.Command {
	var serverURL string
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Check whether the helper server is reachable",
		RunE: func(cmd *cobra.Command, args []string) error {
			p := probe.New(http.DefaultClient, serverURL, timeout)
			err := p.Check(cmd.Context())
			if err != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "unreachable\t%s\n", p.StatusURL())
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "reachable\t%s\n", p.StatusURL())
			return err
		},
	}
	cmd.Flags().StringVar(&serverURL, "server", cfg.ServerBaseURL, "helper server base URL")
	cmd.Flags().DurationVar(&timeout, "timeout", cfg.ProbeTimeout(), "status request timeout")
	return cmd
}

func newStartServerCmd(cfg *config.Config) *cobra.Command {
	var hostID, manifestDir, origin string
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "start-server",
		Short: "Ask the native host to start the helper server",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := bridge.NewClient(manifestDir, origin, timeout)
			reply, err := client.StartServer(cmd.Context(), hostID)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(reply)
		},
	}
	cmd.Flags().StringVar(&hostID, "host", cfg.NativeHostID, "native messaging host name")
	cmd.Flags().StringVar(&manifestDir, "manifest-dir", cfg.ManifestDir, "directory holding <host>.json")
	cmd.Flags().StringVar(&origin, "origin", cfg.ExtensionOrigin, "caller origin passed to the host")
	cmd.Flags().DurationVar(&timeout, "timeout", cfg.BridgeTimeout(), "reply timeout")
	return cmd
}

func newDownloadCmd(cfg *config.Config) *cobra.Command {
	var serverURL, format, quantity, playlist string
	cmd := &cobra.Command{
		Use:   "download <url>",
		Short: "Send a download request to the helper server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := config.LoadOptionCatalog(cfg.OptionsFile)
			if err != nil {
				return err
			}
			opts := dispatch.Options{}
			for _, o := range []struct {
				group string
				value string
				dst   **string
			}{
				{"format", format, &opts.Format},
				{"quantity", quantity, &opts.Quantity},
				{"playlist", playlist, &opts.Playlist},
			} {
				if o.value == "" {
					continue
				}
				if !catalog.Allows(o.group, o.value) {
					return fmt.Errorf("%s value %q is not allowed", o.group, o.value)
				}
				*o.dst = dispatch.Value(o.value)
			}

			job := dispatch.NewJob(args[0], opts)
			if err := dispatch.New(http.DefaultClient, serverURL).Submit(cmd.Context(), job); err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), "Download request sent.")
			return err
		},
	}
	cmd.Flags().StringVar(&serverURL, "server", cfg.ServerBaseURL, "helper server base URL")
	cmd.Flags().StringVar(&format, "format", "", "output format")
	cmd.Flags().StringVar(&quantity, "quantity", "", "number of search results")
	cmd.Flags().StringVar(&playlist, "playlist", "", "download whole playlist (true/false)")
	return cmd
}
