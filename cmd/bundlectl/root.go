package main

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/bundlehost/internal/client"
	"github.com/GriffinCanCode/bundlehost/internal/domain/loader"
)

const defaultServer = "http://localhost:8000"

type globalFlags struct {
	server  string
	timeout time.Duration
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	cmd := &cobra.Command{
		Use:   "bundlectl",
		Short: "Manage component bundles on a bundlehost server",
		Long: `bundlectl packs component bundles and manages them on a bundlehost server.

The server address defaults to $BUNDLEHOST_SERVER or ` + defaultServer + `.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	server := os.Getenv("BUNDLEHOST_SERVER")
	if server == "" {
		server = defaultServer
	}
	cmd.PersistentFlags().StringVar(&flags.server, "server", server, "bundlehost server base URL (env: BUNDLEHOST_SERVER)")
	cmd.PersistentFlags().DurationVar(&flags.timeout, "timeout", client.DefaultConfig().Timeout, "request timeout")

	cmd.AddCommand(
		newPackCmd(),
		newUploadCmd(flags),
		newListCmd(flags),
		newVersionsCmd(flags),
		newDownloadCmd(flags),
	)
	return cmd
}

func (f *globalFlags) client() *client.Client {
	cfg := client.DefaultConfig()
	cfg.Timeout = f.timeout
	return client.New(f.server, cfg)
}

func newPackCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pack <dir> <out.bundle>",
		Short: "Pack a directory into a bundle archive",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := loader.Pack(args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "packed %s -> %s\n", args[0], args[1])
			return nil
		},
	}
}

func newUploadCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "upload <file>...",
		Short: "Upload bundles to the server",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := flags.client()
			for _, path := range args {
				if err := c.UploadFile(cmd.Context(), path); err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "uploaded %s\n", filepath.Base(path))
			}
			return nil
		},
	}
}

func newListCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered components",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			components, err := flags.client().List(cmd.Context())
			if err != nil {
				return err
			}
			return printComponents(cmd, components)
		},
	}
}

func newVersionsCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "versions <alias>",
		Short: "List the registered versions of a component",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			components, err := flags.client().Versions(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printComponents(cmd, components)
		},
	}
}

func newDownloadCmd(flags *globalFlags) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "download <alias> [version]",
		Short: "Download the bundle a topology was loaded from",
		Long:  "Download the bundle a topology was loaded from. The version defaults to latest.",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			version := "latest"
			if len(args) == 2 {
				version = args[1]
			}

			dir := "."
			if output != "" {
				dir = filepath.Dir(output)
			}
			tmp, err := os.CreateTemp(dir, ".bundlectl-*")
			if err != nil {
				return err
			}
			defer os.Remove(tmp.Name())
			defer tmp.Close()

			info, err := flags.client().Download(cmd.Context(), args[0], version, tmp)
			if err != nil {
				return err
			}
			if err := tmp.Close(); err != nil {
				return err
			}

			dest := output
			if dest == "" {
				dest = filepath.Join(dir, filepath.Base(info.Filename))
			}
			if err := os.Rename(tmp.Name(), dest); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "downloaded %s (%d bytes)\n", dest, info.Size)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "destination file (default: server-provided name)")
	return cmd
}

func printComponents(cmd *cobra.Command, components []client.Component) error {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tVERSION\tSCOPE\tBUNDLE\tDOWNLOADABLE")
	for _, c := range components {
		bundle := c.Bundle
		if bundle == "" {
			bundle = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\n", c.Name, c.Version, c.Scope, bundle, c.Downloadable)
	}
	return tw.Flush()
}
