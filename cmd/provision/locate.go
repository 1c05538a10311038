package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newLocateCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "locate",
		Short: "Print the artifact that install would fetch, without fetching it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, _, err := flags.newProvisioner(cmd, nil)
			if err != nil {
				return err
			}
			desc, err := p.Locate(cmd.Context())
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintf(tw, "platform:\t%s\n", desc.Requested)
			artifact := desc.Target.String()
			if desc.Substituted() {
				artifact += " (fallback)"
			}
			_, _ = fmt.Fprintf(tw, "artifact:\t%s\n", artifact)
			_, _ = fmt.Fprintf(tw, "url:\t%s\n", desc.URL)
			_, _ = fmt.Fprintf(tw, "archive:\t%s\n", desc.ArchivePath)
			_, _ = fmt.Fprintf(tw, "binary:\t%s\n", desc.BinaryPath)
			return tw.Flush()
		},
	}
}
