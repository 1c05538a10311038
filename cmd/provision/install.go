package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/skyfe79/provision/internal/binary"
	"github.com/skyfe79/provision/internal/config"
)

func newInstallCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "install",
		Short: "Install the release binary (default command)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInstall(cmd, flags)
		},
	}
}

// runInstall provisions the binary and reports the outcome. Failures are
// reported here and surface as exit code 1.
func runInstall(cmd *cobra.Command, flags *rootFlags) error {
	out := cmd.OutOrStdout()
	errOut := cmd.ErrOrStderr()

	p, cfg, err := flags.newProvisioner(cmd, out)
	if err != nil {
		reportFailure(errOut, cfg, err)
		return &SilentExitError{Code: 1}
	}

	result, err := p.Provision(cmd.Context())
	if err != nil {
		reportFailure(errOut, cfg, err)
		return &SilentExitError{Code: 1}
	}

	if result.Link.Status == binary.LinkFailed && flags.verbose {
		warn := color.New(color.FgYellow)
		_, _ = warn.Fprintf(errOut, "Could not create global symlink: %v\n", result.Link.Err)
	}

	_, _ = fmt.Fprintln(out, color.GreenString("✅ Installation complete!"))
	_, _ = fmt.Fprintf(out, "Binary location: %s\n", result.BinaryPath)
	_, _ = fmt.Fprintf(out, "You can now use: %s\n", cfg.BinaryName)
	return nil
}

// reportFailure prints the error and where the release can be fetched by
// hand. cfg may be nil when configuration failed to load.
func reportFailure(w io.Writer, cfg *config.Config, err error) {
	if cfg == nil {
		cfg = config.Default()
	}
	_, _ = fmt.Fprintln(w, color.RedString("❌ Installation failed: %v", err))
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, "You can manually download the binary from:")
	_, _ = fmt.Fprintln(w, binary.NewLocator(cfg).ReleasesURL())
}
