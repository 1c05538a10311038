package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/skyfe79/provision/internal/binary"
	"github.com/skyfe79/provision/internal/config"
	"github.com/skyfe79/provision/internal/platform"
)

// rootFlags holds the flags shared by every subcommand. Flags override the
// environment, which overrides the config file.
type rootFlags struct {
	configPath  string
	manifest    string
	installRoot string
	baseURL     string
	policy      string
	osName      string
	arch        string
	force       bool
	noLink      bool
	verbose     bool
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:   "provision",
		Short: "Download and install the release binary for this platform",
		Long: `provision reads the version from a package manifest, downloads the matching
release archive for the current platform, and installs the binary into
<install-root>/bin. Running it again is a no-op once the binary exists.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInstall(cmd, flags)
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "Lua config file (default: provision.lua next to the manifest)")
	pf.StringVar(&flags.manifest, "manifest", "", "manifest to read the version from (default: package.json)")
	pf.StringVar(&flags.installRoot, "install-root", "", "directory that receives bin/<binary> (default: the manifest's directory)")
	pf.StringVar(&flags.baseURL, "base-url", "", "release host base URL")
	pf.StringVar(&flags.policy, "policy", "", "artifact policy for unpublished platforms: fallback or strict")
	pf.StringVar(&flags.osName, "os", "", "override the detected operating system (e.g. darwin, linux, windows)")
	pf.StringVar(&flags.arch, "arch", "", "override the detected architecture (e.g. arm64, x64)")
	pf.BoolVar(&flags.force, "force", false, "reinstall even if the binary exists")
	pf.BoolVar(&flags.noLink, "no-link", false, "skip the global symlink")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "enable debug logging")

	cmd.AddCommand(
		newInstallCmd(flags),
		newLocateCmd(flags),
		newVersionCmd(),
	)
	return cmd
}

// newLogger returns a text logger on w. Only warnings and errors are shown
// unless verbose is set.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// detector returns the host detector, or a fixed one when --os/--arch is set.
func (f *rootFlags) detector() platform.Detector {
	if f.osName == "" && f.arch == "" {
		return platform.NewDetector()
	}
	osName, arch := f.osName, f.arch
	if osName == "" || arch == "" {
		host := platform.NewDetector()
		if info, err := host.Detect(context.Background()); err == nil {
			if osName == "" {
				osName = info.OS
			}
			if arch == "" {
				arch = info.Arch
			}
		}
	}
	return platform.NewStaticDetector(osName, arch)
}

// loadConfig builds the configuration: defaults, then the Lua file, then the
// environment, then flags.
func (f *rootFlags) loadConfig(ctx context.Context, logger *slog.Logger) (*config.Config, error) {
	base := config.Default()

	manifestPath := base.Manifest
	if v, ok := lookupEnv(config.EnvManifest); ok && strings.TrimSpace(v) != "" {
		manifestPath = strings.TrimSpace(v)
	}
	if f.manifest != "" {
		manifestPath = f.manifest
	}
	manifestPath, err := config.ExpandPath(manifestPath)
	if err != nil {
		return nil, err
	}

	configPath, explicit := f.configPath, f.configPath != ""
	if !explicit {
		if v, ok := lookupEnv(config.EnvConfig); ok && strings.TrimSpace(v) != "" {
			configPath, explicit = strings.TrimSpace(v), true
		}
	}
	if !explicit {
		configPath = filepath.Join(filepath.Dir(manifestPath), config.DefaultFileName)
	}

	cfg := base.Clone()
	if configPath, err = config.ExpandPath(configPath); err != nil {
		return nil, err
	}
	if _, statErr := os.Stat(configPath); statErr == nil || explicit {
		logger.Debug("loading config", "path", configPath)
		cfg, err = config.NewParser(f.detector()).ParseFile(ctx, configPath, base)
		if err != nil {
			return nil, errors.New(config.FormatError(err, f.verbose))
		}
	}

	if err := config.ApplyEnv(cfg, lookupEnv); err != nil {
		return nil, fmt.Errorf("environment: %w", err)
	}
	f.apply(cfg)

	if err := cfg.ResolvePaths(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// apply copies the flags that were set onto cfg.
func (f *rootFlags) apply(cfg *config.Config) {
	if f.manifest != "" {
		cfg.Manifest = f.manifest
	}
	if f.installRoot != "" {
		cfg.InstallRoot = f.installRoot
	}
	if f.baseURL != "" {
		cfg.BaseURL = strings.TrimRight(f.baseURL, "/")
	}
	if f.policy != "" {
		cfg.Locate.Policy = config.Policy(strings.ToLower(f.policy))
	}
	if f.force {
		cfg.Force = true
	}
	if f.noLink {
		cfg.Link.Enabled = false
	}
}

// newProvisioner loads the config and wires a provisioner writing progress
// to out. The returned config is nil when loading failed.
func (f *rootFlags) newProvisioner(cmd *cobra.Command, out io.Writer) (*binary.Provisioner, *config.Config, error) {
	logger := newLogger(cmd.ErrOrStderr(), f.verbose)

	cfg, err := f.loadConfig(cmd.Context(), logger)
	if err != nil {
		return nil, nil, err
	}

	p, err := binary.NewProvisioner(cfg, binary.Options{
		Detector: f.detector(),
		Logger:   logger,
		Progress: out,
	})
	return p, cfg, err
}
