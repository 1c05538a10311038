package binary

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/skyfe79/provision/internal/config"
	"github.com/skyfe79/provision/internal/manifest"
	"github.com/skyfe79/provision/internal/platform"
	"github.com/skyfe79/provision/internal/transaction"
)

// Options holds the collaborators of a Provisioner. Nil fields get
// production defaults.
type Options struct {
	// Source defaults to the manifest file named by the config.
	Source manifest.Source
	// Detector defaults to platform.NewDetector().
	Detector platform.Detector
	// Extractor defaults to DefaultExtractor().
	Extractor ArchiveExtractor
	// BinDirs defaults to running the configured link command.
	BinDirs GlobalBinDirLocator
	// HTTPClient is used by the fetcher.
	HTTPClient *http.Client
	Logger     config.Logger
	// Progress receives human readable progress lines.
	Progress io.Writer
	Clock    Clock
}

// Provisioner orchestrates locate, fetch, verify, extract and link.
type Provisioner struct {
	cfg       *config.Config
	source    manifest.Source
	detector  platform.Detector
	resolver  *platform.Resolver
	locator   *Locator
	fetcher   *Fetcher
	extractor ArchiveExtractor
	verifier  *Verifier
	binDirs   GlobalBinDirLocator
	logger    config.Logger
	progress  io.Writer
	clock     Clock

	// linkTimeout bounds the global bin directory lookup.
	linkTimeout time.Duration
}

// NewProvisioner creates a provisioner for cfg. cfg must have its paths
// resolved; it is validated and copied.
func NewProvisioner(cfg *config.Config, opts Options) (*Provisioner, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if cfg.InstallRoot == "" {
		return nil, errors.New("install root is required")
	}
	cfg = cfg.Clone()

	p := &Provisioner{
		cfg:       cfg,
		source:    opts.Source,
		detector:  opts.Detector,
		resolver:  platform.NewResolver(),
		locator:   NewLocator(cfg),
		extractor: opts.Extractor,
		binDirs:   opts.BinDirs,
		logger:    opts.Logger,
		progress:  opts.Progress,
		clock:     opts.Clock,

		linkTimeout: DefaultLinkTimeout,
	}

	if p.source == nil {
		p.source = manifest.NewFile(cfg.Manifest)
	}
	if p.detector == nil {
		p.detector = platform.NewDetector()
	}
	if p.extractor == nil {
		p.extractor = DefaultExtractor()
	}
	if p.binDirs == nil {
		p.binDirs = NewCommandBinDirLocator(cfg.Link.Command)
	}
	if p.logger == nil {
		p.logger = config.NopLogger()
	}
	if p.progress == nil {
		p.progress = io.Discard
	}
	if p.clock == nil {
		p.clock = RealClock{}
	}
	p.fetcher = NewFetcher(cfg.Download, opts.HTTPClient, p.logger)

	if cfg.Verify.Keyring != "" {
		keyring, err := LoadKeyring(cfg.Verify.Keyring)
		if err != nil {
			return nil, fmt.Errorf("load keyring %s: %w", cfg.Verify.Keyring, err)
		}
		p.verifier = NewVerifier(keyring)
	}

	return p, nil
}

// Locator returns the provisioner's locator.
func (p *Provisioner) Locator() *Locator {
	return p.locator
}

// Provision runs one install. On success the binary exists at
// Result.BinaryPath. The downloaded archive is removed on every path.
func (p *Provisioner) Provision(ctx context.Context) (*Result, error) {
	start := p.clock.Now()
	runID := uuid.NewString()

	version, err := p.source.Version(ctx)
	if err != nil {
		return nil, err
	}
	p.printf("Installing %s v%s...\n", p.cfg.DisplayName, version)

	key, err := p.ResolvePlatform(ctx)
	if err != nil {
		return nil, err
	}
	p.printf("Platform: %s %s\n", key.OS, key.Arch)
	p.logger.Debug("resolved platform", "run", runID, "platform", key.String(), "version", version)

	lock, err := p.acquireLock(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", p.cfg.InstallRoot, err)
	}
	defer func() {
		if err := lock.Release(); err != nil {
			p.logger.Warn("failed to release install lock", "path", lock.Path(), "error", err)
		}
	}()

	if err := os.MkdirAll(p.locator.InstallDir(), 0o755); err != nil {
		return nil, fmt.Errorf("create install dir: %w", err)
	}

	result := &Result{
		Version:    version,
		Platform:   key,
		BinaryPath: p.locator.BinaryPath(),
	}

	if !p.cfg.Force && isInstalled(result.BinaryPath) {
		p.printf("Binary already exists, skipping download.\n")
		p.logger.Info("binary already installed", "run", runID, "path", result.BinaryPath)
		result.Skipped = true
		result.Duration = p.clock.Now().Sub(start)
		return result, nil
	}

	desc, err := p.locator.Locate(version, key)
	if err != nil {
		return nil, err
	}
	if desc.Substituted() {
		p.logger.Warn("no artifact published for platform, using fallback artifact",
			"platform", desc.Requested.String(), "artifact", desc.Target.String())
	}
	result.Descriptor = desc

	workCtx := ctx
	if p.cfg.Download.Timeout > 0 {
		var cancel context.CancelFunc
		workCtx, cancel = context.WithTimeout(ctx, p.cfg.Download.Timeout)
		defer cancel()
	}

	defer p.cleanup(desc.ArchivePath)

	p.printf("Downloading from: %s\n", desc.URL)
	if err := p.fetcher.Fetch(workCtx, desc.URL, desc.ArchivePath); err != nil {
		return nil, err
	}

	if result.Verified, err = p.verify(workCtx, desc, version); err != nil {
		return nil, err
	}

	p.printf("Extracting...\n")
	if err := p.extractor.Extract(workCtx, desc.ArchivePath, desc.InstallDir); err != nil {
		return nil, err
	}
	if !isInstalled(desc.BinaryPath) {
		return nil, &ExtractionFailedError{
			Archive: desc.ArchivePath,
			Err:     fmt.Errorf("binary %s not found in archive", desc.BinaryName),
		}
	}

	if key.OS != platform.OSWindows {
		if err := os.Chmod(desc.BinaryPath, 0o755); err != nil {
			return nil, &PermissionError{Path: desc.BinaryPath, Err: err}
		}
	}

	result.Link = p.linkGlobal(ctx, desc, key.OS)
	if result.Link.Status == LinkCreated {
		p.printf("Created global symlink: %s\n", result.Link.Path)
	}

	result.Duration = p.clock.Now().Sub(start)
	p.logger.Info("installed binary", "run", runID, "path", desc.BinaryPath, "url", desc.URL, "duration", result.Duration)
	return result, nil
}

// Locate reads the version and resolves the platform, then returns the
// descriptor Provision would use. It has no side effects.
func (p *Provisioner) Locate(ctx context.Context) (ArtifactDescriptor, error) {
	version, err := p.source.Version(ctx)
	if err != nil {
		return ArtifactDescriptor{}, err
	}
	key, err := p.ResolvePlatform(ctx)
	if err != nil {
		return ArtifactDescriptor{}, err
	}
	return p.locator.Locate(version, key)
}

// ResolvePlatform detects the host and maps it to a platform key.
func (p *Provisioner) ResolvePlatform(ctx context.Context) (platform.Key, error) {
	info, err := p.detector.Detect(ctx)
	if err != nil {
		return platform.Key{}, fmt.Errorf("detect platform: %w", err)
	}
	return p.resolver.Resolve(info.OS, info.Arch)
}

// verify runs the configured checks on the downloaded archive.
func (p *Provisioner) verify(ctx context.Context, desc ArtifactDescriptor, version string) ([]VerificationMethod, error) {
	var methods []VerificationMethod

	if p.verifier != nil {
		sigURL := desc.URL + p.cfg.Verify.SignatureSuffix
		sigPath := desc.ArchivePath + p.cfg.Verify.SignatureSuffix
		defer p.cleanup(sigPath)

		if err := p.fetcher.Fetch(ctx, sigURL, sigPath); err != nil {
			return nil, &VerificationError{Method: VerificationGPG, Path: desc.ArchivePath, Err: fmt.Errorf("fetch signature: %w", err)}
		}
		if err := p.verifier.VerifySignature(desc.ArchivePath, sigPath); err != nil {
			return nil, err
		}
		p.logger.Debug("signature verified", "url", sigURL)
		methods = append(methods, VerificationGPG)
	}

	if p.cfg.Verify.Checksums != "" {
		sumsURL := p.locator.AssetURL(version, p.cfg.Verify.Checksums)
		sumsPath := desc.ArchivePath + ".checksums"
		defer p.cleanup(sumsPath)

		if err := p.fetcher.Fetch(ctx, sumsURL, sumsPath); err != nil {
			return nil, &VerificationError{Method: VerificationSHA256, Path: desc.ArchivePath, Err: fmt.Errorf("fetch checksums: %w", err)}
		}
		if err := VerifyChecksum(desc.ArchivePath, sumsPath, desc.AssetName()); err != nil {
			return nil, err
		}
		p.logger.Debug("checksum verified", "url", sumsURL)
		methods = append(methods, VerificationSHA256)
	}

	return methods, nil
}

// acquireLock takes the install lock, waiting at most cfg.LockTimeout for
// another run to finish.
func (p *Provisioner) acquireLock(ctx context.Context, runID string) (*transaction.Lock, error) {
	if p.cfg.LockTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.LockTimeout)
		defer cancel()
	}
	return transaction.AcquireLock(ctx, p.cfg.InstallRoot, runID, func(path string) {
		p.printf("Waiting for install lock (%s)...\n", path)
		p.logger.Info("install lock held by another run", "run", runID, "path", path)
	})
}

// linkGlobal links the binary into the global bin directory. It never fails
// the run.
func (p *Provisioner) linkGlobal(ctx context.Context, desc ArtifactDescriptor, target platform.OS) LinkResult {
	if !p.cfg.Link.Enabled {
		return LinkResult{Status: LinkDisabled}
	}

	lookupCtx, cancel := context.WithTimeout(ctx, p.linkTimeout)
	defer cancel()
	dir, err := p.binDirs.GlobalBinDir(lookupCtx, target)
	if err != nil {
		p.logger.Debug("global bin directory unavailable", "error", err)
		return LinkResult{Status: LinkNoGlobalDir, Err: err}
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		p.logger.Debug("global bin directory missing", "path", dir)
		return LinkResult{Status: LinkNoGlobalDir, Path: dir, Err: err}
	}
	if sameDir(dir, desc.InstallDir) {
		return LinkResult{Status: LinkSameDir, Path: dir}
	}

	linkPath := filepath.Join(dir, desc.BinaryName)
	if _, err := os.Lstat(linkPath); err == nil {
		return LinkResult{Status: LinkExists, Path: linkPath}
	}
	if err := os.Symlink(desc.BinaryPath, linkPath); err != nil {
		p.logger.Warn("failed to create global symlink", "path", linkPath, "error", err)
		return LinkResult{Status: LinkFailed, Path: linkPath, Err: err}
	}
	return LinkResult{Status: LinkCreated, Path: linkPath}
}

func (p *Provisioner) cleanup(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		p.logger.Warn("failed to remove temporary file", "path", path, "error", err)
	}
}

func (p *Provisioner) printf(format string, args ...interface{}) {
	fmt.Fprintf(p.progress, format, args...)
}

// isInstalled reports whether a non-directory entry exists at path.
func isInstalled(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
