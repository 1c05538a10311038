package binary

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/skyfe79/provision/internal/config"
	"github.com/skyfe79/provision/internal/platform"
)

// Locator maps a version and platform key to an ArtifactDescriptor.
// It performs no I/O.
type Locator struct {
	baseURL     string
	owner       string
	repo        string
	binaryName  string
	installRoot string
	policy      config.Policy
	published   map[platform.Key]bool
	fallback    platform.Key
}

// NewLocator creates a locator from cfg. Later changes to cfg are not seen.
func NewLocator(cfg *config.Config) *Locator {
	published := make(map[platform.Key]bool, len(cfg.Locate.Published))
	for _, key := range cfg.Locate.Published {
		published[key] = true
	}

	return &Locator{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		owner:       cfg.Owner(),
		repo:        cfg.RepoName(),
		binaryName:  cfg.BinaryName,
		installRoot: cfg.InstallRoot,
		policy:      cfg.Locate.Policy,
		published:   published,
		fallback:    cfg.Locate.Fallback,
	}
}

// Locate builds the descriptor for version on key.
// Pattern: <base>/<owner>/<repo>/releases/download/v{version}/<binary>-v{version}-{os}-{arch}.tar.gz
func (l *Locator) Locate(version string, key platform.Key) (ArtifactDescriptor, error) {
	if version == "" {
		return ArtifactDescriptor{}, ErrVersionRequired
	}

	target := key
	if !l.published[key] {
		if l.policy != config.PolicyFallback {
			return ArtifactDescriptor{}, fmt.Errorf("%w for %s", ErrArtifactUnavailable, key)
		}
		target = l.fallback
	}

	asset := fmt.Sprintf("%s-v%s-%s-%s.tar.gz", l.binaryName, version, target.OS, target.Arch)

	return ArtifactDescriptor{
		URL:         l.AssetURL(version, asset),
		ArchivePath: filepath.Join(l.installRoot, l.binaryName+".tar.gz"),
		InstallDir:  l.InstallDir(),
		BinaryName:  l.binaryName,
		BinaryPath:  l.BinaryPath(),
		Requested:   key,
		Target:      target,
	}, nil
}

// AssetURL returns the download URL of a named asset of release v{version}.
func (l *Locator) AssetURL(version, asset string) string {
	return fmt.Sprintf("%s/%s/%s/releases/download/v%s/%s", l.baseURL, l.owner, l.repo, version, asset)
}

// ReleasesURL returns the page users can download releases from manually.
func (l *Locator) ReleasesURL() string {
	return fmt.Sprintf("%s/%s/%s/releases", l.baseURL, l.owner, l.repo)
}

// InstallDir returns <root>/bin.
func (l *Locator) InstallDir() string {
	return filepath.Join(l.installRoot, "bin")
}

// BinaryPath returns <root>/bin/<binary>, the idempotency key.
func (l *Locator) BinaryPath() string {
	return filepath.Join(l.InstallDir(), l.binaryName)
}
