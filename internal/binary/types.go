package binary

import (
	"path"
	"time"

	"github.com/skyfe79/provision/internal/platform"
)

// ArtifactDescriptor describes where an artifact comes from and where it
// goes. It is computed once per run by Locator.Locate.
type ArtifactDescriptor struct {
	URL         string
	ArchivePath string
	InstallDir  string
	BinaryName  string
	BinaryPath  string
	// Requested is the host's platform key.
	Requested platform.Key
	// Target is the key whose artifact URL points at. It differs from
	// Requested when the fallback policy substituted another artifact.
	Target platform.Key
}

// Substituted reports whether the artifact was built for another platform.
func (d ArtifactDescriptor) Substituted() bool {
	return d.Target != d.Requested
}

// AssetName returns the release asset's file name.
func (d ArtifactDescriptor) AssetName() string {
	return path.Base(d.URL)
}

// VerificationMethod indicates how an archive was verified
type VerificationMethod int

const (
	// VerificationNone indicates no verification was configured
	VerificationNone VerificationMethod = iota
	// VerificationGPG indicates GPG signature verification was used
	VerificationGPG
	// VerificationSHA256 indicates SHA256 checksum verification was used
	VerificationSHA256
)

// String returns the string representation of the verification method
func (v VerificationMethod) String() string {
	switch v {
	case VerificationGPG:
		return "GPG"
	case VerificationSHA256:
		return "SHA256"
	case VerificationNone:
		return "None"
	default:
		return "Unknown"
	}
}

// LinkStatus is the outcome of the global link step.
type LinkStatus string

const (
	LinkCreated     LinkStatus = "created"
	LinkDisabled    LinkStatus = "disabled"
	LinkNoGlobalDir LinkStatus = "no-global-dir"
	LinkSameDir     LinkStatus = "same-dir"
	LinkExists      LinkStatus = "exists"
	LinkFailed      LinkStatus = "failed"
)

// LinkResult reports what the link step did. Err is informational only.
type LinkResult struct {
	Status LinkStatus
	Path   string
	Err    error
}

// Result contains information about a completed run.
type Result struct {
	Version  string
	Platform platform.Key
	// Descriptor is zero when the run was skipped.
	Descriptor ArtifactDescriptor
	BinaryPath string
	// Skipped is set when the binary was already installed.
	Skipped  bool
	Verified []VerificationMethod
	Link     LinkResult
	Duration time.Duration
}
