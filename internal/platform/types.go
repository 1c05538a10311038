// Package platform maps host operating system and CPU identifiers onto the
// release targets a binary is published for.
//
// Host detection (Detector) and target resolution (Resolver) are kept apart:
// the detector only reports raw identifiers, and the resolver owns the lookup
// tables that decide whether a host is supported. Linux distribution details
// come from gopsutil and are informational only.
package platform

import (
	"context"
	"fmt"
	"strings"
)

// Linux distribution family constants.
const (
	FamilyDebian  = "debian"  // Debian, Ubuntu, Linux Mint
	FamilyRHEL    = "rhel"    // RHEL, CentOS, Rocky Linux, AlmaLinux
	FamilyFedora  = "fedora"  // Fedora
	FamilySUSE    = "suse"    // openSUSE, SLES
	FamilyArch    = "arch"    // Arch Linux, Manjaro
	FamilyAlpine  = "alpine"  // Alpine Linux
	FamilyGentoo  = "gentoo"  // Gentoo
	FamilyUnknown = "unknown" // Unrecognized distributions
)

// OS is a normalized operating system name as used in release asset names.
type OS string

const (
	OSMacOS   OS = "macos"
	OSLinux   OS = "linux"
	OSWindows OS = "windows"
)

// Arch is a normalized CPU architecture name as used in release asset names.
type Arch string

const (
	ArchX64   Arch = "x64"
	ArchARM64 Arch = "arm64"
)

// Key identifies one release target.
type Key struct {
	OS   OS
	Arch Arch
}

// String returns the "<os>-<arch>" form used in asset names.
func (k Key) String() string {
	return string(k.OS) + "-" + string(k.Arch)
}

// IsZero reports whether the key is unset.
func (k Key) IsZero() bool {
	return k.OS == "" && k.Arch == ""
}

// ParseKey parses "<os>-<arch>" or "<os>/<arch>" using the normalized names.
func ParseKey(s string) (Key, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	sep := strings.IndexAny(s, "-/")
	if sep <= 0 || sep == len(s)-1 {
		return Key{}, fmt.Errorf("invalid platform key %q (want <os>-<arch>)", s)
	}

	key := Key{OS: OS(s[:sep]), Arch: Arch(s[sep+1:])}
	switch key.OS {
	case OSMacOS, OSLinux, OSWindows:
	default:
		return Key{}, fmt.Errorf("invalid platform key %q: unknown os %q", s, key.OS)
	}
	switch key.Arch {
	case ArchX64, ArchARM64:
	default:
		return Key{}, fmt.Errorf("invalid platform key %q: unknown arch %q", s, key.Arch)
	}
	return key, nil
}

// Info contains raw host identifiers as reported by the runtime.
type Info struct {
	OS       string // runtime OS identifier, e.g. "darwin", "linux", "windows"
	Arch     string // runtime architecture identifier, e.g. "amd64", "arm64"
	Platform string // distro ID (Linux only, e.g. "ubuntu")
	Family   string // canonical family (e.g. "debian")
	Version  string // distro version (Linux only, e.g. "22.04")
}

// Distro contains Linux distribution information.
type Distro struct {
	ID      string
	Family  string
	Version string
}

// GetDistro returns distro information if this is a Linux host.
// Returns nil for other hosts or if distro detection failed.
func (i *Info) GetDistro() *Distro {
	if i.OS != "linux" || i.Platform == "" {
		return nil
	}
	return &Distro{
		ID:      i.Platform,
		Family:  i.Family,
		Version: i.Version,
	}
}

// Detector reports the raw identifiers of the host.
type Detector interface {
	Detect(ctx context.Context) (*Info, error)
}
