package platform

import (
	"errors"
	"fmt"
)

// defaultOSTable maps raw OS identifiers to release OS names. Both Go
// (runtime.GOOS) and Node (process.platform) spellings are accepted.
var defaultOSTable = map[string]OS{
	"darwin":  OSMacOS,
	"linux":   OSLinux,
	"windows": OSWindows,
	"win32":   OSWindows,
}

// defaultArchTable maps raw architecture identifiers to release arch names.
var defaultArchTable = map[string]Arch{
	"amd64":   ArchX64,
	"x64":     ArchX64,
	"x86_64":  ArchX64,
	"arm64":   ArchARM64,
	"aarch64": ArchARM64,
}

// UnsupportedPlatformError reports a host that has no release target.
// Both raw identifiers are kept for diagnostics.
type UnsupportedPlatformError struct {
	OS   string
	Arch string
}

func (e *UnsupportedPlatformError) Error() string {
	return fmt.Sprintf("unsupported platform: %s %s", e.OS, e.Arch)
}

// IsUnsupportedPlatform reports whether err is an UnsupportedPlatformError.
func IsUnsupportedPlatform(err error) bool {
	var target *UnsupportedPlatformError
	return errors.As(err, &target)
}

// Resolver maps raw host identifiers to a Key using one lookup table per
// dimension.
type Resolver struct {
	osTable   map[string]OS
	archTable map[string]Arch
}

// NewResolver returns a resolver with the default tables.
func NewResolver() *Resolver {
	return &Resolver{
		osTable:   defaultOSTable,
		archTable: defaultArchTable,
	}
}

// Resolve returns the Key for rawOS and rawArch. Both lookups must succeed;
// there is no partial or prefix matching.
func (r *Resolver) Resolve(rawOS, rawArch string) (Key, error) {
	osName, osOK := r.osTable[normalizeIdentifier(rawOS)]
	archName, archOK := r.archTable[normalizeIdentifier(rawArch)]
	if !osOK || !archOK {
		return Key{}, &UnsupportedPlatformError{OS: rawOS, Arch: rawArch}
	}
	return Key{OS: osName, Arch: archName}, nil
}
