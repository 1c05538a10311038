package platform

import (
	"context"
	"fmt"
	"runtime"

	"github.com/shirou/gopsutil/v4/host"
)

// RealDetector implements Detector using the Go runtime and gopsutil.
type RealDetector struct{}

// NewDetector creates a new host detector.
func NewDetector() Detector {
	return &RealDetector{}
}

// Detect returns runtime.GOOS and runtime.GOARCH unchanged, plus Linux
// distribution details from gopsutil.
//
// Distro detection failures are not fatal: the distro fields are left empty.
// A cancelled context is.
func (d *RealDetector) Detect(ctx context.Context) (*Info, error) {
	info := &Info{
		OS:   runtime.GOOS,
		Arch: runtime.GOARCH,
	}

	if runtime.GOOS != "linux" {
		return info, nil
	}

	platform, family, version, err := host.PlatformInformationWithContext(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("platform detection cancelled: %w", ctx.Err())
		}
		return info, nil
	}

	platform = normalizeDistro(platform)
	if platform != "" {
		info.Platform = platform
		info.Family = mapFamily(family)
		info.Version = normalizeDistro(version)
	}

	return info, nil
}

// StaticDetector reports fixed identifiers. It is used when the target
// platform is chosen explicitly instead of detected.
type StaticDetector struct {
	Info Info
}

// NewStaticDetector returns a detector that always reports os and arch.
func NewStaticDetector(os, arch string) Detector {
	return &StaticDetector{Info: Info{OS: os, Arch: arch}}
}

// Detect returns a copy of the fixed info.
func (d *StaticDetector) Detect(ctx context.Context) (*Info, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("platform detection cancelled: %w", err)
	}
	info := d.Info
	return &info, nil
}
