package platform

import (
	"errors"
	"testing"
)

func TestResolver_Resolve(t *testing.T) {
	tests := []struct {
		name    string
		rawOS   string
		rawArch string
		want    Key
		wantErr bool
	}{
		{"darwin arm64", "darwin", "arm64", Key{OSMacOS, ArchARM64}, false},
		{"darwin amd64", "darwin", "amd64", Key{OSMacOS, ArchX64}, false},
		{"linux x86_64", "linux", "x86_64", Key{OSLinux, ArchX64}, false},
		{"linux aarch64", "linux", "aarch64", Key{OSLinux, ArchARM64}, false},
		{"windows amd64", "windows", "amd64", Key{OSWindows, ArchX64}, false},
		{"node win32 x64", "win32", "x64", Key{OSWindows, ArchX64}, false},
		{"mixed case", " Darwin ", "ARM64", Key{OSMacOS, ArchARM64}, false},
		{"unknown os", "freebsd", "amd64", Key{}, true},
		{"unknown arch", "linux", "386", Key{}, true},
		{"both unknown", "plan9", "mips", Key{}, true},
		{"prefix is not a match", "dar", "arm", Key{}, true},
		{"empty", "", "", Key{}, true},
	}

	resolver := NewResolver()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolver.Resolve(tt.rawOS, tt.rawArch)
			if tt.wantErr {
				var unsupported *UnsupportedPlatformError
				if !errors.As(err, &unsupported) {
					t.Fatalf("Resolve() error = %v, want UnsupportedPlatformError", err)
				}
				if unsupported.OS != tt.rawOS || unsupported.Arch != tt.rawArch {
					t.Errorf("error carries %q/%q, want %q/%q", unsupported.OS, unsupported.Arch, tt.rawOS, tt.rawArch)
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve() unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Resolve() = %v, want %v", got, tt.want)
			}
		})
	}
}

// Every combination of table entries resolves, every other pair fails.
func TestResolver_Totality(t *testing.T) {
	resolver := NewResolver()
	rawOSes := []string{"darwin", "linux", "windows", "win32", "freebsd", "android", ""}
	rawArches := []string{"amd64", "x64", "x86_64", "arm64", "aarch64", "386", "riscv64", ""}

	for _, rawOS := range rawOSes {
		for _, rawArch := range rawArches {
			_, osKnown := defaultOSTable[rawOS]
			_, archKnown := defaultArchTable[rawArch]

			first, err := resolver.Resolve(rawOS, rawArch)
			if osKnown && archKnown {
				if err != nil {
					t.Errorf("Resolve(%q, %q) error = %v", rawOS, rawArch, err)
					continue
				}
				second, _ := resolver.Resolve(rawOS, rawArch)
				if first != second {
					t.Errorf("Resolve(%q, %q) not deterministic: %v vs %v", rawOS, rawArch, first, second)
				}
				continue
			}
			if !IsUnsupportedPlatform(err) {
				t.Errorf("Resolve(%q, %q) error = %v, want UnsupportedPlatformError", rawOS, rawArch, err)
			}
		}
	}
}

func TestUnsupportedPlatformError_Message(t *testing.T) {
	err := &UnsupportedPlatformError{OS: "freebsd", Arch: "riscv64"}
	if got, want := err.Error(), "unsupported platform: freebsd riscv64"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestParseKey(t *testing.T) {
	tests := []struct {
		input   string
		want    Key
		wantErr bool
	}{
		{"macos-arm64", Key{OSMacOS, ArchARM64}, false},
		{"linux/x64", Key{OSLinux, ArchX64}, false},
		{" Windows-X64 ", Key{OSWindows, ArchX64}, false},
		{"darwin-arm64", Key{}, true},
		{"macos-386", Key{}, true},
		{"macos", Key{}, true},
		{"-arm64", Key{}, true},
		{"macos-", Key{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseKey(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseKey() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseKey() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestKey_String(t *testing.T) {
	key := Key{OS: OSMacOS, Arch: ArchARM64}
	if key.String() != "macos-arm64" {
		t.Errorf("String() = %q", key.String())
	}
	if key.IsZero() {
		t.Error("IsZero() = true for set key")
	}
	if !(Key{}).IsZero() {
		t.Error("IsZero() = false for zero key")
	}
}
