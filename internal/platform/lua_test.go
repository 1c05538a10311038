package platform

import (
	"strings"
	"testing"

	lua "github.com/yuin/gopher-lua"
)

func TestInjectPlatformTable_Linux(t *testing.T) {
	L := lua.NewState()
	defer L.Close()

	info := &Info{
		OS:       "linux",
		Arch:     "x86_64",
		Platform: "ubuntu",
		Family:   "debian",
		Version:  "22.04",
	}

	if err := InjectPlatformTable(L, info, Key{OSLinux, ArchX64}); err != nil {
		t.Fatalf("InjectPlatformTable() error = %v", err)
	}

	tests := []struct {
		name string
		code string
		want lua.LValue
	}{
		{"os", `return platform.os`, lua.LString("linux")},
		{"arch", `return platform.arch`, lua.LString("x64")},
		{"target", `return platform.target`, lua.LString("linux-x64")},
		{"raw_os", `return platform.raw_os`, lua.LString("linux")},
		{"raw_arch", `return platform.raw_arch`, lua.LString("x86_64")},
		{"is_linux", `return platform.is_linux`, lua.LTrue},
		{"is_macos", `return platform.is_macos`, lua.LFalse},
		{"is_windows", `return platform.is_windows`, lua.LFalse},
		{"is_x64", `return platform.is_x64`, lua.LTrue},
		{"is_arm64", `return platform.is_arm64`, lua.LFalse},
		{"is_apple_silicon", `return platform.is_apple_silicon`, lua.LFalse},
		{"distro.id", `return platform.distro.id`, lua.LString("ubuntu")},
		{"distro.family", `return platform.distro.family`, lua.LString("debian")},
		{"distro.version", `return platform.distro.version`, lua.LString("22.04")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := L.DoString(tt.code); err != nil {
				t.Fatalf("DoString(%q) error = %v", tt.code, err)
			}
			got := L.Get(-1)
			L.Pop(1)
			if got != tt.want {
				t.Errorf("%s = %v, want %v", tt.code, got, tt.want)
			}
		})
	}
}

func TestInjectPlatformTable_AppleSilicon(t *testing.T) {
	L := lua.NewState()
	defer L.Close()

	info := &Info{OS: "darwin", Arch: "arm64"}
	if err := InjectPlatformTable(L, info, Key{OSMacOS, ArchARM64}); err != nil {
		t.Fatalf("InjectPlatformTable() error = %v", err)
	}

	if err := L.DoString(`return platform.is_apple_silicon, platform.distro`); err != nil {
		t.Fatalf("DoString() error = %v", err)
	}
	distro := L.Get(-1)
	silicon := L.Get(-2)
	L.Pop(2)

	if silicon != lua.LTrue {
		t.Errorf("is_apple_silicon = %v, want true", silicon)
	}
	if distro != lua.LNil {
		t.Errorf("distro = %v, want nil on macos", distro)
	}
}

func TestInjectPlatformTable_UnresolvedKey(t *testing.T) {
	L := lua.NewState()
	defer L.Close()

	info := &Info{OS: "freebsd", Arch: "riscv64"}
	if err := InjectPlatformTable(L, info, Key{}); err != nil {
		t.Fatalf("InjectPlatformTable() error = %v", err)
	}

	if err := L.DoString(`return platform.target, platform.raw_os`); err != nil {
		t.Fatalf("DoString() error = %v", err)
	}
	rawOS := L.Get(-1)
	target := L.Get(-2)
	L.Pop(2)

	if target != lua.LString("") {
		t.Errorf("target = %v, want empty string", target)
	}
	if rawOS != lua.LString("freebsd") {
		t.Errorf("raw_os = %v, want freebsd", rawOS)
	}
}

func TestInjectPlatformTable_When(t *testing.T) {
	L := lua.NewState()
	defer L.Close()

	if err := InjectPlatformTable(L, &Info{OS: "windows", Arch: "amd64"}, Key{OSWindows, ArchX64}); err != nil {
		t.Fatalf("InjectPlatformTable() error = %v", err)
	}

	if err := L.DoString(`return platform.when(platform.is_windows, "sl.exe"), platform.when(platform.is_linux, "sl")`); err != nil {
		t.Fatalf("DoString() error = %v", err)
	}
	linuxVal := L.Get(-1)
	windowsVal := L.Get(-2)
	L.Pop(2)

	if windowsVal != lua.LString("sl.exe") {
		t.Errorf("when(true) = %v, want sl.exe", windowsVal)
	}
	if linuxVal != lua.LNil {
		t.Errorf("when(false) = %v, want nil", linuxVal)
	}
}

func TestInjectPlatformTable_ReadOnly(t *testing.T) {
	L := lua.NewState()
	defer L.Close()

	if err := InjectPlatformTable(L, &Info{OS: "linux", Arch: "arm64"}, Key{OSLinux, ArchARM64}); err != nil {
		t.Fatalf("InjectPlatformTable() error = %v", err)
	}

	tests := []struct {
		name string
		code string
	}{
		{"modify existing field", `platform.os = "windows"`},
		{"add new field", `platform.custom = true`},
		{"replace metatable", `setmetatable(platform, {})`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := L.DoString(tt.code)
			if err == nil {
				t.Fatalf("expected error for %q", tt.code)
			}
		})
	}

	err := L.DoString(`platform.arch = "x64"`)
	if err == nil || !strings.Contains(err.Error(), "read-only") {
		t.Errorf("expected read-only error, got %v", err)
	}
}
