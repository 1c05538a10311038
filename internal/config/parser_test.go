package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/skyfe79/provision/internal/platform"
)

// mockDetector is a test implementation of platform.Detector.
type mockDetector struct {
	info *platform.Info
	err  error
}

func (m *mockDetector) Detect(ctx context.Context) (*platform.Info, error) {
	return m.info, m.err
}

func TestParser_ParseString_Empty(t *testing.T) {
	base := Default()

	cfg, err := NewParser(nil).ParseString(context.Background(), ``, base)
	if err != nil {
		t.Fatalf("ParseString() error = %v", err)
	}
	if cfg == base {
		t.Fatal("ParseString() returned base instead of a copy")
	}
	if cfg.Repo != base.Repo || cfg.BinaryName != base.BinaryName {
		t.Errorf("empty config changed defaults: %+v", cfg)
	}
}

func TestParser_ParseString_Full(t *testing.T) {
	luaCode := `
		provision = {
			repo = "acme/widget",
			binary = "wdg",
			name = "widget",
			base_url = "https://releases.example.com",
			install_root = "/opt/widget",
			manifest = "/opt/widget/package.json",
			force = true,
			lock_timeout_seconds = 5,
			download = {
				user_agent = "widget-installer",
				redirect_limit = 2,
				retries = 0,
				timeout_seconds = 30,
			},
			locate = {
				policy = "Strict",
				published = { "macos-arm64", "linux-x64" },
				fallback = "linux-x64",
			},
			link = {
				enabled = false,
				command = { "pnpm", "root", "-g" },
			},
			verify = {
				keyring = "/etc/widget/keys.asc",
				signature_suffix = ".asc",
				checksums = "SHA256SUMS",
			},
		}
	`

	base := Default()
	cfg, err := NewParser(nil).ParseString(context.Background(), luaCode, base)
	if err != nil {
		t.Fatalf("ParseString() error = %v", err)
	}

	checks := []struct {
		name string
		got  interface{}
		want interface{}
	}{
		{"Repo", cfg.Repo, "acme/widget"},
		{"BinaryName", cfg.BinaryName, "wdg"},
		{"DisplayName", cfg.DisplayName, "widget"},
		{"BaseURL", cfg.BaseURL, "https://releases.example.com"},
		{"InstallRoot", cfg.InstallRoot, "/opt/widget"},
		{"Manifest", cfg.Manifest, "/opt/widget/package.json"},
		{"Force", cfg.Force, true},
		{"LockTimeout", cfg.LockTimeout, 5 * time.Second},
		{"UserAgent", cfg.Download.UserAgent, "widget-installer"},
		{"RedirectLimit", cfg.Download.RedirectLimit, 2},
		{"Retries", cfg.Download.Retries, 0},
		{"Timeout", cfg.Download.Timeout, 30 * time.Second},
		{"Policy", cfg.Locate.Policy, PolicyStrict},
		{"Published", len(cfg.Locate.Published), 2},
		{"Fallback", cfg.Locate.Fallback, platform.Key{OS: platform.OSLinux, Arch: platform.ArchX64}},
		{"Link.Enabled", cfg.Link.Enabled, false},
		{"Link.Command", strings.Join(cfg.Link.Command, " "), "pnpm root -g"},
		{"Keyring", cfg.Verify.Keyring, "/etc/widget/keys.asc"},
		{"SignatureSuffix", cfg.Verify.SignatureSuffix, ".asc"},
		{"Checksums", cfg.Verify.Checksums, "SHA256SUMS"},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}

	// base is untouched
	if base.Repo != "skyfe79/script-list" || len(base.Locate.Published) != 1 || base.Link.Command[0] != "npm" {
		t.Errorf("ParseString() modified base: %+v", base)
	}
}

func TestParser_ParseString_NegativeTimeouts(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		wantErr string
	}{
		{"download timeout", `provision = { download = { timeout_seconds = -1 } }`, "timeout must not be negative"},
		{"lock timeout", `provision = { lock_timeout_seconds = -30 }`, "lock timeout must not be negative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := NewParser(nil).ParseString(context.Background(), tt.code, Default())
			if err != nil {
				t.Fatalf("ParseString() error = %v", err)
			}
			err = cfg.Validate()
			if err == nil {
				t.Fatal("Validate() accepted a negative timeout")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want substring %q", err, tt.wantErr)
			}
		})
	}
}

func TestParser_ParseString_PlatformTable(t *testing.T) {
	luaCode := `
		provision = {
			install_root = platform.when(platform.is_windows, "C:/tools/sl") or "/usr/local/sl",
			locate = {
				published = { platform.target },
			},
		}
	`

	tests := []struct {
		name          string
		info          *platform.Info
		wantRoot      string
		wantPublished platform.Key
	}{
		{
			name:          "windows host",
			info:          &platform.Info{OS: "windows", Arch: "amd64"},
			wantRoot:      "C:/tools/sl",
			wantPublished: platform.Key{OS: platform.OSWindows, Arch: platform.ArchX64},
		},
		{
			name:          "linux host",
			info:          &platform.Info{OS: "linux", Arch: "arm64"},
			wantRoot:      "/usr/local/sl",
			wantPublished: platform.Key{OS: platform.OSLinux, Arch: platform.ArchARM64},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parser := NewParser(&mockDetector{info: tt.info})
			cfg, err := parser.ParseString(context.Background(), luaCode, Default())
			if err != nil {
				t.Fatalf("ParseString() error = %v", err)
			}
			if cfg.InstallRoot != tt.wantRoot {
				t.Errorf("InstallRoot = %q, want %q", cfg.InstallRoot, tt.wantRoot)
			}
			if len(cfg.Locate.Published) != 1 || cfg.Locate.Published[0] != tt.wantPublished {
				t.Errorf("Published = %v, want [%v]", cfg.Locate.Published, tt.wantPublished)
			}
		})
	}
}

func TestParser_ParseString_DetectorError(t *testing.T) {
	parser := NewParser(&mockDetector{err: errors.New("boom")})
	_, err := parser.ParseString(context.Background(), ``, Default())
	if err == nil || !strings.Contains(err.Error(), "platform detection failed") {
		t.Errorf("ParseString() error = %v, want platform detection failure", err)
	}
}

func TestParser_ParseString_Errors(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		wantMsg string
	}{
		{"syntax error", `provision = {`, "Lua syntax error"},
		{"not a table", `provision = "sl"`, "invalid 'provision' table"},
		{"wrong field type", `provision = { binary = 42 }`, "binary: expected string"},
		{"wrong bool type", `provision = { force = "yes" }`, "force: expected boolean"},
		{"wrong sub table", `provision = { download = 5 }`, "download: expected table"},
		{"bad published key", `provision = { locate = { published = { "beos-m68k" } } }`, "published"},
		{"bad fallback key", `provision = { locate = { fallback = "darwin-arm64" } }`, "fallback"},
		{"sandboxed", `provision = { manifest = os.getenv("HOME") }`, "Lua syntax error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewParser(nil).ParseString(context.Background(), tt.code, Default())
			var parseErr *ParseError
			if !errors.As(err, &parseErr) {
				t.Fatalf("ParseString() error = %v, want ParseError", err)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error = %v, want substring %q", err, tt.wantMsg)
			}
		})
	}
}

func TestParser_ParseFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultFileName)
	if err := os.WriteFile(path, []byte(`provision = { binary = "tool" }`), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := NewParser(nil).ParseFile(context.Background(), path, Default())
	if err != nil {
		t.Fatalf("ParseFile() error = %v", err)
	}
	if cfg.BinaryName != "tool" {
		t.Errorf("BinaryName = %q, want tool", cfg.BinaryName)
	}

	if _, err := NewParser(nil).ParseFile(context.Background(), filepath.Join(dir, "missing.lua"), Default()); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestFormatError(t *testing.T) {
	err := &ParseError{
		Message: "Lua syntax error",
		Detail:  "<string>:1: unexpected EOF\nstack traceback:\n\t[G]: ?",
	}

	short := FormatError(err, false)
	if strings.Contains(short, "stack traceback") {
		t.Errorf("FormatError(verbose=false) kept traceback: %q", short)
	}
	if !strings.HasPrefix(short, "Lua syntax error: ") {
		t.Errorf("FormatError(verbose=false) = %q", short)
	}

	long := FormatError(err, true)
	if !strings.Contains(long, "stack traceback") || !strings.Contains(long, "Details:") {
		t.Errorf("FormatError(verbose=true) = %q", long)
	}

	plain := errors.New("plain")
	if FormatError(plain, false) != "plain" {
		t.Errorf("FormatError(plain) = %q", FormatError(plain, false))
	}
}
