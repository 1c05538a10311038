package binary

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/skyfe79/provision/internal/platform"
)

func TestCommandBinDirLocator(t *testing.T) {
	prefix := filepath.Join("usr", "local")

	tests := []struct {
		name    string
		output  string
		runErr  error
		target  platform.OS
		want    string
		wantErr bool
	}{
		{"unix prefix", prefix + "\n", nil, platform.OSMacOS, filepath.Join(prefix, "bin"), false},
		{"linux prefix with blank lines", "\n  " + prefix + "  \n", nil, platform.OSLinux, filepath.Join(prefix, "bin"), false},
		{"windows uses prefix", `C:\npm` + "\r\n", nil, platform.OSWindows, `C:\npm`, false},
		{"empty output", "   \n", nil, platform.OSLinux, "", true},
		{"command fails", "", errors.New("exit status 1"), platform.OSLinux, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotArgs []string
			locator := NewCommandBinDirLocator([]string{"npm", "prefix", "-g"})
			locator.run = func(ctx context.Context, name string, args ...string) ([]byte, error) {
				gotArgs = append([]string{name}, args...)
				return []byte(tt.output), tt.runErr
			}

			got, err := locator.GlobalBinDir(context.Background(), tt.target)
			if (err != nil) != tt.wantErr {
				t.Fatalf("GlobalBinDir() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("GlobalBinDir() = %q, want %q", got, tt.want)
			}
			if !reflect.DeepEqual(gotArgs, []string{"npm", "prefix", "-g"}) {
				t.Errorf("ran %v", gotArgs)
			}
		})
	}
}

func TestCommandBinDirLocator_NoCommand(t *testing.T) {
	if _, err := NewCommandBinDirLocator(nil).GlobalBinDir(context.Background(), platform.OSLinux); err == nil {
		t.Error("expected error without a command")
	}
}

func TestSameDir(t *testing.T) {
	dir := t.TempDir()
	if !sameDir(dir, dir+string(filepath.Separator)) {
		t.Error("sameDir should ignore trailing separators")
	}
	if sameDir(dir, filepath.Join(dir, "other")) {
		t.Error("sameDir matched different directories")
	}
}
