// Package manifest reads the version to install from a package manifest.
package manifest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// ErrUnreadable is wrapped by every error returned from Source.Version.
var ErrUnreadable = errors.New("manifest unreadable")

// Source supplies the version string to install.
type Source interface {
	Version(ctx context.Context) (string, error)
}

// File reads the version field of a manifest on disk. The format is chosen
// from the extension: .toml, .yaml/.yml, anything else is parsed as JSON.
type File struct {
	Path string
}

// NewFile returns a File for path.
func NewFile(path string) *File {
	return &File{Path: path}
}

// Version returns the trimmed version field. Only presence is checked.
func (f *File) Version(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", f.wrap(err)
	}

	data, err := os.ReadFile(f.Path)
	if err != nil {
		return "", f.wrap(err)
	}

	var version string
	switch strings.ToLower(filepath.Ext(f.Path)) {
	case ".toml":
		version, err = tomlVersion(data)
	case ".yaml", ".yml":
		version, err = yamlVersion(data)
	default:
		version, err = jsonVersion(data)
	}
	if err != nil {
		return "", f.wrap(err)
	}

	version = strings.TrimSpace(version)
	if version == "" {
		return "", f.wrap(errors.New("no version field"))
	}
	return version, nil
}

func (f *File) wrap(err error) error {
	return fmt.Errorf("%w: %s: %w", ErrUnreadable, f.Path, err)
}

func jsonVersion(data []byte) (string, error) {
	var doc struct {
		Version json.RawMessage `json:"version"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return "", fmt.Errorf("parse json: %w", err)
	}
	if len(doc.Version) == 0 || string(doc.Version) == "null" {
		return "", nil
	}
	var version string
	if err := json.Unmarshal(doc.Version, &version); err != nil {
		return "", fmt.Errorf("version is not a string: %s", doc.Version)
	}
	return version, nil
}

type tomlSection struct {
	Version string `toml:"version"`
}

func tomlVersion(data []byte) (string, error) {
	var doc struct {
		Version string      `toml:"version"`
		Package tomlSection `toml:"package"`
		Project tomlSection `toml:"project"`
	}
	if err := toml.Unmarshal(data, &doc); err != nil {
		return "", fmt.Errorf("parse toml: %w", err)
	}
	for _, v := range []string{doc.Version, doc.Package.Version, doc.Project.Version} {
		if strings.TrimSpace(v) != "" {
			return v, nil
		}
	}
	return "", nil
}

func yamlVersion(data []byte) (string, error) {
	var doc struct {
		Version string `yaml:"version"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return "", fmt.Errorf("parse yaml: %w", err)
	}
	return doc.Version, nil
}

// Static is a Source with a fixed version.
type Static string

// Version returns s, or an ErrUnreadable error when it is blank.
func (s Static) Version(ctx context.Context) (string, error) {
	v := strings.TrimSpace(string(s))
	if v == "" {
		return "", fmt.Errorf("%w: empty version", ErrUnreadable)
	}
	return v, nil
}
