package binary

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// ArchiveExtractor unpacks a .tar.gz archive into a directory. Existing files
// not present in the archive are left alone.
type ArchiveExtractor interface {
	Extract(ctx context.Context, archivePath, destDir string) error
}

// DefaultExtractor returns a TarCommandExtractor when tar is on PATH and a
// NativeExtractor otherwise.
func DefaultExtractor() ArchiveExtractor {
	if path, err := exec.LookPath("tar"); err == nil {
		return &TarCommandExtractor{Path: path}
	}
	return &NativeExtractor{}
}

// TarCommandExtractor runs the system tar.
type TarCommandExtractor struct {
	// Path to the tar executable. Empty means "tar" from PATH.
	Path string
}

// Extract runs tar -xzf archivePath -C destDir.
func (e *TarCommandExtractor) Extract(ctx context.Context, archivePath, destDir string) error {
	tarPath := e.Path
	if tarPath == "" {
		tarPath = "tar"
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return &ExtractionFailedError{Archive: archivePath, Err: fmt.Errorf("create dest dir: %w", err)}
	}

	cmd := exec.CommandContext(ctx, tarPath, "-xzf", archivePath, "-C", destDir)
	output, err := cmd.CombinedOutput()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		return &ExtractionFailedError{
			Archive: archivePath,
			Output:  strings.TrimSpace(string(output)),
			Err:     err,
		}
	}
	return nil
}

// NativeExtractor extracts in-process with archive/tar. Only directories,
// regular files and symlinks are created; entries and link targets that
// would land outside destDir are rejected.
type NativeExtractor struct{}

// Extract extracts archivePath into destDir.
func (e *NativeExtractor) Extract(ctx context.Context, archivePath, destDir string) error {
	if err := e.extract(ctx, archivePath, destDir); err != nil {
		return &ExtractionFailedError{Archive: archivePath, Err: err}
	}
	return nil
}

func (e *NativeExtractor) extract(ctx context.Context, archivePath, destDir string) error {
	archiveFile, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer archiveFile.Close()

	gzipReader, err := gzip.NewReader(archiveFile)
	if err != nil {
		return fmt.Errorf("create gzip reader: %w", err)
	}
	defer gzipReader.Close()

	tarReader := tar.NewReader(gzipReader)

	destDir = filepath.Clean(destDir)
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("create dest dir: %w", err)
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		header, err := tarReader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read tar header: %w", err)
		}

		target := filepath.Join(destDir, header.Name)
		if !withinDir(destDir, target) {
			return fmt.Errorf("illegal file path: %s", header.Name)
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("create directory %s: %w", target, err)
			}

		case tar.TypeReg:
			if err := writeEntry(tarReader, target, header.FileInfo().Mode().Perm()); err != nil {
				return err
			}

		case tar.TypeSymlink:
			linkTarget := header.Linkname
			if !filepath.IsAbs(linkTarget) {
				linkTarget = filepath.Join(filepath.Dir(target), linkTarget)
			}
			if !withinDir(destDir, linkTarget) {
				return fmt.Errorf("illegal symlink target: %s -> %s", header.Name, header.Linkname)
			}
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return fmt.Errorf("create parent dir for %s: %w", target, err)
			}
			if err := os.Remove(target); err != nil && !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("replace %s: %w", target, err)
			}
			if err := os.Symlink(header.Linkname, target); err != nil {
				return fmt.Errorf("create symlink %s: %w", target, err)
			}

		default:
			// Skip other types (char devices, block devices, etc.)
			continue
		}
	}
}

func writeEntry(r io.Reader, target string, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("create parent dir for %s: %w", target, err)
	}

	outFile, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return fmt.Errorf("create file %s: %w", target, err)
	}

	if _, err := io.Copy(outFile, r); err != nil {
		outFile.Close()
		return fmt.Errorf("write file %s: %w", target, err)
	}
	return outFile.Close()
}

// withinDir reports whether path is dir or below it. Both must be clean.
func withinDir(dir, path string) bool {
	rel, err := filepath.Rel(dir, filepath.Clean(path))
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(os.PathSeparator))
}
