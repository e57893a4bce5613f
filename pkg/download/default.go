package download

import (
	"archive/zip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Sha256Checksum is the default ChecksumAlgorithm: lower-case hex SHA-256.
func Sha256Checksum(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// OSFilesystem is the default Filesystem collaborator, backed directly by
// the local disk. No third-party library in the example pack offers a
// dedicated filesystem abstraction beyond what os/io provide, so this
// collaborator is built on the standard library (see DESIGN.md).
type OSFilesystem struct{}

// Exists reports whether path exists on disk.
func (OSFilesystem) Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// CreateDirectory creates path, optionally including any missing parents.
func (OSFilesystem) CreateDirectory(_ context.Context, path string, recursive bool) error {
	if recursive {
		return os.MkdirAll(path, 0o755)
	}
	return os.Mkdir(path, 0o755)
}

// RemoveFileTree removes path and everything under it. It is a no-op if
// path does not exist.
func (OSFilesystem) RemoveFileTree(_ context.Context, path string) error {
	return os.RemoveAll(path)
}

// ReadFileContents reads path in full.
func (OSFilesystem) ReadFileContents(_ context.Context, path string) ([]byte, error) {
	return os.ReadFile(path)
}

// WriteFileContents writes content to path, creating or truncating it.
func (OSFilesystem) WriteFileContents(_ context.Context, path string, content []byte) error {
	return os.WriteFile(path, content, 0o644)
}

// StripFirstLevel moves the contents of the single top-level directory
// inside dir up into dir itself, then removes the now-empty wrapper. This
// is a no-op if dir's contents are not a single directory.
func (OSFilesystem) StripFirstLevel(_ context.Context, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	if len(entries) != 1 || !entries[0].IsDir() {
		return nil
	}
	wrapper := filepath.Join(dir, entries[0].Name())
	inner, err := os.ReadDir(wrapper)
	if err != nil {
		return err
	}
	for _, e := range inner {
		if err := os.Rename(filepath.Join(wrapper, e.Name()), filepath.Join(dir, e.Name())); err != nil {
			return err
		}
	}
	return os.Remove(wrapper)
}

// ZipExtractor is the default Extractor, backed by archive/zip. The example
// pack has no third-party archive library in wide use across complete
// repos; the teacher and its neighbors reach for archive/zip directly for
// this exact concern (see DESIGN.md).
type ZipExtractor struct{}

// Extract unpacks the zip archive at from into directory to, which must
// already exist.
func (ZipExtractor) Extract(_ context.Context, from, to string) error {
	r, err := zip.OpenReader(from)
	if err != nil {
		return err
	}
	defer r.Close()

	for _, f := range r.File {
		destPath := filepath.Join(to, f.Name)
		if !isWithinDir(to, destPath) {
			return fmt.Errorf("zip entry %q escapes extraction directory", f.Name)
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(destPath, 0o755); err != nil {
				return err
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
			return err
		}
		if err := extractOneFile(f, destPath); err != nil {
			return err
		}
	}
	return nil
}

func extractOneFile(f *zip.File, destPath string) error {
	src, err := f.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, f.Mode())
	if err != nil {
		return err
	}
	defer dst.Close()

	_, err = io.Copy(dst, src)
	return err
}

func isWithinDir(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !filepath.IsAbs(rel) && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
