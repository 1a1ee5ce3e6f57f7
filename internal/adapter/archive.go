package adapter

import (
	"archive/tar"
	"bytes"
	"compress/bzip2"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	m "pkgabidiff.dev/pkg/pkgabidiff/internal/model"
)

var (
	gzipMagic  = []byte{0x1f, 0x8b}
	bzip2Magic = []byte("BZh")
	zstdMagic  = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// PackageExtractor unpacks a package into a directory.
type PackageExtractor interface {
	Extract(ctx context.Context, pkg m.Package, dest m.Path) error
}

// LocalPackageExtractor uses rpm2cpio/cpio and dpkg-deb for rpm and deb and
// reads apk and Gentoo binary packages natively.
type LocalPackageExtractor struct {
	runner CommandRunner
}

// NewLocalPackageExtractor constructs a LocalPackageExtractor.
func NewLocalPackageExtractor(runner CommandRunner) *LocalPackageExtractor {
	return &LocalPackageExtractor{runner: runner}
}

// Extract unpacks pkg into dest, which must exist.
func (e *LocalPackageExtractor) Extract(ctx context.Context, pkg m.Package, dest m.Path) error {
	abs, err := filepath.Abs(string(pkg.Path))
	if err != nil {
		return fmt.Errorf("resolve package path: %w", err)
	}

	switch pkg.Format {
	case m.FormatRPM:
		_, err = e.runner.Run(ctx, Command{
			Name: "/bin/sh",
			Args: []string{"-c", `rpm2cpio "$1" | cpio -id --quiet`, "sh", abs},
			Dir:  string(dest),
		})
	case m.FormatDEB:
		_, err = e.runner.Run(ctx, Command{Name: "dpkg-deb", Args: []string{"--extract", abs, string(dest)}})
	case m.FormatAPK:
		err = e.extractAPK(abs, string(dest))
	case m.FormatTBZ2, m.FormatXPAK:
		err = e.extractBinpkg(ctx, abs, string(dest))
	default:
		err = fmt.Errorf("unknown format of package %q", pkg.Path)
	}

	if err != nil {
		return fmt.Errorf("extract %s: %w", filepath.Base(abs), err)
	}

	return nil
}

// extractAPK reads the concatenated gzip streams of an Alpine package as one tar stream.
func (e *LocalPackageExtractor) extractAPK(path, dest string) error {
	//nolint:gosec // G304: package path given on the command line.
	f, err := os.Open(path)
	if err != nil {
		return err
	}

	defer func() { _ = f.Close() }()

	zr, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("open gzip stream: %w", err)
	}

	defer func() { _ = zr.Close() }()

	return ExtractTar(zr, dest)
}

// extractBinpkg unpacks a Gentoo tbz2/xpak: a compressed tarball followed by
// an XPAK metadata trailer.
func (e *LocalPackageExtractor) extractBinpkg(ctx context.Context, path, dest string) error {
	//nolint:gosec // G304: package path given on the command line.
	f, err := os.Open(path)
	if err != nil {
		return err
	}

	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return err
	}

	size := info.Size()
	if _, xpakLen, err := locateXPAK(f, size); err == nil {
		size -= int64(xpakLen) + xpakTrailerLen
	}

	data := io.NewSectionReader(f, 0, size)

	head := make([]byte, 4)
	if _, err := data.ReadAt(head, 0); err != nil && !errors.Is(err, io.EOF) {
		return err
	}

	var r io.Reader

	switch {
	case bytes.HasPrefix(head, bzip2Magic):
		r = bzip2.NewReader(data)
	case bytes.HasPrefix(head, gzipMagic):
		zr, err := gzip.NewReader(data)
		if err != nil {
			return err
		}

		defer func() { _ = zr.Close() }()

		r = zr
	case bytes.HasPrefix(head, zstdMagic):
		zr, err := zstd.NewReader(data)
		if err != nil {
			return err
		}

		defer zr.Close()

		r = zr
	default:
		// Let tar detect anything else (xz, lzip, ...).
		_, err := e.runner.Run(ctx, Command{Name: "tar", Args: []string{"-xf", path, "-C", dest}})
		return err
	}

	return ExtractTar(r, dest)
}

// ExtractTar writes the regular files and directories of a tar stream below
// dest. Symbolic links are skipped and entries escaping dest are rejected.
func ExtractTar(r io.Reader, dest string) error {
	tr := tar.NewReader(r)

	for {
		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}

		if err != nil {
			return fmt.Errorf("read tar entry: %w", err)
		}

		target, err := safeJoin(dest, header.Name)
		if err != nil {
			return err
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o750); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := writeTarFile(tr, target, header.FileInfo().Mode().Perm()); err != nil {
				return err
			}
		case tar.TypeLink:
			source, err := safeJoin(dest, header.Linkname)
			if err != nil {
				return err
			}

			if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
				return err
			}

			if err := os.Link(source, target); err != nil {
				return fmt.Errorf("hard link %s: %w", header.Name, err)
			}
		default:
			// Symlinks, devices and fifos carry nothing the checker reads.
		}
	}
}

func writeTarFile(r io.Reader, target string, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
		return err
	}

	//nolint:gosec // G304: target is validated by safeJoin.
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm|0o600)
	if err != nil {
		return err
	}

	//nolint:gosec // G110: package contents are trusted input to the checker.
	if _, err := io.Copy(out, r); err != nil {
		_ = out.Close()
		return fmt.Errorf("write %s: %w", target, err)
	}

	return out.Close()
}

func safeJoin(dest, name string) (string, error) {
	target := filepath.Join(dest, filepath.Clean("/"+name))

	rel, err := filepath.Rel(dest, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("archive entry %q escapes the extraction directory", name)
	}

	return target, nil
}
