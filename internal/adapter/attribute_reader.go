package adapter

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/klauspost/compress/gzip"

	m "pkgabidiff.dev/pkg/pkgabidiff/internal/model"
)

var (
	debFieldPattern = regexp.MustCompile(`^(\w+)\s*:\s*(.+)`)
	apkFieldPattern = regexp.MustCompile(`^(\w+)\s*=\s*(.+)`)
	// PF is "${PN}-${PV}" or "${PN}-${PV}-r${PR}".
	gentooPFPattern = regexp.MustCompile(`^(.+?)-(\d+(?:\.\d+)*[a-z]?(?:_(?:alpha|beta|pre|rc|p)\d*)*(?:-r\d+)?)$`)
)

// AttributeReader extracts name, version and architecture from a package file.
type AttributeReader interface {
	ReadAttributes(ctx context.Context, path m.Path, format m.PackageFormat) (m.PackageAttributes, error)
}

// LocalAttributeReader queries rpm and dpkg and parses apk and Gentoo
// metadata natively.
type LocalAttributeReader struct {
	runner CommandRunner
}

// NewLocalAttributeReader constructs a LocalAttributeReader.
func NewLocalAttributeReader(runner CommandRunner) *LocalAttributeReader {
	return &LocalAttributeReader{runner: runner}
}

// ReadAttributes returns the attributes or an error when any of them is missing.
func (a *LocalAttributeReader) ReadAttributes(ctx context.Context, path m.Path, format m.PackageFormat) (m.PackageAttributes, error) {
	var (
		attrs m.PackageAttributes
		err   error
	)

	switch format {
	case m.FormatRPM:
		attrs, err = a.readRPM(ctx, path)
	case m.FormatDEB:
		attrs, err = a.readDEB(ctx, path)
	case m.FormatAPK:
		attrs, err = readAPKInfo(path)
	case m.FormatTBZ2, m.FormatXPAK:
		attrs, err = readBinpkgInfo(path)
	default:
		err = fmt.Errorf("unknown format %q", format)
	}

	if err != nil {
		return m.PackageAttributes{}, fmt.Errorf("can't read attributes of a package %s: %w", path, err)
	}

	if attrs.Name == "" || attrs.Version == "" || attrs.Arch == "" {
		return m.PackageAttributes{}, fmt.Errorf("can't read attributes of a package %s", path)
	}

	return attrs, nil
}

func (a *LocalAttributeReader) readRPM(ctx context.Context, path m.Path) (m.PackageAttributes, error) {
	result, err := a.runner.Run(ctx, Command{
		Name: "rpm",
		Args: []string{"-qp", "--queryformat", "%{name},%{version},%{release},%{arch}", string(path)},
	})
	if err != nil {
		return m.PackageAttributes{}, err
	}

	parts := strings.Split(strings.TrimSpace(result.Stdout), ",")
	if len(parts) != 4 {
		return m.PackageAttributes{}, fmt.Errorf("unexpected rpm query output %q", result.Stdout)
	}

	return m.PackageAttributes{
		Name:    parts[0],
		Version: parts[1] + "-" + parts[2],
		Arch:    parts[3],
	}, nil
}

func (a *LocalAttributeReader) readDEB(ctx context.Context, path m.Path) (m.PackageAttributes, error) {
	result, err := a.runner.Run(ctx, Command{Name: "dpkg", Args: []string{"-f", string(path)}})
	if err != nil {
		return m.PackageAttributes{}, err
	}

	fields := parseFields(result.Stdout, debFieldPattern)

	return m.PackageAttributes{
		Name:    fields["Package"],
		Version: fields["Version"],
		Arch:    fields["Architecture"],
	}, nil
}

func readAPKInfo(path m.Path) (m.PackageAttributes, error) {
	//nolint:gosec // G304: package path given on the command line.
	f, err := os.Open(string(path))
	if err != nil {
		return m.PackageAttributes{}, err
	}

	defer func() { _ = f.Close() }()

	zr, err := gzip.NewReader(f)
	if err != nil {
		return m.PackageAttributes{}, err
	}

	defer func() { _ = zr.Close() }()

	tr := tar.NewReader(zr)

	for {
		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return m.PackageAttributes{}, errors.New(".PKGINFO not found")
		}

		if err != nil {
			return m.PackageAttributes{}, err
		}

		if strings.TrimPrefix(header.Name, "./") != ".PKGINFO" {
			continue
		}

		content, err := io.ReadAll(tr)
		if err != nil {
			return m.PackageAttributes{}, err
		}

		fields := parseFields(string(content), apkFieldPattern)

		return m.PackageAttributes{
			Name:    fields["pkgname"],
			Version: fields["pkgver"],
			Arch:    fields["arch"],
		}, nil
	}
}

func readBinpkgInfo(path m.Path) (m.PackageAttributes, error) {
	//nolint:gosec // G304: package path given on the command line.
	f, err := os.Open(string(path))
	if err != nil {
		return m.PackageAttributes{}, err
	}

	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return m.PackageAttributes{}, err
	}

	values, err := readXPAK(f, info.Size())
	if err != nil {
		return m.PackageAttributes{}, err
	}

	return binpkgAttributes(values)
}

func binpkgAttributes(values map[string]string) (m.PackageAttributes, error) {
	category := strings.TrimSpace(values["CATEGORY"])
	pf := strings.TrimSpace(values["PF"])

	match := gentooPFPattern.FindStringSubmatch(pf)
	if category == "" || match == nil {
		return m.PackageAttributes{}, fmt.Errorf("can't split package name %q", category+"/"+pf)
	}

	return m.PackageAttributes{
		Name:    category + "/" + match[1],
		Version: match[2],
		// CHOST is not strictly an architecture but identifies the target well enough.
		Arch: strings.TrimSpace(values["CHOST"]),
	}, nil
}

func parseFields(text string, pattern *regexp.Regexp) map[string]string {
	fields := map[string]string{}

	for _, line := range strings.Split(text, "\n") {
		match := pattern.FindStringSubmatch(line)
		if match == nil {
			continue
		}

		fields[match[1]] = strings.TrimSpace(match[2])
	}

	return fields
}
