package domain

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	m "pkgabidiff.dev/pkg/pkgabidiff/internal/model"
)

var (
	develPackagePattern = regexp.MustCompile(`-(headers-|devel-|dev-|dev_)`)
	debugPackagePattern = regexp.MustCompile(`-(debuginfo-|dbg[_-]|dbgsym_)`)

	objectNamePattern = regexp.MustCompile(`lib.*\.so(\..+|$)`)
	headerNamePattern = regexp.MustCompile(`\.(h|hh|hp|hxx|hpp|h\+\+|tcc)$`)
)

// ErrInvalidInput marks problems with the packages given on the command line.
var ErrInvalidInput = errors.New("invalid input")

// DetectFormat returns the package format from the file extension.
func DetectFormat(path m.Path) (m.PackageFormat, error) {
	ext := strings.TrimPrefix(filepath.Ext(string(path)), ".")

	format := m.PackageFormat(ext)
	if ext == "" || !format.IsSupported() {
		return "", fmt.Errorf("%w: unknown format of package %s", ErrInvalidInput, path)
	}

	return format, nil
}

// DetectKind derives the package kind from its file name.
func DetectKind(fileName string) m.PackageKind {
	switch {
	case develPackagePattern.MatchString(fileName):
		return m.KindDevel
	case debugPackagePattern.MatchString(fileName):
		return m.KindDebug
	default:
		return m.KindRelease
	}
}

// ClassifyPackages sorts the package files of one side by kind. A side takes
// exactly one release and one debug package and any number of devel packages.
func ClassifyPackages(age m.Age, paths []m.Path) (map[m.PackageKind][]m.Package, error) {
	packages := map[m.PackageKind][]m.Package{}

	for _, path := range paths {
		format, err := DetectFormat(path)
		if err != nil {
			return nil, err
		}

		kind := DetectKind(filepath.Base(string(path)))
		if kind != m.KindDevel && len(packages[kind]) > 0 {
			return nil, fmt.Errorf("%w: only one %s package can be specified (%s)", ErrInvalidInput, kindLabel(kind), age)
		}

		packages[kind] = append(packages[kind], m.Package{Path: path, Format: format, Kind: kind})
	}

	if len(packages[m.KindRelease]) == 0 {
		return nil, fmt.Errorf("%w: %s release package is not specified", ErrInvalidInput, age)
	}

	if len(packages[m.KindDebug]) == 0 {
		return nil, fmt.Errorf("%w: %s debuginfo package is not specified", ErrInvalidInput, age)
	}

	return packages, nil
}

// ResolveSideAttributes checks that all packages of a side share version and
// architecture and stores the release package attributes on the side.
func ResolveSideAttributes(side *m.ReleaseSide) error {
	for _, kind := range m.PackageKinds {
		pkgs := side.Packages[kind]

		for i := 1; i < len(pkgs); i++ {
			if pkgs[i].Attributes.Version != pkgs[0].Attributes.Version {
				return fmt.Errorf("%w: different versions of %s packages (%s)", ErrInvalidInput, kind, side.Age)
			}

			if pkgs[i].Attributes.Arch != pkgs[0].Attributes.Arch {
				return fmt.Errorf("%w: different architectures of %s packages (%s)", ErrInvalidInput, kind, side.Age)
			}
		}
	}

	release := side.Packages[m.KindRelease][0].Attributes

	for _, kind := range []m.PackageKind{m.KindDebug, m.KindDevel} {
		if !side.HasKind(kind) {
			continue
		}

		attrs := side.Packages[kind][0].Attributes
		if attrs.Version != release.Version {
			return fmt.Errorf("%w: different versions of packages (%s)", ErrInvalidInput, side.Age)
		}

		if attrs.Arch != release.Arch {
			return fmt.Errorf("%w: different architectures of packages (%s)", ErrInvalidInput, side.Age)
		}
	}

	side.Attributes = release

	return nil
}

// CheckDevelPackages requires devel packages on both sides or on neither,
// with the same count. It reports whether the public ABI can be filtered with
// headers, and a warning when it cannot.
func CheckDevelPackages(oldSide, newSide *m.ReleaseSide) (publicABI bool, warnings []string, err error) {
	oldDevel, newDevel := oldSide.HasKind(m.KindDevel), newSide.HasKind(m.KindDevel)

	switch {
	case oldDevel && newDevel:
		if len(oldSide.Packages[m.KindDevel]) != len(newSide.Packages[m.KindDevel]) {
			return false, nil, fmt.Errorf("%w: different number of old and new devel packages", ErrInvalidInput)
		}

		return true, nil, nil
	case oldDevel:
		return false, nil, fmt.Errorf("%w: new devel package is not specified", ErrInvalidInput)
	case newDevel:
		return false, nil, fmt.Errorf("%w: old devel package is not specified", ErrInvalidInput)
	default:
		return false, []string{"devel packages are not specified, can't filter public ABI"}, nil
	}
}

// CompareAttributes checks the resolved attributes of both sides. Differing
// names are only a warning.
func CompareAttributes(oldSide, newSide *m.ReleaseSide) (warnings []string, err error) {
	if oldSide.Attributes.Name != newSide.Attributes.Name {
		warnings = append(warnings, "different names of old and new packages")
	}

	if oldSide.Attributes.Arch != newSide.Attributes.Arch {
		return warnings, fmt.Errorf("%w: different architectures of old and new packages", ErrInvalidInput)
	}

	return warnings, nil
}

// IsObjectName reports whether a file name looks like a shared library.
// Callers still need to check the ELF magic.
func IsObjectName(name string) bool {
	return objectNamePattern.MatchString(name)
}

// IsHeaderFile reports whether an extracted devel file is a public header.
func IsHeaderFile(path string) bool {
	return strings.Contains(path, "/include/") || headerNamePattern.MatchString(filepath.Base(path))
}

// IsDebugInfoName reports whether a debug package file is a separate debug
// info file by name.
func IsDebugInfoName(name string) bool {
	return strings.HasSuffix(name, ".debug")
}

func kindLabel(kind m.PackageKind) string {
	if kind == m.KindRelease {
		return "release"
	}

	return string(kind)
}
