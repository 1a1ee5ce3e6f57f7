package model

// PackageFormat is the archive format of a package file.
type PackageFormat string

const (
	FormatRPM  PackageFormat = "rpm"
	FormatDEB  PackageFormat = "deb"
	FormatAPK  PackageFormat = "apk"
	FormatTBZ2 PackageFormat = "tbz2"
	FormatXPAK PackageFormat = "xpak"
)

// SupportedFormats lists every package format the extractor understands.
var SupportedFormats = []PackageFormat{FormatRPM, FormatDEB, FormatAPK, FormatTBZ2, FormatXPAK}

// IsSupported reports whether f is one of SupportedFormats.
func (f PackageFormat) IsSupported() bool {
	for _, s := range SupportedFormats {
		if f == s {
			return true
		}
	}

	return false
}

// PackageKind is the role a package plays within a release.
type PackageKind string

const (
	// KindRelease carries the shared objects.
	KindRelease PackageKind = "rel"
	// KindDebug carries debug info for the release package.
	KindDebug PackageKind = "debug"
	// KindDevel carries public headers.
	KindDevel PackageKind = "devel"
)

// PackageKinds lists the kinds in extraction order.
var PackageKinds = []PackageKind{KindRelease, KindDebug, KindDevel}

// PackageAttributes are read from package metadata.
type PackageAttributes struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Arch    string `json:"arch"`
}

// Package is one input package file.
type Package struct {
	Path       Path
	Format     PackageFormat
	Kind       PackageKind
	Attributes PackageAttributes
}
