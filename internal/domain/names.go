package domain

import (
	"regexp"

	m "pkgabidiff.dev/pkg/pkgabidiff/internal/model"
)

var (
	// libfoo.so.1.2 -> libfoo.so; the .so must end the name or be followed by a dot.
	shortNamePattern = regexp.MustCompile(`^(.+\.so)(?:\..+|$)`)
	// libfoo-2.so.1 -> libfoo-
	shortestNamePattern = regexp.MustCompile(`^([^\d.]+)`)
)

// ShortName strips the version suffix after ".so". It returns "" when name
// has no ".so" component.
func ShortName(name string) string {
	match := shortNamePattern.FindStringSubmatch(name)
	if match == nil {
		return ""
	}

	return match[1]
}

// ShortestName returns the leading run of characters before the first digit
// or dot, or "" when name starts with one.
func ShortestName(name string) string {
	match := shortestNamePattern.FindStringSubmatch(name)
	if match == nil {
		return ""
	}

	return match[1]
}

// NewSharedObject builds a SharedObject with its normalized names filled in.
func NewSharedObject(name string, path m.Path, soname string) m.SharedObject {
	return m.SharedObject{
		Name:         name,
		Path:         path,
		SONAME:       soname,
		ShortName:    ShortName(name),
		ShortestName: ShortestName(name),
	}
}
