package model

import "strings"

// ReleaseSide holds everything known about one side of a comparison.
type ReleaseSide struct {
	Age        Age
	Packages   map[PackageKind][]Package
	Attributes PackageAttributes
	// ExtractDirs maps a package kind to the directory it was unpacked into.
	ExtractDirs map[PackageKind]Path
	Files       map[FileKind][]Path
	Objects     []SharedObject
	// Dumps holds valid dumps keyed by object file name.
	Dumps map[string]ABIDump
}

// NewReleaseSide returns an empty side ready to be filled.
func NewReleaseSide(age Age) *ReleaseSide {
	return &ReleaseSide{
		Age:         age,
		Packages:    map[PackageKind][]Package{},
		ExtractDirs: map[PackageKind]Path{},
		Files:       map[FileKind][]Path{},
		Dumps:       map[string]ABIDump{},
	}
}

// HasKind reports whether at least one package of kind was given.
func (s *ReleaseSide) HasKind(kind PackageKind) bool {
	return len(s.Packages[kind]) > 0
}

// DumpedObjects returns the objects that have a valid dump, in Objects order.
func (s *ReleaseSide) DumpedObjects() []SharedObject {
	objects := make([]SharedObject, 0, len(s.Dumps))

	for _, obj := range s.Objects {
		if _, ok := s.Dumps[obj.Name]; ok {
			objects = append(objects, obj)
		}
	}

	return objects
}

// Object returns the object with the given file name.
func (s *ReleaseSide) Object(name string) (SharedObject, bool) {
	for _, obj := range s.Objects {
		if obj.Name == name {
			return obj, true
		}
	}

	return SharedObject{}, false
}

// LessFold orders names case-insensitively, falling back to byte order.
func LessFold(a, b string) bool {
	la, lb := strings.ToLower(a), strings.ToLower(b)
	if la != lb {
		return la < lb
	}

	return a < b
}
