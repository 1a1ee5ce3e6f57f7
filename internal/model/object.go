package model

// SharedObject is a shared library found in a release package.
type SharedObject struct {
	Name string // file name, e.g. libfoo.so.1.2
	Path Path   // absolute path inside the scratch area
	// SONAME is empty when the object carries no DT_SONAME.
	SONAME       string
	ShortName    string // libfoo.so
	ShortestName string // libfoo
}

// DumpAttributes are read from the head of an ABI dump.
type DumpAttributes struct {
	Language string
	Empty    bool
}

// ABIDump is a valid dump produced for one shared object.
type ABIDump struct {
	Object     string
	Path       Path
	Attributes DumpAttributes
	Cached     bool
}

// DumpKey addresses one entry of the on-disk dump cache.
type DumpKey struct {
	Arch    string
	Package string
	Version string
	Object  string
}
