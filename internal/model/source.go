// Package model defines the data structures shared by the package ABI checker.
package model

// Path represents a file system path.
type Path string

// Age identifies one side of a comparison.
type Age string

const (
	// AgeOld is the baseline release.
	AgeOld Age = "old"
	// AgeNew is the release checked against the baseline.
	AgeNew Age = "new"
)

// Ages lists both sides in processing order.
var Ages = []Age{AgeOld, AgeNew}

// FileKind classifies an extracted file.
type FileKind string

const (
	// FileObject is a shared object (ELF, lib*.so*) from a release package.
	FileObject FileKind = "object"
	// FileDebugInfo is a separate debug info file from a debug package.
	FileDebugInfo FileKind = "debuginfo"
	// FileHeader is a public header from a devel package.
	FileHeader FileKind = "header"
)
