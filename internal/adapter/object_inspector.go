package adapter

import (
	"bytes"
	"debug/elf"
	"errors"
	"fmt"
	"io"
	"os"

	m "pkgabidiff.dev/pkg/pkgabidiff/internal/model"
)

var elfMagic = []byte{0x7f, 'E', 'L', 'F'}

// ObjectInspector reads the few ELF properties the checker relies on.
type ObjectInspector interface {
	// IsELF reports whether the file starts with the ELF magic.
	IsELF(path m.Path) (bool, error)
	// ReadSONAME returns DT_SONAME, or "" when the object has none.
	ReadSONAME(path m.Path) (string, error)
}

// ELFObjectInspector implements ObjectInspector with debug/elf.
type ELFObjectInspector struct{}

// NewELFObjectInspector constructs an ELFObjectInspector.
func NewELFObjectInspector() *ELFObjectInspector {
	return &ELFObjectInspector{}
}

// IsELF checks the first four bytes of the file.
func (i *ELFObjectInspector) IsELF(path m.Path) (bool, error) {
	//nolint:gosec // G304: path comes from the extracted package tree.
	f, err := os.Open(string(path))
	if err != nil {
		return false, err
	}

	defer func() { _ = f.Close() }()

	magic := make([]byte, len(elfMagic))
	if _, err := io.ReadFull(f, magic); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return false, nil
		}

		return false, err
	}

	return bytes.Equal(magic, elfMagic), nil
}

// ReadSONAME reads DT_SONAME from the dynamic section.
func (i *ELFObjectInspector) ReadSONAME(path m.Path) (string, error) {
	f, err := elf.Open(string(path))
	if err != nil {
		return "", fmt.Errorf("failed to open ELF file: %w", err)
	}
	//nolint:errcheck // Defer close on read-only file
	defer f.Close()

	names, err := f.DynString(elf.DT_SONAME)
	if err != nil {
		return "", fmt.Errorf("failed to read dynamic section: %w", err)
	}

	if len(names) == 0 {
		return "", nil
	}

	return names[0], nil
}
