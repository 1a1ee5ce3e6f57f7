package adapter

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	xpakTrailerLen = 8 // 4-byte big-endian length + "STOP"
	xpakHeaderLen  = 16
)

var (
	errNoXPAK   = errors.New("xpak trailer not found")
	xpakStop    = []byte("STOP")
	xpakPack    = []byte("XPAKPACK")
	xpakEndMark = []byte("XPAKSTOP")
)

// locateXPAK returns the offset and length of the XPAK segment appended to a
// Gentoo binary package of the given size.
func locateXPAK(r io.ReaderAt, size int64) (int64, uint32, error) {
	if size < xpakTrailerLen {
		return 0, 0, errNoXPAK
	}

	trailer := make([]byte, xpakTrailerLen)
	if _, err := r.ReadAt(trailer, size-xpakTrailerLen); err != nil {
		return 0, 0, err
	}

	if !bytes.Equal(trailer[4:], xpakStop) {
		return 0, 0, errNoXPAK
	}

	length := binary.BigEndian.Uint32(trailer[:4])

	offset := size - xpakTrailerLen - int64(length)
	if offset < 0 {
		return 0, 0, errNoXPAK
	}

	return offset, length, nil
}

// readXPAK decodes the key/value metadata of a Gentoo binary package.
func readXPAK(r io.ReaderAt, size int64) (map[string]string, error) {
	offset, length, err := locateXPAK(r, size)
	if err != nil {
		return nil, err
	}

	blob := make([]byte, length)
	if _, err := r.ReadAt(blob, offset); err != nil {
		return nil, fmt.Errorf("read xpak: %w", err)
	}

	return decodeXPAK(blob)
}

func decodeXPAK(blob []byte) (map[string]string, error) {
	if len(blob) < xpakHeaderLen+len(xpakEndMark) || !bytes.HasPrefix(blob, xpakPack) {
		return nil, errors.New("malformed xpak header")
	}

	indexLen := int(binary.BigEndian.Uint32(blob[8:12]))
	dataLen := int(binary.BigEndian.Uint32(blob[12:16]))

	indexStart := xpakHeaderLen
	dataStart := indexStart + indexLen

	if dataStart+dataLen > len(blob) {
		return nil, errors.New("xpak segments exceed blob size")
	}

	index := blob[indexStart:dataStart]
	data := blob[dataStart : dataStart+dataLen]
	values := map[string]string{}

	for pos := 0; pos < len(index); {
		if pos+4 > len(index) {
			return nil, errors.New("truncated xpak index")
		}

		nameLen := int(binary.BigEndian.Uint32(index[pos : pos+4]))
		pos += 4

		if pos+nameLen+8 > len(index) {
			return nil, errors.New("truncated xpak index entry")
		}

		name := string(index[pos : pos+nameLen])
		pos += nameLen

		valueOffset := int(binary.BigEndian.Uint32(index[pos : pos+4]))
		valueLen := int(binary.BigEndian.Uint32(index[pos+4 : pos+8]))
		pos += 8

		if valueOffset+valueLen > len(data) {
			return nil, fmt.Errorf("xpak value %q out of range", name)
		}

		values[name] = string(data[valueOffset : valueOffset+valueLen])
	}

	return values, nil
}
