// Package fileutil loads database files from disk. Compressed fixtures and
// archived databases are common enough that .xz files are decompressed
// transparently.
package fileutil

import (
	"bytes"
	"io"
	"os"
	"strings"

	"github.com/ulikunitz/xz"

	"github.com/pagewalk/pagewalk/core/errors"
)

// xzMagic is the xz stream header.
var xzMagic = []byte{0xfd, '7', 'z', 'X', 'Z', 0x00}

// ReadDatabase reads the file at path into memory. Files with an .xz suffix
// or an xz stream header are decompressed first.
func ReadDatabase(path string) ([]byte, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}

	if strings.HasSuffix(path, ".xz") || bytes.HasPrefix(buf, xzMagic) {
		r, err := xz.NewReader(bytes.NewReader(buf))
		if err != nil {
			return nil, errors.Wrapf(err, "decompress %s", path)
		}
		buf, err = io.ReadAll(r)
		if err != nil {
			return nil, errors.Wrapf(err, "decompress %s", path)
		}
	}
	return buf, nil
}
