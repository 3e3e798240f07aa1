package export

import (
	"io"
	"strings"

	"github.com/golang/snappy"
)

// CompressedExt is the file extension of snappy framed reports.
const CompressedExt = ".snappy"

// IsCompressed reports whether path names a snappy framed file.
func IsCompressed(path string) bool {
	return strings.HasSuffix(path, CompressedExt)
}

// NewCompressedWriter wraps w in the snappy framing format. Close flushes
// the last frame but does not close w.
func NewCompressedWriter(w io.Writer) io.WriteCloser {
	return snappy.NewBufferedWriter(w)
}

// NewCompressedReader reads a stream written by NewCompressedWriter.
func NewCompressedReader(r io.Reader) io.Reader {
	return snappy.NewReader(r)
}
