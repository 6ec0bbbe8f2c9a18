package compression

import (
	"io"

	"github.com/andybalholm/brotli"
)

const (
	// Quality is the fixed Brotli quality level used for every blob written
	// to the object store. It is part of the on-disk format: blobs are
	// never recompressed, and readers never vary their expectations based
	// on the quality used to write a given blob, so the value only needs to
	// be good enough, not tunable.
	Quality = 5
)

// NewDecompressingReader wraps source in a Brotli decompressor.
func NewDecompressingReader(source io.Reader) io.Reader {
	return brotli.NewReader(source)
}

// NewCompressingWriter wraps destination in a Brotli compressor fixed at
// Quality. The returned writer must be closed to flush the final block; an
// unclosed writer leaves a truncated, unreadable stream.
func NewCompressingWriter(destination io.Writer) io.WriteCloser {
	return brotli.NewWriterLevel(destination, Quality)
}
