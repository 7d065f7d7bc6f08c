package http

import (
	"bytes"
	"compress/gzip"
	"compress/zlib"
	"fmt"
	"io"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
)

// Compression algorithms accepted in Config.Compression.
const (
	CompressionNone   = "none"
	CompressionGzip   = "gzip"
	CompressionZstd   = "zstd"
	CompressionZlib   = "zlib"
	CompressionSnappy = "snappy"
)

// contentEncodings maps an algorithm to its Content-Encoding header.
var contentEncodings = map[string]string{
	CompressionGzip:   "gzip",
	CompressionZstd:   "zstd",
	CompressionZlib:   "deflate",
	CompressionSnappy: "snappy",
}

// Compressor compresses request bodies with one algorithm.
type Compressor struct {
	algorithm string
	encoder   *zstd.Encoder
}

// NewCompressor returns a Compressor for algorithm. An empty algorithm
// means no compression.
func NewCompressor(algorithm string) (*Compressor, error) {
	c := &Compressor{algorithm: algorithm}

	switch algorithm {
	case "", CompressionNone, CompressionGzip, CompressionZlib, CompressionSnappy:
	case CompressionZstd:
		// zstd encoders are expensive, keep one for EncodeAll.
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return nil, fmt.Errorf("creating zstd encoder: %w", err)
		}

		c.encoder = enc
	default:
		return nil, fmt.Errorf("unsupported compression algorithm: %s", algorithm)
	}

	return c, nil
}

// Compress returns data compressed with the configured algorithm.
func (c *Compressor) Compress(data []byte) ([]byte, error) {
	switch c.algorithm {
	case CompressionGzip:
		return streamCompress(data, func(w io.Writer) io.WriteCloser { return gzip.NewWriter(w) })
	case CompressionZlib:
		return streamCompress(data, func(w io.Writer) io.WriteCloser { return zlib.NewWriter(w) })
	case CompressionZstd:
		return c.encoder.EncodeAll(data, make([]byte, 0, len(data))), nil
	case CompressionSnappy:
		return snappy.Encode(nil, data), nil
	default:
		return data, nil
	}
}

// ContentEncoding returns the Content-Encoding header value, empty when
// the body is sent as is.
func (c *Compressor) ContentEncoding() string {
	return contentEncodings[c.algorithm]
}

// Close releases the zstd encoder.
func (c *Compressor) Close() error {
	if c.encoder != nil {
		return c.encoder.Close()
	}

	return nil
}

func streamCompress(data []byte, wrap func(io.Writer) io.WriteCloser) ([]byte, error) {
	var buf bytes.Buffer

	w := wrap(&buf)

	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("compress write: %w", err)
	}

	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("compress close: %w", err)
	}

	return buf.Bytes(), nil
}

// Decompress reverses Compress for the given Content-Encoding. Used by
// tests and receivers in the same process.
func Decompress(encoding string, data []byte) ([]byte, error) {
	switch encoding {
	case "":
		return data, nil
	case "gzip":
		r, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		defer r.Close()

		return io.ReadAll(r)
	case "deflate":
		r, err := zlib.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		defer r.Close()

		return io.ReadAll(r)
	case "zstd":
		d, err := zstd.NewReader(nil)
		if err != nil {
			return nil, err
		}
		defer d.Close()

		return d.DecodeAll(data, nil)
	case "snappy":
		return snappy.Decode(nil, data)
	default:
		return nil, fmt.Errorf("unsupported content encoding: %s", encoding)
	}
}
