// Copyright 2025 Ian Lewis
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package compression

import (
	"bytes"
	"fmt"
	"io"

	"github.com/dsnet/compress/bzip2"
	"github.com/golang/snappy"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/ulikunitz/xz/lzma"
)

type identity struct{}

func (identity) Name() string { return None }

func (identity) Compress(b []byte) ([]byte, error) {
	return bytes.Clone(b), nil
}

func (identity) Decompress(b []byte) ([]byte, error) {
	return bytes.Clone(b), nil
}

// streamCompress writes b through the writer returned by newWriter.
func streamCompress(name string, b []byte, newWriter func(io.Writer) (io.WriteCloser, error)) ([]byte, error) {
	var buf bytes.Buffer
	w, err := newWriter(&buf)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if _, err := w.Write(b); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return buf.Bytes(), nil
}

// streamDecompress reads b fully through the reader returned by newReader.
func streamDecompress(name string, b []byte, newReader func(io.Reader) (io.Reader, error)) ([]byte, error) {
	r, err := newReader(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	out, err := io.ReadAll(r)
	if c, ok := r.(io.Closer); ok {
		_ = c.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return out, nil
}

type bz2Codec struct{}

func (bz2Codec) Name() string { return BZ2 }

func (bz2Codec) Compress(b []byte) ([]byte, error) {
	return streamCompress(BZ2, b, func(w io.Writer) (io.WriteCloser, error) {
		return bzip2.NewWriter(w, &bzip2.WriterConfig{Level: bzip2.BestCompression})
	})
}

func (bz2Codec) Decompress(b []byte) ([]byte, error) {
	return streamDecompress(BZ2, b, func(r io.Reader) (io.Reader, error) {
		return bzip2.NewReader(r, nil)
	})
}

type zlibCodec struct{}

func (zlibCodec) Name() string { return Zlib }

func (zlibCodec) Compress(b []byte) ([]byte, error) {
	return streamCompress(Zlib, b, func(w io.Writer) (io.WriteCloser, error) {
		return zlib.NewWriterLevel(w, zlib.BestCompression)
	})
}

func (zlibCodec) Decompress(b []byte) ([]byte, error) {
	return streamDecompress(Zlib, b, func(r io.Reader) (io.Reader, error) {
		return zlib.NewReader(r)
	})
}

// lzma2Codec writes a raw LZMA2 stream without xz container framing.
type lzma2Codec struct{}

func (lzma2Codec) Name() string { return LZMA2 }

func (lzma2Codec) Compress(b []byte) ([]byte, error) {
	return streamCompress(LZMA2, b, func(w io.Writer) (io.WriteCloser, error) {
		return lzma.NewWriter2(w)
	})
}

func (lzma2Codec) Decompress(b []byte) ([]byte, error) {
	return streamDecompress(LZMA2, b, func(r io.Reader) (io.Reader, error) {
		return lzma.NewReader2(r)
	})
}

type zstdCodec struct{}

func (zstdCodec) Name() string { return Zstd }

func (zstdCodec) Compress(b []byte) ([]byte, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", Zstd, err)
	}
	defer enc.Close()
	return enc.EncodeAll(b, nil), nil
}

func (zstdCodec) Decompress(b []byte) ([]byte, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", Zstd, err)
	}
	defer dec.Close()
	out, err := dec.DecodeAll(b, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", Zstd, err)
	}
	return out, nil
}

// lz4Codec uses the lz4 frame format since bins do not record their
// uncompressed size.
type lz4Codec struct{}

func (lz4Codec) Name() string { return LZ4 }

func (lz4Codec) Compress(b []byte) ([]byte, error) {
	return streamCompress(LZ4, b, func(w io.Writer) (io.WriteCloser, error) {
		zw := lz4.NewWriter(w)
		if err := zw.Apply(lz4.CompressionLevelOption(lz4.Level9)); err != nil {
			return nil, err
		}
		return zw, nil
	})
}

func (lz4Codec) Decompress(b []byte) ([]byte, error) {
	return streamDecompress(LZ4, b, func(r io.Reader) (io.Reader, error) {
		return lz4.NewReader(r), nil
	})
}

type snappyCodec struct{}

func (snappyCodec) Name() string { return Snappy }

func (snappyCodec) Compress(b []byte) ([]byte, error) {
	return snappy.Encode(nil, b), nil
}

func (snappyCodec) Decompress(b []byte) ([]byte, error) {
	out, err := snappy.Decode(nil, b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", Snappy, err)
	}
	return out, nil
}
