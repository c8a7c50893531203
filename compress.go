package weave

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compressor transforms serialized payloads after marshaling and before
// unmarshaling.
type Compressor interface {
	Compress(src []byte) ([]byte, error)
	Decompress(src []byte) ([]byte, error)
}

// zstdCompressor holds its own encoder and decoder. Both are safe for
// concurrent EncodeAll/DecodeAll.
type zstdCompressor struct {
	enc *zstd.Encoder
	dec *zstd.Decoder
}

var _ Compressor = (*zstdCompressor)(nil)

// Zstd returns a zstd compressor at the given level.
func Zstd(level zstd.EncoderLevel) (Compressor, error) {
	enc, err := zstd.NewWriter(nil,
		zstd.WithEncoderLevel(level),
		zstd.WithZeroFrames(true),
	)
	if err != nil {
		return nil, newCodecError(ErrCompress, err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		_ = enc.Close()
		return nil, newCodecError(ErrCompress, err)
	}
	return &zstdCompressor{enc: enc, dec: dec}, nil
}

func (c *zstdCompressor) Compress(src []byte) ([]byte, error) {
	return c.enc.EncodeAll(src, nil), nil
}

func (c *zstdCompressor) Decompress(src []byte) ([]byte, error) {
	out, err := c.dec.DecodeAll(src, nil)
	if err != nil {
		return nil, newCodecError(ErrCompress, err)
	}
	return out, nil
}

// lz4Compressor writes block-mode LZ4. Block mode needs the original size to
// decompress, so each payload is framed as a uvarint size, a mode byte and
// the block.
type lz4Compressor struct{}

var _ Compressor = lz4Compressor{}

const (
	lz4Stored byte = iota
	lz4Block
)

// lz4MaxRatio is the largest expansion an LZ4 block can encode.
const lz4MaxRatio = 255

// LZ4 returns a block-mode LZ4 compressor. Payloads LZ4 cannot shrink are
// stored uncompressed.
func LZ4() Compressor {
	return lz4Compressor{}
}

func (lz4Compressor) Compress(src []byte) ([]byte, error) {
	out := binary.AppendUvarint(nil, uint64(len(src)))
	block := make([]byte, lz4.CompressBlockBound(len(src)))
	n, err := lz4.CompressBlock(src, block, nil)
	if err != nil {
		return nil, newCodecError(ErrCompress, fmt.Errorf("lz4 compress: %w", err))
	}
	if n == 0 || n >= len(src) {
		out = append(out, lz4Stored)
		return append(out, src...), nil
	}
	out = append(out, lz4Block)
	return append(out, block[:n]...), nil
}

func (lz4Compressor) Decompress(src []byte) ([]byte, error) {
	size, k := binary.Uvarint(src)
	if k <= 0 || k >= len(src) {
		return nil, newCodecError(ErrCompress, errors.New("lz4: truncated header"))
	}
	mode, body := src[k], src[k+1:]
	switch mode {
	case lz4Stored:
		if uint64(len(body)) != size {
			return nil, newCodecError(ErrCompress, fmt.Errorf("lz4: stored size %d, expected %d", len(body), size))
		}
		return append([]byte(nil), body...), nil
	case lz4Block:
		if size > uint64(len(body))*lz4MaxRatio+16 {
			return nil, newCodecError(ErrCompress, fmt.Errorf("lz4: size %d exceeds bound for %d byte block", size, len(body)))
		}
		out := make([]byte, size)
		n, err := lz4.UncompressBlock(body, out)
		if err != nil {
			return nil, newCodecError(ErrCompress, fmt.Errorf("lz4 decompress: %w", err))
		}
		if uint64(n) != size {
			return nil, newCodecError(ErrCompress, fmt.Errorf("lz4: got %d bytes, expected %d", n, size))
		}
		return out, nil
	default:
		return nil, newCodecError(ErrCompress, fmt.Errorf("lz4: unknown mode %d", mode))
	}
}
