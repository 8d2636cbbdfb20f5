package session

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/hupe1980/vemos/codec"
	"github.com/hupe1980/vemos/matrix"
	"github.com/hupe1980/vemos/record"
)

// Frame layout, little endian:
//
//	magic "VMSN" | format version uint16 | compression uint8 |
//	codec name length uint8 | codec name | payload length uint64 | payload |
//	CRC32 (IEEE) of all preceding bytes
const (
	magic         = "VMSN"
	FormatVersion = 1

	headerFixed = len(magic) + 2 + 1 + 1
	trailerSize = 4
)

var (
	ErrInvalidMagic       = errors.New("not a session frame")
	ErrUnsupportedVersion = errors.New("unsupported session format version")
	ErrUnknownCodec       = errors.New("unknown session codec")
	ErrUnknownCompression = errors.New("unknown session compression")
	ErrTruncated          = errors.New("truncated session frame")
)

// ChecksumMismatchError is returned when a frame fails verification.
type ChecksumMismatchError struct {
	Expected uint32
	Actual   uint32
}

func (e *ChecksumMismatchError) Error() string {
	return fmt.Sprintf("checksum mismatch: expected 0x%08x, got 0x%08x", e.Expected, e.Actual)
}

// Compression selects the payload compression of a frame.
type Compression uint8

const (
	CompressionNone Compression = iota
	CompressionZSTD
	CompressionLZ4
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionZSTD:
		return "zstd"
	case CompressionLZ4:
		return "lz4"
	default:
		return fmt.Sprintf("Compression(%d)", c)
	}
}

// ParseCompression parses "none", "zstd" or "lz4".
func ParseCompression(s string) (Compression, error) {
	for c := CompressionNone; c <= CompressionLZ4; c++ {
		if strings.EqualFold(strings.TrimSpace(s), c.String()) {
			return c, nil
		}
	}
	if strings.TrimSpace(s) == "" {
		return CompressionNone, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownCompression, s)
}

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
	return dec
}

func compress(data []byte, c Compression) ([]byte, Compression, error) {
	switch c {
	case CompressionNone:
		return data, CompressionNone, nil
	case CompressionZSTD:
		enc := getZstdEncoder()
		defer zstdEncoderPool.Put(enc)
		return enc.EncodeAll(data, nil), CompressionZSTD, nil
	case CompressionLZ4:
		out := binary.AppendUvarint(nil, uint64(len(data)))
		block := make([]byte, lz4.CompressBlockBound(len(data)))
		n, err := lz4.CompressBlock(data, block, nil)
		if err != nil {
			return nil, 0, err
		}
		if n == 0 {
			// Incompressible.
			return data, CompressionNone, nil
		}
		return append(out, block[:n]...), CompressionLZ4, nil
	default:
		return nil, 0, fmt.Errorf("%w: %s", ErrUnknownCompression, c)
	}
}

func decompress(data []byte, c Compression) ([]byte, error) {
	switch c {
	case CompressionNone:
		return data, nil
	case CompressionZSTD:
		dec := getZstdDecoder()
		defer zstdDecoderPool.Put(dec)
		return dec.DecodeAll(data, nil)
	case CompressionLZ4:
		size, k := binary.Uvarint(data)
		if k <= 0 {
			return nil, ErrTruncated
		}
		block := data[k:]
		if size > uint64(len(block))*255+16 {
			return nil, fmt.Errorf("lz4 payload claims %d bytes from a %d byte block", size, len(block))
		}
		out := make([]byte, size)
		n, err := lz4.UncompressBlock(block, out)
		if err != nil {
			return nil, err
		}
		if uint64(n) != size {
			return nil, fmt.Errorf("lz4 payload decoded to %d of %d bytes", n, size)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownCompression, c)
	}
}

// Encode serializes snap with c and wraps it in a frame.
func Encode(snap *Snapshot, c codec.Codec, comp Compression) ([]byte, error) {
	if c == nil {
		c = codec.Default
	}
	name := c.Name()
	if len(name) == 0 || len(name) > 255 {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCodec, name)
	}
	raw, err := c.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("encode session %q: %w", snap.Name, err)
	}
	payload, comp, err := compress(raw, comp)
	if err != nil {
		return nil, fmt.Errorf("compress session %q: %w", snap.Name, err)
	}

	out := make([]byte, 0, headerFixed+len(name)+8+len(payload)+trailerSize)
	out = append(out, magic...)
	out = binary.LittleEndian.AppendUint16(out, FormatVersion)
	out = append(out, byte(comp), byte(len(name)))
	out = append(out, name...)
	out = binary.LittleEndian.AppendUint64(out, uint64(len(payload)))
	out = append(out, payload...)
	return binary.LittleEndian.AppendUint32(out, crc32.ChecksumIEEE(out)), nil
}

// checkPrefix verifies the magic and format version at the start of a frame.
func checkPrefix(p []byte) error {
	if len(p) < headerFixed {
		return ErrTruncated
	}
	if string(p[:len(magic)]) != magic {
		return ErrInvalidMagic
	}
	if v := binary.LittleEndian.Uint16(p[len(magic):]); v != FormatVersion {
		return fmt.Errorf("%w: %d", ErrUnsupportedVersion, v)
	}
	return nil
}

// Header is the decoded frame header.
type Header struct {
	FormatVersion uint16
	Compression   Compression
	Codec         string
}

// Decode verifies a frame and decodes its snapshot.
func Decode(data []byte) (*Snapshot, Header, error) {
	var h Header
	if len(data) < headerFixed+8+trailerSize {
		return nil, h, ErrTruncated
	}
	if string(data[:len(magic)]) != magic {
		return nil, h, ErrInvalidMagic
	}
	body, sum := data[:len(data)-trailerSize], binary.LittleEndian.Uint32(data[len(data)-trailerSize:])
	if actual := crc32.ChecksumIEEE(body); actual != sum {
		return nil, h, &ChecksumMismatchError{Expected: sum, Actual: actual}
	}

	off := len(magic)
	h.FormatVersion = binary.LittleEndian.Uint16(body[off:])
	if h.FormatVersion != FormatVersion {
		return nil, h, fmt.Errorf("%w: %d", ErrUnsupportedVersion, h.FormatVersion)
	}
	h.Compression = Compression(body[off+2])
	nameLen := int(body[off+3])
	off = headerFixed
	if len(body) < off+nameLen+8 {
		return nil, h, ErrTruncated
	}
	h.Codec = string(body[off : off+nameLen])
	off += nameLen
	size := binary.LittleEndian.Uint64(body[off:])
	off += 8
	if uint64(len(body)-off) != size {
		return nil, h, ErrTruncated
	}

	c, ok := codec.ByName(h.Codec)
	if !ok {
		return nil, h, fmt.Errorf("%w: %q", ErrUnknownCodec, h.Codec)
	}
	raw, err := decompress(body[off:], h.Compression)
	if err != nil {
		return nil, h, err
	}
	snap := &Snapshot{}
	if err := c.Unmarshal(raw, snap); err != nil {
		return nil, h, fmt.Errorf("decode session: %w", err)
	}
	if snap.Records == nil {
		snap.Records = record.NewSet()
	}
	if snap.Groupings == nil {
		snap.Groupings = record.NewGroupings()
	}
	if snap.Matrices == nil {
		snap.Matrices = matrix.NewStore()
	}
	return snap, h, nil
}
