// Package packfile decodes a git pack stream (the body of a
// git-upload-pack response, starting at the "PACK" magic) into a
// sequence of objects.
//
// Unlike a full git implementation, this decoder never builds a
// random-access index: entries are read forward-only and persisted as
// they're decoded, since ref-delta bases are required to already be
// on disk (the server emits them first) and offset-deltas aren't
// supported.
package packfile

import (
	"bufio"
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"io"

	"github.com/corevcs/mgit/backend"
	"github.com/corevcs/mgit/ginternals"
	"github.com/corevcs/mgit/ginternals/object"
	"golang.org/x/xerrors"
)

// Magic is the 4-byte literal every pack stream starts with.
const Magic = "PACK"

// Version is the only pack format version this decoder understands.
const Version = 2

const headerSize = 12

// Decode reads a pack stream from r and persists every entry into b.
// r must start exactly at the "PACK" magic (the caller, the pkt-line
// reader, is responsible for stripping any framing ahead of it).
// Returns the number of objects written.
func Decode(b backend.Backend, r io.Reader) (int, error) {
	br := bufio.NewReader(r)

	var header [headerSize]byte
	if _, err := io.ReadFull(br, header[:]); err != nil {
		return 0, xerrors.Errorf("could not read pack header: %w", err)
	}
	if !bytes.Equal(header[0:4], []byte(Magic)) {
		return 0, xerrors.Errorf("missing %q magic: %w", Magic, ginternals.ErrProtocolFraming)
	}
	version := binary.BigEndian.Uint32(header[4:8])
	if version != Version {
		return 0, xerrors.Errorf("pack version %d: %w", version, ginternals.ErrUnsupportedFeature)
	}
	count := binary.BigEndian.Uint32(header[8:12])

	for i := uint32(0); i < count; i++ {
		if err := decodeEntry(b, br); err != nil {
			return int(i), xerrors.Errorf("pack entry %d/%d: %w", i+1, count, err)
		}
	}

	// the trailing checksum is consumed but never verified (spec'd
	// behavior, not a hardened implementation)
	trailer := make([]byte, ginternals.OidSize)
	if _, err := io.ReadFull(br, trailer); err != nil {
		return int(count), xerrors.Errorf("could not read pack trailer: %w", err)
	}
	return int(count), nil
}

func decodeEntry(b backend.Backend, br *bufio.Reader) error {
	typ, size, err := readTypeAndSize(br)
	if err != nil {
		return xerrors.Errorf("could not read entry header: %w", err)
	}

	switch typ {
	case object.TypeCommit, object.TypeTree, object.TypeBlob:
		payload, err := inflate(br, size)
		if err != nil {
			return xerrors.Errorf("could not inflate %s entry: %w", typ, err)
		}
		if _, err := b.WriteObject(object.New(typ, payload)); err != nil {
			return xerrors.Errorf("could not persist %s entry: %w", typ, err)
		}
		return nil
	case object.TypeTag:
		// tags are acknowledged by the format but never materialized
		return xerrors.Errorf("tag entries: %w", ginternals.ErrUnsupportedFeature)
	case object.ObjectDeltaOFS:
		return xerrors.Errorf("offset-delta entries: %w", ginternals.ErrUnsupportedFeature)
	case object.ObjectDeltaRef:
		return decodeRefDelta(b, br, size)
	default:
		return xerrors.Errorf("entry type %d: %w", typ, ginternals.ErrObjectUnknown)
	}
}

func decodeRefDelta(b backend.Backend, br *bufio.Reader, size uint64) error {
	baseRaw := make([]byte, ginternals.OidSize)
	if _, err := io.ReadFull(br, baseRaw); err != nil {
		return xerrors.Errorf("could not read delta base id: %w", err)
	}
	baseOid, err := ginternals.NewOidFromBytes(baseRaw)
	if err != nil {
		return xerrors.Errorf("invalid delta base id: %w", err)
	}

	delta, err := inflate(br, size)
	if err != nil {
		return xerrors.Errorf("could not inflate ref-delta entry: %w", err)
	}

	base, err := b.Object(baseOid)
	if err != nil {
		return xerrors.Errorf("delta base %s: %w", baseOid.String(), err)
	}

	payload, err := applyDelta(base.Bytes(), delta)
	if err != nil {
		return xerrors.Errorf("could not reconstruct delta against base %s: %w", baseOid.String(), err)
	}

	if _, err := b.WriteObject(object.New(base.Type(), payload)); err != nil {
		return xerrors.Errorf("could not persist reconstructed %s: %w", base.Type(), err)
	}
	return nil
}

// readTypeAndSize reads a pack entry's variable-length type+size
// header. The first byte carries the type (bits 4-6) and the low 4
// size bits; if its MSB is set, each following byte contributes 7
// more size bits, little-endian, until a byte with a clear MSB.
func readTypeAndSize(br *bufio.Reader) (object.Type, uint64, error) {
	first, err := br.ReadByte()
	if err != nil {
		return 0, 0, err
	}
	typ := object.Type((first >> 4) & 0b111)
	size := uint64(first & 0b1111)

	shift := uint(4)
	for first&0x80 != 0 {
		b, err := br.ReadByte()
		if err != nil {
			return 0, 0, err
		}
		size |= uint64(b&0x7f) << shift
		shift += 7
		first = b
	}
	return typ, size, nil
}

// inflate zlib-decompresses exactly one entry starting at br's
// current position, leaving br positioned right after the compressed
// stream, and checks the inflated length against size.
func inflate(br *bufio.Reader, size uint64) ([]byte, error) {
	zr, err := zlib.NewReader(br)
	if err != nil {
		return nil, xerrors.Errorf("could not open zlib stream: %w", ginternals.ErrCompression)
	}
	defer zr.Close() //nolint:errcheck // read-only decompression, nothing to flush

	var out bytes.Buffer
	if _, err := io.Copy(&out, zr); err != nil {
		return nil, xerrors.Errorf("could not decompress entry: %w", ginternals.ErrCompression)
	}
	if uint64(out.Len()) != size {
		return nil, xerrors.Errorf("declared size %d, got %d: %w", size, out.Len(), ginternals.ErrCompression)
	}
	return out.Bytes(), nil
}

// readDeltaVarint reads one of the delta header's size fields: a
// plain 7-bit little-endian continuation value with no leading type
// bits (unlike readTypeAndSize's first byte).
func readDeltaVarint(data []byte) (value uint64, consumed int) {
	var shift uint
	for _, b := range data {
		value |= uint64(b&0x7f) << shift
		shift += 7
		consumed++
		if b&0x80 == 0 {
			break
		}
	}
	return value, consumed
}

// readDeltaArg reads up to nBytes little-endian bytes out of data,
// gated bit-by-bit by instr starting at bitOffset: bit set → the next
// byte of data is consumed and placed in that position, bit clear →
// that byte contributes 0.
func readDeltaArg(instr byte, bitOffset uint, nBytes int, data []byte) (value uint32, consumed int) {
	for i := 0; i < nBytes; i++ {
		if instr&(1<<(bitOffset+uint(i))) != 0 {
			value |= uint32(data[consumed]) << (8 * uint(i))
			consumed++
		}
	}
	return value, consumed
}

// applyDelta reconstructs an object's content from a ref-delta
// payload against its base object's content.
func applyDelta(base, delta []byte) ([]byte, error) {
	sourceSize, n := readDeltaVarint(delta)
	if int(sourceSize) != len(base) {
		return nil, xerrors.Errorf("delta source size %d doesn't match base size %d: %w", sourceSize, len(base), ginternals.ErrObjectCorrupt)
	}
	targetSize, n2 := readDeltaVarint(delta[n:])
	instructions := delta[n+n2:]

	var out bytes.Buffer
	for i := 0; i < len(instructions); {
		instr := instructions[i]
		i++

		if instr&0x80 != 0 { // COPY
			offset, consumed := readDeltaArg(instr, 0, 4, instructions[i:])
			i += consumed
			length, consumed := readDeltaArg(instr, 4, 3, instructions[i:])
			i += consumed
			if length == 0 {
				length = 0x10000
			}
			if uint64(offset)+uint64(length) > uint64(len(base)) {
				return nil, xerrors.Errorf("copy instruction out of bounds: %w", ginternals.ErrObjectCorrupt)
			}
			out.Write(base[offset : offset+length])
			continue
		}

		if instr == 0 {
			return nil, xerrors.Errorf("reserved delta opcode 0x00: %w", ginternals.ErrObjectCorrupt)
		}
		// INSERT: the low 7 bits (the whole byte, MSB already known
		// clear) give the literal length
		length := int(instr)
		if i+length > len(instructions) {
			return nil, xerrors.Errorf("insert instruction out of bounds: %w", ginternals.ErrObjectCorrupt)
		}
		out.Write(instructions[i : i+length])
		i += length
	}

	if uint64(out.Len()) != targetSize {
		return nil, xerrors.Errorf("delta produced %d bytes, expected %d: %w", out.Len(), targetSize, ginternals.ErrObjectCorrupt)
	}
	return out.Bytes(), nil
}
