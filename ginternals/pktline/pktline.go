// Package pktline implements the length-prefixed line framing used by
// git's smart-HTTP protocol (see spec §4.5): a 4-hex-digit big-endian
// length prefix followed by length-4 payload bytes, with "0000" as a
// flush sentinel.
package pktline

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"

	"github.com/corevcs/mgit/ginternals"
	"golang.org/x/xerrors"
)

// lenFieldSize is the number of hex digits used for the length prefix.
const lenFieldSize = 4

// Magic is the literal a length field is replaced with when the
// stream transitions from pkt-line framing into a raw pack (§4.5,
// "special case").
const Magic = "PACK"

// ErrPackStream is returned by (*Scanner).Next when the stream
// transitions into pack mode. Once returned, no further pkt-lines
// should be read from the scanner: use PackReader to get the
// remaining bytes, magic included.
var ErrPackStream = xerrors.Errorf("pktline: stream transitioned to %q: %w", Magic, ginternals.ErrProtocolFraming)

// Encode formats a single pkt-line frame carrying payload.
func Encode(payload string) string {
	return fmt.Sprintf("%0*x%s", lenFieldSize, len(payload)+lenFieldSize, payload)
}

// FlushPkt is the flush sentinel frame.
const FlushPkt = "0000"

// Scanner reads pkt-line frames off a stream, forward only.
type Scanner struct {
	r *bufio.Reader
}

// NewScanner returns a Scanner reading frames from r.
func NewScanner(r io.Reader) *Scanner {
	return &Scanner{r: bufio.NewReader(r)}
}

// Next reads the next frame. isFlush is true and data is nil for a
// flush frame. When the stream transitions to a pack (the length
// field is literally "PACK"), Next returns ErrPackStream; the caller
// should then use PackReader to consume the rest of the stream.
func (s *Scanner) Next() (data []byte, isFlush bool, err error) {
	var lenField [lenFieldSize]byte
	if _, err := io.ReadFull(s.r, lenField[:]); err != nil {
		return nil, false, xerrors.Errorf("could not read pkt-line length: %w", err)
	}

	if bytes.Equal(lenField[:], []byte(Magic)) {
		return nil, false, ErrPackStream
	}

	length, err := strconv.ParseUint(string(lenField[:]), 16, 16)
	if err != nil {
		return nil, false, xerrors.Errorf("invalid pkt-line length %q: %w", lenField, ginternals.ErrProtocolFraming)
	}
	if length == 0 {
		return nil, true, nil
	}
	if length < lenFieldSize {
		return nil, false, xerrors.Errorf("pkt-line length %d smaller than the header itself: %w", length, ginternals.ErrProtocolFraming)
	}

	payload := make([]byte, length-lenFieldSize)
	if _, err := io.ReadFull(s.r, payload); err != nil {
		return nil, false, xerrors.Errorf("could not read pkt-line payload: %w", err)
	}
	return payload, false, nil
}

// PackReader returns a reader yielding the rest of the underlying
// stream prefixed with the "PACK" magic consumed while detecting the
// transition, so it can be handed directly to packfile.Decode.
func (s *Scanner) PackReader() io.Reader {
	return io.MultiReader(bytes.NewReader([]byte(Magic)), s.r)
}
