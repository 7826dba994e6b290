package ginternals

import "github.com/corevcs/mgit/ginternals/githash"

// Oid is a git Object ID, re-exported here so every package in
// ginternals/backend can depend on ginternals instead of reaching
// into githash directly.
type Oid = githash.Oid

// NullOid is the zero-value Oid.
var NullOid = githash.NullOid

// OidSize is the length, in bytes, of a binary Oid.
const OidSize = githash.OidSize

// HexSize is the length, in bytes, of the hex-encoded form of an Oid.
const HexSize = githash.HexSize

// NewOidFromContent returns the Oid of an object's canonical framing
// ("<kind> <len>\0" || payload).
func NewOidFromContent(content []byte) Oid {
	return githash.Sum(content)
}

// NewOidFromHex parses the 40-character hex form of an Oid.
func NewOidFromHex(hex string) (Oid, error) {
	return githash.NewFromHex(hex)
}

// NewOidFromChars parses the 40-byte ASCII-hex form of an Oid.
func NewOidFromChars(chars []byte) (Oid, error) {
	return githash.NewFromChars(chars)
}

// NewOidFromBytes casts a raw 20-byte digest into an Oid.
func NewOidFromBytes(raw []byte) (Oid, error) {
	return githash.NewFromBytes(raw)
}
