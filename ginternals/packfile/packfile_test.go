package packfile_test

import (
	"bytes"
	"compress/zlib"
	"path/filepath"
	"testing"

	"github.com/corevcs/mgit/backend/fsbackend"
	"github.com/corevcs/mgit/ginternals"
	"github.com/corevcs/mgit/ginternals/object"
	"github.com/corevcs/mgit/ginternals/packfile"
	"github.com/corevcs/mgit/internal/gitpath"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBackend(t *testing.T) *fsbackend.Backend {
	t.Helper()
	fs := afero.NewMemMapFs()
	b := fsbackend.New(fs, filepath.Join("/repo", gitpath.DotGitPath))
	require.NoError(t, b.Init())
	return b
}

// deflate zlib-compresses data the way a pack stream would.
func deflate(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	_, err := w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

// entryHeader builds the variable-length type+size header for a pack
// entry: MSB-continuation, type in bits 4-6 of the first byte, low 4
// bits of size, then 7-bit little-endian chunks.
func entryHeader(typ object.Type, size uint64) []byte {
	first := byte(typ&0b111) << 4
	first |= byte(size & 0b1111)
	size >>= 4

	if size == 0 {
		return []byte{first}
	}
	out := []byte{first | 0x80}
	for size > 0 {
		b := byte(size & 0x7f)
		size >>= 7
		if size > 0 {
			b |= 0x80
		}
		out = append(out, b)
	}
	return out
}

func packStream(entries ...[]byte) []byte {
	var buf bytes.Buffer
	buf.WriteString(packfile.Magic)
	buf.Write([]byte{0, 0, 0, byte(packfile.Version)})
	count := len(entries)
	buf.Write([]byte{byte(count >> 24), byte(count >> 16), byte(count >> 8), byte(count)})
	for _, e := range entries {
		buf.Write(e)
	}
	buf.Write(bytes.Repeat([]byte{0xAB}, ginternals.OidSize)) // unverified trailer
	return buf.Bytes()
}

func TestDecode(t *testing.T) {
	t.Parallel()

	t.Run("single blob entry", func(t *testing.T) {
		t.Parallel()

		b := newTestBackend(t)
		content := []byte("hello\n")
		entry := append(entryHeader(object.TypeBlob, uint64(len(content))), deflate(t, content)...)

		n, err := packfile.Decode(b, bytes.NewReader(packStream(entry)))
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		want := object.New(object.TypeBlob, content)
		got, err := b.Object(want.ID())
		require.NoError(t, err)
		assert.Equal(t, content, got.Bytes())
		assert.Equal(t, object.TypeBlob, got.Type())
	})

	t.Run("variable-length size header decodes a multi-byte size", func(t *testing.T) {
		t.Parallel()

		b := newTestBackend(t)
		content := []byte("abcdefghijklmnopqr") // 18 bytes
		require.Len(t, content, 18)

		header := entryHeader(object.TypeCommit, uint64(len(content)))
		// type=commit(1), size=18 encodes as 0x92 0x01
		assert.Equal(t, []byte{0x92, 0x01}, header)

		entry := append(header, deflate(t, content)...)
		n, err := packfile.Decode(b, bytes.NewReader(packStream(entry)))
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		want := object.New(object.TypeCommit, content)
		got, err := b.Object(want.ID())
		require.NoError(t, err)
		assert.Equal(t, content, got.Bytes())
	})

	t.Run("ref-delta reconstructs against an already-stored base", func(t *testing.T) {
		t.Parallel()

		b := newTestBackend(t)
		base := []byte("AAAABBBBCCCC")
		baseOid, err := b.WriteObject(object.New(object.TypeBlob, base))
		require.NoError(t, err)

		// source_size=12, target_size=14, COPY(0,4) "AAAA",
		// INSERT "XX", COPY(4,8) "BBBBCCCC"
		delta := []byte{
			0x0C, 0x0E,
			0x90, 0x04,
			0x02, 'X', 'X',
			0x91, 0x04, 0x08,
		}
		header := entryHeader(object.ObjectDeltaRef, uint64(len(delta)))
		entry := append(header, baseOid.Bytes()...)
		entry = append(entry, deflate(t, delta)...)

		n, err := packfile.Decode(b, bytes.NewReader(packStream(entry)))
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		want := []byte("AAAAXXBBBBCCCC")
		got, err := b.Object(object.New(object.TypeBlob, want).ID())
		require.NoError(t, err)
		assert.Equal(t, want, got.Bytes())
		assert.Equal(t, object.TypeBlob, got.Type())
	})

	t.Run("offset-delta entries are unsupported", func(t *testing.T) {
		t.Parallel()

		b := newTestBackend(t)
		entry := entryHeader(object.ObjectDeltaOFS, 0)
		_, err := packfile.Decode(b, bytes.NewReader(packStream(entry)))
		require.Error(t, err)
		assert.ErrorIs(t, err, ginternals.ErrUnsupportedFeature)
	})

	t.Run("tag entries are unsupported", func(t *testing.T) {
		t.Parallel()

		b := newTestBackend(t)
		content := []byte("x")
		entry := append(entryHeader(object.TypeTag, uint64(len(content))), deflate(t, content)...)
		_, err := packfile.Decode(b, bytes.NewReader(packStream(entry)))
		require.Error(t, err)
		assert.ErrorIs(t, err, ginternals.ErrUnsupportedFeature)
	})

	t.Run("wrong magic should fail", func(t *testing.T) {
		t.Parallel()

		b := newTestBackend(t)
		data := append([]byte("NOPE"), make([]byte, 8)...)
		_, err := packfile.Decode(b, bytes.NewReader(data))
		require.Error(t, err)
		assert.ErrorIs(t, err, ginternals.ErrProtocolFraming)
	})

	t.Run("unsupported version should fail", func(t *testing.T) {
		t.Parallel()

		b := newTestBackend(t)
		var buf bytes.Buffer
		buf.WriteString(packfile.Magic)
		buf.Write([]byte{0, 0, 0, 3})
		buf.Write([]byte{0, 0, 0, 0})
		_, err := packfile.Decode(b, bytes.NewReader(buf.Bytes()))
		require.Error(t, err)
		assert.ErrorIs(t, err, ginternals.ErrUnsupportedFeature)
	})
}
