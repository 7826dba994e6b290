package git

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/corevcs/mgit/ginternals"
	"github.com/corevcs/mgit/ginternals/object"
	"github.com/corevcs/mgit/ginternals/pktline"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// entryHeader mirrors the production variable-length type+size header
// (see ginternals/packfile) so the test can build a pack independently
// of the code under test.
func entryHeader(typ object.Type, size uint64) []byte {
	first := byte(typ) << 4
	if size <= 0x0f {
		first |= byte(size)
		return []byte{first}
	}
	first |= byte(size & 0x0f) | 0x80
	size >>= 4
	out := []byte{first}
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

func deflate(t *testing.T, data []byte) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	w := zlib.NewWriter(buf)
	_, err := w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func packEntry(t *testing.T, o *object.Object) []byte {
	t.Helper()
	out := entryHeader(o.Type(), uint64(o.Size()))
	return append(out, deflate(t, o.Bytes())...)
}

func buildPack(t *testing.T, objs ...*object.Object) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	buf.WriteString("PACK")
	buf.Write([]byte{0, 0, 0, 2})
	count := uint32(len(objs))
	buf.Write([]byte{byte(count >> 24), byte(count >> 16), byte(count >> 8), byte(count)})
	for _, o := range objs {
		buf.Write(packEntry(t, o))
	}
	buf.Write(make([]byte, ginternals.OidSize))
	return buf.Bytes()
}

func TestClone(t *testing.T) {
	t.Parallel()

	blob := object.New(object.TypeBlob, []byte("hello\n"))
	tree := object.NewTree([]object.TreeEntry{
		{Mode: object.ModeFile, Path: "hello.txt", ID: blob.ID()},
	}).ToObject()
	commit := object.NewCommit(tree.ID(), object.NewSignature("a", "a@x.com"), &object.CommitOptions{Message: "initial\n"}).ToObject()

	pack := buildPack(t, blob, tree, commit)

	mux := http.NewServeMux()
	mux.HandleFunc("/info/refs", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "git-upload-pack", r.URL.Query().Get("service"))
		w.Header().Set("Content-Type", "application/x-git-upload-pack-advertisement")
		advert := pktline.Encode("# service=git-upload-pack\n") + pktline.FlushPkt +
			pktline.Encode(fmt.Sprintf("%s HEAD\x00no-capabilities\n", commit.ID())) + pktline.FlushPkt
		_, _ = w.Write([]byte(advert))
	})
	mux.HandleFunc("/git-upload-pack", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/x-git-upload-pack-result")
		_, _ = w.Write([]byte(pktline.Encode("NAK\n")))
		_, _ = w.Write(pack)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	fs := afero.NewMemMapFs()
	repo, err := cloneWithFS(srv.URL, "/repo", fs)
	require.NoError(t, err)

	got, err := repo.Object(blob.ID())
	require.NoError(t, err)
	assert.Equal(t, []byte("hello\n"), got.Bytes())

	content, err := afero.ReadFile(fs, "/repo/hello.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(content))

	head, err := repo.Reference(ginternals.Head)
	require.NoError(t, err)
	assert.Equal(t, commit.ID(), head.Target())
}

func TestCloneNoRefs(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/info/refs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/x-git-upload-pack-advertisement")
		advert := pktline.Encode("# service=git-upload-pack\n") + pktline.FlushPkt +
			pktline.Encode(fmt.Sprintf("%s capabilities^{}\x00no-capabilities\n", ginternals.NullOid)) + pktline.FlushPkt
		_, _ = w.Write([]byte(advert))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	fs := afero.NewMemMapFs()
	repo, err := cloneWithFS(srv.URL, "/repo", fs)
	require.NoError(t, err)
	assert.NotNil(t, repo)
}

// cloneWithFS is Clone with the destination filesystem injectable, for
// tests that use an in-memory afero.Fs instead of the real disk.
func cloneWithFS(url, dest string, fs afero.Fs) (*Repository, error) {
	repo, err := InitRepository(dest, Options{FS: fs})
	if err != nil {
		return nil, err
	}
	refs, err := discoverRefs(url)
	if err != nil {
		return nil, err
	}
	if len(refs) == 0 {
		return repo, nil
	}
	wants := wantedOids(refs)
	if err := fetchPack(repo, url, wants); err != nil {
		return nil, err
	}
	return finishClone(repo, refs[0])
}
