package fsbackend

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/corevcs/mgit/ginternals"
	"github.com/corevcs/mgit/ginternals/object"
	"github.com/corevcs/mgit/internal/gitpath"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/xerrors"
)

func newTestBackend(t *testing.T) (*Backend, string) {
	t.Helper()
	fs := afero.NewMemMapFs()
	root := filepath.Join("/repo", gitpath.DotGitPath)
	b := New(fs, root)
	require.NoError(t, b.Init())
	return b, root
}

func TestObject(t *testing.T) {
	t.Parallel()

	t.Run("existing loose object should be returned", func(t *testing.T) {
		t.Parallel()

		b, _ := newTestBackend(t)
		o := object.New(object.TypeBlob, []byte("hello\n"))
		oid, err := b.WriteObject(o)
		require.NoError(t, err)

		obj, err := b.Object(oid)
		require.NoError(t, err)
		require.NotNil(t, obj)
		assert.Equal(t, oid, obj.ID())
		assert.Equal(t, object.TypeBlob, obj.Type())
		assert.Equal(t, "hello\n", string(obj.Bytes()))
	})

	t.Run("un-existing object should fail", func(t *testing.T) {
		t.Parallel()

		b, _ := newTestBackend(t)

		oid, err := ginternals.NewOidFromHex("2dcdadc2a420225783794fbffd51e2e137a69646")
		require.NoError(t, err)

		obj, err := b.Object(oid)
		require.Error(t, err)
		require.Nil(t, obj)
		require.True(t, xerrors.Is(err, ginternals.ErrObjectNotFound), "unexpected error received")
	})
}

func TestHasObject(t *testing.T) {
	t.Parallel()

	t.Run("existing object should exist", func(t *testing.T) {
		t.Parallel()

		b, _ := newTestBackend(t)
		o := object.New(object.TypeBlob, []byte("hello\n"))
		oid, err := b.WriteObject(o)
		require.NoError(t, err)

		exists, err := b.HasObject(oid)
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("non-existing object should not exist", func(t *testing.T) {
		t.Parallel()

		b, _ := newTestBackend(t)

		fakeOid, err := ginternals.NewOidFromHex("2dcdadc2a420225783794fbffd51e2e137a69646")
		require.NoError(t, err)

		exists, err := b.HasObject(fakeOid)
		require.NoError(t, err)
		assert.False(t, exists)
	})
}

func TestWriteObject(t *testing.T) {
	t.Parallel()

	t.Run("add a new blob", func(t *testing.T) {
		t.Parallel()

		b, root := newTestBackend(t)
		o := object.New(object.TypeBlob, []byte("data"))
		oid, err := b.WriteObject(o)
		require.NoError(t, err)
		assert.NotEqual(t, ginternals.NullOid, oid, "invalid oid returned")

		storedO, err := b.Object(oid)
		require.NoError(t, err)
		assert.Equal(t, o.Type(), storedO.Type(), "invalid type")
		assert.Equal(t, o.Size(), storedO.Size(), "invalid size")
		assert.Equal(t, o.Bytes(), storedO.Bytes(), "invalid content")
		assert.NotEqual(t, ginternals.NullOid, storedO.ID(), "invalid ID")

		p := filepath.Join(root, gitpath.ObjectsPath, storedO.ID().String()[0:2], storedO.ID().String()[2:])
		info, err := b.fs.Stat(p)
		require.NoError(t, err)
		assert.Equal(t, "-r--r--r--", info.Mode().Perm().String(), "objects should be read only")
	})

	t.Run("writing the same object twice should not trigger a rewrite", func(t *testing.T) {
		t.Parallel()

		b, root := newTestBackend(t)
		o := object.New(object.TypeBlob, []byte("data"))
		oid, err := b.WriteObject(o)
		require.NoError(t, err)

		p := filepath.Join(root, gitpath.ObjectsPath, oid.String()[0:2], oid.String()[2:])
		originalInfo, err := b.fs.Stat(p)
		require.NoError(t, err)

		time.Sleep(10 * time.Millisecond)
		_, err = b.WriteObject(o)
		require.NoError(t, err)
		info, err := b.fs.Stat(p)
		require.NoError(t, err)

		assert.Equal(t, originalInfo.ModTime(), info.ModTime())
	})
}
