package object_test

import (
	"fmt"
	"testing"

	"github.com/corevcs/mgit/ginternals"
	"github.com/corevcs/mgit/ginternals/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTree(t *testing.T) {
	t.Run("NewTreeFromObject(tree.ToObject()) should round-trip", func(t *testing.T) {
		t.Parallel()

		blobID, err := ginternals.NewOidFromHex("0343d67ca3d80a531d0d163f0078a81c95c9085a")
		require.NoError(t, err)

		tree := object.NewTree([]object.TreeEntry{
			{Mode: object.ModeFile, Path: "README.md", ID: blobID},
			{Mode: object.ModeDirectory, Path: "src", ID: blobID},
		})
		o := tree.ToObject()

		back, err := object.NewTreeFromObject(o)
		require.NoError(t, err)
		assert.Equal(t, o.ID(), back.ID())
		assert.Equal(t, o.Bytes(), back.ToObject().Bytes())
	})

	t.Run("entries are sorted byte-wise by name", func(t *testing.T) {
		t.Parallel()

		blobID, err := ginternals.NewOidFromHex("0343d67ca3d80a531d0d163f0078a81c95c9085a")
		require.NoError(t, err)

		// "lib" is a prefix of "lib.c", so it sorts first; the
		// directory mode of "lib" plays no part in the ordering.
		tree := object.NewTree([]object.TreeEntry{
			{Mode: object.ModeFile, Path: "lib.c", ID: blobID},
			{Mode: object.ModeDirectory, Path: "lib", ID: blobID},
		})

		entries := tree.Entries()
		require.Len(t, entries, 2)
		assert.Equal(t, "lib", entries[0].Path)
		assert.Equal(t, "lib.c", entries[1].Path)
	})

	t.Run("Entries should be immutable", func(t *testing.T) {
		t.Parallel()

		treeID, err := ginternals.NewOidFromHex("e5b9e846e1b468bc9597ff95d71dfacda8bd54e3")
		require.NoError(t, err)

		blobID, err := ginternals.NewOidFromHex("0343d67ca3d80a531d0d163f0078a81c95c9085a")
		require.NoError(t, err)

		tree := object.NewTreeWithID(treeID, []object.TreeEntry{
			{
				Mode: object.ModeFile,
				ID:   blobID,
				Path: "blob",
			},
		})

		tree.Entries()[0].ID[0] = 0xe5
		assert.Equal(t, byte(0x03), tree.Entries()[0].ID[0], "should not update entry ID")

		tree.Entries()[0].Path = "nope"
		assert.Equal(t, "blob", tree.Entries()[0].Path, "should not update entry Path")
	})

	t.Run("a non-tree object should fail to parse as a tree", func(t *testing.T) {
		t.Parallel()

		o := object.New(object.TypeBlob, []byte("hello"))
		_, err := object.NewTreeFromObject(o)
		require.Error(t, err)
	})
}

func TestTreeObjectMode(t *testing.T) {
	t.Parallel()

	t.Run("ObjectType()", func(t *testing.T) {
		t.Parallel()

		testCases := []struct {
			desc     string
			mode     object.TreeObjectMode
			expected object.Type
		}{
			{
				desc:     "unknown object should be blob",
				mode:     0o644,
				expected: object.TypeBlob,
			},
			{
				desc:     "ModeFile should be a blob",
				mode:     object.ModeFile,
				expected: object.TypeBlob,
			},
			{
				desc:     "ModeExecutable should be a blob",
				mode:     object.ModeExecutable,
				expected: object.TypeBlob,
			},
			{
				desc:     "ModeSymLink should be a blob",
				mode:     object.ModeSymLink,
				expected: object.TypeBlob,
			},
			{
				desc:     "ModeDirectory should be a tree",
				mode:     object.ModeDirectory,
				expected: object.TypeTree,
			},
			{
				desc:     "ModeGitLink should be a commit",
				mode:     object.ModeGitLink,
				expected: object.TypeCommit,
			},
		}
		for i, tc := range testCases {
			tc := tc
			i := i
			t.Run(fmt.Sprintf("%d/%s", i, tc.desc), func(t *testing.T) {
				t.Parallel()

				assert.Equal(t, tc.expected, tc.mode.ObjectType())
			})
		}
	})

	t.Run("IsValid()", func(t *testing.T) {
		t.Parallel()

		testCases := []struct {
			desc    string
			mode    object.TreeObjectMode
			isValid bool
		}{
			{
				desc:    "0o644 should not be valid",
				mode:    0o644,
				isValid: false,
			},
			{
				desc:    "ModeFile should be valid",
				mode:    object.ModeFile,
				isValid: true,
			},
			{
				desc:    "0o100755 should be valid",
				mode:    0o100755,
				isValid: true,
			},
		}
		for i, tc := range testCases {
			tc := tc
			i := i
			t.Run(fmt.Sprintf("%d/%s", i, tc.desc), func(t *testing.T) {
				t.Parallel()

				out := tc.mode.IsValid()
				assert.Equal(t, tc.isValid, out)
			})
		}
	})
}
