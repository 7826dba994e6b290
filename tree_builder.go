package git

import (
	"io/fs"
	"path/filepath"
	"sort"

	"github.com/corevcs/mgit/ginternals"
	"github.com/corevcs/mgit/ginternals/object"
	"github.com/spf13/afero"
	"golang.org/x/xerrors"
)

// TreeBuilder accumulates tree entries and persists them as a Tree
// object (spec §4.3).
type TreeBuilder struct {
	repo    *Repository
	entries map[string]object.TreeEntry
}

// NewTreeBuilder creates a new, empty tree builder.
func (r *Repository) NewTreeBuilder() *TreeBuilder {
	return &TreeBuilder{repo: r}
}

// NewTreeBuilderFromTree seeds a tree builder with an existing tree's
// entries so they can be modified before being rewritten.
func (r *Repository) NewTreeBuilderFromTree(t *object.Tree) *TreeBuilder {
	entries := map[string]object.TreeEntry{}
	for _, e := range t.Entries() {
		entries[e.Path] = e
	}
	return &TreeBuilder{repo: r, entries: entries}
}

// Insert adds or replaces an entry. The referenced object must already
// be persisted.
func (tb *TreeBuilder) Insert(path string, oid ginternals.Oid, mode object.TreeObjectMode) error {
	if !mode.IsValid() {
		return xerrors.Errorf("invalid mode %o: %w", mode, ginternals.ErrUnknownMode)
	}

	o, err := tb.repo.Object(oid)
	if err != nil {
		return xerrors.Errorf("cannot verify object: %w", err)
	}
	if o.Type() != mode.ObjectType() {
		return xerrors.Errorf("object %s is a %s, mode %o expects a %s: %w", oid, o.Type(), mode, mode.ObjectType(), object.ErrObjectInvalid)
	}

	if tb.entries == nil {
		tb.entries = map[string]object.TreeEntry{}
	}
	tb.entries[path] = object.TreeEntry{Mode: mode, Path: path, ID: oid}
	return nil
}

// Remove drops an entry from the tree being built.
func (tb *TreeBuilder) Remove(path string) {
	delete(tb.entries, path)
}

// Write persists a Tree object from the accumulated entries.
func (tb *TreeBuilder) Write() (*object.Tree, error) {
	paths := make([]string, 0, len(tb.entries))
	for p := range tb.entries {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	entries := make([]object.TreeEntry, 0, len(paths))
	for _, p := range paths {
		entries = append(entries, tb.entries[p])
	}

	t := object.NewTree(entries)
	if _, err := tb.repo.WriteObject(t.ToObject()); err != nil {
		return nil, xerrors.Errorf("could not write tree: %w", err)
	}
	return t, nil
}

// WriteTree recursively serializes dir (relative to the repository's
// working tree) into a tree DAG of blob/tree objects (spec §4.3 "Build
// from filesystem") and returns the root Tree.
func (r *Repository) WriteTree(dir string) (*object.Tree, error) {
	if r.wt == nil {
		return nil, xerrors.Errorf("cannot write a tree without a working tree: %w", object.ErrObjectInvalid)
	}

	entries, err := afero.ReadDir(r.wt, dir)
	if err != nil {
		return nil, xerrors.Errorf("could not list %s: %w", dir, err)
	}

	tb := r.NewTreeBuilder()
	for _, entry := range entries {
		if entry.Name() == ".git" {
			continue
		}
		childPath := filepath.Join(dir, entry.Name())

		switch {
		case entry.IsDir():
			child, err := r.WriteTree(childPath)
			if err != nil {
				return nil, err
			}
			if err := tb.Insert(entry.Name(), child.ID(), object.ModeDirectory); err != nil {
				return nil, err
			}
		case entry.Mode()&fs.ModeSymlink != 0:
			target, err := r.readLink(childPath)
			if err != nil {
				return nil, err
			}
			blob := object.New(object.TypeBlob, target)
			oid, err := r.WriteObject(blob)
			if err != nil {
				return nil, xerrors.Errorf("could not write symlink blob %s: %w", childPath, err)
			}
			if err := tb.Insert(entry.Name(), oid, object.ModeSymLink); err != nil {
				return nil, err
			}
		default:
			content, err := afero.ReadFile(r.wt, childPath)
			if err != nil {
				return nil, xerrors.Errorf("could not read %s: %w", childPath, err)
			}
			blob := object.New(object.TypeBlob, content)
			oid, err := r.WriteObject(blob)
			if err != nil {
				return nil, xerrors.Errorf("could not write blob %s: %w", childPath, err)
			}
			mode := object.ModeFile
			if entry.Mode()&0o100 != 0 {
				mode = object.ModeExecutable
			}
			if err := tb.Insert(entry.Name(), oid, mode); err != nil {
				return nil, err
			}
		}
	}

	return tb.Write()
}

// readLink reads a symlink's target. afero.Fs doesn't expose
// readlink, so this only works against the OS filesystem; callers
// using an in-memory FS for tests shouldn't create symlinks.
func (r *Repository) readLink(path string) ([]byte, error) {
	linker, ok := r.wt.(afero.LinkReader)
	if !ok {
		return nil, xerrors.Errorf("symlink %s: %w", path, ginternals.ErrUnsupportedFeature)
	}
	target, err := linker.ReadlinkIfPossible(path)
	if err != nil {
		return nil, xerrors.Errorf("could not read symlink %s: %w", path, err)
	}
	return []byte(target), nil
}

// Checkout materializes tree into dir inside the working tree (spec
// §4.3 "Checkout").
func (r *Repository) Checkout(tree *object.Tree, dir string) error {
	if r.wt == nil {
		return xerrors.Errorf("cannot checkout without a working tree: %w", object.ErrObjectInvalid)
	}

	if err := r.wt.MkdirAll(dir, 0o750); err != nil {
		return xerrors.Errorf("could not create directory %s: %w", dir, err)
	}

	for _, entry := range tree.Entries() {
		target := filepath.Join(dir, entry.Path)

		switch entry.Mode {
		case object.ModeDirectory:
			childObj, err := r.Object(entry.ID)
			if err != nil {
				return xerrors.Errorf("could not read tree %s: %w", entry.ID, err)
			}
			child, err := childObj.AsTree()
			if err != nil {
				return xerrors.Errorf("could not parse tree %s: %w", entry.ID, err)
			}
			if err := r.Checkout(child, target); err != nil {
				return err
			}
		case object.ModeFile, object.ModeExecutable:
			blobObj, err := r.Object(entry.ID)
			if err != nil {
				return xerrors.Errorf("could not read blob %s: %w", entry.ID, err)
			}
			perm := fs.FileMode(0o644)
			if entry.Mode == object.ModeExecutable {
				perm = 0o755
			}
			if err := afero.WriteFile(r.wt, target, blobObj.AsBlob().Bytes(), perm); err != nil {
				return xerrors.Errorf("could not write %s: %w", target, err)
			}
		case object.ModeSymLink:
			blobObj, err := r.Object(entry.ID)
			if err != nil {
				return xerrors.Errorf("could not read symlink blob %s: %w", entry.ID, err)
			}
			linker, ok := r.wt.(afero.Symlinker)
			if !ok {
				return xerrors.Errorf("symlink %s: %w", target, ginternals.ErrUnsupportedFeature)
			}
			if err := linker.SymlinkIfPossible(string(blobObj.AsBlob().Bytes()), target); err != nil {
				return xerrors.Errorf("could not create symlink %s: %w", target, err)
			}
		default:
			return xerrors.Errorf("entry %s has mode %o: %w", entry.Path, entry.Mode, ginternals.ErrUnknownMode)
		}
	}
	return nil
}
