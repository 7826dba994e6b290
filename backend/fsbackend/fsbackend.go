// Package fsbackend contains an implementation of the backend.Backend
// interface for the filesystem, going through afero.Fs so tests can
// swap in an in-memory filesystem instead of touching disk.
package fsbackend

import (
	"path/filepath"

	"github.com/corevcs/mgit/backend"
	"github.com/corevcs/mgit/internal/gitpath"
	"github.com/spf13/afero"
	"golang.org/x/xerrors"
)

// we make sure the struct implements the interface
var _ backend.Backend = (*Backend)(nil)

// Backend is a Backend implementation that uses the filesystem to store data
type Backend struct {
	fs   afero.Fs
	root string
}

// New returns a new Backend object rooted at dotGitPath (the absolute
// path to a repository's .git directory). fs defaults to
// afero.NewOsFs() when nil.
func New(fs afero.Fs, dotGitPath string) *Backend {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Backend{
		fs:   fs,
		root: dotGitPath,
	}
}

// Init initializes a repository
func (b *Backend) Init() error {
	dirs := []string{
		gitpath.ObjectsPath,
		gitpath.RefsTagsPath,
		gitpath.RefsHeadsPath,
	}
	for _, d := range dirs {
		fullPath := filepath.Join(b.root, d)
		if err := b.fs.MkdirAll(fullPath, 0o750); err != nil {
			return xerrors.Errorf("could not create directory %s: %w", d, err)
		}
	}

	headPath := filepath.Join(b.root, gitpath.HEADPath)
	head := []byte("ref: " + gitpath.RefsHeadsPath + "/master\n")
	if err := afero.WriteFile(b.fs, headPath, head, 0o644); err != nil {
		return xerrors.Errorf("could not create %s: %w", gitpath.HEADPath, err)
	}

	if err := b.setDefaultCfg(); err != nil {
		return xerrors.Errorf("could not set the default config: %w", err)
	}

	return nil
}
