// Package git ties together the object store, tree codec, and
// smart-HTTP clone client into a single Repository type.
package git

import (
	"errors"

	"github.com/corevcs/mgit/backend"
	"github.com/corevcs/mgit/backend/fsbackend"
	"github.com/corevcs/mgit/ginternals"
	"github.com/corevcs/mgit/ginternals/config"
	"github.com/corevcs/mgit/ginternals/object"
	"github.com/corevcs/mgit/internal/env"
	"github.com/spf13/afero"
	"golang.org/x/xerrors"
)

// Errors returned by Repository.
var (
	ErrRepositoryNotExist = errors.New("repository does not exist")
	ErrRepositoryExists   = errors.New("repository already exists")
)

// Repository represents a git repository: the object/ref store rooted
// at repoRoot/.git, plus (for non-bare repos) the working tree.
type Repository struct {
	repoRoot   string
	dotGitPath string
	dotGit     backend.Backend
	wt         afero.Fs
}

// Options lets tests and the clone client swap in an in-memory
// filesystem for both the odb and the working tree, and override the
// environment used to resolve $GIT_DIR/$GIT_WORK_TREE/$GIT_OBJECT_DIRECTORY
// (see ginternals/config).
type Options struct {
	// IsBare skips creating/expecting a working tree.
	IsBare bool
	// FS backs both the .git directory and the working tree. Defaults
	// to afero.NewOsFs().
	FS afero.Fs
	// Env is consulted for GIT_DIR/GIT_WORK_TREE/GIT_OBJECT_DIRECTORY/
	// GIT_CONFIG overrides. Defaults to env.NewFromOs().
	Env *env.Env
}

// InitRepository creates the .git skeleton at repoPath (per spec §6:
// objects/, refs/, HEAD) and returns the Repository.
func InitRepository(repoPath string, opts Options) (*Repository, error) {
	r, err := newRepository(repoPath, opts)
	if err != nil {
		return nil, err
	}

	if _, err := r.dotGit.Reference(ginternals.Head); err == nil {
		return nil, ErrRepositoryExists
	} else if !xerrors.Is(err, ginternals.ErrRefNotFound) {
		return nil, xerrors.Errorf("could not check for an existing repository: %w", err)
	}

	if err := r.dotGit.Init(); err != nil {
		return nil, xerrors.Errorf("could not initialize repository: %w", err)
	}

	return r, nil
}

// OpenRepository loads an existing repository rooted at repoPath.
func OpenRepository(repoPath string, opts Options) (*Repository, error) {
	r, err := newRepository(repoPath, opts)
	if err != nil {
		return nil, err
	}

	if _, err := r.dotGit.Reference(ginternals.Head); err != nil {
		return nil, ErrRepositoryNotExist
	}
	return r, nil
}

// newRepository resolves repoPath into a .git directory and an
// optional working tree, honoring GIT_DIR/GIT_WORK_TREE/
// GIT_OBJECT_DIRECTORY the way the teacher's ginternals/config does,
// then wires the result to an fsbackend.Backend.
func newRepository(repoPath string, opts Options) (*Repository, error) {
	fs := opts.FS
	if fs == nil {
		fs = afero.NewOsFs()
	}
	e := opts.Env
	if e == nil {
		e = env.NewFromOs()
	}

	gitDirOverride := ""
	if opts.IsBare {
		gitDirOverride = repoPath
	}

	cfg, err := config.LoadConfig(e, config.LoadConfigOptions{
		FS:               fs,
		WorkingDirectory: repoPath,
		GitDirPath:       gitDirOverride,
		IsBare:           opts.IsBare,
		SkipGitDirLookUp: true,
	})
	if err != nil {
		return nil, xerrors.Errorf("could not resolve repository layout: %w", err)
	}

	r := &Repository{
		repoRoot:   cfg.WorkTreePath,
		dotGitPath: cfg.GitDirPath,
		dotGit:     fsbackend.New(fs, cfg.GitDirPath),
	}
	if !opts.IsBare {
		r.wt = fs
	}
	return r, nil
}

// IsBare returns whether the repository has no working tree.
func (r *Repository) IsBare() bool {
	return r.wt == nil
}

// WorkingTreePath returns the absolute path to the working tree, or
// "" for a bare repository.
func (r *Repository) WorkingTreePath() string {
	if r.wt == nil {
		return ""
	}
	return r.repoRoot
}

// Object returns the object with the given id.
func (r *Repository) Object(oid ginternals.Oid) (*object.Object, error) {
	return r.dotGit.Object(oid)
}

// WriteObject persists an object and returns its id.
func (r *Repository) WriteObject(o *object.Object) (ginternals.Oid, error) {
	return r.dotGit.WriteObject(o)
}

// Reference returns the reference with the given name.
func (r *Repository) Reference(name string) (*ginternals.Reference, error) {
	return r.dotGit.Reference(name)
}

// WriteReference persists ref, overwriting any existing reference of
// the same name.
func (r *Repository) WriteReference(ref *ginternals.Reference) error {
	return r.dotGit.WriteReference(ref)
}

// SetHEAD points HEAD directly at a commit id (used after clone, per
// spec §4.7 step 8, since the remote's advertised branch name isn't
// assumed to be "master").
func (r *Repository) SetHEAD(oid ginternals.Oid) error {
	return r.dotGit.WriteReference(ginternals.NewReference(ginternals.Head, oid))
}
