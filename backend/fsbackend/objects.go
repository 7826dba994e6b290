package fsbackend

import (
	"compress/zlib"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/corevcs/mgit/ginternals"
	"github.com/corevcs/mgit/ginternals/object"
	"github.com/corevcs/mgit/internal/errutil"
	"github.com/corevcs/mgit/internal/gitpath"
	"github.com/corevcs/mgit/internal/readutil"
	"github.com/spf13/afero"
	"golang.org/x/xerrors"
)

// Object returns the object that has the given oid.
func (b *Backend) Object(oid ginternals.Oid) (*object.Object, error) {
	return b.looseObject(oid)
}

// looseObjectPath returns the absolute path of an object
// .git/object/first_2_chars_of_sha/remaining_chars_of_sha
// Ex. path of fcfe68a0e44e04bd7fd564fc0b75f1ae457e18b3 is:
// .git/objects/fc/fe68a0e44e04bd7fd564fc0b75f1ae457e18b3
func (b *Backend) looseObjectPath(sha string) string {
	return filepath.Join(b.root, gitpath.ObjectsPath, sha[:2], sha[2:])
}

// looseObject returns the object matching the given OID.
// The format of an object is an ascii encoded type, an ascii encoded
// space, then an ascii encoded length of the object, then a null
// character, then the body of the object.
func (b *Backend) looseObject(oid ginternals.Oid) (o *object.Object, err error) {
	strOid := oid.String()
	p := b.looseObjectPath(strOid)
	f, err := b.fs.Open(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, xerrors.Errorf("object %s: %w", strOid, ginternals.ErrObjectNotFound)
		}
		return nil, xerrors.Errorf("could not get object %s at path %s: %w", strOid, p, err)
	}
	defer errutil.Close(f, &err)

	zlibReader, err := zlib.NewReader(f)
	if err != nil {
		return nil, xerrors.Errorf("could not decompress object %s at path %s: %w", strOid, p, ginternals.ErrCompression)
	}
	defer errutil.Close(zlibReader, &err)

	buff, err := io.ReadAll(zlibReader)
	if err != nil {
		return nil, xerrors.Errorf("could not read object %s at path %s: %w", strOid, p, err)
	}

	pointerPos := 0

	typ := readutil.ReadTo(buff, ' ')
	if typ == nil {
		return nil, xerrors.Errorf("object %s has no header: %w", strOid, ginternals.ErrObjectCorrupt)
	}

	oType, err := object.NewTypeFromString(string(typ))
	if err != nil {
		return nil, xerrors.Errorf("object %s has unsupported type %s: %w", strOid, string(typ), ginternals.ErrObjectUnknown)
	}
	pointerPos += len(typ)
	pointerPos++ // one more for the space

	size := readutil.ReadTo(buff[pointerPos:], 0)
	if size == nil {
		return nil, xerrors.Errorf("object %s has no size: %w", strOid, ginternals.ErrObjectCorrupt)
	}
	oSize, err := strconv.Atoi(string(size))
	if err != nil {
		return nil, xerrors.Errorf("object %s has invalid size %s: %w", strOid, size, ginternals.ErrObjectCorrupt)
	}
	pointerPos += len(size)
	pointerPos++ // one more for the NULL char
	oContent := buff[pointerPos:]

	// The header parser is tolerant of a declared length that doesn't
	// match the payload (spec §4.2); oSize is informational only.
	_ = oSize

	return object.New(oType, oContent), nil
}

// HasObject returns whether an object exists in the odb
func (b *Backend) HasObject(oid ginternals.Oid) (bool, error) {
	_, err := b.Object(oid)
	if err == nil {
		return true, nil
	}
	if xerrors.Is(err, ginternals.ErrObjectNotFound) {
		return false, nil
	}
	return false, xerrors.Errorf("could not check object: %w", err)
}

// WriteObject adds an object to the odb. Writing the same (kind,
// payload) twice is legal: the second write is a no-op (Invariant I1).
func (b *Backend) WriteObject(o *object.Object) (ginternals.Oid, error) {
	data, err := o.Compress()
	if err != nil {
		return ginternals.NullOid, xerrors.Errorf("could not compress object: %w", err)
	}

	found, err := b.HasObject(o.ID())
	if err != nil {
		return ginternals.NullOid, xerrors.Errorf("could not check if object %s already exists: %w", o.ID().String(), err)
	}
	if found {
		return o.ID(), nil
	}

	sha := o.ID().String()
	p := b.looseObjectPath(sha)

	dest := filepath.Dir(p)
	if err = b.fs.MkdirAll(dest, 0o755); err != nil {
		return ginternals.NullOid, xerrors.Errorf("could not create directory %s: %w", dest, err)
	}

	// Object files are read-only once written.
	if err = afero.WriteFile(b.fs, p, data, 0o444); err != nil {
		return ginternals.NullOid, xerrors.Errorf("could not persist object %s at path %s: %w", sha, p, err)
	}
	return o.ID(), nil
}
