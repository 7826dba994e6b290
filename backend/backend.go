// Package backend contains interfaces and implementations to store and
// retrieve data from the object database.
package backend

import (
	"github.com/corevcs/mgit/ginternals"
	"github.com/corevcs/mgit/ginternals/object"
)

// Backend represents an object that can store and retrieve objects
// and references from the odb.
//
// The core is single-threaded (clone and checkout run on one
// goroutine, see spec §5), so implementations don't need to guard
// against concurrent callers the way a long-lived server backend
// would.
type Backend interface {
	// Init initializes a repository
	Init() error

	// Reference returns a stored reference from its name
	Reference(name string) (*ginternals.Reference, error)
	// WriteReference writes the given reference int the db. If the
	// reference already exists it will be overwritten
	WriteReference(ref *ginternals.Reference) error
	// WriteReferenceSafe writes the given reference in the db
	// ErrRefExists is returned if the reference already exists
	WriteReferenceSafe(ref *ginternals.Reference) error

	// Object returns the object that has given oid
	Object(ginternals.Oid) (*object.Object, error)
	// HasObject returns whether an object exists in the odb
	HasObject(ginternals.Oid) (bool, error)
	// WriteObject adds an object to the odb. Writing the same
	// (kind, payload) twice is legal and idempotent.
	WriteObject(*object.Object) (ginternals.Oid, error)
}
