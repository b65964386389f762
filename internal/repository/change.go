package repository

import (
	"fmt"

	"github.com/containerd/errdefs"
)

// ErrChangeStreamUnsupported is returned by stores that cannot push change notifications,
// e.g. a MongoDB server that is not part of a replica set.
var ErrChangeStreamUnsupported = fmt.Errorf("change stream unsupported: %w", errdefs.ErrNotImplemented)

// MoviesCollection names the collection movie change events refer to.
const MoviesCollection = "movies"

// ChangeOperation is the kind of mutation a store observed.
type ChangeOperation string

const (
	OperationInsert  ChangeOperation = "insert"
	OperationUpdate  ChangeOperation = "update"
	OperationReplace ChangeOperation = "replace"
	OperationDelete  ChangeOperation = "delete"
)

// ChangeEvent describes one observed mutation of a movie record.
// FullDocument is nil for deletes and for updates whose document vanished before lookup.
type ChangeEvent struct {
	OperationType ChangeOperation `json:"operationType"`
	Collection    string          `json:"collection"`
	DocumentKey   string          `json:"documentKey"`
	FullDocument  *Movie          `json:"fullDocument,omitempty"`
}

// NewMovieChange builds an event for the movies collection.
func NewMovieChange(op ChangeOperation, id string, movie *Movie) ChangeEvent {
	return ChangeEvent{
		OperationType: op,
		Collection:    MoviesCollection,
		DocumentKey:   id,
		FullDocument:  movie,
	}
}
