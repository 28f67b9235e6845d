// Package post wires the posts table into the generic CRUD handlers.
//
// Posts keep the forgiving behaviour of the first API version: a get for
// a missing id returns an empty array, and updating or deleting a missing
// id succeeds with "affectedRows": 0.
package post

import (
	"github.com/aanand-mishra/records-api/internal/audit"
	"github.com/aanand-mishra/records-api/internal/http/handlers/resource"
	"github.com/aanand-mishra/records-api/internal/storage"
	"github.com/aanand-mishra/records-api/internal/types"
)

var Definition = resource.Definition[types.Post]{
	Name:   "posts",
	Label:  "Post",
	List:   storage.PostList,
	Get:    storage.PostGet,
	Create: storage.PostCreate,
	Update: storage.PostUpdate,
	Delete: storage.PostDelete,
	Args: func(p types.Post) []any {
		return []any{p.Title, p.Content}
	},
}

func New(store storage.Storage, rec audit.Recorder) *resource.Resource[types.Post] {
	return resource.New(Definition, store, rec)
}
