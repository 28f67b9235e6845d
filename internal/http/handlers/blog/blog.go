// Package blog serves the read-only blog listing.
package blog

import (
	"net/http"

	"github.com/aanand-mishra/records-api/internal/http/handlers/resource"
	"github.com/aanand-mishra/records-api/internal/storage"
)

// GetList handles GET /api/blogs.
func GetList(store storage.Storage) http.HandlerFunc {
	return resource.ReadOnly(store, storage.BlogList)
}
