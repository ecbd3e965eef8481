//go:build !swagger

package httpapi

import (
	"github.com/go-chi/chi/v5"
)

// MountSwagger leaves /swagger unrouted. Build with -tags=swagger to serve
// the storyd API docs.
func MountSwagger(r chi.Router) {}
