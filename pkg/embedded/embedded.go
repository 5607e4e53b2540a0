// Package embedded provides embedded static assets for the application.
package embedded

import (
	"embed"
)

// Files contains all files embedded in the Go binary:
// - Frontend files (frontend/dist) - served directly via HTTP
//
//go:embed frontend/dist
var Files embed.FS
