/*
Package randx provides functions for generating unique identifiers.

It is used for connection IDs handed to each WebSocket session and for the
stored names of uploaded files, both backed by standard UUID v4.
*/
package randx

import (
	"strings"

	"github.com/google/uuid"
)

// ConnectionID generates a UUID v4 string identifying one live WebSocket connection.
func ConnectionID() string {
	return uuid.New().String()
}

// StoredFileName generates a collision-free name for an uploaded file,
// preserving the original (lowercased) extension.
func StoredFileName(ext string) string {
	return uuid.New().String() + strings.ToLower(ext)
}
