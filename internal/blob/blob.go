// Package blob stores file contents for attachments. Metadata lives in the
// remote files collection; only the bytes go through a Store.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no object exists at the key.
var ErrNotFound = errors.New("blob: object not found")

// Store is a flat object store addressed by key.
type Store interface {
	// Put writes body at key and returns the object's public URL.
	Put(ctx context.Context, key string, body io.Reader, contentType string) (string, error)
	// Delete removes the object. Deleting a missing object succeeds.
	Delete(ctx context.Context, key string) error
	// URL returns the public URL of key without checking that it exists.
	URL(key string) string
}

// NewKey builds a unique object key.
// Format: {scope}/{ownerID}/{year}/{month}/{uuid}{ext}
func NewKey(scope, ownerID, fileName string, now time.Time) (string, error) {
	if scope == "" || ownerID == "" {
		return "", fmt.Errorf("blob key needs a scope and an owner")
	}
	if strings.ContainsAny(scope+ownerID, "/\\") {
		return "", fmt.Errorf("invalid blob key segment: %s/%s", scope, ownerID)
	}
	ext := strings.ToLower(path.Ext(fileName))
	return fmt.Sprintf("%s/%s/%s/%s/%s%s",
		scope, ownerID, now.Format("2006"), now.Format("01"), uuid.NewString(), ext), nil
}
