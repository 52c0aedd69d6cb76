package migrations

import (
	m "github.com/pocketbase/pocketbase/migrations"
)

func init() {
	m.Register(EnsureCollections, DropCollections, "1760000000_create_sync_collections.go")
}
