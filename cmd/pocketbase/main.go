// Package main runs a standalone PocketBase with the sync collections, for
// the admin UI and for applying migrations ahead of a server rollout.
package main

import (
	"log"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/plugins/migratecmd"

	// Registers the sync collections with PocketBase.
	_ "github.com/ericfisherdev/projectsync/migrations"
)

func main() {
	app := pocketbase.New()

	migratecmd.MustRegister(app, app.RootCmd, migratecmd.Config{
		Automigrate: true,
	})

	if err := app.Start(); err != nil {
		log.Fatal(err)
	}
}
