// Package all wires the built-in database backends into the storage factory.
//
// Importing it for side effects makes the "postgres" and "sqlite" source
// kinds available to storage.New:
//
//	import _ "github.com/debastene/f1-psda-dashboard/internal/storage/all"
package all

import (
	_ "github.com/debastene/f1-psda-dashboard/internal/storage/postgres"
	_ "github.com/debastene/f1-psda-dashboard/internal/storage/sqlite"
)
