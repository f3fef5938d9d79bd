package sqlite

// Config holds SQLite repository configuration derived from storage.Config.
type Config struct {
	// DSN is a SQLite connection string or file path, e.g.:
	//   "file:f1db.sqlite?mode=ro"
	//   "f1db.sqlite" (interpreted by the driver)
	DSN string
}
