package journal

import "database/sql"

// DB exposes the internal *sql.DB for tests in journal_test.
func (s *Store) DB() *sql.DB {
	return s.db
}

// SetOpenDB replaces the database opener and returns a restore func.
func SetOpenDB(fn func(driver, dsn string) (*sql.DB, error)) func() {
	prev := openDB
	openDB = fn
	return func() { openDB = prev }
}

var SanitizeFTS = sanitizeFTS
