package store

// Stores is the top-level container for the storage backends a running
// daemon needs. Session persistence is the only store every deployment
// requires; file-based and Postgres-backed implementations both satisfy
// SessionStore.
type Stores struct {
	Sessions SessionStore
}
