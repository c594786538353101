// Package repositories implements SQLite persistence for bookvault.
//
// Book data is never stored locally. The only durable state is the session, kept as string pairs
// in the storage table created by the embedded migrations:
//   - [KeyValueRepository] : key/value pairs backing session.Storage
package repositories
