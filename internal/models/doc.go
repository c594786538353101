// Package models defines the records exchanged with the library backend.
//
// The package contains three groups of types:
//
// 1. Wire records: shapes decoded from backend JSON
//   - [Book] : a single library entry with page-progress counters
//   - [LoginResult] : token and identity returned by a successful login
//   - [Ack] : a bare acknowledgement message
//   - [Profile] : the authenticated user's account details
//
// 2. Request payloads: shapes built by the client
//   - [BookFields] : create/update fields, sent as multipart form data
//   - [ImageUpload] : an optional cover image attached to [BookFields]
//
// 3. Refresh contract
//   - [Change] : what a mutating call did, so callers can merge locally or refetch
package models
