// Package session holds the authenticated user's bearer token and display name.
//
// A [Store] persists both values through an injectable [Storage]: [MemoryStorage] for tests and
// short-lived use, or the sqlite key/value repository for durability between runs. The store is
// an [oauth2.TokenSource], so the API client can ask it for a token before every request without
// holding any session state itself.
//
// Tokens are JWTs issued by the backend. Their claims are decoded without verification, only to
// show the username and expiry; an undecodable token is still used as an opaque bearer string.
//
// A 401 from any authenticated call means the token is no longer accepted. [Store.Guard] is the
// single place that policy lives: it clears the session and reports [shared.ErrNotAuthenticated].
package session
