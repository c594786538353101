// Package services implements the HTTP client for the library backend.
//
// # Endpoints
//
//   - POST /api/auth/login : [Client.Login], JSON credentials, no bearer
//   - POST /api/register : [Client.Register], JSON, no bearer
//   - GET /api/profile : [Client.Profile], bearer
//   - GET /api/books : [Client.ListBooks], bearer
//   - POST /api/books : [Client.CreateBook], multipart, bearer
//   - PUT /api/books/{id} : [Client.UpdateBook], multipart, bearer
//   - DELETE /api/books/{id} : [Client.DeleteBook], bearer
//   - GET /api/images/{name} : [Client.CoverImage], public
//
// # Authentication
//
// The client is handed an [oauth2.TokenSource] (normally the session store) and asks it for a
// token before each authenticated call. A missing token is not an error here: the request goes
// out without an Authorization header.
//
// # Error Handling
//
// Non-2xx replies are returned as [*HTTPError], which unwraps to the sentinel for the operation:
//   - [shared.ErrAuthFailed] : login
//   - [shared.ErrRegistrationFailed] : register
//   - [shared.ErrFetchFailed] : list books, profile, cover image
//   - [shared.ErrCreateFailed], [shared.ErrUpdateFailed], [shared.ErrDeleteFailed] : mutations
//
// A 401 on an authenticated call also unwraps to [shared.ErrUnauthorized]. Transport failures wrap
// [shared.ErrNetworkUnreachable]. Nothing is retried.
//
// # Mutations
//
// Create, update and delete return a [models.Change] so the caller can merge the result into its
// collection or refetch.
package services
