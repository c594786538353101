// Library backend client
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/pathum-vimukthi/bookvault/internal/models"
	"github.com/pathum-vimukthi/bookvault/internal/shared"
)

const defaultBaseURL = "http://localhost:8080"

// Options configures a [Client]. The zero value is usable.
type Options struct {
	HTTPClient        *http.Client
	Logger            *log.Logger
	UserAgent         string
	RequestsPerSecond float64
}

// Client issues requests against the library backend.
//
// Book operations read a token from the [oauth2.TokenSource] before every call.
// When none is available the request is sent without an Authorization header
// and the backend is expected to answer 401. The client never clears a session;
// callers decide what a 401 means.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     oauth2.TokenSource
	logger     *log.Logger
	userAgent  string
	limiter    *rate.Limiter
}

// NewClient creates a client for baseURL. tokens may be nil for unauthenticated use.
func NewClient(baseURL string, tokens oauth2.TokenSource, opts Options) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	c := &Client{
		baseURL:    baseURL,
		httpClient: opts.HTTPClient,
		tokens:     tokens,
		logger:     opts.Logger,
		userAgent:  opts.UserAgent,
	}
	if c.httpClient == nil {
		c.httpClient = http.DefaultClient
	}
	if c.logger == nil {
		c.logger = log.New(io.Discard)
	}
	if opts.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}
	return c
}

// BaseURL returns the normalized backend URL.
func (c *Client) BaseURL() string { return c.baseURL }

// request describes one backend call.
type request struct {
	op          string
	method      string
	path        string
	body        io.Reader
	contentType string
	bearer      bool
	kind        error
}

// response is a fully read 2xx reply.
type response struct {
	Status      int
	ContentType string
	Body        []byte
}

// do sends r and returns the body of a 2xx reply. Non-2xx replies become [*HTTPError];
// transport failures wrap [shared.ErrNetworkUnreachable].
func (c *Client) do(ctx context.Context, r request) (*response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%s: rate limiter: %w", r.op, err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, r.method, c.baseURL+r.path, r.body)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create request: %w", r.op, err)
	}

	requestID := shared.GenerateID()
	req.Header.Set("X-Request-ID", requestID)
	req.Header.Set("Accept", "application/json")
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if r.bearer {
		c.authorize(req)
	}

	c.logger.Debug("request", "op", r.op, "method", r.method, "path", r.path, "request_id", requestID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("request failed", "op", r.op, "request_id", requestID, "err", err)
		return nil, fmt.Errorf("%w: %s: %w", shared.ErrNetworkUnreachable, r.op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: failed to read response: %w", shared.ErrNetworkUnreachable, r.op, err)
	}

	c.logger.Debug("response", "op", r.op, "status", resp.StatusCode, "bytes", len(body), "request_id", requestID)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newHTTPError(r.op, r.kind, resp.StatusCode, body, r.bearer)
	}

	return &response{Status: resp.StatusCode, ContentType: resp.Header.Get("Content-Type"), Body: body}, nil
}

// authorize attaches the current bearer token, if any.
func (c *Client) authorize(req *http.Request) {
	if c.tokens == nil {
		return
	}
	tok, err := c.tokens.Token()
	if err != nil || tok == nil || tok.AccessToken == "" {
		c.logger.Debug("no session token; sending unauthenticated request", "path", req.URL.Path)
		return
	}
	tok.SetAuthHeader(req)
}

func jsonBody(v any) (io.Reader, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}
	return bytes.NewReader(data), nil
}

// Login exchanges credentials for a session token.
func (c *Client) Login(ctx context.Context, username, password string) (*models.LoginResult, error) {
	body, err := jsonBody(map[string]string{"username": username, "password": password})
	if err != nil {
		return nil, err
	}

	resp, err := c.do(ctx, request{
		op: "login", method: http.MethodPost, path: "/api/auth/login",
		body: body, contentType: "application/json", kind: shared.ErrAuthFailed,
	})
	if err != nil {
		return nil, err
	}

	var result models.LoginResult
	if err := json.Unmarshal(resp.Body, &result); err != nil {
		return nil, fmt.Errorf("%w: failed to decode login response: %v", shared.ErrAuthFailed, err)
	}
	if result.Token == "" {
		return nil, fmt.Errorf("%w: response carried no token", shared.ErrAuthFailed)
	}
	if result.Username == "" {
		result.Username = username
	}
	return &result, nil
}

// Register creates an account. It does not log in.
func (c *Client) Register(ctx context.Context, username, email, password string) (*models.Ack, error) {
	body, err := jsonBody(map[string]string{"username": username, "email": email, "password": password})
	if err != nil {
		return nil, err
	}

	resp, err := c.do(ctx, request{
		op: "register", method: http.MethodPost, path: "/api/register",
		body: body, contentType: "application/json", kind: shared.ErrRegistrationFailed,
	})
	if err != nil {
		return nil, err
	}
	return decodeAck(resp.Body), nil
}

// Profile returns the account behind the current session token.
func (c *Client) Profile(ctx context.Context) (*models.Profile, error) {
	resp, err := c.do(ctx, request{
		op: "profile", method: http.MethodGet, path: "/api/profile",
		bearer: true, kind: shared.ErrFetchFailed,
	})
	if err != nil {
		return nil, err
	}

	var p models.Profile
	if err := json.Unmarshal(resp.Body, &p); err != nil {
		return nil, fmt.Errorf("%w: failed to decode profile: %v", shared.ErrFetchFailed, err)
	}
	return &p, nil
}

// ListBooks fetches every book owned by the session user.
func (c *Client) ListBooks(ctx context.Context) ([]models.Book, error) {
	resp, err := c.do(ctx, request{
		op: "list books", method: http.MethodGet, path: "/api/books",
		bearer: true, kind: shared.ErrFetchFailed,
	})
	if err != nil {
		return nil, err
	}

	var books []models.Book
	if len(bytes.TrimSpace(resp.Body)) > 0 {
		if err := json.Unmarshal(resp.Body, &books); err != nil {
			return nil, fmt.Errorf("%w: failed to decode books: %v", shared.ErrFetchFailed, err)
		}
	}
	if books == nil {
		books = []models.Book{}
	}

	c.logger.Debug("fetched books", "count", len(books))
	return books, nil
}

// CreateBook submits a new book as multipart form data.
func (c *Client) CreateBook(ctx context.Context, fields models.BookFields) (models.Change, error) {
	body, ct, err := encodeBookFields(fields)
	if err != nil {
		return models.Change{}, fmt.Errorf("%w: %v", shared.ErrCreateFailed, err)
	}

	resp, err := c.do(ctx, request{
		op: "create book", method: http.MethodPost, path: "/api/books",
		body: body, contentType: ct, bearer: true, kind: shared.ErrCreateFailed,
	})
	if err != nil {
		return models.Change{}, err
	}

	book := decodeBook(resp.Body, "")
	change := models.Change{Kind: models.ChangeCreated, Book: book, Message: fmt.Sprintf("added %q", fields.Title)}
	if book != nil {
		change.ID = book.ID
	}
	return change, nil
}

// UpdateBook replaces the fields of book id. A nil image keeps the current cover.
func (c *Client) UpdateBook(ctx context.Context, id models.BookID, fields models.BookFields) (models.Change, error) {
	if id == "" {
		return models.Change{}, fmt.Errorf("%w: %w: book id", shared.ErrUpdateFailed, shared.ErrMissingArgument)
	}

	body, ct, err := encodeBookFields(fields)
	if err != nil {
		return models.Change{}, fmt.Errorf("%w: %v", shared.ErrUpdateFailed, err)
	}

	resp, err := c.do(ctx, request{
		op: "update book", method: http.MethodPut, path: "/api/books/" + url.PathEscape(id.String()),
		body: body, contentType: ct, bearer: true, kind: shared.ErrUpdateFailed,
	})
	if err != nil {
		return models.Change{}, err
	}

	return models.Change{
		Kind:    models.ChangeUpdated,
		ID:      id,
		Book:    decodeBook(resp.Body, id),
		Message: fmt.Sprintf("updated %q", fields.Title),
	}, nil
}

// DeleteBook removes book id. The acknowledgement body may be empty.
func (c *Client) DeleteBook(ctx context.Context, id models.BookID) (models.Change, error) {
	if id == "" {
		return models.Change{}, fmt.Errorf("%w: %w: book id", shared.ErrDeleteFailed, shared.ErrMissingArgument)
	}

	resp, err := c.do(ctx, request{
		op: "delete book", method: http.MethodDelete, path: "/api/books/" + url.PathEscape(id.String()),
		bearer: true, kind: shared.ErrDeleteFailed,
	})
	if err != nil {
		return models.Change{}, err
	}

	return models.Change{Kind: models.ChangeDeleted, ID: id, Message: decodeAck(resp.Body).Message}, nil
}

// CoverURL returns the public URL for a cover reference. Only the last path
// segment of ref is used. An empty ref yields "".
func (c *Client) CoverURL(ref string) string {
	name := coverName(ref)
	if name == "" {
		return ""
	}
	return c.baseURL + "/api/images/" + url.PathEscape(name)
}

// CoverImage downloads a cover. Images are public, so no bearer token is sent.
func (c *Client) CoverImage(ctx context.Context, ref string) ([]byte, string, error) {
	name := coverName(ref)
	if name == "" {
		return nil, "", fmt.Errorf("%w: %w: cover reference", shared.ErrFetchFailed, shared.ErrMissingArgument)
	}

	resp, err := c.do(ctx, request{
		op: "fetch cover", method: http.MethodGet, path: "/api/images/" + url.PathEscape(name),
		kind: shared.ErrFetchFailed,
	})
	if err != nil {
		return nil, "", err
	}

	ct := resp.ContentType
	if ct == "" {
		ct = http.DetectContentType(resp.Body)
	}
	return resp.Body, ct, nil
}

func coverName(ref string) string {
	ref = strings.TrimSpace(ref)
	if i := strings.LastIndexAny(ref, `/\`); i >= 0 {
		ref = ref[i+1:]
	}
	return ref
}

// decodeBook reads a returned record, tolerating empty or non-record bodies.
func decodeBook(body []byte, id models.BookID) *models.Book {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	var b models.Book
	if err := json.Unmarshal(body, &b); err != nil {
		return nil
	}
	if b.Title == "" && b.Author == "" {
		return nil
	}
	if b.ID == "" {
		if id == "" {
			return nil
		}
		b.ID = id
	}
	return &b
}

// decodeAck reads {"message": ...} or falls back to the plain-text body.
func decodeAck(body []byte) *models.Ack {
	var ack models.Ack
	if err := json.Unmarshal(body, &ack); err == nil {
		return &ack
	}
	return &models.Ack{Message: trimBody(string(body))}
}

func trimBody(s string) string {
	return strings.TrimSpace(s)
}
