package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/oauth2"

	"github.com/pathum-vimukthi/bookvault/internal/models"
	"github.com/pathum-vimukthi/bookvault/internal/shared"
	tu "github.com/pathum-vimukthi/bookvault/internal/testing"
)

func newFakeClient(t *testing.T) (*tu.FakeAPI, *Client, string) {
	t.Helper()
	api := tu.NewFakeAPI(t)
	token := api.IssueToken("alice")
	return api, NewClient(api.URL(), oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}), Options{}), token
}

func TestNewClient(t *testing.T) {
	t.Run("With Empty BaseURL", func(t *testing.T) {
		c := NewClient("", nil, Options{})
		if c.BaseURL() != "http://localhost:8080" {
			t.Errorf("expected default baseURL, got %s", c.BaseURL())
		}
	})

	t.Run("Trailing Slash Is Trimmed", func(t *testing.T) {
		c := NewClient("https://books.example.com/ ", nil, Options{})
		if c.BaseURL() != "https://books.example.com" {
			t.Errorf("expected trimmed baseURL, got %s", c.BaseURL())
		}
	})

	t.Run("With Nil Client", func(t *testing.T) {
		c := NewClient("http://example.com", nil, Options{})
		if c.httpClient != http.DefaultClient {
			t.Error("expected http.DefaultClient to be used")
		}
		if c.limiter != nil {
			t.Error("expected no limiter by default")
		}
	})

	t.Run("With Rate Limit", func(t *testing.T) {
		c := NewClient("http://example.com", nil, Options{RequestsPerSecond: 5})
		if c.limiter == nil {
			t.Fatal("expected limiter")
		}
	})
}

func TestLogin(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		api := tu.NewFakeAPI(t)
		api.AddUser("alice", "alice@example.com", "hunter2")
		c := NewClient(api.URL(), nil, Options{})

		result, err := c.Login(context.Background(), "alice", "hunter2")
		if err != nil {
			t.Fatalf("Login() error = %v", err)
		}
		if result.Token == "" || result.Username != "alice" || result.UserID == 0 {
			t.Errorf("unexpected login result %+v", result)
		}
		if api.LastAuthorization(http.MethodPost, "/api/auth/login") != "" {
			t.Error("login must not send a bearer header")
		}
	})

	t.Run("Bad Credentials", func(t *testing.T) {
		api := tu.NewFakeAPI(t)
		api.AddUser("alice", "alice@example.com", "hunter2")
		c := NewClient(api.URL(), nil, Options{})

		_, err := c.Login(context.Background(), "alice", "wrong")
		if !errors.Is(err, shared.ErrAuthFailed) {
			t.Fatalf("expected ErrAuthFailed, got %v", err)
		}
		var httpErr *HTTPError
		if !errors.As(err, &httpErr) || httpErr.Status != http.StatusUnauthorized {
			t.Errorf("expected HTTPError with status 401, got %v", err)
		}
		if errors.Is(err, shared.ErrUnauthorized) {
			t.Error("failed login must not read as an expired session")
		}
	})

	t.Run("Response Without Token", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"message":"ok"}`))
		}))
		defer server.Close()

		_, err := NewClient(server.URL, nil, Options{}).Login(context.Background(), "a", "b")
		if !errors.Is(err, shared.ErrAuthFailed) {
			t.Errorf("expected ErrAuthFailed, got %v", err)
		}
	})
}

func TestRegister(t *testing.T) {
	api := tu.NewFakeAPI(t)
	c := NewClient(api.URL(), nil, Options{})

	ack, err := c.Register(context.Background(), "bob", "bob@example.com", "pw")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if ack.Message != "Registration successful" {
		t.Errorf("unexpected ack %q", ack.Message)
	}

	_, err = c.Register(context.Background(), "bob", "other@example.com", "pw")
	if !errors.Is(err, shared.ErrRegistrationFailed) {
		t.Fatalf("expected ErrRegistrationFailed, got %v", err)
	}
	if !strings.Contains(err.Error(), "Username already exists") {
		t.Errorf("expected body in error, got %v", err)
	}
}

func TestListBooks(t *testing.T) {
	t.Run("Attaches Bearer Token", func(t *testing.T) {
		api, c, token := newFakeClient(t)
		api.Seed("alice", models.Book{Title: "Dune", Author: "Herbert", PagesTotal: 400})

		books, err := c.ListBooks(context.Background())
		if err != nil {
			t.Fatalf("ListBooks() error = %v", err)
		}
		if len(books) != 1 || books[0].Title != "Dune" || books[0].ID == "" {
			t.Errorf("unexpected books %+v", books)
		}
		if got := api.LastAuthorization(http.MethodGet, "/api/books"); got != "Bearer "+token {
			t.Errorf("expected bearer header, got %q", got)
		}
	})

	t.Run("Null Body Is Empty", func(t *testing.T) {
		_, c, _ := newFakeClient(t)

		books, err := c.ListBooks(context.Background())
		if err != nil {
			t.Fatalf("ListBooks() error = %v", err)
		}
		if books == nil || len(books) != 0 {
			t.Errorf("expected empty non-nil slice, got %#v", books)
		}
	})

	t.Run("Numeric CreatedAt", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`[{"id":1,"title":"Dune","author":"Frank Herbert","pagesTotal":412,"pagesRead":0,"createdAt":1700000000000},` +
				`{"id":2,"title":"Emma","author":"Jane Austen","pagesTotal":300,"pagesRead":0,"createdAt":null}]`))
		}))
		defer server.Close()

		books, err := NewClient(server.URL, nil, Options{}).ListBooks(context.Background())
		if err != nil {
			t.Fatalf("ListBooks() error = %v", err)
		}
		if len(books) != 2 {
			t.Fatalf("expected 2 books, got %d", len(books))
		}
		if got, want := books[0].CreatedTime(), time.UnixMilli(1700000000000).UTC(); !got.Equal(want) {
			t.Errorf("CreatedTime() = %v, want %v", got, want)
		}
		if got := books[1].CreatedTime(); !got.Equal(time.Unix(0, 0)) {
			t.Errorf("expected epoch for null createdAt, got %v", got)
		}
	})

	t.Run("Missing Token Still Sends Request", func(t *testing.T) {
		api := tu.NewFakeAPI(t)
		c := NewClient(api.URL(), nil, Options{})

		_, err := c.ListBooks(context.Background())
		if !errors.Is(err, shared.ErrUnauthorized) || !errors.Is(err, shared.ErrFetchFailed) {
			t.Errorf("expected unauthorized fetch failure, got %v", err)
		}
		if api.Hits(http.MethodGet, "/api/books") != 1 {
			t.Error("expected request to reach the backend")
		}
		if api.LastAuthorization(http.MethodGet, "/api/books") != "" {
			t.Error("expected no Authorization header")
		}
	})

	t.Run("Token Source Error Sends No Header", func(t *testing.T) {
		api := tu.NewFakeAPI(t)
		c := NewClient(api.URL(), failingTokens{}, Options{})

		_, err := c.ListBooks(context.Background())
		if !errors.Is(err, shared.ErrUnauthorized) {
			t.Errorf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("Revoked Token Is Unauthorized", func(t *testing.T) {
		api, c, token := newFakeClient(t)
		api.Revoke(token)

		_, err := c.ListBooks(context.Background())
		var httpErr *HTTPError
		if !errors.As(err, &httpErr) || !httpErr.Unauthorized() {
			t.Errorf("expected unauthorized HTTPError, got %v", err)
		}
		if api.Hits(http.MethodGet, "/api/books") != 1 {
			t.Error("expected exactly one request, no retry")
		}
	})

	t.Run("Server Error Carries Status And Body", func(t *testing.T) {
		api, c, _ := newFakeClient(t)
		api.Fail(http.MethodGet, "/api/books", http.StatusInternalServerError, "database down")

		_, err := c.ListBooks(context.Background())
		if !errors.Is(err, shared.ErrFetchFailed) {
			t.Fatalf("expected ErrFetchFailed, got %v", err)
		}
		var httpErr *HTTPError
		if !errors.As(err, &httpErr) {
			t.Fatalf("expected HTTPError, got %T", err)
		}
		if httpErr.Status != http.StatusInternalServerError || httpErr.Body != "database down" {
			t.Errorf("unexpected HTTPError %+v", httpErr)
		}
		if errors.Is(err, shared.ErrUnauthorized) {
			t.Error("500 must not unwrap to ErrUnauthorized")
		}
	})

	t.Run("Transport Failure Is Network Unreachable", func(t *testing.T) {
		client := &http.Client{Transport: tu.NewMockRoundTripper(nil, errors.New("connection refused"))}
		c := NewClient("http://example.com", nil, Options{HTTPClient: client})

		_, err := c.ListBooks(context.Background())
		if !errors.Is(err, shared.ErrNetworkUnreachable) {
			t.Errorf("expected ErrNetworkUnreachable, got %v", err)
		}
		if errors.Is(err, shared.ErrFetchFailed) {
			t.Error("transport failures are not HTTP failures")
		}
	})

	t.Run("Failed Response Body Read", func(t *testing.T) {
		client := &http.Client{Transport: tu.NewMockRoundTripper(&http.Response{
			StatusCode: http.StatusOK,
			Body:       &tu.FCloser{},
			Header:     http.Header{},
		}, nil)}
		c := NewClient("http://example.com", nil, Options{HTTPClient: client})

		_, err := c.ListBooks(context.Background())
		if err == nil || !strings.Contains(err.Error(), "failed to read response") {
			t.Errorf("expected read failure, got %v", err)
		}
	})

	t.Run("Malformed JSON", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"not":"a list"`))
		}))
		defer server.Close()

		_, err := NewClient(server.URL, nil, Options{}).ListBooks(context.Background())
		if !errors.Is(err, shared.ErrFetchFailed) {
			t.Errorf("expected ErrFetchFailed, got %v", err)
		}
	})

	t.Run("Request Metadata", func(t *testing.T) {
		rt := tu.NewMockRoundTripper(&http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader("[]")),
			Header:     http.Header{},
		}, nil)
		c := NewClient("http://example.com", nil, Options{HTTPClient: &http.Client{Transport: rt}, UserAgent: "bookvault/test"})

		if _, err := c.ListBooks(context.Background()); err != nil {
			t.Fatalf("ListBooks() error = %v", err)
		}

		reqs := rt.Requests()
		if len(reqs) != 1 {
			t.Fatalf("expected 1 request, got %d", len(reqs))
		}
		if reqs[0].Header.Get("X-Request-ID") == "" {
			t.Error("expected X-Request-ID header")
		}
		if reqs[0].Header.Get("User-Agent") != "bookvault/test" {
			t.Errorf("unexpected user agent %q", reqs[0].Header.Get("User-Agent"))
		}
	})

	t.Run("With Canceled Context", func(t *testing.T) {
		_, c, _ := newFakeClient(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := c.ListBooks(ctx)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}

func TestCreateBook(t *testing.T) {
	t.Run("Multipart With Image", func(t *testing.T) {
		api, c, _ := newFakeClient(t)

		fields := models.BookFields{
			Title:      "Dune",
			Author:     "Herbert",
			PagesTotal: models.IntPtr(400),
			PagesRead:  models.IntPtr(10),
			Image:      &models.ImageUpload{Filename: "/tmp/covers/dune.png", Reader: bytes.NewReader([]byte("\x89PNG fake"))},
		}

		change, err := c.CreateBook(context.Background(), fields)
		if err != nil {
			t.Fatalf("CreateBook() error = %v", err)
		}
		if change.Kind != models.ChangeCreated || change.Book == nil || change.ID == "" {
			t.Fatalf("unexpected change %+v", change)
		}
		if change.Book.PagesTotal != 400 || change.Book.PagesRead != 10 {
			t.Errorf("page counts not sent: %+v", change.Book)
		}
		if !strings.HasSuffix(change.Book.ImagePath, "_dune.png") {
			t.Errorf("expected uploaded image path, got %q", change.Book.ImagePath)
		}

		stored := api.Books("alice")
		if len(stored) != 1 || stored[0].Title != "Dune" {
			t.Errorf("backend did not store book: %+v", stored)
		}
	})

	t.Run("Omits Unset Page Counts", func(t *testing.T) {
		var gotFields map[string][]string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := r.ParseMultipartForm(1 << 20); err != nil {
				t.Errorf("expected multipart body: %v", err)
			}
			gotFields = r.MultipartForm.Value
			w.Write([]byte(`{"id": 9, "title": "Emma", "author": "Austen"}`))
		}))
		defer server.Close()

		change, err := NewClient(server.URL, nil, Options{}).CreateBook(context.Background(), models.BookFields{Title: "Emma", Author: "Austen"})
		if err != nil {
			t.Fatalf("CreateBook() error = %v", err)
		}
		if change.ID != "9" {
			t.Errorf("expected numeric id decoded as 9, got %q", change.ID)
		}
		if _, ok := gotFields["pagesTotal"]; ok {
			t.Error("pagesTotal should be omitted when unset")
		}
		if _, ok := gotFields["description"]; !ok {
			t.Error("description should always be sent")
		}
	})

	t.Run("Empty Response Needs Refetch", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusCreated)
		}))
		defer server.Close()

		change, err := NewClient(server.URL, nil, Options{}).CreateBook(context.Background(), models.BookFields{Title: "X", Author: "Y"})
		if err != nil {
			t.Fatalf("CreateBook() error = %v", err)
		}
		if !change.NeedsRefetch() {
			t.Error("expected change without record to need a refetch")
		}
	})

	t.Run("Rejected", func(t *testing.T) {
		api, c, _ := newFakeClient(t)
		api.Fail(http.MethodPost, "/api/books", http.StatusBadRequest, "bad image")

		_, err := c.CreateBook(context.Background(), models.BookFields{Title: "Dune", Author: "Herbert"})
		if !errors.Is(err, shared.ErrCreateFailed) {
			t.Errorf("expected ErrCreateFailed, got %v", err)
		}
	})
}

func TestUpdateBook(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		api, c, _ := newFakeClient(t)
		api.Seed("alice", models.Book{ID: "5", Title: "Dune", Author: "Herbert", PagesTotal: 400, ImagePath: "uploads/x.png"})

		change, err := c.UpdateBook(context.Background(), "5", models.BookFields{
			Title: "Dune", Author: "Frank Herbert", PagesTotal: models.IntPtr(400), PagesRead: models.IntPtr(400),
		})
		if err != nil {
			t.Fatalf("UpdateBook() error = %v", err)
		}
		if change.Kind != models.ChangeUpdated || change.ID != "5" {
			t.Errorf("unexpected change %+v", change)
		}
		if change.Book == nil || change.Book.Author != "Frank Herbert" || change.Book.ImagePath != "uploads/x.png" {
			t.Errorf("unexpected record %+v", change.Book)
		}
	})

	t.Run("Unknown Book", func(t *testing.T) {
		_, c, _ := newFakeClient(t)

		_, err := c.UpdateBook(context.Background(), "404", models.BookFields{Title: "a", Author: "b"})
		var httpErr *HTTPError
		if !errors.Is(err, shared.ErrUpdateFailed) || !errors.As(err, &httpErr) || httpErr.Status != http.StatusNotFound {
			t.Errorf("expected 404 update failure, got %v", err)
		}
	})

	t.Run("Missing ID", func(t *testing.T) {
		_, err := NewClient("http://example.com", nil, Options{}).UpdateBook(context.Background(), "", models.BookFields{})
		if !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})
}

func TestDeleteBook(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		api, c, _ := newFakeClient(t)
		api.Seed("alice", models.Book{ID: "1", Title: "Dune", Author: "Herbert"})

		change, err := c.DeleteBook(context.Background(), "1")
		if err != nil {
			t.Fatalf("DeleteBook() error = %v", err)
		}
		if change.Kind != models.ChangeDeleted || change.ID != "1" || change.Message != "Book deleted successfully" {
			t.Errorf("unexpected change %+v", change)
		}
		if len(api.Books("alice")) != 0 {
			t.Error("expected book removed")
		}
	})

	t.Run("Empty Acknowledgement", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}))
		defer server.Close()

		change, err := NewClient(server.URL, nil, Options{}).DeleteBook(context.Background(), "3")
		if err != nil {
			t.Fatalf("DeleteBook() error = %v", err)
		}
		if change.Message != "" || change.ID != "3" {
			t.Errorf("unexpected change %+v", change)
		}
	})

	t.Run("Failure Carries Status And Body", func(t *testing.T) {
		_, c, _ := newFakeClient(t)

		_, err := c.DeleteBook(context.Background(), "99")
		if !errors.Is(err, shared.ErrDeleteFailed) {
			t.Fatalf("expected ErrDeleteFailed, got %v", err)
		}
		if !strings.Contains(err.Error(), "404") || !strings.Contains(err.Error(), "Book not found") {
			t.Errorf("expected status and body in %q", err.Error())
		}
	})
}

func TestCovers(t *testing.T) {
	t.Run("CoverURL", func(t *testing.T) {
		c := NewClient("http://books.local/", nil, Options{})
		tc := map[string]string{
			"uploads/abc_dune.png":   "http://books.local/api/images/abc_dune.png",
			"abc.png":                "http://books.local/api/images/abc.png",
			`C:\covers\x.jpg`:        "http://books.local/api/images/x.jpg",
			"uploads/with space.png": "http://books.local/api/images/with%20space.png",
			"":                       "",
		}
		for ref, want := range tc {
			if got := c.CoverURL(ref); got != want {
				t.Errorf("CoverURL(%q) = %q, want %q", ref, got, want)
			}
		}
	})

	t.Run("CoverImage Is Public", func(t *testing.T) {
		api, c, _ := newFakeClient(t)
		change, err := c.CreateBook(context.Background(), models.BookFields{
			Title: "Dune", Author: "Herbert",
			Image: &models.ImageUpload{Filename: "dune.png", Reader: strings.NewReader("cover-bytes")},
		})
		if err != nil {
			t.Fatalf("CreateBook() error = %v", err)
		}

		data, ct, err := c.CoverImage(context.Background(), change.Book.ImagePath)
		if err != nil {
			t.Fatalf("CoverImage() error = %v", err)
		}
		if string(data) != "cover-bytes" || ct != "image/png" {
			t.Errorf("unexpected cover %q (%s)", data, ct)
		}

		name := change.Book.ImagePath[strings.LastIndex(change.Book.ImagePath, "/")+1:]
		if api.LastAuthorization(http.MethodGet, "/api/images/"+name) != "" {
			t.Error("cover requests must not carry a bearer token")
		}
	})

	t.Run("Missing Cover", func(t *testing.T) {
		_, c, _ := newFakeClient(t)
		_, _, err := c.CoverImage(context.Background(), "uploads/missing.png")
		if !errors.Is(err, shared.ErrFetchFailed) {
			t.Errorf("expected ErrFetchFailed, got %v", err)
		}
	})
}

func TestProfile(t *testing.T) {
	_, c, _ := newFakeClient(t)

	p, err := c.Profile(context.Background())
	if err != nil {
		t.Fatalf("Profile() error = %v", err)
	}
	if p.Username != "alice" || p.Email != "alice@example.com" {
		t.Errorf("unexpected profile %+v", p)
	}
}

func TestRateLimit(t *testing.T) {
	api, _, token := newFakeClient(t)
	c := NewClient(api.URL(), oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}), Options{RequestsPerSecond: 20})

	start := time.Now()
	for range 3 {
		if _, err := c.ListBooks(context.Background()); err != nil {
			t.Fatalf("ListBooks() error = %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed < 90*time.Millisecond {
		t.Errorf("expected limiter to space requests, took %v", elapsed)
	}
}

type failingTokens struct{}

func (failingTokens) Token() (*oauth2.Token, error) { return nil, errors.New("no session") }
