package testing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/pathum-vimukthi/bookvault/internal/models"
)

const (
	fakeSecret = "bookvault-test-secret-0123456789abcdef"
	paramID    = "id"
	paramName  = "name"
)

type fakeUser struct {
	id       int64
	username string
	email    string
	password string
}

type fakeImage struct {
	contentType string
	data        []byte
}

type failure struct {
	status int
	body   string
}

// FakeAPI is an in-memory library backend served over httptest.
//
// Tokens are HS256 JWTs carrying sub, userId and exp. Every request is counted
// by "METHOD /path" so tests can assert that no call was made.
type FakeAPI struct {
	Server *httptest.Server

	mu       sync.Mutex
	users    map[string]*fakeUser
	books    map[string][]models.Book
	images   map[string]fakeImage
	revoked  map[string]bool
	failures map[string]failure
	hits     map[string]int
	auth     map[string]string
	nextUser int64
	nextBook int
	clock    func() time.Time
	ttl      time.Duration
}

// NewFakeAPI starts a fake backend that is closed when t finishes.
func NewFakeAPI(t *testing.T) *FakeAPI {
	t.Helper()
	f := &FakeAPI{
		users:    make(map[string]*fakeUser),
		books:    make(map[string][]models.Book),
		images:   make(map[string]fakeImage),
		revoked:  make(map[string]bool),
		failures: make(map[string]failure),
		hits:     make(map[string]int),
		auth:     make(map[string]string),
		clock:    time.Now,
		ttl:      time.Hour,
	}
	f.Server = httptest.NewServer(f.routes())
	t.Cleanup(f.Server.Close)
	return f
}

// URL returns the base URL of the fake backend.
func (f *FakeAPI) URL() string { return f.Server.URL }

func (f *FakeAPI) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(f.record)

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", f.handleLogin)
		r.Post("/register", f.handleRegister)
		r.Get("/images/{"+paramName+"}", f.handleImage)

		r.Group(func(r chi.Router) {
			r.Use(f.requireToken)
			r.Get("/profile", f.handleProfile)
			r.Route("/books", func(r chi.Router) {
				r.Get("/", f.handleListBooks)
				r.Post("/", f.handleCreateBook)
				r.Put("/{"+paramID+"}", f.handleUpdateBook)
				r.Delete("/{"+paramID+"}", f.handleDeleteBook)
			})
		})
	})
	return r
}

// AddUser registers an account directly.
func (f *FakeAPI) AddUser(username, email, password string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.addUserLocked(username, email, password)
}

func (f *FakeAPI) addUserLocked(username, email, password string) *fakeUser {
	f.nextUser++
	u := &fakeUser{id: f.nextUser, username: username, email: email, password: password}
	f.users[username] = u
	return u
}

// IssueToken signs a token for username, creating the user if needed.
func (f *FakeAPI) IssueToken(username string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[username]
	if !ok {
		u = f.addUserLocked(username, username+"@example.com", "password")
	}
	return f.signLocked(u)
}

func (f *FakeAPI) signLocked(u *fakeUser) string {
	now := f.clock()
	claims := jwt.MapClaims{
		"sub":    u.username,
		"userId": u.id,
		"iat":    now.Unix(),
		"exp":    now.Add(f.ttl).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(fakeSecret))
	if err != nil {
		panic(fmt.Sprintf("sign token: %v", err))
	}
	return token
}

// Seed stores books for username, assigning ids to books without one.
func (f *FakeAPI) Seed(username string, books ...models.Book) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range books {
		if b.ID == "" {
			f.nextBook++
			b.ID = models.BookID(strconv.Itoa(f.nextBook))
		}
		f.books[username] = append(f.books[username], b)
	}
}

// Books returns the books currently stored for username.
func (f *FakeAPI) Books(username string) []models.Book {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Book(nil), f.books[username]...)
}

// Revoke makes token fail with 401 from now on.
func (f *FakeAPI) Revoke(token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revoked[token] = true
}

// Fail makes every "METHOD path" request answer status with body.
func (f *FakeAPI) Fail(method, path string, status int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[method+" "+path] = failure{status: status, body: body}
}

// Hits returns how many "METHOD path" requests were received.
func (f *FakeAPI) Hits(method, path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[method+" "+path]
}

// LastAuthorization returns the Authorization header of the last "METHOD path" request.
func (f *FakeAPI) LastAuthorization(method, path string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.auth[method+" "+path]
}

// Image returns a stored cover by file name.
func (f *FakeAPI) Image(name string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	img, ok := f.images[name]
	return img.data, ok
}

// record counts requests and applies injected failures.
func (f *FakeAPI) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + strings.TrimSuffix(r.URL.Path, "/")
		f.mu.Lock()
		f.hits[key]++
		f.auth[key] = r.Header.Get("Authorization")
		fail, failing := f.failures[key]
		f.mu.Unlock()

		if failing {
			http.Error(w, fail.body, fail.status)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type userKey struct{}

func (f *FakeAPI) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || raw == "" {
			writeJSON(w, http.StatusUnauthorized, models.Ack{Message: "Missing token"})
			return
		}

		token, err := jwt.Parse(raw, func(*jwt.Token) (any, error) { return []byte(fakeSecret), nil },
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithTimeFunc(f.clock))
		if err != nil || !token.Valid {
			writeJSON(w, http.StatusUnauthorized, models.Ack{Message: "Invalid token"})
			return
		}

		f.mu.Lock()
		revoked := f.revoked[raw]
		f.mu.Unlock()
		if revoked {
			writeJSON(w, http.StatusUnauthorized, models.Ack{Message: "Invalid token"})
			return
		}

		sub, _ := token.Claims.GetSubject()
		next.ServeHTTP(w, r.WithContext(withUser(r, sub)))
	})
}

func (f *FakeAPI) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.Ack{Message: "Invalid request"})
		return
	}

	f.mu.Lock()
	u, ok := f.users[req.Username]
	if !ok || u.password != req.Password {
		f.mu.Unlock()
		writeJSON(w, http.StatusUnauthorized, models.Ack{Message: "Invalid username or password"})
		return
	}
	token := f.signLocked(u)
	f.mu.Unlock()

	writeJSON(w, http.StatusOK, models.LoginResult{
		Message: "Login successful", Token: token, UserID: u.id, Username: u.username,
	})
}

func (f *FakeAPI) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.Ack{Message: "Invalid request"})
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.users[req.Username]; exists {
		writeJSON(w, http.StatusBadRequest, models.Ack{Message: "Username already exists"})
		return
	}
	for _, u := range f.users {
		if u.email == req.Email {
			writeJSON(w, http.StatusBadRequest, models.Ack{Message: "Email already exists"})
			return
		}
	}
	f.addUserLocked(req.Username, req.Email, req.Password)
	writeJSON(w, http.StatusOK, models.Ack{Message: "Registration successful"})
}

func (f *FakeAPI) handleProfile(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	u, ok := f.users[userFrom(r)]
	f.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, models.Ack{Message: "User not found"})
		return
	}
	writeJSON(w, http.StatusOK, models.Profile{ID: u.id, Username: u.username, Email: u.email})
}

func (f *FakeAPI) handleListBooks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, f.Books(userFrom(r)))
}

func (f *FakeAPI) handleCreateBook(w http.ResponseWriter, r *http.Request) {
	book, ok := f.readBookForm(w, r, models.Book{CreatedAt: models.Timestamp(f.clock().UTC().Format(time.RFC3339))})
	if !ok {
		return
	}

	f.mu.Lock()
	f.nextBook++
	book.ID = models.BookID(strconv.Itoa(f.nextBook))
	user := userFrom(r)
	f.books[user] = append(f.books[user], book)
	f.mu.Unlock()

	writeJSON(w, http.StatusOK, book)
}

func (f *FakeAPI) handleUpdateBook(w http.ResponseWriter, r *http.Request) {
	id := models.BookID(chi.URLParam(r, paramID))
	user := userFrom(r)

	f.mu.Lock()
	idx := indexOf(f.books[user], id)
	var current models.Book
	if idx >= 0 {
		current = f.books[user][idx]
	}
	f.mu.Unlock()

	if idx < 0 {
		writeJSON(w, http.StatusNotFound, models.Ack{Message: "Book not found"})
		return
	}

	book, ok := f.readBookForm(w, r, current)
	if !ok {
		return
	}

	f.mu.Lock()
	if idx = indexOf(f.books[user], id); idx >= 0 {
		f.books[user][idx] = book
	}
	f.mu.Unlock()

	writeJSON(w, http.StatusOK, book)
}

func (f *FakeAPI) handleDeleteBook(w http.ResponseWriter, r *http.Request) {
	id := models.BookID(chi.URLParam(r, paramID))
	user := userFrom(r)

	f.mu.Lock()
	defer f.mu.Unlock()
	idx := indexOf(f.books[user], id)
	if idx < 0 {
		writeJSON(w, http.StatusNotFound, models.Ack{Message: "Book not found"})
		return
	}
	f.books[user] = append(f.books[user][:idx], f.books[user][idx+1:]...)
	writeJSON(w, http.StatusOK, models.Ack{Message: "Book deleted successfully"})
}

func (f *FakeAPI) handleImage(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, paramName)
	f.mu.Lock()
	img, ok := f.images[name]
	f.mu.Unlock()
	if !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", img.contentType)
	w.Write(img.data)
}

// readBookForm parses the multipart body over base. Missing page fields keep base values.
func (f *FakeAPI) readBookForm(w http.ResponseWriter, r *http.Request, base models.Book) (models.Book, bool) {
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		writeJSON(w, http.StatusBadRequest, models.Ack{Message: "Expected multipart form"})
		return base, false
	}

	book := base
	book.Title = r.FormValue("title")
	book.Author = r.FormValue("author")
	book.Description = r.FormValue("description")
	if strings.TrimSpace(book.Title) == "" || strings.TrimSpace(book.Author) == "" {
		writeJSON(w, http.StatusBadRequest, models.Ack{Message: "Title and author are required"})
		return base, false
	}

	for field, dst := range map[string]*int{"pagesTotal": &book.PagesTotal, "pagesRead": &book.PagesRead} {
		if _, present := r.MultipartForm.Value[field]; !present {
			continue
		}
		n, err := strconv.Atoi(r.FormValue(field))
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, models.Ack{Message: "Invalid " + field})
			return base, false
		}
		*dst = n
	}

	file, header, err := r.FormFile("image")
	if err == nil {
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, models.Ack{Message: "Unreadable image"})
			return base, false
		}
		name := uuid.NewString() + "_" + header.Filename
		ct := header.Header.Get("Content-Type")
		if ct == "" {
			ct = http.DetectContentType(data)
		}
		f.mu.Lock()
		f.images[name] = fakeImage{contentType: ct, data: data}
		f.mu.Unlock()
		book.ImagePath = "uploads/" + name
	}

	return book, true
}

func indexOf(books []models.Book, id models.BookID) int {
	for i, b := range books {
		if b.ID == id {
			return i
		}
	}
	return -1
}

func withUser(r *http.Request, username string) context.Context {
	return context.WithValue(r.Context(), userKey{}, username)
}

func userFrom(r *http.Request) string {
	s, _ := r.Context().Value(userKey{}).(string)
	return s
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
