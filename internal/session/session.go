package session

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"

	"github.com/pathum-vimukthi/bookvault/internal/models"
	"github.com/pathum-vimukthi/bookvault/internal/shared"
)

// Storage keys. They match the names the web front-end used in local storage.
const (
	KeyToken    = "authToken"
	KeyUsername = "username"
)

// Storage is a durable string key/value store.
type Storage interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Delete(key string) error
}

// Session is a snapshot of the stored credentials.
type Session struct {
	Token    string
	Username string
	// Claims is zero when the token is not a decodable JWT.
	Claims Claims
}

// Store reads and writes the session through a [Storage].
// Every read goes to storage so a clear from one caller is seen by all.
type Store struct {
	storage Storage
	logger  *log.Logger
}

var _ oauth2.TokenSource = (*Store)(nil)

// NewStore wraps storage. logger may be nil.
func NewStore(storage Storage, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Store{storage: storage, logger: logger}
}

// Save persists token and username. An empty username falls back to the token subject.
func (s *Store) Save(token, username string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("%w: empty token", shared.ErrInvalidArgument)
	}

	username = strings.TrimSpace(username)
	if username == "" {
		if c, err := ParseClaims(token); err == nil {
			username = c.Subject
		}
	}

	if err := s.storage.Set(KeyToken, token); err != nil {
		return fmt.Errorf("save session token: %w", err)
	}
	if err := s.storage.Set(KeyUsername, username); err != nil {
		return fmt.Errorf("save session username: %w", err)
	}

	s.logger.Debug("session saved", "username", username)
	return nil
}

// SaveLogin persists the result of a successful login.
func (s *Store) SaveLogin(res *models.LoginResult) error {
	if res == nil {
		return fmt.Errorf("%w: nil login result", shared.ErrInvalidArgument)
	}
	return s.Save(res.Token, res.Username)
}

// Clear removes the token and username.
func (s *Store) Clear() error {
	err := errors.Join(s.storage.Delete(KeyToken), s.storage.Delete(KeyUsername))
	if err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	s.logger.Debug("session cleared")
	return nil
}

// Username returns the stored display name, or "" when signed out.
func (s *Store) Username() (string, error) {
	v, _, err := s.storage.Get(KeyUsername)
	if err != nil {
		return "", fmt.Errorf("read session username: %w", err)
	}
	return v, nil
}

// Current returns the stored session or [shared.ErrNotAuthenticated].
func (s *Store) Current() (Session, error) {
	token, ok, err := s.storage.Get(KeyToken)
	if err != nil {
		return Session{}, fmt.Errorf("read session token: %w", err)
	}
	if !ok || token == "" {
		return Session{}, shared.ErrNotAuthenticated
	}

	username, err := s.Username()
	if err != nil {
		return Session{}, err
	}

	sess := Session{Token: token, Username: username}
	if c, err := ParseClaims(token); err == nil {
		sess.Claims = c
	} else {
		s.logger.Debug("token is not a decodable JWT; using it as an opaque bearer", "err", err)
	}
	return sess, nil
}

// Authenticated reports whether a token is stored. It does not check expiry.
func (s *Store) Authenticated() bool {
	_, err := s.Current()
	return err == nil
}

// Token implements [oauth2.TokenSource]. Expiry comes from the JWT exp claim when present.
func (s *Store) Token() (*oauth2.Token, error) {
	sess, err := s.Current()
	if err != nil {
		return nil, err
	}
	return &oauth2.Token{
		AccessToken: sess.Token,
		TokenType:   "Bearer",
		Expiry:      sess.Claims.ExpiresAt,
	}, nil
}

// Guard applies the 401 policy to err from an authenticated call.
//
// If err unwraps to [shared.ErrUnauthorized] the session is cleared and the
// returned error wraps [shared.ErrNotAuthenticated]. Other errors are returned unchanged.
func (s *Store) Guard(err error) error {
	if err == nil || !errors.Is(err, shared.ErrUnauthorized) {
		return err
	}

	s.logger.Warn("backend rejected session token; signing out", "err", err)
	if clearErr := s.Clear(); clearErr != nil {
		s.logger.Error("failed to clear rejected session", "err", clearErr)
	}
	return fmt.Errorf("%w: session expired: %w", shared.ErrNotAuthenticated, err)
}
