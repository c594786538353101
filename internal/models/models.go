// package models defines the data model for the library client
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// BookID is the server-assigned identifier. The backend may encode it as a
// JSON number or string; it is always held as a string.
type BookID string

// UnmarshalJSON accepts numbers, strings and null.
func (id *BookID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*id = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = BookID(s)
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("book id: %w", err)
		}
		*id = BookID(n.String())
	}
	return nil
}

func (id BookID) String() string { return string(id) }

// Book is a library entry as held by the backend.
type Book struct {
	ID          BookID    `json:"id"`
	Title       string    `json:"title"`
	Author      string    `json:"author"`
	Description string    `json:"description,omitempty"`
	ImagePath   string    `json:"imagePath,omitempty"`
	PagesTotal  int       `json:"pagesTotal"`
	PagesRead   int       `json:"pagesRead"`
	CreatedAt   Timestamp `json:"createdAt,omitempty"`
}

// Timestamp is the creation time as sent by the backend: a date string in
// any common layout, or a number of milliseconds since the Unix epoch.
type Timestamp string

// UnmarshalJSON accepts strings, numbers and null.
func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*ts = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*ts = Timestamp(s)
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("createdAt: %w", err)
		}
		*ts = Timestamp(n.String())
	}
	return nil
}

// Time parses the timestamp. Integers are epoch milliseconds. Missing or
// unparseable values are the Unix epoch.
func (ts Timestamp) Time() time.Time {
	s := strings.TrimSpace(string(ts))
	if s == "" {
		return time.Unix(0, 0).UTC()
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC()
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return time.UnixMilli(int64(f)).UTC()
	}
	t, err := dateparse.ParseAny(s)
	if err != nil {
		return time.Unix(0, 0).UTC()
	}
	return t
}

func (ts Timestamp) String() string { return string(ts) }

// CreatedTime is CreatedAt as a time. See [Timestamp.Time].
func (b Book) CreatedTime() time.Time {
	return b.CreatedAt.Time()
}

// HasCover reports whether the book references a cover image.
func (b Book) HasCover() bool {
	return strings.TrimSpace(b.ImagePath) != ""
}

// LoginResult is the body of a successful login.
type LoginResult struct {
	Message  string `json:"message"`
	Token    string `json:"token"`
	UserID   int64  `json:"userId"`
	Username string `json:"username"`
}

// Ack is a message-only response (registration, deletion).
type Ack struct {
	Message string `json:"message"`
}

// Profile is the authenticated user's account.
type Profile struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// ImageUpload is a cover image attached to a create or update.
type ImageUpload struct {
	Filename string
	Reader   io.Reader
}

// BookFields carries create/update input. Nil page counts are omitted from the
// request so the backend applies its own default.
type BookFields struct {
	Title       string
	Author      string
	Description string
	PagesTotal  *int
	PagesRead   *int
	Image       *ImageUpload
}

// IntPtr returns a pointer to n.
func IntPtr(n int) *int { return &n }
