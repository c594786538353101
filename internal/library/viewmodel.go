package library

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/pathum-vimukthi/bookvault/internal/models"
	"github.com/pathum-vimukthi/bookvault/internal/shared"
)

// Status is a book's reading state.
type Status string

const (
	StatusNotStarted Status = "not started"
	StatusInProgress Status = "in progress"
	StatusCompleted  Status = "completed"
)

// Entry is a visible book with its display annotations.
type Entry struct {
	Book    models.Book
	Percent int
	Status  Status
}

// Stats summarizes a whole collection.
type Stats struct {
	Total      int `json:"total"`
	Completed  int `json:"completed"`
	InProgress int `json:"inProgress"`
	NotStarted int `json:"notStarted"`
}

// Shelf is the result of a derivation.
type Shelf struct {
	Entries []Entry
	Stats   Stats
}

// Books returns the visible books in order.
func (s Shelf) Books() []models.Book {
	books := make([]models.Book, len(s.Entries))
	for i, e := range s.Entries {
		books[i] = e.Book
	}
	return books
}

// ViewModel derives shelves using the collation rules of one locale.
type ViewModel struct {
	tag language.Tag
}

// New returns a view-model for locale (a BCP 47 tag). Empty means English.
func New(locale string) (*ViewModel, error) {
	if strings.TrimSpace(locale) == "" {
		return &ViewModel{tag: language.English}, nil
	}
	tag, err := language.Parse(strings.TrimSpace(locale))
	if err != nil {
		return nil, fmt.Errorf("%w: locale %q: %v", shared.ErrInvalidConfig, locale, err)
	}
	return &ViewModel{tag: tag}, nil
}

// Locale returns the collation locale.
func (vm *ViewModel) Locale() language.Tag { return vm.tag }

// Derive filters, sorts and annotates books. books is not modified.
func (vm *ViewModel) Derive(books []models.Book, f Filter) Shelf {
	visible := make([]models.Book, 0, len(books))
	for _, b := range books {
		if keep(b, f) {
			visible = append(visible, b)
		}
	}

	vm.sort(visible, f.Sort)

	entries := make([]Entry, len(visible))
	for i, b := range visible {
		entries[i] = Entry{Book: b, Percent: Progress(b), Status: StatusOf(b)}
	}
	return Shelf{Entries: entries, Stats: ComputeStats(books)}
}

// keep runs the filter pipeline in order and reports whether b survives every stage.
func keep(b models.Book, f Filter) bool {
	switch f.View {
	case ViewCompleted:
		if !isCompleted(b) {
			return false
		}
	case ViewRemaining:
		if isCompleted(b) {
			return false
		}
	}

	if q := normalize(f.Search); q != "" {
		if !strings.Contains(strings.ToLower(b.Title), q) && !strings.Contains(strings.ToLower(b.Author), q) {
			return false
		}
	}

	if l := strings.TrimSpace(f.Letter); l != "" && !matchLetter(b.Title, l) {
		return false
	}

	if q := normalize(f.Author); q != "" && !strings.Contains(strings.ToLower(b.Author), q) {
		return false
	}

	if f.WithCover && !b.HasCover() {
		return false
	}

	if f.WithProgress && b.PagesRead <= 0 {
		return false
	}

	return true
}

func matchLetter(title, letter string) bool {
	title = strings.TrimSpace(title)
	if letter == OtherLetter {
		return title == "" || !isASCIILetter(title[0])
	}
	return strings.HasPrefix(strings.ToLower(title), strings.ToLower(letter))
}

func isASCIILetter(c byte) bool {
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

func normalize(q string) string {
	return strings.ToLower(strings.TrimSpace(q))
}

func (vm *ViewModel) sort(books []models.Book, key SortKey) {
	switch key {
	case SortCreated:
		type keyed struct {
			book    models.Book
			created time.Time
		}
		ks := make([]keyed, len(books))
		for i, b := range books {
			ks[i] = keyed{book: b, created: b.CreatedTime()}
		}
		sort.SliceStable(ks, func(i, j int) bool {
			return ks[i].created.After(ks[j].created)
		})
		for i, k := range ks {
			books[i] = k.book
		}
	case SortAuthor:
		c := collate.New(vm.tag)
		sort.SliceStable(books, func(i, j int) bool {
			return c.CompareString(books[i].Author, books[j].Author) < 0
		})
	default:
		c := collate.New(vm.tag)
		sort.SliceStable(books, func(i, j int) bool {
			return c.CompareString(books[i].Title, books[j].Title) < 0
		})
	}
}

func isCompleted(b models.Book) bool {
	return b.PagesTotal > 0 && b.PagesRead >= b.PagesTotal
}

// StatusOf classifies b the same way [ComputeStats] counts it.
func StatusOf(b models.Book) Status {
	switch {
	case isCompleted(b):
		return StatusCompleted
	case b.PagesTotal > 0 && b.PagesRead > 0:
		return StatusInProgress
	default:
		return StatusNotStarted
	}
}

// Progress is the percentage of pages read, rounded and clamped to [0, 100].
// A zero total counts as one page for the ratio.
func Progress(b models.Book) int {
	total := max(b.PagesTotal, 1)
	pct := int(math.Round(float64(b.PagesRead) / float64(total) * 100))
	return min(max(pct, 0), 100)
}

// ComputeStats counts books by reading state.
func ComputeStats(books []models.Book) Stats {
	s := Stats{Total: len(books)}
	for _, b := range books {
		switch StatusOf(b) {
		case StatusCompleted:
			s.Completed++
		case StatusInProgress:
			s.InProgress++
		}
	}
	s.NotStarted = s.Total - s.Completed - s.InProgress
	return s
}

// Apply returns a copy of books with change merged in.
//
// Created and updated records replace any book with the same id, or are appended.
// Changes without a record leave books as they are; check [models.Change.NeedsRefetch].
func Apply(books []models.Book, change models.Change) []models.Book {
	out := make([]models.Book, 0, len(books)+1)

	switch change.Kind {
	case models.ChangeDeleted:
		for _, b := range books {
			if b.ID != change.ID {
				out = append(out, b)
			}
		}
		return out

	case models.ChangeCreated, models.ChangeUpdated:
		out = append(out, books...)
		if change.Book == nil {
			return out
		}
		for i, b := range out {
			if b.ID == change.Book.ID {
				out[i] = *change.Book
				return out
			}
		}
		return append(out, *change.Book)

	default:
		return append(out, books...)
	}
}
