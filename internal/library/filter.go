package library

import (
	"fmt"
	"strings"

	"github.com/pathum-vimukthi/bookvault/internal/shared"
)

// View is the coarse selector over the collection.
type View string

const (
	ViewDashboard View = "dashboard"
	ViewCompleted View = "completed"
	ViewRemaining View = "remaining"
	ViewAll       View = "all"
)

// Views lists every view in display order.
func Views() []View {
	return []View{ViewDashboard, ViewCompleted, ViewRemaining, ViewAll}
}

// ParseView maps a name to a [View]. Empty means [ViewAll].
func ParseView(s string) (View, error) {
	switch v := View(strings.ToLower(strings.TrimSpace(s))); v {
	case "":
		return ViewAll, nil
	case ViewDashboard, ViewCompleted, ViewRemaining, ViewAll:
		return v, nil
	default:
		return "", fmt.Errorf("%w: view %q (want dashboard, completed, remaining or all)", shared.ErrInvalidArgument, s)
	}
}

// SortKey selects the ordering of the visible books.
type SortKey string

const (
	SortTitle   SortKey = "title"
	SortAuthor  SortKey = "author"
	SortCreated SortKey = "created"
)

var sortKeys = []SortKey{SortTitle, SortAuthor, SortCreated}

// ParseSort maps a name to a [SortKey]. Empty means [SortTitle]; "recent" is accepted for created.
func ParseSort(s string) (SortKey, error) {
	switch k := SortKey(strings.ToLower(strings.TrimSpace(s))); k {
	case "":
		return SortTitle, nil
	case "recent", "recency":
		return SortCreated, nil
	case SortTitle, SortAuthor, SortCreated:
		return k, nil
	default:
		return "", fmt.Errorf("%w: sort %q (want title, author or created)", shared.ErrInvalidArgument, s)
	}
}

// NextSort returns the key after k, wrapping around.
func NextSort(k SortKey) SortKey {
	for i, key := range sortKeys {
		if key == k {
			return sortKeys[(i+1)%len(sortKeys)]
		}
	}
	return SortTitle
}

// OtherLetter selects titles that do not start with a letter.
const OtherLetter = "#"

// Letters returns the letter filter choices: A to Z, then [OtherLetter].
func Letters() []string {
	letters := make([]string, 0, 27)
	for c := 'A'; c <= 'Z'; c++ {
		letters = append(letters, string(c))
	}
	return append(letters, OtherLetter)
}

// StepLetter moves through "" (no filter), A to Z and [OtherLetter] by step, wrapping around.
func StepLetter(current string, step int) string {
	choices := append([]string{""}, Letters()...)
	idx := 0
	for i, l := range choices {
		if strings.EqualFold(l, current) {
			idx = i
			break
		}
	}
	n := len(choices)
	return choices[((idx+step)%n+n)%n]
}

// Filter is the ephemeral filter and sort state for one derivation.
type Filter struct {
	View         View
	Search       string
	Letter       string
	Author       string
	WithCover    bool
	WithProgress bool
	Sort         SortKey
}

// Validate rejects letter filters longer than one character.
func (f Filter) Validate() error {
	if l := strings.TrimSpace(f.Letter); len([]rune(l)) > 1 {
		return fmt.Errorf("%w: letter %q must be a single character", shared.ErrInvalidArgument, f.Letter)
	}
	return nil
}
