package form

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/pathum-vimukthi/bookvault/internal/models"
	"github.com/pathum-vimukthi/bookvault/internal/services"
	"github.com/pathum-vimukthi/bookvault/internal/shared"
	tu "github.com/pathum-vimukthi/bookvault/internal/testing"
)

type stubWriter struct {
	mu      sync.Mutex
	creates []models.BookFields
	updates map[models.BookID]models.BookFields
	deletes []models.BookID
	err     error
	block   chan struct{}
	entered chan struct{}
}

func (s *stubWriter) wait() {
	if s.entered != nil {
		s.entered <- struct{}{}
	}
	if s.block != nil {
		<-s.block
	}
}

func (s *stubWriter) CreateBook(ctx context.Context, f models.BookFields) (models.Change, error) {
	s.wait()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creates = append(s.creates, f)
	if s.err != nil {
		return models.Change{}, s.err
	}
	return models.Change{Kind: models.ChangeCreated, ID: "new", Book: &models.Book{ID: "new", Title: f.Title}}, nil
}

func (s *stubWriter) UpdateBook(ctx context.Context, id models.BookID, f models.BookFields) (models.Change, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updates == nil {
		s.updates = make(map[models.BookID]models.BookFields)
	}
	s.updates[id] = f
	if s.err != nil {
		return models.Change{}, s.err
	}
	return models.Change{Kind: models.ChangeUpdated, ID: id}, nil
}

func (s *stubWriter) DeleteBook(ctx context.Context, id models.BookID) (models.Change, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletes = append(s.deletes, id)
	if s.err != nil {
		return models.Change{}, s.err
	}
	return models.Change{Kind: models.ChangeDeleted, ID: id}, nil
}

func (s *stubWriter) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.creates) + len(s.updates) + len(s.deletes)
}

func TestParsePages(t *testing.T) {
	tc := map[string]int{
		"":      0,
		"12":    12,
		" 7 ":   7,
		"abc":   0,
		"-5":    0,
		"3.5":   0,
		"1e3":   0,
		"00042": 42,
	}
	for in, want := range tc {
		assert.Equal(t, want, ParsePages(in), "ParsePages(%q)", in)
	}
}

func TestValidate(t *testing.T) {
	tc := []struct {
		name   string
		fields Fields
		want   error
	}{
		{name: "valid", fields: Fields{Title: "Dune", Author: "Herbert", PagesTotal: 10, PagesRead: 10}},
		{name: "zero pages", fields: Fields{Title: "Dune", Author: "Herbert"}},
		{name: "blank title", fields: Fields{Title: "  ", Author: "Herbert"}, want: shared.ErrRequiredField},
		{name: "missing author", fields: Fields{Title: "Dune"}, want: shared.ErrRequiredField},
		{name: "negative total", fields: Fields{Title: "a", Author: "b", PagesTotal: -1}, want: shared.ErrInvalidPageCount},
		{name: "negative read", fields: Fields{Title: "a", Author: "b", PagesRead: -1}, want: shared.ErrInvalidPageCount},
		{name: "read exceeds total", fields: Fields{Title: "a", Author: "b", PagesTotal: 100, PagesRead: 150}, want: shared.ErrPagesExceedTotal},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.fields)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestSubmit(t *testing.T) {
	ctx := context.Background()

	t.Run("pages read over total is rejected locally", func(t *testing.T) {
		api := &stubWriter{}
		c := New(api, nil)
		c.SetFields(Fields{Title: "Dune", Author: "Herbert", PagesTotal: 100, PagesRead: 150})

		_, err := c.Submit(ctx)
		assert.ErrorIs(t, err, shared.ErrPagesExceedTotal)
		assert.ErrorIs(t, c.Err(), shared.ErrPagesExceedTotal)
		assert.Zero(t, api.calls(), "no network call")
		assert.Equal(t, 150, c.Fields().PagesRead, "fields kept")
	})

	t.Run("create resets on success", func(t *testing.T) {
		api := &stubWriter{}
		c := New(api, nil)
		c.SetFields(Fields{Title: "  Dune ", Author: "Herbert", Description: "spice", PagesTotal: 400, PagesRead: 12})

		change, err := c.Submit(ctx)
		require.NoError(t, err)
		assert.Equal(t, models.ChangeCreated, change.Kind)

		require.Len(t, api.creates, 1)
		sent := api.creates[0]
		assert.Equal(t, "Dune", sent.Title)
		assert.Equal(t, "spice", sent.Description)
		require.NotNil(t, sent.PagesTotal)
		assert.Equal(t, 400, *sent.PagesTotal)
		assert.Equal(t, 12, *sent.PagesRead)

		assert.Equal(t, Fields{}, c.Fields())
		assert.NoError(t, c.Err())
	})

	t.Run("edit dispatches update and leaves edit mode", func(t *testing.T) {
		api := &stubWriter{}
		c := New(api, nil)
		c.Edit(models.Book{ID: "9", Title: "Emma", Author: "Austen", PagesTotal: 300, PagesRead: 20})

		id, editing := c.Editing()
		require.True(t, editing)
		assert.Equal(t, models.BookID("9"), id)

		f := c.Fields()
		f.PagesRead = 300
		c.SetFields(f)

		change, err := c.Submit(ctx)
		require.NoError(t, err)
		assert.Equal(t, models.ChangeUpdated, change.Kind)
		assert.Equal(t, 300, *api.updates["9"].PagesRead)
		assert.Empty(t, api.creates)

		_, editing = c.Editing()
		assert.False(t, editing)
	})

	t.Run("api failure keeps input", func(t *testing.T) {
		boom := fmt.Errorf("%w: status 500", shared.ErrUpdateFailed)
		api := &stubWriter{err: boom}
		c := New(api, nil)
		c.Edit(models.Book{ID: "9", Title: "Emma", Author: "Austen"})

		_, err := c.Submit(ctx)
		assert.ErrorIs(t, err, boom)
		assert.ErrorIs(t, c.Err(), boom)
		assert.Equal(t, "Emma", c.Fields().Title)
		id, editing := c.Editing()
		assert.True(t, editing)
		assert.Equal(t, models.BookID("9"), id)
	})

	t.Run("overlapping submit is rejected", func(t *testing.T) {
		api := &stubWriter{block: make(chan struct{}), entered: make(chan struct{})}
		c := New(api, nil)
		c.SetFields(Fields{Title: "Dune", Author: "Herbert"})

		done := make(chan error)
		go func() {
			_, err := c.Submit(ctx)
			done <- err
		}()
		<-api.entered

		_, err := c.Submit(ctx)
		assert.ErrorIs(t, err, shared.ErrSubmitInFlight)

		_, err = c.Delete(ctx, models.Book{ID: "1"}, ConfirmFunc(func(string) (bool, error) { return true, nil }))
		assert.ErrorIs(t, err, shared.ErrSubmitInFlight)

		close(api.block)
		require.NoError(t, <-done)
		assert.Len(t, api.creates, 1)
		assert.Empty(t, api.deletes)

		api.entered = nil
		c.SetFields(Fields{Title: "Emma", Author: "Austen"})
		_, err = c.Submit(ctx)
		assert.NoError(t, err, "flag released after completion")
	})
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	book := models.Book{ID: "4", Title: "1984"}

	t.Run("declined is a no-op", func(t *testing.T) {
		api := &stubWriter{}
		var asked string
		c := New(api, nil)

		change, err := c.Delete(ctx, book, ConfirmFunc(func(q string) (bool, error) {
			asked = q
			return false, nil
		}))
		require.NoError(t, err)
		assert.Equal(t, models.ChangeNone, change.Kind)
		assert.Empty(t, api.deletes)
		assert.Equal(t, `Delete "1984"?`, asked)
	})

	t.Run("confirmed deletes", func(t *testing.T) {
		api := &stubWriter{}
		c := New(api, nil)
		c.Edit(book)

		change, err := c.Delete(ctx, book, ConfirmFunc(func(string) (bool, error) { return true, nil }))
		require.NoError(t, err)
		assert.Equal(t, models.ChangeDeleted, change.Kind)
		assert.Equal(t, []models.BookID{"4"}, api.deletes)

		_, editing := c.Editing()
		assert.False(t, editing, "deleting the edited book leaves edit mode")
	})

	t.Run("confirmer error aborts", func(t *testing.T) {
		api := &stubWriter{}
		c := New(api, nil)
		_, err := c.Delete(ctx, book, ConfirmFunc(func(string) (bool, error) { return false, errors.New("eof") }))
		assert.Error(t, err)
		assert.Empty(t, api.deletes)
	})

	t.Run("missing id or confirmer", func(t *testing.T) {
		c := New(&stubWriter{}, nil)
		_, err := c.Delete(ctx, models.Book{}, ConfirmFunc(func(string) (bool, error) { return true, nil }))
		assert.ErrorIs(t, err, shared.ErrMissingArgument)
		_, err = c.Delete(ctx, book, nil)
		assert.ErrorIs(t, err, shared.ErrMissingArgument)
	})

	t.Run("failure is surfaced", func(t *testing.T) {
		api := &stubWriter{err: shared.ErrDeleteFailed}
		c := New(api, nil)
		_, err := c.Delete(ctx, book, ConfirmFunc(func(string) (bool, error) { return true, nil }))
		assert.ErrorIs(t, err, shared.ErrDeleteFailed)
		assert.ErrorIs(t, c.Err(), shared.ErrDeleteFailed)
	})
}

func TestAgainstFakeBackend(t *testing.T) {
	ctx := context.Background()
	api := tu.NewFakeAPI(t)
	token := api.IssueToken("alice")
	client := services.NewClient(api.URL(), oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}), services.Options{})
	c := New(client, nil)

	c.SetFields(Fields{Title: "Dune", Author: "Herbert", PagesTotal: ParsePages("400"), PagesRead: ParsePages("abc")})
	change, err := c.Submit(ctx)
	require.NoError(t, err)
	require.NotNil(t, change.Book)
	assert.Equal(t, 0, change.Book.PagesRead)

	c.Edit(*change.Book)
	f := c.Fields()
	f.PagesRead = 500
	c.SetFields(f)
	_, err = c.Submit(ctx)
	require.ErrorIs(t, err, shared.ErrPagesExceedTotal)
	assert.Zero(t, api.Hits("PUT", "/api/books/"+change.ID.String()))

	f.PagesRead = 400
	c.SetFields(f)
	updated, err := c.Submit(ctx)
	require.NoError(t, err)
	assert.Equal(t, 400, updated.Book.PagesRead)

	yes := ConfirmFunc(func(string) (bool, error) { return true, nil })
	_, err = c.Delete(ctx, *updated.Book, yes)
	require.NoError(t, err)
	assert.Empty(t, api.Books("alice"))
}
