// Package form manages create/edit state for a single book and turns it into API calls.
package form

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"

	"github.com/pathum-vimukthi/bookvault/internal/models"
	"github.com/pathum-vimukthi/bookvault/internal/shared"
)

// BookWriter is the subset of the API client the form needs.
type BookWriter interface {
	CreateBook(ctx context.Context, fields models.BookFields) (models.Change, error)
	UpdateBook(ctx context.Context, id models.BookID, fields models.BookFields) (models.Change, error)
	DeleteBook(ctx context.Context, id models.BookID) (models.Change, error)
}

// Confirmer asks the user a yes/no question.
type Confirmer interface {
	Confirm(question string) (bool, error)
}

// ConfirmFunc adapts a function to [Confirmer].
type ConfirmFunc func(question string) (bool, error)

func (f ConfirmFunc) Confirm(question string) (bool, error) { return f(question) }

// Fields is the editable state of the form.
type Fields struct {
	Title       string
	Author      string
	Description string
	Image       *models.ImageUpload
	PagesTotal  int
	PagesRead   int
}

// Controller holds one form. Submit and Delete may be called from any goroutine;
// a second call while one is running fails with [shared.ErrSubmitInFlight].
type Controller struct {
	api    BookWriter
	logger *log.Logger

	mu      sync.Mutex
	fields  Fields
	editing models.BookID
	err     error

	inFlight atomic.Bool
}

// New returns an empty form in create mode. logger may be nil.
func New(api BookWriter, logger *log.Logger) *Controller {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Controller{api: api, logger: logger}
}

// ParsePages coerces user input to a page count. Non-numeric and negative input is 0.
func ParsePages(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// Fields returns the current field values.
func (c *Controller) Fields() Fields {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fields
}

// SetFields replaces every field value.
func (c *Controller) SetFields(f Fields) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fields = f
}

// Editing returns the id being edited, and false in create mode.
func (c *Controller) Editing() (models.BookID, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.editing, c.editing != ""
}

// Err returns the failure from the last Submit or Delete, if any.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Edit loads b into the form and switches to update mode.
func (c *Controller) Edit(b models.Book) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fields = Fields{
		Title:       b.Title,
		Author:      b.Author,
		Description: b.Description,
		PagesTotal:  b.PagesTotal,
		PagesRead:   b.PagesRead,
	}
	c.editing = b.ID
	c.err = nil
}

// Reset clears every field and returns to create mode.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetLocked()
}

func (c *Controller) resetLocked() {
	c.fields = Fields{}
	c.editing = ""
	c.err = nil
}

// Validate checks the current fields without contacting the backend.
func (c *Controller) Validate() error {
	return Validate(c.Fields())
}

// Validate checks f: title and author are required, page counts are non-negative,
// and pages read cannot exceed the total.
func Validate(f Fields) error {
	if strings.TrimSpace(f.Title) == "" {
		return fmt.Errorf("%w: title", shared.ErrRequiredField)
	}
	if strings.TrimSpace(f.Author) == "" {
		return fmt.Errorf("%w: author", shared.ErrRequiredField)
	}
	if f.PagesTotal < 0 {
		return fmt.Errorf("%w: total pages %d", shared.ErrInvalidPageCount, f.PagesTotal)
	}
	if f.PagesRead < 0 {
		return fmt.Errorf("%w: pages read %d", shared.ErrInvalidPageCount, f.PagesRead)
	}
	if f.PagesRead > f.PagesTotal {
		return fmt.Errorf("%w: %d of %d", shared.ErrPagesExceedTotal, f.PagesRead, f.PagesTotal)
	}
	return nil
}

// Submit validates the form and creates or updates the book.
//
// On success the form is reset to create mode. On failure the fields are kept
// and the error is also available from [Controller.Err].
func (c *Controller) Submit(ctx context.Context) (models.Change, error) {
	if !c.inFlight.CompareAndSwap(false, true) {
		return models.Change{}, shared.ErrSubmitInFlight
	}
	defer c.inFlight.Store(false)

	c.mu.Lock()
	fields, editing := c.fields, c.editing
	c.mu.Unlock()

	if err := Validate(fields); err != nil {
		c.fail(err)
		return models.Change{}, err
	}

	payload := models.BookFields{
		Title:       strings.TrimSpace(fields.Title),
		Author:      strings.TrimSpace(fields.Author),
		Description: fields.Description,
		PagesTotal:  models.IntPtr(fields.PagesTotal),
		PagesRead:   models.IntPtr(fields.PagesRead),
		Image:       fields.Image,
	}

	var (
		change models.Change
		err    error
	)
	if editing != "" {
		c.logger.Debug("updating book", "id", editing, "title", payload.Title)
		change, err = c.api.UpdateBook(ctx, editing, payload)
	} else {
		c.logger.Debug("creating book", "title", payload.Title)
		change, err = c.api.CreateBook(ctx, payload)
	}
	if err != nil {
		c.fail(err)
		return models.Change{}, err
	}

	c.mu.Lock()
	c.resetLocked()
	c.mu.Unlock()

	c.logger.Info("saved book", "kind", change.Kind, "id", change.ID)
	return change, nil
}

// Delete asks confirm before deleting b. Declining returns a [models.ChangeNone] change and no error.
func (c *Controller) Delete(ctx context.Context, b models.Book, confirm Confirmer) (models.Change, error) {
	if b.ID == "" {
		return models.Change{}, fmt.Errorf("%w: book id", shared.ErrMissingArgument)
	}
	if confirm == nil {
		return models.Change{}, fmt.Errorf("%w: delete needs confirmation", shared.ErrMissingArgument)
	}

	ok, err := confirm.Confirm(deletePrompt(b))
	if err != nil {
		return models.Change{}, fmt.Errorf("confirm delete: %w", err)
	}
	if !ok {
		c.logger.Debug("delete declined", "id", b.ID)
		return models.Change{Kind: models.ChangeNone, ID: b.ID}, nil
	}

	if !c.inFlight.CompareAndSwap(false, true) {
		return models.Change{}, shared.ErrSubmitInFlight
	}
	defer c.inFlight.Store(false)

	change, err := c.api.DeleteBook(ctx, b.ID)
	if err != nil {
		c.fail(err)
		return models.Change{}, err
	}

	c.mu.Lock()
	if c.editing == b.ID {
		c.resetLocked()
	}
	c.mu.Unlock()

	c.logger.Info("deleted book", "id", b.ID)
	return change, nil
}

func deletePrompt(b models.Book) string {
	if t := strings.TrimSpace(b.Title); t != "" {
		return fmt.Sprintf("Delete %q?", t)
	}
	return fmt.Sprintf("Delete book %s?", b.ID)
}

func (c *Controller) fail(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = err
}
