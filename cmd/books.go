package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pathum-vimukthi/bookvault/internal/form"
	"github.com/pathum-vimukthi/bookvault/internal/formatter"
	"github.com/pathum-vimukthi/bookvault/internal/library"
	"github.com/pathum-vimukthi/bookvault/internal/models"
	"github.com/pathum-vimukthi/bookvault/internal/shared"
	"github.com/pathum-vimukthi/bookvault/internal/ui"
	"github.com/urfave/cli/v3"
)

// filterFrom builds a [library.Filter] from the filter flags, falling back to the display defaults.
func (r *Runner) filterFrom(cmd *cli.Command) (library.Filter, error) {
	viewName := cmd.String("view")
	if viewName == "" {
		viewName = r.config.Display.DefaultView
	}
	view, err := library.ParseView(viewName)
	if err != nil {
		return library.Filter{}, err
	}

	sortName := cmd.String("sort")
	if sortName == "" {
		sortName = r.config.Display.DefaultSort
	}
	sortKey, err := library.ParseSort(sortName)
	if err != nil {
		return library.Filter{}, err
	}

	f := library.Filter{
		View:         view,
		Search:       cmd.String("search"),
		Letter:       strings.ToUpper(strings.TrimSpace(cmd.String("letter"))),
		Author:       cmd.String("author"),
		WithCover:    cmd.Bool("with-cover"),
		WithProgress: cmd.Bool("with-progress"),
		Sort:         sortKey,
	}
	return f, f.Validate()
}

func (r *Runner) shelf(ctx context.Context, cmd *cli.Command) (library.Shelf, library.Filter, error) {
	f, err := r.filterFrom(cmd)
	if err != nil {
		return library.Shelf{}, f, err
	}
	books, err := r.books(ctx)
	if err != nil {
		return library.Shelf{}, f, err
	}
	shelf := r.library.Derive(books, f)
	r.logger.Debug("derived shelf", "view", f.View, "sort", f.Sort, "shown", len(shelf.Entries), "total", shelf.Stats.Total)
	return shelf, f, nil
}

// BooksList prints the books matching the filters.
func (r *Runner) BooksList(ctx context.Context, cmd *cli.Command) error {
	if err := r.authenticated(ctx); err != nil {
		return err
	}
	shelf, f, err := r.shelf(ctx, cmd)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		data, err := formatter.ExportToJSON(&formatter.Export{Shelf: shelf, CoverURL: r.api.CoverURL})
		if err != nil {
			return err
		}
		return r.writePlain("%s", data)
	}

	if f.View == library.ViewDashboard {
		return r.writePlain("%s\n", ui.StatsPanel(shelf.Stats))
	}

	if len(shelf.Entries) == 0 {
		return r.writePlain("No books match.\n")
	}
	for _, e := range shelf.Entries {
		r.writePlain("%-6s %s - %s (%s)\n", e.Book.ID, e.Book.Title, e.Book.Author, progressLabel(e))
	}
	return r.writePlain("\n%d of %d books\n", len(shelf.Entries), shelf.Stats.Total)
}

func progressLabel(e library.Entry) string {
	if e.Book.PagesTotal <= 0 {
		return string(e.Status)
	}
	return fmt.Sprintf("%d/%d pages, %d%%", e.Book.PagesRead, e.Book.PagesTotal, e.Percent)
}

// BooksAdd creates a book through the form controller.
func (r *Runner) BooksAdd(ctx context.Context, cmd *cli.Command) error {
	if err := r.authenticated(ctx); err != nil {
		return err
	}

	ctrl := form.New(r.api, r.logger)
	fields := form.Fields{
		Title:       cmd.String("title"),
		Author:      cmd.String("author"),
		Description: cmd.String("description"),
		PagesTotal:  form.ParsePages(cmd.String("pages-total")),
		PagesRead:   form.ParsePages(cmd.String("pages-read")),
	}
	closeImage, err := attachImage(&fields, cmd.String("image"))
	if err != nil {
		return err
	}
	defer closeImage()

	ctrl.SetFields(fields)
	return r.submit(ctx, ctrl)
}

// BooksEdit updates a book. Flags that are not set keep the book's current values.
func (r *Runner) BooksEdit(ctx context.Context, cmd *cli.Command) error {
	if err := r.authenticated(ctx); err != nil {
		return err
	}
	book, err := r.findBook(ctx, cmd.String("id"))
	if err != nil {
		return err
	}

	ctrl := form.New(r.api, r.logger)
	ctrl.Edit(book)
	fields := ctrl.Fields()
	if cmd.IsSet("title") {
		fields.Title = cmd.String("title")
	}
	if cmd.IsSet("author") {
		fields.Author = cmd.String("author")
	}
	if cmd.IsSet("description") {
		fields.Description = cmd.String("description")
	}
	if cmd.IsSet("pages-total") {
		fields.PagesTotal = form.ParsePages(cmd.String("pages-total"))
	}
	if cmd.IsSet("pages-read") {
		fields.PagesRead = form.ParsePages(cmd.String("pages-read"))
	}
	closeImage, err := attachImage(&fields, cmd.String("image"))
	if err != nil {
		return err
	}
	defer closeImage()

	ctrl.SetFields(fields)
	return r.submit(ctx, ctrl)
}

func (r *Runner) submit(ctx context.Context, ctrl *form.Controller) error {
	change, err := ctrl.Submit(ctx)
	if err != nil {
		return r.session.Guard(err)
	}
	if change.ID != "" {
		return r.writePlain("✓ %s (id %s)\n", change.Message, change.ID)
	}
	return r.writePlain("✓ %s\n", change.Message)
}

// attachImage opens path as the cover upload. The returned func closes it.
func attachImage(fields *form.Fields, path string) (func(), error) {
	if path == "" {
		return func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: image: %v", shared.ErrInvalidArgument, err)
	}
	fields.Image = &models.ImageUpload{Filename: path, Reader: f}
	return func() { f.Close() }, nil
}

// BooksDelete deletes a book after confirmation, or immediately with --yes.
func (r *Runner) BooksDelete(ctx context.Context, cmd *cli.Command) error {
	if err := r.authenticated(ctx); err != nil {
		return err
	}
	book, err := r.findBook(ctx, cmd.String("id"))
	if err != nil {
		return err
	}

	var confirm form.Confirmer = r.prompter
	if cmd.Bool("yes") {
		confirm = form.ConfirmFunc(func(string) (bool, error) { return true, nil })
	}

	change, err := form.New(r.api, r.logger).Delete(ctx, book, confirm)
	if err != nil {
		return r.session.Guard(err)
	}
	if change.Kind == models.ChangeNone {
		return r.writePlain("Cancelled\n")
	}
	msg := change.Message
	if msg == "" {
		msg = fmt.Sprintf("deleted %q", book.Title)
	}
	return r.writePlain("✓ %s\n", msg)
}

// BooksCover downloads a book's cover, or opens it in the browser with --open.
func (r *Runner) BooksCover(ctx context.Context, cmd *cli.Command) error {
	if err := r.authenticated(ctx); err != nil {
		return err
	}
	book, err := r.findBook(ctx, cmd.String("id"))
	if err != nil {
		return err
	}
	if !book.HasCover() {
		return fmt.Errorf("%w: book %s has no cover", shared.ErrInvalidArgument, book.ID)
	}

	if cmd.Bool("open") {
		url := r.api.CoverURL(book.ImagePath)
		r.logger.Info("opening cover", "url", url)
		if err := shared.OpenBrowser(url); err != nil {
			return err
		}
		return r.writePlain("Opened %s\n", url)
	}

	data, contentType, err := r.api.CoverImage(ctx, book.ImagePath)
	if err != nil {
		return err
	}

	out := cmd.String("output")
	if out == "" {
		out = filepath.Base(strings.ReplaceAll(book.ImagePath, `\`, "/"))
	}
	if dir := filepath.Dir(out); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	if err := os.WriteFile(out, data, 0644); err != nil {
		return fmt.Errorf("failed to write cover: %w", err)
	}

	r.logger.Info("saved cover", "path", out, "type", contentType, "bytes", len(data))
	return r.writePlain("✓ Saved cover to %s (%s, %d bytes)\n", out, contentType, len(data))
}

// BooksExport renders the books matching the filters as csv, markdown, text or json.
func (r *Runner) BooksExport(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}
	if err := r.authenticated(ctx); err != nil {
		return err
	}
	shelf, _, err := r.shelf(ctx, cmd)
	if err != nil {
		return err
	}

	e := &formatter.Export{Title: cmd.String("title"), Shelf: shelf, CoverURL: r.api.CoverURL}
	dest, err := formatter.WriteExport(e, format, cmd.String("output"), r.output)
	if err != nil {
		return err
	}

	r.logger.Info("exported books", "format", format, "count", len(shelf.Entries), "dest", dest)
	if dest != "stdout" {
		return r.writePlain("✓ Exported %d books to %s\n", len(shelf.Entries), dest)
	}
	return nil
}

// Stats prints statistics over the whole collection.
func (r *Runner) Stats(ctx context.Context, cmd *cli.Command) error {
	if err := r.authenticated(ctx); err != nil {
		return err
	}
	books, err := r.books(ctx)
	if err != nil {
		return err
	}

	stats := library.ComputeStats(books)
	if cmd.Bool("json") {
		return r.writeJSON(stats, true)
	}
	return r.writePlain("%s\n", ui.StatsPanel(stats))
}
