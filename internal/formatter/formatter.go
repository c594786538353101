// package formatter exports a derived book shelf to CSV, Markdown, plain text and JSON
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pathum-vimukthi/bookvault/internal/library"
	"github.com/pathum-vimukthi/bookvault/internal/shared"
)

// Format is an export file format.
type Format string

const (
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
	FormatText     Format = "text"
	FormatJSON     Format = "json"
)

// ParseFormat maps a name or file extension to a [Format].
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")) {
	case "csv":
		return FormatCSV, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "text", "txt", "":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: format %q (want csv, markdown, text or json)", shared.ErrInvalidArgument, s)
	}
}

// Export is a shelf with the context needed to render it.
type Export struct {
	Title string
	Shelf library.Shelf
	// CoverURL resolves a cover reference to a link. Covers are omitted when nil.
	CoverURL func(ref string) string
}

// Render encodes e in format f.
func Render(e *Export, f Format) ([]byte, error) {
	switch f {
	case FormatCSV:
		return ExportToCSV(e)
	case FormatMarkdown:
		return ExportToMarkdown(e)
	case FormatJSON:
		return ExportToJSON(e)
	default:
		return ExportToText(e)
	}
}

// ExportToCSV converts a shelf to CSV with columns: ID, Title, Author, Pages Read, Pages Total, Progress, Status, Cover, Created
func ExportToCSV(e *Export) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Title", "Author", "Pages Read", "Pages Total", "Progress", "Status", "Cover", "Created"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, entry := range e.Shelf.Entries {
		b := entry.Book
		record := []string{
			b.ID.String(),
			b.Title,
			b.Author,
			strconv.Itoa(b.PagesRead),
			strconv.Itoa(b.PagesTotal),
			strconv.Itoa(entry.Percent),
			string(entry.Status),
			e.cover(b.ImagePath),
			b.CreatedAt.String(),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown renders a heading, the collection statistics and a numbered list of books.
func ExportToMarkdown(e *Export) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", e.title())

	s := e.Shelf.Stats
	fmt.Fprintf(&buf, "**Books**: %d | **Completed**: %d | **In progress**: %d | **Not started**: %d\n\n",
		s.Total, s.Completed, s.InProgress, s.NotStarted)

	buf.WriteString("## Books\n\n")
	if len(e.Shelf.Entries) == 0 {
		buf.WriteString("_No books match._\n")
		return buf.Bytes(), nil
	}

	for i, entry := range e.Shelf.Entries {
		b := entry.Book
		fmt.Fprintf(&buf, "%d. **%s** by %s [%s]\n", i+1, b.Title, b.Author, progressText(entry))
		if d := strings.TrimSpace(b.Description); d != "" {
			fmt.Fprintf(&buf, "   > %s\n", strings.ReplaceAll(d, "\n", " "))
		}
		if link := e.cover(b.ImagePath); link != "" {
			fmt.Fprintf(&buf, "   ![Cover](%s)\n", link)
		}
	}

	return buf.Bytes(), nil
}

// ExportToText converts a shelf to plain text format
func ExportToText(e *Export) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "%s\n", e.title())
	s := e.Shelf.Stats
	fmt.Fprintf(&buf, "Total: %d  Completed: %d  In progress: %d  Not started: %d\n\n",
		s.Total, s.Completed, s.InProgress, s.NotStarted)

	for i, entry := range e.Shelf.Entries {
		fmt.Fprintf(&buf, "%d. %s - %s (%s)\n", i+1, entry.Book.Title, entry.Book.Author, progressText(entry))
	}

	return buf.Bytes(), nil
}

type jsonEntry struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Author      string `json:"author"`
	Description string `json:"description,omitempty"`
	PagesTotal  int    `json:"pagesTotal"`
	PagesRead   int    `json:"pagesRead"`
	Progress    int    `json:"progress"`
	Status      string `json:"status"`
	Cover       string `json:"cover,omitempty"`
	CreatedAt   string `json:"createdAt,omitempty"`
}

type jsonExport struct {
	Title string        `json:"title"`
	Stats library.Stats `json:"stats"`
	Books []jsonEntry   `json:"books"`
}

// ExportToJSON renders the shelf as indented JSON with statistics.
func ExportToJSON(e *Export) ([]byte, error) {
	out := jsonExport{Title: e.title(), Stats: e.Shelf.Stats, Books: make([]jsonEntry, 0, len(e.Shelf.Entries))}
	for _, entry := range e.Shelf.Entries {
		b := entry.Book
		out.Books = append(out.Books, jsonEntry{
			ID:          b.ID.String(),
			Title:       b.Title,
			Author:      b.Author,
			Description: b.Description,
			PagesTotal:  b.PagesTotal,
			PagesRead:   b.PagesRead,
			Progress:    entry.Percent,
			Status:      string(entry.Status),
			Cover:       e.cover(b.ImagePath),
			CreatedAt:   b.CreatedAt.String(),
		})
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode JSON: %w", err)
	}
	return append(data, '\n'), nil
}

// WriteExport renders e and writes it to path, or to w when path is empty or "-".
// It returns the destination written to.
func WriteExport(e *Export, f Format, path string, w io.Writer) (string, error) {
	data, err := Render(e, f)
	if err != nil {
		return "", fmt.Errorf("failed to generate %s: %w", f, err)
	}

	if path == "" || path == "-" {
		if _, err := w.Write(data); err != nil {
			return "", fmt.Errorf("failed to write export: %w", err)
		}
		return "stdout", nil
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("failed to create directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s file: %w", f, err)
	}
	return path, nil
}

func (e *Export) title() string {
	if t := strings.TrimSpace(e.Title); t != "" {
		return t
	}
	return "Library"
}

func (e *Export) cover(ref string) string {
	if e.CoverURL == nil || strings.TrimSpace(ref) == "" {
		return ""
	}
	return e.CoverURL(ref)
}

func progressText(entry library.Entry) string {
	b := entry.Book
	if b.PagesTotal == 0 {
		return string(entry.Status)
	}
	return fmt.Sprintf("%d/%d pages, %d%%", b.PagesRead, b.PagesTotal, entry.Percent)
}
