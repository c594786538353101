package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/pathum-vimukthi/bookvault/internal/library"
)

var _ list.Item = bookItem{}

// bookItem wraps [library.Entry] to implement [list.Item].
type bookItem struct {
	entry library.Entry
}

func (i bookItem) FilterValue() string { return i.entry.Book.Title }
func (i bookItem) Title() string       { return i.entry.Book.Title }
func (i bookItem) Description() string {
	b := i.entry.Book
	desc := b.Author
	if b.PagesTotal > 0 {
		desc = fmt.Sprintf("%s • %d/%d pages (%d%%)", desc, b.PagesRead, b.PagesTotal, i.entry.Percent)
	} else {
		desc = fmt.Sprintf("%s • %s", desc, i.entry.Status)
	}
	if b.HasCover() {
		desc += " • cover"
	}
	return desc
}

func toItems(entries []library.Entry) []list.Item {
	items := make([]list.Item, len(entries))
	for i, e := range entries {
		items[i] = bookItem{entry: e}
	}
	return items
}
