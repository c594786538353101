package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/pathum-vimukthi/bookvault/internal/models"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgBooksLoaded MsgKind = iota
	MsgBookDeleted
)

type booksLoaded struct {
	books []models.Book
	err   error
}

type bookDeleted struct {
	change models.Change
	err    error
}

// booksLoadedMsg is the constructor for [MsgBooksLoaded]
func booksLoadedMsg(books []models.Book, err error) Msg {
	return Msg{kind: MsgBooksLoaded, data: booksLoaded{books, err}}
}

// bookDeletedMsg is the constructor for [MsgBookDeleted]
func bookDeletedMsg(change models.Change, err error) Msg {
	return Msg{kind: MsgBookDeleted, data: bookDeleted{change, err}}
}
