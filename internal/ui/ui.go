package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/pathum-vimukthi/bookvault/internal/form"
	"github.com/pathum-vimukthi/bookvault/internal/library"
	"github.com/pathum-vimukthi/bookvault/internal/models"
	"github.com/pathum-vimukthi/bookvault/internal/shared"
)

// BookLister loads the whole collection.
type BookLister interface {
	ListBooks(ctx context.Context) ([]models.Book, error)
}

// Config holds the dependencies of a [Model].
type Config struct {
	Books   BookLister
	Form    *form.Controller
	Library *library.ViewModel
	// Guard applies the 401 policy. Nil leaves errors unchanged.
	Guard  func(error) error
	Filter library.Filter
	Logger *log.Logger
}

type inputMode int

const (
	inputNone inputMode = iota
	inputSearch
	inputAuthor
)

// Model represents the dashboard state.
type Model struct {
	ctx     context.Context
	books   BookLister
	form    *form.Controller
	vm      *library.ViewModel
	guard   func(error) error
	logger  *log.Logger
	filter  library.Filter
	all     []models.Book
	shelf   library.Shelf
	loading bool
	list    list.Model
	input   textinput.Model
	mode    inputMode
	prev    string
	pending *models.Book
	status  string
	err     error
	fatal   error
	width   int
	height  int
	help    help.Model
	keys    keyMap
}

// NewModel creates a dashboard over cfg.
func NewModel(ctx context.Context, cfg Config) *Model {
	guard := cfg.Guard
	if guard == nil {
		guard = func(err error) error { return err }
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	filter := cfg.Filter
	if filter.View == "" {
		filter.View = library.ViewAll
	}
	if filter.Sort == "" {
		filter.Sort = library.SortTitle
	}

	l := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	l.Title = "Books"
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)
	l.SetShowStatusBar(false)

	in := textinput.New()
	in.CharLimit = 64

	return &Model{
		ctx:    ctx,
		books:  cfg.Books,
		form:   cfg.Form,
		vm:     cfg.Library,
		guard:  guard,
		logger: logger,
		filter: filter,
		list:   l,
		input:  in,
		help:   help.New(),
		keys:   newKeyMap(),
	}
}

// Err returns the error that ended the program, if any.
func (m *Model) Err() error { return m.fatal }

// Filter returns the current filter state.
func (m *Model) Filter() library.Filter { return m.filter }

// Shelf returns the books currently derived for display.
func (m *Model) Shelf() library.Shelf { return m.shelf }

// Init initializes the dashboard by loading the collection.
func (m *Model) Init() tea.Cmd {
	m.loading = true
	return m.load()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.list.SetSize(msg.Width-4, msg.Height-10)
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		switch {
		case m.pending != nil:
			return m.handleConfirmKeys(msg)
		case m.mode != inputNone:
			return m.handleInputKeys(msg)
		}
		return m.handleKeys(msg)

	case Msg:
		switch msg.kind {
		case MsgBooksLoaded:
			data := msg.data.(booksLoaded)
			m.loading = false
			if data.err != nil {
				return m.fail("load books", data.err)
			}
			m.all = data.books
			m.err = nil
			m.status = fmt.Sprintf("loaded %d books", len(data.books))
			m.logger.Info("loaded books", "count", len(data.books))
			return m, m.refresh()

		case MsgBookDeleted:
			data := msg.data.(bookDeleted)
			if data.err != nil {
				return m.fail("delete book", data.err)
			}
			m.err = nil
			if data.change.Kind == models.ChangeNone {
				m.status = "delete cancelled"
				return m, nil
			}
			if data.change.NeedsRefetch() {
				m.loading = true
				return m, m.load()
			}
			m.all = library.Apply(m.all, data.change)
			m.status = data.change.Message
			if m.status == "" {
				m.status = "deleted"
			}
			return m, m.refresh()
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// View renders the dashboard.
func (m *Model) View() string {
	if m.fatal != nil {
		return styles.err.Render(fmt.Sprintf("Error: %v", m.fatal))
	}

	var b strings.Builder
	b.WriteString(m.renderTabs())
	b.WriteString("\n")
	b.WriteString(m.renderFilters())
	b.WriteString("\n\n")

	switch {
	case m.loading && len(m.all) == 0:
		b.WriteString(styles.help.Render("Loading books..."))
	case m.filter.View == library.ViewDashboard:
		b.WriteString(StatsPanel(m.shelf.Stats))
	default:
		b.WriteString(m.list.View())
	}
	b.WriteString("\n\n")

	switch {
	case m.pending != nil:
		b.WriteString(styles.warn.Render(fmt.Sprintf("Delete %q? ", m.pending.Title)))
		b.WriteString(m.help.ShortHelpView([]key.Binding{m.keys.yes, m.keys.no}))
	case m.mode != inputNone:
		b.WriteString(m.input.View())
		b.WriteString("\n")
		b.WriteString(m.help.ShortHelpView([]key.Binding{m.keys.accept, m.keys.back}))
	default:
		if m.err != nil {
			b.WriteString(styles.err.Render(m.err.Error()))
		} else if m.status != "" {
			b.WriteString(styles.help.Render(m.status))
		}
		b.WriteString("\n")
		b.WriteString(m.help.View(m.keys))
	}
	return b.String()
}

func (m *Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.views):
		idx := int(msg.String()[0] - '1')
		m.filter.View = library.Views()[idx]
		return m, m.refresh()
	case key.Matches(msg, m.keys.search):
		return m, m.openInput(inputSearch, "search: ", m.filter.Search)
	case key.Matches(msg, m.keys.author):
		return m, m.openInput(inputAuthor, "author: ", m.filter.Author)
	case key.Matches(msg, m.keys.prevLetter):
		m.filter.Letter = library.StepLetter(m.filter.Letter, -1)
		return m, m.refresh()
	case key.Matches(msg, m.keys.nextLetter):
		m.filter.Letter = library.StepLetter(m.filter.Letter, 1)
		return m, m.refresh()
	case key.Matches(msg, m.keys.cover):
		m.filter.WithCover = !m.filter.WithCover
		return m, m.refresh()
	case key.Matches(msg, m.keys.progress):
		m.filter.WithProgress = !m.filter.WithProgress
		return m, m.refresh()
	case key.Matches(msg, m.keys.sort):
		m.filter.Sort = library.NextSort(m.filter.Sort)
		return m, m.refresh()
	case key.Matches(msg, m.keys.reload):
		m.loading = true
		m.status = "reloading..."
		return m, m.load()
	case key.Matches(msg, m.keys.remove):
		if m.filter.View == library.ViewDashboard {
			return m, nil
		}
		if item, ok := m.list.SelectedItem().(bookItem); ok {
			b := item.entry.Book
			m.pending = &b
		}
		return m, nil
	}

	if m.filter.View == library.ViewDashboard {
		return m, nil
	}
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m *Model) handleInputKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.accept):
		m.closeInput()
		return m, nil
	case key.Matches(msg, m.keys.back):
		m.setInput(m.prev)
		m.closeInput()
		return m, m.refresh()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.setInput(m.input.Value())
	return m, tea.Batch(cmd, m.refresh())
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.yes):
		b := *m.pending
		m.pending = nil
		m.status = "deleting..."
		return m, m.remove(b, true)
	case key.Matches(msg, m.keys.no):
		b := *m.pending
		m.pending = nil
		return m, m.remove(b, false)
	}
	return m, nil
}

func (m *Model) openInput(mode inputMode, prompt, value string) tea.Cmd {
	m.mode = mode
	m.prev = value
	m.input.Prompt = prompt
	m.input.SetValue(value)
	m.input.CursorEnd()
	return m.input.Focus()
}

func (m *Model) closeInput() {
	m.mode = inputNone
	m.input.Blur()
}

func (m *Model) setInput(value string) {
	switch m.mode {
	case inputSearch:
		m.filter.Search = value
	case inputAuthor:
		m.filter.Author = value
	}
}

// fail applies the 401 policy. An expired session ends the program; other errors are shown.
func (m *Model) fail(op string, err error) (tea.Model, tea.Cmd) {
	m.logger.Error("dashboard request failed", "op", op, "err", err)
	guarded := m.guard(err)
	if errors.Is(guarded, shared.ErrNotAuthenticated) {
		m.fatal = guarded
		return m, tea.Quit
	}
	m.err = fmt.Errorf("%s: %w", op, err)
	return m, nil
}

func (m *Model) refresh() tea.Cmd {
	m.shelf = m.vm.Derive(m.all, m.filter)
	return m.list.SetItems(toItems(m.shelf.Entries))
}

func (m *Model) load() tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		books, err := m.books.ListBooks(ctx)
		return booksLoadedMsg(books, err)
	}
}

// remove runs the delete through the form controller, which receives answer as the confirmation.
func (m *Model) remove(b models.Book, answer bool) tea.Cmd {
	ctx := m.ctx
	confirm := form.ConfirmFunc(func(question string) (bool, error) {
		m.logger.Debug("delete confirmation", "question", question, "answer", answer)
		return answer, nil
	})
	return func() tea.Msg {
		change, err := m.form.Delete(ctx, b, confirm)
		return bookDeletedMsg(change, err)
	}
}

func (m *Model) renderTabs() string {
	tabs := make([]string, 0, 4)
	for i, v := range library.Views() {
		label := fmt.Sprintf("%d %s", i+1, v)
		if v == m.filter.View {
			tabs = append(tabs, styles.active.Render(label))
		} else {
			tabs = append(tabs, styles.tab.Render(label))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m *Model) renderFilters() string {
	parts := []string{"sort: " + string(m.filter.Sort)}
	if m.filter.Search != "" {
		parts = append(parts, fmt.Sprintf("search: %q", m.filter.Search))
	}
	if m.filter.Letter != "" {
		parts = append(parts, "letter: "+m.filter.Letter)
	}
	if m.filter.Author != "" {
		parts = append(parts, fmt.Sprintf("author: %q", m.filter.Author))
	}
	if m.filter.WithCover {
		parts = append(parts, "with cover")
	}
	if m.filter.WithProgress {
		parts = append(parts, "in progress")
	}
	parts = append(parts, fmt.Sprintf("%d shown", len(m.shelf.Entries)))
	return styles.help.Render(strings.Join(parts, " • "))
}
