// Package ui implements the interactive dashboard using bubbletea's Elm architecture.
//
// The (view) [Model] loads the collection once, then derives what it shows through
// [library.ViewModel] on every filter change. Views are selected with 1-4:
// the dashboard view renders statistics only, the others list books.
//
// Requests run as [tea.Cmd] functions and report back through the [Msg] union, so the
// model is only mutated in Update. Deletes go through [form.Controller] after a y/n prompt.
// A 401 from the backend clears the session via the configured guard and quits.
package ui
