package models

// ChangeKind names the effect of a mutating call.
type ChangeKind string

const (
	ChangeNone    ChangeKind = "none"
	ChangeCreated ChangeKind = "created"
	ChangeUpdated ChangeKind = "updated"
	ChangeDeleted ChangeKind = "deleted"
)

// Change describes the outcome of a create, update or delete.
//
// Book is set for created and updated changes when the backend returned the
// record. Callers either merge it into their collection or refetch.
type Change struct {
	Kind    ChangeKind
	ID      BookID
	Book    *Book
	Message string
}

// NeedsRefetch reports whether the change cannot be merged locally.
func (c Change) NeedsRefetch() bool {
	switch c.Kind {
	case ChangeCreated, ChangeUpdated:
		return c.Book == nil
	case ChangeDeleted:
		return c.ID == ""
	default:
		return false
	}
}
