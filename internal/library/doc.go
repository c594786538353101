// Package library derives what a user sees of their book collection.
//
// [ViewModel.Derive] is a pure function of a book slice and a [Filter]. It runs a fixed filter
// pipeline, sorts the survivors, annotates each with its reading progress, and computes
// statistics over the whole, unfiltered collection:
//
//  1. view: completed, remaining, or everything (dashboard, all)
//  2. search: title or author contains the query
//  3. letter: title starts with a letter, or with a non-letter for [OtherLetter]
//  4. author: author contains the query
//  5. cover: only books with an image
//  6. progress: only books with at least one page read
//
// All text matching is case-insensitive and ignores surrounding whitespace in the query. Sorting
// is stable and uses locale-aware collation for titles and authors.
//
// [Apply] merges a [models.Change] returned by a mutation into a local collection, for callers
// that prefer that to a refetch.
package library
