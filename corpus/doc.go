// Package corpus persists legal documents and their derived chunks.
//
// Two backends implement the same Store contract: an in-memory arena
// for tests and single-process deployments, and a GORM-backed store
// for sqlite, postgres and mysql. Both guarantee that re-ingesting a
// document swaps its chunk set atomically, so readers never observe a
// half-replaced document.
package corpus
