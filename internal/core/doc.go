// Package core holds the domain logic of the event shopping planner.
//
// An event is a named list of shopping items, each bought at a booth
// identified by day, block and number. Every day of an event is shown as two
// columns: the Execute column, an ordered purchase route kept as a list of
// item ids, and the Candidate column, which is every other item of the day in
// item array order. The package is independent of any transport and is used
// by the web server, the CLI and tests alike.
//
// # Identity
//
// Items are matched across imports by [FullKey] (circle, date, block,
// number, title) and, when a title changes, by [StableKey] (the same without
// title). Keys are length prefixed so no two distinct tuples share a key.
//
// # Ordering
//
// New items enter the item array through [InsertSorted], which keeps each
// day's items in booth order without disturbing existing positions. Column
// operations ([Move], [BlockSort], [NumberSort], [BulkSort]) rewrite either
// the Execute list or the candidate slots of the item array, never both.
//
// # Import and Sync
//
// [ParseImportCSV] accepts both the planner's own export format and the raw
// spreadsheet format. An exported CSV re-imported as a new event is laid out
// by [PlaceLayout] to reproduce its columns. [DiffSheet] and [ApplyDiff]
// implement the spreadsheet sync, which [Service.PrepareSync] previews and
// [Service.ConfirmSync] commits.
//
// # Error Handling
//
// Technical errors are mapped to user-facing messages with [MapError]. Each
// message carries a code for support reference:
//
//   - VAL001-VAL007: validation errors
//   - EVT001-EVT003: event and item lookup errors
//   - SYN001-SYN006: spreadsheet sync errors
//   - FILE001-FILE004: uploaded file errors
//   - STO001-STO002: storage errors
//   - REQ001-REQ002, RATE001: request errors
package core
