// Package walk lists, searches and builds trees over a directory reader, hiding
// dot-entries (names starting with ".") unless the caller asks to see them.
//
// Hiding is transitive: when a dot-directory is skipped, nothing beneath it is
// visited, regardless of the names it contains. Sibling order is whatever the
// reader returns; List and Search never sort.
package walk
