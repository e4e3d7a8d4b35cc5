// Package archive reads the PKG/CArchive container appended to a frozen
// application's executable.
//
// The archive is located by scanning the file backwards for the cookie
// magic pattern. The cookie carries archive-level metadata (PKG length,
// TOC position, embedded runtime version tag, runtime library name); the
// TOC is an ordered sequence of typed entries addressing data blobs
// relative to the start of the PKG. The package only ever reads the
// container - entries are exposed in stored order and never mutated.
package archive
