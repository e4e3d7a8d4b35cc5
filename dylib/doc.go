// Package dylib opens native shared libraries and binds their exported
// entry points into typed function tables.
//
// The binder is data-driven: callers describe the required entry points as
// a slice of Symbol values and Bind resolves them in order, failing fast on
// the first missing name. A table is therefore either fully populated or
// never handed to the caller, which keeps missing-symbol failures at the
// loader boundary instead of deep inside the foreign runtime.
package dylib
