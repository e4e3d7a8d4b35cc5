// Package pyconfig manages the PEP 587 initialization configuration for
// the embedded interpreter.
//
// PyConfig is not a stable ABI: its layout changes between feature
// releases, and on some releases it also depends on build options such
// as free-threading. The launcher therefore carries a mirror structure
// per supported release and keeps a registry of the resulting layouts,
// keyed by version tag. Config allocates a correctly sized structure for
// the running library's tag and writes fields through the recorded
// offsets, while all string conversions go through the library's own
// conversion functions so they match its internal representation.
//
// Versions without a registered layout are rejected up front, before any
// interpreter state is touched.
package pyconfig
