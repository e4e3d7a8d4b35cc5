// Package errors defines the structured error type shared by all launcher
// packages.
//
// Every failure carries a Phase (where in the launch sequence it happened)
// and a Kind (what went wrong), plus enough context - symbol name, field
// name, module name, version tag - to diagnose the failure without
// re-running the application.
package errors
