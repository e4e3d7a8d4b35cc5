// Package launch drives the embedded interpreter through its lifecycle:
// load the shared library, configure and start the interpreter, import
// the bootstrap modules and archive-backed module paths, run the
// application scripts, and finalize.
//
// The Controller tracks progress through an explicit state machine.
// States only move forward; any failure parks the controller in the
// failed state, and Finalize runs the same teardown sequence from every
// state it can be reached in.
package launch
