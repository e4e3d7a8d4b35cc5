// Package splash shows the optional splash screen while the application
// starts up.
//
// The screen is rendered by Tcl/Tk, loaded dynamically from the
// application directory the same way the Python runtime is. The Tcl
// interpreter is confined to one goroutine pinned to an OS thread,
// because threaded Tcl binds an interpreter to the thread that created
// it; every interaction from the outside goes through Tcl's thread-safe
// event queue. The interpreter runs a deliberately minimal environment:
// the standard library initialization is stubbed out and only the Tk
// startup script is resolved, from the bundled Tk module directory.
//
// Splash resources live in a single archive entry: a fixed header naming
// the Tcl/Tk libraries, followed by the startup script, the image, and
// the list of files the screen requires.
package splash
