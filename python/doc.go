// Package python binds the embedded Python shared library and drives it
// through the launcher's bootstrap operations.
//
// The library is loaded dynamically and every required entry point is
// resolved by name, so one launcher binary works against any supported
// Python release. Python objects are handled as opaque pointers wherever
// possible; the only layout knowledge lives in the pyconfig package.
//
// DLL is the typed function table plus the version tag recovered from the
// application archive. Runtime layers the bootstrap operations on top:
// publishing the resource root, executing marshalled modules, installing
// archive-backed sys.path entries, running top-level scripts, and
// finalizing the interpreter.
package python
