// Package pylauncher launches a frozen Python application from the
// archive appended to its own executable.
//
// The launcher locates the embedded PKG archive, dynamically loads the
// bundled Python shared library, reconstructs the version-specific
// interpreter configuration, and drives the interpreter through
// configuration, bootstrap imports, and script execution, tearing
// everything down on every exit path.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct
// responsibilities:
//
//	pylauncher/          Root package with the Run entry point
//	├── archive/         PKG/CArchive reader (cookie, TOC, extraction)
//	├── dylib/           Shared library handles and symbol binding
//	├── python/          Python C API function table and runtime operations
//	├── pyconfig/        Per-version PyConfig layouts and configuration
//	├── launch/          Launch lifecycle controller and bootstrap sequencing
//	├── splash/          Tcl/Tk splash screen
//	└── errors/          Structured error types for diagnostics
//
// # Quick Start
//
// The launcher executable delegates everything to Run:
//
//	func main() {
//		os.Exit(pylauncher.Run())
//	}
package pylauncher
