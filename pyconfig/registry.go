package pyconfig

// wideStringList mirrors PyWideStringList, whose layout is stable across
// all supported releases.
type wideStringList struct {
	Length uintptr // Py_ssize_t
	Items  uintptr // wchar_t **
}

// layout records the total size of a release's configuration structure
// and the byte offsets of the fields the launcher writes. Everything
// past these fields is opaque padding as far as the launcher is
// concerned.
type layout struct {
	size uintptr

	isolated              uintptr
	useEnvironment        uintptr
	devMode               uintptr
	installSignalHandlers uintptr
	useHashSeed           uintptr
	hashSeed              uintptr
	parseArgv             uintptr
	argv                  uintptr
	xoptions              uintptr
	warnoptions           uintptr
	optimizationLevel     uintptr
	writeBytecode         uintptr
	verbose               uintptr
	bufferedStdio         uintptr
	pathconfigWarnings    uintptr
	programName           uintptr
	home                  uintptr
	moduleSearchPathsSet  uintptr
	moduleSearchPaths     uintptr
}

// variant identifies a configuration layout: the version tag (e.g. 312
// for Python 3.12) plus whether the library is a free-threaded build,
// which inserts a field in the middle of the structure.
type variant struct {
	tag          int
	freeThreaded bool
}

// layouts is the registry of known configuration layouts. A version
// absent from this map cannot be configured and is rejected before any
// interpreter state is touched. Free-threaded builds exist from 3.13 on.
var layouts = map[variant]layout{
	{tag: 311}: layoutV311(),
	{tag: 312}: layoutV312(),
	{tag: 313}: layoutV313(),
	{tag: 314}: layoutV313(),

	{tag: 313, freeThreaded: true}: layoutV313GIL(),
	{tag: 314, freeThreaded: true}: layoutV313GIL(),
}

// Supported reports whether a configuration layout is registered for the
// given version tag.
func Supported(tag int) bool {
	_, ok := layouts[variant{tag: tag}]
	return ok
}
