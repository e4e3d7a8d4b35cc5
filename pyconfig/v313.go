package pyconfig

import "unsafe"

// configV313 mirrors PyConfig from Python 3.13 and 3.14 on POSIX; the
// part of the layout written by the launcher is identical in both
// releases. The trailing _pystats (Py_STATS) and run_presite (Py_DEBUG)
// fields are assumed present, since there is no way to tell from the
// outside whether a given build enables them. At worst the structure is
// allocated slightly larger than needed; the fields written here all
// come before the optional tail.
// https://github.com/python/cpython/blob/v3.13.0/Include/cpython/initconfig.h
type configV313 struct {
	configInit int32

	isolated              int32
	useEnvironment        int32
	devMode               int32
	installSignalHandlers int32
	useHashSeed           int32
	hashSeed              uint64
	faulthandler          int32
	tracemalloc           int32
	perfProfiling         int32
	importTime            int32
	codeDebugRanges       int32
	showRefCount          int32
	dumpRefs              int32
	dumpRefsFile          uintptr
	mallocStats           int32
	filesystemEncoding    uintptr
	filesystemErrors      uintptr
	pycachePrefix         uintptr
	parseArgv             int32
	origArgv              wideStringList
	argv                  wideStringList
	xoptions              wideStringList
	warnoptions           wideStringList
	siteImport            int32
	bytesWarning          int32
	warnDefaultEncoding   int32
	inspect               int32
	interactive           int32
	optimizationLevel     int32
	parserDebug           int32
	writeBytecode         int32
	verbose               int32
	quiet                 int32
	userSiteDirectory     int32
	configureCStdio       int32
	bufferedStdio         int32
	stdioEncoding         uintptr
	stdioErrors           uintptr
	checkHashPycsMode     uintptr
	useFrozenModules      int32
	safePath              int32
	intMaxStrDigits       int32

	cpuCount int32

	pathconfigWarnings int32
	programName        uintptr
	pythonpathEnv      uintptr
	home               uintptr
	platlibdir         uintptr

	moduleSearchPathsSet int32
	moduleSearchPaths    wideStringList
	stdlibDir            uintptr
	executable           uintptr
	baseExecutable       uintptr
	prefix               uintptr
	basePrefix           uintptr
	execPrefix           uintptr
	baseExecPrefix       uintptr

	skipSourceFirstLine int32
	runCommand          uintptr
	runModule           uintptr
	runFilename         uintptr

	sysPath0 uintptr

	installImportlib int32
	initMain         int32
	isPythonBuild    int32

	pystats    int32
	runPresite uintptr
}

// configV313GIL is the free-threaded build variant, which carries an
// extra enable_gil field between cpu_count and pathconfig_warnings.
type configV313GIL struct {
	configInit int32

	isolated              int32
	useEnvironment        int32
	devMode               int32
	installSignalHandlers int32
	useHashSeed           int32
	hashSeed              uint64
	faulthandler          int32
	tracemalloc           int32
	perfProfiling         int32
	importTime            int32
	codeDebugRanges       int32
	showRefCount          int32
	dumpRefs              int32
	dumpRefsFile          uintptr
	mallocStats           int32
	filesystemEncoding    uintptr
	filesystemErrors      uintptr
	pycachePrefix         uintptr
	parseArgv             int32
	origArgv              wideStringList
	argv                  wideStringList
	xoptions              wideStringList
	warnoptions           wideStringList
	siteImport            int32
	bytesWarning          int32
	warnDefaultEncoding   int32
	inspect               int32
	interactive           int32
	optimizationLevel     int32
	parserDebug           int32
	writeBytecode         int32
	verbose               int32
	quiet                 int32
	userSiteDirectory     int32
	configureCStdio       int32
	bufferedStdio         int32
	stdioEncoding         uintptr
	stdioErrors           uintptr
	checkHashPycsMode     uintptr
	useFrozenModules      int32
	safePath              int32
	intMaxStrDigits       int32

	cpuCount  int32
	enableGil int32

	pathconfigWarnings int32
	programName        uintptr
	pythonpathEnv      uintptr
	home               uintptr
	platlibdir         uintptr

	moduleSearchPathsSet int32
	moduleSearchPaths    wideStringList
	stdlibDir            uintptr
	executable           uintptr
	baseExecutable       uintptr
	prefix               uintptr
	basePrefix           uintptr
	execPrefix           uintptr
	baseExecPrefix       uintptr

	skipSourceFirstLine int32
	runCommand          uintptr
	runModule           uintptr
	runFilename         uintptr

	sysPath0 uintptr

	installImportlib int32
	initMain         int32
	isPythonBuild    int32

	pystats    int32
	runPresite uintptr
}

func layoutV313() layout {
	var c configV313
	return layout{
		size: unsafe.Sizeof(c),

		isolated:              unsafe.Offsetof(c.isolated),
		useEnvironment:        unsafe.Offsetof(c.useEnvironment),
		devMode:               unsafe.Offsetof(c.devMode),
		installSignalHandlers: unsafe.Offsetof(c.installSignalHandlers),
		useHashSeed:           unsafe.Offsetof(c.useHashSeed),
		hashSeed:              unsafe.Offsetof(c.hashSeed),
		parseArgv:             unsafe.Offsetof(c.parseArgv),
		argv:                  unsafe.Offsetof(c.argv),
		xoptions:              unsafe.Offsetof(c.xoptions),
		warnoptions:           unsafe.Offsetof(c.warnoptions),
		optimizationLevel:     unsafe.Offsetof(c.optimizationLevel),
		writeBytecode:         unsafe.Offsetof(c.writeBytecode),
		verbose:               unsafe.Offsetof(c.verbose),
		bufferedStdio:         unsafe.Offsetof(c.bufferedStdio),
		pathconfigWarnings:    unsafe.Offsetof(c.pathconfigWarnings),
		programName:           unsafe.Offsetof(c.programName),
		home:                  unsafe.Offsetof(c.home),
		moduleSearchPathsSet:  unsafe.Offsetof(c.moduleSearchPathsSet),
		moduleSearchPaths:     unsafe.Offsetof(c.moduleSearchPaths),
	}
}

func layoutV313GIL() layout {
	var c configV313GIL
	return layout{
		size: unsafe.Sizeof(c),

		isolated:              unsafe.Offsetof(c.isolated),
		useEnvironment:        unsafe.Offsetof(c.useEnvironment),
		devMode:               unsafe.Offsetof(c.devMode),
		installSignalHandlers: unsafe.Offsetof(c.installSignalHandlers),
		useHashSeed:           unsafe.Offsetof(c.useHashSeed),
		hashSeed:              unsafe.Offsetof(c.hashSeed),
		parseArgv:             unsafe.Offsetof(c.parseArgv),
		argv:                  unsafe.Offsetof(c.argv),
		xoptions:              unsafe.Offsetof(c.xoptions),
		warnoptions:           unsafe.Offsetof(c.warnoptions),
		optimizationLevel:     unsafe.Offsetof(c.optimizationLevel),
		writeBytecode:         unsafe.Offsetof(c.writeBytecode),
		verbose:               unsafe.Offsetof(c.verbose),
		bufferedStdio:         unsafe.Offsetof(c.bufferedStdio),
		pathconfigWarnings:    unsafe.Offsetof(c.pathconfigWarnings),
		programName:           unsafe.Offsetof(c.programName),
		home:                  unsafe.Offsetof(c.home),
		moduleSearchPathsSet:  unsafe.Offsetof(c.moduleSearchPathsSet),
		moduleSearchPaths:     unsafe.Offsetof(c.moduleSearchPaths),
	}
}
