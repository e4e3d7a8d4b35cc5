package pyconfig

import "unsafe"

// configV311 mirrors PyConfig from Python 3.11 on POSIX.
// https://github.com/python/cpython/blob/v3.11.0/Include/cpython/initconfig.h
type configV311 struct {
	configInit int32

	isolated              int32
	useEnvironment        int32
	devMode               int32
	installSignalHandlers int32
	useHashSeed           int32
	hashSeed              uint64
	faulthandler          int32
	tracemalloc           int32
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

	installImportlib    int32
	initMain            int32
	isolatedInterpreter int32
	isPythonBuild       int32
}

func layoutV311() layout {
	var c configV311
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
