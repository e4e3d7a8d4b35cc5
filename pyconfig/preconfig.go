package pyconfig

import (
	"runtime"
	"unsafe"

	"github.com/rokm/pylauncher/errors"
	"github.com/rokm/pylauncher/python"
)

// preConfig mirrors PyPreConfig on POSIX. Unlike PyConfig, this layout
// has been stable across every supported release.
type preConfig struct {
	configInit int32

	parseArgv         int32
	isolated          int32
	useEnvironment    int32
	configureLocale   int32
	coerceCLocale     int32
	coerceCLocaleWarn int32
	utf8Mode          int32
	devMode           int32
	allocator         int32
}

// PreInitialize runs the runtime's pre-initialization phase in isolated
// mode. UTF-8 mode and dev mode are the only pre-initialization knobs
// the archive's runtime options can reach.
func PreInitialize(dll *python.DLL, opts *RuntimeOptions) error {
	var pre preConfig
	ptr := uintptr(unsafe.Pointer(&pre))

	dll.PyPreConfig_InitIsolatedConfig(ptr)
	pre.utf8Mode = int32(opts.UTF8Mode)
	if opts.DevMode {
		pre.devMode = 1
	}

	status := dll.Py_PreInitialize(ptr)
	runtime.KeepAlive(&pre)
	if dll.StatusException(status) {
		return errors.Wrap(errors.PhaseConfig, errors.KindRuntimeStart, nil,
			"pre-initialization failed: "+status.Message())
	}
	return nil
}
