package python

import (
	"runtime"

	"go.uber.org/zap"

	"github.com/rokm/pylauncher/errors"
)

// Flush scripts run before finalization. The native interpreter flushes
// its buffers before Py_Finalize; an embedded one has to do the same.
const (
	flushStdout = "import sys; sys.stdout.flush(); " +
		"(sys.__stdout__.flush if sys.__stdout__ is not sys.stdout else (lambda: None))()"
	flushStderr = "import sys; sys.stderr.flush(); " +
		"(sys.__stderr__.flush if sys.__stderr__ is not sys.stderr else (lambda: None))()"
)

// Runtime layers the launcher's bootstrap operations on top of a bound
// function table. All calls block until the interpreter returns; the
// interpreter must already be started for every method except
// IsInitialized and Finalize.
type Runtime struct {
	dll *DLL
}

// NewRuntime wraps a fully bound DLL.
func NewRuntime(dll *DLL) *Runtime {
	return &Runtime{dll: dll}
}

// InstallPath decodes the application's top-level directory into the
// runtime's native string representation and publishes it as
// sys._MEIPASS, the well-known global the embedded bootstrap code uses
// to locate its resource root.
func (r *Runtime) InstallPath(homeDir string) error {
	obj := r.dll.PyUnicode_DecodeFSDefault(homeDir)
	if obj == 0 {
		return errors.Bootstrap("_MEIPASS", "failed to decode application home directory")
	}
	rc := r.dll.PySys_SetObject("_MEIPASS", obj)
	r.dll.Py_DecRef(obj)
	if rc != 0 {
		return errors.Bootstrap("_MEIPASS", "failed to set sys._MEIPASS")
	}
	return nil
}

// ExecModule deserializes a marshalled code object and executes it as
// the named module. Errors raised inside the interpreter are printed,
// cleared, and reported to the caller.
func (r *Runtime) ExecModule(name string, data []byte) error {
	if len(data) == 0 {
		return errors.Bootstrap(name, "empty code object")
	}

	Logger().Debug("executing bootstrap module", zap.String("module", name))

	code := r.dll.PyMarshal_ReadObjectFromString(&data[0], int64(len(data)))
	runtime.KeepAlive(data)
	if code == 0 {
		r.printAndClearError()
		return errors.Bootstrap(name, "failed to unmarshal code object")
	}

	module := r.dll.PyImport_ExecCodeModule(name, code)
	r.dll.Py_DecRef(code)
	r.printAndClearError()
	if module == 0 {
		return errors.Bootstrap(name, "module execution failed")
	}
	r.dll.Py_DecRef(module)
	return nil
}

// AppendSysPath appends an entry to the interpreter's module search
// path list. Used to install archive-backed `path?offset` locations
// that the embedded import machinery reads straight out of the host
// executable.
func (r *Runtime) AppendSysPath(entry string) error {
	sysPath := r.dll.PySys_GetObject("path") // borrowed reference
	if sysPath == 0 {
		return errors.Bootstrap(entry, "could not get sys.path object")
	}

	obj := r.dll.PyUnicode_DecodeFSDefault(entry)
	if obj == 0 {
		return errors.Bootstrap(entry, "failed to decode search path entry")
	}
	rc := r.dll.PyList_Append(sysPath, obj)
	r.dll.Py_DecRef(obj)
	if rc != 0 {
		return errors.Bootstrap(entry, "failed to append entry to sys.path")
	}
	return nil
}

// RunScript executes a marshalled top-level script in the __main__
// module, setting __file__ for compatibility with normal execution and
// stashing the code object in _pyi_main_co for the frozen importer.
func (r *Runtime) RunScript(name string, data []byte, scriptPath string) error {
	mainModule := r.dll.PyImport_AddModule("__main__")
	if mainModule == 0 {
		return errors.InvalidData(errors.PhaseRun, "could not get __main__ module")
	}
	mainDict := r.dll.PyModule_GetDict(mainModule)
	if mainDict == 0 {
		return errors.InvalidData(errors.PhaseRun, "could not get __main__ module dict")
	}

	file := r.dll.PyUnicode_FromString(scriptPath)
	if file != 0 {
		r.dll.PyObject_SetAttrString(mainModule, "__file__", file)
		r.dll.Py_DecRef(file)
	}

	Logger().Debug("running script", zap.String("script", name))

	if len(data) == 0 {
		return errors.InvalidData(errors.PhaseRun, "empty script "+name)
	}
	code := r.dll.PyMarshal_ReadObjectFromString(&data[0], int64(len(data)))
	runtime.KeepAlive(data)
	if code == 0 {
		r.dll.PyErr_Print()
		return errors.Wrap(errors.PhaseRun, errors.KindInvalidData, nil,
			"failed to unmarshal code object for "+name)
	}

	r.dll.PyObject_SetAttrString(mainModule, "_pyi_main_co", code)

	ret := r.dll.PyEval_EvalCode(code, mainDict, mainDict)
	r.dll.Py_DecRef(code)
	if ret == 0 {
		// On SystemExit, PyErr_Print exits the process without
		// returning, matching the native interpreter.
		r.dll.PyErr_Print()
		return errors.Wrap(errors.PhaseRun, errors.KindBootstrap, nil,
			"unhandled exception in script "+name)
	}
	r.dll.Py_DecRef(ret)
	return nil
}

// IsInitialized reports whether the interpreter is currently
// initialized.
func (r *Runtime) IsInitialized() bool {
	return r.dll.Py_IsInitialized() != 0
}

// Finalize flushes the interpreter's standard streams (unless flush is
// disabled, e.g. in windowed mode) and finalizes the interpreter. A
// no-op if the interpreter was never initialized.
func (r *Runtime) Finalize(flush bool) {
	if !r.IsInitialized() {
		return
	}

	if flush {
		Logger().Debug("flushing stdout and stderr")
		r.dll.PyRun_SimpleStringFlags(flushStdout, 0)
		r.dll.PyRun_SimpleStringFlags(flushStderr, 0)
	}

	Logger().Debug("finalizing interpreter")
	r.dll.Py_Finalize()
}

func (r *Runtime) printAndClearError() {
	if r.dll.PyErr_Occurred() != 0 {
		r.dll.PyErr_Print()
		r.dll.PyErr_Clear()
	}
}
