package python

import (
	"github.com/rokm/pylauncher/dylib"
)

// DLL is the typed function table bound from the Python shared library,
// together with the library handle and the version tag recovered from
// the application archive. A DLL is either fully bound or was never
// returned to the caller.
type DLL struct {
	lib *dylib.Library

	// Version tag, e.g. 3.11 -> 311, 3.12 -> 312.
	Version int

	// Py_*
	Py_DecRef              func(obj uintptr)
	Py_DecodeLocale        func(s string, size *uint64) uintptr
	Py_ExitStatusException func(status Status)
	Py_Finalize            func()
	Py_InitializeFromConfig func(config uintptr) Status
	Py_IsInitialized       func() int32
	Py_PreInitialize       func(preconfig uintptr) Status

	// PyConfig_*
	PyConfig_Clear              func(config uintptr)
	PyConfig_InitIsolatedConfig func(config uintptr)
	PyConfig_Read               func(config uintptr) Status
	PyConfig_SetBytesString     func(config uintptr, target uintptr, s string) Status
	PyConfig_SetWideStringList  func(config uintptr, list uintptr, length int64, items uintptr) Status

	// PyErr_*
	PyErr_Clear    func()
	PyErr_Occurred func() uintptr
	PyErr_Print    func()

	// PyEval_*
	PyEval_EvalCode func(code, globals, locals uintptr) uintptr

	// PyImport_*
	PyImport_AddModule      func(name string) uintptr
	PyImport_ExecCodeModule func(name string, code uintptr) uintptr

	// PyList_*
	PyList_Append func(list, item uintptr) int32

	// PyMarshal_*
	PyMarshal_ReadObjectFromString func(data *byte, length int64) uintptr

	// PyMem_*
	PyMem_RawFree func(p uintptr)

	// PyModule_*
	PyModule_GetDict func(module uintptr) uintptr

	// PyObject_*
	PyObject_SetAttrString func(obj uintptr, attr string, value uintptr) int32

	// PyPreConfig_*
	PyPreConfig_InitIsolatedConfig func(preconfig uintptr)

	// PyRun_*
	PyRun_SimpleStringFlags func(code string, flags uintptr) int32

	// PyStatus_*
	PyStatus_Exception func(status Status) int32

	// PySys_*
	PySys_GetObject func(name string) uintptr
	PySys_SetObject func(name string, value uintptr) int32

	// PyUnicode_*
	PyUnicode_DecodeFSDefault func(s string) uintptr
	PyUnicode_FromString      func(s string) uintptr
}

// symbols returns the declarative entry-point table. Adding a required
// entry point is a one-line change here plus the field above.
func (d *DLL) symbols() []dylib.Symbol {
	return []dylib.Symbol{
		{Name: "Py_DecRef", Slot: &d.Py_DecRef},
		{Name: "Py_DecodeLocale", Slot: &d.Py_DecodeLocale},
		{Name: "Py_ExitStatusException", Slot: &d.Py_ExitStatusException},
		{Name: "Py_Finalize", Slot: &d.Py_Finalize},
		{Name: "Py_InitializeFromConfig", Slot: &d.Py_InitializeFromConfig},
		{Name: "Py_IsInitialized", Slot: &d.Py_IsInitialized},
		{Name: "Py_PreInitialize", Slot: &d.Py_PreInitialize},

		{Name: "PyConfig_Clear", Slot: &d.PyConfig_Clear},
		{Name: "PyConfig_InitIsolatedConfig", Slot: &d.PyConfig_InitIsolatedConfig},
		{Name: "PyConfig_Read", Slot: &d.PyConfig_Read},
		{Name: "PyConfig_SetBytesString", Slot: &d.PyConfig_SetBytesString},
		{Name: "PyConfig_SetWideStringList", Slot: &d.PyConfig_SetWideStringList},

		{Name: "PyErr_Clear", Slot: &d.PyErr_Clear},
		{Name: "PyErr_Occurred", Slot: &d.PyErr_Occurred},
		{Name: "PyErr_Print", Slot: &d.PyErr_Print},

		{Name: "PyEval_EvalCode", Slot: &d.PyEval_EvalCode},

		{Name: "PyImport_AddModule", Slot: &d.PyImport_AddModule},
		{Name: "PyImport_ExecCodeModule", Slot: &d.PyImport_ExecCodeModule},

		{Name: "PyList_Append", Slot: &d.PyList_Append},

		{Name: "PyMarshal_ReadObjectFromString", Slot: &d.PyMarshal_ReadObjectFromString},

		{Name: "PyMem_RawFree", Slot: &d.PyMem_RawFree},

		{Name: "PyModule_GetDict", Slot: &d.PyModule_GetDict},

		{Name: "PyObject_SetAttrString", Slot: &d.PyObject_SetAttrString},

		{Name: "PyPreConfig_InitIsolatedConfig", Slot: &d.PyPreConfig_InitIsolatedConfig},

		{Name: "PyRun_SimpleStringFlags", Slot: &d.PyRun_SimpleStringFlags},

		{Name: "PyStatus_Exception", Slot: &d.PyStatus_Exception},

		{Name: "PySys_GetObject", Slot: &d.PySys_GetObject},
		{Name: "PySys_SetObject", Slot: &d.PySys_SetObject},

		{Name: "PyUnicode_DecodeFSDefault", Slot: &d.PyUnicode_DecodeFSDefault},
		{Name: "PyUnicode_FromString", Slot: &d.PyUnicode_FromString},
	}
}

// Load opens the Python shared library at filename and binds every
// required entry point. On any failure the library handle is closed and
// no table is returned.
func Load(filename string, version int) (*DLL, error) {
	lib, err := dylib.Open(filename)
	if err != nil {
		return nil, err
	}

	d := &DLL{lib: lib, Version: version}
	if err := lib.Bind(d.symbols()); err != nil {
		lib.Close()
		return nil, err
	}
	return d, nil
}

// Close unloads the Python shared library. The function table must not
// be used afterwards. Safe to call more than once.
func (d *DLL) Close() error {
	if d.lib == nil {
		return nil
	}
	err := d.lib.Close()
	d.lib = nil
	return err
}

// StatusException reports whether status carries an error or exit
// request.
func (d *DLL) StatusException(s Status) bool {
	return d.PyStatus_Exception(s) != 0
}
