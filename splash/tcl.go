package splash

import (
	"unsafe"

	"github.com/rokm/pylauncher/dylib"
)

// Tcl status codes and flags, copied from tcl.h.
const (
	tclOK    int32 = 0
	tclError int32 = 1

	tclGlobalOnly int32 = 1

	tclQueueTail int32 = 0
)

// tclEventSize is the size of Tcl_Event: the service procedure pointer
// plus the queue link pointer. The structure has been stable since Tcl
// 8.0.
const tclEventSize = 2 * unsafe.Sizeof(uintptr(0))

// TclDLL is the typed function table bound from the Tcl shared library.
// Interpreters, objects, threads, mutex-free handles are all opaque
// pointers. Only threaded Tcl builds provide the thread queue entry
// points, so binding doubles as the threading check.
type TclDLL struct {
	lib *dylib.Library

	Tcl_Init           func(interp uintptr) int32
	Tcl_CreateInterp   func() uintptr
	Tcl_FindExecutable func(name string)
	Tcl_DoOneEvent     func(flags int32) int32
	Tcl_Finalize       func()
	Tcl_FinalizeThread func()
	Tcl_DeleteInterp   func(interp uintptr)

	Tcl_GetCurrentThread func() uintptr
	Tcl_ThreadQueueEvent func(threadID, event uintptr, position int32)
	Tcl_ThreadAlert      func(threadID uintptr)

	Tcl_GetVar2          func(interp uintptr, name1 string, name2 uintptr, flags int32) *byte
	Tcl_SetVar2          func(interp uintptr, name1 string, name2 uintptr, value string, flags int32) *byte
	Tcl_CreateObjCommand func(interp uintptr, name string, proc, clientData, deleteProc uintptr) uintptr
	Tcl_GetString        func(obj uintptr) *byte
	Tcl_NewStringObj     func(s string, length int32) uintptr
	Tcl_NewByteArrayObj  func(data *byte, length int32) uintptr
	Tcl_SetVar2Ex        func(interp uintptr, name1 string, name2 uintptr, value uintptr, flags int32) uintptr
	Tcl_GetObjResult     func(interp uintptr) uintptr

	Tcl_EvalFile func(interp uintptr, filename string) int32
	Tcl_EvalEx   func(interp uintptr, script *byte, length int32, flags int32) int32
	Tcl_EvalObjv func(interp uintptr, objc int32, objv uintptr, flags int32) int32
	Tcl_Alloc    func(size uint32) uintptr
	Tcl_Free     func(p uintptr)
}

func (d *TclDLL) symbols() []dylib.Symbol {
	return []dylib.Symbol{
		{Name: "Tcl_Init", Slot: &d.Tcl_Init},
		{Name: "Tcl_CreateInterp", Slot: &d.Tcl_CreateInterp},
		{Name: "Tcl_FindExecutable", Slot: &d.Tcl_FindExecutable},
		{Name: "Tcl_DoOneEvent", Slot: &d.Tcl_DoOneEvent},
		{Name: "Tcl_Finalize", Slot: &d.Tcl_Finalize},
		{Name: "Tcl_FinalizeThread", Slot: &d.Tcl_FinalizeThread},
		{Name: "Tcl_DeleteInterp", Slot: &d.Tcl_DeleteInterp},

		{Name: "Tcl_GetCurrentThread", Slot: &d.Tcl_GetCurrentThread},
		{Name: "Tcl_ThreadQueueEvent", Slot: &d.Tcl_ThreadQueueEvent},
		{Name: "Tcl_ThreadAlert", Slot: &d.Tcl_ThreadAlert},

		{Name: "Tcl_GetVar2", Slot: &d.Tcl_GetVar2},
		{Name: "Tcl_SetVar2", Slot: &d.Tcl_SetVar2},
		{Name: "Tcl_CreateObjCommand", Slot: &d.Tcl_CreateObjCommand},
		{Name: "Tcl_GetString", Slot: &d.Tcl_GetString},
		{Name: "Tcl_NewStringObj", Slot: &d.Tcl_NewStringObj},
		{Name: "Tcl_NewByteArrayObj", Slot: &d.Tcl_NewByteArrayObj},
		{Name: "Tcl_SetVar2Ex", Slot: &d.Tcl_SetVar2Ex},
		{Name: "Tcl_GetObjResult", Slot: &d.Tcl_GetObjResult},

		{Name: "Tcl_EvalFile", Slot: &d.Tcl_EvalFile},
		{Name: "Tcl_EvalEx", Slot: &d.Tcl_EvalEx},
		{Name: "Tcl_EvalObjv", Slot: &d.Tcl_EvalObjv},
		{Name: "Tcl_Alloc", Slot: &d.Tcl_Alloc},
		{Name: "Tcl_Free", Slot: &d.Tcl_Free},
	}
}

// LoadTcl opens the Tcl shared library and binds every required entry
// point.
func LoadTcl(filename string) (*TclDLL, error) {
	lib, err := dylib.Open(filename)
	if err != nil {
		return nil, err
	}
	d := &TclDLL{lib: lib}
	if err := lib.Bind(d.symbols()); err != nil {
		lib.Close()
		return nil, err
	}
	return d, nil
}

// Close unloads the Tcl shared library. Safe to call more than once.
func (d *TclDLL) Close() error {
	if d.lib == nil {
		return nil
	}
	err := d.lib.Close()
	d.lib = nil
	return err
}

// resultString renders the interpreter's current result for diagnostics.
func (d *TclDLL) resultString(interp uintptr) string {
	return gostring(d.Tcl_GetString(d.Tcl_GetObjResult(interp)))
}

// gostring copies a NUL-terminated C string.
func gostring(p *byte) string {
	if p == nil {
		return ""
	}
	var b []byte
	for ptr := unsafe.Pointer(p); *(*byte)(ptr) != 0; ptr = unsafe.Add(ptr, 1) {
		b = append(b, *(*byte)(ptr))
	}
	return string(b)
}
