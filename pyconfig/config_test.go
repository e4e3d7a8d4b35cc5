package pyconfig

import (
	stderrors "errors"
	"testing"
	"unsafe"

	"github.com/rokm/pylauncher/errors"
	"github.com/rokm/pylauncher/python"
)

// fakeDLL builds a python.DLL whose configuration entry points are Go
// closures recording what the launcher writes.
type fakeDLL struct {
	dll *python.DLL

	initCalls  int
	clearCalls int
	readCalls  int
	readStatus python.Status

	bytesStrings map[uintptr]string // target address -> value
	lists        map[uintptr][]uintptr
	listLengths  map[uintptr]int64

	decoded []uintptr
	freed   []uintptr
}

func newFakeDLL(version int) *fakeDLL {
	f := &fakeDLL{
		bytesStrings: make(map[uintptr]string),
		lists:        make(map[uintptr][]uintptr),
		listLengths:  make(map[uintptr]int64),
	}
	var nextWide uintptr = 0x2000

	f.dll = &python.DLL{
		Version: version,
		PyConfig_InitIsolatedConfig: func(config uintptr) {
			f.initCalls++
		},
		PyConfig_Clear: func(config uintptr) {
			f.clearCalls++
		},
		PyConfig_SetBytesString: func(config, target uintptr, s string) python.Status {
			f.bytesStrings[target] = s
			return python.Status{}
		},
		PyConfig_SetWideStringList: func(config, list uintptr, length int64, items uintptr) python.Status {
			stored := make([]uintptr, length)
			copy(stored, unsafe.Slice((*uintptr)(unsafe.Pointer(items)), length))
			f.lists[list] = stored
			f.listLengths[list] = length
			return python.Status{}
		},
		Py_DecodeLocale: func(s string, size *uint64) uintptr {
			nextWide++
			f.decoded = append(f.decoded, nextWide)
			return nextWide
		},
		PyMem_RawFree: func(p uintptr) {
			f.freed = append(f.freed, p)
		},
		PyConfig_Read: func(config uintptr) python.Status {
			f.readCalls++
			return f.readStatus
		},
		PyStatus_Exception: func(s python.Status) int32 {
			return s.Type
		},
	}
	return f
}

func TestNew_UnsupportedVersion(t *testing.T) {
	f := newFakeDLL(399)

	_, err := New(f.dll, false)
	if err == nil {
		t.Fatal("expected error for unregistered version tag")
	}
	var launchErr *errors.Error
	if !stderrors.As(err, &launchErr) || launchErr.Kind != errors.KindUnsupportedVersion {
		t.Errorf("got %v, want unsupported_version", err)
	}
	if launchErr.Version != 399 {
		t.Errorf("error names version %d, want 399", launchErr.Version)
	}
	if f.initCalls != 0 {
		t.Error("configuration was initialized despite unsupported version")
	}
}

func TestNew_InitializesIsolatedWithLauncherDefaults(t *testing.T) {
	f := newFakeDLL(312)

	c, err := New(f.dll, false)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if f.initCalls != 1 {
		t.Fatalf("got %d isolated-init calls, want 1", f.initCalls)
	}

	readInt32 := func(off uintptr) int32 {
		return *(*int32)(unsafe.Add(unsafe.Pointer(&c.words[0]), off))
	}
	if readInt32(c.lay.installSignalHandlers) != 1 {
		t.Error("install_signal_handlers not enabled")
	}
	if readInt32(c.lay.parseArgv) != 0 {
		t.Error("parse_argv not disabled")
	}
	if readInt32(c.lay.writeBytecode) != 0 {
		t.Error("write_bytecode not disabled")
	}
}

func TestConfig_SetProgramNameAndHome(t *testing.T) {
	f := newFakeDLL(311)
	c, err := New(f.dll, false)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := c.SetProgramName("/opt/app/app"); err != nil {
		t.Fatalf("SetProgramName: %v", err)
	}
	if err := c.SetHome("/opt/app"); err != nil {
		t.Fatalf("SetHome: %v", err)
	}

	if got := f.bytesStrings[c.Ptr()+c.lay.programName]; got != "/opt/app/app" {
		t.Errorf("program_name slot holds %q", got)
	}
	if got := f.bytesStrings[c.Ptr()+c.lay.home]; got != "/opt/app" {
		t.Errorf("home slot holds %q", got)
	}
}

func TestConfig_SetModuleSearchPaths(t *testing.T) {
	f := newFakeDLL(313)
	c, err := New(f.dll, false)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	paths := []string{"/opt/app/base_library.zip", "/opt/app/lib-dynload", "/opt/app"}
	if err := c.SetModuleSearchPaths(paths); err != nil {
		t.Fatalf("SetModuleSearchPaths: %v", err)
	}

	slot := c.Ptr() + c.lay.moduleSearchPaths
	if f.listLengths[slot] != int64(len(paths)) {
		t.Errorf("got %d paths, want %d", f.listLengths[slot], len(paths))
	}
	set := *(*int32)(unsafe.Add(unsafe.Pointer(&c.words[0]), c.lay.moduleSearchPathsSet))
	if set != 1 {
		t.Error("module_search_paths_set not raised")
	}

	// Every decoded wide string must be released once the runtime has
	// taken its copy.
	if len(f.freed) != len(f.decoded) {
		t.Errorf("freed %d of %d decoded strings", len(f.freed), len(f.decoded))
	}
}

func TestConfig_ApplyRuntimeOptions(t *testing.T) {
	f := newFakeDLL(312)
	c, err := New(f.dll, false)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	opts := &RuntimeOptions{
		Verbose:     2,
		Unbuffered:  true,
		Optimize:    1,
		UseHashSeed: true,
		HashSeed:    42,
		WFlags:      []string{"ignore::DeprecationWarning"},
		XFlags:      []string{"utf8"},
	}
	if err := c.ApplyRuntimeOptions(opts); err != nil {
		t.Fatalf("ApplyRuntimeOptions: %v", err)
	}

	readInt32 := func(off uintptr) int32 {
		return *(*int32)(unsafe.Add(unsafe.Pointer(&c.words[0]), off))
	}
	if readInt32(c.lay.verbose) != 2 {
		t.Error("verbose not applied")
	}
	if readInt32(c.lay.bufferedStdio) != 0 {
		t.Error("buffered_stdio not cleared for unbuffered mode")
	}
	if readInt32(c.lay.optimizationLevel) != 1 {
		t.Error("optimization_level not applied")
	}
	if readInt32(c.lay.useHashSeed) != 1 {
		t.Error("use_hash_seed not raised")
	}
	seed := *(*uint64)(unsafe.Add(unsafe.Pointer(&c.words[0]), c.lay.hashSeed))
	if seed != 42 {
		t.Errorf("hash_seed = %d, want 42", seed)
	}
	if f.listLengths[c.Ptr()+c.lay.warnoptions] != 1 {
		t.Error("warnoptions not installed")
	}
	if f.listLengths[c.Ptr()+c.lay.xoptions] != 1 {
		t.Error("xoptions not installed")
	}
}

func TestConfig_Read(t *testing.T) {
	f := newFakeDLL(311)
	c, err := New(f.dll, false)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := c.Read(); err != nil {
		t.Fatalf("Read: %v", err)
	}
	if f.readCalls != 1 {
		t.Errorf("runtime read called %d times, want 1", f.readCalls)
	}

	f.readStatus = python.Status{Type: 1}
	if err := c.Read(); err == nil {
		t.Fatal("expected error when the runtime rejects the configuration")
	}
}

func TestConfig_ClearIsIdempotent(t *testing.T) {
	f := newFakeDLL(314)
	c, err := New(f.dll, false)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	c.Clear()
	c.Clear()
	if f.clearCalls != 1 {
		t.Errorf("runtime clear called %d times, want 1", f.clearCalls)
	}
}

func TestPreInitialize(t *testing.T) {
	f := newFakeDLL(313)

	var captured preConfig
	f.dll.PyPreConfig_InitIsolatedConfig = func(preconfig uintptr) {
		(*preConfig)(unsafe.Pointer(preconfig)).isolated = 1
	}
	f.dll.Py_PreInitialize = func(preconfig uintptr) python.Status {
		captured = *(*preConfig)(unsafe.Pointer(preconfig))
		return python.Status{}
	}

	opts := &RuntimeOptions{UTF8Mode: 1, DevMode: true}
	if err := PreInitialize(f.dll, opts); err != nil {
		t.Fatalf("PreInitialize: %v", err)
	}
	if captured.isolated != 1 {
		t.Error("pre-configuration not initialized in isolated mode")
	}
	if captured.utf8Mode != 1 {
		t.Error("utf8_mode not applied")
	}
	if captured.devMode != 1 {
		t.Error("dev_mode not applied")
	}
}

func TestPreInitialize_StatusException(t *testing.T) {
	f := newFakeDLL(313)
	f.dll.PyPreConfig_InitIsolatedConfig = func(preconfig uintptr) {}
	f.dll.Py_PreInitialize = func(preconfig uintptr) python.Status {
		return python.Status{Type: 1}
	}

	if err := PreInitialize(f.dll, &RuntimeOptions{}); err == nil {
		t.Fatal("expected error for failed pre-initialization")
	}
}
