package splash

import (
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"
	"go.uber.org/zap"

	"github.com/rokm/pylauncher/errors"
)

// Screen is a splash screen backed by a Tcl interpreter running in a
// dedicated goroutine pinned to an OS thread. UpdateText and Finalize
// may be called from any goroutine; everything else touching the
// interpreter runs on its own thread via the Tcl event queue.
type Screen struct {
	data    *Data
	homeDir string

	tcl *TclDLL
	tk  *TkDLL

	interp    uintptr
	eventProc uintptr

	mu          sync.Mutex
	threadID    uintptr
	pendingText []string
	exitLoop    bool

	running     bool
	started     chan struct{}
	startedOnce sync.Once
	done        chan struct{}
}

// NewScreen creates a screen for the given splash resources. Libraries
// are loaded separately so a partially constructed screen can still be
// finalized.
func NewScreen(data *Data, homeDir string) *Screen {
	return &Screen{
		data:    data,
		homeDir: homeDir,
		started: make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// LoadLibraries opens the bundled Tcl and Tk shared libraries and binds
// their entry points. On failure nothing stays loaded.
func (s *Screen) LoadLibraries() error {
	tclPath := filepath.Join(s.homeDir, s.data.TclLibName)
	tkPath := filepath.Join(s.homeDir, s.data.TkLibName)
	Logger().Debug("loading splash screen libraries",
		zap.String("tcl", tclPath), zap.String("tk", tkPath))

	tcl, err := LoadTcl(tclPath)
	if err != nil {
		return err
	}
	tk, err := LoadTk(tkPath)
	if err != nil {
		tcl.Close()
		return err
	}
	s.tcl, s.tk = tcl, tk
	return nil
}

// Start brings the splash screen up and waits until its startup script
// has run (or failed), so that any environment it publishes is in place
// before the main interpreter starts.
func (s *Screen) Start(executable string) error {
	if s.tcl == nil || s.tk == nil {
		return errors.NotInitialized(errors.PhaseSplash, "splash screen libraries")
	}

	// Must precede every other Tcl call; behavior is undefined
	// otherwise.
	s.tcl.Tcl_FindExecutable(executable)

	s.eventProc = purego.NewCallback(s.serviceEvent)

	s.running = true
	go s.run()
	<-s.started

	Logger().Debug("splash screen started")
	return nil
}

// UpdateText queues a text update for the status line. Safe to call
// from any goroutine; the update is applied by the interpreter thread.
func (s *Screen) UpdateText(text string) {
	if !s.running {
		return
	}

	s.mu.Lock()
	s.pendingText = append(s.pendingText, text)
	threadID := s.threadID
	s.mu.Unlock()

	if threadID != 0 {
		s.queueEvent(threadID)
	}
}

// Finalize shuts the interpreter thread down, finalizes Tcl, and
// unloads the libraries. Safe to call on a partially constructed
// screen, and required even then to release loaded libraries.
func (s *Screen) Finalize() {
	if s.tcl == nil {
		return
	}

	if s.running {
		s.mu.Lock()
		s.exitLoop = true
		threadID := s.threadID
		s.mu.Unlock()

		// The event loop blocks in Tcl_DoOneEvent; post an empty event
		// so it wakes up and observes the exit flag.
		if threadID != 0 {
			s.queueEvent(threadID)
		}
		<-s.done
		s.running = false
		Logger().Debug("splash screen thread has shut down")
	}

	// Tcl does not support repeated initialization within a process, so
	// this must happen only after the main interpreter is done: if the
	// application imported tkinter, finalizing earlier would tear the
	// rug out from under its interpreter.
	s.tcl.Tcl_Finalize()

	s.tk.Close()
	s.tcl.Close()
	s.tk, s.tcl = nil, nil
	Logger().Debug("splash screen cleanup complete")
}

// run owns the Tcl interpreter from creation to deletion.
func (s *Screen) run() {
	// Threaded Tcl binds the interpreter to the thread that created it.
	runtime.LockOSThread()

	defer func() {
		// Unblocks Start when initialization failed before the script
		// ran; a no-op on the normal path.
		s.signalStarted()
		close(s.done)
	}()

	s.interp = s.tcl.Tcl_CreateInterp()
	s.mu.Lock()
	s.threadID = s.tcl.Tcl_GetCurrentThread()
	s.mu.Unlock()

	if !s.setupCommands() {
		Logger().Debug("failed to set up interpreter commands",
			zap.String("result", s.tcl.resultString(s.interp)))
		s.teardownInterp()
		return
	}

	if s.tcl.Tcl_Init(s.interp) != tclOK {
		Logger().Debug("Tcl initialization failed",
			zap.String("result", s.tcl.resultString(s.interp)))
		s.teardownInterp()
		return
	}
	if s.tk.Tk_Init(s.interp) != tclOK {
		Logger().Debug("Tk initialization failed",
			zap.String("result", s.tcl.resultString(s.interp)))
		s.teardownInterp()
		return
	}

	Logger().Debug("splash screen interpreter running",
		zap.String("tcl", gostring(s.tcl.Tcl_GetVar2(s.interp, "tcl_patchLevel", 0, tclGlobalOnly))),
		zap.String("tk", gostring(s.tcl.Tcl_GetVar2(s.interp, "tk_patchLevel", 0, tclGlobalOnly))))

	// Hand the image over through the _image_data variable; Tk keeps
	// its own copy, so the Go buffer can be dropped afterwards.
	image := s.data.Image
	var imagePtr *byte
	if len(image) > 0 {
		imagePtr = &image[0]
	}
	imageObj := s.tcl.Tcl_NewByteArrayObj(imagePtr, int32(len(image)))
	runtime.KeepAlive(image)
	s.tcl.Tcl_SetVar2Ex(s.interp, "_image_data", 0, imageObj, tclGlobalOnly)
	s.data.Image = nil

	script := s.data.Script
	if len(script) > 0 {
		if s.tcl.Tcl_EvalEx(s.interp, &script[0], int32(len(script)), tclGlobalOnly) != tclOK {
			Logger().Debug("splash screen script failed",
				zap.String("result", s.tcl.resultString(s.interp)))
		}
		runtime.KeepAlive(script)
	}

	s.signalStarted()

	for s.tk.Tk_GetNumMainWindows() > 0 && !s.exitRequested() {
		s.tcl.Tcl_DoOneEvent(0)
	}

	s.teardownInterp()
}

func (s *Screen) teardownInterp() {
	s.tcl.Tcl_DeleteInterp(s.interp)
	s.interp = 0
	s.tcl.Tcl_FinalizeThread()
}

func (s *Screen) signalStarted() {
	s.startedOnce.Do(func() { close(s.started) })
}

func (s *Screen) exitRequested() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exitLoop
}

// setupCommands rigs the interpreter for the minimal bundled
// environment before Tcl_Init runs.
func (s *Screen) setupCommands() bool {
	ok := true
	register := func(name string, proc uintptr) {
		if s.tcl.Tcl_CreateObjCommand(s.interp, name, proc, 0, 0) == 0 {
			ok = false
		}
	}

	// Overriding tclInit skips the standard library search entirely.
	register("tclInit", purego.NewCallback(func(clientData, interp uintptr, objc int32, objv uintptr) int32 {
		return tclOK
	}))

	// Tk_Init resolves its startup script through tcl_findLibrary; only
	// tk.tcl exists in the bundle, anchored at the Tk module directory.
	register("tcl_findLibrary", purego.NewCallback(s.cmdFindLibrary))

	// The default exit command would terminate the whole process; ours
	// only leaves the event loop.
	register("exit", purego.NewCallback(func(clientData, interp uintptr, objc int32, objv uintptr) int32 {
		s.mu.Lock()
		s.exitLoop = true
		s.mu.Unlock()
		return tclOK
	}))

	// The bundle carries only the files the screen needs; sourcing a
	// trimmed file must not fail, so shadow source with a version that
	// skips missing files and delegates the rest to the original.
	s.evalString("rename ::source ::_source")
	register("source", purego.NewCallback(s.cmdSource))

	return ok
}

func (s *Screen) cmdFindLibrary(clientData, interp uintptr, objc int32, objv uintptr) int32 {
	if objc < 5 {
		return tclError
	}
	args := unsafe.Slice((*uintptr)(unsafe.Pointer(objv)), objc)

	initScript := gostring(s.tcl.Tcl_GetString(args[4]))
	if initScript != "tk.tcl" {
		return tclError
	}

	tkLib := filepath.Join(s.homeDir, s.data.TkLibDir)
	s.tcl.Tcl_SetVar2(interp, "tk_library", 0, tkLib, tclGlobalOnly)
	return s.tcl.Tcl_EvalFile(interp, filepath.Join(tkLib, initScript))
}

func (s *Screen) cmdSource(clientData, interp uintptr, objc int32, objv uintptr) int32 {
	args := unsafe.Slice((*uintptr)(unsafe.Pointer(objv)), objc)

	// The filename is always the last argument.
	filename := gostring(s.tcl.Tcl_GetString(args[objc-1]))
	if _, err := os.Stat(filename); err != nil {
		return tclOK
	}

	forwarded := s.tcl.Tcl_Alloc(uint32(uintptr(objc) * unsafe.Sizeof(uintptr(0))))
	slice := unsafe.Slice((*uintptr)(unsafe.Pointer(forwarded)), objc)
	slice[0] = s.tcl.Tcl_NewStringObj("_source", -1)
	copy(slice[1:], args[1:])

	rc := s.tcl.Tcl_EvalObjv(interp, objc, forwarded, 0)
	s.tcl.Tcl_Free(forwarded)
	return rc
}

// serviceEvent runs on the interpreter thread for every queued event.
// A pending text update is applied; a bare wake-up event just returns.
func (s *Screen) serviceEvent(event uintptr, flags int32) int32 {
	s.mu.Lock()
	var text string
	hasText := false
	if len(s.pendingText) > 0 {
		text, s.pendingText = s.pendingText[0], s.pendingText[1:]
		hasText = true
	}
	s.mu.Unlock()

	if hasText && s.interp != 0 {
		s.tcl.Tcl_SetVar2(s.interp, "status_text", 0, text, tclGlobalOnly)
	}
	return 1 // event serviced
}

// queueEvent posts an event to the interpreter thread's queue and wakes
// it. Tcl frees the event after servicing it.
func (s *Screen) queueEvent(threadID uintptr) {
	event := s.tcl.Tcl_Alloc(uint32(tclEventSize))
	fields := unsafe.Slice((*uintptr)(unsafe.Pointer(event)), 2)
	fields[0] = s.eventProc
	fields[1] = 0
	s.tcl.Tcl_ThreadQueueEvent(threadID, event, tclQueueTail)
	s.tcl.Tcl_ThreadAlert(threadID)
}

// evalString evaluates a short inline script.
func (s *Screen) evalString(script string) int32 {
	b := []byte(script)
	rc := s.tcl.Tcl_EvalEx(s.interp, &b[0], int32(len(b)), 0)
	runtime.KeepAlive(b)
	return rc
}
