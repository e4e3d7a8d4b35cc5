package launch

import (
	"path/filepath"

	"go.uber.org/zap"

	"github.com/rokm/pylauncher/archive"
	"github.com/rokm/pylauncher/errors"
	"github.com/rokm/pylauncher/pyconfig"
	"github.com/rokm/pylauncher/python"
)

// Context carries the launch inputs resolved by the command.
type Context struct {
	// Archive is the application's embedded archive.
	Archive *archive.Archive

	// ExecutablePath is the launcher executable's own path. It becomes
	// the interpreter's program name and backs the archive search path
	// entries.
	ExecutablePath string

	// HomeDir is the top-level application directory holding the
	// runtime shared library and support files.
	HomeDir string

	// Argv is the process argument vector, passed through verbatim.
	Argv []string

	// WindowedMode suppresses the stream flush during finalization;
	// a windowed process has no console to flush to.
	WindowedMode bool
}

// Option adjusts a Controller.
type Option func(*Controller)

// WithPreLoadHook registers a hook invoked right before the runtime
// library is opened, with the application home directory. Used on
// Windows to pre-load the bundled C runtime so the library's own
// dependencies resolve on systems without it installed.
func WithPreLoadHook(hook func(homeDir string)) Option {
	return func(c *Controller) { c.preLoad = hook }
}

// Controller owns the runtime for the lifetime of the process and moves
// it through the launch lifecycle. Not safe for concurrent use.
type Controller struct {
	ctx     *Context
	preLoad func(homeDir string)

	state State
	dll   *python.DLL
}

// New creates a controller in the unloaded state.
func New(ctx *Context, opts ...Option) *Controller {
	c := &Controller{ctx: ctx}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the controller's current lifecycle state.
func (c *Controller) State() State {
	return c.state
}

// Execute runs the launch sequence to completion: load and bind the
// runtime library, configure and start the interpreter, import the
// bootstrap modules, install the archive-backed module paths, and run
// the application scripts. The caller must invoke Finalize afterwards,
// on success and failure alike.
func (c *Controller) Execute() error {
	if err := c.loadRuntime(); err != nil {
		c.fail(err)
		return err
	}
	if err := c.startRuntime(); err != nil {
		c.fail(err)
		return err
	}

	rt := python.NewRuntime(c.dll)
	if err := c.bootstrap(rt); err != nil {
		c.fail(err)
		return err
	}
	c.state = StateRunning

	if err := runScripts(c.ctx.Archive, rt, c.ctx.HomeDir); err != nil {
		c.fail(err)
		return err
	}
	return nil
}

// Finalize flushes and shuts down the interpreter, then releases the
// runtime library. Reachable from every state; it only touches what was
// actually brought up, so calling it after an early failure is safe.
func (c *Controller) Finalize() {
	if c.dll == nil {
		return
	}

	python.NewRuntime(c.dll).Finalize(!c.ctx.WindowedMode)

	Logger().Debug("unloading runtime library")
	c.dll.Close()
	c.dll = nil

	if c.state != StateFailed {
		c.state = StateFinalized
	}
}

func (c *Controller) fail(err error) {
	Logger().Error("launch failed",
		zap.Stringer("state", c.state), zap.Error(err))
	c.state = StateFailed
}

func (c *Controller) loadRuntime() error {
	a := c.ctx.Archive

	if c.preLoad != nil {
		c.preLoad(c.ctx.HomeDir)
	}

	libPath := filepath.Join(c.ctx.HomeDir, a.PythonLibName)
	Logger().Debug("loading runtime library",
		zap.String("path", libPath), zap.Int("version", a.PythonVersion))

	dll, err := python.Load(libPath, a.PythonVersion)
	if err != nil {
		return err
	}
	c.dll = dll
	c.state = StateBound
	return nil
}

func (c *Controller) startRuntime() error {
	opts, err := pyconfig.ParseRuntimeOptions(runtimeOptionStrings(c.ctx.Archive))
	if err != nil {
		return err
	}

	Logger().Debug("pre-initializing interpreter")
	if err := pyconfig.PreInitialize(c.dll, opts); err != nil {
		return err
	}

	cfg, err := pyconfig.New(c.dll, opts.FreeThreaded)
	if err != nil {
		return err
	}
	// The interpreter copies the configuration during start-up, so the
	// structure is released on every exit from here.
	defer cfg.Clear()

	if err := cfg.SetProgramName(c.ctx.ExecutablePath); err != nil {
		return err
	}
	if err := cfg.SetHome(c.ctx.HomeDir); err != nil {
		return err
	}
	searchPaths := []string{
		filepath.Join(c.ctx.HomeDir, "base_library.zip"),
		filepath.Join(c.ctx.HomeDir, "lib-dynload"),
		c.ctx.HomeDir,
	}
	if err := cfg.SetModuleSearchPaths(searchPaths); err != nil {
		return err
	}
	if err := cfg.SetArgv(c.ctx.Argv); err != nil {
		return err
	}
	if err := cfg.ApplyRuntimeOptions(opts); err != nil {
		return err
	}
	if err := cfg.Read(); err != nil {
		return err
	}
	c.state = StateConfigured

	Logger().Debug("starting interpreter")
	status := c.dll.Py_InitializeFromConfig(cfg.Ptr())
	if c.dll.StatusException(status) {
		Logger().Error("interpreter start failed", zap.String("status", status.Message()))
		// Dumps the failure and exits the process, the same way the
		// native interpreter handles a fatal start-up error.
		c.dll.Py_ExitStatusException(status)
		return errors.RuntimeStart(status.Message())
	}
	c.state = StateStarted
	return nil
}

func (c *Controller) bootstrap(rt bootstrapRuntime) error {
	Logger().Debug("publishing application home", zap.String("home", c.ctx.HomeDir))
	if err := rt.InstallPath(c.ctx.HomeDir); err != nil {
		return err
	}
	if err := importModules(c.ctx.Archive, rt); err != nil {
		return err
	}
	return installArchivePaths(c.ctx.Archive, rt)
}
