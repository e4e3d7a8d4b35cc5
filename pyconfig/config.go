package pyconfig

import (
	"unsafe"

	"github.com/rokm/pylauncher/errors"
	"github.com/rokm/pylauncher/python"
)

// Config owns one heap-allocated configuration structure, sized and laid
// out for the running library's version tag. Fields are written through
// the registered offsets; strings are converted by the library itself so
// they match its internal wide-character representation.
type Config struct {
	dll *python.DLL
	lay layout

	// Backing store for the C structure. uint64 words keep the
	// allocation pointer-aligned. Released by Clear.
	words []uint64
}

// New allocates a zeroed configuration structure for the library's
// version tag and initializes it in isolated mode. Fails with an
// unsupported version error when no layout is registered for the tag.
func New(dll *python.DLL, freeThreaded bool) (*Config, error) {
	lay, ok := layouts[variant{tag: dll.Version, freeThreaded: freeThreaded}]
	if !ok {
		return nil, errors.UnsupportedVersion(dll.Version)
	}

	c := &Config{
		dll:   dll,
		lay:   lay,
		words: make([]uint64, (lay.size+7)/8),
	}
	dll.PyConfig_InitIsolatedConfig(c.Ptr())

	// The isolated preset disables signal handlers and enables path
	// probing diagnostics. The launcher wants signal handlers installed
	// like a normal interpreter, takes argv verbatim, never writes
	// bytecode next to the frozen application, and must keep path
	// probing quiet since every path is provided explicitly.
	c.setInt32(lay.installSignalHandlers, 1)
	c.setInt32(lay.parseArgv, 0)
	c.setInt32(lay.writeBytecode, 0)
	c.setInt32(lay.pathconfigWarnings, 0)
	return c, nil
}

// Ptr returns the address of the configuration structure for passing to
// the runtime's configuration entry points.
func (c *Config) Ptr() uintptr {
	return uintptr(unsafe.Pointer(&c.words[0]))
}

// Clear releases everything the runtime allocated into the configuration
// and then the structure itself. Safe to call more than once; the Config
// must not be used afterwards.
func (c *Config) Clear() {
	if c.words == nil {
		return
	}
	c.dll.PyConfig_Clear(c.Ptr())
	c.words = nil
}

// SetProgramName records the path of the launcher executable as the
// program name.
func (c *Config) SetProgramName(path string) error {
	return c.setString("program_name", c.lay.programName, path)
}

// SetHome points the interpreter's home at the application's top-level
// directory, which keeps its own path probing away from any system
// installation.
func (c *Config) SetHome(dir string) error {
	return c.setString("home", c.lay.home, dir)
}

// SetModuleSearchPaths installs the initial module search paths and
// marks them as explicitly set, which disables the interpreter's own
// path computation.
func (c *Config) SetModuleSearchPaths(paths []string) error {
	if err := c.setWideStringList("module_search_paths", c.lay.moduleSearchPaths, paths); err != nil {
		return err
	}
	c.setInt32(c.lay.moduleSearchPathsSet, 1)
	return nil
}

// SetArgv installs the process arguments verbatim; parse_argv is off, so
// the interpreter will not interpret them as its own command line.
func (c *Config) SetArgv(args []string) error {
	return c.setWideStringList("argv", c.lay.argv, args)
}

// ApplyRuntimeOptions transfers the options collected from the archive
// into the configuration.
func (c *Config) ApplyRuntimeOptions(opts *RuntimeOptions) error {
	c.setInt32(c.lay.optimizationLevel, int32(opts.Optimize))
	c.setInt32(c.lay.verbose, int32(opts.Verbose))
	if opts.Unbuffered {
		c.setInt32(c.lay.bufferedStdio, 0)
	}
	if opts.UseHashSeed {
		c.setInt32(c.lay.useHashSeed, 1)
		c.setUint64(c.lay.hashSeed, opts.HashSeed)
	}
	if opts.DevMode {
		c.setInt32(c.lay.devMode, 1)
	}

	if err := c.setWideStringList("warnoptions", c.lay.warnoptions, opts.WFlags); err != nil {
		return err
	}
	return c.setWideStringList("xoptions", c.lay.xoptions, opts.XFlags)
}

// Read lets the runtime compute the remaining configuration fields from
// what has been set so far. Call after all setters, right before the
// interpreter starts.
func (c *Config) Read() error {
	status := c.dll.PyConfig_Read(c.Ptr())
	if c.dll.StatusException(status) {
		return errors.Configuration("config_read", status.Message())
	}
	return nil
}

func (c *Config) setString(field string, offset uintptr, value string) error {
	status := c.dll.PyConfig_SetBytesString(c.Ptr(), c.fieldAddr(offset), value)
	if c.dll.StatusException(status) {
		return errors.Configuration(field, status.Message())
	}
	return nil
}

// setWideStringList decodes values with the runtime's own locale
// decoder, hands the resulting array over via PyConfig_SetWideStringList
// (which copies it), and releases the intermediate strings.
func (c *Config) setWideStringList(field string, offset uintptr, values []string) error {
	if len(values) == 0 {
		return nil
	}

	items := make([]uintptr, len(values))
	defer func() {
		for _, item := range items {
			if item != 0 {
				c.dll.PyMem_RawFree(item)
			}
		}
	}()

	for i, value := range values {
		w := c.dll.Py_DecodeLocale(value, nil)
		if w == 0 {
			return errors.Configuration(field, "failed to decode "+value)
		}
		items[i] = w
	}

	status := c.dll.PyConfig_SetWideStringList(
		c.Ptr(), c.fieldAddr(offset),
		int64(len(items)), uintptr(unsafe.Pointer(&items[0])))
	if c.dll.StatusException(status) {
		return errors.Configuration(field, status.Message())
	}
	return nil
}

func (c *Config) fieldAddr(offset uintptr) uintptr {
	return c.Ptr() + offset
}

func (c *Config) setInt32(offset uintptr, v int32) {
	*(*int32)(unsafe.Add(unsafe.Pointer(&c.words[0]), offset)) = v
}

func (c *Config) setUint64(offset uintptr, v uint64) {
	*(*uint64)(unsafe.Add(unsafe.Pointer(&c.words[0]), offset)) = v
}
