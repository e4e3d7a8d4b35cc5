package splash

import (
	"github.com/rokm/pylauncher/dylib"
)

// TkDLL is the typed function table bound from the Tk shared library.
// Tk is driven almost entirely through the Tcl interpreter; only
// initialization and the window count are needed directly.
type TkDLL struct {
	lib *dylib.Library

	Tk_Init              func(interp uintptr) int32
	Tk_GetNumMainWindows func() int32
}

func (d *TkDLL) symbols() []dylib.Symbol {
	return []dylib.Symbol{
		{Name: "Tk_Init", Slot: &d.Tk_Init},
		{Name: "Tk_GetNumMainWindows", Slot: &d.Tk_GetNumMainWindows},
	}
}

// LoadTk opens the Tk shared library and binds every required entry
// point.
func LoadTk(filename string) (*TkDLL, error) {
	lib, err := dylib.Open(filename)
	if err != nil {
		return nil, err
	}
	d := &TkDLL{lib: lib}
	if err := lib.Bind(d.symbols()); err != nil {
		lib.Close()
		return nil, err
	}
	return d, nil
}

// Close unloads the Tk shared library. Safe to call more than once.
func (d *TkDLL) Close() error {
	if d.lib == nil {
		return nil
	}
	err := d.lib.Close()
	d.lib = nil
	return err
}
