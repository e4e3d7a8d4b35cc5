package dylib

import (
	"github.com/ebitengine/purego"

	"github.com/rokm/pylauncher/errors"
)

// Library is an open handle to a native shared library. It owns exactly
// one platform handle; Close releases it and is safe to call more than
// once (subsequent calls are no-ops).
type Library struct {
	handle uintptr
	path   string
}

// Open loads the shared library at path. On failure no handle is
// retained.
func Open(path string) (*Library, error) {
	handle, err := openLibrary(path)
	if err != nil {
		return nil, errors.LoadFailure(path, err)
	}
	return &Library{handle: handle, path: path}, nil
}

// Path returns the path the library was loaded from.
func (l *Library) Path() string {
	return l.path
}

// Lookup resolves a single exported symbol. Implements Resolver.
func (l *Library) Lookup(name string) (uintptr, error) {
	if l.handle == 0 {
		return 0, errors.NotInitialized(errors.PhaseBind, "library handle")
	}
	return lookupSymbol(l.handle, name)
}

// Close unloads the library and nulls out the handle, making further
// Close calls no-ops.
func (l *Library) Close() error {
	if l.handle == 0 {
		return nil
	}
	err := closeLibrary(l.handle)
	l.handle = 0
	return err
}

// Bind resolves this library's symbols per table. On failure the caller
// still owns the library and must close it.
func (l *Library) Bind(table []Symbol) error {
	return Bind(l, table)
}

// Resolver looks up exported symbols by name. *Library implements it;
// tests substitute fakes exposing a controllable subset of symbols.
type Resolver interface {
	Lookup(name string) (uintptr, error)
}

// Symbol pairs an exported name with the destination slot it is bound
// into. Slot must be either a *uintptr (raw address store) or a pointer
// to a function variable, in which case a C-ABI trampoline is generated
// for it.
type Symbol struct {
	Name string
	Slot any
}

// Bind resolves every symbol in table, in order, storing each address
// into its slot. It stops at the first unresolved name and returns an
// error identifying exactly that symbol; the table must then be
// considered unusable.
func Bind(r Resolver, table []Symbol) error {
	for _, sym := range table {
		addr, err := r.Lookup(sym.Name)
		if err != nil || addr == 0 {
			return errors.SymbolNotFound(sym.Name, err)
		}
		if slot, ok := sym.Slot.(*uintptr); ok {
			*slot = addr
			continue
		}
		purego.RegisterFunc(sym.Slot, addr)
	}
	return nil
}
