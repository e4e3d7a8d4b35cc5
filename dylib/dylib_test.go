package dylib

import (
	stderrors "errors"
	"testing"

	"github.com/rokm/pylauncher/errors"
)

// fakeResolver exposes a controllable subset of symbols.
type fakeResolver struct {
	symbols map[string]uintptr
	lookups []string
}

func (f *fakeResolver) Lookup(name string) (uintptr, error) {
	f.lookups = append(f.lookups, name)
	addr, ok := f.symbols[name]
	if !ok {
		return 0, stderrors.New("undefined symbol: " + name)
	}
	return addr, nil
}

func TestBind_AllResolved(t *testing.T) {
	r := &fakeResolver{symbols: map[string]uintptr{
		"Py_Initialize": 0x1000,
		"Py_Finalize":   0x1008,
		"Py_DecRef":     0x1010,
	}}

	var initialize, finalize, decref uintptr
	table := []Symbol{
		{"Py_Initialize", &initialize},
		{"Py_Finalize", &finalize},
		{"Py_DecRef", &decref},
	}

	if err := Bind(r, table); err != nil {
		t.Fatalf("bind: %v", err)
	}
	if initialize != 0x1000 || finalize != 0x1008 || decref != 0x1010 {
		t.Errorf("slots not populated: %#x %#x %#x", initialize, finalize, decref)
	}
}

func TestBind_FailsFastOnMissingSymbol(t *testing.T) {
	r := &fakeResolver{symbols: map[string]uintptr{
		"Py_Initialize": 0x1000,
		// Py_Finalize deliberately missing
		"Py_DecRef": 0x1010,
	}}

	var initialize, finalize, decref uintptr
	table := []Symbol{
		{"Py_Initialize", &initialize},
		{"Py_Finalize", &finalize},
		{"Py_DecRef", &decref},
	}

	err := Bind(r, table)
	if err == nil {
		t.Fatal("expected bind to fail")
	}

	var lerr *errors.Error
	if !stderrors.As(err, &lerr) {
		t.Fatalf("unexpected error type: %T", err)
	}
	if lerr.Kind != errors.KindSymbolNotFound {
		t.Errorf("kind = %q, want %q", lerr.Kind, errors.KindSymbolNotFound)
	}
	if lerr.Symbol != "Py_Finalize" {
		t.Errorf("symbol = %q, want Py_Finalize", lerr.Symbol)
	}

	// Fail-fast: symbols after the failing one are never resolved.
	if len(r.lookups) != 2 {
		t.Errorf("lookups = %v, want to stop after Py_Finalize", r.lookups)
	}
	if decref != 0 {
		t.Error("slot after failing symbol was populated")
	}
}

func TestBind_ZeroAddressIsMissing(t *testing.T) {
	r := &fakeResolver{symbols: map[string]uintptr{"Py_Main": 0}}

	var slot uintptr
	err := Bind(r, []Symbol{{"Py_Main", &slot}})
	if err == nil {
		t.Fatal("expected zero address to be treated as missing")
	}
}

func TestLibrary_OpenMissing(t *testing.T) {
	_, err := Open("/nonexistent/libpython3.11.so")
	if err == nil {
		t.Fatal("expected open of missing library to fail")
	}

	var lerr *errors.Error
	if !stderrors.As(err, &lerr) {
		t.Fatalf("unexpected error type: %T", err)
	}
	if lerr.Kind != errors.KindLoadFailure {
		t.Errorf("kind = %q, want %q", lerr.Kind, errors.KindLoadFailure)
	}
}

func TestLibrary_DoubleCloseSafe(t *testing.T) {
	l := &Library{handle: 0}
	if err := l.Close(); err != nil {
		t.Fatalf("close of null handle: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}

func TestLibrary_LookupAfterClose(t *testing.T) {
	l := &Library{handle: 0}
	if _, err := l.Lookup("Py_Initialize"); err == nil {
		t.Fatal("expected lookup on closed library to fail")
	}
}
