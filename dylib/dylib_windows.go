//go:build windows

package dylib

import (
	"golang.org/x/sys/windows"
)

func openLibrary(path string) (uintptr, error) {
	// LOAD_WITH_ALTERED_SEARCH_PATH makes dependent DLLs resolve
	// relative to the loaded library instead of the executable.
	handle, err := windows.LoadLibraryEx(path, 0, windows.LOAD_WITH_ALTERED_SEARCH_PATH)
	if err != nil {
		return 0, err
	}
	return uintptr(handle), nil
}

func lookupSymbol(handle uintptr, name string) (uintptr, error) {
	return windows.GetProcAddress(windows.Handle(handle), name)
}

func closeLibrary(handle uintptr) error {
	return windows.FreeLibrary(windows.Handle(handle))
}
