package pyconfig

import (
	"testing"
	"unsafe"
)

func TestSupported(t *testing.T) {
	for _, tag := range []int{311, 312, 313, 314} {
		if !Supported(tag) {
			t.Errorf("tag %d should be supported", tag)
		}
	}
	for _, tag := range []int{308, 309, 310, 399} {
		if Supported(tag) {
			t.Errorf("tag %d should not be supported", tag)
		}
	}
}

func TestLayouts_FieldsInsideStructure(t *testing.T) {
	listSize := unsafe.Sizeof(wideStringList{})

	for v, lay := range layouts {
		offsets := map[string]uintptr{
			"isolated":                lay.isolated,
			"use_environment":         lay.useEnvironment,
			"dev_mode":                lay.devMode,
			"install_signal_handlers": lay.installSignalHandlers,
			"use_hash_seed":           lay.useHashSeed,
			"hash_seed":               lay.hashSeed,
			"parse_argv":              lay.parseArgv,
			"optimization_level":      lay.optimizationLevel,
			"write_bytecode":          lay.writeBytecode,
			"verbose":                 lay.verbose,
			"buffered_stdio":          lay.bufferedStdio,
			"pathconfig_warnings":     lay.pathconfigWarnings,
			"program_name":            lay.programName,
			"home":                    lay.home,
			"module_search_paths_set": lay.moduleSearchPathsSet,
		}
		for name, off := range offsets {
			if off >= lay.size {
				t.Errorf("%+v: %s at offset %d outside structure of size %d", v, name, off, lay.size)
			}
		}
		for name, off := range map[string]uintptr{
			"argv":                lay.argv,
			"xoptions":            lay.xoptions,
			"warnoptions":         lay.warnoptions,
			"module_search_paths": lay.moduleSearchPaths,
		} {
			if off+listSize > lay.size {
				t.Errorf("%+v: list %s at offset %d overruns structure of size %d", v, name, off, lay.size)
			}
		}
	}
}

// Field blocks that are declared in the same order in every supported
// release must keep that order in the mirror structures.
func TestLayouts_OrderingInvariants(t *testing.T) {
	for v, lay := range layouts {
		if !(lay.isolated < lay.useEnvironment && lay.useEnvironment < lay.hashSeed) {
			t.Errorf("%+v: preamble fields out of order", v)
		}
		if !(lay.parseArgv < lay.argv && lay.argv < lay.xoptions && lay.xoptions < lay.warnoptions) {
			t.Errorf("%+v: argument list fields out of order", v)
		}
		if !(lay.pathconfigWarnings < lay.programName && lay.programName < lay.home) {
			t.Errorf("%+v: path configuration fields out of order", v)
		}
		if !(lay.home < lay.moduleSearchPathsSet && lay.moduleSearchPathsSet < lay.moduleSearchPaths) {
			t.Errorf("%+v: module search path fields out of order", v)
		}
	}
}

// On 64-bit platforms the free-threaded variant's extra field sits in
// alignment padding, so the pointer fields the launcher writes must not
// move between the two 3.13+ variants.
func TestLayouts_FreeThreadedVariant(t *testing.T) {
	if unsafe.Sizeof(uintptr(0)) != 8 {
		t.Skip("alignment property only holds on 64-bit platforms")
	}
	plain := layouts[variant{tag: 313}]
	gil := layouts[variant{tag: 313, freeThreaded: true}]
	if plain.programName != gil.programName {
		t.Errorf("program_name moved: %d vs %d", plain.programName, gil.programName)
	}
	if plain.moduleSearchPaths != gil.moduleSearchPaths {
		t.Errorf("module_search_paths moved: %d vs %d", plain.moduleSearchPaths, gil.moduleSearchPaths)
	}
}
