package launch

import (
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/rokm/pylauncher/archive"
	"github.com/rokm/pylauncher/errors"
)

// bootstrapRuntime is the slice of the runtime the bootstrap sequence
// drives. python.Runtime implements it; tests substitute a recorder.
type bootstrapRuntime interface {
	InstallPath(homeDir string) error
	ExecModule(name string, data []byte) error
	AppendSysPath(entry string) error
	RunScript(name string, data []byte, scriptPath string) error
}

// runtimeOptionStrings collects the archive's embedded option entries in
// stored order. Option entries carry their payload in the entry name.
func runtimeOptionStrings(a *archive.Archive) []string {
	var opts []string
	for i := range a.Entries {
		if a.Entries[i].TypeCode == archive.TypeRuntimeOption {
			opts = append(opts, a.Entries[i].Name)
		}
	}
	return opts
}

// importModules executes the marshalled bootstrap modules in stored
// order. Order matters: later modules import earlier ones, so the first
// failure aborts the sequence.
func importModules(a *archive.Archive, rt bootstrapRuntime) error {
	for i := range a.Entries {
		e := &a.Entries[i]
		if e.TypeCode != archive.TypeModule && e.TypeCode != archive.TypePackage {
			continue
		}

		data, err := a.Extract(e)
		if err != nil {
			return errors.Wrap(errors.PhaseBootstrap, errors.KindBootstrap, err,
				"extract bootstrap module "+e.Name)
		}
		Logger().Debug("importing bootstrap module", zap.String("module", e.Name))
		if err := rt.ExecModule(e.Name, data); err != nil {
			return err
		}
	}
	return nil
}

// installArchivePaths appends one "path?offset" module search path per
// embedded module collection. The path names the launcher executable and
// the offset is absolute within it, so the import machinery installed by
// the bootstrap modules reads the collection straight out of the file.
func installArchivePaths(a *archive.Archive, rt bootstrapRuntime) error {
	for i := range a.Entries {
		e := &a.Entries[i]
		if e.TypeCode != archive.TypePYZ {
			continue
		}

		entry := fmt.Sprintf("%s?%d", a.Filename, a.PkgOffset+uint64(e.Offset))
		Logger().Debug("installing module collection",
			zap.String("name", e.Name), zap.String("entry", entry))
		if err := rt.AppendSysPath(entry); err != nil {
			return err
		}
	}
	return nil
}

// runScripts executes the application's top-level scripts in stored
// order. The synthesized script path only serves as __file__; no such
// file exists on disk.
func runScripts(a *archive.Archive, rt bootstrapRuntime, homeDir string) error {
	for i := range a.Entries {
		e := &a.Entries[i]
		if e.TypeCode != archive.TypeScript {
			continue
		}

		data, err := a.Extract(e)
		if err != nil {
			return errors.Wrap(errors.PhaseRun, errors.KindInvalidData, err,
				"extract script "+e.Name)
		}
		if err := rt.RunScript(e.Name, data, filepath.Join(homeDir, e.Name+".py")); err != nil {
			return err
		}
	}
	return nil
}
