package pylauncher

import (
	"os"
	"path/filepath"
	"runtime"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"

	"github.com/rokm/pylauncher/archive"
	"github.com/rokm/pylauncher/dylib"
	"github.com/rokm/pylauncher/launch"
	"github.com/rokm/pylauncher/python"
	"github.com/rokm/pylauncher/splash"
)

// windowed is set to a non-empty value at build time
// (-ldflags "-X github.com/rokm/pylauncher.windowed=1") for windowed
// applications, which have no console streams to flush on shutdown.
var windowed string

// Run launches the frozen application embedded in the current
// executable and returns the process exit code. It owns the entire
// lifecycle: archive discovery, optional splash screen, interpreter
// start-up, script execution, and teardown.
func Run() int {
	logger := newLogger()
	defer logger.Sync()
	launch.SetLogger(logger.Named("launch"))
	python.SetLogger(logger.Named("python"))
	splash.SetLogger(logger.Named("splash"))

	executable, err := os.Executable()
	if err != nil {
		logger.Error("cannot determine own executable", zap.Error(err))
		return 1
	}
	if resolved, err := filepath.EvalSymlinks(executable); err == nil {
		executable = resolved
	}

	a, err := archive.Open(executable)
	if err != nil {
		logger.Error("cannot open embedded archive",
			zap.String("executable", executable), zap.Error(err))
		return 1
	}
	defer a.Close()

	homeDir := filepath.Dir(executable)
	logger.Debug("launching application",
		zap.String("executable", executable),
		zap.String("home", homeDir),
		zap.Int("version", a.PythonVersion))

	screen := startSplash(a, homeDir, executable, logger)

	ctrl := launch.New(&launch.Context{
		Archive:        a,
		ExecutablePath: executable,
		HomeDir:        homeDir,
		Argv:           os.Args,
		WindowedMode:   windowed != "",
	}, launchOptions(logger)...)

	err = ctrl.Execute()

	// The interpreter shuts down before the splash screen: if the
	// application imported tkinter, finalizing Tcl first would pull the
	// runtime out from under it.
	ctrl.Finalize()
	if screen != nil {
		screen.Finalize()
	}

	if err != nil {
		return 1
	}
	return 0
}

// startSplash brings up the splash screen when the archive carries one.
// Splash failures are never fatal; the application launches without it.
func startSplash(a *archive.Archive, homeDir, executable string, logger *zap.Logger) *splash.Screen {
	if os.Getenv("PYINSTALLER_SUPPRESS_SPLASH") != "" {
		return nil
	}

	data, err := splash.FindData(a)
	if err != nil {
		logger.Warn("splash resources unreadable", zap.Error(err))
		return nil
	}
	if data == nil {
		return nil
	}

	if err := placeSplashRequirements(a, data, homeDir); err != nil {
		logger.Warn("splash requirements unavailable", zap.Error(err))
		return nil
	}

	screen := splash.NewScreen(data, homeDir)
	if err := screen.LoadLibraries(); err != nil {
		logger.Warn("splash libraries failed to load", zap.Error(err))
		return nil
	}
	if err := screen.Start(executable); err != nil {
		logger.Warn("splash screen failed to start", zap.Error(err))
		screen.Finalize()
		return nil
	}
	return screen
}

// placeSplashRequirements ensures every file the splash screen needs is
// present in the application directory, extracting missing ones from
// the archive.
func placeSplashRequirements(a *archive.Archive, data *splash.Data, homeDir string) error {
	for i := range a.Entries {
		e := &a.Entries[i]
		if !data.IsRequirement(e.Name) {
			continue
		}
		target := filepath.Join(homeDir, filepath.FromSlash(e.Name))
		if _, err := os.Stat(target); err == nil {
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		if err := a.ExtractToFile(e, target); err != nil {
			return err
		}
	}
	return nil
}

// launchOptions assembles platform-specific controller options. On
// Windows the bundled C runtime is pre-loaded so the Python library's
// own import resolves on systems without it installed; the handle stays
// open for the life of the process.
func launchOptions(logger *zap.Logger) []launch.Option {
	if runtime.GOOS != "windows" {
		return nil
	}
	return []launch.Option{
		launch.WithPreLoadHook(func(homeDir string) {
			path := filepath.Join(homeDir, "ucrtbase.dll")
			if _, err := os.Stat(path); err != nil {
				return
			}
			if _, err := dylib.Open(path); err != nil {
				logger.Debug("C runtime pre-load failed",
					zap.String("path", path), zap.Error(err))
			}
		}),
	}
}

// newLogger builds the process logger. Logging is off unless
// PYINSTALLER_VERBOSE is set; the console encoder uses color only when
// stderr is a terminal.
func newLogger() *zap.Logger {
	if os.Getenv("PYINSTALLER_VERBOSE") == "" {
		return zap.NewNop()
	}

	encCfg := zap.NewDevelopmentEncoderConfig()
	if term.IsTerminal(int(os.Stderr.Fd())) {
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encCfg),
		zapcore.Lock(os.Stderr),
		zap.DebugLevel,
	)
	return zap.New(core)
}
