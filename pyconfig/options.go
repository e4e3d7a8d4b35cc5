package pyconfig

import (
	"strconv"
	"strings"

	"github.com/rokm/pylauncher/errors"
)

// RuntimeOptions collects the interpreter tuning options embedded in the
// application archive at build time.
type RuntimeOptions struct {
	Verbose    int
	Unbuffered bool
	Optimize   int

	UseHashSeed bool
	HashSeed    uint64

	UTF8Mode int
	DevMode  bool

	// FreeThreaded selects the configuration layout of a free-threaded
	// (GIL-disabled) library build.
	FreeThreaded bool

	// WFlags and XFlags are passed through to warnoptions and xoptions.
	WFlags []string
	XFlags []string
}

// ParseRuntimeOptions interprets the archive's embedded option strings.
// Unknown options are skipped so that archives produced by newer build
// tooling keep launching. UTF-8 mode is on unless explicitly disabled
// with "X utf8=0".
func ParseRuntimeOptions(raw []string) (*RuntimeOptions, error) {
	opts := &RuntimeOptions{UTF8Mode: 1}

	for _, option := range raw {
		switch {
		case option == "v" || option == "verbose":
			opts.Verbose++
		case option == "u" || option == "unbuffered":
			opts.Unbuffered = true
		case option == "O" || option == "optimize":
			opts.Optimize = 1
		case option == "OO":
			opts.Optimize = 2
		case strings.HasPrefix(option, "W "):
			opts.WFlags = append(opts.WFlags, option[2:])
		case strings.HasPrefix(option, "X "):
			if err := opts.applyXFlag(option[2:]); err != nil {
				return nil, err
			}
		case strings.HasPrefix(option, "hash_seed="):
			seed, err := strconv.ParseUint(option[len("hash_seed="):], 10, 64)
			if err != nil {
				return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidData, err,
					"invalid runtime option "+option)
			}
			opts.UseHashSeed = true
			opts.HashSeed = seed
		}
	}
	return opts, nil
}

// applyXFlag records an X flag and folds the ones with
// pre-initialization or layout consequences into their dedicated fields.
func (o *RuntimeOptions) applyXFlag(flag string) error {
	o.XFlags = append(o.XFlags, flag)

	name, value := flag, ""
	if idx := strings.IndexByte(flag, '='); idx >= 0 {
		name, value = flag[:idx], flag[idx+1:]
	}

	switch name {
	case "utf8":
		mode, err := parseFlagValue(flag, value)
		if err != nil {
			return err
		}
		o.UTF8Mode = mode
	case "dev":
		o.DevMode = true
	case "gil":
		mode, err := parseFlagValue(flag, value)
		if err != nil {
			return err
		}
		o.FreeThreaded = mode == 0
	}
	return nil
}

// parseFlagValue handles the "name" and "name=0|1" spellings of an X
// flag; a bare name means enabled.
func parseFlagValue(flag, value string) (int, error) {
	switch value {
	case "", "1":
		return 1, nil
	case "0":
		return 0, nil
	default:
		return 0, errors.InvalidData(errors.PhaseConfig, "invalid runtime option X "+flag)
	}
}
