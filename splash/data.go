package splash

import (
	"encoding/binary"
	"fmt"
	"runtime"
	"strings"

	"github.com/rokm/pylauncher/archive"
	"github.com/rokm/pylauncher/errors"
)

// Splash data header: three 16-byte NUL-padded names followed by
// length/offset pairs for the script, image, and requirements blocks.
// Offsets are relative to the start of the header; all integers are
// big-endian.
const (
	nameFieldSize  = 16
	dataHeaderSize = 3*nameFieldSize + 6*4
)

// Data is the parsed splash resources entry.
type Data struct {
	// TclLibName and TkLibName are the base names of the Tcl and Tk
	// shared libraries bundled in the application directory.
	TclLibName string
	TkLibName  string

	// TkLibDir is the Tk module directory, relative to the application
	// directory.
	TkLibDir string

	// Script builds the splash screen when evaluated in the Tcl
	// interpreter.
	Script []byte

	// Image is the raw image shown on the screen.
	Image []byte

	// Requirements lists the archive entries the screen needs on the
	// filesystem before it can start.
	Requirements []string
}

// FindData locates and parses the splash resources entry. Returns
// (nil, nil) when the archive carries no splash screen.
func FindData(a *archive.Archive) (*Data, error) {
	var entry *archive.Entry
	for i := range a.Entries {
		if a.Entries[i].TypeCode == archive.TypeSplash {
			entry = &a.Entries[i]
			break
		}
	}
	if entry == nil {
		return nil, nil
	}

	blob, err := a.Extract(entry)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseSplash, errors.KindInvalidData, err,
			"extract splash resources")
	}
	return parseData(blob)
}

func parseData(blob []byte) (*Data, error) {
	if len(blob) < dataHeaderSize {
		return nil, errors.InvalidData(errors.PhaseSplash, "splash data header truncated")
	}

	name := func(off int) string {
		return strings.TrimRight(string(blob[off:off+nameFieldSize]), "\x00")
	}
	d := &Data{
		TclLibName: name(0),
		TkLibName:  name(nameFieldSize),
		TkLibDir:   name(2 * nameFieldSize),
	}

	section := func(what string, at int) ([]byte, error) {
		length := binary.BigEndian.Uint32(blob[at:])
		offset := binary.BigEndian.Uint32(blob[at+4:])
		if uint64(offset)+uint64(length) > uint64(len(blob)) {
			return nil, errors.InvalidData(errors.PhaseSplash,
				fmt.Sprintf("splash %s block out of bounds", what))
		}
		return blob[offset : offset+length], nil
	}

	var err error
	if d.Script, err = section("script", 3*nameFieldSize); err != nil {
		return nil, err
	}
	if d.Image, err = section("image", 3*nameFieldSize+8); err != nil {
		return nil, err
	}
	requirements, err := section("requirements", 3*nameFieldSize+16)
	if err != nil {
		return nil, err
	}

	// Requirements are NUL-terminated strings stored back to back.
	for _, req := range strings.Split(string(requirements), "\x00") {
		if req != "" {
			d.Requirements = append(d.Requirements, req)
		}
	}
	return d, nil
}

// IsRequirement reports whether the named archive entry belongs to the
// splash screen's requirements. Name comparison follows the filesystem
// case conventions of the platform.
func (d *Data) IsRequirement(name string) bool {
	caseInsensitive := runtime.GOOS == "windows" || runtime.GOOS == "darwin"
	for _, req := range d.Requirements {
		if req == name || (caseInsensitive && strings.EqualFold(req, name)) {
			return true
		}
	}
	return false
}
