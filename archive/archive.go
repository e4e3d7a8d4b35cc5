package archive

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zlib"

	"github.com/rokm/pylauncher/errors"
)

// Entry type codes, as stored in the TOC.
const (
	TypeBinary        byte = 'b' // binary (extracted to filesystem in onefile mode)
	TypeDependency    byte = 'd' // multipackage dependency reference
	TypePYZ           byte = 'z' // zlib archive with frozen modules
	TypeZipfile       byte = 'Z' // zipfile (extractable)
	TypePackage       byte = 'M' // marshalled package (__init__)
	TypeModule        byte = 'm' // marshalled module
	TypeScript        byte = 's' // marshalled top-level script
	TypeData          byte = 'x' // data file
	TypeRuntimeOption byte = 'o' // run-time option string
	TypeSplash        byte = 'l' // splash screen resources
	TypeSymlink       byte = 'n' // symbolic link
)

// cookieMagic is the 8-byte pattern that terminates the cookie header.
var cookieMagic = []byte{'M', 'E', 'I', 014, 013, 012, 013, 016}

const (
	cookieSize   = 8 + 4 + 4 + 4 + 4 + 64 // magic + lengths + version + libname
	tocEntrySize = 4 + 4 + 4 + 4 + 1 + 1  // fixed part, name follows
	libnameSize  = 64
)

// Entry is a single read-only TOC record.
type Entry struct {
	Name               string
	TypeCode           byte
	Offset             uint32 // data position relative to PKG start
	Length             uint32 // compressed length
	UncompressedLength uint32
	Compressed         bool
}

// Archive is an open PKG/CArchive. Entries preserve stored order.
type Archive struct {
	Filename string

	// PkgOffset is the position of the PKG within the file; entry
	// offsets are relative to it.
	PkgOffset uint64

	// Version tag of the bundled runtime (major*100 + minor).
	PythonVersion int

	// Base name of the bundled runtime shared library.
	PythonLibName string

	Entries []Entry

	f *os.File
}

// Open locates and parses the archive embedded in the named file. The
// archive keeps the file open for later extraction; the caller owns it
// for the lifetime of the process and releases it with Close.
func Open(filename string) (*Archive, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseArchive, errors.KindLoadFailure, err, "open archive file")
	}

	a := &Archive{Filename: filename, f: f}
	if err := a.parse(); err != nil {
		f.Close()
		return nil, err
	}
	return a, nil
}

// Close releases the underlying file. Safe to call more than once.
func (a *Archive) Close() error {
	if a.f == nil {
		return nil
	}
	err := a.f.Close()
	a.f = nil
	return err
}

// Find returns the first entry with the given name, or nil.
func (a *Archive) Find(name string) *Entry {
	for i := range a.Entries {
		if a.Entries[i].Name == name {
			return &a.Entries[i]
		}
	}
	return nil
}

// ReadData reads an entry's raw (possibly compressed) blob.
func (a *Archive) ReadData(e *Entry) ([]byte, error) {
	if a.f == nil {
		return nil, errors.NotInitialized(errors.PhaseArchive, "archive file")
	}
	data := make([]byte, e.Length)
	if _, err := a.f.ReadAt(data, int64(a.PkgOffset)+int64(e.Offset)); err != nil {
		return nil, errors.Wrap(errors.PhaseArchive, errors.KindInvalidData, err,
			fmt.Sprintf("read data for entry %q", e.Name))
	}
	return data, nil
}

// Extract reads an entry's blob and decompresses it if needed.
func (a *Archive) Extract(e *Entry) ([]byte, error) {
	data, err := a.ReadData(e)
	if err != nil {
		return nil, err
	}
	if !e.Compressed {
		return data, nil
	}

	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(errors.PhaseArchive, errors.KindInvalidData, err,
			fmt.Sprintf("decompress entry %q", e.Name))
	}
	defer zr.Close()

	out := make([]byte, 0, e.UncompressedLength)
	buf := bytes.NewBuffer(out)
	if _, err := io.Copy(buf, zr); err != nil {
		return nil, errors.Wrap(errors.PhaseArchive, errors.KindInvalidData, err,
			fmt.Sprintf("decompress entry %q", e.Name))
	}
	if uint32(buf.Len()) != e.UncompressedLength {
		return nil, errors.InvalidData(errors.PhaseArchive,
			fmt.Sprintf("entry %q decompressed to %d bytes, expected %d", e.Name, buf.Len(), e.UncompressedLength))
	}
	return buf.Bytes(), nil
}

// ExtractToFile extracts an entry to the named output file. Used for
// splash screen requirements.
func (a *Archive) ExtractToFile(e *Entry, outputFilename string) error {
	data, err := a.Extract(e)
	if err != nil {
		return err
	}
	if err := os.WriteFile(outputFilename, data, 0o755); err != nil {
		return errors.Wrap(errors.PhaseArchive, errors.KindInvalidData, err,
			fmt.Sprintf("write entry %q", e.Name))
	}
	return nil
}

func (a *Archive) parse() error {
	cookiePos, err := findCookie(a.f)
	if err != nil {
		return err
	}

	cookie := make([]byte, cookieSize)
	if _, err := a.f.ReadAt(cookie, cookiePos); err != nil {
		return errors.Wrap(errors.PhaseArchive, errors.KindInvalidData, err, "read cookie")
	}

	// Cookie layout (big-endian): magic[8], pkg_length u32,
	// toc_offset u32, toc_length u32, python_version i32, libname[64].
	pkgLength := binary.BigEndian.Uint32(cookie[8:12])
	tocOffset := binary.BigEndian.Uint32(cookie[12:16])
	tocLength := binary.BigEndian.Uint32(cookie[16:20])
	a.PythonVersion = int(int32(binary.BigEndian.Uint32(cookie[20:24])))
	a.PythonLibName = strings.TrimRight(string(cookie[24:24+libnameSize]), "\x00")

	// The PKG ends right after the cookie.
	pkgEnd := cookiePos + cookieSize
	if int64(pkgLength) > pkgEnd {
		return errors.InvalidData(errors.PhaseArchive, "PKG length exceeds file size")
	}
	a.PkgOffset = uint64(pkgEnd - int64(pkgLength))

	toc := make([]byte, tocLength)
	if _, err := a.f.ReadAt(toc, int64(a.PkgOffset)+int64(tocOffset)); err != nil {
		return errors.Wrap(errors.PhaseArchive, errors.KindInvalidData, err, "read TOC")
	}
	return a.parseTOC(toc)
}

func (a *Archive) parseTOC(toc []byte) error {
	for pos := 0; pos < len(toc); {
		if pos+tocEntrySize > len(toc) {
			return errors.InvalidData(errors.PhaseArchive, "truncated TOC entry")
		}

		// Entry layout (big-endian): entry_length i32, offset u32,
		// length u32, uncompressed_length u32, compression_flag u8,
		// typecode u8, name padded with NULs.
		entryLength := int(int32(binary.BigEndian.Uint32(toc[pos : pos+4])))
		if entryLength < tocEntrySize || pos+entryLength > len(toc) {
			return errors.InvalidData(errors.PhaseArchive, "invalid TOC entry length")
		}

		e := Entry{
			Offset:             binary.BigEndian.Uint32(toc[pos+4 : pos+8]),
			Length:             binary.BigEndian.Uint32(toc[pos+8 : pos+12]),
			UncompressedLength: binary.BigEndian.Uint32(toc[pos+12 : pos+16]),
			Compressed:         toc[pos+16] != 0,
			TypeCode:           toc[pos+17],
			Name:               strings.TrimRight(string(toc[pos+tocEntrySize:pos+entryLength]), "\x00"),
		}
		a.Entries = append(a.Entries, e)
		pos += entryLength
	}
	return nil
}

// findCookie scans the file backwards in chunks for the cookie magic,
// returning the file offset of the last occurrence.
func findCookie(f *os.File) (int64, error) {
	const chunkSize = 8192

	info, err := f.Stat()
	if err != nil {
		return 0, errors.Wrap(errors.PhaseArchive, errors.KindInvalidData, err, "stat archive file")
	}
	size := info.Size()

	// Chunks overlap by the magic length so a pattern straddling a
	// chunk boundary is still found.
	buf := make([]byte, chunkSize+int64(len(cookieMagic)))
	for end := size; end > 0; end -= chunkSize {
		start := end - chunkSize
		if start < 0 {
			start = 0
		}
		n := end - start + int64(len(cookieMagic))
		if start+n > size {
			n = size - start
		}
		if _, err := f.ReadAt(buf[:n], start); err != nil && err != io.EOF {
			return 0, errors.Wrap(errors.PhaseArchive, errors.KindInvalidData, err, "scan for cookie")
		}
		if idx := bytes.LastIndex(buf[:n], cookieMagic); idx >= 0 {
			return start + int64(idx), nil
		}
		if start == 0 {
			break
		}
	}
	return 0, errors.NotFound(errors.PhaseArchive, "cookie magic pattern", string(cookieMagic[:3]))
}
