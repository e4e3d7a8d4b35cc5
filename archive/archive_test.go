package archive

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zlib"
)

// testEntry describes an entry for buildArchive.
type testEntry struct {
	name     string
	typeCode byte
	data     []byte
	compress bool
}

// buildArchive writes a synthetic PKG with the given prefix (simulating
// the host executable) and entries, and returns the file path.
func buildArchive(t *testing.T, prefix []byte, version int, libname string, entries []testEntry) string {
	t.Helper()

	var pkg bytes.Buffer

	type placed struct {
		testEntry
		offset, length, uncompressed uint32
	}
	var toc []placed

	for _, e := range entries {
		blob := e.data
		if e.compress {
			var zbuf bytes.Buffer
			zw := zlib.NewWriter(&zbuf)
			if _, err := zw.Write(e.data); err != nil {
				t.Fatalf("compress: %v", err)
			}
			zw.Close()
			blob = zbuf.Bytes()
		}
		toc = append(toc, placed{
			testEntry:    e,
			offset:       uint32(pkg.Len()),
			length:       uint32(len(blob)),
			uncompressed: uint32(len(e.data)),
		})
		pkg.Write(blob)
	}

	tocOffset := uint32(pkg.Len())
	for _, e := range toc {
		name := []byte(e.name)
		nameLen := (len(name)/16 + 1) * 16 // NUL-padded to multiple of 16
		entryLen := tocEntrySize + nameLen

		binary.Write(&pkg, binary.BigEndian, int32(entryLen))
		binary.Write(&pkg, binary.BigEndian, e.offset)
		binary.Write(&pkg, binary.BigEndian, e.length)
		binary.Write(&pkg, binary.BigEndian, e.uncompressed)
		var flag byte
		if e.compress {
			flag = 1
		}
		pkg.WriteByte(flag)
		pkg.WriteByte(e.typeCode)
		pkg.Write(name)
		pkg.Write(make([]byte, nameLen-len(name)))
	}
	tocLength := uint32(pkg.Len()) - tocOffset

	// Cookie
	pkgLength := uint32(pkg.Len()) + cookieSize
	pkg.Write(cookieMagic)
	binary.Write(&pkg, binary.BigEndian, pkgLength)
	binary.Write(&pkg, binary.BigEndian, tocOffset)
	binary.Write(&pkg, binary.BigEndian, tocLength)
	binary.Write(&pkg, binary.BigEndian, int32(version))
	lib := make([]byte, libnameSize)
	copy(lib, libname)
	pkg.Write(lib)

	path := filepath.Join(t.TempDir(), "app")
	if err := os.WriteFile(path, append(prefix, pkg.Bytes()...), 0o755); err != nil {
		t.Fatalf("write archive: %v", err)
	}
	return path
}

func TestOpen_Metadata(t *testing.T) {
	prefix := bytes.Repeat([]byte{0x7f, 'E', 'L', 'F'}, 3000)
	path := buildArchive(t, prefix, 311, "libpython3.11.so.1.0", []testEntry{
		{name: "pyimod01_archive", typeCode: TypeModule, data: []byte("marshalled"), compress: true},
	})

	a, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer a.Close()

	if a.PythonVersion != 311 {
		t.Errorf("version = %d, want 311", a.PythonVersion)
	}
	if a.PythonLibName != "libpython3.11.so.1.0" {
		t.Errorf("libname = %q", a.PythonLibName)
	}
	if a.PkgOffset != uint64(len(prefix)) {
		t.Errorf("pkg offset = %d, want %d", a.PkgOffset, len(prefix))
	}
}

func TestOpen_PreservesEntryOrder(t *testing.T) {
	entries := []testEntry{
		{name: "pyimod01_archive", typeCode: TypeModule, data: []byte("one")},
		{name: "pyimod02_importers", typeCode: TypeModule, data: []byte("two")},
		{name: "mypkg", typeCode: TypePackage, data: []byte("three")},
		{name: "PYZ-00.pyz", typeCode: TypePYZ, data: []byte("zzz")},
	}
	path := buildArchive(t, nil, 312, "libpython3.12.so", entries)

	a, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer a.Close()

	if len(a.Entries) != len(entries) {
		t.Fatalf("entry count = %d, want %d", len(a.Entries), len(entries))
	}
	for i, want := range entries {
		if a.Entries[i].Name != want.name {
			t.Errorf("entry %d name = %q, want %q", i, a.Entries[i].Name, want.name)
		}
		if a.Entries[i].TypeCode != want.typeCode {
			t.Errorf("entry %d typecode = %q, want %q", i, a.Entries[i].TypeCode, want.typeCode)
		}
	}
}

func TestExtract_Compressed(t *testing.T) {
	payload := bytes.Repeat([]byte("frozen module data "), 100)
	path := buildArchive(t, nil, 311, "libpython3.11.so", []testEntry{
		{name: "pyimod01_archive", typeCode: TypeModule, data: payload, compress: true},
		{name: "raw", typeCode: TypeData, data: []byte("uncompressed"), compress: false},
	})

	a, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer a.Close()

	got, err := a.Extract(&a.Entries[0])
	if err != nil {
		t.Fatalf("extract compressed: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Error("compressed entry round-trip mismatch")
	}

	got, err = a.Extract(&a.Entries[1])
	if err != nil {
		t.Fatalf("extract raw: %v", err)
	}
	if string(got) != "uncompressed" {
		t.Errorf("raw entry = %q", got)
	}
}

func TestFind(t *testing.T) {
	path := buildArchive(t, nil, 311, "libpython3.11.so", []testEntry{
		{name: "pyi-verbose", typeCode: TypeRuntimeOption, data: nil},
		{name: "mypkg", typeCode: TypePackage, data: []byte("x")},
	})

	a, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer a.Close()

	if e := a.Find("mypkg"); e == nil || e.TypeCode != TypePackage {
		t.Error("expected to find mypkg package entry")
	}
	if e := a.Find("missing"); e != nil {
		t.Error("unexpected hit for missing entry")
	}
}

func TestOpen_NoCookie(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain")
	if err := os.WriteFile(path, bytes.Repeat([]byte("not an archive "), 1024), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(path); err == nil {
		t.Fatal("expected open of cookie-less file to fail")
	}
}

func TestExtractToFile(t *testing.T) {
	path := buildArchive(t, nil, 311, "libpython3.11.so", []testEntry{
		{name: "libtcl8.6.so", typeCode: TypeBinary, data: []byte("tcl bits"), compress: true},
	})

	a, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer a.Close()

	out := filepath.Join(t.TempDir(), "libtcl8.6.so")
	if err := a.ExtractToFile(&a.Entries[0], out); err != nil {
		t.Fatalf("extract to file: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "tcl bits" {
		t.Errorf("extracted file = %q", data)
	}
}
