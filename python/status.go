package python

import (
	"fmt"
	"unsafe"
)

// Status type codes, mirroring the _PyStatus_TYPE enum.
const (
	statusOK    int32 = 0
	statusError int32 = 1
	statusExit  int32 = 2
)

// Status mirrors PyStatus, which the runtime returns by value. Its
// layout has remained unchanged across all supported releases.
type Status struct {
	Type     int32
	Func     *byte
	ErrMsg   *byte
	Exitcode int32
}

// Message renders the status for diagnostics.
func (s Status) Message() string {
	fn := gostring(s.Func)
	msg := gostring(s.ErrMsg)
	switch {
	case fn != "" && msg != "":
		return fmt.Sprintf("%s: %s", fn, msg)
	case msg != "":
		return msg
	case s.Type == statusExit:
		return fmt.Sprintf("exit requested with code %d", s.Exitcode)
	default:
		return "unknown status"
	}
}

// gostring copies a NUL-terminated C string.
func gostring(p *byte) string {
	if p == nil {
		return ""
	}
	var b []byte
	for ptr := unsafe.Pointer(p); *(*byte)(ptr) != 0; ptr = unsafe.Add(ptr, 1) {
		b = append(b, *(*byte)(ptr))
	}
	return string(b)
}
