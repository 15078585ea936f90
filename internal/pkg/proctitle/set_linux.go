//go:build linux

package proctitle

import (
	"errors"
	"os"
	"strings"
	"unsafe"

	"golang.org/x/sys/unix"
)

// PR_SET_NAME silently truncates to 15 bytes plus the NUL.
const kernelCommLen = 16

// Set renames the process so the server and the watcher sidecar are
// distinguishable in ps output.
func Set(title string) error {
	name := strings.TrimSpace(title)
	if name == "" {
		return errors.New("empty process title")
	}

	if len(os.Args) > 0 {
		os.Args[0] = name
	}

	comm := make([]byte, kernelCommLen)
	copy(comm[:kernelCommLen-1], name)
	return unix.Prctl(unix.PR_SET_NAME, uintptr(unsafe.Pointer(&comm[0])), 0, 0, 0)
}
