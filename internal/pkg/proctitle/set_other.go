//go:build !linux

package proctitle

import (
	"os"
	"strings"
)

// Set rewrites os.Args[0] only; there is no portable syscall for this.
func Set(title string) error {
	name := strings.TrimSpace(title)
	if name == "" {
		return nil
	}
	if len(os.Args) > 0 {
		os.Args[0] = name
	}
	return nil
}
