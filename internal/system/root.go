package system

import (
	"errors"
	"os"
)

// ErrNotRoot is returned when a provisioner is started without root privileges.
var ErrNotRoot = errors.New("this program must be run as root")

// Geteuid is the effective-uid source used by the binaries.
var Geteuid = os.Geteuid

// RequireRoot fails unless euid reports uid 0.
func RequireRoot(euid func() int) error {
	if euid == nil {
		euid = Geteuid
	}
	if euid() != 0 {
		return ErrNotRoot
	}
	return nil
}
