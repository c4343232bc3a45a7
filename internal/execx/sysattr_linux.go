//go:build linux

package execx

import (
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

// sysProcAttr pins the child to the current uid/gid and ties its lifetime to
// this process, so no subprocess outlives or outprivileges the service.
func sysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{
		Pdeathsig: unix.SIGKILL,
		Credential: &syscall.Credential{
			Uid:         uint32(os.Getuid()),
			Gid:         uint32(os.Getgid()),
			NoSetGroups: true,
		},
	}
}
