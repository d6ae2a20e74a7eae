//go:build unix

//
// SPDX-License-Identifier: GPL-3.0-or-later
//

package platformerr

import (
	"syscall"

	"golang.org/x/sys/unix"
)

const (
	errPermissionDenied           = syscall.Errno(unix.EPERM)
	errInterfaceEnumerationFailed = syscall.Errno(unix.ENOBUFS)
)
