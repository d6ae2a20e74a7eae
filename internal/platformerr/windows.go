//go:build windows

//
// SPDX-License-Identifier: GPL-3.0-or-later
//

package platformerr

import (
	"syscall"

	"golang.org/x/sys/windows"
)

const (
	errPermissionDenied           = syscall.Errno(windows.ERROR_ACCESS_DENIED)
	errInterfaceEnumerationFailed = syscall.Errno(windows.ERROR_NOT_ENOUGH_MEMORY)
)
