//go:build windows

package preflight

import "golang.org/x/sys/windows"

func freeSpace(path string) (uint64, error) {
	statPath, err := resolveStatPath(path)
	if err != nil {
		return 0, err
	}
	ptr, err := windows.UTF16PtrFromString(statPath)
	if err != nil {
		return 0, err
	}
	var freeBytesAvailable, totalBytes, totalFreeBytes uint64
	if err := windows.GetDiskFreeSpaceEx(ptr, &freeBytesAvailable, &totalBytes, &totalFreeBytes); err != nil {
		return 0, err
	}
	return freeBytesAvailable, nil
}
