//go:build !windows

package preflight

import "golang.org/x/sys/unix"

func freeSpace(path string) (uint64, error) {
	statPath, err := resolveStatPath(path)
	if err != nil {
		return 0, err
	}
	var stat unix.Statfs_t
	if err := unix.Statfs(statPath, &stat); err != nil {
		return 0, err
	}
	return uint64(stat.Bavail) * uint64(stat.Bsize), nil
}
