// internal/utils/paths.go

package utils

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// ExpandUser replaces a leading "~" with the current user's home
// directory, mirroring shell tilde expansion for paths taken from flags.
func ExpandUser(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") || strings.HasPrefix(path, `~\`) {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		if path == "~" {
			return home
		}
		return filepath.Join(home, path[2:])
	}
	return path
}

// ToRemotePath converts a local path to the forward-slash form expected
// on the remote side.
func ToRemotePath(path string) string {
	if runtime.GOOS == "windows" {
		return strings.ReplaceAll(path, "\\", "/")
	}
	return path
}

func IsFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func IsDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// EnsureDir creates path (and parents) when it does not exist yet.
func EnsureDir(path string) error {
	if IsDir(path) {
		return nil
	}
	return os.MkdirAll(path, 0755)
}
