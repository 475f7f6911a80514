package fsutil

import (
	"bufio"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// Cross-platform file permission constants
const (
	// Windows ignores execute permissions, so we use different values
	DefaultFilePermsWindows = 0666
	DefaultDirPermsWindows  = 0777
	DefaultFilePermsUnix    = 0644
	DefaultDirPermsUnix     = 0755
)

// IsWindows returns true if running on Windows
func IsWindows() bool {
	return runtime.GOOS == "windows"
}

// GetFileMode returns appropriate file permissions for the current platform
func GetFileMode() os.FileMode {
	if IsWindows() {
		return DefaultFilePermsWindows
	}
	return DefaultFilePermsUnix
}

// GetDirMode returns appropriate directory permissions for the current platform
func GetDirMode() os.FileMode {
	if IsWindows() {
		return DefaultDirPermsWindows
	}
	return DefaultDirPermsUnix
}

// PathsEqual performs case-insensitive path comparison on Windows
func PathsEqual(path1, path2 string) bool {
	if IsWindows() {
		return strings.EqualFold(path1, path2)
	}
	return path1 == path2
}

// SafeJoin performs path joining with normalization
func SafeJoin(elem ...string) string {
	return filepath.Clean(filepath.Join(elem...))
}

// MakeDirs creates directories with cross-platform permissions
func MakeDirs(path string) error {
	return os.MkdirAll(path, GetDirMode())
}

// OpenFile opens a file with cross-platform permissions
func OpenFile(name string, flag int, perm os.FileMode) (*os.File, error) {
	if perm == 0 {
		perm = GetFileMode()
	}
	return os.OpenFile(name, flag, perm)
}

// ReadFile opens a file for reading with appropriate permissions
func ReadFile(name string) (*os.File, error) {
	return OpenFile(name, os.O_RDONLY, 0)
}

// WriteFile opens a file for writing with appropriate permissions
func WriteFile(name string) (*os.File, error) {
	return OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0)
}

// AppendFile opens a file for appending with appropriate permissions
func AppendFile(name string) (*os.File, error) {
	return OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0)
}

// ReadTxtFile returns the trimmed, non-blank lines of a text file
func ReadTxtFile(path string) ([]string, error) {
	f, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

// FileExists checks if a regular file exists
func FileExists(path string) (bool, error) {
	f, err := os.Stat(path)
	if err == nil {
		return !f.IsDir(), nil
	} else if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// RemoveSubdirs deletes every directory directly under root, leaving files alone.
// A missing root is not an error.
func RemoveSubdirs(root string) error {
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var lastErr error
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if err := os.RemoveAll(filepath.Join(root, entry.Name())); err != nil {
			lastErr = err
		}
	}
	return lastErr
}
