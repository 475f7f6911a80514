package models

import (
	"errors"
	"fmt"
)

// ErrorType classifies download failures
type ErrorType int

const (
	ErrUnknown ErrorType = iota
	ErrNetwork
	ErrTimeout
	ErrFileSystem
	ErrDiskSpace
	ErrCorruption
	ErrFFmpeg
	ErrParse
	ErrConfig
	ErrNotFound
)

var errorTypeNames = map[ErrorType]string{
	ErrUnknown:    "unknown",
	ErrNetwork:    "network",
	ErrTimeout:    "timeout",
	ErrFileSystem: "filesystem",
	ErrDiskSpace:  "disk_space",
	ErrCorruption: "corruption",
	ErrFFmpeg:     "ffmpeg",
	ErrParse:      "parse",
	ErrConfig:     "config",
	ErrNotFound:   "not_found",
}

func (t ErrorType) String() string {
	if name, ok := errorTypeNames[t]; ok {
		return name
	}
	return "unknown"
}

// DownloadError is a structured error carrying a user-facing hint
type DownloadError struct {
	Type      ErrorType
	Message   string
	UserGuide string
	Retryable bool
	Err       error
}

// NewDownloadError creates a new DownloadError
func NewDownloadError(errType ErrorType, message, guide string, retryable bool, err error) *DownloadError {
	return &DownloadError{
		Type:      errType,
		Message:   message,
		UserGuide: guide,
		Retryable: retryable,
		Err:       err,
	}
}

func (e *DownloadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DownloadError) Unwrap() error {
	return e.Err
}

// IsType reports whether err wraps a DownloadError of the given type
func IsType(err error, errType ErrorType) bool {
	var dlErr *DownloadError
	if errors.As(err, &dlErr) {
		return dlErr.Type == errType
	}
	return false
}

// NetworkError represents network-related errors
type NetworkError struct {
	URL     string
	Status  int
	Message string
}

func (e NetworkError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("network error: %s (HTTP %d)", e.Message, e.Status)
	}
	return fmt.Sprintf("network error: %s", e.Message)
}

// FileError represents file system errors
type FileError struct {
	Path    string
	Op      string
	Message string
}

func (e FileError) Error() string {
	return fmt.Sprintf("file error: %s on %s: %s", e.Op, e.Path, e.Message)
}

// ConfigError represents configuration errors
type ConfigError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e ConfigError) Error() string {
	return fmt.Sprintf("config error: %s (field: %s, value: %v)", e.Message, e.Field, e.Value)
}
