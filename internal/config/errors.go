package config

import (
	"errors"
	"fmt"
)

// Error codes carried by *Error.
const (
	ErrCodeInvalid          = "config_invalid"
	ErrCodeNoSrcDir         = "no_src_dir"
	ErrCodeDuplicateSrcDir  = "duplicate_src_dir"
	ErrCodeSrcDirMissing    = "src_dir_missing"
	ErrCodeReportDirMissing = "report_dir_missing"
	ErrCodeInvalidLogLevel  = "invalid_log_level"
	ErrCodeInvalidErrorMode = "invalid_errors_mode"
)

// Error is a configuration failure. It is always fatal and reported before
// any scanning starts.
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch e.Code {
	case ErrCodeNoSrcDir:
		return "at least one source directory is required (--src-dir)"
	case ErrCodeDuplicateSrcDir:
		return fmt.Sprintf("source directory given more than once: %s", e.Path)
	case ErrCodeSrcDirMissing:
		return fmt.Sprintf("source directory does not exist: %s", e.Path)
	case ErrCodeReportDirMissing:
		return fmt.Sprintf("report directory does not exist: %s", e.Path)
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Code
}

func (e *Error) Unwrap() error { return e.Err }

// Code extracts the error code, or "" when err is not a *Error.
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

func invalid(format string, args ...any) error {
	return &Error{Code: ErrCodeInvalid, Err: fmt.Errorf(format, args...)}
}
