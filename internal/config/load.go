package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/flarebyte/qr-ostraca/internal/logx"
)

// Overrides carries values given explicitly on the command line. A nil
// pointer (or nil slice) means the flag was not set.
type Overrides struct {
	SrcDirs        []string
	ReportDir      *string
	ReportPrefix   *string
	LogLevel       *string
	Workers        *int
	ErrorsMode     *string
	Exclude        []string
	Extensions     []string
	Gitignore      *bool
	TimeoutMs      *int
	FilterInline   *string
	SingleLabel    *bool
	Summary        *bool
	FailOnMismatch *bool
	Upload         *bool
	Progress       *bool
}

// Load merges defaults, the environment, an optional config file and CLI
// overrides (in increasing precedence), then normalises and validates the
// result. Every failure is a *Error.
func Load(path string, ov Overrides) (Settings, error) {
	s := Defaults()
	if lvl := strings.TrimSpace(os.Getenv(EnvLogLevel)); lvl != "" {
		s.LogLevel = lvl
	}
	if path != "" {
		fs, err := ParseFile(path, s)
		if err != nil {
			return Settings{}, &Error{Code: ErrCodeInvalid, Path: path, Err: err}
		}
		s = fs
	}
	ov.apply(&s)
	if err := s.Normalize(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

func (ov Overrides) apply(s *Settings) {
	if ov.SrcDirs != nil {
		s.SrcDirs = append([]string(nil), ov.SrcDirs...)
	}
	setString(&s.ReportDir, ov.ReportDir)
	setString(&s.ReportPrefix, ov.ReportPrefix)
	setString(&s.LogLevel, ov.LogLevel)
	setString(&s.ErrorsMode, ov.ErrorsMode)
	setString(&s.Filter.Inline, ov.FilterInline)
	if ov.Workers != nil {
		s.Workers = *ov.Workers
	}
	if ov.TimeoutMs != nil {
		s.Decode.TimeoutMs = *ov.TimeoutMs
	}
	if ov.Exclude != nil {
		s.Discovery.Exclude = append([]string(nil), ov.Exclude...)
	}
	if ov.Extensions != nil {
		s.Discovery.Extensions = append([]string(nil), ov.Extensions...)
	}
	setBool(&s.Discovery.Gitignore, ov.Gitignore)
	setBool(&s.Report.SingleLabel, ov.SingleLabel)
	setBool(&s.Report.Summary, ov.Summary)
	setBool(&s.Report.FailOnMismatch, ov.FailOnMismatch)
	setBool(&s.Upload.Enabled, ov.Upload)
	setBool(&s.UI.Progress, ov.Progress)
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

// Normalize makes directories absolute and clean, fills defaults for zero
// values and validates everything that can be checked before scanning.
func (s *Settings) Normalize() error {
	if len(s.SrcDirs) == 0 {
		return &Error{Code: ErrCodeNoSrcDir}
	}
	seen := map[string]struct{}{}
	for i, d := range s.SrcDirs {
		abs, err := filepath.Abs(d)
		if err != nil {
			return &Error{Code: ErrCodeSrcDirMissing, Path: d, Err: err}
		}
		if _, dup := seen[abs]; dup {
			return &Error{Code: ErrCodeDuplicateSrcDir, Path: abs}
		}
		seen[abs] = struct{}{}
		if !isDir(abs) {
			return &Error{Code: ErrCodeSrcDirMissing, Path: abs}
		}
		s.SrcDirs[i] = abs
	}

	if s.ReportDir == "" {
		s.ReportDir = "."
	}
	abs, err := filepath.Abs(s.ReportDir)
	if err != nil || !isDir(abs) {
		return &Error{Code: ErrCodeReportDirMissing, Path: abs}
	}
	s.ReportDir = abs

	lvl, err := logx.ParseLevel(s.LogLevel)
	if err != nil {
		return &Error{Code: ErrCodeInvalidLogLevel, Err: err}
	}
	s.LogLevel = lvl.String()

	switch s.ErrorsMode {
	case "":
		s.ErrorsMode = ErrorsModeKeepGoing
	case ErrorsModeKeepGoing, ErrorsModeFailFast:
	default:
		return &Error{Code: ErrCodeInvalidErrorMode, Err: fmt.Errorf("invalid errors mode: %q (expected %s or %s)", s.ErrorsMode, ErrorsModeKeepGoing, ErrorsModeFailFast)}
	}

	if s.ReportPrefix == "" {
		return invalid("reportPrefix must not be empty")
	}
	if strings.ContainsAny(s.ReportPrefix, `/\`) {
		return invalid("reportPrefix must not contain path separators: %q", s.ReportPrefix)
	}
	if s.Workers < 1 {
		s.Workers = 1
	}
	if s.Decode.TimeoutMs < 0 {
		return invalid("decode.timeoutMs must be >= 0, got %d", s.Decode.TimeoutMs)
	}
	if s.UI.ProgressIntervalMs <= 0 {
		s.UI.ProgressIntervalMs = DefaultUIProgressIntervalMs
	}
	for i, e := range s.Discovery.Extensions {
		e = strings.ToLower(strings.TrimSpace(e))
		if e != "" && !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		s.Discovery.Extensions[i] = e
	}
	return nil
}

func isDir(p string) bool {
	st, err := os.Stat(p)
	return err == nil && st.IsDir()
}
