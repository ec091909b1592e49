package config

import (
	"runtime"
	"strings"

	"github.com/flarebyte/qr-ostraca/internal/report"
)

const (
	ErrorsModeKeepGoing = "keep-going"
	ErrorsModeFailFast  = "fail-fast"
)

const (
	DefaultLogLevel             = "INFO"
	DefaultDecodeTimeoutMs      = 30000
	DefaultLuaTimeoutMs         = 2000
	DefaultLuaInstructionLimit  = 1000000
	DefaultLuaMemoryLimitBytes  = 8388608
	DefaultUIProgressIntervalMs = 500
)

// EnvLogLevel, when set, replaces the built-in log level default.
const EnvLogLevel = "QRCMP_LOG_LEVEL"

// Settings is the fully merged configuration of a comparison run.
type Settings struct {
	ConfigVersion string
	SrcDirs       []string
	ReportDir     string
	ReportPrefix  string
	LogLevel      string
	Workers       int
	ErrorsMode    string
	Discovery     Discovery
	Decode        Decode
	Filter        Filter
	LuaSandbox    LuaSandbox
	Report        Report
	Upload        Upload
	UI            UI
}

// Discovery controls which files under the source directories are scanned.
type Discovery struct {
	Exclude        []string
	Gitignore      bool
	Extensions     []string
	FollowSymlinks bool
}

// Decode configures the image decoder.
type Decode struct {
	TimeoutMs int
	CacheSize int
	Formats   []string
	TryHarder bool
}

// Filter holds the optional Lua file predicate.
type Filter struct {
	Inline string
}

// LuaSandbox bounds the Lua filter.
type LuaSandbox struct {
	TimeoutMs        int
	InstructionLimit int
	MemoryLimitBytes int
}

// Report selects report outputs and exit behaviour.
type Report struct {
	SingleLabel    bool
	Summary        bool
	FailOnMismatch bool
}

// Upload configures publishing reports to object storage.
type Upload struct {
	Enabled bool
	Prefix  string
}

// UI configures progress output.
type UI struct {
	Progress           bool
	ProgressIntervalMs int
}

// Defaults returns the built-in settings.
func Defaults() Settings {
	return Settings{
		ConfigVersion: CurrentConfigVersion,
		ReportDir:     ".",
		ReportPrefix:  report.DefaultPrefix,
		LogLevel:      DefaultLogLevel,
		Workers:       runtime.NumCPU(),
		ErrorsMode:    ErrorsModeKeepGoing,
		Decode: Decode{
			TimeoutMs: DefaultDecodeTimeoutMs,
			TryHarder: true,
		},
		LuaSandbox: LuaSandbox{
			TimeoutMs:        DefaultLuaTimeoutMs,
			InstructionLimit: DefaultLuaInstructionLimit,
			MemoryLimitBytes: DefaultLuaMemoryLimitBytes,
		},
		UI: UI{ProgressIntervalMs: DefaultUIProgressIntervalMs},
	}
}

// CurrentConfigVersion is the only configVersion accepted in config files.
const CurrentConfigVersion = "1"

// SupportedConfigVersions lists accepted configVersion values.
var SupportedConfigVersions = []string{CurrentConfigVersion}

func IsSupportedConfigVersion(v string) bool {
	for _, s := range SupportedConfigVersions {
		if v == s {
			return true
		}
	}
	return false
}

func SupportedConfigVersionsCSV() string {
	return strings.Join(SupportedConfigVersions, ", ")
}
