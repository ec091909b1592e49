package compare

import (
	"context"
	"strings"

	"github.com/flarebyte/qr-ostraca/internal/config"
	"github.com/flarebyte/qr-ostraca/internal/logx"
	"github.com/flarebyte/qr-ostraca/internal/stage"
	"github.com/spf13/cobra"
)

type flags struct {
	configPath     string
	srcDirs        []string
	reportDir      string
	reportPrefix   string
	logLevel       string
	workers        int
	timeoutMs      int
	exclude        []string
	gitignore      bool
	extensions     []string
	filter         string
	singleLabel    bool
	summary        bool
	upload         bool
	failOnMismatch bool
	progress       bool
	errorsMode     string
}

// NewCmd builds the `qrcmp compare` command.
func NewCmd() *cobra.Command {
	f := &flags{}
	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Compare decoded codes across source directories and write a CSV report",
		Example: "  qrcmp compare --src-dir scans/original --src-dir scans/export --report-dir reports\n" +
			"  qrcmp compare --config qrcmp.cue --summary --fail-on-mismatch",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, f)
		},
	}
	fs := cmd.Flags()
	fs.StringVarP(&f.configPath, "config", "c", "", "Path to config file (.cue)")
	fs.StringArrayVar(&f.srcDirs, "src-dir", nil, "Source directory to scan (repeatable, order sets report columns)")
	fs.StringVar(&f.reportDir, "report-dir", ".", "Directory the CSV report is written to")
	fs.StringVar(&f.reportPrefix, "report-prefix", "", "Report file name prefix (default qr_comparison)")
	fs.StringVar(&f.logLevel, "log-level", config.DefaultLogLevel, "Log level: "+strings.Join(logx.LevelNames(), ", "))
	fs.IntVar(&f.workers, "workers", 0, "Decode workers (default number of CPUs)")
	fs.IntVar(&f.timeoutMs, "timeout-ms", config.DefaultDecodeTimeoutMs, "Per-file decode timeout in milliseconds, 0 disables")
	fs.StringArrayVar(&f.exclude, "exclude", nil, "Gitignore-style pattern of files to skip (repeatable)")
	fs.BoolVar(&f.gitignore, "gitignore", false, "Honour .gitignore files under source directories")
	fs.StringSliceVar(&f.extensions, "ext", nil, "Only scan files with these extensions (e.g. png,jpg)")
	fs.StringVar(&f.filter, "filter", "", "Lua predicate selecting files (globals: locator, dir, path, ext, size)")
	fs.BoolVar(&f.singleLabel, "single-label", false, "Write one label per code instead of the full label set")
	fs.BoolVar(&f.summary, "summary", false, "Write a YAML run summary next to the report")
	fs.BoolVar(&f.upload, "upload", false, "Upload the report to the configured S3 bucket")
	fs.BoolVar(&f.failOnMismatch, "fail-on-mismatch", false, "Exit with code 2 unless every code is MATCHED and every file decoded")
	fs.BoolVar(&f.progress, "progress", false, "Print progress lines to stderr")
	fs.StringVar(&f.errorsMode, "errors", config.ErrorsModeKeepGoing, "Error mode: keep-going or fail-fast")
	return cmd
}

// overrides keeps only flags given explicitly, so config file values survive
// flag defaults.
func overrides(cmd *cobra.Command, f *flags) config.Overrides {
	fs := cmd.Flags()
	var ov config.Overrides
	if fs.Changed("src-dir") {
		ov.SrcDirs = f.srcDirs
	}
	if fs.Changed("exclude") {
		ov.Exclude = f.exclude
	}
	if fs.Changed("ext") {
		ov.Extensions = f.extensions
	}
	strFlags := []struct {
		name string
		dst  **string
		v    *string
	}{
		{"report-dir", &ov.ReportDir, &f.reportDir},
		{"report-prefix", &ov.ReportPrefix, &f.reportPrefix},
		{"log-level", &ov.LogLevel, &f.logLevel},
		{"filter", &ov.FilterInline, &f.filter},
		{"errors", &ov.ErrorsMode, &f.errorsMode},
	}
	for _, s := range strFlags {
		if fs.Changed(s.name) {
			*s.dst = s.v
		}
	}
	boolFlags := []struct {
		name string
		dst  **bool
		v    *bool
	}{
		{"gitignore", &ov.Gitignore, &f.gitignore},
		{"single-label", &ov.SingleLabel, &f.singleLabel},
		{"summary", &ov.Summary, &f.summary},
		{"upload", &ov.Upload, &f.upload},
		{"fail-on-mismatch", &ov.FailOnMismatch, &f.failOnMismatch},
		{"progress", &ov.Progress, &f.progress},
	}
	for _, b := range boolFlags {
		if fs.Changed(b.name) {
			*b.dst = b.v
		}
	}
	if fs.Changed("workers") {
		ov.Workers = &f.workers
	}
	if fs.Changed("timeout-ms") {
		ov.TimeoutMs = &f.timeoutMs
	}
	return ov
}

func run(cmd *cobra.Command, f *flags) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	stderr := cmd.ErrOrStderr()

	in := stage.Envelope{Meta: &stage.Meta{ConfigPath: f.configPath, Overrides: overrides(cmd, f)}}
	env, err := stage.Run(ctx, stage.ComparePipeline[0], in, stage.Deps{})
	if err != nil {
		return compareExitError{code: exitCodeFatal, msg: err.Error()}
	}
	s := env.Meta.Settings
	lvl, _ := logx.ParseLevel(s.LogLevel)
	log := logx.New(stderr, lvl)
	log.Debugf("Run %s with %d source directories", env.Meta.RunID, len(s.SrcDirs))

	progress := newProgressReporter(s, stderr)
	deps := stage.Deps{Log: log, Tick: progress.tick}
	env, err = runStages(ctx, env, stage.ComparePipeline[1:], deps, progress)
	if err != nil {
		log.Criticalf("%v", err)
		return compareExitError{code: exitCodeFatal, msg: err.Error()}
	}
	if n := len(env.Errors); n > 0 {
		log.Warnf("Completed with %d errors", n)
	}
	return evaluateCompareExit(env)
}
