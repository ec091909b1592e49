package stage

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/flarebyte/qr-ostraca/internal/summary"
)

const writeSummaryStage = "write-summary"

// summaryOf collects the run totals for the summary file.
func summaryOf(in Envelope, finished time.Time) summary.Summary {
	m := in.Meta
	s := summary.Summary{
		RunID:      m.RunID,
		StartedAt:  m.StartedAt,
		FinishedAt: finished,
		SrcDirs:    m.Settings.SrcDirs,
		Errors:     len(in.Errors),
		Files:      len(in.Records),
		States:     map[string]int{},
	}
	if m.Report != nil {
		s.Report = filepath.Base(m.Report.Path)
	}
	if m.Index != nil {
		s.Codes = m.Index.Len()
		s.Undetected = len(m.Index.Undetected())
	}
	for state, n := range m.Result.Tally() {
		s.States[string(state)] = n
	}
	return s
}

func writeSummaryRunner(ctx context.Context, in Envelope, deps Deps) (Envelope, error) {
	s := settingsOf(in)
	if s == nil || in.Meta.Report == nil {
		return Envelope{}, errNoSettings
	}
	if !s.Report.Summary {
		return in, nil
	}
	path := filepath.Join(s.ReportDir, summary.FileName(filepath.Base(in.Meta.Report.Path)))
	if err := summary.Write(path, summaryOf(in, deps.now())); err != nil {
		return Envelope{}, fmt.Errorf("%s: %w", writeSummaryStage, err)
	}
	deps.Log.Infof("Summary written to %s", path)

	out := in
	out.Meta.Report.SummaryPath = path
	return out, nil
}

func init() { Register(writeSummaryStage, writeSummaryRunner) }
