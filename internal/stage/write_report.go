package stage

import (
	"context"
	"fmt"

	"github.com/flarebyte/qr-ostraca/internal/report"
)

const writeReportStage = "write-report"

func writeReportRunner(ctx context.Context, in Envelope, deps Deps) (Envelope, error) {
	s := settingsOf(in)
	if s == nil || in.Meta.Index == nil {
		return Envelope{}, errNoSettings
	}
	table := report.Build(in.Meta.Index, in.Meta.Result, s.SrcDirs, report.Options{SingleLabel: s.Report.SingleLabel})
	name := report.FileName(s.ReportPrefix, deps.now())
	path, err := report.WriteFile(s.ReportDir, name, table)
	if err != nil {
		return Envelope{}, fmt.Errorf("%s: %w", writeReportStage, err)
	}
	undetected := 0
	for _, r := range table.Rows {
		if r.Undetected() {
			undetected++
		}
	}
	deps.Log.Infof("Report written to %s (%d rows, %d undetected)", path, len(table.Rows), undetected)

	out := in
	out.Meta.Report = &ReportMeta{Path: path, Rows: len(table.Rows), Undetected: undetected}
	return out, nil
}

func init() { Register(writeReportStage, writeReportRunner) }
