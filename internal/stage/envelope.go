package stage

import (
	"time"

	"github.com/flarebyte/qr-ostraca/internal/codeindex"
	"github.com/flarebyte/qr-ostraca/internal/compare"
	"github.com/flarebyte/qr-ostraca/internal/config"
)

// Error is a non-fatal stage error kept on the envelope.
type Error struct {
	Stage   string `json:"stage"`
	Locator string `json:"locator,omitempty"`
	Message string `json:"message"`
}

// ReportMeta records what the output stages produced.
type ReportMeta struct {
	Path        string   `json:"path,omitempty"`
	SummaryPath string   `json:"summaryPath,omitempty"`
	Rows        int      `json:"rows"`
	Undetected  int      `json:"undetected"`
	Uploaded    []string `json:"uploaded,omitempty"`
}

// Meta holds run-wide state with deterministic JSON field order.
type Meta struct {
	RunID      string           `json:"runId,omitempty"`
	StartedAt  time.Time        `json:"startedAt"`
	ConfigPath string           `json:"configPath,omitempty"`
	Overrides  config.Overrides `json:"-"`
	Settings   *config.Settings `json:"settings,omitempty"`
	Index      *codeindex.Index `json:"-"`
	Result     compare.Result   `json:"result,omitempty"`
	Report     *ReportMeta      `json:"report,omitempty"`
}

// Envelope is the contract between stages: one record per scanned file,
// run metadata and accumulated non-fatal errors.
type Envelope struct {
	Records []Record `json:"records"`
	Meta    *Meta    `json:"meta,omitempty"`
	Errors  []Error  `json:"errors,omitempty"`
}

func settingsOf(in Envelope) *config.Settings {
	if in.Meta == nil {
		return nil
	}
	return in.Meta.Settings
}
