package stage

import (
	"context"
	"sort"
	"time"

	"github.com/flarebyte/qr-ostraca/internal/decode"
	"github.com/flarebyte/qr-ostraca/internal/logx"
	"github.com/flarebyte/qr-ostraca/internal/upload"
)

// Deps carries collaborators the stages use. Zero values are replaced with
// defaults built from the run settings.
type Deps struct {
	Log      *logx.Logger
	Decoder  decode.Decoder
	Uploader upload.Uploader
	Now      func() time.Time
	// Tick, when set, is called once per file as decoding completes.
	Tick func()
}

func (d Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// Runner executes a stage.
type Runner func(ctx context.Context, in Envelope, deps Deps) (Envelope, error)

var registry = map[string]Runner{}

// Register adds a stage runner.
func Register(name string, r Runner) {
	registry[name] = r
}

// Run executes a registered stage by name.
func Run(ctx context.Context, name string, in Envelope, deps Deps) (Envelope, error) {
	r, ok := registry[name]
	if !ok {
		return Envelope{}, ErrUnknown{name: name}
	}
	return r(ctx, in, deps)
}

// Names lists registered stages in lexical order.
func Names() []string {
	out := make([]string, 0, len(registry))
	for n := range registry {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// ErrUnknown is returned when a stage is not found.
type ErrUnknown struct{ name string }

func (e ErrUnknown) Error() string { return "unknown stage: " + e.name }

// ComparePipeline is the fixed stage order of `qrcmp compare`.
var ComparePipeline = []string{
	validateConfigStage,
	discoverImagesStage,
	luaFilterStage,
	decodeImagesStage,
	buildIndexStage,
	classifyCodesStage,
	writeReportStage,
	writeSummaryStage,
	uploadReportStage,
}
