package stage

import (
	"context"

	"github.com/flarebyte/qr-ostraca/internal/codeindex"
)

const buildIndexStage = "build-index"

func buildIndexRunner(ctx context.Context, in Envelope, deps Deps) (Envelope, error) {
	if in.Meta == nil {
		return Envelope{}, errNoSettings
	}
	var items []codeindex.DecodedItem
	for _, rec := range in.Records {
		items = append(items, outcomeOf(rec).Items(rec.Path)...)
	}
	ix := codeindex.Build(items)
	for _, code := range ix.TypeConflicts() {
		typ, _ := ix.CodeType(code)
		deps.Log.Warnf("Code %q was decoded with more than one type; keeping %s", code, typ)
	}
	deps.Log.Infof("Indexed %d codes from %d files (%d undetected)", ix.Len(), ix.FileCount(), len(ix.Undetected()))

	out := in
	out.Meta.Index = ix
	return out, nil
}

func init() { Register(buildIndexStage, buildIndexRunner) }
