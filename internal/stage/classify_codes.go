package stage

import (
	"context"

	"github.com/flarebyte/qr-ostraca/internal/compare"
)

const classifyCodesStage = "classify-codes"

func classifyCodesRunner(ctx context.Context, in Envelope, deps Deps) (Envelope, error) {
	s := settingsOf(in)
	if s == nil || in.Meta.Index == nil {
		return Envelope{}, errNoSettings
	}
	res := compare.Classify(in.Meta.Index, s.SrcDirs)
	tally := res.Tally()
	deps.Log.Infof("%s: %d, %s: %d, %s: %d, %s: %d",
		compare.Matched, tally[compare.Matched],
		compare.Missing, tally[compare.Missing],
		compare.Duplicated, tally[compare.Duplicated],
		compare.Invalid, tally[compare.Invalid])

	out := in
	out.Meta.Result = res
	return out, nil
}

func init() { Register(classifyCodesStage, classifyCodesRunner) }
