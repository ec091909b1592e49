package compare

import (
	"context"

	"github.com/flarebyte/qr-ostraca/internal/stage"
)

// runStages executes the provided list of stage names in order.
func runStages(ctx context.Context, in stage.Envelope, stages []string, deps stage.Deps, progress *progressReporter) (stage.Envelope, error) {
	out := in
	var err error
	for _, name := range stages {
		out, err = progress.runStage(ctx, name, out, deps)
		if err != nil {
			return stage.Envelope{}, err
		}
	}
	return out, nil
}
