package stage

import (
	"context"

	"github.com/flarebyte/qr-ostraca/internal/config"
	"github.com/google/uuid"
)

const validateConfigStage = "validate-config"

// validateConfigRunner loads the config file named in Meta.ConfigPath, applies
// Meta.Overrides and stores the validated settings. It also stamps the run id
// and start time when the caller left them empty.
func validateConfigRunner(ctx context.Context, in Envelope, deps Deps) (Envelope, error) {
	meta := &Meta{}
	if in.Meta != nil {
		m := *in.Meta
		meta = &m
	}
	s, err := config.Load(meta.ConfigPath, meta.Overrides)
	if err != nil {
		return Envelope{}, err
	}
	meta.Settings = &s
	if meta.RunID == "" {
		meta.RunID = uuid.NewString()
	}
	if meta.StartedAt.IsZero() {
		meta.StartedAt = deps.now()
	}

	out := in
	out.Meta = meta
	out.Records = nil
	return out, nil
}

func init() { Register(validateConfigStage, validateConfigRunner) }
