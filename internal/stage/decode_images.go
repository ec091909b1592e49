package stage

import (
	"context"
	"errors"
	"time"

	"github.com/flarebyte/qr-ostraca/internal/config"
	"github.com/flarebyte/qr-ostraca/internal/decode"
)

const decodeImagesStage = "decode-images"

// NewDecoder builds the image decoder described by s, bounded by the
// configured per-file timeout.
func NewDecoder(s config.Settings) (decode.Decoder, error) {
	d, err := decode.NewImageDecoder(decode.Options{
		Formats:   s.Decode.Formats,
		TryHarder: s.Decode.TryHarder,
		CacheSize: s.Decode.CacheSize,
	})
	if err != nil {
		return nil, err
	}
	return decode.WithTimeout(d, time.Duration(s.Decode.TimeoutMs)*time.Millisecond), nil
}

type decodeRes struct {
	idx     int
	outcome decode.Outcome
}

// decodeImagesRunner decodes every record on a worker pool. Results are
// merged by record index after the pool drains, so record order is stable.
func decodeImagesRunner(ctx context.Context, in Envelope, deps Deps) (Envelope, error) {
	s := settingsOf(in)
	if s == nil {
		return Envelope{}, errNoSettings
	}
	dec := deps.Decoder
	if dec == nil {
		var err error
		if dec, err = NewDecoder(*s); err != nil {
			return Envelope{}, err
		}
	}

	n := len(in.Records)
	results := runIndexedParallel(n, getWorkers(in), func(idx int) decodeRes {
		o := dec.Decode(ctx, in.Records[idx].Path)
		if deps.Tick != nil {
			deps.Tick()
		}
		return decodeRes{idx: idx, outcome: o}
	})
	if err := ctx.Err(); err != nil {
		return Envelope{}, err
	}

	out := in
	out.Records = make([]Record, n)
	copy(out.Records, in.Records)
	for _, r := range results {
		rec := &out.Records[r.idx]
		rec.Decoded = r.outcome.Found()
		rec.Symbols = r.outcome.Symbols
		if r.outcome.Err != nil {
			rec.Reason = r.outcome.Err.Error()
		}
	}
	for _, rec := range out.Records {
		logOutcome(deps, rec)
	}
	return out, nil
}

func logOutcome(deps Deps, rec Record) {
	if rec.Decoded {
		for _, sym := range rec.Symbols {
			deps.Log.Debugf("Detected %s %q in file %s", sym.Type, sym.Code, rec.Path)
		}
		return
	}
	if rec.Reason != "" && rec.Reason != decode.ErrNoSymbol.Error() {
		deps.Log.Errorf("Error detecting code in %s: %s", rec.Path, rec.Reason)
	}
	deps.Log.Warnf("Detected NO code in file %s", rec.Path)
}

// outcomeOf rebuilds the decode outcome recorded on rec.
func outcomeOf(rec Record) decode.Outcome {
	if rec.Decoded {
		return decode.Outcome{Symbols: rec.Symbols}
	}
	var reason error
	if rec.Reason != "" {
		reason = errors.New(rec.Reason)
	}
	return decode.NotFound(reason)
}

func init() { Register(decodeImagesStage, decodeImagesRunner) }
