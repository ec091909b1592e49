package decode

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/flarebyte/qr-ostraca/internal/codeindex"
)

// ErrTimeout is the reason recorded when a file takes longer than the
// configured decode timeout.
var ErrTimeout = errors.New("decode timeout")

// ErrNoSymbol is the reason recorded when an image decoded fine but held no
// readable symbol.
var ErrNoSymbol = errors.New("no symbol found")

// Symbol is one decoded machine-readable code.
type Symbol struct {
	Code string `json:"code"`
	Type string `json:"type"`
}

// Outcome is the result of decoding one file: Found when Symbols is
// non-empty, NotFound otherwise. Err carries the reason for NotFound and is
// informational only; it never aborts a scan.
type Outcome struct {
	Symbols []Symbol
	Err     error
}

// Found reports whether at least one symbol was decoded.
func (o Outcome) Found() bool { return len(o.Symbols) > 0 }

// NotFound builds an outcome without symbols.
func NotFound(reason error) Outcome { return Outcome{Err: reason} }

// Items converts the outcome for path into index input: one item per symbol,
// or a single undetected item.
func (o Outcome) Items(path string) []codeindex.DecodedItem {
	if !o.Found() {
		return []codeindex.DecodedItem{codeindex.NotFound(path)}
	}
	out := make([]codeindex.DecodedItem, 0, len(o.Symbols))
	for _, s := range o.Symbols {
		out = append(out, codeindex.Found(path, s.Code, s.Type))
	}
	return out
}

// Decoder turns a file into an Outcome. Implementations must not panic on
// bad input and must map every failure to NotFound.
type Decoder interface {
	Decode(ctx context.Context, path string) Outcome
}

// Func adapts a function to Decoder.
type Func func(ctx context.Context, path string) Outcome

func (f Func) Decode(ctx context.Context, path string) Outcome { return f(ctx, path) }

// WithTimeout bounds each Decode call and turns decoder panics into
// NotFound. A timeout <= 0 only recovers panics. On timeout the inner call
// sees a cancelled context and its result is dropped; ImageDecoder stops at
// its next checkpoint, so at most one pending reader call per timed-out file
// outlives the deadline.
func WithTimeout(d Decoder, timeout time.Duration) Decoder {
	if timeout <= 0 {
		return Func(func(ctx context.Context, path string) Outcome {
			return safeDecode(ctx, d, path)
		})
	}
	return Func(func(ctx context.Context, path string) Outcome {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		done := make(chan Outcome, 1)
		go func() {
			done <- safeDecode(ctx, d, path)
		}()
		select {
		case o := <-done:
			return o
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return NotFound(ErrTimeout)
			}
			return NotFound(ctx.Err())
		}
	})
}

func safeDecode(ctx context.Context, d Decoder, path string) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = NotFound(fmt.Errorf("decoder panic: %v", r))
		}
	}()
	return d.Decode(ctx, path)
}
