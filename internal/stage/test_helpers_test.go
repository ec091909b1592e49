package stage

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/flarebyte/qr-ostraca/internal/config"
	"github.com/flarebyte/qr-ostraca/internal/decode"
)

// fakeDecoder reads "CODE:<value>" lines from a file; anything else is
// undetected.
var fakeDecoder = decode.Func(func(ctx context.Context, path string) decode.Outcome {
	b, err := os.ReadFile(path)
	if err != nil {
		return decode.NotFound(err)
	}
	var syms []decode.Symbol
	for _, line := range strings.Split(string(b), "\n") {
		if v, ok := strings.CutPrefix(line, "CODE:"); ok {
			syms = append(syms, decode.Symbol{Code: v, Type: decode.FormatQRCode})
		}
	}
	if len(syms) == 0 {
		return decode.NotFound(decode.ErrNoSymbol)
	}
	return decode.Outcome{Symbols: syms}
})

var fixedNow = time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

func testDeps() Deps {
	return Deps{Decoder: fakeDecoder, Now: func() time.Time { return fixedNow }}
}

func testSettings(dirs ...string) *config.Settings {
	s := config.Defaults()
	s.SrcDirs = dirs
	s.Workers = 4
	return &s
}

func envWith(s *config.Settings, recs ...Record) Envelope {
	return Envelope{Records: recs, Meta: &Meta{Settings: s}}
}

func mustRead(t *testing.T, p string) []byte {
	t.Helper()
	b, err := os.ReadFile(p)
	if err != nil {
		t.Fatalf("read %s: %v", p, err)
	}
	return b
}
