package compare

import (
	"testing"

	"github.com/flarebyte/qr-ostraca/internal/codeindex"
	codecompare "github.com/flarebyte/qr-ostraca/internal/compare"
	"github.com/flarebyte/qr-ostraca/internal/config"
	"github.com/flarebyte/qr-ostraca/internal/stage"
)

func envFor(failOnMismatch bool, items ...codeindex.DecodedItem) stage.Envelope {
	s := config.Defaults()
	s.SrcDirs = []string{"/a", "/b"}
	s.Report.FailOnMismatch = failOnMismatch
	ix := codeindex.Build(items)
	return stage.Envelope{Meta: &stage.Meta{
		Settings: &s,
		Index:    ix,
		Result:   codecompare.Classify(ix, s.SrcDirs),
	}}
}

func assertExitError(t *testing.T, err error, wantMsg string, wantCode int) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error")
	}
	if err.Error() != wantMsg {
		t.Fatalf("unexpected error: %v", err)
	}
	ec, ok := err.(interface{ ExitCode() int })
	if !ok || ec.ExitCode() != wantCode {
		t.Fatalf("unexpected exit code")
	}
}

func TestEvaluateCompareExit_AllMatched(t *testing.T) {
	env := envFor(true, codeindex.Found("/a/1.png", "X", "QR_CODE"), codeindex.Found("/b/1.png", "X", "QR_CODE"))
	if err := evaluateCompareExit(env); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestEvaluateCompareExit_MismatchIgnoredByDefault(t *testing.T) {
	env := envFor(false, codeindex.Found("/a/1.png", "X", "QR_CODE"), codeindex.NotFound("/b/2.png"))
	if err := evaluateCompareExit(env); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestEvaluateCompareExit_MissingCode(t *testing.T) {
	env := envFor(true, codeindex.Found("/a/1.png", "X", "QR_CODE"))
	assertExitError(t, evaluateCompareExit(env), "mismatch: 1 codes not matched, 0 files undetected", exitCodeMismatch)
}

func TestEvaluateCompareExit_UndetectedFile(t *testing.T) {
	env := envFor(true,
		codeindex.Found("/a/1.png", "X", "QR_CODE"),
		codeindex.Found("/b/1.png", "X", "QR_CODE"),
		codeindex.NotFound("/b/2.png"),
	)
	assertExitError(t, evaluateCompareExit(env), "mismatch: 0 codes not matched, 1 files undetected", exitCodeMismatch)
}

func TestMismatches_CountsOnlyUnmatchedCodes(t *testing.T) {
	env := envFor(true,
		codeindex.Found("/a/1.png", "X", "QR_CODE"),
		codeindex.Found("/b/1.png", "X", "QR_CODE"),
		codeindex.Found("/a/2.png", "Y", "QR_CODE"),
		codeindex.NotFound("/a/3.png"),
	)
	codes, undetected := mismatches(env)
	if codes != 1 || undetected != 1 {
		t.Fatalf("got codes=%d undetected=%d", codes, undetected)
	}
}

func TestMismatches_NoIndex(t *testing.T) {
	s := config.Defaults()
	s.Report.FailOnMismatch = true
	env := stage.Envelope{Meta: &stage.Meta{Settings: &s}}
	if codes, undetected := mismatches(env); codes != 0 || undetected != 0 {
		t.Fatalf("got codes=%d undetected=%d", codes, undetected)
	}
	if err := evaluateCompareExit(env); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
