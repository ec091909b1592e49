package compare

import (
	"fmt"

	codecompare "github.com/flarebyte/qr-ostraca/internal/compare"
	"github.com/flarebyte/qr-ostraca/internal/stage"
)

const (
	exitCodeFatal    = 1
	exitCodeMismatch = 2
)

type compareExitError struct {
	code int
	msg  string
}

func (e compareExitError) Error() string { return e.msg }
func (e compareExitError) ExitCode() int { return e.code }

func failOnMismatch(env stage.Envelope) bool {
	return env.Meta != nil && env.Meta.Settings != nil && env.Meta.Settings.Report.FailOnMismatch
}

// mismatches counts codes that are not MATCHED and files without a code.
func mismatches(env stage.Envelope) (codes int, undetected int) {
	if env.Meta == nil {
		return 0, 0
	}
	if !env.Meta.Result.AllMatched() {
		for _, labels := range env.Meta.Result {
			if !labels.Has(codecompare.Matched) {
				codes++
			}
		}
	}
	if env.Meta.Index != nil {
		undetected = len(env.Meta.Index.Undetected())
	}
	return codes, undetected
}

func evaluateCompareExit(env stage.Envelope) error {
	if !failOnMismatch(env) {
		return nil
	}
	codes, undetected := mismatches(env)
	if codes == 0 && undetected == 0 {
		return nil
	}
	return compareExitError{
		code: exitCodeMismatch,
		msg:  fmt.Sprintf("mismatch: %d codes not matched, %d files undetected", codes, undetected),
	}
}
