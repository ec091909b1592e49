package stage

import (
	"strings"

	"github.com/flarebyte/qr-ostraca/internal/config"
)

func errorMode(in Envelope) string {
	if s := settingsOf(in); s != nil && s.ErrorsMode != "" {
		return s.ErrorsMode
	}
	return config.ErrorsModeKeepGoing
}

func keepGoing(in Envelope) bool {
	return errorMode(in) == config.ErrorsModeKeepGoing
}

func sanitizeErrorMessage(msg string) string {
	s := strings.Join(strings.Fields(msg), " ")
	if s == "" {
		return "error"
	}
	return s
}

func appendSanitizedErrors(out *Envelope, envErrs []Error) {
	if len(envErrs) == 0 {
		return
	}
	for _, e := range envErrs {
		e.Message = sanitizeErrorMessage(e.Message)
		out.Errors = append(out.Errors, e)
	}
	SortEnvelopeErrors(out)
}

func accumulateStageError(envErrs *[]Error, firstErr *error, envE *Error, fatal error) {
	if envE != nil {
		*envErrs = append(*envErrs, *envE)
	}
	if fatal != nil && *firstErr == nil {
		*firstErr = fatal
	}
}
