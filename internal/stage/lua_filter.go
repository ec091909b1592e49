package stage

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	lua "github.com/yuin/gopher-lua"
)

const luaFilterStage = "lua-filter"

type luaFilterRes struct {
	idx   int
	keep  bool
	envE  *Error
	fatal error
}

// buildLuaPredicate returns the configured predicate, wrapping expressions
// without an explicit return. An empty string means no filter.
func buildLuaPredicate(in Envelope) string {
	s := settingsOf(in)
	if s == nil || strings.TrimSpace(s.Filter.Inline) == "" {
		return ""
	}
	code := s.Filter.Inline
	if !containsReturn(code) {
		return "return (" + code + ")"
	}
	return code
}

var returnKeyword = regexp.MustCompile(`\breturn\b`)

// containsReturn reports whether code uses the return keyword as a whole
// word; "returns" or "noreturn" do not count.
func containsReturn(code string) bool {
	return returnKeyword.MatchString(code)
}

func filterGlobals(rec Record) map[string]any {
	return map[string]any{
		"locator": rec.Locator,
		"dir":     rec.Dir,
		"path":    rec.Path,
		"ext":     strings.ToLower(filepath.Ext(rec.Path)),
		"size":    rec.Size,
	}
}

// processLuaFilterRecord evaluates pred for one record. In keep-going mode a
// failing script keeps the file and reports an envelope error.
func processLuaFilterRecord(rec Record, pred string, in Envelope) (keep bool, envE *Error, fatal error) {
	ret, violation, err := runLuaScriptWithSandbox(luaFilterStage, luaSandboxOf(in), rec.Locator, filterGlobals(rec), pred)
	msg := violation
	if err != nil {
		msg = err.Error()
	}
	if msg != "" {
		if keepGoing(in) {
			return true, &Error{Stage: luaFilterStage, Locator: displayLocator(rec), Message: msg}, nil
		}
		if err != nil {
			return false, nil, fmt.Errorf("%s: %s: %v", luaFilterStage, displayLocator(rec), err)
		}
		return false, nil, luaViolationFailFast(luaFilterStage, violation)
	}
	return lua.LVAsBool(ret), nil, nil
}

func luaFilterRunner(ctx context.Context, in Envelope, deps Deps) (Envelope, error) {
	pred := buildLuaPredicate(in)
	if pred == "" {
		return in, nil
	}

	n := len(in.Records)
	keeps := make([]bool, n)
	var envErrs []Error
	var firstErr error
	results := runIndexedParallel(n, getWorkers(in), func(idx int) luaFilterRes {
		keep, envE, fatal := processLuaFilterRecord(in.Records[idx], pred, in)
		return luaFilterRes{idx: idx, keep: keep, envE: envE, fatal: fatal}
	})
	for _, rr := range results {
		accumulateStageError(&envErrs, &firstErr, rr.envE, rr.fatal)
		keeps[rr.idx] = rr.keep
	}
	if firstErr != nil {
		return Envelope{}, firstErr
	}

	out := in
	out.Records = make([]Record, 0, n)
	for i, rec := range in.Records {
		if keeps[i] {
			out.Records = append(out.Records, rec)
		} else {
			deps.Log.Debugf("Filtered out %s", rec.Path)
		}
	}
	appendSanitizedErrors(&out, envErrs)
	deps.Log.Debugf("Lua filter kept %d of %d files", len(out.Records), n)
	return out, nil
}

func init() { Register(luaFilterStage, luaFilterRunner) }
