package compare

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/flarebyte/qr-ostraca/internal/codeindex"
)

// State is one classification label for a code.
type State string

const (
	Matched    State = "MATCHED"
	Missing    State = "MISSING"
	Duplicated State = "DUPLICATED"
	Invalid    State = "INVALID"
)

// Labels is the ordered label set of a code: exactly {MATCHED}, a non-empty
// subset of {MISSING, DUPLICATED} in that order, or {INVALID}.
type Labels []State

// Has reports whether s is one of the labels.
func (l Labels) Has(s State) bool {
	for _, x := range l {
		if x == s {
			return true
		}
	}
	return false
}

// Primary collapses the set to one label with priority
// MISSING > DUPLICATED > INVALID > MATCHED.
func (l Labels) Primary() State {
	for _, s := range []State{Missing, Duplicated, Invalid, Matched} {
		if l.Has(s) {
			return s
		}
	}
	return Invalid
}

// Strings returns the labels as plain strings.
func (l Labels) Strings() []string {
	out := make([]string, len(l))
	for i, s := range l {
		out[i] = string(s)
	}
	return out
}

// Result maps each detected code to its labels.
type Result map[string]Labels

// Contains reports whether path lies under dir. The test is prefix-exact:
// path must start with dir followed by the path separator, so dir has to be
// absolute and clean like the paths it is compared with.
func Contains(dir, path string) bool {
	prefix := dir
	if !strings.HasSuffix(prefix, string(os.PathSeparator)) {
		prefix += string(os.PathSeparator)
	}
	return strings.HasPrefix(path, prefix)
}

// Counts returns, per directory, how many of paths lie under it.
// A path under no directory is not counted anywhere.
func Counts(paths []string, dirs []string) []int {
	counts := make([]int, len(dirs))
	for _, p := range paths {
		for i, d := range dirs {
			if Contains(d, p) {
				counts[i]++
			}
		}
	}
	return counts
}

// ClassifyCounts turns a count vector into labels.
func ClassifyCounts(counts []int) Labels {
	if len(counts) > 0 && allOnes(counts) {
		return Labels{Matched}
	}
	var l Labels
	if anyCount(counts, func(n int) bool { return n == 0 }) {
		l = append(l, Missing)
	}
	if anyCount(counts, func(n int) bool { return n > 1 }) {
		l = append(l, Duplicated)
	}
	if len(l) == 0 {
		l = Labels{Invalid}
	}
	return l
}

// Classify labels every code of the index against the ordered directories.
func Classify(ix *codeindex.Index, dirs []string) Result {
	res := Result{}
	for _, code := range ix.Codes() {
		res[code] = ClassifyCounts(Counts(ix.Paths(code), dirs))
	}
	return res
}

// RelPaths returns the paths under dir, relative to it, in input order.
func RelPaths(paths []string, dir string) []string {
	var out []string
	for _, p := range paths {
		if !Contains(dir, p) {
			continue
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			rel = p
		}
		out = append(out, rel)
	}
	return out
}

// Tally counts codes per label. A code with several labels counts once for each.
func (r Result) Tally() map[State]int {
	t := map[State]int{Matched: 0, Missing: 0, Duplicated: 0, Invalid: 0}
	for _, l := range r {
		for _, s := range l {
			t[s]++
		}
	}
	return t
}

// AllMatched reports whether every code is MATCHED.
func (r Result) AllMatched() bool {
	for _, l := range r {
		if !l.Has(Matched) {
			return false
		}
	}
	return true
}

func allOnes(counts []int) bool {
	for _, n := range counts {
		if n != 1 {
			return false
		}
	}
	return true
}

func anyCount(counts []int, pred func(int) bool) bool {
	for _, n := range counts {
		if pred(n) {
			return true
		}
	}
	return false
}
