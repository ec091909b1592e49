package report

import (
	"sort"
	"strings"

	"github.com/flarebyte/qr-ostraca/internal/codeindex"
	"github.com/flarebyte/qr-ostraca/internal/compare"
)

// UndetectedLabel marks rows for files where no code was decoded.
const UndetectedLabel = "UNDETECTED"

// Fixed leading header columns; one column per source directory follows.
var fixedHeader = []string{"Compare Result", "Code", "Decoded Type"}

// Options tune how rows are rendered.
type Options struct {
	// SingleLabel collapses multi-label results with Labels.Primary.
	SingleLabel bool
}

// Row is one report line. Cells holds, per directory, the relative paths of
// the row's files under that directory.
type Row struct {
	Labels   []string
	Code     string
	CodeType string
	Cells    [][]string
}

// Table is the report before serialisation.
type Table struct {
	Header []string
	Rows   []Row
}

// Build renders one row per detected code (codes in lexical order) followed
// by one row per undetected file (paths in lexical order).
func Build(ix *codeindex.Index, res compare.Result, dirs []string, opts Options) Table {
	t := Table{Header: append(append([]string{}, fixedHeader...), dirs...)}
	for _, code := range ix.Codes() {
		labels := res[code]
		if labels == nil {
			labels = compare.ClassifyCounts(compare.Counts(ix.Paths(code), dirs))
		}
		if opts.SingleLabel {
			labels = compare.Labels{labels.Primary()}
		}
		typ, _ := ix.CodeType(code)
		paths := ix.Paths(code)
		row := Row{Labels: labels.Strings(), Code: code, CodeType: typ, Cells: make([][]string, len(dirs))}
		for i, d := range dirs {
			row.Cells[i] = compare.RelPaths(paths, d)
		}
		t.Rows = append(t.Rows, row)
	}

	undetected := ix.Undetected()
	sort.Strings(undetected)
	for _, p := range undetected {
		row := Row{Labels: []string{UndetectedLabel}, Cells: make([][]string, len(dirs))}
		for i, d := range dirs {
			row.Cells[i] = compare.RelPaths([]string{p}, d)
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// Record flattens the row into CSV fields; multi-valued cells are joined
// with newlines.
func (r Row) Record() []string {
	rec := make([]string, 0, len(fixedHeader)+len(r.Cells))
	rec = append(rec, strings.Join(r.Labels, "\n"), r.Code, r.CodeType)
	for _, c := range r.Cells {
		rec = append(rec, strings.Join(c, "\n"))
	}
	return rec
}

// Undetected reports whether the row stands for an undetected file.
func (r Row) Undetected() bool {
	return len(r.Labels) == 1 && r.Labels[0] == UndetectedLabel
}
