package report

import (
	"bytes"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/flarebyte/qr-ostraca/internal/codeindex"
	"github.com/flarebyte/qr-ostraca/internal/compare"
)

func scenario() (*codeindex.Index, []string) {
	a, b := filepath.FromSlash("/s/A"), filepath.FromSlash("/s/B")
	ix := codeindex.Build([]codeindex.DecodedItem{
		codeindex.Found(filepath.Join(a, "1.png"), "X", "QR_CODE"),
		codeindex.Found(filepath.Join(b, "1.png"), "X", "QR_CODE"),
		codeindex.Found(filepath.Join(a, "2.png"), "Y", "QR_CODE"),
		codeindex.Found(filepath.Join(a, "3.png"), "Z", "QR_CODE"),
		codeindex.Found(filepath.Join(a, "4.png"), "Z", "QR_CODE"),
		codeindex.NotFound(filepath.Join(a, "5.png")),
	})
	return ix, []string{a, b}
}

func TestBuild_ScenarioRows(t *testing.T) {
	ix, dirs := scenario()
	tbl := Build(ix, compare.Classify(ix, dirs), dirs, Options{})

	wantHeader := []string{"Compare Result", "Code", "Decoded Type", dirs[0], dirs[1]}
	if !reflect.DeepEqual(tbl.Header, wantHeader) {
		t.Fatalf("header = %v", tbl.Header)
	}
	want := [][]string{
		{"MATCHED", "X", "QR_CODE", "1.png", "1.png"},
		{"MISSING", "Y", "QR_CODE", "2.png", ""},
		{"MISSING\nDUPLICATED", "Z", "QR_CODE", "3.png\n4.png", ""},
		{"UNDETECTED", "", "", "5.png", ""},
	}
	if len(tbl.Rows) != len(want) {
		t.Fatalf("got %d rows, want %d", len(tbl.Rows), len(want))
	}
	for i, r := range tbl.Rows {
		if got := r.Record(); !reflect.DeepEqual(got, want[i]) {
			t.Fatalf("row %d = %q, want %q", i, got, want[i])
		}
	}
	if !tbl.Rows[3].Undetected() || tbl.Rows[0].Undetected() {
		t.Fatalf("Undetected() misreports")
	}
}

func TestBuild_SingleLabel(t *testing.T) {
	ix, dirs := scenario()
	tbl := Build(ix, compare.Classify(ix, dirs), dirs, Options{SingleLabel: true})
	if got := tbl.Rows[2].Labels; !reflect.DeepEqual(got, []string{"MISSING"}) {
		t.Fatalf("labels = %v", got)
	}
}

func TestBuild_RoundTripPerDirectoryPaths(t *testing.T) {
	a, b := filepath.FromSlash("/r/A"), filepath.FromSlash("/r/B")
	type triple struct{ dir, file, code string }
	in := []triple{
		{a, "x/1.png", "C1"}, {a, "x/2.png", "C1"}, {b, "1.png", "C1"},
		{b, "deep/er/9.png", "C2"},
	}
	var items []codeindex.DecodedItem
	for _, tr := range in {
		items = append(items, codeindex.Found(filepath.Join(tr.dir, filepath.FromSlash(tr.file)), tr.code, "QR_CODE"))
	}
	ix := codeindex.Build(items)
	dirs := []string{a, b}
	tbl := Build(ix, compare.Classify(ix, dirs), dirs, Options{})
	for _, r := range tbl.Rows {
		for i, d := range dirs {
			var want []string
			for _, tr := range in {
				if tr.dir == d && tr.code == r.Code {
					want = append(want, filepath.FromSlash(tr.file))
				}
			}
			if !reflect.DeepEqual(r.Cells[i], want) {
				t.Fatalf("code %s dir %s: %v, want %v", r.Code, d, r.Cells[i], want)
			}
		}
	}
}

func TestWriteCSV(t *testing.T) {
	ix, dirs := scenario()
	tbl := Build(ix, compare.Classify(ix, dirs), dirs, Options{})
	var buf bytes.Buffer
	if err := WriteCSV(&buf, tbl); err != nil {
		t.Fatalf("write: %v", err)
	}
	want := strings.Join([]string{
		"Compare Result,Code,Decoded Type," + dirs[0] + "," + dirs[1],
		"MATCHED,X,QR_CODE,1.png,1.png",
		"MISSING,Y,QR_CODE,2.png,",
		"\"MISSING\nDUPLICATED\",Z,QR_CODE,\"3.png\n4.png\",",
		"UNDETECTED,,,5.png,",
		"",
	}, "\n")
	if buf.String() != want {
		t.Fatalf("unexpected csv\nwant:\n%s\ngot:\n%s", want, buf.String())
	}
}

func TestFileName(t *testing.T) {
	ts := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	if got := FileName("", ts); got != "qr_comparison_report_2026-03-04_05-06-07.csv" {
		t.Fatalf("FileName = %q", got)
	}
	if got := FileName("scans", ts); got != "scans_report_2026-03-04_05-06-07.csv" {
		t.Fatalf("FileName = %q", got)
	}
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	ix, dirs := scenario()
	tbl := Build(ix, compare.Classify(ix, dirs), dirs, Options{})
	p, err := WriteFile(dir, "r.csv", tbl)
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	b, err := os.ReadFile(p)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.HasPrefix(string(b), "Compare Result,Code,Decoded Type,") {
		t.Fatalf("unexpected content: %q", string(b))
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Fatalf("temporary files left behind: %d entries", len(entries))
	}
}
