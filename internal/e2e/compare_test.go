package e2e

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/flarebyte/qr-ostraca/internal/testutil"
)

type runResult struct {
	code   int
	stdout []byte
	stderr []byte
}

func buildQrcmp(t *testing.T) string {
	t.Helper()
	bin := filepath.Join(t.TempDir(), "qrcmp")
	if runtime.GOOS == "windows" {
		bin += ".exe"
	}
	cmd := exec.Command("go", "build", "-o", bin, "./cmd/qrcmp")
	cmd.Dir = filepath.Join("..", "..")
	cmd.Env = append(os.Environ(), "CGO_ENABLED=0")
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("build failed: %v\n%s", err, string(out))
	}
	return bin
}

func runCmd(t *testing.T, bin string, args ...string) runResult {
	t.Helper()
	cmd := exec.Command(bin, args...)
	cmd.Dir = t.TempDir()
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	code := 0
	if err != nil {
		if ee, ok := err.(*exec.ExitError); ok {
			code = ee.ExitCode()
		} else {
			code = -1
		}
	}
	return runResult{code: code, stdout: stdout.Bytes(), stderr: stderr.Bytes()}
}

// fixture builds two source trees: ALPHA matched, BETA duplicated in b,
// GAMMA missing from b and one undetected text file.
func fixture(t *testing.T) (a, b string) {
	t.Helper()
	root := t.TempDir()
	a = filepath.Join(root, "a")
	b = filepath.Join(root, "b")
	testutil.WriteTree(t, a, map[string][]byte{
		"1.png":     testutil.QRPNG(t, "ALPHA"),
		"2.png":     testutil.QRPNG(t, "BETA"),
		"sub/3.png": testutil.QRPNG(t, "GAMMA"),
	})
	if err := testutil.CopyTree(a, b); err != nil {
		t.Fatalf("copy: %v", err)
	}
	if err := os.RemoveAll(filepath.Join(b, "sub")); err != nil {
		t.Fatalf("remove: %v", err)
	}
	testutil.WriteTree(t, b, map[string][]byte{
		"2-copy.png": testutil.QRPNG(t, "BETA"),
		"readme.txt": []byte("no code here"),
	})
	return a, b
}

func onlyReport(t *testing.T, dir string) string {
	t.Helper()
	m, err := filepath.Glob(filepath.Join(dir, "qr_comparison_report_*.csv"))
	if err != nil || len(m) != 1 {
		t.Fatalf("expected one report in %s, got %v (%v)", dir, m, err)
	}
	b, err := os.ReadFile(m[0])
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	return string(b)
}

func TestCompare_ReportAndDeterminism(t *testing.T) {
	bin := buildQrcmp(t)
	a, b := fixture(t)
	want := strings.Join([]string{
		"Compare Result,Code,Decoded Type," + a + "," + b,
		"MATCHED,ALPHA,QR_CODE,1.png,1.png",
		"DUPLICATED,BETA,QR_CODE,2.png,\"2-copy.png\n2.png\"",
		"MISSING,GAMMA,QR_CODE," + filepath.Join("sub", "3.png") + ",",
		"UNDETECTED,,,,readme.txt",
		"",
	}, "\n")
	for _, workers := range []string{"1", "2", "8"} {
		reports := t.TempDir()
		r := runCmd(t, bin, "compare", "--src-dir", a, "--src-dir", b, "--report-dir", reports, "--workers", workers)
		if r.code != 0 {
			t.Fatalf("workers=%s: exit %d\n%s", workers, r.code, r.stderr)
		}
		if got := onlyReport(t, reports); got != want {
			t.Fatalf("workers=%s: unexpected report\nwant:\n%s\ngot:\n%s", workers, want, got)
		}
	}
}

func TestCompare_ExitCodes(t *testing.T) {
	bin := buildQrcmp(t)
	a, b := fixture(t)
	missing := filepath.Join(t.TempDir(), "gone")

	r := runCmd(t, bin, "compare", "--src-dir", a, "--src-dir", missing, "--report-dir", t.TempDir())
	if r.code != 1 {
		t.Fatalf("missing dir: exit %d", r.code)
	}
	if string(r.stderr) != "source directory does not exist: "+missing+"\n" {
		t.Fatalf("missing dir: stderr %q", r.stderr)
	}

	r = runCmd(t, bin, "compare", "--src-dir", a, "--src-dir", b, "--report-dir", t.TempDir(), "--fail-on-mismatch", "--log-level", "CRITICAL")
	if r.code != 2 {
		t.Fatalf("mismatch: exit %d\n%s", r.code, r.stderr)
	}
	if string(r.stderr) != "mismatch: 2 codes not matched, 1 files undetected\n" {
		t.Fatalf("mismatch: stderr %q", r.stderr)
	}
}

func TestVersion(t *testing.T) {
	bin := buildQrcmp(t)
	r := runCmd(t, bin, "version")
	if r.code != 0 || string(r.stdout) != "qrcmp dev\n" {
		t.Fatalf("version: exit %d stdout %q", r.code, r.stdout)
	}
}

func TestDiagnose(t *testing.T) {
	bin := buildQrcmp(t)
	a, _ := fixture(t)
	p := filepath.Join(a, "1.png")
	r := runCmd(t, bin, "diagnose", p)
	want := `{"path":"` + p + `","found":true,"symbols":[{"code":"ALPHA","type":"QR_CODE"}]}` + "\n"
	if r.code != 0 || string(r.stdout) != want {
		t.Fatalf("diagnose: exit %d stdout %q", r.code, r.stdout)
	}
}
