package decode

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/flarebyte/qr-ostraca/internal/testutil"
)

func writeQRPNG(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, testutil.QRPNG(t, content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}
