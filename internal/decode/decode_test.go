package decode

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/flarebyte/qr-ostraca/internal/codeindex"
	"github.com/flarebyte/qr-ostraca/internal/testutil"
)

func TestImageDecoder_QRCode(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "one.png")
	writeQRPNG(t, p, "ITEM-0001")

	d, err := NewImageDecoder(Options{Formats: []string{FormatQRCode}})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	o := d.Decode(context.Background(), p)
	if !o.Found() {
		t.Fatalf("expected a symbol, got err %v", o.Err)
	}
	want := []Symbol{{Code: "ITEM-0001", Type: "QR_CODE"}}
	if !reflect.DeepEqual(o.Symbols, want) {
		t.Fatalf("symbols = %v, want %v", o.Symbols, want)
	}
}

func TestImageDecoder_NotAnImage(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(p, []byte("plain text"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	d, err := NewImageDecoder(Options{})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	o := d.Decode(context.Background(), p)
	if o.Found() || o.Err == nil {
		t.Fatalf("expected NotFound with a reason, got %+v", o)
	}
}

func TestImageDecoder_MissingFile(t *testing.T) {
	d, err := NewImageDecoder(Options{})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	o := d.Decode(context.Background(), filepath.Join(t.TempDir(), "absent.png"))
	if o.Found() || o.Err == nil {
		t.Fatalf("expected NotFound, got %+v", o)
	}
}

func TestImageDecoder_CachesIdenticalContent(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a", "1.png")
	b := filepath.Join(dir, "b", "1.png")
	writeQRPNG(t, a, "SAME")
	writeQRPNG(t, b, "SAME")

	d, err := NewImageDecoder(Options{Formats: []string{FormatQRCode}})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	oa := d.Decode(context.Background(), a)
	ob := d.Decode(context.Background(), b)
	if !reflect.DeepEqual(oa.Symbols, ob.Symbols) {
		t.Fatalf("cached result differs: %v vs %v", oa.Symbols, ob.Symbols)
	}
	if d.CacheLen() != 1 {
		t.Fatalf("cache len = %d, want 1", d.CacheLen())
	}
}

func TestNewImageDecoder_UnknownFormat(t *testing.T) {
	if _, err := NewImageDecoder(Options{Formats: []string{"AZTEC"}}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestWithTimeout(t *testing.T) {
	slow := Func(func(ctx context.Context, path string) Outcome {
		time.Sleep(200 * time.Millisecond)
		return Outcome{Symbols: []Symbol{{Code: "late"}}}
	})
	o := WithTimeout(slow, 10*time.Millisecond).Decode(context.Background(), "x")
	if o.Found() || !errors.Is(o.Err, ErrTimeout) {
		t.Fatalf("expected timeout, got %+v", o)
	}

	fast := Func(func(ctx context.Context, path string) Outcome {
		return Outcome{Symbols: []Symbol{{Code: "ok", Type: "QR_CODE"}}}
	})
	if o := WithTimeout(fast, time.Second).Decode(context.Background(), "x"); !o.Found() {
		t.Fatalf("expected symbols, got %+v", o)
	}
}

func TestWithTimeout_RecoversPanic(t *testing.T) {
	boom := Func(func(ctx context.Context, path string) Outcome { panic("bad image") })
	o := WithTimeout(boom, time.Second).Decode(context.Background(), "x")
	if o.Found() || o.Err == nil {
		t.Fatalf("expected NotFound, got %+v", o)
	}
}

func TestWithTimeout_ZeroRecoversPanic(t *testing.T) {
	boom := Func(func(ctx context.Context, path string) Outcome { panic("bad image") })
	o := WithTimeout(boom, 0).Decode(context.Background(), "x")
	if o.Found() || o.Err == nil || o.Err.Error() != "decoder panic: bad image" {
		t.Fatalf("expected NotFound from panic, got %+v", o)
	}
}

func TestImageDecoder_StopsWhenCancelled(t *testing.T) {
	img, err := png.Decode(bytes.NewReader(testutil.QRPNG(t, "LATE")))
	if err != nil {
		t.Fatalf("png: %v", err)
	}
	d, err := NewImageDecoder(Options{})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := d.decodeImage(ctx, img); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	syms, err := d.decodeImage(context.Background(), img)
	if err != nil || len(syms) == 0 || syms[0].Code != "LATE" {
		t.Fatalf("uncancelled decode: %v %v", syms, err)
	}
}

func TestOutcomeItems(t *testing.T) {
	got := NotFound(ErrNoSymbol).Items("/a/1.png")
	if !reflect.DeepEqual(got, []codeindex.DecodedItem{codeindex.NotFound("/a/1.png")}) {
		t.Fatalf("items = %v", got)
	}
	o := Outcome{Symbols: []Symbol{{Code: "A", Type: "QR_CODE"}, {Code: "B", Type: "CODE_128"}}}
	want := []codeindex.DecodedItem{
		codeindex.Found("/a/2.png", "A", "QR_CODE"),
		codeindex.Found("/a/2.png", "B", "CODE_128"),
	}
	if got := o.Items("/a/2.png"); !reflect.DeepEqual(got, want) {
		t.Fatalf("items = %v", got)
	}
}
