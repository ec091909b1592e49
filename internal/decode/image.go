package decode

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/datamatrix"
	multiqr "github.com/makiuchi-d/gozxing/multi/qrcode"
	"github.com/makiuchi-d/gozxing/oned"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Format names accepted in Options.Formats.
const (
	FormatQRCode     = "QR_CODE"
	FormatDataMatrix = "DATA_MATRIX"
	FormatEANUPC     = "EAN_UPC"
	FormatCode128    = "CODE_128"
	FormatCode39     = "CODE_39"
)

// DefaultFormats is used when Options.Formats is empty.
var DefaultFormats = []string{FormatQRCode, FormatDataMatrix, FormatEANUPC, FormatCode128, FormatCode39}

// DefaultCacheSize bounds the number of cached decode results.
const DefaultCacheSize = 1024

// Options configures an ImageDecoder.
type Options struct {
	Formats   []string
	TryHarder bool
	// CacheSize <= 0 selects DefaultCacheSize.
	CacheSize int
}

// ImageDecoder decodes symbols from image files. Results are cached by the
// SHA-256 of the file content, so byte-identical files decode once.
type ImageDecoder struct {
	formats []string
	hints   map[gozxing.DecodeHintType]interface{}
	cache   *lru.Cache[string, []Symbol]
}

// NewImageDecoder validates opts and builds a decoder.
func NewImageDecoder(opts Options) (*ImageDecoder, error) {
	formats := opts.Formats
	if len(formats) == 0 {
		formats = DefaultFormats
	}
	norm := make([]string, 0, len(formats))
	for _, f := range formats {
		u := strings.ToUpper(strings.TrimSpace(f))
		if !knownFormat(u) {
			return nil, fmt.Errorf("unknown decode format: %q", f)
		}
		norm = append(norm, u)
	}
	size := opts.CacheSize
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[string, []Symbol](size)
	if err != nil {
		return nil, err
	}
	hints := map[gozxing.DecodeHintType]interface{}{}
	if opts.TryHarder {
		hints[gozxing.DecodeHintType_TRY_HARDER] = true
	}
	return &ImageDecoder{formats: norm, hints: hints, cache: cache}, nil
}

func knownFormat(f string) bool {
	for _, k := range DefaultFormats {
		if f == k {
			return true
		}
	}
	return false
}

// Decode reads path and returns its symbols.
func (d *ImageDecoder) Decode(ctx context.Context, path string) Outcome {
	data, err := os.ReadFile(path)
	if err != nil {
		return NotFound(err)
	}
	if err := ctx.Err(); err != nil {
		return NotFound(err)
	}
	sum := sha256.Sum256(data)
	key := hex.EncodeToString(sum[:])
	if syms, ok := d.cache.Get(key); ok {
		return outcomeFor(syms)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return NotFound(fmt.Errorf("image decode: %w", err))
	}
	syms, err := d.decodeImage(ctx, img)
	if err != nil {
		return NotFound(err)
	}
	d.cache.Add(key, syms)
	return outcomeFor(syms)
}

// CacheLen reports how many distinct file contents are cached.
func (d *ImageDecoder) CacheLen() int { return d.cache.Len() }

func outcomeFor(syms []Symbol) Outcome {
	if len(syms) == 0 {
		return NotFound(ErrNoSymbol)
	}
	return Outcome{Symbols: append([]Symbol(nil), syms...)}
}

// decodeImage checks ctx before binarising and before each format, so a
// cancelled decode gives up without caching a partial result.
func (d *ImageDecoder) decodeImage(ctx context.Context, img image.Image) ([]Symbol, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return nil, fmt.Errorf("binarize: %w", err)
	}
	var out []Symbol
	for _, f := range d.formats {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out = append(out, d.readFormat(f, bmp)...)
	}
	return out, nil
}

// readFormat runs the readers of one format. Reader errors only mean the
// format is absent from the image.
func (d *ImageDecoder) readFormat(format string, bmp *gozxing.BinaryBitmap) []Symbol {
	if format == FormatQRCode {
		results, err := multiqr.NewQRCodeMultiReader().DecodeMultiple(bmp, d.hints)
		if err != nil {
			return nil
		}
		out := make([]Symbol, 0, len(results))
		for _, r := range results {
			out = append(out, symbolOf(r))
		}
		return out
	}
	var reader gozxing.Reader
	switch format {
	case FormatDataMatrix:
		reader = datamatrix.NewDataMatrixReader()
	case FormatEANUPC:
		reader = oned.NewMultiFormatUPCEANReader(d.hints)
	case FormatCode128:
		reader = oned.NewCode128Reader()
	case FormatCode39:
		reader = oned.NewCode39Reader()
	default:
		return nil
	}
	r, err := reader.Decode(bmp, d.hints)
	if err != nil || r == nil {
		return nil
	}
	return []Symbol{symbolOf(r)}
}

func symbolOf(r *gozxing.Result) Symbol {
	return Symbol{Code: r.GetText(), Type: r.GetBarcodeFormat().String()}
}
