package diagnose

import (
	"bytes"
	"context"
	"encoding/json"
	"io"

	"github.com/flarebyte/qr-ostraca/internal/config"
	"github.com/flarebyte/qr-ostraca/internal/decode"
	"github.com/flarebyte/qr-ostraca/internal/stage"
	"github.com/spf13/cobra"
)

// Line is the JSON object printed for each file.
type Line struct {
	Path    string          `json:"path"`
	Found   bool            `json:"found"`
	Symbols []decode.Symbol `json:"symbols"`
	Error   string          `json:"error,omitempty"`
}

// NewCmd builds `qrcmp diagnose`, which decodes files one by one with the
// same decoder settings as compare.
func NewCmd() *cobra.Command {
	var (
		timeoutMs int
		formats   []string
		tryHarder bool
	)
	cmd := &cobra.Command{
		Use:           "diagnose <file>...",
		Short:         "Decode image files and print one JSON line per file",
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := config.Defaults()
			s.Decode.TimeoutMs = timeoutMs
			s.Decode.Formats = formats
			s.Decode.TryHarder = tryHarder
			dec, err := stage.NewDecoder(s)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			return diagnose(ctx, dec, args, cmd.OutOrStdout())
		},
	}
	cmd.Flags().IntVar(&timeoutMs, "timeout-ms", config.DefaultDecodeTimeoutMs, "Per-file decode timeout in milliseconds, 0 disables")
	cmd.Flags().StringSliceVar(&formats, "formats", nil, "Symbol formats to try (default all)")
	cmd.Flags().BoolVar(&tryHarder, "try-harder", true, "Spend more time looking for symbols")
	return cmd
}

func diagnose(ctx context.Context, dec decode.Decoder, paths []string, w io.Writer) error {
	for _, p := range paths {
		o := dec.Decode(ctx, p)
		line := Line{Path: p, Found: o.Found(), Symbols: o.Symbols}
		if line.Symbols == nil {
			line.Symbols = []decode.Symbol{}
		}
		if o.Err != nil {
			line.Error = o.Err.Error()
		}
		s, err := encodeJSON(line)
		if err != nil {
			return err
		}
		if _, err := io.WriteString(w, s); err != nil {
			return err
		}
	}
	return nil
}

// encodeJSON returns the JSON encoding string with HTML escaping disabled.
func encodeJSON(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return buf.String(), nil
}
