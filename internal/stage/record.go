package stage

import "github.com/flarebyte/qr-ostraca/internal/decode"

// Record is one discovered file. Locator is the slash-separated path relative
// to the source directory at DirIndex; Path is the absolute file path.
type Record struct {
	Locator  string          `json:"locator"`
	DirIndex int             `json:"dirIndex"`
	Dir      string          `json:"dir"`
	Path     string          `json:"path"`
	Size     int64           `json:"size"`
	Decoded  bool            `json:"decoded"`
	Symbols  []decode.Symbol `json:"symbols,omitempty"`
	Reason   string          `json:"reason,omitempty"`
}

