package codeindex

import "sort"

// DecodedItem is one decode result: a (code, type) pair found in a file, or
// the marker for a file where nothing could be decoded (Detected == false).
// An empty Code with Detected == true is a valid code.
type DecodedItem struct {
	Code     string `json:"code"`
	CodeType string `json:"codeType"`
	FilePath string `json:"filePath"`
	Detected bool   `json:"detected"`
}

// Found returns the item for a code decoded from path.
func Found(path, code, codeType string) DecodedItem {
	return DecodedItem{Code: code, CodeType: codeType, FilePath: path, Detected: true}
}

// NotFound returns the item for a file where no code was decoded.
func NotFound(path string) DecodedItem {
	return DecodedItem{FilePath: path}
}

// Index maps codes to the files they were found in. It is read-only after
// Build; accessors hand out copies.
type Index struct {
	detected   map[string][]string
	codeType   map[string]string
	undetected []string
	conflicts  map[string]struct{}
}

// Build aggregates decode results. Item order only affects the order of
// paths within a code and which type wins when a code is decoded with
// different types (last one wins).
func Build(items []DecodedItem) *Index {
	ix := &Index{
		detected:  map[string][]string{},
		codeType:  map[string]string{},
		conflicts: map[string]struct{}{},
	}
	for _, it := range items {
		if !it.Detected {
			ix.undetected = append(ix.undetected, it.FilePath)
			continue
		}
		if prev, ok := ix.codeType[it.Code]; ok && prev != it.CodeType {
			ix.conflicts[it.Code] = struct{}{}
		}
		ix.codeType[it.Code] = it.CodeType
		ix.detected[it.Code] = append(ix.detected[it.Code], it.FilePath)
	}
	return ix
}

// Codes returns all detected codes in lexical order.
func (ix *Index) Codes() []string {
	if ix == nil {
		return nil
	}
	out := make([]string, 0, len(ix.detected))
	for c := range ix.detected {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Paths returns the files a code was found in, duplicates included.
func (ix *Index) Paths(code string) []string {
	if ix == nil {
		return nil
	}
	return append([]string(nil), ix.detected[code]...)
}

// CodeType returns the decoded symbology for a code.
func (ix *Index) CodeType(code string) (string, bool) {
	if ix == nil {
		return "", false
	}
	t, ok := ix.codeType[code]
	return t, ok
}

// Undetected returns the files where decoding found nothing, in input order.
func (ix *Index) Undetected() []string {
	if ix == nil {
		return nil
	}
	return append([]string(nil), ix.undetected...)
}

// Len is the number of distinct detected codes.
func (ix *Index) Len() int {
	if ix == nil {
		return 0
	}
	return len(ix.detected)
}

// FileCount is the number of path entries held, detected and undetected.
func (ix *Index) FileCount() int {
	if ix == nil {
		return 0
	}
	n := len(ix.undetected)
	for _, ps := range ix.detected {
		n += len(ps)
	}
	return n
}

// TypeConflicts lists codes that were decoded with more than one type.
func (ix *Index) TypeConflicts() []string {
	if ix == nil {
		return nil
	}
	out := make([]string, 0, len(ix.conflicts))
	for c := range ix.conflicts {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}
