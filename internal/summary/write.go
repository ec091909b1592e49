package summary

import (
	"bytes"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Summary describes one comparison run.
type Summary struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	SrcDirs    []string
	Report     string
	Files      int
	Codes      int
	Undetected int
	Errors     int
	States     map[string]int
}

// FileName derives the summary file name from the CSV report name.
func FileName(reportName string) string {
	return strings.TrimSuffix(reportName, filepath.Ext(reportName)) + ".summary.yaml"
}

// Marshal returns canonical YAML: keys sorted at every level, two-space indent.
func Marshal(s Summary) ([]byte, error) {
	states := map[string]any{}
	for k, v := range s.States {
		states[k] = v
	}
	dirs := make([]any, 0, len(s.SrcDirs))
	for _, d := range s.SrcDirs {
		dirs = append(dirs, d)
	}
	doc := map[string]any{
		"runId":      s.RunID,
		"startedAt":  s.StartedAt.UTC().Format(time.RFC3339),
		"finishedAt": s.FinishedAt.UTC().Format(time.RFC3339),
		"srcDirs":    dirs,
		"report":     s.Report,
		"totals": map[string]any{
			"files":      s.Files,
			"codes":      s.Codes,
			"undetected": s.Undetected,
			"errors":     s.Errors,
		},
		"states": states,
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(canonicalNode(doc)); err != nil {
		_ = enc.Close()
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	out := bytes.TrimRight(buf.Bytes(), "\n")
	out = append(out, '\n')
	return out, nil
}

// Write writes the summary to path, creating parent directories.
func Write(path string, s Summary) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := Marshal(s)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

func scalarNode(v string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v}
}

func scalarFrom(v any) *yaml.Node {
	n := &yaml.Node{}
	_ = n.Encode(v)
	return n
}

func canonicalNode(v any) *yaml.Node {
	switch x := v.(type) {
	case nil:
		return &yaml.Node{Kind: yaml.MappingNode}
	case map[string]any:
		return canonicalMapNode(x)
	case []any:
		n := &yaml.Node{Kind: yaml.SequenceNode}
		for _, it := range x {
			n.Content = append(n.Content, canonicalNode(it))
		}
		return n
	default:
		return scalarFrom(x)
	}
}

func canonicalMapNode(m map[string]any) *yaml.Node {
	n := &yaml.Node{Kind: yaml.MappingNode}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		n.Content = append(n.Content, scalarNode(k), canonicalNode(m[k]))
	}
	return n
}
