package stage

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	gitgitignore "github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

const discoverImagesStage = "discover-images"

// displayLocator names a record in errors and logs.
func displayLocator(rec Record) string {
	if rec.Path != "" {
		return rec.Path
	}
	return rec.Locator
}

// dirsForRel returns the list of directories from "." to the directory of rel.
func dirsForRel(rel string) []string {
	dir := filepath.Dir(rel)
	if rel == "." {
		dir = "."
	}
	dirs := []string{"."}
	if dir == "." {
		return dirs
	}
	cur := ""
	for _, part := range strings.Split(dir, string(os.PathSeparator)) {
		cur = filepath.Join(cur, part)
		dirs = append(dirs, cur)
	}
	return dirs
}

func splitRel(rel string) []string {
	if rel == "." || rel == "" {
		return nil
	}
	return strings.Split(rel, string(os.PathSeparator))
}

// ignoreMatcher combines configured exclude patterns with the .gitignore files
// found under one source directory. .gitignore files are read at most once per
// directory.
type ignoreMatcher struct {
	absRoot   string
	exclude   []gitgitignore.Pattern
	gitignore bool
	perDir    map[string][]gitgitignore.Pattern
}

func newIgnoreMatcher(absRoot string, exclude []string, gitignore bool) *ignoreMatcher {
	m := &ignoreMatcher{absRoot: absRoot, gitignore: gitignore, perDir: map[string][]gitgitignore.Pattern{}}
	for _, p := range exclude {
		p = strings.TrimSpace(p)
		if p == "" || strings.HasPrefix(p, "#") {
			continue
		}
		m.exclude = append(m.exclude, gitgitignore.ParsePattern(p, nil))
	}
	return m
}

func (m *ignoreMatcher) dirPatterns(d string) []gitgitignore.Pattern {
	if ps, ok := m.perDir[d]; ok {
		return ps
	}
	var ps []gitgitignore.Pattern
	b, err := os.ReadFile(filepath.Join(m.absRoot, d, ".gitignore"))
	if err == nil {
		var domain []string
		if d != "." && d != "" {
			domain = strings.Split(filepath.ToSlash(d), "/")
		}
		for _, line := range strings.Split(string(b), "\n") {
			line = strings.TrimSpace(line)
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			ps = append(ps, gitgitignore.ParsePattern(line, domain))
		}
	}
	m.perDir[d] = ps
	return ps
}

// match reports whether rel (OS separators, relative to absRoot) is ignored.
// Exclude patterns are checked last so they win over .gitignore negations.
func (m *ignoreMatcher) match(rel string, isDir bool) bool {
	var patterns []gitgitignore.Pattern
	if m.gitignore {
		for _, d := range dirsForRel(rel) {
			patterns = append(patterns, m.dirPatterns(d)...)
		}
	}
	patterns = append(patterns, m.exclude...)
	if len(patterns) == 0 {
		return false
	}
	return gitgitignore.NewMatcher(patterns).Match(splitRel(rel), isDir)
}

// walkOptions controls one source directory walk.
type walkOptions struct {
	exclude        []string
	gitignore      bool
	extensions     []string
	followSymlinks bool
	keepGoing      bool
}

func (o walkOptions) wantFile(name string) bool {
	if o.gitignore && name == ".gitignore" {
		return false
	}
	if len(o.extensions) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range o.extensions {
		if e == ext {
			return true
		}
	}
	return false
}

func displayDiscoveryPath(absRoot string, p string) string {
	rel, err := filepath.Rel(absRoot, p)
	if err == nil {
		return filepath.ToSlash(rel)
	}
	return filepath.ToSlash(p)
}

func addDiscoveryError(envErrs *[]Error, p string, err error) {
	*envErrs = append(*envErrs, Error{
		Stage:   discoverImagesStage,
		Locator: p,
		Message: err.Error(),
	})
}

func discoveryFatal(p string, err error) error {
	return fmt.Errorf("%s: %s: %v", discoverImagesStage, p, err)
}

type foundFile struct {
	locator string
	size    int64
}

// findImages walks absRoot and returns files sorted by slash-separated
// locator. Symlinked directories are visited only when followSymlinks is set;
// directories reached twice through links are walked once.
func findImages(absRoot string, opts walkOptions) ([]foundFile, []Error, error) {
	var envErrs []Error
	files := map[string]int64{}
	visitedDirs := map[string]struct{}{}
	ign := newIgnoreMatcher(absRoot, opts.exclude, opts.gitignore)

	fail := func(p string, err error) error {
		if opts.keepGoing {
			addDiscoveryError(&envErrs, p, err)
			return nil
		}
		return discoveryFatal(p, err)
	}

	var walkDir func(string) error
	walkDir = func(dirPath string) error {
		relDir := displayDiscoveryPath(absRoot, dirPath)
		if relDir != "." && ign.match(filepath.FromSlash(relDir), true) {
			return nil
		}

		canonDir, err := filepath.EvalSymlinks(dirPath)
		if err != nil {
			return fail(dirPath, err)
		}
		if _, ok := visitedDirs[canonDir]; ok {
			return nil
		}
		visitedDirs[canonDir] = struct{}{}

		entries, err := os.ReadDir(dirPath)
		if err != nil {
			return fail(dirPath, err)
		}

		var symlinkDirs []string
		for _, ent := range entries {
			name := ent.Name()
			childPath := filepath.Join(dirPath, name)
			relChild, err := filepath.Rel(absRoot, childPath)
			if err != nil {
				if ferr := fail(childPath, err); ferr != nil {
					return ferr
				}
				continue
			}

			info, err := os.Lstat(childPath)
			if err != nil {
				if ferr := fail(childPath, err); ferr != nil {
					return ferr
				}
				continue
			}

			if info.Mode()&os.ModeSymlink != 0 {
				targetInfo, err := os.Stat(childPath)
				if err != nil {
					if ferr := fail(childPath, err); ferr != nil {
						return ferr
					}
					continue
				}
				if targetInfo.IsDir() {
					if opts.followSymlinks {
						symlinkDirs = append(symlinkDirs, childPath)
					}
					continue
				}
				info = targetInfo
			}

			if info.IsDir() {
				if err := walkDir(childPath); err != nil {
					return err
				}
				continue
			}
			if !info.Mode().IsRegular() || !opts.wantFile(name) {
				continue
			}
			if ign.match(relChild, false) {
				continue
			}
			files[filepath.ToSlash(relChild)] = info.Size()
		}

		sort.Strings(symlinkDirs)
		for _, symlinkDir := range symlinkDirs {
			if err := walkDir(symlinkDir); err != nil {
				return err
			}
		}
		return nil
	}

	if err := walkDir(absRoot); err != nil {
		return nil, nil, err
	}

	out := make([]foundFile, 0, len(files))
	for l, size := range files {
		out = append(out, foundFile{locator: l, size: size})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].locator < out[j].locator })
	return out, envErrs, nil
}
