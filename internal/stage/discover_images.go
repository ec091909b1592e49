package stage

import (
	"context"
	"errors"
	"path/filepath"

	"github.com/flarebyte/qr-ostraca/internal/compare"
)

var errNoSettings = errors.New("settings not loaded; run validate-config first")

// discoverImagesRunner emits one record per file under every source
// directory, directories in configured order and files sorted within each.
func discoverImagesRunner(ctx context.Context, in Envelope, deps Deps) (Envelope, error) {
	s := settingsOf(in)
	if s == nil {
		return Envelope{}, errNoSettings
	}
	warnNestedDirs(s.SrcDirs, deps)

	opts := walkOptions{
		exclude:        s.Discovery.Exclude,
		gitignore:      s.Discovery.Gitignore,
		extensions:     s.Discovery.Extensions,
		followSymlinks: s.Discovery.FollowSymlinks,
		keepGoing:      keepGoing(in),
	}

	out := in
	out.Records = nil
	var envErrs []Error
	for i, dir := range s.SrcDirs {
		if err := ctx.Err(); err != nil {
			return Envelope{}, err
		}
		deps.Log.Infof("Scanning %s", dir)
		files, errs, err := findImages(dir, opts)
		if err != nil {
			return Envelope{}, err
		}
		envErrs = append(envErrs, errs...)
		for _, e := range errs {
			deps.Log.Errorf("Cannot read %s: %s", e.Locator, e.Message)
		}
		for _, f := range files {
			out.Records = append(out.Records, Record{
				Locator:  f.locator,
				DirIndex: i,
				Dir:      dir,
				Path:     filepath.Join(dir, filepath.FromSlash(f.locator)),
				Size:     f.size,
			})
		}
		deps.Log.Debugf("Found %d files in %s", len(files), dir)
	}
	appendSanitizedErrors(&out, envErrs)
	return out, nil
}

// warnNestedDirs logs source directories that contain another one. Files
// under both are scanned once per directory.
func warnNestedDirs(dirs []string, deps Deps) {
	for i, outer := range dirs {
		for j, inner := range dirs {
			if i != j && compare.Contains(outer, inner) {
				deps.Log.Warnf("Source directory %s is inside %s; its files are scanned twice", inner, outer)
			}
		}
	}
}

func init() { Register(discoverImagesStage, discoverImagesRunner) }
