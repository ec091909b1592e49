package stage

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/flarebyte/qr-ostraca/internal/upload"
)

const uploadReportStage = "upload-report"

const (
	contentTypeCSV  = "text/csv"
	contentTypeYAML = "application/yaml"
)

func uploaderFor(deps Deps) (upload.Uploader, error) {
	if deps.Uploader != nil {
		return deps.Uploader, nil
	}
	c, err := upload.New(upload.SettingsFromEnv())
	if err != nil {
		return nil, err
	}
	return c, nil
}

// uploadReportRunner publishes the CSV, and the summary when one was written,
// under <prefix>/<runId>/. Failures are envelope errors in keep-going mode.
func uploadReportRunner(ctx context.Context, in Envelope, deps Deps) (Envelope, error) {
	s := settingsOf(in)
	if s == nil || in.Meta.Report == nil {
		return Envelope{}, errNoSettings
	}
	if !s.Upload.Enabled {
		return in, nil
	}

	out := in
	var envErrs []Error
	fail := func(locator string, err error) error {
		if keepGoing(in) {
			deps.Log.Errorf("Upload of %s failed: %v", locator, err)
			envErrs = append(envErrs, Error{Stage: uploadReportStage, Locator: locator, Message: err.Error()})
			return nil
		}
		return fmt.Errorf("%s: %s: %w", uploadReportStage, locator, err)
	}

	up, err := uploaderFor(deps)
	if err != nil {
		if ferr := fail(in.Meta.Report.Path, err); ferr != nil {
			return Envelope{}, ferr
		}
		appendSanitizedErrors(&out, envErrs)
		return out, nil
	}

	files := []struct{ path, contentType string }{{in.Meta.Report.Path, contentTypeCSV}}
	if in.Meta.Report.SummaryPath != "" {
		files = append(files, struct{ path, contentType string }{in.Meta.Report.SummaryPath, contentTypeYAML})
	}
	for _, f := range files {
		key := upload.ObjectKey(s.Upload.Prefix, in.Meta.RunID, filepath.Base(f.path))
		if err := up.UploadFile(ctx, key, f.path, f.contentType); err != nil {
			if ferr := fail(f.path, err); ferr != nil {
				return Envelope{}, ferr
			}
			continue
		}
		deps.Log.Infof("Uploaded %s as %s", f.path, key)
		out.Meta.Report.Uploaded = append(out.Meta.Report.Uploaded, key)
	}
	appendSanitizedErrors(&out, envErrs)
	return out, nil
}

func init() { Register(uploadReportStage, uploadReportRunner) }
