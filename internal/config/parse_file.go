package config

import (
	"fmt"
	"path/filepath"

	"cuelang.org/go/cue"
)

// ParseFile applies the fields present in a .cue config file on top of base.
// Relative directories in the file are resolved against the file's directory.
func ParseFile(path string, base Settings) (Settings, error) {
	v, err := compileCUE(path)
	if err != nil {
		return Settings{}, err
	}
	if err := requireStringField(v, "configVersion"); err != nil {
		return Settings{}, err
	}
	s := base
	if err := v.LookupPath(cue.ParsePath("configVersion")).Decode(&s.ConfigVersion); err != nil {
		return Settings{}, fmt.Errorf("invalid value for configVersion: %v", err)
	}
	if !IsSupportedConfigVersion(s.ConfigVersion) {
		return Settings{}, fmt.Errorf("unsupported configVersion: %q (supported: %s)", s.ConfigVersion, SupportedConfigVersionsCSV())
	}

	if err := parseTopLevel(v, &s); err != nil {
		return Settings{}, err
	}
	if err := parseDiscoverySection(v, &s.Discovery); err != nil {
		return Settings{}, err
	}
	if err := parseDecodeSection(v, &s.Decode); err != nil {
		return Settings{}, err
	}
	if err := parseLuaSections(v, &s); err != nil {
		return Settings{}, err
	}
	if err := parseOutputSections(v, &s); err != nil {
		return Settings{}, err
	}

	dir := filepath.Dir(path)
	if v.LookupPath(cue.ParsePath("srcDirs")).Exists() {
		resolved := make([]string, len(s.SrcDirs))
		for i, d := range s.SrcDirs {
			resolved[i] = resolveAgainst(dir, d)
		}
		s.SrcDirs = resolved
	}
	if v.LookupPath(cue.ParsePath("reportDir")).Exists() {
		s.ReportDir = resolveAgainst(dir, s.ReportDir)
	}
	return s, nil
}

func resolveAgainst(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

func parseTopLevel(v cue.Value, s *Settings) error {
	var dirs []string
	if err := lookupStringList(v, "srcDirs", &dirs); err != nil {
		return err
	}
	if dirs != nil {
		s.SrcDirs = dirs
	}
	for _, f := range []struct {
		path string
		dst  *string
	}{
		{"reportDir", &s.ReportDir},
		{"reportPrefix", &s.ReportPrefix},
		{"logLevel", &s.LogLevel},
		{"errors.mode", &s.ErrorsMode},
	} {
		if err := lookupString(v, f.path, f.dst); err != nil {
			return err
		}
	}
	return lookupInt(v, "workers", &s.Workers)
}

func parseDiscoverySection(v cue.Value, d *Discovery) error {
	if err := lookupStringList(v, "discovery.exclude", &d.Exclude); err != nil {
		return err
	}
	if err := lookupStringList(v, "discovery.extensions", &d.Extensions); err != nil {
		return err
	}
	if err := lookupBool(v, "discovery.gitignore", &d.Gitignore); err != nil {
		return err
	}
	return lookupBool(v, "discovery.followSymlinks", &d.FollowSymlinks)
}

func parseDecodeSection(v cue.Value, d *Decode) error {
	if err := lookupInt(v, "decode.timeoutMs", &d.TimeoutMs); err != nil {
		return err
	}
	if err := lookupInt(v, "decode.cacheSize", &d.CacheSize); err != nil {
		return err
	}
	if err := lookupStringList(v, "decode.formats", &d.Formats); err != nil {
		return err
	}
	return lookupBool(v, "decode.tryHarder", &d.TryHarder)
}

func parseLuaSections(v cue.Value, s *Settings) error {
	if err := lookupString(v, "filter.inline", &s.Filter.Inline); err != nil {
		return err
	}
	if err := lookupInt(v, "luaSandbox.timeoutMs", &s.LuaSandbox.TimeoutMs); err != nil {
		return err
	}
	if err := lookupInt(v, "luaSandbox.instructionLimit", &s.LuaSandbox.InstructionLimit); err != nil {
		return err
	}
	return lookupInt(v, "luaSandbox.memoryLimitBytes", &s.LuaSandbox.MemoryLimitBytes)
}

func parseOutputSections(v cue.Value, s *Settings) error {
	for _, f := range []struct {
		path string
		dst  *bool
	}{
		{"report.singleLabel", &s.Report.SingleLabel},
		{"report.summary", &s.Report.Summary},
		{"report.failOnMismatch", &s.Report.FailOnMismatch},
		{"upload.enabled", &s.Upload.Enabled},
		{"ui.progress", &s.UI.Progress},
	} {
		if err := lookupBool(v, f.path, f.dst); err != nil {
			return err
		}
	}
	if err := lookupString(v, "upload.prefix", &s.Upload.Prefix); err != nil {
		return err
	}
	return lookupInt(v, "ui.progressIntervalMs", &s.UI.ProgressIntervalMs)
}
