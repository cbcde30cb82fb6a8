// Package batch runs a list of ExecuteQuery calls from a TOML job file,
// one at a time, paced by a rate limiter.
//
// Job file:
//
//	requests_per_minute = 20
//	continue_on_error = true
//	output_dir = "exports"
//
//	[[query]]
//	name = "FM_VENDOR_MASTER"
//	maxrows = 500
//	output = "vendors.csv"
//
//	[[query.prompt]]
//	name = "VENDOR_STATUS"
//	value = "I"
//
//	[[query.prompt]]
//	name = "VENDOR_ID_OFFSET"
//	value = ""
//
// Prompts are an array of tables so their order is explicit.
package batch

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/teranos/psq/errors"
	"github.com/teranos/psq/export"
	"github.com/teranos/psq/peoplesoft"
)

// Job is one [[query]] entry. Unset parameters fall back to the configured defaults.
type Job struct {
	Name       string             `toml:"name"`
	Label      string             `toml:"label"`
	MaxRows    *int               `toml:"maxrows"`
	Connected  *bool              `toml:"connected"`
	Security   *string            `toml:"security"`
	OutputPath *string            `toml:"output_path"`
	Output     string             `toml:"output"` // export file; empty = no export
	Format     string             `toml:"format"` // default: from the output extension
	Prompts    peoplesoft.Prompts `toml:"prompt"`
}

// DisplayName is the label when set, else the query name
func (j Job) DisplayName() string {
	if j.Label != "" {
		return j.Label
	}
	return j.Name
}

// QueryOptions overlays the job's parameters on defaults
func (j Job) QueryOptions(defaults peoplesoft.QueryOptions) peoplesoft.QueryOptions {
	opts := defaults
	if j.MaxRows != nil {
		opts.MaxRows = *j.MaxRows
	}
	if j.Connected != nil {
		opts.Connected = *j.Connected
	}
	if j.Security != nil {
		opts.Security = *j.Security
	}
	if j.OutputPath != nil {
		opts.OutputPath = *j.OutputPath
	}
	return opts
}

// File is a parsed job file
type File struct {
	RequestsPerMinute *int   `toml:"requests_per_minute"` // overrides batch.requests_per_minute
	ContinueOnError   bool   `toml:"continue_on_error"`
	OutputDir         string `toml:"output_dir"` // relative outputs resolve here; default: the job file's directory
	Queries           []Job  `toml:"query"`

	path string
}

// Load reads and validates a job file. Unknown keys are rejected so a
// misspelled "promt" table does not silently drop prompts.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read job file %s", path)
	}
	f, err := Parse(string(data))
	if err != nil {
		return nil, errors.Wrapf(err, "job file %s", path)
	}
	f.path = path
	return f, nil
}

// Parse decodes job file text
func Parse(text string) (*File, error) {
	var f File
	md, err := toml.Decode(text, &f)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse job file")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, errors.WithHint(
			errors.Newf("unknown keys in job file: %s", strings.Join(keys, ", ")),
			"prompts go in [[query.prompt]] tables with name and value",
		)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate checks every job before anything is sent
func (f *File) Validate() error {
	if len(f.Queries) == 0 {
		return errors.New("job file has no [[query]] entries")
	}
	if f.RequestsPerMinute != nil && *f.RequestsPerMinute < 0 {
		return errors.Newf("requests_per_minute must be >= 0, got %d", *f.RequestsPerMinute)
	}
	for i, job := range f.Queries {
		if strings.TrimSpace(job.Name) == "" {
			return errors.Newf("query %d: name is required", i+1)
		}
		if job.MaxRows != nil && *job.MaxRows <= 0 {
			return errors.Newf("query %d (%s): maxrows must be positive", i+1, job.Name)
		}
		seen := make(map[string]bool, len(job.Prompts))
		for _, p := range job.Prompts {
			if p.Name == "" {
				return errors.Newf("query %d (%s): prompt without a name", i+1, job.Name)
			}
			if seen[p.Name] {
				return errors.Newf("query %d (%s): prompt %s given twice", i+1, job.Name, p.Name)
			}
			seen[p.Name] = true
		}
		if job.Format != "" {
			if _, err := export.ParseFormat(job.Format); err != nil {
				return errors.Wrapf(err, "query %d (%s)", i+1, job.Name)
			}
		}
	}
	return nil
}

// OutputFile resolves a job's output path: absolute paths are kept, relative
// ones go under output_dir, which itself is relative to the job file.
func (f *File) OutputFile(job Job) string {
	if job.Output == "" || filepath.IsAbs(job.Output) {
		return job.Output
	}
	base := ""
	if f.path != "" {
		base = filepath.Dir(f.path)
	}
	dir := f.OutputDir
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(base, dir)
	}
	return filepath.Join(dir, job.Output)
}

// OutputFormat is the job's format, or the one implied by its output extension
func (j Job) OutputFormat() export.Format {
	if j.Format != "" {
		if f, err := export.ParseFormat(j.Format); err == nil {
			return f
		}
	}
	return export.FormatFromPath(j.Output)
}
