package batch

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/psq/errors"
	"github.com/teranos/psq/export"
	"github.com/teranos/psq/internal/util"
	"github.com/teranos/psq/peoplesoft"
)

const jobFile = `
requests_per_minute = 0
output_dir = "exports"

[[query]]
name = "FM_VENDOR_MASTER"
maxrows = 500
output = "vendors.csv"

[[query.prompt]]
name = "VENDOR_STATUS"
value = "I"

[[query.prompt]]
name = "VENDOR_ID_OFFSET"
value = ""

[[query]]
name = "FM_PO_OPEN"
label = "open POs"
security = "private"
output_path = ""
`

type call struct {
	query   string
	prompts peoplesoft.Prompts
	opts    peoplesoft.QueryOptions
	at      time.Time
}

// fakeRunner returns canned results and records calls
type fakeRunner struct {
	mu    sync.Mutex
	calls []call
	fail  map[string]error
}

func (f *fakeRunner) Run(_ context.Context, query string, prompts peoplesoft.Prompts, opts peoplesoft.QueryOptions) (*peoplesoft.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{query: query, prompts: prompts, opts: opts, at: time.Now()})
	if err := f.fail[query]; err != nil {
		return nil, err
	}
	return &peoplesoft.Result{
		Query:   query,
		Raw:     "<query><row><ID>1</ID></row></query>",
		Columns: []string{"ID"},
		Rows:    []peoplesoft.Row{{"ID": "1"}},
	}, nil
}

func TestParse(t *testing.T) {
	f, err := Parse(jobFile)
	require.NoError(t, err)
	require.Len(t, f.Queries, 2)

	vendor := f.Queries[0]
	assert.Equal(t, "FM_VENDOR_MASTER", vendor.Name)
	assert.Equal(t, []string{"VENDOR_STATUS", "VENDOR_ID_OFFSET"}, vendor.Prompts.Names(), "prompt order is file order")
	assert.Equal(t, []string{"I", ""}, vendor.Prompts.Values())

	opts := vendor.QueryOptions(peoplesoft.DefaultQueryOptions())
	assert.Equal(t, 500, opts.MaxRows)
	assert.Equal(t, "public", opts.Security)

	po := f.Queries[1]
	assert.Equal(t, "open POs", po.DisplayName())
	poOpts := po.QueryOptions(peoplesoft.DefaultQueryOptions())
	assert.Equal(t, "private", poOpts.Security)
	assert.Equal(t, "", poOpts.OutputPath, "explicit empty output path is kept")
	assert.Equal(t, 1000, poOpts.MaxRows)
}

func TestParse_Errors(t *testing.T) {
	tests := map[string]string{
		"no queries":       `continue_on_error = true`,
		"missing name":     "[[query]]\nmaxrows = 5\n",
		"zero maxrows":     "[[query]]\nname = \"Q\"\nmaxrows = 0\n",
		"misspelled table": "[[query]]\nname = \"Q\"\n[[query.promt]]\nname = \"A\"\nvalue = \"1\"\n",
		"duplicate prompt": "[[query]]\nname = \"Q\"\n[[query.prompt]]\nname = \"A\"\nvalue = \"1\"\n[[query.prompt]]\nname = \"A\"\nvalue = \"2\"\n",
		"bad format":       "[[query]]\nname = \"Q\"\nformat = \"xlsx\"\n",
		"negative pacing":  "requests_per_minute = -1\n[[query]]\nname = \"Q\"\n",
		"not toml":         "[[query",
	}

	for name, text := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(text)
			assert.Error(t, err)
		})
	}
}

func TestOutputFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "jobs.toml")
	require.NoError(t, os.WriteFile(path, []byte(jobFile), 0644))

	f, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "exports", "vendors.csv"), f.OutputFile(f.Queries[0]))
	assert.Equal(t, "", f.OutputFile(f.Queries[1]))
	assert.Equal(t, "/abs/out.json", f.OutputFile(Job{Output: "/abs/out.json"}))
	assert.Equal(t, export.FormatCSV, f.Queries[0].OutputFormat())
	assert.Equal(t, export.FormatYAML, Job{Output: "x.json", Format: "yaml"}.OutputFormat())
}

func TestRun_ExportsAndRunsInOrder(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "jobs.toml")
	require.NoError(t, os.WriteFile(path, []byte(jobFile), 0644))
	f, err := Load(path)
	require.NoError(t, err)

	runner := &fakeRunner{}
	var seen []string
	summary, err := Run(context.Background(), runner, f, Options{
		Defaults: peoplesoft.DefaultQueryOptions(),
		OnResult: func(jr JobResult) { seen = append(seen, jr.Job.Name) },
	})
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Succeeded)
	assert.Equal(t, 0, summary.Failed)
	assert.NotEmpty(t, summary.BatchID)
	assert.Equal(t, []string{"FM_VENDOR_MASTER", "FM_PO_OPEN"}, seen)

	require.Len(t, runner.calls, 2)
	assert.Equal(t, "FM_VENDOR_MASTER", runner.calls[0].query)
	assert.Equal(t, 500, runner.calls[0].opts.MaxRows)

	out := filepath.Join(dir, "exports", "vendors.csv")
	assert.Equal(t, out, summary.Results[0].Output)
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "ID\n1\n", string(data))
}

func TestRun_StopsAtFirstFailure(t *testing.T) {
	f, err := Parse(jobFile)
	require.NoError(t, err)
	f.Queries[0].Output = ""

	remote := errors.Mark(&peoplesoft.RemoteError{StatusCode: 500, Body: "ORA-12345"}, errors.ErrRemoteRejection)
	runner := &fakeRunner{fail: map[string]error{"FM_VENDOR_MASTER": remote}}

	summary, err := Run(context.Background(), runner, f, Options{Defaults: peoplesoft.DefaultQueryOptions()})
	require.Error(t, err)
	assert.True(t, errors.IsRemoteRejection(err))
	assert.Contains(t, err.Error(), "batch stopped at query 1 (FM_VENDOR_MASTER)")

	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 1, summary.Skipped)
	assert.Len(t, runner.calls, 1)
}

func TestRun_ContinueOnError(t *testing.T) {
	f, err := Parse(jobFile)
	require.NoError(t, err)
	f.Queries[0].Output = ""

	transport := errors.Mark(errors.New("connection refused"), errors.ErrTransport)
	runner := &fakeRunner{fail: map[string]error{"FM_VENDOR_MASTER": transport}}

	summary, err := Run(context.Background(), runner, f, Options{
		Defaults:        peoplesoft.DefaultQueryOptions(),
		ContinueOnError: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 1, summary.Succeeded)
	assert.Len(t, runner.calls, 2)
	assert.True(t, errors.IsTransportError(summary.Results[0].Err))
}

func TestRun_Paced(t *testing.T) {
	f, err := Parse(strings.Repeat("[[query]]\nname = \"Q\"\n", 3))
	require.NoError(t, err)

	runner := &fakeRunner{}
	start := time.Now()
	// 600/min = one every 100ms, burst 1
	_, err = Run(context.Background(), runner, f, Options{RequestsPerMinute: 600})
	require.NoError(t, err)

	assert.GreaterOrEqual(t, time.Since(start), 150*time.Millisecond)
	require.Len(t, runner.calls, 3)
	assert.GreaterOrEqual(t, runner.calls[2].at.Sub(runner.calls[0].at), 150*time.Millisecond)
}

func TestRun_CancelledWhileWaiting(t *testing.T) {
	f, err := Parse(strings.Repeat("[[query]]\nname = \"Q\"\n", 3))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	runner := &fakeRunner{}
	// one per minute: the second job waits far longer than the context allows
	summary, err := Run(ctx, runner, f, Options{RequestsPerMinute: 1})
	require.Error(t, err)
	assert.Len(t, runner.calls, 1)
	assert.Equal(t, 2, summary.Skipped)
}

func TestJobQueryOptions_Overlay(t *testing.T) {
	defaults := peoplesoft.DefaultQueryOptions()

	job := Job{Name: "Q", Connected: util.Ptr(true), OutputPath: util.Ptr("")}
	opts := job.QueryOptions(defaults)
	assert.True(t, opts.Connected)
	assert.Equal(t, "", opts.OutputPath)
	assert.Equal(t, defaults.MaxRows, opts.MaxRows)
	assert.Equal(t, defaults.Security, opts.Security)

	assert.Equal(t, defaults, Job{Name: "Q"}.QueryOptions(defaults))
}
