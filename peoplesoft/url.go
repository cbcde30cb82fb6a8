package peoplesoft

import (
	"strconv"
	"strings"
)

// Defaults for QueryOptions, matching the ExecuteQuery.v1 service operation.
const (
	DefaultMaxRows    = 1000
	DefaultSecurity   = "public"
	DefaultOutputPath = "XMLP/NONFILE"
)

// QueryOptions are the per-call ExecuteQuery parameters besides name and prompts.
// Values are used exactly as given; start from DefaultQueryOptions.
type QueryOptions struct {
	MaxRows    int
	Connected  bool   // isconnectedquery=Y
	Security   string // "public" or "private"
	OutputPath string // e.g. "XMLP/NONFILE"; may be empty
}

// DefaultQueryOptions returns maxrows 1000, not connected, public, XMLP/NONFILE.
func DefaultQueryOptions() QueryOptions {
	return QueryOptions{
		MaxRows:    DefaultMaxRows,
		Connected:  false,
		Security:   DefaultSecurity,
		OutputPath: DefaultOutputPath,
	}
}

// BuildURL assembles an ExecuteQuery URL:
//
//	{base}/{security}/{query}/{output_path}?isconnectedquery=N&maxrows=1000
//	    &prompt_uniquepromptname=A,B&prompt_fieldvalue=1,2
//
// Trailing slashes are trimmed from the path, so an empty output path does
// not leave one behind.
//
// The query string is written by hand instead of with url.Values: the
// gateway splits the two prompt parameters on literal commas and does not
// decode %2C. Names and values are not escaped at all; the caller passes
// values that are already URL-safe.
func BuildURL(baseURL, queryName string, prompts Prompts, opts QueryOptions) string {
	base := strings.TrimRight(baseURL, "/")
	path := strings.TrimRight(base+"/"+opts.Security+"/"+queryName+"/"+opts.OutputPath, "/")

	var b strings.Builder
	b.Grow(len(path) + 96)
	b.WriteString(path)
	b.WriteString("?isconnectedquery=")
	b.WriteString(connectedFlag(opts.Connected))
	b.WriteString("&maxrows=")
	b.WriteString(strconv.Itoa(opts.MaxRows))
	b.WriteString("&prompt_uniquepromptname=")
	b.WriteString(strings.Join(prompts.Names(), ","))
	b.WriteString("&prompt_fieldvalue=")
	b.WriteString(strings.Join(prompts.Values(), ","))
	return b.String()
}

func connectedFlag(connected bool) string {
	if connected {
		return "Y"
	}
	return "N"
}
