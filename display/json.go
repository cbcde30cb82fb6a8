package display

import (
	"encoding/json"
	"os"

	"github.com/mattn/go-isatty"
)

// MarshalJSON marshals JSON pretty-printed for terminals and compact when
// stdout is a pipe, so downstream tools get one value per line
func MarshalJSON(v interface{}) ([]byte, error) {
	if isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		return json.MarshalIndent(v, "", "  ")
	}
	return json.Marshal(v)
}
