package peoplesoft

import (
	"encoding/xml"
	"io"
	"strings"

	"github.com/teranos/psq/errors"
)

// rowElement is the local name PeopleSoft uses for result rows.
const rowElement = "row"

// Row maps a field's local name to its trimmed text.
// A field element with no text maps to "", never to a missing key.
type Row map[string]string

// ResultSet is the parsed form of an ExecuteQuery response.
type ResultSet struct {
	// Columns is every field name seen, in first-seen document order.
	Columns []string `json:"columns"`
	// Rows are in document order of their <row> start tags.
	Rows []Row `json:"rows"`
}

// ParseRows returns one Row per element whose local name is "row".
// It is Parse without the column list.
func ParseRows(xmlText string) ([]Row, error) {
	rs, err := Parse(xmlText)
	if err != nil {
		return nil, err
	}
	return rs.Rows, nil
}

// frame tracks one open element while walking the token stream.
type frame struct {
	local     string
	rowIndex  int  // index into rows when this element is a row, else -1
	parentRow int  // index of the row this element is a direct field of, else -1
	sawChild  bool // text after the first child element is not part of the value
	text      strings.Builder
}

// Parse walks the whole document and collects every element whose local
// name is "row", at any depth and under any namespace. Each direct child of
// a row becomes a field keyed by its local name; when a row repeats a field
// name the last one wins. A field's value is the character data before its
// first child element, trimmed.
//
// Malformed XML returns an ErrParse error and no rows. A well-formed
// document with no rows returns an empty, non-nil Rows slice.
func Parse(xmlText string) (*ResultSet, error) {
	// encoding/xml reports a leading byte order mark as character data
	xmlText = strings.TrimPrefix(xmlText, "\uFEFF")
	dec := xml.NewDecoder(strings.NewReader(xmlText))
	// The text is already decoded; an encoding="..." declaration is informational.
	dec.CharsetReader = func(_ string, input io.Reader) (io.Reader, error) { return input, nil }

	rs := &ResultSet{Rows: []Row{}}
	seen := make(map[string]struct{})
	var stack []*frame
	rootClosed := false
	sawRoot := false

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, parseError(err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if len(stack) == 0 {
				if rootClosed {
					return nil, parseError(errors.Newf("junk after document element: <%s>", t.Name.Local))
				}
				sawRoot = true
			}

			f := &frame{local: t.Name.Local, rowIndex: -1, parentRow: -1}
			if len(stack) > 0 {
				parent := stack[len(stack)-1]
				parent.sawChild = true
				f.parentRow = parent.rowIndex
			}
			if t.Name.Local == rowElement {
				f.rowIndex = len(rs.Rows)
				rs.Rows = append(rs.Rows, Row{})
			}
			stack = append(stack, f)

		case xml.CharData:
			if len(stack) == 0 {
				if len(strings.TrimSpace(string(t))) > 0 {
					return nil, parseError(errors.New("character data outside document element"))
				}
				continue
			}
			if top := stack[len(stack)-1]; !top.sawChild {
				top.text.Write(t)
			}

		case xml.EndElement:
			f := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			if f.parentRow >= 0 {
				rs.Rows[f.parentRow][f.local] = strings.TrimSpace(f.text.String())
				if _, ok := seen[f.local]; !ok {
					seen[f.local] = struct{}{}
					rs.Columns = append(rs.Columns, f.local)
				}
			}
			if len(stack) == 0 {
				rootClosed = true
			}
		}
	}

	if !sawRoot {
		return nil, parseError(errors.New("no root element"))
	}

	return rs, nil
}

func parseError(err error) error {
	return errors.Mark(errors.Wrap(err, "failed to parse ExecuteQuery XML"), errors.ErrParse)
}
