package display

import (
	"bytes"
	"strings"
	"testing"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/psq/peoplesoft"
)

func init() {
	pterm.DisableColor()
}

func TestRenderTable(t *testing.T) {
	rs := &peoplesoft.ResultSet{
		Columns: []string{"VENDOR_ID", "DESCR"},
		Rows: []peoplesoft.Row{
			{"VENDOR_ID": "0000000001", "DESCR": "line one\nline two"},
			{"VENDOR_ID": "0000000002"},
			{"VENDOR_ID": "0000000003", "DESCR": "third"},
		},
	}

	out, err := RenderTable(rs, TableOptions{Limit: 2})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	assert.Len(t, lines, 3, "header plus two rows")
	assert.Contains(t, lines[0], "VENDOR_ID")
	assert.Less(t, strings.Index(lines[0], "VENDOR_ID"), strings.Index(lines[0], "DESCR"))
	assert.Contains(t, lines[1], "line one line two")
	assert.NotContains(t, out, "0000000003")
}

func TestRenderTable_NoColumns(t *testing.T) {
	out, err := RenderTable(&peoplesoft.ResultSet{Rows: []peoplesoft.Row{}}, TableOptions{})
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestPrintTable_Footer(t *testing.T) {
	rs := &peoplesoft.ResultSet{Columns: []string{"A"}, Rows: []peoplesoft.Row{{"A": "1"}, {"A": "2"}}}

	var buf bytes.Buffer
	require.NoError(t, PrintTable(&buf, rs, TableOptions{Limit: 1}))
	assert.Contains(t, buf.String(), "2 rows (showing first 1)")
}

func TestRowCountFooter(t *testing.T) {
	assert.Equal(t, "0 rows", RowCountFooter(0, 0))
	assert.Equal(t, "1 row", RowCountFooter(1, 0))
	assert.Equal(t, "5 rows", RowCountFooter(5, 10))
	assert.Equal(t, "50 rows (showing first 10)", RowCountFooter(50, 10))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "unlimited value", truncate("unlimited value", 0))
	got := truncate("Office Supplies and Furniture", 10)
	assert.LessOrEqual(t, len([]rune(got)), 10)
	assert.True(t, strings.HasSuffix(got, "…"))
}

func TestShouldOutputJSON(t *testing.T) {
	newCmd := func() *cobra.Command {
		root := &cobra.Command{Use: "psq"}
		root.PersistentFlags().Bool("json", false, "")
		child := &cobra.Command{Use: "history"}
		child.Flags().Bool("json", false, "")
		root.AddCommand(child)
		return child
	}

	t.Run("default is table", func(t *testing.T) {
		t.Setenv(EnvOutputJSON, "")
		assert.False(t, ShouldOutputJSON(newCmd()))
	})

	t.Run("local flag", func(t *testing.T) {
		cmd := newCmd()
		require.NoError(t, cmd.Flags().Set("json", "true"))
		assert.True(t, ShouldOutputJSON(cmd))
	})

	t.Run("global flag", func(t *testing.T) {
		t.Setenv(EnvOutputJSON, "")
		cmd := newCmd()
		require.NoError(t, cmd.Root().PersistentFlags().Set("json", "true"))
		assert.True(t, ShouldOutputJSON(cmd))
	})

	t.Run("explicit false beats environment", func(t *testing.T) {
		t.Setenv(EnvOutputJSON, "1")
		cmd := newCmd()
		require.NoError(t, cmd.Flags().Set("json", "false"))
		assert.False(t, ShouldOutputJSON(cmd))
	})

	t.Run("environment without command", func(t *testing.T) {
		t.Setenv(EnvOutputJSON, "true")
		assert.True(t, ShouldOutputJSON(nil))
	})
}

func TestMarshalJSON(t *testing.T) {
	data, err := MarshalJSON(map[string]int{"rows": 2})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"rows"`)
}
