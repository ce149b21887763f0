package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToolsCmd_Markdown(t *testing.T) {
	var out bytes.Buffer
	cmd := newToolsCmd()
	cmd.SetOut(&out)
	require.NoError(t, cmd.RunE(cmd, nil))

	md := out.String()
	assert.True(t, strings.HasPrefix(md, "# Tools Reference\n"))
	for _, name := range []string{
		"get_current_datetime", "list_events", "list_events_range", "search_events",
		"schedule_event", "update_event", "delete_event",
	} {
		assert.Contains(t, md, "## "+name+"\n")
	}

	assert.Contains(t, md, "| [list_events](#list_events) | read-only |")
	assert.Contains(t, md, "| [delete_event](#delete_event) | writes |")
	assert.Contains(t, md, "- `title` (string, required): ")
	assert.Contains(t, md, "- `duration_minutes` (number, optional): ")

	// Published order is kept.
	assert.Less(t, strings.Index(md, "## get_current_datetime"), strings.Index(md, "## delete_event"))
}
