package status

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifierWritesJSONLines(t *testing.T) {
	var buf bytes.Buffer
	n := NewNotifier(&buf)

	require.NoError(t, n.Error("Missing 'TID' column(s) in SBI CC.csv."))
	require.NoError(t, n.Success("done <ok>"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, `{"severity":"error","message":"Missing 'TID' column(s) in SBI CC.csv."}`, lines[0])
	assert.Equal(t, `{"severity":"success","message":"done <ok>"}`, lines[1])

	var msg Message
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &msg))
	assert.Equal(t, SeverityError, msg.Severity)
}
