package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuery_Text(t *testing.T) {
	stdout, _, code := execute(t, "query", "1 (2 3)")
	require.Equal(t, ExitSuccess, code)
	assert.Equal(t, "[0.0000 0.5000) 1\n[0.5000 0.7500) 2\n[0.7500 1.0000) 3\n", stdout)
}

func TestQuery_Window(t *testing.T) {
	stdout, _, code := execute(t, "query", "1 | 2", "--from", "1", "--to", "3")
	require.Equal(t, ExitSuccess, code)
	assert.Equal(t, "[1.0000 2.0000) 2\n[2.0000 3.0000) 1\n", stdout)
}

func TestQuery_JSON(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewQueryCommand(&RootOptions{Format: "json"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"60 64", "--to", "2"})
	require.NoError(t, cmd.Execute())

	var resp struct {
		Status string      `json:"status"`
		Data   []HapResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	require.Len(t, resp.Data, 4)
	assert.Equal(t, HapResult{From: 1.5, To: 2, Value: 64.0}, resp.Data[3])
}

func TestQuery_Timeline(t *testing.T) {
	stdout, _, code := execute(t, "query", "1 0 1 1", "--timeline", "--width", "8")
	require.Equal(t, ExitSuccess, code)
	assert.Contains(t, stdout, "●─")
	assert.Contains(t, stdout, "0")
}

func TestQuery_Errors(t *testing.T) {
	_, stderr, code := execute(t, "query", "1 nope..")
	assert.Equal(t, ExitCompileError, code)
	assert.Contains(t, stderr, "^")

	_, stderr, code = execute(t, "query", "1", "--from", "2", "--to", "1")
	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, stderr, "must be after")
}
