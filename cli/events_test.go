package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvents_Golden(t *testing.T) {
	stdout, _, code := execute(t, "events", basicSession)
	require.Equal(t, ExitSuccess, code)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "events_basic", []byte(stdout))
}

func TestEvents_JSON(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewEventsCommand(&RootOptions{Format: "json"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{basicSession, "--from", "1", "--to", "1.5"})
	require.NoError(t, cmd.Execute())

	var resp struct {
		Status string        `json:"status"`
		Data   []EventResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	require.Len(t, resp.Data, 3)
	assert.Equal(t, "s0", resp.Data[0].Stream)
	assert.Equal(t, 1.0, resp.Data[0].Time)
	assert.Equal(t, 0.25, resp.Data[0].Duration)
	assert.Equal(t, "s1", resp.Data[1].Stream)
	assert.Equal(t, 1.25, resp.Data[2].Time)
}

func TestEvents_Errors(t *testing.T) {
	_, _, code := execute(t, "events", filepath.Join("..", "session", "testdata", "bad_notation.yaml"))
	assert.Equal(t, ExitCompileError, code)

	_, stderr, code := execute(t, "events", filepath.Join("..", "session", "testdata", "unknown_field.yaml"))
	assert.Equal(t, ExitCompileError, code)
	assert.Contains(t, stderr, "session schema")

	_, _, code = execute(t, "events", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Equal(t, ExitFailure, code)
}

func TestEvents_Mutations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.yaml")
	require.NoError(t, writeFile(path, "streams:\n  fx0:\n    m: \"1 1\"\n    _cut: \"200 800\"\n"))

	stdout, _, code := execute(t, "events", path)
	require.Equal(t, ExitSuccess, code)
	assert.Equal(t, "0.0000 fx0 m cut=200\n0.5000 fx0 m cut=800\n", stdout)
}
