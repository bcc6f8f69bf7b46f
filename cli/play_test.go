package cli

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-cycles/journal"
)

const basicSessionID = "0190f5c2-7d3a-7b4e-8c1d-2f6a9b3e4d51"

func TestPlay_Headless(t *testing.T) {
	db := filepath.Join(t.TempDir(), "play.db")
	stdout, stderr, code := execute(t, "play", basicSession, "--no-tui", "--duration", "300ms", "--journal", db)
	require.Equal(t, ExitSuccess, code, stderr)

	assert.Contains(t, stdout, "0.0000 s0 e ch=2 n=60")
	assert.Contains(t, stdout, "0.0000 s1 e n=60")
	assert.Contains(t, stdout, "played "+basicSessionID)

	j, err := journal.Open(db, "")
	require.NoError(t, err)
	defer j.Close()
	sessions, err := j.Sessions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{basicSessionID}, sessions)
	entries, err := j.Dispatches(context.Background(), basicSessionID)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(entries), 2)
}

func TestPlay_BadTempo(t *testing.T) {
	_, stderr, code := execute(t, "play", basicSession, "--no-tui", "--tempo=-1")
	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, stderr, "tempo")
}

func TestPlay_InvalidSession(t *testing.T) {
	_, _, code := execute(t, "play", filepath.Join("..", "session", "testdata", "bad_notation.yaml"), "--no-tui")
	assert.Equal(t, ExitCompileError, code)
}
