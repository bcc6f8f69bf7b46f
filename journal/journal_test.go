package journal

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-cycles/scheduler"
	"go-cycles/stream"
)

var t0 = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func openTest(t *testing.T, session string) (*Journal, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "journal.db")
	j, err := Open(path, session)
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j, path
}

func TestJournal_RecordsDispatches(t *testing.T) {
	j, _ := openTest(t, "sess-a")
	ctx := context.Background()

	j.Dispatch(scheduler.Dispatch{
		Event: stream.Event{Stream: "s1", Time: 0.5, Params: map[string]any{"n": 64.0}},
		At:    t0.Add(500 * time.Millisecond),
		Cycle: 0.5,
	})
	j.Dispatch(scheduler.Dispatch{
		Event:    stream.Event{Stream: "s0", Time: 0, Params: map[string]any{"n": 60.0, "s": "bd"}},
		At:       t0,
		Cycle:    0,
		Late:     true,
		Lateness: 12 * time.Millisecond,
	})
	j.Dispatch(scheduler.Dispatch{
		Event: stream.Event{Stream: "s0", Time: 0.5, Params: map[string]any{"pan": 1.0}, Mutation: true},
		At:    t0.Add(500 * time.Millisecond),
		Cycle: 0.5,
	})
	require.NoError(t, j.Sync())

	got, err := j.Dispatches(ctx, "sess-a")
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, "s0", got[0].Stream)
	assert.True(t, got[0].Late)
	assert.Equal(t, 12*time.Millisecond, got[0].Lateness)
	assert.True(t, got[0].At.Equal(t0))
	assert.Equal(t, map[string]any{"n": 60.0, "s": "bd"}, got[0].Params)

	assert.Equal(t, "s0", got[1].Stream, "ties on cycle order by stream")
	assert.True(t, got[1].Mutation)
	assert.Equal(t, "s1", got[2].Stream)
	assert.False(t, got[2].Late)

	other, err := j.Dispatches(ctx, "sess-b")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestJournal_RecordsDiagnostics(t *testing.T) {
	j, _ := openTest(t, "sess-a")

	j.Diagnose(scheduler.Diagnostic{Kind: scheduler.QueryFailed, Stream: "s2", Cycle: 1, Err: errors.New("bad")})
	j.Diagnose(scheduler.Diagnostic{Kind: scheduler.LateDispatch, Stream: "s0", Cycle: 2, Lateness: time.Second})
	require.NoError(t, j.Sync())

	got, err := j.Problems(context.Background(), "sess-a")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "query-failed", got[0].Kind)
	assert.Equal(t, "query-failed: s2 cycle 1.0000: bad", got[0].Message)
	assert.Equal(t, "late", got[1].Kind)
}

func TestJournal_ReopenKeepsSessions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	ctx := context.Background()

	for _, session := range []string{"first", "second"} {
		j, err := Open(path, session)
		require.NoError(t, err)
		j.Dispatch(scheduler.Dispatch{Event: stream.Event{Stream: "s0", Params: map[string]any{}}, At: t0})
		require.NoError(t, j.Close())
	}

	j, err := Open(path, "")
	require.NoError(t, err)
	defer j.Close()
	ids, err := j.Sessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, ids)
}

func TestJournal_AfterClose(t *testing.T) {
	j, _ := openTest(t, "s")
	require.NoError(t, j.Close())
	require.NoError(t, j.Close())

	j.Dispatch(scheduler.Dispatch{Event: stream.Event{Stream: "s0"}, At: t0})
	assert.NoError(t, j.Sync())
	assert.Zero(t, j.Dropped())
}

func TestJournal_AsSchedulerSink(t *testing.T) {
	j, _ := openTest(t, "live")
	c := scheduler.NewManualClock(t0)

	st := stream.New("s0")
	require.NoError(t, st.Set(map[string]any{"e": "1 1", "n": "60 67"}))
	s := scheduler.New(c, j, scheduler.WithTempo(1), scheduler.WithLatency(time.Second))
	s.Add(st)
	require.NoError(t, s.Play())
	c.Advance(500 * time.Millisecond)
	s.Stop()

	require.NoError(t, j.Sync())
	got, err := j.Dispatches(context.Background(), "live")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 67.0, got[1].Params["n"])
	assert.True(t, got[1].At.Equal(t0.Add(500*time.Millisecond)))
}

func TestJournal_SkipsUnencodableParams(t *testing.T) {
	j, _ := openTest(t, "s")

	j.Dispatch(scheduler.Dispatch{Event: stream.Event{Stream: "s0", Params: map[string]any{"n": 60.0}}, At: t0})
	j.Dispatch(scheduler.Dispatch{Event: stream.Event{Stream: "s1", Params: map[string]any{"n": math.NaN()}}, At: t0})
	j.Dispatch(scheduler.Dispatch{
		Event: stream.Event{Stream: "s2", Params: map[string]any{"n": 64.0}},
		At:    t0.Add(time.Second),
		Cycle: 1,
	})
	require.NoError(t, j.Sync())

	got, err := j.Dispatches(context.Background(), "s")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "s0", got[0].Stream)
	assert.Equal(t, "s2", got[1].Stream)
	assert.Equal(t, 1, j.Skipped())
	assert.Zero(t, j.Dropped())
}

func TestJournal_DispatchDoesNotWaitForSync(t *testing.T) {
	// No writer: the queue stays full until the test drains it.
	j := &Journal{session: "s", queue: make(chan record, 1), done: make(chan struct{})}
	j.queue <- record{}

	synced := make(chan error, 1)
	go func() { synced <- j.Sync() }()
	time.Sleep(20 * time.Millisecond)

	dispatched := make(chan struct{})
	go func() {
		j.Dispatch(scheduler.Dispatch{Event: stream.Event{Stream: "s0"}, At: t0})
		close(dispatched)
	}()
	select {
	case <-dispatched:
	case <-time.After(time.Second):
		t.Fatal("Dispatch blocked while Sync waited on a full queue")
	}
	assert.Equal(t, 1, j.Dropped())

	<-j.queue
	r := <-j.queue
	require.NotNil(t, r.synced)
	close(r.synced)
	require.NoError(t, <-synced)
}
