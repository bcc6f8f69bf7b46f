// Package journal records what a playback session dispatched to a SQLite file.
//
// A Journal is a scheduler sink. Dispatch and Diagnose only enqueue; a single
// writer goroutine batches rows into transactions so the dispatch path never
// waits on the disk. When the queue is full records are dropped and counted.
// Entries whose params cannot be encoded as JSON are skipped and counted.
package journal

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"go-cycles/debug"
	"go-cycles/scheduler"
)

//go:embed schema.sql
var schemaSQL string

// QueueSize is the number of records buffered ahead of the writer.
const QueueSize = 4096

// Entry is one recorded dispatch.
type Entry struct {
	Session  string
	Stream   string
	Cycle    float64
	At       time.Time
	Late     bool
	Lateness time.Duration
	Params   map[string]any
	Mutation bool
}

// Problem is one recorded diagnostic.
type Problem struct {
	Session string
	Kind    string
	Stream  string
	Cycle   float64
	Message string
}

type record struct {
	entry   *Entry
	problem *Problem
	synced  chan struct{} // closed once everything queued before it is written
}

// Journal writes dispatches and diagnostics for one session.
type Journal struct {
	db      *sql.DB
	session string

	queue chan record
	done  chan struct{}

	mu      sync.Mutex // guards closed, dropped and enqueue sends
	closed  bool
	dropped int
	syncs   sync.WaitGroup // Sync markers still being sent; Close waits for them

	skipped atomic.Int64

	errMu sync.Mutex
	err   error // first write error
}

// Open creates or opens the journal at path and starts recording for session.
func Open(path, session string) (*Journal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("journal: open %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal: connect %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("journal: %q: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal: schema: %w", err)
	}

	j := &Journal{
		db:      db,
		session: session,
		queue:   make(chan record, QueueSize),
		done:    make(chan struct{}),
	}
	go j.writer()
	debug.Log("journal", "recording session %s to %s", session, path)
	return j, nil
}

// Session returns the id rows are recorded under.
func (j *Journal) Session() string { return j.session }

// Dispatch implements scheduler.Sink.
func (j *Journal) Dispatch(d scheduler.Dispatch) {
	j.enqueue(record{entry: &Entry{
		Session:  j.session,
		Stream:   d.Event.Stream,
		Cycle:    d.Cycle,
		At:       d.At,
		Late:     d.Late,
		Lateness: d.Lateness,
		Params:   d.Event.Params,
		Mutation: d.Event.Mutation,
	}})
}

// Diagnose implements scheduler.Sink.
func (j *Journal) Diagnose(d scheduler.Diagnostic) {
	j.enqueue(record{problem: &Problem{
		Session: j.session,
		Kind:    d.Kind.String(),
		Stream:  d.Stream,
		Cycle:   d.Cycle,
		Message: d.String(),
	}})
}

func (j *Journal) enqueue(r record) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return
	}
	select {
	case j.queue <- r:
	default:
		j.dropped++
		debug.LogEvery(100, "journal", "queue full, %d dropped", j.dropped)
	}
}

// Sync waits until every record queued so far is written and returns the
// first write error seen.
func (j *Journal) Sync() error {
	j.mu.Lock()
	if j.closed {
		j.mu.Unlock()
		return j.firstErr()
	}
	j.syncs.Add(1)
	j.mu.Unlock()

	// The send may wait for the writer, so it happens outside mu.
	synced := make(chan struct{})
	j.queue <- record{synced: synced}
	j.syncs.Done()

	<-synced
	return j.firstErr()
}

func (j *Journal) firstErr() error {
	j.errMu.Lock()
	defer j.errMu.Unlock()
	return j.err
}

// Dropped returns how many records were lost to a full queue.
func (j *Journal) Dropped() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.dropped
}

// Skipped returns how many dispatches were not recorded because their params
// could not be encoded.
func (j *Journal) Skipped() int {
	return int(j.skipped.Load())
}

// Close flushes the queue and closes the database.
func (j *Journal) Close() error {
	j.mu.Lock()
	if j.closed {
		j.mu.Unlock()
		return nil
	}
	j.closed = true
	j.mu.Unlock()

	j.syncs.Wait()
	close(j.queue)
	<-j.done
	if err := j.db.Close(); err != nil {
		return fmt.Errorf("journal: close: %w", err)
	}
	return j.firstErr()
}

// writer drains the queue, writing whatever has accumulated in one transaction.
func (j *Journal) writer() {
	defer close(j.done)
	for r := range j.queue {
		batch := []record{r}
	drain:
		for len(batch) < 256 {
			select {
			case next, ok := <-j.queue:
				if !ok {
					break drain
				}
				batch = append(batch, next)
			default:
				break drain
			}
		}
		if err := j.write(batch); err != nil {
			debug.Log("journal", "write: %v", err)
			j.errMu.Lock()
			if j.err == nil {
				j.err = err
			}
			j.errMu.Unlock()
		}
		for _, r := range batch {
			if r.synced != nil {
				close(r.synced)
			}
		}
	}
}

func (j *Journal) write(batch []record) error {
	ctx := context.Background()
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("journal: begin: %w", err)
	}
	defer tx.Rollback()

	for _, r := range batch {
		switch {
		case r.entry != nil:
			params, err := json.Marshal(r.entry.Params)
			if err != nil {
				n := j.skipped.Add(1)
				debug.LogEvery(100, "journal", "skip %s cycle %.4f: %v (%d skipped)", r.entry.Stream, r.entry.Cycle, err, n)
				continue
			}
			if err := insertEntry(ctx, tx, r.entry, params); err != nil {
				return err
			}
		case r.problem != nil:
			if err := insertProblem(ctx, tx, r.problem); err != nil {
				return err
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("journal: commit: %w", err)
	}
	return nil
}

func insertEntry(ctx context.Context, tx *sql.Tx, e *Entry, params []byte) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO dispatches (session, stream, cycle, at_unix_nano, late, lateness_ns, params_json, mutation)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, e.Session, e.Stream, e.Cycle, e.At.UnixNano(), e.Late, int64(e.Lateness), string(params), e.Mutation)
	if err != nil {
		return fmt.Errorf("journal: insert dispatch: %w", err)
	}
	return nil
}

func insertProblem(ctx context.Context, tx *sql.Tx, p *Problem) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO diagnostics (session, kind, stream, cycle, message)
		VALUES (?, ?, ?, ?, ?)
	`, p.Session, p.Kind, p.Stream, p.Cycle, p.Message)
	if err != nil {
		return fmt.Errorf("journal: insert diagnostic: %w", err)
	}
	return nil
}
